package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"ledgerpos/backend/internal/domain"
	"ledgerpos/backend/internal/store"
)

const publishTimeout = 5 * time.Second

type Store struct {
	db     *sqlx.DB
	hub    *store.Hub
	logger *zap.Logger
	now    func() time.Time
}

type documentRow struct {
	ID  string `db:"id"`
	Doc []byte `db:"doc"`
}

func New(ctx context.Context, databaseURL string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sqlx.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, hub: store.NewHub(), logger: logger, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Subscribe(ctx context.Context, collection domain.Collection, fn store.Listener) (func(), error) {
	if !collection.Valid() {
		return nil, store.ErrUnknownCollection
	}
	sub, unsubscribe := s.hub.Add(collection, fn)
	seq := s.hub.Reserve()
	docs, err := s.List(ctx, collection)
	if err != nil {
		unsubscribe()
		return nil, err
	}
	sub.Deliver(seq, docs)
	return unsubscribe, nil
}

func (s *Store) List(ctx context.Context, collection domain.Collection) ([]store.Document, error) {
	if !collection.Valid() {
		return nil, store.ErrUnknownCollection
	}
	rows := make([]documentRow, 0, 64)
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, doc
		FROM documents
		WHERE collection = $1
		ORDER BY id
	`, string(collection))
	if err != nil {
		return nil, classify(err)
	}

	docs := make([]store.Document, 0, len(rows))
	for _, row := range rows {
		var doc store.Document
		if err := json.Unmarshal(row.Doc, &doc); err != nil {
			s.logger.Warn("skipping undecodable document",
				zap.String("collection", string(collection)),
				zap.String("id", row.ID),
				zap.Error(err))
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *Store) Upsert(ctx context.Context, collection domain.Collection, id string, patch store.Document) error {
	if !collection.Valid() {
		return store.ErrUnknownCollection
	}
	key, err := store.SanitizeID(id)
	if err != nil {
		return err
	}

	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		return s.mergeOne(ctx, tx, collection, key, patch, s.now())
	})
	if err != nil {
		return err
	}
	s.publish(ctx, collection)
	return nil
}

func (s *Store) Delete(ctx context.Context, collection domain.Collection, id string) error {
	if !collection.Valid() {
		return store.ErrUnknownCollection
	}
	key, err := store.SanitizeID(id)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM documents
		WHERE collection = $1 AND id = $2
	`, string(collection), key); err != nil {
		return classify(err)
	}
	s.publish(ctx, collection)
	return nil
}

func (s *Store) BulkUpsert(ctx context.Context, collection domain.Collection, items []store.Document) error {
	if !collection.Valid() {
		return store.ErrUnknownCollection
	}
	kept, rejected := store.Dedupe(items)
	if len(rejected) > 0 {
		s.logger.Warn("bulk upsert skipped documents without id",
			zap.String("collection", string(collection)),
			zap.Int("count", len(rejected)))
	}
	if len(kept) == 0 {
		return nil
	}

	now := s.now()
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, item := range kept {
			if err := s.mergeOne(ctx, tx, collection, item.ID(), item, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(ctx, collection)
	return nil
}

func (s *Store) mergeOne(ctx context.Context, tx *sqlx.Tx, collection domain.Collection, id string, patch store.Document, now time.Time) error {
	var raw []byte
	err := tx.GetContext(ctx, &raw, `
		SELECT doc
		FROM documents
		WHERE collection = $1 AND id = $2
		FOR UPDATE
	`, string(collection), id)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return classify(err)
	}

	var existing store.Document
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &existing); err != nil {
			return fmt.Errorf("decode %s/%s: %w", collection, id, err)
		}
	}

	payload, err := json.Marshal(store.Prepare(collection, id, existing, patch, now))
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (collection, id, doc, updated_at)
		VALUES ($1, $2, $3::jsonb, $4)
		ON CONFLICT (collection, id)
		DO UPDATE SET doc = EXCLUDED.doc, updated_at = EXCLUDED.updated_at
	`, string(collection), id, string(payload), now.UTC())
	return classify(err)
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return classify(tx.Commit())
}

// publish re-reads the collection for subscribers. The write already
// committed, so the read outlives the caller's cancellation; a failed read
// leaves the collection stale until Resync.
func (s *Store) publish(ctx context.Context, collection domain.Collection) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.hub.Refresh(ctx, collection, s.List); err != nil {
		s.logger.Warn("change broadcast failed; collection marked stale",
			zap.String("collection", string(collection)),
			zap.Error(err))
	}
}

// Resync re-broadcasts every collection whose last broadcast failed.
func (s *Store) Resync(ctx context.Context) error {
	return s.hub.Resync(ctx, s.List)
}

var errSchemaMissing = errors.New("documents table missing; run migrations")

func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "42P01" {
		return fmt.Errorf("%w: %v", errSchemaMissing, err)
	}
	return err
}
