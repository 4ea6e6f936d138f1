// Package backup exports every ledger collection to object storage.
package backup

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"

	"ledgerpos/backend/internal/domain"
	"ledgerpos/backend/internal/store"
)

// ObjectWriter stores one object under key.
type ObjectWriter interface {
	Put(ctx context.Context, key string, data []byte) error
}

type Object struct {
	Collection domain.Collection `json:"collection"`
	Key        string            `json:"key"`
	Documents  int               `json:"documents"`
	Bytes      int               `json:"bytes"`
	Checksum   string            `json:"blake2b"`
}

type Manifest struct {
	Prefix    string    `json:"prefix"`
	CreatedAt time.Time `json:"createdAt"`
	Objects   []Object  `json:"objects"`
}

type Exporter struct {
	gw     store.Gateway
	writer ObjectWriter
	logger *zap.Logger
	now    func() time.Time
}

func NewExporter(gw store.Gateway, writer ObjectWriter, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{gw: gw, writer: writer, logger: logger, now: time.Now}
}

// Export writes one JSON array per collection under prefix/<timestamp>/ and
// a manifest.json listing them. Collections are exported concurrently; the
// manifest is written only when all of them succeeded.
func (e *Exporter) Export(ctx context.Context, prefix string) (Manifest, error) {
	createdAt := e.now().UTC()
	manifest := Manifest{
		Prefix:    path.Join(strings.Trim(prefix, "/"), createdAt.Format("20060102T150405Z")),
		CreatedAt: createdAt,
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, collection := range domain.Collections {
		g.Go(func() error {
			docs, err := e.gw.List(gctx, collection)
			if err != nil {
				return fmt.Errorf("list %s: %w", collection, err)
			}
			payload, err := json.Marshal(docs)
			if err != nil {
				return fmt.Errorf("encode %s: %w", collection, err)
			}
			key := path.Join(manifest.Prefix, string(collection)+".json")
			if err := e.writer.Put(gctx, key, payload); err != nil {
				return fmt.Errorf("upload %s: %w", key, err)
			}

			sum := blake2b.Sum256(payload)
			mu.Lock()
			manifest.Objects = append(manifest.Objects, Object{
				Collection: collection,
				Key:        key,
				Documents:  len(docs),
				Bytes:      len(payload),
				Checksum:   hex.EncodeToString(sum[:]),
			})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return manifest, err
	}

	slices.SortFunc(manifest.Objects, func(a, b Object) int {
		return strings.Compare(a.Key, b.Key)
	})
	payload, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return manifest, err
	}
	if err := e.writer.Put(ctx, path.Join(manifest.Prefix, "manifest.json"), payload); err != nil {
		return manifest, fmt.Errorf("upload manifest: %w", err)
	}

	e.logger.Info("ledger backup exported",
		zap.String("prefix", manifest.Prefix),
		zap.Int("objects", len(manifest.Objects)))
	return manifest, nil
}
