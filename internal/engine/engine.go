// Package engine plans the side effects of ledger operations. Every method
// reads an explicit snapshot and returns the writes to perform; nothing here
// touches the store.
package engine

import (
	"errors"
	"time"

	"ledgerpos/backend/internal/xid"
)

var ErrInvalidTransition = errors.New("invalid state transition")

const (
	defaultCashAccountID = "cash"
	timeLayout           = time.RFC3339Nano
)

type Engine struct {
	cashAccountID string
	now           func() time.Time
	newID         func(prefix string) string
}

type Option func(*Engine)

// WithCashAccount sets the account that closing transfers settle against.
func WithCashAccount(id string) Option {
	return func(e *Engine) {
		if id != "" {
			e.cashAccountID = id
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func WithIDGenerator(newID func(prefix string) string) Option {
	return func(e *Engine) {
		e.newID = newID
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{
		cashAccountID: defaultCashAccountID,
		now:           time.Now,
		newID:         xid.New,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) CashAccountID() string {
	return e.cashAccountID
}

func (e *Engine) stamp() time.Time {
	return e.now().UTC()
}
