package app

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"ledgerpos/backend/internal/config"
	"ledgerpos/backend/internal/domain"
)

func TestOpenInMemoryRuntime(t *testing.T) {
	rt, err := Open(context.Background(), config.Config{
		CashAccountID:     "cash",
		SummaryTTLSeconds: 20,
		WriteMaxRetries:   1,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	defer rt.Close()

	summary := rt.Service.Summary(context.Background())
	if summary.CashOnHand != 1000000 {
		t.Fatalf("expected seeded cash on hand 1000000, got %v", summary.CashOnHand)
	}

	_, err = rt.Service.RecordExpense(context.Background(), domain.Transaction{Amount: 25000, AccountID: "cash"})
	if err != nil {
		t.Fatalf("record expense: %v", err)
	}
	if got := rt.Service.Summary(context.Background()).CashOnHand; got != 975000 {
		t.Fatalf("expected cash on hand 975000, got %v", got)
	}
}
