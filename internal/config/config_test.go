package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("CASH_ACCOUNT_ID", "")
	t.Setenv("SUMMARY_TTL_SECONDS", "")

	cfg := Load()
	if cfg.Address() != ":8080" {
		t.Fatalf("expected default address :8080, got %q", cfg.Address())
	}
	if cfg.CashAccountID != "cash" {
		t.Fatalf("expected default cash account, got %q", cfg.CashAccountID)
	}
	if cfg.SummaryTTL() != 20*time.Second {
		t.Fatalf("expected 20s summary ttl, got %s", cfg.SummaryTTL())
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("WRITE_MAX_RETRIES", "5")
	t.Setenv("WRITE_RETRY_BACKOFF_MS", "10")
	t.Setenv("LEDGER_COMPENSATE_ON_FAILURE", "true")
	t.Setenv("SUMMARY_TTL_SECONDS", "-4")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected port 9090, got %q", cfg.Port)
	}
	if cfg.WriteMaxRetries != 5 || cfg.RetryBackoff() != 10*time.Millisecond {
		t.Fatalf("unexpected retry settings: %d / %s", cfg.WriteMaxRetries, cfg.RetryBackoff())
	}
	if !cfg.CompensateOnFailure {
		t.Fatalf("expected compensation enabled")
	}
	if cfg.SummaryTTLSeconds != 20 {
		t.Fatalf("expected invalid ttl to fall back to 20, got %d", cfg.SummaryTTLSeconds)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected lower-cased log level, got %q", cfg.LogLevel)
	}
}
