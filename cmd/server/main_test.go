package main

import (
	"testing"

	"ledgerpos/backend/internal/config"
)

func TestValidateConfigRejectsIncompleteValues(t *testing.T) {
	if err := validateConfig(config.Config{}); err == nil {
		t.Fatalf("expected missing cash account to be rejected")
	}
	err := validateConfig(config.Config{CashAccountID: "cash", MinioEndpoint: "minio:9000"})
	if err == nil {
		t.Fatalf("expected minio endpoint without credentials to be rejected")
	}
}

func TestValidateConfigAcceptsDefaults(t *testing.T) {
	err := validateConfig(config.Config{CashAccountID: "cash", WriteMaxRetries: 3})
	if err != nil {
		t.Fatalf("expected default config to pass, got %v", err)
	}
}
