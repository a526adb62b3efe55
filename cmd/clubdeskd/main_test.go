package main

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"clubdesk/internal/config"
)

func TestRunReturnsStoreErrors(t *testing.T) {
	cfg := config.Default()
	cfg.Database.DSN = ""

	if err := run(context.Background(), cfg, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for missing database dsn")
	}
}
