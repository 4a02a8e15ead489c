package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ukcensus-tools/census-client/internal/config"
)

func TestOpenStore_SQLiteDefault(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load() failed: %v", err)
	}
	cfg.Store.DSN = filepath.Join(t.TempDir(), "census-cache.db")

	s, err := openStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("openStore() failed: %v", err)
	}
	defer s.Close()

	if err := s.EnsureTable(context.Background(), "population-types"); err != nil {
		t.Errorf("store is not usable: %v", err)
	}
}
