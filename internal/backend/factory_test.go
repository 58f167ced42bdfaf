package backend

import (
	"context"
	"path/filepath"
	"testing"

	"walletsync/internal/config"
	"walletsync/internal/core"
	"walletsync/internal/log"
)

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db", DataDirectory: "seed"}
	bc, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if bc.Type != SQLiteBackend || bc.SQLiteDBPath != "x.db" || bc.DataDirectory != "seed" {
		t.Errorf("unexpected config %+v", bc)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("expected error for unknown backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"postgres without url", Config{Type: PostgresBackend}, true},
		{"appwrite without credentials", Config{Type: AppwriteBackend, AppwriteEndpoint: "http://x", AppwriteProject: "p", AppwriteDatabaseID: "d"}, true},
		{"appwrite with session", Config{Type: AppwriteBackend, AppwriteEndpoint: "http://x", AppwriteProject: "p", AppwriteDatabaseID: "d", AppwriteSession: "s"}, false},
		{"unknown", Config{Type: "sheets"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend_MemoryAndSQLite(t *testing.T) {
	f := NewFactory(log.Discard())
	ctx := context.Background()

	mem, err := f.CreateBackend(ctx, Config{Type: MemoryBackend, DataDirectory: t.TempDir()})
	if err != nil {
		t.Fatalf("memory backend: %v", err)
	}
	if err := mem.Close(); err != nil {
		t.Errorf("memory Close() = %v", err)
	}
	cats, err := mem.Store.ListCategories(ctx, core.Expense)
	if err != nil || len(cats) == 0 {
		t.Errorf("expected default expense categories, got %v, %v", cats, err)
	}

	sq, err := f.CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "w.db")})
	if err != nil {
		t.Fatalf("sqlite backend: %v", err)
	}
	defer sq.Close()
	if _, err := sq.Store.ListCategories(ctx, ""); err != nil {
		t.Errorf("sqlite ListCategories() = %v", err)
	}
}

func TestGetBackendTypeStrings(t *testing.T) {
	got := GetBackendTypeStrings()
	if len(got) != 4 || got[0] != "memory" {
		t.Errorf("GetBackendTypeStrings() = %v", got)
	}
}
