package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/clinicore")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if cfg.SlotWorkers != 4 {
		t.Errorf("expected default 4 slot workers, got %d", cfg.SlotWorkers)
	}
	if cfg.StoreTimeout != 5*time.Second {
		t.Errorf("expected default 5s store timeout, got %s", cfg.StoreTimeout)
	}
	if !cfg.IsDev() {
		t.Error("expected development env by default")
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Error("expected error when DATABASE_URL is unset")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/clinicore")
	t.Setenv("SLOT_WORKERS", "8")
	t.Setenv("GENERATION_RETRY_ATTEMPTS", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SlotWorkers != 8 {
		t.Errorf("expected 8 workers, got %d", cfg.SlotWorkers)
	}
	if cfg.GenRetryAttempts != 5 {
		t.Errorf("expected 5 retry attempts, got %d", cfg.GenRetryAttempts)
	}
}

func TestValidateRejectsBadTuning(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/clinicore")
	t.Setenv("SLOT_WORKERS", "0")

	if _, err := Load(); err == nil {
		t.Error("expected error for zero slot workers")
	}
}
