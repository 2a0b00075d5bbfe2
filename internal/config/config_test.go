package config

import (
	"testing"
	"time"
)

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := Load()
	if err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/billing")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if cfg.DBMaxConns != 20 {
		t.Errorf("expected default DB_MAX_CONNS 20, got %d", cfg.DBMaxConns)
	}
	if !cfg.IsDev() {
		t.Error("expected default ENV to be development")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/billing")
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("BANK_URL", "http://bank.example.com/submit")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.IsDev() {
		t.Error("expected production mode")
	}
	if cfg.BankURL != "http://bank.example.com/submit" {
		t.Errorf("unexpected bank url: %s", cfg.BankURL)
	}
}

func TestBankTimeout(t *testing.T) {
	cfg := &Config{BankTimeoutMS: 2500}
	if cfg.BankTimeout() != 2500*time.Millisecond {
		t.Errorf("expected 2.5s, got %v", cfg.BankTimeout())
	}
	cfg = &Config{}
	if cfg.BankTimeout() != 5*time.Second {
		t.Errorf("expected 5s fallback, got %v", cfg.BankTimeout())
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{DBMaxConns: 5, DBMinConns: 10}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for max conns below min conns")
	}
	cfg = &Config{DBMaxConns: 20, DBMinConns: 5}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
