package config

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DEAL_CURRENCY", "")
	t.Setenv("ORPHAN_ESCROW_GRACE_MINUTES", "")
	t.Setenv("API_PORT", "")

	cfg := Load()
	if cfg.DealCurrency != "NGN" {
		t.Errorf("expected default currency NGN, got %q", cfg.DealCurrency)
	}
	if cfg.OrphanEscrowGrace != 15*time.Minute {
		t.Errorf("expected default grace 15m, got %v", cfg.OrphanEscrowGrace)
	}
	if cfg.APIPort != "3000" {
		t.Errorf("expected default port 3000, got %q", cfg.APIPort)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	admin := uuid.New()
	t.Setenv("DEAL_CURRENCY", " usd ")
	t.Setenv("ADMIN_USER_IDS", admin.String()+", not-a-uuid ,")
	t.Setenv("SWEEP_INTERVAL_SECONDS", "60")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "abc")

	cfg := Load()
	if cfg.DealCurrency != "USD" {
		t.Errorf("expected USD, got %q", cfg.DealCurrency)
	}
	if len(cfg.AdminUserIDs) != 1 || cfg.AdminUserIDs[0] != admin {
		t.Errorf("expected one admin %s, got %v", admin, cfg.AdminUserIDs)
	}
	if !cfg.IsAdmin(admin) {
		t.Error("expected IsAdmin to be true for configured admin")
	}
	if cfg.IsAdmin(uuid.New()) {
		t.Error("expected IsAdmin to be false for random user")
	}
	if cfg.SweepInterval != time.Minute {
		t.Errorf("expected 1m sweep interval, got %v", cfg.SweepInterval)
	}
	if cfg.RateLimitPerMinute != 100 {
		t.Errorf("expected fallback rate limit 100 on bad value, got %d", cfg.RateLimitPerMinute)
	}
}

func TestValidate_Currency(t *testing.T) {
	tests := []struct {
		currency string
		wantErr  bool
	}{
		{"NGN", false},
		{"EUR", false},
		{"XYZ", true},
		{"NAIRA", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.currency, func(t *testing.T) {
			cfg := &Config{DealCurrency: tt.currency, RateLimitPerMinute: 10, SweepBatchSize: 10}
			err := cfg.Validate(zap.NewNop())
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() with currency %q: err = %v, wantErr %v", tt.currency, err, tt.wantErr)
			}
		})
	}
}

func TestValidate_RateLimit(t *testing.T) {
	cfg := &Config{DealCurrency: "NGN", RateLimitPerMinute: 0}
	if err := cfg.Validate(zap.NewNop()); err == nil {
		t.Fatal("expected error for non-positive rate limit")
	}
}
