package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE", "")
	t.Setenv("LEDGER_BACKEND", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage != "memory" || cfg.LedgerBackend != "memory" {
		t.Fatalf("storage = %q ledger = %q", cfg.Storage, cfg.LedgerBackend)
	}
	if cfg.SweepInterval != 2*time.Minute || cfg.SweepGrace != 5*time.Minute || cfg.ApprovalSLA != 24*time.Hour {
		t.Fatalf("sweeper defaults = %v %v %v", cfg.SweepInterval, cfg.SweepGrace, cfg.ApprovalSLA)
	}
	if cfg.PlatformFeeRate != "0.15" {
		t.Fatalf("platform fee rate = %q", cfg.PlatformFeeRate)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"mongo without uri", map[string]string{"STORAGE": "mongo", "MONGO_URI": ""}},
		{"mongo ledger on memory storage", map[string]string{"STORAGE": "memory", "LEDGER_BACKEND": "mongo"}},
		{"bad duration", map[string]string{"SWEEP_GRACE": "soon"}},
		{"bad integer", map[string]string{"RATE_LIMIT_BURST": "many"}},
		{"http payments without url", map[string]string{"PAYMENTS_MODE": "http", "PAYMENTS_URL": ""}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadParsesLists(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("RETRY_BACKOFF", "1s, 2s")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.KafkaBrokers) != 2 || len(cfg.RetryBackoff) != 2 || cfg.RetryBackoff[1] != 2*time.Second {
		t.Fatalf("brokers = %v backoff = %v", cfg.KafkaBrokers, cfg.RetryBackoff)
	}
}
