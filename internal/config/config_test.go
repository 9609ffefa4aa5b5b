package config

import (
	"testing"
	"time"
)

func TestParseAndMerge(t *testing.T) {
	t.Parallel()

	raw := []byte(`
database:
  driver: pgx
pipeline:
  cutoffDate: "20250301"
  batchSize: 50
  reservedMarkers: ["[X EVENT]"]
oracle:
  maxAttempts: 5
  baseDelay: 2s
`)

	fileCfg, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	cfg := mergeConfig(defaultConfig(), fileCfg)

	if cfg.Database.Driver != "pgx" {
		t.Fatalf("expected driver pgx, got %s", cfg.Database.Driver)
	}
	if cfg.Database.DSN == "" {
		t.Fatalf("expected default dsn to survive merge")
	}
	if cfg.Pipeline.Cutoff() != 20250301 {
		t.Fatalf("unexpected cutoff: %d", cfg.Pipeline.Cutoff())
	}
	if cfg.Pipeline.BatchSize != 50 {
		t.Fatalf("unexpected batch size: %d", cfg.Pipeline.BatchSize)
	}
	if len(cfg.Pipeline.ReservedMarkers) != 1 {
		t.Fatalf("expected markers to be replaced, got %v", cfg.Pipeline.ReservedMarkers)
	}
	if cfg.Pipeline.CheckpointEvery != 25 {
		t.Fatalf("expected default checkpointEvery, got %d", cfg.Pipeline.CheckpointEvery)
	}
	if cfg.Oracle.MaxAttempts != 5 || cfg.Oracle.Delay() != 2*time.Second {
		t.Fatalf("unexpected oracle retry settings: %+v", cfg.Oracle)
	}
	if len(cfg.Oracle.Rubric) == 0 {
		t.Fatalf("expected default rubric")
	}
	if cfg.Oracle.NonContribution != "Not a contribution" {
		t.Fatalf("unexpected non-contribution category: %q", cfg.Oracle.NonContribution)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(databaseDSNEnv, "postgres://u:p@db/ledger")
	t.Setenv(oracleAPIKeyEnv, "sk-test")
	t.Setenv(cutoffDateEnv, "20240615")

	cfg := defaultConfig()
	cfg.applyEnvOverrides()

	if cfg.Database.DSN != "postgres://u:p@db/ledger" {
		t.Fatalf("dsn not overridden: %s", cfg.Database.DSN)
	}
	if cfg.Oracle.APIKey != "sk-test" {
		t.Fatalf("api key not overridden")
	}
	if cfg.Pipeline.Cutoff() != 20240615 {
		t.Fatalf("cutoff not overridden: %d", cfg.Pipeline.Cutoff())
	}
}

func TestBudgetAndLocation(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	if cfg.Pipeline.Budget() != 5*time.Minute {
		t.Fatalf("unexpected budget: %v", cfg.Pipeline.Budget())
	}

	cfg.Scheduler.Timezone = "Not/AZone"
	cfg.bindTimezone()
	if cfg.Scheduler.Location().String() != "UTC" {
		t.Fatalf("expected UTC fallback, got %s", cfg.Scheduler.Location())
	}

	cfg.Pipeline.CutoffDate = "not-a-date"
	if cfg.Pipeline.Cutoff() != 0 {
		t.Fatalf("expected zero cutoff for invalid date")
	}
}
