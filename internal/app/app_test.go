package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ContributionScorer/internal/config"
	"ContributionScorer/internal/domain"
)

func oracleServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		answer := "@alice"
		if strings.Contains(body.Prompt, "rubric categories") {
			answer = "Planting; 5.00"
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"completion": answer})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testApp(t *testing.T, endpoint string) *Application {
	t.Helper()

	cfg := config.Config{
		Database: config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"},
		Pipeline: config.PipelineConfig{
			CutoffDate:      "20250101",
			BatchSize:       10,
			CheckpointEvery: 5,
			Platform:        "Telegram",
		},
		Transcripts: config.TranscriptConfig{Dir: t.TempDir(), Pattern: "*.txt", Format: "text"},
		Oracle: config.OracleConfig{
			Provider:    "ml",
			Endpoint:    endpoint,
			MaxAttempts: 1,
			Rubric:      []string{"Planting"},
		},
		Reconcile: config.ReconcileConfig{MaxAttempts: 3, BatchSize: 10},
	}

	a, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	if err := a.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate error: %v", err)
	}
	return a
}

func TestRunScoresPendingRows(t *testing.T) {
	t.Parallel()

	a := testApp(t, oracleServer(t).URL)
	ctx := context.Background()

	if _, err := a.store.InsertChatRow(ctx, domain.ChatRow{ChatroomName: "farm", SenderHandle: "@bob", MessageText: "Alice planted 20 trees", StatusDate: "20250301"}); err != nil {
		t.Fatalf("InsertChatRow error: %v", err)
	}

	if err := a.Run(ctx); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	pending, err := a.store.UnresolvedPending(ctx, 10)
	if err != nil {
		t.Fatalf("UnresolvedPending error: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected one unresolved record, got %+v", pending)
	}
	rec := pending[0]
	if rec.ContributorIdentity != "@alice" || rec.Rubric != "Planting" || rec.AmountProvisioned != "5.00" || rec.ReportedBy != "@bob" {
		t.Fatalf("unexpected record: %+v", rec)
	}

	rows, _ := a.store.PendingRows(ctx, 10)
	if len(rows) != 0 {
		t.Fatalf("row should be stamped after the run")
	}

	if err := a.Reconcile(ctx); err != nil {
		t.Fatalf("Reconcile error: %v", err)
	}
}

func TestUnknownOracleProvider(t *testing.T) {
	t.Parallel()

	a := testApp(t, "")
	a.cfg.Oracle.Provider = "carrier-pigeon"
	if err := a.Run(context.Background()); err == nil {
		t.Fatalf("expected provider error")
	}

	a.cfg.Oracle.Provider = "ml"
	if err := a.Run(context.Background()); err == nil {
		t.Fatalf("expected missing endpoint error")
	}
}
