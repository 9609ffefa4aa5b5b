package usecase

import (
	"context"
	"testing"

	"ContributionScorer/internal/domain"
)

func TestReconcilerResolvesAndGivesUp(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	ctx := context.Background()
	for _, name := range []string{"@dana", "ghost"} {
		_, _ = store.AppendContribution(ctx, domain.ContributionRecord{
			ContributorIdentity: name,
			ContributionText:    "planted trees",
			ReviewStatus:        domain.ReviewPending,
		})
	}
	_, _ = store.AppendContribution(ctx, domain.ContributionRecord{
		ContributorIdentity: "Erin",
		IdentityResolved:    true,
		ReviewStatus:        domain.ReviewPending,
	})
	store.identities = []domain.Identity{
		{Name: "Dana Ortiz", Aliases: []domain.Alias{{Handle: "dana", Platform: "WhatsApp"}}},
	}

	r := NewReconciler(testConfig(), store, store, nil)

	res, err := r.Run(ctx)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.Scanned != 2 || res.Resolved != 1 || res.Retried != 1 || res.GaveUp != 0 {
		t.Fatalf("unexpected first sweep: %+v", res)
	}
	if store.records[0].ContributorIdentity != "Dana Ortiz" || !store.records[0].IdentityResolved {
		t.Fatalf("resolved row not rewritten: %+v", store.records[0])
	}
	if store.records[1].ResolveAttempts != 1 || store.records[1].ReviewStatus != domain.ReviewPending {
		t.Fatalf("unexpected retry bookkeeping: %+v", store.records[1])
	}

	res, _ = r.Run(ctx)
	if res.GaveUp != 1 || store.records[1].ReviewStatus != domain.ReviewResolveFailed {
		t.Fatalf("expected RESOLVE FAILED after max attempts: %+v %+v", res, store.records[1])
	}

	res, _ = r.Run(ctx)
	if res.Scanned != 0 {
		t.Fatalf("sweep should be idempotent once settled: %+v", res)
	}
}
