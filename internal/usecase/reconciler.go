package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"ContributionScorer/internal/config"
	"ContributionScorer/internal/domain"
	"ContributionScorer/internal/identity"
	"ContributionScorer/internal/ports"
	"ContributionScorer/pkg/logger"
)

// ReconcileResult counts what one sweep did.
type ReconcileResult struct {
	Scanned  int
	Resolved int
	Retried  int
	GaveUp   int
}

// Reconciler retries identity resolution on pending rows written unresolved.
type Reconciler struct {
	ledger      ports.ContributionLedger
	identities  ports.IdentityReader
	maxAttempts int
	batchSize   int
	logger      *slog.Logger
}

// NewReconciler wires the sweep.
func NewReconciler(cfg config.Config, ledger ports.ContributionLedger, identities ports.IdentityReader, log *slog.Logger) *Reconciler {
	attempts := cfg.Reconcile.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &Reconciler{
		ledger:      ledger,
		identities:  identities,
		maxAttempts: attempts,
		batchSize:   cfg.Reconcile.BatchSize,
		logger:      logger.OrDiscard(log),
	}
}

// Run sweeps one batch. Rows that stay unresolved after maxAttempts sweeps
// are marked RESOLVE FAILED and leave the sweep for good.
func (r *Reconciler) Run(ctx context.Context) (ReconcileResult, error) {
	var result ReconcileResult
	if r.ledger == nil {
		return result, nil
	}

	var directory []domain.Identity
	if r.identities != nil {
		var err error
		directory, err = r.identities.LoadIdentities(ctx)
		if err != nil {
			return result, fmt.Errorf("load identities: %w", err)
		}
	}
	resolver := identity.NewResolver(directory)

	rows, err := r.ledger.UnresolvedPending(ctx, r.batchSize)
	if err != nil {
		return result, fmt.Errorf("load unresolved: %w", err)
	}

	for _, rec := range rows {
		if ctx.Err() != nil {
			break
		}
		result.Scanned++

		if name, ok := resolver.Resolve(rec.ContributorIdentity, ""); ok {
			if err := r.ledger.MarkResolved(ctx, rec.ID, name); err != nil {
				return result, err
			}
			result.Resolved++
			r.logger.Debug("identity resolved", "id", rec.ID, "raw", rec.ContributorIdentity, "name", name)
			continue
		}

		attempts := rec.ResolveAttempts + 1
		status := domain.ReviewPending
		if attempts >= r.maxAttempts {
			status = domain.ReviewResolveFailed
		}
		if err := r.ledger.MarkResolveFailure(ctx, rec.ID, attempts, status); err != nil {
			return result, err
		}
		if status == domain.ReviewResolveFailed {
			result.GaveUp++
			r.logger.Warn("identity resolution gave up", "id", rec.ID, "raw", rec.ContributorIdentity, "attempts", attempts)
		} else {
			result.Retried++
		}
	}

	r.logger.Info("reconcile finished",
		"scanned", result.Scanned,
		"resolved", result.Resolved,
		"retried", result.Retried,
		"gave_up", result.GaveUp,
	)
	return result, nil
}
