/**
 * @description
 * Background jobs for the checkout-service. The only job today sweeps
 * payments stuck in a non-terminal status past the challenge window and marks
 * them abandoned, so an attempt whose payer walked away from a pending
 * challenge does not linger forever in the store.
 *
 * @dependencies
 * - context, log/slog, time: Standard Go libraries.
 * - internal/store: Stale payment queries.
 */

package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/will383842/Outil-sos-expat-sub004/internal/store"
)

const staleSweepBatchSize = 100

// Jobs holds the dependencies shared by scheduled tasks.
type Jobs struct {
	repo     store.Repository
	logger   *slog.Logger
	staleAge time.Duration
	jobCtx   context.Context
}

// NewJobs creates the job set. staleAge is how old a non-terminal payment
// must be before it is considered abandoned; it should comfortably exceed the
// challenge timeout.
func NewJobs(repo store.Repository, logger *slog.Logger, staleAge time.Duration) *Jobs {
	if staleAge <= 0 {
		staleAge = 30 * time.Minute
	}
	return &Jobs{repo: repo, logger: logger, staleAge: staleAge, jobCtx: context.Background()}
}

// SweepStalePayments marks stale non-terminal payments as abandoned.
func (j *Jobs) SweepStalePayments() {
	ctx, cancel := context.WithTimeout(j.jobCtx, time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().Add(-j.staleAge)
	stale, err := j.repo.FindStalePayments(ctx, cutoff, staleSweepBatchSize)
	if err != nil {
		j.logger.Error("stale payment query failed", "error", err)
		return
	}
	if len(stale) == 0 {
		return
	}

	swept := 0
	for _, record := range stale {
		if err := j.repo.MarkPaymentAbandoned(ctx, record.ProcessorReference); err != nil {
			j.logger.Error("failed to mark payment abandoned", "processor_reference", record.ProcessorReference, "error", err)
			continue
		}
		swept++
	}
	j.logger.Info("stale payment sweep complete", "candidates", len(stale), "swept", swept)
}
