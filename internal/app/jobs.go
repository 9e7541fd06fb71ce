/**
 * @description
 * Scheduled job implementations for the direct debit service. The batch job
 * runs once per cron tick: it loads the active mandates, filters the ones
 * whose period has elapsed against a single captured timestamp, executes
 * each due mandate through the debit executor, and advances the mandate's
 * last-executed timestamp only when the execution fully succeeded.
 *
 * Key features:
 * - One captured "now" per tick, used for the due filter and for every
 *   movement written during the tick, so the due-set stays consistent.
 * - Mandates sharing a source IBAN are serialized relative to each other;
 *   distinct accounts run on independent goroutines (bounded).
 * - One mandate's failure, including a panic, never aborts the batch.
 * - A mandate that keeps failing with a broken client/user reference is
 *   deactivated after a configurable number of consecutive ticks.
 */

package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vervebank/directdebit-service/internal/config"
	"github.com/vervebank/directdebit-service/internal/domain"
)

// MandateStore holds the mandates. ListActive returns them in listing order;
// Update persists a mutated mandate (last-executed timestamp, failure
// counter, active flag).
type MandateStore interface {
	ListActive(ctx context.Context) ([]domain.Mandate, error)
	Update(ctx context.Context, id string, mandate domain.Mandate) error
}

// RunLock guards a tick against concurrent runs from other instances of this
// service. A nil RunLock means single-instance deployment.
type RunLock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// RunSummary aggregates what one tick did, for logs and the status endpoint.
type RunSummary struct {
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration_ns"`
	Due         int           `json:"due"`
	Executed    int           `json:"executed"`
	Skipped     int           `json:"skipped"`
	Failed      int           `json:"failed"`
	Deactivated int           `json:"deactivated"`
}

// Jobs contains the logic for all scheduled tasks.
type Jobs struct {
	mandates MandateStore
	executor *Executor
	lock     RunLock
	logger   *slog.Logger
	config   config.Config

	mu      sync.Mutex
	lastRun *RunSummary
}

// NewJobs creates a new Jobs runner.
func NewJobs(mandates MandateStore, executor *Executor, lock RunLock, logger *slog.Logger, cfg config.Config) *Jobs {
	return &Jobs{
		mandates: mandates,
		executor: executor,
		lock:     lock,
		logger:   logger,
		config:   cfg,
	}
}

// LastRun returns a copy of the most recent tick's summary, or nil if no
// tick has completed yet.
func (j *Jobs) LastRun() *RunSummary {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.lastRun == nil {
		return nil
	}
	summary := *j.lastRun
	return &summary
}

// RunDirectDebits is the cron entry point for one tick.
func (j *Jobs) RunDirectDebits() {
	ctx := context.Background()

	if j.lock != nil {
		acquired, err := j.lock.Acquire(ctx)
		if err != nil {
			j.logger.Error("failed to acquire direct debit run lock", "error", err)
			return
		}
		if !acquired {
			j.logger.Info("direct debit run lock held elsewhere, skipping tick")
			return
		}
		defer func() {
			if err := j.lock.Release(ctx); err != nil {
				j.logger.Warn("failed to release direct debit run lock", "error", err)
			}
		}()
	}

	// Captured once for the whole batch: the due filter and every movement
	// written this tick see the same instant.
	now := time.Now().UTC()
	started := time.Now()
	j.logger.Info("starting direct debit job")

	mandates, err := j.mandates.ListActive(ctx)
	if err != nil {
		j.logger.Error("failed to list active mandates", "error", err)
		return
	}

	due := make([]domain.Mandate, 0, len(mandates))
	for _, m := range mandates {
		if m.IsDue(now) {
			due = append(due, m)
		}
	}
	j.logger.Info("filtered due mandates", "active", len(mandates), "due", len(due))

	summary := RunSummary{StartedAt: now, Due: len(due)}
	if len(due) > 0 {
		summary = j.executeBatch(ctx, due, now)
	}
	summary.Duration = time.Since(started)

	j.mu.Lock()
	j.lastRun = &summary
	j.mu.Unlock()

	j.logger.Info("direct debit job finished",
		"due", summary.Due,
		"executed", summary.Executed,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"deactivated", summary.Deactivated,
		"duration", summary.Duration)
}

// executeBatch runs the due mandates. Mandates are grouped by source IBAN:
// each group preserves the store's listing order and runs sequentially, so
// two debits on the same account never interleave, while distinct accounts
// run on bounded goroutines.
func (j *Jobs) executeBatch(ctx context.Context, due []domain.Mandate, now time.Time) RunSummary {
	summary := RunSummary{StartedAt: now, Due: len(due)}

	groups := make(map[string][]domain.Mandate)
	order := make([]string, 0, len(due))
	for _, m := range due {
		if _, seen := groups[m.SourceIBAN]; !seen {
			order = append(order, m.SourceIBAN)
		}
		groups[m.SourceIBAN] = append(groups[m.SourceIBAN], m)
	}

	parallelism := j.config.MaxParallelAccounts
	if parallelism < 1 {
		parallelism = 1
	}
	sem := make(chan struct{}, parallelism)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, iban := range order {
		group := groups[iban]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			for _, mandate := range group {
				outcome := j.runOne(ctx, mandate, now)
				mu.Lock()
				switch outcome.kind {
				case OutcomeExecuted:
					summary.Executed++
				case OutcomeSkippedInsufficientBalance:
					summary.Skipped++
				case OutcomeFailed:
					summary.Failed++
					if outcome.deactivated {
						summary.Deactivated++
					}
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	return summary
}

// batchOutcome carries the executor outcome plus batch-level bookkeeping.
type batchOutcome struct {
	kind        OutcomeKind
	deactivated bool
}

// runOne executes a single mandate and applies the mandate-store side
// effects its outcome demands. Panics are contained here so an exploding
// mandate cannot take down the rest of the batch.
func (j *Jobs) runOne(ctx context.Context, mandate domain.Mandate, now time.Time) (result batchOutcome) {
	defer func() {
		if r := recover(); r != nil {
			j.logger.Error("panic while executing mandate",
				"mandate_id", mandate.ID, "panic", r)
			result = batchOutcome{kind: OutcomeFailed}
		}
	}()

	outcome := j.executor.Execute(ctx, mandate, now)

	switch outcome.Kind {
	case OutcomeExecuted:
		mandate.LastExecuted = now
		mandate.ConsecutiveFailures = 0
		if err := j.mandates.Update(ctx, mandate.ID, mandate); err != nil {
			// The money moved but the timestamp did not advance; the mandate
			// will be re-picked next tick. Surfaced at error severity because
			// this is the known duplicate-charge window.
			j.logger.Error("failed to persist last execution timestamp",
				"mandate_id", mandate.ID, "error", err)
		}
		return batchOutcome{kind: OutcomeExecuted}

	case OutcomeSkippedInsufficientBalance:
		j.logger.Warn("insufficient balance for direct debit",
			"mandate_id", mandate.ID,
			"client_id", mandate.ClientID,
			"source_iban", mandate.SourceIBAN)
		return batchOutcome{kind: OutcomeSkippedInsufficientBalance}

	default:
		deactivated := false
		if domain.IsNotFound(outcome.Err) {
			mandate.ConsecutiveFailures++
			if j.config.MaxConsecutiveFailures > 0 && mandate.ConsecutiveFailures >= j.config.MaxConsecutiveFailures {
				mandate.Active = false
				deactivated = true
				j.logger.Warn("deactivating mandate after repeated broken references",
					"mandate_id", mandate.ID,
					"consecutive_failures", mandate.ConsecutiveFailures)
			}
			if err := j.mandates.Update(ctx, mandate.ID, mandate); err != nil {
				j.logger.Error("failed to persist mandate failure state",
					"mandate_id", mandate.ID, "error", err)
			}
			j.logger.Warn("direct debit failed on missing reference",
				"mandate_id", mandate.ID, "error", outcome.Err)
		} else {
			j.logger.Error("error processing direct debit",
				"mandate_id", mandate.ID,
				"source_iban", mandate.SourceIBAN,
				"error", outcome.Err)
		}
		return batchOutcome{kind: OutcomeFailed, deactivated: deactivated}
	}
}
