/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"charity-backend-go/internal/api"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const replayPruneSchedule = "@every 15m"

// Jobs are the reconciliation passes run on a schedule.
type Jobs interface {
	RefundEligibleRejections(ctx context.Context, now time.Time) (int, error)
	ReconcileUnverifiedBurns(ctx context.Context, now time.Time) (*api.BurnReport, error)
}

// Pruner drops expired entries from a cache.
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}

// ReconcilerConfig contains configuration for Reconciler
type ReconcilerConfig struct {
	Jobs           Jobs
	ReplayCache    Pruner
	RefundSchedule string
	BurnSchedule   string
}

// Reconciler runs refund and burn reconciliation on cron schedules.
type Reconciler struct {
	jobs           Jobs
	replayCache    Pruner
	refundSchedule string
	burnSchedule   string
	now            func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

func NewReconciler(cfg ReconcilerConfig) (*Reconciler, error) {
	if cfg.Jobs == nil {
		return nil, fmt.Errorf("reconciliation jobs are required")
	}
	for _, spec := range []string{cfg.RefundSchedule, cfg.BurnSchedule} {
		if _, err := cron.ParseStandard(spec); err != nil {
			return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
		}
	}

	return &Reconciler{
		jobs:           cfg.Jobs,
		replayCache:    cfg.ReplayCache,
		refundSchedule: cfg.RefundSchedule,
		burnSchedule:   cfg.BurnSchedule,
		now:            time.Now,
	}, nil
}

// Start registers the jobs and begins running them in the background.
func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cron != nil {
		return fmt.Errorf("reconciler already started")
	}

	logger := zapCronLogger{}
	c := cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)), cron.WithLogger(logger))

	if _, err := c.AddFunc(r.refundSchedule, func() { r.runRefunds(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule refunds: %w", err)
	}
	if _, err := c.AddFunc(r.burnSchedule, func() { r.runBurns(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule burn reconciliation: %w", err)
	}
	if r.replayCache != nil {
		if _, err := c.AddFunc(replayPruneSchedule, func() { r.pruneReplayCache(ctx) }); err != nil {
			return fmt.Errorf("failed to schedule replay cache pruning: %w", err)
		}
	}

	c.Start()
	r.cron = c

	zap.L().Info("Reconciler started",
		zap.String("refund_schedule", r.refundSchedule),
		zap.String("burn_schedule", r.burnSchedule))
	return nil
}

// Stop waits for running jobs to finish.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.mu.Unlock()

	if c == nil {
		return
	}
	zap.L().Info("Stopping reconciler")
	<-c.Stop().Done()
	zap.L().Info("Reconciler stopped")
}

// RunOnce runs every job a single time, in order, and returns the joined errors.
func (r *Reconciler) RunOnce(ctx context.Context) error {
	var errs []error
	if err := r.runRefunds(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := r.runBurns(ctx); err != nil {
		errs = append(errs, err)
	}
	if r.replayCache != nil {
		if err := r.pruneReplayCache(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Reconciler) runRefunds(ctx context.Context) error {
	start := r.now()
	refunded, err := r.jobs.RefundEligibleRejections(ctx, start)
	if err != nil {
		zap.L().Error("Refund job failed", zap.Error(err))
		return fmt.Errorf("refund job failed: %w", err)
	}
	zap.L().Info("Refund job finished",
		zap.Int("refunded", refunded),
		zap.Duration("elapsed", r.now().Sub(start)))
	return nil
}

func (r *Reconciler) runBurns(ctx context.Context) error {
	start := r.now()
	report, err := r.jobs.ReconcileUnverifiedBurns(ctx, start)
	if err != nil {
		zap.L().Error("Burn reconciliation failed", zap.Error(err))
		return fmt.Errorf("burn reconciliation failed: %w", err)
	}
	zap.L().Info("Burn reconciliation finished",
		zap.Int("credited", report.Credited),
		zap.Int("released", report.Released),
		zap.Int("pending", report.Pending),
		zap.Int("failed", report.Failed),
		zap.Duration("elapsed", r.now().Sub(start)))
	return nil
}

func (r *Reconciler) pruneReplayCache(ctx context.Context) error {
	pruned, err := r.replayCache.Prune(ctx, r.now())
	if err != nil {
		zap.L().Error("Replay cache pruning failed", zap.Error(err))
		return fmt.Errorf("replay cache pruning failed: %w", err)
	}
	if pruned > 0 {
		zap.L().Info("Replay cache pruned", zap.Int("payloads", pruned))
	}
	return nil
}

type zapCronLogger struct{}

func (zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	zap.S().Debugw("Cron: "+msg, keysAndValues...)
}

func (zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	zap.S().Errorw("Cron: "+msg, append(keysAndValues, "error", err)...)
}
