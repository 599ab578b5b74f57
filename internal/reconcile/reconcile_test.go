package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"charity-backend-go/internal/api"
	"charity-backend-go/internal/models"
	"charity-backend-go/internal/tonapi"
)

type fakeJobs struct {
	mu        sync.Mutex
	refunds   int
	burns     int
	refundErr error
}

func (f *fakeJobs) RefundEligibleRejections(ctx context.Context, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refunds++
	return 1, f.refundErr
}

func (f *fakeJobs) ReconcileUnverifiedBurns(ctx context.Context, now time.Time) (*api.BurnReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.burns++
	return &api.BurnReport{Credited: 1}, nil
}

type fakePruner struct {
	calls int
}

func (f *fakePruner) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	f.calls++
	return 2, nil
}

func setupTestReconciler(t *testing.T, jobs Jobs, pruner Pruner) *Reconciler {
	t.Helper()
	cfg := ReconcilerConfig{
		Jobs:           jobs,
		RefundSchedule: "@every 1m",
		BurnSchedule:   "@every 2m",
	}
	if pruner != nil {
		cfg.ReplayCache = pruner
	}
	r, err := NewReconciler(cfg)
	if err != nil {
		t.Fatalf("Failed to create reconciler: %v", err)
	}
	return r
}

func TestRunOnce(t *testing.T) {
	jobs := &fakeJobs{}
	pruner := &fakePruner{}
	r := setupTestReconciler(t, jobs, pruner)

	if err := r.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if jobs.refunds != 1 || jobs.burns != 1 || pruner.calls != 1 {
		t.Errorf("Expected each job once, got refunds=%d burns=%d prunes=%d", jobs.refunds, jobs.burns, pruner.calls)
	}
}

func TestRunOnce_ContinuesAfterFailure(t *testing.T) {
	jobs := &fakeJobs{refundErr: errors.New("database locked")}
	r := setupTestReconciler(t, jobs, nil)

	err := r.RunOnce(context.Background())
	if err == nil {
		t.Fatal("Expected error from refund job")
	}
	if jobs.burns != 1 {
		t.Errorf("Expected burn job to run after refund failure, got %d", jobs.burns)
	}
}

func TestNewReconciler_Validation(t *testing.T) {
	if _, err := NewReconciler(ReconcilerConfig{RefundSchedule: "@every 1m", BurnSchedule: "@every 1m"}); err == nil {
		t.Error("Expected error without jobs")
	}
	if _, err := NewReconciler(ReconcilerConfig{Jobs: &fakeJobs{}, RefundSchedule: "whenever", BurnSchedule: "@every 1m"}); err == nil {
		t.Error("Expected error for invalid schedule")
	}
}

func TestStartStop(t *testing.T) {
	r := setupTestReconciler(t, &fakeJobs{}, &fakePruner{})

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := r.Start(context.Background()); err == nil {
		t.Error("Expected second Start to fail")
	}

	done := make(chan struct{})
	go func() {
		r.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}

	// Stopping twice is a no-op.
	r.Stop()
}

type flakyChain struct {
	failures int
	err      error
	calls    int
}

func (f *flakyChain) LastNftTransfer(ctx context.Context, nft string) (*models.NftTransfer, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return &models.NftTransfer{Nft: nft}, nil
}

func (f *flakyChain) JettonBalance(ctx context.Context, owner string) (*models.JettonBalance, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return &models.JettonBalance{}, nil
}

func (f *flakyChain) Transaction(ctx context.Context, hash string) (*models.ChainTransaction, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return &models.ChainTransaction{Hash: hash}, nil
}

func newTestRetryingChain(inner api.ChainClient, retries uint64) *RetryingChain {
	c := NewRetryingChain(inner, retries)
	c.initial = time.Millisecond
	return c
}

func TestRetryingChain(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		err       error
		retries   uint64
		wantCalls int
		wantErr   error
	}{
		{"succeeds after timeouts", 2, tonapi.ErrTimeout, 3, 3, nil},
		{"upstream errors exhaust retries", 10, fmt.Errorf("%w: 502", tonapi.ErrUpstream), 2, 3, tonapi.ErrUpstream},
		{"not found is permanent", 10, tonapi.ErrNotFound, 3, 1, tonapi.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := &flakyChain{failures: tt.failures, err: tt.err}
			chain := newTestRetryingChain(inner, tt.retries)

			_, err := chain.Transaction(context.Background(), "abc")
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Expected success, got %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected %v, got %v", tt.wantErr, err)
			}
			if inner.calls != tt.wantCalls {
				t.Errorf("Expected %d calls, got %d", tt.wantCalls, inner.calls)
			}
		})
	}
}

func TestRetryingChain_AllCalls(t *testing.T) {
	inner := &flakyChain{failures: 1, err: tonapi.ErrTimeout}
	chain := newTestRetryingChain(inner, 3)
	ctx := context.Background()

	if _, err := chain.LastNftTransfer(ctx, "nft"); err != nil {
		t.Errorf("LastNftTransfer failed: %v", err)
	}
	if _, err := chain.JettonBalance(ctx, "owner"); err != nil {
		t.Errorf("JettonBalance failed: %v", err)
	}
}
