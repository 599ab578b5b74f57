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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"charity-backend-go/internal/models"
	"charity-backend-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (s *Service) initLedgerSchema(ctx context.Context) error {
	schema := `
	-- Limit movements (audit trail, append only)
	CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		wallet TEXT NOT NULL,
		kind TEXT NOT NULL,
		amount BIGINT NOT NULL,
		limit_before BIGINT NOT NULL,
		limit_after BIGINT NOT NULL,
		reference TEXT NOT NULL UNIQUE,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_entries_wallet ON ledger_entries(wallet, created_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// AdjustLimit applies a signed change to a user's spending limit and records
// it in the ledger. The update is version checked: a concurrent writer makes
// it fail with ErrConcurrentModification instead of losing an update.
func (r *queries) AdjustLimit(ctx context.Context, params store.LimitChangeParams) (*models.LedgerEntry, error) {
	if params.Amount == 0 {
		return nil, fmt.Errorf("limit change amount cannot be zero")
	}
	if params.Reference == "" {
		return nil, fmt.Errorf("limit change reference cannot be empty")
	}

	var count int
	if err := r.get(ctx, &count, queryCountLedgerReference, params.Reference); err != nil {
		return nil, fmt.Errorf("failed to check ledger reference: %w", err)
	}
	if count > 0 {
		zap.L().Warn("Duplicate ledger reference",
			zap.String("wallet", params.Wallet),
			zap.String("reference", params.Reference))
		return nil, fmt.Errorf("%w: %s", store.ErrDuplicateReference, params.Reference)
	}

	var current struct {
		Limit   int64 `db:"spend_limit"`
		Version int64 `db:"version"`
	}
	if err := r.get(ctx, &current, queryGetUserLimit, params.Wallet); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrUserNotFound, params.Wallet)
		}
		return nil, fmt.Errorf("failed to get current limit: %w", err)
	}

	limitAfter := current.Limit + params.Amount
	if limitAfter < 0 {
		return nil, fmt.Errorf("%w: have %d, need %d", store.ErrInsufficientLimit, current.Limit, -params.Amount)
	}

	at := params.At.UTC()
	rowsAffected, err := r.execAffected(ctx, queryUpdateUserLimit, limitAfter, at, params.Wallet, current.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to update limit: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("%w: wallet %s", store.ErrConcurrentModification, params.Wallet)
	}

	entry := &models.LedgerEntry{
		Id:          uuid.New().String(),
		Wallet:      params.Wallet,
		Kind:        params.Kind,
		Amount:      params.Amount,
		LimitBefore: current.Limit,
		LimitAfter:  limitAfter,
		Reference:   params.Reference,
		CreatedAt:   at,
	}
	_, err = r.exec(ctx, queryInsertLedgerEntry,
		entry.Id, entry.Wallet, entry.Kind, entry.Amount, entry.LimitBefore, entry.LimitAfter, entry.Reference, entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	zap.L().Info("Limit adjusted",
		zap.String("wallet", params.Wallet),
		zap.String("kind", params.Kind),
		zap.Int64("amount", params.Amount),
		zap.Int64("limit_before", current.Limit),
		zap.Int64("limit_after", limitAfter),
		zap.String("reference", params.Reference))

	return entry, nil
}

func (r *queries) GetLedgerEntries(ctx context.Context, wallet string, limit int) ([]models.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []models.LedgerEntry
	if err := r.selectAll(ctx, &entries, queryGetLedgerEntries, wallet, limit); err != nil {
		return nil, fmt.Errorf("unable to query ledger entries: %w", err)
	}
	return entries, nil
}
