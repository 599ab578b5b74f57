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

package api

import (
	"context"
	"fmt"

	"charity-backend-go/internal/models"
	"charity-backend-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (s *CharityService) GetUser(ctx context.Context, wallet string) (*models.User, error) {
	return s.db.GetUserByWallet(ctx, wallet)
}

// Inventory returns the wallet's points, GRC balance and burned NFTs.
func (s *CharityService) Inventory(ctx context.Context, wallet string) (*models.Inventory, error) {
	user, err := s.db.GetUserByWallet(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if s.chain == nil {
		return nil, ErrChainUnavailable
	}

	balance, err := s.chain.JettonBalance(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("failed to get jetton balance: %w", err)
	}

	burned, err := s.db.ListBurnedNfts(ctx, wallet)
	if err != nil {
		return nil, err
	}

	return &models.Inventory{
		Points:     user.Points,
		GrcBalance: balance.Amount(),
		Burned:     burned,
	}, nil
}

func (s *CharityService) UserCharities(ctx context.Context, wallet string, params models.ListParams) ([]models.Charity, error) {
	return s.ListByAuthor(ctx, wallet, params)
}

func (s *CharityService) UserDonations(ctx context.Context, wallet string, params models.ListParams) ([]models.Donation, error) {
	return s.db.ListDonationsBySender(ctx, wallet, pageSize(params.Limit, defaultPageSize), pageOffset(params.Offset))
}

// GrantLimit credits a wallet's spending limit, creating the user when
// needed. An empty reference gets a generated one.
func (s *CharityService) GrantLimit(ctx context.Context, wallet string, amount int64, reference string) (*models.LedgerEntry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if reference == "" {
		reference = "grant:" + uuid.New().String()
	}

	now := s.clock()
	var entry *models.LedgerEntry
	err := s.db.WithTx(ctx, func(tx store.Repository) error {
		if _, _, err := tx.EnsureUser(ctx, wallet, now); err != nil {
			return err
		}
		var err error
		entry, err = tx.AdjustLimit(ctx, store.LimitChangeParams{
			Wallet:    wallet,
			Kind:      models.LedgerGrant,
			Amount:    amount,
			Reference: reference,
			At:        now,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Limit granted",
		zap.String("wallet", wallet),
		zap.Int64("amount", amount),
		zap.Int64("limit", entry.LimitAfter),
		zap.String("reference", reference))
	return entry, nil
}
