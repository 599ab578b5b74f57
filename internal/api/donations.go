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
	"errors"
	"fmt"

	"charity-backend-go/internal/models"
	"charity-backend-go/internal/store"
	"charity-backend-go/internal/tonapi"

	"go.uber.org/zap"
)

// RecordDonation processes a transaction reported by the chain webhook.
// Transfers to an accepted charity's payout address are recorded once per
// transaction hash; anything else is ignored. The boolean reports whether
// a new donation was stored.
func (s *CharityService) RecordDonation(ctx context.Context, txHash string) (*models.Donation, bool, error) {
	if txHash == "" {
		return nil, false, fmt.Errorf("transaction hash is required")
	}
	if s.chain == nil {
		return nil, false, ErrChainUnavailable
	}

	zap.L().Info("Processing donation notification", zap.String("tx_hash", txHash))

	chainTx, err := s.chain.Transaction(ctx, txHash)
	if err != nil {
		return nil, false, fmt.Errorf("failed to fetch transaction: %w", err)
	}
	if !chainTx.Success || chainTx.Value <= 0 || chainTx.Source == "" {
		zap.L().Info("Ignoring transaction without incoming value",
			zap.String("tx_hash", txHash),
			zap.Bool("success", chainTx.Success),
			zap.Int64("value", chainTx.Value))
		return nil, false, nil
	}

	destination := chainTx.Destination
	if destination == "" {
		destination = chainTx.Account
	}
	destination, err = tonapi.RawForm(destination)
	if err != nil {
		return nil, false, fmt.Errorf("%w: destination %v", ErrInvalidAddress, err)
	}
	sender, err := tonapi.RawForm(chainTx.Source)
	if err != nil {
		return nil, false, fmt.Errorf("%w: source %v", ErrInvalidAddress, err)
	}

	charity, err := s.db.FindAcceptedCharityByAddress(ctx, destination)
	if errors.Is(err, store.ErrCharityNotFound) {
		zap.L().Warn("Donation to unrecognized address",
			zap.String("tx_hash", txHash),
			zap.String("destination", destination))
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	now := s.clock()
	donation := &models.Donation{
		TxHash:       chainTx.Hash,
		CharityId:    charity.Id,
		SenderWallet: sender,
		Amount:       chainTx.Value,
		CreatedAt:    now,
	}

	recorded := false
	err = s.db.WithTx(ctx, func(tx store.Repository) error {
		donatedBefore, err := tx.HasDonated(ctx, charity.Id, sender)
		if err != nil {
			return err
		}

		inserted, err := tx.InsertDonation(ctx, *donation)
		if err != nil {
			return err
		}
		if !inserted {
			return nil
		}

		if _, _, err := tx.EnsureUser(ctx, sender, now); err != nil {
			return err
		}
		counters := store.UserCounters{TotalDonated: donation.Amount}
		if !donatedBefore {
			counters.InitiativesSupported = 1
		}
		if err := tx.IncrementUserCounters(ctx, sender, counters, now); err != nil {
			return err
		}
		if err := tx.AddCharityDonation(ctx, charity.Id, donation.Amount); err != nil {
			return err
		}
		recorded = true
		return nil
	})
	if err != nil {
		zap.L().Error("Donation processing failed", zap.String("tx_hash", txHash), zap.Error(err))
		return nil, false, err
	}

	if !recorded {
		zap.L().Info("Duplicate donation ignored", zap.String("tx_hash", txHash))
		return donation, false, nil
	}

	zap.L().Info("Donation recorded",
		zap.String("tx_hash", donation.TxHash),
		zap.String("charity_id", charity.Id),
		zap.String("sender", sender),
		zap.Int64("amount", donation.Amount))
	return donation, true, nil
}
