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
	"regexp"
	"strconv"
	"time"

	"charity-backend-go/internal/models"
	"charity-backend-go/internal/store"
	"charity-backend-go/internal/tonapi"

	"go.uber.org/zap"
)

const burnBatchSize = 100

var nftContentPattern = regexp.MustCompile(`^(\d+)\.json$`)

type burnOutcome int

const (
	burnConfirmed burnOutcome = iota
	burnNotVisible
	burnMismatch
)

// BurnReport summarises one burn reconciliation run.
type BurnReport struct {
	Credited int
	Released int
	Pending  int
	Failed   int
}

// CheckBurn credits the points of an NFT the wallet sent to the burn
// address. When the chain does not show the burn yet the claim is recorded
// for reconciliation and ErrBurnPending is returned.
func (s *CharityService) CheckBurn(ctx context.Context, wallet, nftAddress string) (*models.BurnResult, error) {
	if _, err := s.db.GetUserByWallet(ctx, wallet); err != nil {
		return nil, err
	}

	address, err := tonapi.BounceableForm(nftAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	item, err := s.db.GetNftItem(ctx, address)
	if err != nil {
		return nil, err
	}
	if item.IsChecked {
		return nil, ErrAlreadyChecked
	}

	points, err := nftPoints(item.Content)
	if err != nil {
		return nil, err
	}

	outcome, err := s.verifyBurn(ctx, address, wallet)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	switch outcome {
	case burnNotVisible:
		if err := s.db.ClaimNftItem(ctx, address, wallet, now); err != nil {
			return nil, err
		}
		return nil, ErrBurnPending
	case burnMismatch:
		return nil, ErrBurnMismatch
	}

	if err := s.creditBurn(ctx, address, wallet, points, now); err != nil {
		return nil, err
	}
	return &models.BurnResult{NftAddress: address, Points: points}, nil
}

// ReconcileUnverifiedBurns re-checks claims older than the settle delay.
// Confirmed burns are credited; claims that still fail after the claim TTL
// are released. Items are processed independently.
func (s *CharityService) ReconcileUnverifiedBurns(ctx context.Context, now time.Time) (*BurnReport, error) {
	now = now.UTC()
	claims, err := s.db.ListPendingBurnClaims(ctx, now.Add(-s.burnSettleDelay), burnBatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending burn claims: %w", err)
	}

	report := &BurnReport{}
	for _, item := range claims {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		if item.ClaimedBy == nil {
			continue
		}
		wallet := *item.ClaimedBy

		credited, err := s.settleClaim(ctx, item, wallet, now)
		if err != nil {
			// The claim stays for the next run even past its TTL.
			zap.L().Error("Failed to settle burn claim",
				zap.String("nft", item.Address),
				zap.String("wallet", wallet),
				zap.Error(err))
			report.Failed++
			continue
		}
		if credited {
			report.Credited++
			continue
		}

		if item.ClaimedAt != nil && !item.ClaimedAt.After(now.Add(-s.burnClaimTTL)) {
			if err := s.db.ReleaseNftClaim(ctx, item.Address); err != nil {
				zap.L().Error("Failed to release burn claim", zap.String("nft", item.Address), zap.Error(err))
				continue
			}
			zap.L().Info("Burn claim released", zap.String("nft", item.Address), zap.String("wallet", wallet))
			report.Released++
			continue
		}
		report.Pending++
	}

	if len(claims) > 0 {
		zap.L().Info("Burn reconciliation finished",
			zap.Int("claims", len(claims)),
			zap.Int("credited", report.Credited),
			zap.Int("released", report.Released),
			zap.Int("pending", report.Pending),
			zap.Int("failed", report.Failed))
	}
	return report, nil
}

func (s *CharityService) settleClaim(ctx context.Context, item models.NftItem, wallet string, now time.Time) (bool, error) {
	points, err := nftPoints(item.Content)
	if err != nil {
		return false, err
	}

	outcome, err := s.verifyBurn(ctx, item.Address, wallet)
	if err != nil {
		return false, err
	}
	if outcome != burnConfirmed {
		return false, nil
	}

	if err := s.creditBurn(ctx, item.Address, wallet, points, now); err != nil {
		if errors.Is(err, ErrAlreadyChecked) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// verifyBurn inspects the latest transfer of the NFT.
func (s *CharityService) verifyBurn(ctx context.Context, address, wallet string) (burnOutcome, error) {
	if s.chain == nil {
		return burnMismatch, ErrChainUnavailable
	}

	transfer, err := s.chain.LastNftTransfer(ctx, address)
	if errors.Is(err, tonapi.ErrNotFound) {
		return burnNotVisible, nil
	}
	if err != nil {
		return burnMismatch, fmt.Errorf("failed to fetch nft history: %w", err)
	}

	toBurn := tonapi.SameAddress(transfer.Recipient, tonapi.BurnAddress)
	fromWallet := tonapi.SameAddress(transfer.Sender, wallet)

	switch {
	case toBurn && fromWallet:
		return burnConfirmed, nil
	case tonapi.SameAddress(transfer.Recipient, wallet):
		return burnNotVisible, nil
	default:
		zap.L().Info("Nft transfer does not match burn",
			zap.String("nft", address),
			zap.String("wallet", wallet),
			zap.String("sender", transfer.Sender),
			zap.String("recipient", transfer.Recipient))
		return burnMismatch, nil
	}
}

func (s *CharityService) creditBurn(ctx context.Context, address, wallet string, points int64, now time.Time) error {
	err := s.db.WithTx(ctx, func(tx store.Repository) error {
		marked, err := tx.MarkNftChecked(ctx, address, wallet, now)
		if err != nil {
			return err
		}
		if !marked {
			return ErrAlreadyChecked
		}
		return tx.IncrementUserCounters(ctx, wallet, store.UserCounters{Points: points}, now)
	})
	if err != nil {
		return err
	}

	zap.L().Info("Burn credited",
		zap.String("nft", address),
		zap.String("wallet", wallet),
		zap.Int64("points", points))
	return nil
}

func nftPoints(content string) (int64, error) {
	match := nftContentPattern.FindStringSubmatch(content)
	if match == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNftContent, content)
	}
	points, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil || points <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNftContent, content)
	}
	return points, nil
}
