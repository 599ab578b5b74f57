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
	"io"
	"strings"
	"time"

	"charity-backend-go/internal/models"
	"charity-backend-go/internal/store"
	"charity-backend-go/internal/tonapi"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultPageSize       = 10
	maxPageSize           = 50
	defaultModerationSize = 8
	refundBatchSize       = 100
)

// CreateCharity reserves the requested amount from the author's limit and
// submits the charity for review.
func (s *CharityService) CreateCharity(ctx context.Context, wallet string, req models.CreateCharityRequest, uploads []io.Reader) (*models.Charity, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if s.maxImages > 0 && len(uploads) > s.maxImages {
		return nil, fmt.Errorf("%w: got %d, max %d", ErrTooManyImages, len(uploads), s.maxImages)
	}

	user, err := s.db.GetUserByWallet(ctx, wallet)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, store.ErrInsufficientLimit
		}
		return nil, err
	}
	if user.Limit < req.Amount {
		return nil, fmt.Errorf("%w: have %d, need %d", store.ErrInsufficientLimit, user.Limit, req.Amount)
	}

	images, err := s.storeImages(ctx, uploads)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	charity := &models.Charity{
		Id:             uuid.New().String(),
		AuthorWallet:   wallet,
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		Contact:        strings.TrimSpace(req.Contact),
		Images:         images,
		DonationNeeded: req.Amount,
		Deadline:       req.Deadline.UTC(),
		Status:         models.CharityInReview,
		CreatedAt:      now,
	}

	err = s.db.WithTx(ctx, func(tx store.Repository) error {
		if _, err := tx.AdjustLimit(ctx, store.LimitChangeParams{
			Wallet:    wallet,
			Kind:      models.LedgerReserve,
			Amount:    -req.Amount,
			Reference: reserveReference(charity.Id),
			At:        now,
		}); err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				return store.ErrInsufficientLimit
			}
			return err
		}
		if err := tx.IncrementUserCounters(ctx, wallet, store.UserCounters{InitiativesCreated: 1}, now); err != nil {
			return err
		}
		return tx.InsertCharity(ctx, charity)
	})
	if err != nil {
		zap.L().Warn("Charity creation failed", zap.String("wallet", wallet), zap.Int64("amount", req.Amount), zap.Error(err))
		s.discardImages(ctx, images)
		return nil, err
	}

	zap.L().Info("Charity created",
		zap.String("charity_id", charity.Id),
		zap.String("author", wallet),
		zap.Int64("donation_needed", charity.DonationNeeded),
		zap.Int("images", len(images)))

	return charity, nil
}

// GetCharity returns an accepted charity.
func (s *CharityService) GetCharity(ctx context.Context, id string) (*models.Charity, error) {
	charity, err := s.db.GetCharity(ctx, id)
	if err != nil {
		return nil, err
	}
	if charity.Status != models.CharityAccepted {
		return nil, fmt.Errorf("%w: %s", store.ErrCharityNotFound, id)
	}
	return charity, nil
}

// ListCharities returns accepted charities, newest first.
func (s *CharityService) ListCharities(ctx context.Context, params models.ListParams) ([]models.Charity, error) {
	return s.db.ListCharities(ctx, store.CharityFilter{
		Status: models.CharityAccepted,
		Search: params.Search,
		Limit:  pageSize(params.Limit, defaultPageSize),
		Offset: pageOffset(params.Offset),
	})
}

// ListInReview returns charities still inside their voting window.
func (s *CharityService) ListInReview(ctx context.Context, params models.ListParams) ([]models.Charity, error) {
	since := s.clock().Add(-s.votingWindow)
	return s.db.ListCharities(ctx, store.CharityFilter{
		Status:       models.CharityInReview,
		Search:       params.Search,
		CreatedAfter: &since,
		Limit:        pageSize(params.Limit, defaultPageSize),
		Offset:       pageOffset(params.Offset),
	})
}

// GetInReview returns an in-review charity whose voting window is open.
func (s *CharityService) GetInReview(ctx context.Context, id string) (*models.Charity, error) {
	charity, err := s.db.GetCharity(ctx, id)
	if err != nil {
		return nil, err
	}
	since := s.clock().Add(-s.votingWindow)
	if charity.Status != models.CharityInReview || charity.CreatedAt.Before(since) {
		return nil, fmt.Errorf("%w: %s", store.ErrCharityNotFound, id)
	}
	return charity, nil
}

// ListAwaitingModeration returns in-review charities whose voting window
// has closed, for the admin queue.
func (s *CharityService) ListAwaitingModeration(ctx context.Context, params models.ListParams) ([]models.Charity, error) {
	until := s.clock().Add(-s.votingWindow)
	return s.db.ListCharities(ctx, store.CharityFilter{
		Status:        models.CharityInReview,
		Search:        params.Search,
		CreatedBefore: &until,
		Limit:         pageSize(params.Limit, defaultModerationSize),
		Offset:        pageOffset(params.Offset),
	})
}

// ListByAuthor returns every charity the wallet submitted.
func (s *CharityService) ListByAuthor(ctx context.Context, wallet string, params models.ListParams) ([]models.Charity, error) {
	return s.db.ListCharities(ctx, store.CharityFilter{
		AuthorWallet: wallet,
		Limit:        pageSize(params.Limit, maxPageSize),
		Offset:       pageOffset(params.Offset),
	})
}

// Moderate accepts or rejects an in-review charity.
func (s *CharityService) Moderate(ctx context.Context, id string, req models.ModerateRequest) (*models.Charity, error) {
	now := s.clock()
	params := store.StatusChangeParams{CharityId: id, From: models.CharityInReview, To: req.Status}

	switch req.Status {
	case models.CharityAccepted:
		if strings.TrimSpace(req.Address) == "" {
			return nil, ErrAddressRequired
		}
		raw, err := tonapi.RawForm(req.Address)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
		}
		params.Address = &raw
	case models.CharityRejected:
		params.RejectedAt = &now
	default:
		return nil, ErrInvalidStatus
	}

	var charity *models.Charity
	err := s.db.WithTx(ctx, func(tx store.Repository) error {
		changed, err := tx.ChangeCharityStatus(ctx, params)
		if err != nil {
			return err
		}
		if !changed {
			return ErrAlreadyProcessed
		}
		charity, err = tx.GetCharity(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Charity moderated",
		zap.String("charity_id", id),
		zap.String("status", req.Status))

	return charity, nil
}

// DeleteCharity removes the author's charity unless it was accepted. The
// reserved amount is returned unless it was already refunded.
func (s *CharityService) DeleteCharity(ctx context.Context, id, wallet string) error {
	now := s.clock()
	refunded := int64(0)

	err := s.db.WithTx(ctx, func(tx store.Repository) error {
		charity, err := tx.GetCharity(ctx, id)
		if err != nil {
			return err
		}
		if charity.AuthorWallet != wallet {
			return ErrNotAuthor
		}

		if charity.Status == models.CharityAccepted {
			return fmt.Errorf("%w: %s", store.ErrCharityRetained, id)
		}

		if charity.RefundedAt == nil {
			ok, err := refundCharity(ctx, tx, charity, now)
			if err != nil {
				return err
			}
			if ok {
				refunded = charity.DonationNeeded
			}
		}

		return tx.DeleteCharity(ctx, id)
	})
	if err != nil {
		return err
	}

	zap.L().Info("Charity deleted",
		zap.String("charity_id", id),
		zap.String("author", wallet),
		zap.Int64("refunded", refunded))
	return nil
}

// RefundEligibleRejections returns the reserved amount of every charity
// rejected at least the grace period before now. Each charity is refunded
// in its own transaction and at most once, so the job can run repeatedly.
func (s *CharityService) RefundEligibleRejections(ctx context.Context, now time.Time) (int, error) {
	now = now.UTC()
	cutoff := now.Add(-s.refundGrace)

	candidates, err := s.db.ListRefundableCharities(ctx, cutoff, refundBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list refundable charities: %w", err)
	}
	if len(candidates) == 0 {
		zap.L().Debug("Nothing to refund")
		return 0, nil
	}

	zap.L().Info("Refunding rejected charities", zap.Int("candidates", len(candidates)))

	refunded := 0
	for i := range candidates {
		charity := candidates[i]
		var ok bool
		err := s.db.WithTx(ctx, func(tx store.Repository) error {
			var err error
			ok, err = refundCharity(ctx, tx, &charity, now)
			return err
		})
		if err != nil {
			if ctx.Err() != nil {
				return refunded, ctx.Err()
			}
			zap.L().Error("Failed to refund charity",
				zap.String("charity_id", charity.Id),
				zap.String("author", charity.AuthorWallet),
				zap.Error(err))
			continue
		}
		if ok {
			refunded++
		}
	}

	zap.L().Info("Refund run finished", zap.Int("refunded", refunded), zap.Int("candidates", len(candidates)))
	return refunded, nil
}

// refundCharity stamps refunded_at and credits the author. It reports false
// when another run already refunded the charity.
func refundCharity(ctx context.Context, tx store.Repository, charity *models.Charity, now time.Time) (bool, error) {
	marked, err := tx.MarkCharityRefunded(ctx, charity.Id, now)
	if err != nil {
		return false, err
	}
	if !marked {
		return false, nil
	}

	_, err = tx.AdjustLimit(ctx, store.LimitChangeParams{
		Wallet:    charity.AuthorWallet,
		Kind:      models.LedgerRefund,
		Amount:    charity.DonationNeeded,
		Reference: refundReference(charity.Id),
		At:        now,
	})
	if errors.Is(err, store.ErrDuplicateReference) {
		zap.L().Warn("Refund already in ledger, marking charity refunded", zap.String("charity_id", charity.Id))
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func reserveReference(charityId string) string {
	return "reserve:" + charityId
}

func refundReference(charityId string) string {
	return "refund:" + charityId
}

func pageSize(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}

func pageOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
