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
	"strings"
	"time"

	"charity-backend-go/internal/models"
	"charity-backend-go/internal/store"

	"go.uber.org/zap"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

func (r *queries) InsertCharity(ctx context.Context, c *models.Charity) error {
	_, err := r.exec(ctx, queryInsertCharity,
		c.Id, c.AuthorWallet, c.Title, c.Description, c.Contact, c.Images, c.DonationNeeded, c.Donated,
		c.Deadline.UTC(), c.Status, c.VotesYes, c.VotesNo, c.Address, c.RejectedAt, c.RefundedAt, c.CreatedAt.UTC())
	if err != nil {
		zap.L().Error("Failed to insert charity", zap.String("id", c.Id), zap.Error(err))
		return fmt.Errorf("unable to insert charity: %w", err)
	}
	return nil
}

func (r *queries) GetCharity(ctx context.Context, id string) (*models.Charity, error) {
	var charity models.Charity
	if err := r.get(ctx, &charity, queryGetCharity, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrCharityNotFound, id)
		}
		return nil, fmt.Errorf("unable to query charity: %w", err)
	}
	return &charity, nil
}

// ListCharities returns charities matching filter, newest first.
func (r *queries) ListCharities(ctx context.Context, filter store.CharityFilter) ([]models.Charity, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.AuthorWallet != "" {
		conditions = append(conditions, "author_wallet = ?")
		args = append(args, filter.AuthorWallet)
	}
	if filter.Search != "" {
		conditions = append(conditions, `LOWER(title) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(filter.Search))+"%")
	}
	if filter.CreatedAfter != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, filter.CreatedAfter.UTC())
	}
	if filter.CreatedBefore != nil {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, filter.CreatedBefore.UTC())
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := "SELECT " + charityColumns + " FROM charities"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	charities := []models.Charity{}
	if err := r.selectAll(ctx, &charities, query, args...); err != nil {
		zap.L().Error("Failed to list charities", zap.Error(err))
		return nil, fmt.Errorf("unable to list charities: %w", err)
	}
	return charities, nil
}

// ChangeCharityStatus performs a compare-and-set on the status column. It
// returns false when the charity exists but is no longer in params.From.
func (r *queries) ChangeCharityStatus(ctx context.Context, params store.StatusChangeParams) (bool, error) {
	var rejectedAt interface{}
	if params.RejectedAt != nil {
		rejectedAt = params.RejectedAt.UTC()
	}
	var address interface{}
	if params.Address != nil {
		address = *params.Address
	}

	rowsAffected, err := r.execAffected(ctx, queryChangeCharityStatus,
		params.To, address, rejectedAt, params.CharityId, params.From)
	if err != nil {
		return false, fmt.Errorf("unable to change charity status: %w", err)
	}
	if rowsAffected == 0 {
		if _, err := r.GetCharity(ctx, params.CharityId); err != nil {
			return false, err
		}
		return false, nil
	}

	zap.L().Info("Charity status changed",
		zap.String("id", params.CharityId),
		zap.String("from", params.From),
		zap.String("to", params.To))
	return true, nil
}

func (r *queries) AdjustVoteTally(ctx context.Context, charityId string, yesDelta, noDelta int64) error {
	rowsAffected, err := r.execAffected(ctx, queryAdjustVoteTally, yesDelta, noDelta, charityId)
	if err != nil {
		return fmt.Errorf("unable to adjust vote tally: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", store.ErrCharityNotFound, charityId)
	}
	return nil
}

// MarkCharityRefunded stamps refunded_at once. A false result means another
// caller already refunded the charity.
func (r *queries) MarkCharityRefunded(ctx context.Context, charityId string, at time.Time) (bool, error) {
	rowsAffected, err := r.execAffected(ctx, queryMarkCharityRefunded, at.UTC(), charityId)
	if err != nil {
		return false, fmt.Errorf("unable to mark charity refunded: %w", err)
	}
	return rowsAffected > 0, nil
}

// DeleteCharity removes a charity that has not been accepted. Accepted
// charities are kept and yield ErrCharityRetained.
func (r *queries) DeleteCharity(ctx context.Context, charityId string) error {
	rowsAffected, err := r.execAffected(ctx, queryDeleteCharity, charityId, models.CharityAccepted)
	if err != nil {
		return fmt.Errorf("unable to delete charity: %w", err)
	}
	if rowsAffected == 0 {
		if _, err := r.GetCharity(ctx, charityId); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", store.ErrCharityRetained, charityId)
	}
	if _, err := r.exec(ctx, queryDeleteCharityVotes, charityId); err != nil {
		return fmt.Errorf("unable to delete charity votes: %w", err)
	}
	return nil
}

func (r *queries) ListRefundableCharities(ctx context.Context, rejectedBefore time.Time, limit int) ([]models.Charity, error) {
	if limit <= 0 {
		limit = maxListLimit
	}
	charities := []models.Charity{}
	err := r.selectAll(ctx, &charities, queryListRefundableCharities, models.CharityRejected, rejectedBefore.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("unable to list refundable charities: %w", err)
	}
	return charities, nil
}

func (r *queries) FindAcceptedCharityByAddress(ctx context.Context, address string) (*models.Charity, error) {
	var charity models.Charity
	if err := r.get(ctx, &charity, queryFindAcceptedCharityByAddress, models.CharityAccepted, address); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: no accepted charity for address %s", store.ErrCharityNotFound, address)
		}
		return nil, fmt.Errorf("unable to find charity by address: %w", err)
	}
	return &charity, nil
}

func (r *queries) AddCharityDonation(ctx context.Context, charityId string, amount int64) error {
	rowsAffected, err := r.execAffected(ctx, queryAddCharityDonation, amount, charityId)
	if err != nil {
		return fmt.Errorf("unable to add charity donation: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", store.ErrCharityNotFound, charityId)
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
