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
	"time"

	"charity-backend-go/internal/models"
	"charity-backend-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (r *queries) GetUserByWallet(ctx context.Context, wallet string) (*models.User, error) {
	zap.L().Debug("Querying user by wallet", zap.String("wallet", wallet))

	var user models.User
	if err := r.get(ctx, &user, queryGetUserByWallet, wallet); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrUserNotFound, wallet)
		}
		zap.L().Error("Failed to query user by wallet", zap.String("wallet", wallet), zap.Error(err))
		return nil, fmt.Errorf("unable to query user by wallet: %w", err)
	}
	return &user, nil
}

// EnsureUser returns the user for wallet, creating it with a zero limit on
// first sight. The boolean reports whether a row was created.
func (r *queries) EnsureUser(ctx context.Context, wallet string, at time.Time) (*models.User, bool, error) {
	at = at.UTC()
	rowsAffected, err := r.execAffected(ctx, queryInsertUser, uuid.New().String(), wallet, at, at)
	if err != nil {
		zap.L().Error("Failed to insert user", zap.String("wallet", wallet), zap.Error(err))
		return nil, false, fmt.Errorf("unable to insert user: %w", err)
	}

	user, err := r.GetUserByWallet(ctx, wallet)
	if err != nil {
		return nil, false, err
	}

	created := rowsAffected > 0
	if created {
		zap.L().Info("User created", zap.String("id", user.Id), zap.String("wallet", wallet))
	}
	return user, created, nil
}

func (r *queries) IncrementUserCounters(ctx context.Context, wallet string, delta store.UserCounters, at time.Time) error {
	rowsAffected, err := r.execAffected(ctx, queryIncrementUserCounters,
		delta.InitiativesCreated,
		delta.InitiativesSupported,
		delta.VotesParticipated,
		delta.TotalDonated,
		delta.Points,
		at.UTC(),
		wallet)
	if err != nil {
		return fmt.Errorf("unable to update user counters: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", store.ErrUserNotFound, wallet)
	}
	return nil
}

// SpendPoints takes points from the wallet only if it holds at least that
// many. Otherwise nothing changes and ErrInsufficientPoints is returned.
func (r *queries) SpendPoints(ctx context.Context, wallet string, points int64, at time.Time) error {
	rowsAffected, err := r.execAffected(ctx, querySpendPoints, points, at.UTC(), wallet, points)
	if err != nil {
		return fmt.Errorf("unable to spend points: %w", err)
	}
	if rowsAffected == 0 {
		if _, err := r.GetUserByWallet(ctx, wallet); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s needs %d", store.ErrInsufficientPoints, wallet, points)
	}
	return nil
}
