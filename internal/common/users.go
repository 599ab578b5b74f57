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

package common

import (
	"context"
	"fmt"

	"charity-backend-go/internal/store"
	"charity-backend-go/internal/tonapi"

	"go.uber.org/zap"
)

// UserInfo represents simplified user information for command-line utilities
type UserInfo struct {
	Wallet string
	Limit  int64
	Points int64
}

// InitializeUsers looks up each wallet, accepting raw or user-friendly forms.
// Unknown wallets are reported as an error.
func InitializeUsers(ctx context.Context, repo store.Repository, wallets []string, logger *zap.Logger) ([]UserInfo, error) {
	users := make([]UserInfo, 0, len(wallets))

	for _, w := range wallets {
		raw, err := tonapi.RawForm(w)
		if err != nil {
			return nil, fmt.Errorf("invalid wallet %q: %w", w, err)
		}

		logger.Info("Looking up user by wallet", zap.String("wallet", raw))
		user, err := repo.GetUserByWallet(ctx, raw)
		if err != nil {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		users = append(users, UserInfo{
			Wallet: user.Wallet,
			Limit:  user.Limit,
			Points: user.Points,
		})
	}

	logger.Info("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}
