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

	"go.uber.org/zap"
)

// GeneratePayload issues a fresh proof payload for TON Connect.
func (s *CharityService) GeneratePayload() (*models.PayloadResponse, error) {
	payload, err := s.proofs.GeneratePayload()
	if err != nil {
		return nil, fmt.Errorf("failed to generate payload: %w", err)
	}
	return &models.PayloadResponse{Payload: payload}, nil
}

// Login verifies a signed proof, registers the wallet on first sight and
// returns an access token for it.
func (s *CharityService) Login(ctx context.Context, req models.CheckProofRequest) (*models.TokenResponse, error) {
	wallet, err := s.proofs.CheckProof(ctx, req)
	if err != nil {
		zap.L().Info("Proof rejected", zap.String("address", req.Address), zap.Error(err))
		return nil, err
	}

	if _, _, err := s.db.EnsureUser(ctx, wallet, s.clock()); err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	token, expiresAt, err := s.tokens.Issue(wallet)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	zap.L().Info("Wallet authenticated", zap.String("wallet", wallet))
	return &models.TokenResponse{Token: token, ExpiresAt: expiresAt}, nil
}
