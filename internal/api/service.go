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
	"io"
	"time"

	"charity-backend-go/internal/models"
	"charity-backend-go/internal/store"

	"go.uber.org/zap"
)

// ChainClient is the subset of the chain index used by the services.
type ChainClient interface {
	LastNftTransfer(ctx context.Context, nft string) (*models.NftTransfer, error)
	JettonBalance(ctx context.Context, owner string) (*models.JettonBalance, error)
	Transaction(ctx context.Context, hash string) (*models.ChainTransaction, error)
}

// ProofVerifier issues proof payloads and verifies signed proofs.
type ProofVerifier interface {
	GeneratePayload() (string, error)
	CheckProof(ctx context.Context, req models.CheckProofRequest) (string, error)
}

// TokenIssuer signs access tokens for verified wallets.
type TokenIssuer interface {
	Issue(wallet string) (string, time.Time, error)
}

// ImageStore processes and persists one uploaded picture. Discard removes
// a picture that ended up unused.
type ImageStore interface {
	Store(ctx context.Context, r io.Reader) (*models.CharityImage, error)
	Discard(ctx context.Context, img models.CharityImage) error
}

// Dependencies are the collaborators of CharityService.
type Dependencies struct {
	Store  store.Store
	Chain  ChainClient
	Proofs ProofVerifier
	Tokens TokenIssuer
	Images ImageStore
}

// CharityService implements the charity lifecycle, voting, user accounts,
// burns and donations on top of a Store.
type CharityService struct {
	db     store.Store
	chain  ChainClient
	proofs ProofVerifier
	tokens TokenIssuer
	images ImageStore

	votingWindow    time.Duration
	refundGrace     time.Duration
	maxImages       int
	burnSettleDelay time.Duration
	burnClaimTTL    time.Duration

	now func() time.Time
}

func NewCharityService(deps Dependencies, charity models.CharityConfig, reconcile models.ReconcileConfig) (*CharityService, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if charity.VotingWindow <= 0 || charity.RefundGrace < 0 {
		return nil, fmt.Errorf("invalid charity timing: voting window %v, refund grace %v", charity.VotingWindow, charity.RefundGrace)
	}

	return &CharityService{
		db:              deps.Store,
		chain:           deps.Chain,
		proofs:          deps.Proofs,
		tokens:          deps.Tokens,
		images:          deps.Images,
		votingWindow:    charity.VotingWindow,
		refundGrace:     charity.RefundGrace,
		maxImages:       charity.MaxImages,
		burnSettleDelay: reconcile.BurnSettleDelay,
		burnClaimTTL:    reconcile.BurnClaimTTL,
		now:             time.Now,
	}, nil
}

// WithChainClient returns a copy of the service that talks to the chain
// through c. Background jobs use it to add retries.
func (s *CharityService) WithChainClient(c ChainClient) *CharityService {
	cp := *s
	cp.chain = c
	return &cp
}

func (s *CharityService) HealthCheck(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// storeImages stores every upload in order. When one fails the ones
// already stored are discarded.
func (s *CharityService) storeImages(ctx context.Context, uploads []io.Reader) (models.ImageSet, error) {
	images := make(models.ImageSet, 0, len(uploads))
	if len(uploads) == 0 {
		return images, nil
	}
	if s.images == nil {
		return nil, fmt.Errorf("image storage is not configured")
	}
	for _, upload := range uploads {
		img, err := s.images.Store(ctx, upload)
		if err != nil {
			s.discardImages(ctx, images)
			return nil, fmt.Errorf("failed to store image: %w", err)
		}
		images = append(images, *img)
	}
	return images, nil
}

// discardImages removes pictures uploaded for a record that was never
// written. Failures only leave orphaned objects behind, so they are logged.
func (s *CharityService) discardImages(ctx context.Context, images models.ImageSet) {
	if s.images == nil {
		return
	}
	for _, img := range images {
		if err := s.images.Discard(ctx, img); err != nil {
			zap.L().Warn("Failed to discard orphaned image",
				zap.String("original", img.OriginalURL),
				zap.String("thumb", img.ThumbURL),
				zap.Error(err))
		}
	}
}

func (s *CharityService) clock() time.Time {
	return s.now().UTC()
}
