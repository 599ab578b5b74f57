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
	"log"
	"strings"

	"charity-backend-go/internal/api"
	"charity-backend-go/internal/auth"
	"charity-backend-go/internal/database"
	"charity-backend-go/internal/media"
	"charity-backend-go/internal/models"
	"charity-backend-go/internal/reconcile"
	"charity-backend-go/internal/server"
	"charity-backend-go/internal/tonapi"
	"charity-backend-go/internal/tonproof"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can also be set via shell export, docker, etc.
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService   *database.Service
	TonApi      *tonapi.Client
	Charity     *api.CharityService
	Tokens      *auth.TokenIssuer
	Admins      auth.Admins
	ReplayCache *auth.ReplayCache
	Server      *server.Server
	Reconciler  *reconcile.Reconciler
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices wires the database, chain client, proof verification,
// image storage, HTTP server and reconciler from cfg.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	services := &Services{DbService: dbService}

	if err := services.initialize(ctx, cfg); err != nil {
		services.Close()
		return nil, err
	}
	return services, nil
}

func (cs *Services) initialize(ctx context.Context, cfg *models.Config) error {
	chain, err := tonapi.NewClient(cfg.TonApi)
	if err != nil {
		return fmt.Errorf("failed to create tonapi client: %w", err)
	}
	cs.TonApi = chain

	var proofOpts []tonproof.Option
	if cfg.Auth.ReplayCachePath != "" {
		zap.L().Info("Opening payload replay cache", zap.String("path", cfg.Auth.ReplayCachePath))
		cs.ReplayCache, err = auth.NewReplayCache(cfg.Auth.ReplayCachePath)
		if err != nil {
			return err
		}
		proofOpts = append(proofOpts, tonproof.WithReplayGuard(cs.ReplayCache))
	}

	proofs, err := tonproof.NewService(tonproof.Config{
		Secret:     cfg.Auth.ServerSecret,
		Domain:     cfg.Auth.Domain,
		PayloadTTL: cfg.Auth.PayloadTTL,
		ProofTTL:   cfg.Auth.ProofTTL,
	}, chain, proofOpts...)
	if err != nil {
		return fmt.Errorf("failed to create proof service: %w", err)
	}

	cs.Tokens, err = auth.NewTokenIssuer(cfg.Auth.JwtSecret, cfg.Auth.Domain, cfg.Auth.AccessTokenTTL)
	if err != nil {
		return fmt.Errorf("failed to create token issuer: %w", err)
	}

	cs.Admins, err = LoadAdmins(cfg.Auth)
	if err != nil {
		return err
	}
	zap.L().Info("Loaded admin wallets", zap.Int("count", len(cs.Admins)))

	deps := api.Dependencies{
		Store:  cs.DbService,
		Chain:  chain,
		Proofs: proofs,
		Tokens: cs.Tokens,
	}
	if cfg.Storage.Bucket != "" {
		uploader, err := media.NewS3Uploader(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		deps.Images = media.NewService(uploader)
	} else {
		zap.L().Warn("S3_BUCKET is not set, charity image uploads are disabled")
	}

	cs.Charity, err = api.NewCharityService(deps, cfg.Charity, cfg.Reconcile)
	if err != nil {
		return fmt.Errorf("failed to create charity service: %w", err)
	}

	cs.Server, err = server.New(server.Config{
		Service: cs.Charity,
		Tokens:  cs.Tokens,
		Admins:  cs.Admins,
		Server:  cfg.Server,
	})
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	reconcilerCfg := reconcile.ReconcilerConfig{
		Jobs:           cs.Charity.WithChainClient(reconcile.NewRetryingChain(chain, cfg.Reconcile.MaxRetries)),
		RefundSchedule: cfg.Reconcile.RefundSchedule,
		BurnSchedule:   cfg.Reconcile.BurnSchedule,
	}
	if cs.ReplayCache != nil {
		reconcilerCfg.ReplayCache = cs.ReplayCache
	}
	cs.Reconciler, err = reconcile.NewReconciler(reconcilerCfg)
	if err != nil {
		return fmt.Errorf("failed to create reconciler: %w", err)
	}

	return nil
}

// InitializeDatabaseOnly initializes just the database service without the
// chain client. Useful for operator tools that only touch local state.
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

func (cs *Services) Close() {
	if cs.ReplayCache != nil {
		if err := cs.ReplayCache.Close(); err != nil {
			zap.L().Warn("Failed to close replay cache", zap.Error(err))
		}
	}
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
