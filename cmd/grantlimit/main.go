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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"charity-backend-go/internal/api"
	"charity-backend-go/internal/common"
	"charity-backend-go/internal/config"
	"charity-backend-go/internal/tonapi"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	// Parse command line flags
	walletFlag := flag.String("wallet", "", "Wallet address to credit (required)")
	amountFlag := flag.String("amount", "", "Whole amount to add to the wallet's limit (required)")
	referenceFlag := flag.String("reference", "", "Idempotency reference; re-running with the same value is a no-op (optional)")
	flag.Parse()

	if *walletFlag == "" || *amountFlag == "" {
		zap.L().Fatal("Both flags are required: --wallet and --amount")
	}

	wallet, err := tonapi.RawForm(*walletFlag)
	if err != nil {
		zap.L().Fatal("Invalid wallet", zap.Error(err))
	}

	amount, err := api.ParseAmount(*amountFlag)
	if err != nil {
		zap.L().Fatal("Invalid amount", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	zap.L().Info("Connecting to database", zap.String("driver", cfg.Database.Driver))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	svc, err := api.NewCharityService(api.Dependencies{Store: dbService}, cfg.Charity, cfg.Reconcile)
	if err != nil {
		zap.L().Fatal("Failed to create charity service", zap.Error(err))
	}

	entry, err := svc.GrantLimit(ctx, wallet, amount, *referenceFlag)
	if err != nil {
		zap.L().Fatal("Failed to grant limit", zap.Error(err))
	}

	report := common.NewReport(os.Stdout, common.DefaultWidth)
	report.Header("LIMIT GRANTED")
	report.Field("Wallet", entry.Wallet)
	report.Field("Amount", entry.Amount)
	report.Field("Limit", fmt.Sprintf("%d -> %d", entry.LimitBefore, entry.LimitAfter))
	report.Field("Reference", entry.Reference)
	report.Rule()
}
