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
	"strings"

	"charity-backend-go/internal/common"
	"charity-backend-go/internal/config"
	"charity-backend-go/internal/database"

	"go.uber.org/zap"
)

type ledgerStats struct {
	totalUsers   int
	totalEntries int
}

func processUser(ctx context.Context, report *common.Report, user common.UserInfo, dbService *database.Service, limit int) (int, error) {
	entries, err := dbService.GetLedgerEntries(ctx, user.Wallet, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to get ledger entries: %w", err)
	}

	report.Wallet(user, len(entries))
	for i, entry := range entries {
		report.LedgerEntry(entry, i == len(entries)-1)
	}

	return len(entries), nil
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	// Parse command line flags
	walletsFlag := flag.String("wallets", "", "Comma separated wallet addresses (required)")
	limitFlag := flag.Int("limit", 20, "Maximum ledger entries per wallet")
	flag.Parse()

	var wallets []string
	for _, w := range strings.Split(*walletsFlag, ",") {
		if w = strings.TrimSpace(w); w != "" {
			wallets = append(wallets, w)
		}
	}
	if len(wallets) == 0 {
		logger.Fatal("At least one wallet is required: --wallets")
	}

	logger.Info("Starting limit query")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Read-only, no chain access needed
	logger.Info("Connecting to database", zap.String("driver", cfg.Database.Driver))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	users, err := common.InitializeUsers(ctx, dbService, wallets, logger)
	if err != nil {
		logger.Fatal("Failed to initialize users", zap.Error(err))
	}

	report := common.NewReport(os.Stdout, common.WideWidth)
	report.Header("USER LIMIT REPORT")

	stats := ledgerStats{}
	for _, user := range users {
		stats.totalUsers++
		count, err := processUser(ctx, report, user, dbService, *limitFlag)
		if err != nil {
			logger.Error("Failed to process user",
				zap.String("wallet", user.Wallet),
				zap.Error(err))
			continue
		}
		stats.totalEntries += count
	}

	summary := fmt.Sprintf("SUMMARY: %d ledger entries across %d users", stats.totalEntries, stats.totalUsers)
	report.Footer(summary)

	logger.Info("Limit query completed",
		zap.Int("users_queried", stats.totalUsers),
		zap.Int("ledger_entries", stats.totalEntries))
}
