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

	"charity-backend-go/internal/common"
	"charity-backend-go/internal/config"
	"charity-backend-go/internal/tonapi"

	"go.uber.org/zap"
)

type importStats struct {
	inserted int
	existing int
	invalid  []string
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	catalogFlag := flag.String("catalog", "nfts.yaml", "Path to the NFT catalog file")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	zap.L().Info("Loading NFT catalog", zap.String("file", *catalogFlag))
	items, err := common.LoadNftCatalog(*catalogFlag)
	if err != nil {
		zap.L().Fatal("Failed to load NFT catalog", zap.Error(err))
	}

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	stats := importStats{}
	for _, item := range items {
		address, err := tonapi.BounceableForm(item.Address)
		if err != nil {
			zap.L().Warn("Skipping invalid NFT address",
				zap.String("address", item.Address),
				zap.Error(err))
			stats.invalid = append(stats.invalid, item.Address)
			continue
		}

		inserted, err := dbService.InsertNftItem(ctx, address, item.Content)
		if err != nil {
			zap.L().Fatal("Failed to insert NFT item",
				zap.String("address", address),
				zap.Error(err))
		}
		if inserted {
			stats.inserted++
			fmt.Printf("✓ %s: %s\n", address, item.Content)
		} else {
			stats.existing++
		}
	}

	report := common.NewReport(os.Stdout, common.DefaultWidth)
	report.Header("NFT IMPORT SUMMARY")
	report.Field("Catalog items", len(items))
	report.Field("Inserted", stats.inserted)
	report.Field("Already known", stats.existing)
	report.Field("Invalid", len(stats.invalid))
	report.Rule()

	zap.L().Info("NFT import completed",
		zap.Int("inserted", stats.inserted),
		zap.Int("existing", stats.existing),
		zap.Int("invalid", len(stats.invalid)))
}
