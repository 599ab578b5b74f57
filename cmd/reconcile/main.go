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
	"os/signal"
	"syscall"
	"time"

	"charity-backend-go/internal/common"
	"charity-backend-go/internal/config"

	"go.uber.org/zap"
)

func main() {
	onceFlag := flag.Bool("once", false, "Run refund and burn reconciliation a single time and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	if *onceFlag {
		start := time.Now()
		err := services.Reconciler.RunOnce(ctx)

		report := common.NewReport(os.Stdout, common.DefaultWidth)
		report.Header("RECONCILIATION")
		report.Field("Duration", time.Since(start).Round(time.Millisecond))
		if err != nil {
			report.Field("Result", fmt.Sprintf("failed (%v)", err))
		} else {
			report.Field("Result", "ok")
		}
		report.Rule()

		if err != nil {
			zap.L().Error("Reconciliation failed", zap.Error(err))
			loggerCleanup()
			os.Exit(1)
		}
		return
	}

	zap.L().Info("Starting reconciler",
		zap.String("refund_schedule", cfg.Reconcile.RefundSchedule),
		zap.String("burn_schedule", cfg.Reconcile.BurnSchedule))
	if err := services.Reconciler.Start(ctx); err != nil {
		zap.L().Fatal("Failed to start reconciler", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received, waiting for running jobs...")
	cancel()
	services.Reconciler.Stop()
	zap.L().Info("Reconciler stopped")
}
