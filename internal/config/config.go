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

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"charity-backend-go/internal/models"
)

// GrcJettonMaster is the GRC jetton minter reported in user inventories.
const GrcJettonMaster = "EQAu7qxfVgMg0tpnosBpARYOG--W1EUuX_5H_vOQtTVuHnrn"

func Load() (*models.Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}
	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	payloadTTL, err := getEnvDuration("PAYLOAD_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	proofTTL, err := getEnvDuration("PROOF_TTL", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	accessTokenTTL, err := getEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	tonApiTimeout, err := getEnvDuration("TONAPI_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	votingWindow, err := getEnvDuration("VOTING_WINDOW", 30*time.Minute)
	if err != nil {
		return nil, err
	}
	refundGrace, err := getEnvDuration("REFUND_GRACE", 10*time.Minute)
	if err != nil {
		return nil, err
	}
	burnSettleDelay, err := getEnvDuration("BURN_SETTLE_DELAY", time.Minute)
	if err != nil {
		return nil, err
	}
	burnClaimTTL, err := getEnvDuration("BURN_CLAIM_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	serverSecret := getEnvString("SERVER_SECRET", "")

	return &models.Config{
		Database: models.DatabaseConfig{
			Driver:          getEnvString("DATABASE_DRIVER", "sqlite3"),
			Path:            getEnvString("DATABASE_URL", getEnvString("DATABASE_PATH", "charity.db")),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
		},
		Server: models.ServerConfig{
			Addr:            getEnvString("HTTP_ADDR", ":3000"),
			AllowedOrigins:  getEnvList("ALLOWED_ORIGINS", []string{"https://grouche.com"}),
			ShutdownTimeout: shutdownTimeout,
			AuthRateLimit:   getEnvFloat("AUTH_RATE_LIMIT", 2),
			AuthRateBurst:   getEnvInt("AUTH_RATE_BURST", 10),
			WebhookToken:    getEnvString("WEBHOOK_INCOMING_TOKEN", ""),
			SecureCookies:   getEnvBool("SECURE_COOKIES", true),
		},
		Auth: models.AuthConfig{
			ServerSecret:    serverSecret,
			JwtSecret:       getEnvString("JWT_SECRET", serverSecret),
			Domain:          getEnvString("DOMAIN", "grouche.com"),
			PayloadTTL:      payloadTTL,
			ProofTTL:        proofTTL,
			AccessTokenTTL:  accessTokenTTL,
			ReplayCachePath: getEnvString("PAYLOAD_REPLAY_DB", ""),
			AdminWallets:    getEnvList("ADMIN_WALLETS", nil),
			AdminsFile:      getEnvString("ADMINS_FILE", ""),
		},
		TonApi: models.TonApiConfig{
			BaseURL:      getEnvString("TONAPI_BASE_URL", "https://tonapi.io"),
			ApiKey:       getEnvString("TONAPI_KEY", getEnvString("TONAPIKEY", "")),
			Timeout:      tonApiTimeout,
			JettonMaster: getEnvString("GRC_JETTON_MASTER", GrcJettonMaster),
		},
		Charity: models.CharityConfig{
			VotingWindow: votingWindow,
			RefundGrace:  refundGrace,
			MaxImages:    getEnvInt("CHARITY_MAX_IMAGES", 4),
		},
		Reconcile: models.ReconcileConfig{
			RefundSchedule:  getEnvString("RECONCILE_REFUND_SCHEDULE", "@every 1m"),
			BurnSchedule:    getEnvString("RECONCILE_BURN_SCHEDULE", "@every 2m"),
			BurnSettleDelay: burnSettleDelay,
			BurnClaimTTL:    burnClaimTTL,
			MaxRetries:      uint64(getEnvInt("RECONCILE_MAX_RETRIES", 3)),
		},
		Storage: models.StorageConfig{
			Bucket:       getEnvString("S3_BUCKET", ""),
			Region:       getEnvString("S3_REGION", "us-east-1"),
			Endpoint:     getEnvString("S3_ENDPOINT", ""),
			AccessKey:    getEnvString("S3_ACCESS_KEY", ""),
			SecretKey:    getEnvString("S3_SECRET_KEY", ""),
			CdnBaseURL:   getEnvString("CDN_BASE_URL", ""),
			UsePathStyle: getEnvBool("S3_USE_PATH_STYLE", false),
		},
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping blanks
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
