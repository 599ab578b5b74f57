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

package models

import "time"

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Auth      AuthConfig
	TonApi    TonApiConfig
	Charity   CharityConfig
	Reconcile ReconcileConfig
	Storage   StorageConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // sqlite3 or postgres
	Path            string // sqlite file or postgres connection string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Addr            string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
	AuthRateLimit   float64 // requests per second per client on /auth routes
	AuthRateBurst   int
	WebhookToken    string
	SecureCookies   bool
}

// AuthConfig holds wallet proof and access token settings
type AuthConfig struct {
	ServerSecret    string
	JwtSecret       string
	Domain          string
	PayloadTTL      time.Duration
	ProofTTL        time.Duration
	AccessTokenTTL  time.Duration
	ReplayCachePath string
	AdminWallets    []string
	AdminsFile      string
}

// TonApiConfig holds tonapi.io client settings
type TonApiConfig struct {
	BaseURL      string
	ApiKey       string
	Timeout      time.Duration
	JettonMaster string
}

// CharityConfig holds charity lifecycle windows
type CharityConfig struct {
	VotingWindow time.Duration
	RefundGrace  time.Duration
	MaxImages    int
}

// ReconcileConfig holds background job settings
type ReconcileConfig struct {
	RefundSchedule  string
	BurnSchedule    string
	BurnSettleDelay time.Duration
	BurnClaimTTL    time.Duration
	MaxRetries      uint64
}

// StorageConfig holds object storage settings for charity images
type StorageConfig struct {
	Bucket       string
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	CdnBaseURL   string
	UsePathStyle bool
}
