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

package database

import (
	"context"
	"fmt"
	"strings"

	"charity-backend-go/internal/models"
	"charity-backend-go/internal/store"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.Store.
var _ store.Store = (*Service)(nil)

const sqliteParams = "_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_txlock=immediate&_foreign_keys=on"

type Service struct {
	*queries
	db *sqlx.DB
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	var dsn string
	switch cfg.Driver {
	case "sqlite3", "":
		cfg.Driver = "sqlite3"
		dsn = sqliteDSN(cfg.Path)
		zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	case "postgres":
		dsn = cfg.Path
		zap.L().Info("Opening PostgreSQL database")
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := sqlx.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Set connection timeouts and limits
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := &Service{queries: &queries{q: db}, db: db}
	if err := service.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully", zap.String("driver", cfg.Driver))
	return service, nil
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path + "&" + sqliteParams
	}
	return path + "?" + sqliteParams
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// WithTx runs fn inside a single transaction bound to a fresh Repository.
func (s *Service) WithTx(ctx context.Context, fn func(tx store.Repository) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(&queries{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Service) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		wallet TEXT NOT NULL UNIQUE,
		spend_limit BIGINT NOT NULL DEFAULT 0 CHECK (spend_limit >= 0),
		points BIGINT NOT NULL DEFAULT 0,
		initiatives_created BIGINT NOT NULL DEFAULT 0,
		initiatives_supported BIGINT NOT NULL DEFAULT 0,
		votes_participated BIGINT NOT NULL DEFAULT 0,
		total_donated BIGINT NOT NULL DEFAULT 0,
		version BIGINT NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS charities (
		id TEXT PRIMARY KEY,
		author_wallet TEXT NOT NULL REFERENCES users(wallet),
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		contact TEXT NOT NULL,
		images TEXT NOT NULL DEFAULT '[]',
		donation_needed BIGINT NOT NULL CHECK (donation_needed > 0),
		donated BIGINT NOT NULL DEFAULT 0,
		deadline TIMESTAMP NOT NULL,
		status TEXT NOT NULL,
		votes_yes BIGINT NOT NULL DEFAULT 0 CHECK (votes_yes >= 0),
		votes_no BIGINT NOT NULL DEFAULT 0 CHECK (votes_no >= 0),
		address TEXT,
		rejected_at TIMESTAMP,
		refunded_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL
	);

	-- Listings filter by status and voting window
	CREATE INDEX IF NOT EXISTS idx_charities_status_created ON charities(status, created_at);
	CREATE INDEX IF NOT EXISTS idx_charities_author ON charities(author_wallet);
	CREATE INDEX IF NOT EXISTS idx_charities_address ON charities(address);

	CREATE TABLE IF NOT EXISTS companies (
		id TEXT PRIMARY KEY,
		creator_wallet TEXT NOT NULL REFERENCES users(wallet),
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		images TEXT NOT NULL DEFAULT '[]',
		total_amount BIGINT NOT NULL CHECK (total_amount > 0),
		expired_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_companies_created ON companies(created_at);

	CREATE TABLE IF NOT EXISTS votes (
		charity_id TEXT NOT NULL REFERENCES charities(id) ON DELETE CASCADE,
		voter_wallet TEXT NOT NULL,
		choice TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (charity_id, voter_wallet)
	);

	CREATE TABLE IF NOT EXISTS nft_items (
		address TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		claimed_by TEXT,
		claimed_at TIMESTAMP,
		is_checked BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE INDEX IF NOT EXISTS idx_nft_items_claimed ON nft_items(claimed_by, is_checked);

	CREATE TABLE IF NOT EXISTS donations (
		tx_hash TEXT PRIMARY KEY,
		charity_id TEXT NOT NULL,
		sender_wallet TEXT NOT NULL,
		amount BIGINT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_donations_sender ON donations(sender_wallet, created_at);
	CREATE INDEX IF NOT EXISTS idx_donations_charity ON donations(charity_id, sender_wallet);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}

	return s.initLedgerSchema(ctx)
}
