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

package store

import (
	"context"
	"errors"
	"time"

	"charity-backend-go/internal/models"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrDuplicateReference     = errors.New("duplicate ledger reference")
	ErrInsufficientLimit      = errors.New("not enough limit")
	ErrInsufficientPoints     = errors.New("not enough points")
	ErrUserNotFound           = errors.New("user not found")
	ErrCharityNotFound        = errors.New("charity not found")
	ErrCharityRetained        = errors.New("accepted charities cannot be deleted")
	ErrVoteNotFound           = errors.New("vote not found")
	ErrNftNotFound            = errors.New("nft item not found")
)

// LimitChangeParams describes one movement of a user's spending limit.
// Amount is signed: negative reserves, positive grants or refunds.
type LimitChangeParams struct {
	Wallet    string
	Kind      string
	Amount    int64
	Reference string
	At        time.Time
}

// UserCounters are increments applied to a user's lifetime counters.
type UserCounters struct {
	InitiativesCreated   int64
	InitiativesSupported int64
	VotesParticipated    int64
	TotalDonated         int64
	Points               int64
}

// CharityFilter selects charities for listings.
type CharityFilter struct {
	Status        string
	AuthorWallet  string
	Search        string
	CreatedAfter  *time.Time // inclusive
	CreatedBefore *time.Time // inclusive
	Limit         int
	Offset        int
}

// StatusChangeParams moves a charity between statuses only if it is still in From.
type StatusChangeParams struct {
	CharityId  string
	From       string
	To         string
	Address    *string
	RejectedAt *time.Time
}

// Repository is the set of row operations available both on the store and
// inside a unit of work.
type Repository interface {
	// --- Users ---
	GetUserByWallet(ctx context.Context, wallet string) (*models.User, error)
	EnsureUser(ctx context.Context, wallet string, at time.Time) (*models.User, bool, error)
	IncrementUserCounters(ctx context.Context, wallet string, delta UserCounters, at time.Time) error
	SpendPoints(ctx context.Context, wallet string, points int64, at time.Time) error

	// --- Ledger ---
	AdjustLimit(ctx context.Context, params LimitChangeParams) (*models.LedgerEntry, error)
	GetLedgerEntries(ctx context.Context, wallet string, limit int) ([]models.LedgerEntry, error)

	// --- Charities ---
	InsertCharity(ctx context.Context, charity *models.Charity) error
	GetCharity(ctx context.Context, id string) (*models.Charity, error)
	ListCharities(ctx context.Context, filter CharityFilter) ([]models.Charity, error)
	ChangeCharityStatus(ctx context.Context, params StatusChangeParams) (bool, error)
	AdjustVoteTally(ctx context.Context, charityId string, yesDelta, noDelta int64) error
	MarkCharityRefunded(ctx context.Context, charityId string, at time.Time) (bool, error)
	DeleteCharity(ctx context.Context, charityId string) error
	ListRefundableCharities(ctx context.Context, rejectedBefore time.Time, limit int) ([]models.Charity, error)
	FindAcceptedCharityByAddress(ctx context.Context, address string) (*models.Charity, error)
	AddCharityDonation(ctx context.Context, charityId string, amount int64) error

	// --- Companies ---
	InsertCompany(ctx context.Context, company *models.Company) error
	ListCompanies(ctx context.Context, limit, offset int) ([]models.Company, error)

	// --- Votes ---
	GetVote(ctx context.Context, charityId, wallet string) (*models.Vote, error)
	InsertVote(ctx context.Context, vote models.Vote) (bool, error)
	UpdateVoteChoice(ctx context.Context, charityId, wallet, from, to string, at time.Time) (bool, error)

	// --- NFT items ---
	InsertNftItem(ctx context.Context, address, content string) (bool, error)
	GetNftItem(ctx context.Context, address string) (*models.NftItem, error)
	ClaimNftItem(ctx context.Context, address, wallet string, at time.Time) error
	MarkNftChecked(ctx context.Context, address, wallet string, at time.Time) (bool, error)
	ReleaseNftClaim(ctx context.Context, address string) error
	ListPendingBurnClaims(ctx context.Context, claimedBefore time.Time, limit int) ([]models.NftItem, error)
	ListBurnedNfts(ctx context.Context, wallet string) ([]models.NftItem, error)

	// --- Donations ---
	InsertDonation(ctx context.Context, donation models.Donation) (bool, error)
	HasDonated(ctx context.Context, charityId, wallet string) (bool, error)
	ListDonationsBySender(ctx context.Context, wallet string, limit, offset int) ([]models.Donation, error)
}

// Store is the persistence contract every backend (SQLite, PostgreSQL) satisfies.
type Store interface {
	Repository

	// WithTx runs fn inside one database transaction. Any error returned by
	// fn rolls every write back; otherwise all writes commit together. fn
	// must only use the Repository it receives.
	WithTx(ctx context.Context, fn func(tx Repository) error) error

	Ping(ctx context.Context) error
	Close()
}
