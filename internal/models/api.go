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

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProofDomain is the domain descriptor signed by the wallet
type ProofDomain struct {
	LengthBytes uint32 `json:"lengthBytes"`
	Value       string `json:"value" validate:"required"`
}

// TonProof is the ton_proof item returned by TON Connect
type TonProof struct {
	Timestamp int64       `json:"timestamp" validate:"required"`
	Domain    ProofDomain `json:"domain" validate:"required"`
	Payload   string      `json:"payload" validate:"required,hexadecimal"`
	Signature string      `json:"signature" validate:"required,base64"`
	StateInit string      `json:"state_init"`
}

// CheckProofRequest is the body of POST /auth/check_proof
type CheckProofRequest struct {
	Address string   `json:"address" validate:"required"`
	Network string   `json:"network" validate:"required,oneof=-239 -3"`
	Proof   TonProof `json:"proof" validate:"required"`
}

// PayloadResponse carries a freshly issued proof payload
type PayloadResponse struct {
	Payload string `json:"payload"`
}

// TokenResponse carries the access token issued after a verified proof
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateCharityRequest holds the text fields of the multipart charity form
type CreateCharityRequest struct {
	Title       string    `validate:"required,max=200"`
	Description string    `validate:"required,max=10000"`
	Contact     string    `validate:"required,max=200"`
	Deadline    time.Time `validate:"required"`
	Amount      int64     `validate:"gt=0"`
}

// CreateCompanyRequest holds the text fields of the multipart company form
type CreateCompanyRequest struct {
	Title       string    `validate:"required,max=200"`
	Description string    `validate:"required,max=10000"`
	ExpiredAt   time.Time `validate:"required"`
	TotalAmount int64     `validate:"gt=0"`
}

// VoteRequest is the body of POST /charity/{id}/vote
type VoteRequest struct {
	Choice string `json:"choice" validate:"required,oneof=yes no"`
}

// ModerateRequest is the body of PATCH /admin/charity/{id}
type ModerateRequest struct {
	Status  string `json:"status" validate:"required,oneof=accepted rejected"`
	Address string `json:"address"`
}

// CheckBurnRequest is the body of POST /user/checkBurn
type CheckBurnRequest struct {
	NftAddress string `json:"nft_address" validate:"required"`
}

// VoteResult describes what a vote did to the tallies
type VoteResult struct {
	Changed bool   `json:"changed"`
	Action  string `json:"action"` // created, unchanged, switched
	Choice  string `json:"choice"`
}

// Vote result actions
const (
	VoteCreated   = "created"
	VoteUnchanged = "unchanged"
	VoteSwitched  = "switched"
)

// ListParams holds paging and search for charity listings
type ListParams struct {
	Search string
	Limit  int
	Offset int
}

// Inventory is the caller's points, token balance and burned items
type Inventory struct {
	Points     int64           `json:"points"`
	GrcBalance decimal.Decimal `json:"grc_balance"`
	Burned     []NftItem       `json:"burned"`
}

// BurnResult reports points credited by a verified burn
type BurnResult struct {
	NftAddress string `json:"nft_address"`
	Points     int64  `json:"points"`
}

// WebhookEvent is the tonapi account transaction notification
type WebhookEvent struct {
	AccountId string `json:"account_id"`
	Lt        int64  `json:"lt"`
	TxHash    string `json:"tx_hash"`
}

// MessageResponse is a plain acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}
