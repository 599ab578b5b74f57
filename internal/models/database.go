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
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Charity statuses
const (
	CharityInReview = "in_review"
	CharityAccepted = "accepted"
	CharityRejected = "rejected"
)

// Vote choices
const (
	ChoiceYes = "yes"
	ChoiceNo  = "no"
)

// Ledger entry kinds
const (
	LedgerGrant   = "grant"
	LedgerReserve = "reserve"
	LedgerRefund  = "refund"
)

// User is a wallet holder known to the platform
type User struct {
	Id                   string    `db:"id" json:"id"`
	Wallet               string    `db:"wallet" json:"wallet"`
	Limit                int64     `db:"spend_limit" json:"limit"`
	Points               int64     `db:"points" json:"points"`
	InitiativesCreated   int64     `db:"initiatives_created" json:"initiativesCreated"`
	InitiativesSupported int64     `db:"initiatives_supported" json:"initiativesSupported"`
	VotesParticipated    int64     `db:"votes_participated" json:"votesParticipated"`
	TotalDonated         int64     `db:"total_donated" json:"totalDonated"`
	Version              int64     `db:"version" json:"-"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// Charity is a funding request moving through review
type Charity struct {
	Id             string     `db:"id" json:"id"`
	AuthorWallet   string     `db:"author_wallet" json:"authorWallet"`
	Title          string     `db:"title" json:"title"`
	Description    string     `db:"description" json:"description"`
	Contact        string     `db:"contact" json:"contact"`
	Images         ImageSet   `db:"images" json:"images"`
	DonationNeeded int64      `db:"donation_needed" json:"donation_needed"`
	Donated        int64      `db:"donated" json:"donated"`
	Deadline       time.Time  `db:"deadline" json:"deadline"`
	Status         string     `db:"status" json:"status"`
	VotesYes       int64      `db:"votes_yes" json:"votes_yes"`
	VotesNo        int64      `db:"votes_no" json:"votes_no"`
	Address        *string    `db:"address" json:"address,omitempty"`
	RejectedAt     *time.Time `db:"rejected_at" json:"rejectedDate,omitempty"`
	RefundedAt     *time.Time `db:"refunded_at" json:"refundedDate,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// CharityImage is one uploaded picture in its two processed variants
type CharityImage struct {
	OriginalURL  string `json:"originalUrl"`
	ThumbURL     string `json:"thumbUrl"`
	OriginalSize [2]int `json:"original_size"`
	ThumbSize    [2]int `json:"thumb_size"`
}

// ImageSet is stored as a JSON document in a text column
type ImageSet []CharityImage

func (s ImageSet) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (s *ImageSet) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*s = ImageSet{}
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("unsupported images column type %T", src)
	}
	if len(data) == 0 {
		*s = ImageSet{}
		return nil
	}
	return json.Unmarshal(data, s)
}

// Company is a fundraising campaign announced by a user for one point
type Company struct {
	Id            string    `db:"id" json:"id"`
	CreatorWallet string    `db:"creator_wallet" json:"creatorWallet"`
	Title         string    `db:"title" json:"title"`
	Description   string    `db:"description" json:"description"`
	Images        ImageSet  `db:"images" json:"images"`
	TotalAmount   int64     `db:"total_amount" json:"total_amount"`
	ExpiredAt     time.Time `db:"expired_at" json:"expired_at"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Vote is the single ballot a wallet holds for a charity
type Vote struct {
	CharityId   string    `db:"charity_id" json:"charityId"`
	VoterWallet string    `db:"voter_wallet" json:"userWallet"`
	Choice      string    `db:"choice" json:"choice"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// LedgerEntry is an immutable record of one limit movement
type LedgerEntry struct {
	Id          string    `db:"id" json:"id"`
	Wallet      string    `db:"wallet" json:"wallet"`
	Kind        string    `db:"kind" json:"kind"`
	Amount      int64     `db:"amount" json:"amount"`
	LimitBefore int64     `db:"limit_before" json:"limit_before"`
	LimitAfter  int64     `db:"limit_after" json:"limit_after"`
	Reference   string    `db:"reference" json:"reference"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// NftItem is a collection item that can be burned for points
type NftItem struct {
	Address   string     `db:"address" json:"address"`
	Content   string     `db:"content" json:"content"`
	ClaimedBy *string    `db:"claimed_by" json:"claimedBy,omitempty"`
	ClaimedAt *time.Time `db:"claimed_at" json:"claimedAt,omitempty"`
	IsChecked bool       `db:"is_checked" json:"is_checked"`
}

// Donation is an on-chain transfer to an accepted charity's payout address
type Donation struct {
	TxHash       string    `db:"tx_hash" json:"txHash"`
	CharityId    string    `db:"charity_id" json:"charityId"`
	SenderWallet string    `db:"sender_wallet" json:"senderWallet"`
	Amount       int64     `db:"amount" json:"amount"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
