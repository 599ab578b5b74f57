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

const (
	userColumns = `id, wallet, spend_limit, points, initiatives_created, initiatives_supported,
		votes_participated, total_donated, version, created_at, updated_at`

	charityColumns = `id, author_wallet, title, description, contact, images, donation_needed, donated,
		deadline, status, votes_yes, votes_no, address, rejected_at, refunded_at, created_at`

	companyColumns = `id, creator_wallet, title, description, images, total_amount, expired_at, created_at`

	nftColumns = `address, content, claimed_by, claimed_at, is_checked`

	// User queries
	queryInsertUser = `
		INSERT INTO users (id, wallet, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (wallet) DO NOTHING`

	queryGetUserByWallet = `
		SELECT ` + userColumns + `
		FROM users
		WHERE wallet = ?`

	queryIncrementUserCounters = `
		UPDATE users
		SET initiatives_created = initiatives_created + ?,
		    initiatives_supported = initiatives_supported + ?,
		    votes_participated = votes_participated + ?,
		    total_donated = total_donated + ?,
		    points = points + ?,
		    updated_at = ?
		WHERE wallet = ?`

	querySpendPoints = `
		UPDATE users
		SET points = points - ?, updated_at = ?
		WHERE wallet = ? AND points >= ?`

	// Ledger queries
	queryGetUserLimit = `
		SELECT spend_limit, version
		FROM users
		WHERE wallet = ?`

	queryUpdateUserLimit = `
		UPDATE users
		SET spend_limit = ?, version = version + 1, updated_at = ?
		WHERE wallet = ? AND version = ?`

	queryCountLedgerReference = `
		SELECT COUNT(1)
		FROM ledger_entries
		WHERE reference = ?`

	queryInsertLedgerEntry = `
		INSERT INTO ledger_entries (id, wallet, kind, amount, limit_before, limit_after, reference, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetLedgerEntries = `
		SELECT id, wallet, kind, amount, limit_before, limit_after, reference, created_at
		FROM ledger_entries
		WHERE wallet = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`

	// Company queries
	queryInsertCompany = `
		INSERT INTO companies (` + companyColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	queryListCompanies = `
		SELECT ` + companyColumns + `
		FROM companies
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`

	// Charity queries
	queryInsertCharity = `
		INSERT INTO charities (` + charityColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetCharity = `
		SELECT ` + charityColumns + `
		FROM charities
		WHERE id = ?`

	queryChangeCharityStatus = `
		UPDATE charities
		SET status = ?, address = COALESCE(?, address), rejected_at = COALESCE(?, rejected_at)
		WHERE id = ? AND status = ?`

	queryAdjustVoteTally = `
		UPDATE charities
		SET votes_yes = votes_yes + ?, votes_no = votes_no + ?
		WHERE id = ?`

	queryMarkCharityRefunded = `
		UPDATE charities
		SET refunded_at = ?
		WHERE id = ? AND refunded_at IS NULL`

	queryDeleteCharityVotes = `DELETE FROM votes WHERE charity_id = ?`

	queryDeleteCharity = `DELETE FROM charities WHERE id = ? AND status <> ?`

	queryListRefundableCharities = `
		SELECT ` + charityColumns + `
		FROM charities
		WHERE status = ? AND rejected_at <= ? AND refunded_at IS NULL
		ORDER BY rejected_at
		LIMIT ?`

	queryFindAcceptedCharityByAddress = `
		SELECT ` + charityColumns + `
		FROM charities
		WHERE status = ? AND address = ?
		ORDER BY created_at
		LIMIT 1`

	queryAddCharityDonation = `
		UPDATE charities
		SET donated = donated + ?
		WHERE id = ?`

	// Vote queries
	queryGetVote = `
		SELECT charity_id, voter_wallet, choice, created_at, updated_at
		FROM votes
		WHERE charity_id = ? AND voter_wallet = ?`

	queryInsertVote = `
		INSERT INTO votes (charity_id, voter_wallet, choice, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (charity_id, voter_wallet) DO NOTHING`

	queryUpdateVoteChoice = `
		UPDATE votes
		SET choice = ?, updated_at = ?
		WHERE charity_id = ? AND voter_wallet = ? AND choice = ?`

	// NFT queries
	queryInsertNftItem = `
		INSERT INTO nft_items (address, content, is_checked)
		VALUES (?, ?, ?)
		ON CONFLICT (address) DO NOTHING`

	queryGetNftItem = `
		SELECT ` + nftColumns + `
		FROM nft_items
		WHERE address = ?`

	queryClaimNftItem = `
		UPDATE nft_items
		SET claimed_by = ?, claimed_at = ?
		WHERE address = ? AND is_checked = ?`

	queryMarkNftChecked = `
		UPDATE nft_items
		SET is_checked = ?, claimed_by = ?, claimed_at = COALESCE(claimed_at, ?)
		WHERE address = ? AND is_checked = ?`

	queryReleaseNftClaim = `
		UPDATE nft_items
		SET claimed_by = NULL, claimed_at = NULL
		WHERE address = ? AND is_checked = ?`

	queryListPendingBurnClaims = `
		SELECT ` + nftColumns + `
		FROM nft_items
		WHERE is_checked = ? AND claimed_by IS NOT NULL AND claimed_at <= ?
		ORDER BY claimed_at
		LIMIT ?`

	queryListBurnedNfts = `
		SELECT ` + nftColumns + `
		FROM nft_items
		WHERE claimed_by = ? AND is_checked = ?
		ORDER BY claimed_at DESC`

	// Donation queries
	queryInsertDonation = `
		INSERT INTO donations (tx_hash, charity_id, sender_wallet, amount, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (tx_hash) DO NOTHING`

	queryCountDonations = `
		SELECT COUNT(1)
		FROM donations
		WHERE charity_id = ? AND sender_wallet = ?`

	queryListDonationsBySender = `
		SELECT tx_hash, charity_id, sender_wallet, amount, created_at
		FROM donations
		WHERE sender_wallet = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`
)
