package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"charity-backend-go/internal/models"
	"charity-backend-go/internal/store"

	"go.uber.org/zap"
)

// InsertNftItem adds an item to the burnable catalog; existing items are left untouched.
func (r *queries) InsertNftItem(ctx context.Context, address, content string) (bool, error) {
	rowsAffected, err := r.execAffected(ctx, queryInsertNftItem, address, content, false)
	if err != nil {
		return false, fmt.Errorf("unable to insert nft item: %w", err)
	}
	return rowsAffected > 0, nil
}

func (r *queries) GetNftItem(ctx context.Context, address string) (*models.NftItem, error) {
	var item models.NftItem
	if err := r.get(ctx, &item, queryGetNftItem, address); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrNftNotFound, address)
		}
		return nil, fmt.Errorf("unable to query nft item: %w", err)
	}
	return &item, nil
}

// ClaimNftItem records that wallet says it burned the item. The claim is
// settled later by burn reconciliation.
func (r *queries) ClaimNftItem(ctx context.Context, address, wallet string, at time.Time) error {
	rowsAffected, err := r.execAffected(ctx, queryClaimNftItem, wallet, at.UTC(), address, false)
	if err != nil {
		return fmt.Errorf("unable to claim nft item: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", store.ErrNftNotFound, address)
	}
	zap.L().Info("Burn claim recorded", zap.String("nft", address), zap.String("wallet", wallet))
	return nil
}

// MarkNftChecked flips is_checked once. A false result means the burn was
// already credited.
func (r *queries) MarkNftChecked(ctx context.Context, address, wallet string, at time.Time) (bool, error) {
	rowsAffected, err := r.execAffected(ctx, queryMarkNftChecked, true, wallet, at.UTC(), address, false)
	if err != nil {
		return false, fmt.Errorf("unable to mark nft checked: %w", err)
	}
	return rowsAffected > 0, nil
}

func (r *queries) ReleaseNftClaim(ctx context.Context, address string) error {
	if _, err := r.exec(ctx, queryReleaseNftClaim, address, false); err != nil {
		return fmt.Errorf("unable to release nft claim: %w", err)
	}
	return nil
}

func (r *queries) ListPendingBurnClaims(ctx context.Context, claimedBefore time.Time, limit int) ([]models.NftItem, error) {
	if limit <= 0 {
		limit = maxListLimit
	}
	items := []models.NftItem{}
	if err := r.selectAll(ctx, &items, queryListPendingBurnClaims, false, claimedBefore.UTC(), limit); err != nil {
		return nil, fmt.Errorf("unable to list pending burn claims: %w", err)
	}
	return items, nil
}

func (r *queries) ListBurnedNfts(ctx context.Context, wallet string) ([]models.NftItem, error) {
	items := []models.NftItem{}
	if err := r.selectAll(ctx, &items, queryListBurnedNfts, wallet, true); err != nil {
		return nil, fmt.Errorf("unable to list burned nfts: %w", err)
	}
	return items, nil
}
