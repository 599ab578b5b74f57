package database

import (
	"context"
	"fmt"

	"charity-backend-go/internal/models"
)

// InsertDonation returns false when the transaction hash was already recorded.
func (r *queries) InsertDonation(ctx context.Context, d models.Donation) (bool, error) {
	rowsAffected, err := r.execAffected(ctx, queryInsertDonation,
		d.TxHash, d.CharityId, d.SenderWallet, d.Amount, d.CreatedAt.UTC())
	if err != nil {
		return false, fmt.Errorf("unable to insert donation: %w", err)
	}
	return rowsAffected > 0, nil
}

func (r *queries) HasDonated(ctx context.Context, charityId, wallet string) (bool, error) {
	var count int
	if err := r.get(ctx, &count, queryCountDonations, charityId, wallet); err != nil {
		return false, fmt.Errorf("unable to count donations: %w", err)
	}
	return count > 0, nil
}

func (r *queries) ListDonationsBySender(ctx context.Context, wallet string, limit, offset int) ([]models.Donation, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	donations := []models.Donation{}
	if err := r.selectAll(ctx, &donations, queryListDonationsBySender, wallet, limit, offset); err != nil {
		return nil, fmt.Errorf("unable to list donations: %w", err)
	}
	return donations, nil
}
