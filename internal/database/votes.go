package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"charity-backend-go/internal/models"
	"charity-backend-go/internal/store"
)

func (r *queries) GetVote(ctx context.Context, charityId, wallet string) (*models.Vote, error) {
	var vote models.Vote
	if err := r.get(ctx, &vote, queryGetVote, charityId, wallet); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrVoteNotFound
		}
		return nil, fmt.Errorf("unable to query vote: %w", err)
	}
	return &vote, nil
}

// InsertVote returns false when the (charity, wallet) pair already holds a vote.
func (r *queries) InsertVote(ctx context.Context, vote models.Vote) (bool, error) {
	rowsAffected, err := r.execAffected(ctx, queryInsertVote,
		vote.CharityId, vote.VoterWallet, vote.Choice, vote.CreatedAt.UTC(), vote.UpdatedAt.UTC())
	if err != nil {
		return false, fmt.Errorf("unable to insert vote: %w", err)
	}
	return rowsAffected > 0, nil
}

// UpdateVoteChoice moves a ballot from one choice to another. It reports
// false when the stored choice is no longer from.
func (r *queries) UpdateVoteChoice(ctx context.Context, charityId, wallet, from, to string, at time.Time) (bool, error) {
	rowsAffected, err := r.execAffected(ctx, queryUpdateVoteChoice, to, at.UTC(), charityId, wallet, from)
	if err != nil {
		return false, fmt.Errorf("unable to update vote: %w", err)
	}
	return rowsAffected > 0, nil
}
