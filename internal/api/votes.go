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

package api

import (
	"context"
	"errors"

	"charity-backend-go/internal/models"
	"charity-backend-go/internal/store"

	"go.uber.org/zap"
)

// CastVote records the voter's choice on an in-review charity. Repeating a
// choice is a no-op; changing it moves one vote between the tallies.
func (s *CharityService) CastVote(ctx context.Context, charityId, wallet, choice string) (*models.VoteResult, error) {
	if choice != models.ChoiceYes && choice != models.ChoiceNo {
		return nil, ErrInvalidChoice
	}

	now := s.clock()
	var result *models.VoteResult

	err := s.db.WithTx(ctx, func(tx store.Repository) error {
		charity, err := tx.GetCharity(ctx, charityId)
		if err != nil {
			return err
		}
		if charity.Status != models.CharityInReview {
			return ErrVotingClosed
		}
		if now.After(charity.CreatedAt.Add(s.votingWindow)) {
			return ErrVotingExpired
		}

		prev, err := tx.GetVote(ctx, charityId, wallet)
		switch {
		case errors.Is(err, store.ErrVoteNotFound):
			inserted, err := tx.InsertVote(ctx, models.Vote{
				CharityId:   charityId,
				VoterWallet: wallet,
				Choice:      choice,
				CreatedAt:   now,
				UpdatedAt:   now,
			})
			if err != nil {
				return err
			}
			if !inserted {
				return store.ErrConcurrentModification
			}
			yes, no := tally(choice, 1)
			if err := tx.AdjustVoteTally(ctx, charityId, yes, no); err != nil {
				return err
			}
			if _, _, err := tx.EnsureUser(ctx, wallet, now); err != nil {
				return err
			}
			if err := tx.IncrementUserCounters(ctx, wallet, store.UserCounters{VotesParticipated: 1}, now); err != nil {
				return err
			}
			result = &models.VoteResult{Changed: true, Action: models.VoteCreated, Choice: choice}
			return nil

		case err != nil:
			return err

		case prev.Choice == choice:
			result = &models.VoteResult{Changed: false, Action: models.VoteUnchanged, Choice: choice}
			return nil
		}

		switched, err := tx.UpdateVoteChoice(ctx, charityId, wallet, prev.Choice, choice, now)
		if err != nil {
			return err
		}
		if !switched {
			return store.ErrConcurrentModification
		}
		yes, no := tally(choice, 1)
		prevYes, prevNo := tally(prev.Choice, -1)
		if err := tx.AdjustVoteTally(ctx, charityId, yes+prevYes, no+prevNo); err != nil {
			return err
		}
		result = &models.VoteResult{Changed: true, Action: models.VoteSwitched, Choice: choice}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Vote processed",
		zap.String("charity_id", charityId),
		zap.String("voter", wallet),
		zap.String("action", result.Action),
		zap.String("choice", choice))

	return result, nil
}

// tally maps a choice to (yes, no) deltas.
func tally(choice string, delta int64) (int64, int64) {
	if choice == models.ChoiceYes {
		return delta, 0
	}
	return 0, delta
}
