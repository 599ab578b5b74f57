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
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidChoice     = errors.New(`choice must be "yes" or "no"`)
	ErrInvalidStatus     = errors.New(`status must be "accepted" or "rejected"`)
	ErrInvalidAmount     = errors.New("amount must be a positive whole number")
	ErrInvalidAddress    = errors.New("invalid TON address")
	ErrAddressRequired   = errors.New("payout address is required to accept a charity")
	ErrVotingClosed      = errors.New("voting is allowed only while charity is in_review")
	ErrVotingExpired     = errors.New("voting period has expired")
	ErrNotAuthor         = errors.New("you are not the author of this charity")
	ErrAlreadyProcessed  = errors.New("charity already processed")
	ErrTooManyImages     = errors.New("too many images")
	ErrAlreadyChecked    = errors.New("nft already checked")
	ErrBurnMismatch      = errors.New("nft transfer does not match burn criteria")
	ErrBurnPending       = errors.New("burn not visible on chain yet, claim recorded")
	ErrInvalidNftContent = errors.New("invalid nft content format or zero points")
	ErrChainUnavailable  = errors.New("chain client not configured")
)

// ParseAmount parses a decimal string into a positive whole amount.
func ParseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if !d.IsInteger() || !d.IsPositive() || d.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return 0, fmt.Errorf("%w: %s", ErrInvalidAmount, d.String())
	}
	return d.IntPart(), nil
}
