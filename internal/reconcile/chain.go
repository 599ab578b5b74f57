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

package reconcile

import (
	"context"
	"errors"
	"time"

	"charity-backend-go/internal/api"
	"charity-backend-go/internal/models"
	"charity-backend-go/internal/tonapi"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// RetryingChain retries transient chain API failures with exponential
// backoff. Not-found answers are returned immediately.
type RetryingChain struct {
	inner      api.ChainClient
	maxRetries uint64
	initial    time.Duration
}

var _ api.ChainClient = (*RetryingChain)(nil)

func NewRetryingChain(inner api.ChainClient, maxRetries uint64) *RetryingChain {
	return &RetryingChain{inner: inner, maxRetries: maxRetries, initial: 500 * time.Millisecond}
}

func (c *RetryingChain) LastNftTransfer(ctx context.Context, nft string) (*models.NftTransfer, error) {
	var out *models.NftTransfer
	err := c.retry(ctx, "last_nft_transfer", func() error {
		var err error
		out, err = c.inner.LastNftTransfer(ctx, nft)
		return err
	})
	return out, err
}

func (c *RetryingChain) JettonBalance(ctx context.Context, owner string) (*models.JettonBalance, error) {
	var out *models.JettonBalance
	err := c.retry(ctx, "jetton_balance", func() error {
		var err error
		out, err = c.inner.JettonBalance(ctx, owner)
		return err
	})
	return out, err
}

func (c *RetryingChain) Transaction(ctx context.Context, hash string) (*models.ChainTransaction, error) {
	var out *models.ChainTransaction
	err := c.retry(ctx, "transaction", func() error {
		var err error
		out, err = c.inner.Transaction(ctx, hash)
		return err
	})
	return out, err
}

func (c *RetryingChain) retry(ctx context.Context, call string, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initial
	policy.MaxInterval = 10 * c.initial

	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if !transient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(policy, c.maxRetries), ctx), func(err error, wait time.Duration) {
		zap.L().Warn("Chain call failed, retrying",
			zap.String("call", call),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
	})
}

func transient(err error) bool {
	return errors.Is(err, tonapi.ErrTimeout) || errors.Is(err, tonapi.ErrUpstream)
}
