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

package tonapi

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"charity-backend-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

var (
	ErrTimeout  = errors.New("chain api timeout")
	ErrNotFound = errors.New("chain api resource not found")
	ErrUpstream = errors.New("chain api error")

	ErrMissingApiKey = errors.New("tonapi key is required")
)

const (
	defaultBaseURL    = "https://tonapi.io"
	defaultTimeout    = 10 * time.Second
	defaultDecimals   = 9
	nftHistoryLimit   = 10
	maxResponseBytes  = 4 << 20
	nftTransferAction = "NftItemTransfer"
)

// Client is a thin tonapi.io v2 client. It never retries; callers that
// can afford to wait wrap calls in their own backoff.
type Client struct {
	baseURL      string
	apiKey       string
	jettonMaster string
	httpClient   http.Client
}

func NewClient(cfg models.TonApiConfig) (*Client, error) {
	if strings.TrimSpace(cfg.ApiKey) == "" {
		return nil, ErrMissingApiKey
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient, err := createCustomHttpClient(timeout)
	if err != nil {
		return nil, fmt.Errorf("unable to create custom http client: %w", err)
	}

	return &Client{
		baseURL:      baseURL,
		apiKey:       cfg.ApiKey,
		jettonMaster: cfg.JettonMaster,
		httpClient:   httpClient,
	}, nil
}

func createCustomHttpClient(timeout time.Duration) (http.Client, error) {
	tr := &http.Transport{
		ResponseHeaderTimeout: timeout,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			Timeout:   5 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		MaxIdleConnsPerHost:   5,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		return http.Client{}, err
	}

	return http.Client{
		Transport: tr,
		Timeout:   timeout,
	}, nil
}

// AccountPublicKey returns the ed25519 key held by a wallet contract.
func (c *Client) AccountPublicKey(ctx context.Context, account string) (ed25519.PublicKey, error) {
	body, err := c.get(ctx, "/v2/accounts/"+url.PathEscape(account)+"/publickey", nil)
	if err != nil {
		return nil, fmt.Errorf("unable to get public key: %w", err)
	}

	key, err := hex.DecodeString(body.Get("public_key").String())
	if err != nil || len(key) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: malformed public key for %s", ErrUpstream, account)
	}
	return ed25519.PublicKey(key), nil
}

// LatestNftEvent returns the id of the most recent event in an NFT's history.
func (c *Client) LatestNftEvent(ctx context.Context, nft string) (string, error) {
	query := url.Values{}
	query.Set("limit", fmt.Sprintf("%d", nftHistoryLimit))

	body, err := c.get(ctx, "/v2/nfts/"+url.PathEscape(nft)+"/history", query)
	if err != nil {
		return "", fmt.Errorf("unable to get nft history: %w", err)
	}

	eventId := body.Get("events.0.event_id").String()
	if eventId == "" {
		return "", fmt.Errorf("%w: no history for nft %s", ErrNotFound, nft)
	}
	return eventId, nil
}

// EventNftTransfer returns the first NftItemTransfer action of an event.
func (c *Client) EventNftTransfer(ctx context.Context, eventId string) (*models.NftTransfer, error) {
	body, err := c.get(ctx, "/v2/events/"+url.PathEscape(eventId), nil)
	if err != nil {
		return nil, fmt.Errorf("unable to get event: %w", err)
	}

	var transfer *models.NftTransfer
	body.Get("actions").ForEach(func(_, action gjson.Result) bool {
		if action.Get("type").String() != nftTransferAction {
			return true
		}
		item := action.Get(nftTransferAction)
		transfer = &models.NftTransfer{
			EventId:   eventId,
			Nft:       normalize(item.Get("nft").String()),
			Sender:    normalize(item.Get("sender.address").String()),
			Recipient: normalize(item.Get("recipient.address").String()),
		}
		return false
	})

	if transfer == nil {
		return nil, fmt.Errorf("%w: event %s has no nft transfer", ErrNotFound, eventId)
	}
	return transfer, nil
}

// LastNftTransfer resolves the latest transfer of an NFT.
func (c *Client) LastNftTransfer(ctx context.Context, nft string) (*models.NftTransfer, error) {
	eventId, err := c.LatestNftEvent(ctx, nft)
	if err != nil {
		return nil, err
	}
	return c.EventNftTransfer(ctx, eventId)
}

// JettonBalance returns the owner's balance of the configured jetton.
// An owner without a jetton wallet holds zero.
func (c *Client) JettonBalance(ctx context.Context, owner string) (*models.JettonBalance, error) {
	if c.jettonMaster == "" {
		return nil, fmt.Errorf("jetton master is not configured")
	}

	path := "/v2/accounts/" + url.PathEscape(owner) + "/jettons/" + url.PathEscape(c.jettonMaster)
	body, err := c.get(ctx, path, nil)
	if errors.Is(err, ErrNotFound) {
		return &models.JettonBalance{Raw: decimal.Zero, Decimals: defaultDecimals}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to get jetton balance: %w", err)
	}

	raw, err := decimal.NewFromString(body.Get("balance").String())
	if err != nil {
		return nil, fmt.Errorf("%w: malformed jetton balance: %v", ErrUpstream, err)
	}

	decimals := int32(defaultDecimals)
	if d := body.Get("jetton.decimals"); d.Exists() {
		decimals = int32(d.Int())
	}

	return &models.JettonBalance{Raw: raw, Decimals: decimals}, nil
}

// Transaction fetches an indexed transaction by hash.
func (c *Client) Transaction(ctx context.Context, hash string) (*models.ChainTransaction, error) {
	body, err := c.get(ctx, "/v2/blockchain/transactions/"+url.PathEscape(hash), nil)
	if err != nil {
		return nil, fmt.Errorf("unable to get transaction: %w", err)
	}

	txHash := body.Get("hash").String()
	if txHash == "" {
		txHash = hash
	}

	return &models.ChainTransaction{
		Hash:        txHash,
		Success:     body.Get("success").Bool(),
		Account:     normalize(body.Get("account.address").String()),
		Source:      normalize(body.Get("in_msg.source.address").String()),
		Destination: normalize(body.Get("in_msg.destination.address").String()),
		Value:       body.Get("in_msg.value").Int(),
	}, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (gjson.Result, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return gjson.Result{}, fmt.Errorf("%w: GET %s", ErrTimeout, path)
		}
		return gjson.Result{}, fmt.Errorf("%w: GET %s: %v", ErrUpstream, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if isTimeout(err) {
			return gjson.Result{}, fmt.Errorf("%w: reading %s", ErrTimeout, path)
		}
		return gjson.Result{}, fmt.Errorf("%w: reading %s: %v", ErrUpstream, path, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return gjson.Result{}, fmt.Errorf("%w: GET %s", ErrNotFound, path)
	case resp.StatusCode >= 300:
		zap.L().Warn("Chain API request failed",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("error", gjson.GetBytes(data, "error").String()))
		return gjson.Result{}, fmt.Errorf("%w: GET %s returned %d", ErrUpstream, path, resp.StatusCode)
	}

	if !gjson.ValidBytes(data) {
		return gjson.Result{}, fmt.Errorf("%w: invalid json from %s", ErrUpstream, path)
	}
	return gjson.ParseBytes(data), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func normalize(addr string) string {
	if addr == "" {
		return ""
	}
	raw, err := RawForm(addr)
	if err != nil {
		return addr
	}
	return raw
}
