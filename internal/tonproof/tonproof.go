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

// Package tonproof issues TON Connect proof payloads and verifies the
// ton_proof items wallets sign over them.
package tonproof

import (
	"context"
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"charity-backend-go/internal/models"
	"charity-backend-go/internal/tonapi"

	"github.com/xssnick/tonutils-go/address"
	"go.uber.org/zap"
)

var (
	ErrPayloadLength    = errors.New("invalid payload length")
	ErrPayloadSignature = errors.New("invalid payload signature")
	ErrPayloadExpired   = errors.New("payload expired")
	ErrPayloadReused    = errors.New("payload already used")
	ErrProofExpired     = errors.New("ton proof has expired")
	ErrDomainMismatch   = errors.New("wrong proof domain")
	ErrDomainLength     = errors.New("domain length mismatch")
	ErrInvalidAddress   = errors.New("invalid wallet address")
	ErrInvalidSignature = errors.New("malformed proof signature")
	ErrVerification     = errors.New("proof verification failed")
	ErrUpstream         = errors.New("public key lookup failed")
)

const (
	PayloadSize = 32

	proofPrefix   = "ton-proof-item-v2/"
	connectPrefix = "ton-connect"
)

// Config is the immutable verifier configuration.
type Config struct {
	Secret     string
	Domain     string
	PayloadTTL time.Duration
	ProofTTL   time.Duration
}

// PublicKeyResolver fetches the public key stored in a wallet contract.
type PublicKeyResolver interface {
	AccountPublicKey(ctx context.Context, account string) (ed25519.PublicKey, error)
}

// ReplayGuard remembers accepted payloads until they expire.
type ReplayGuard interface {
	// Remember reports false if the payload was already accepted.
	Remember(ctx context.Context, payload string, expiresAt time.Time) (bool, error)
}

type Service struct {
	secret     []byte
	domain     string
	payloadTTL time.Duration
	proofTTL   time.Duration
	keys       PublicKeyResolver
	replay     ReplayGuard
	now        func() time.Time
	random     io.Reader
}

type Option func(*Service)

// WithReplayGuard makes every payload single use.
func WithReplayGuard(guard ReplayGuard) Option {
	return func(s *Service) { s.replay = guard }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithRandom(r io.Reader) Option {
	return func(s *Service) { s.random = r }
}

func NewService(cfg Config, keys PublicKeyResolver, opts ...Option) (*Service, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("proof secret cannot be empty")
	}
	if cfg.Domain == "" {
		return nil, fmt.Errorf("proof domain cannot be empty")
	}
	if cfg.PayloadTTL <= 0 || cfg.ProofTTL <= 0 {
		return nil, fmt.Errorf("payload and proof TTL must be positive")
	}
	if keys == nil {
		return nil, fmt.Errorf("public key resolver is required")
	}

	s := &Service{
		secret:     []byte(cfg.Secret),
		domain:     cfg.Domain,
		payloadTTL: cfg.PayloadTTL,
		proofTTL:   cfg.ProofTTL,
		keys:       keys,
		now:        time.Now,
		random:     rand.Reader,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// GeneratePayload returns a self-verifying hex token: 8 random bytes, an
// 8 byte big-endian expiry and the first 16 bytes of their HMAC.
func (s *Service) GeneratePayload() (string, error) {
	payload := make([]byte, 16, PayloadSize)
	if _, err := io.ReadFull(s.random, payload[:8]); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	expiresAt := s.now().Add(s.payloadTTL).Unix()
	binary.BigEndian.PutUint64(payload[8:16], uint64(expiresAt))

	payload = append(payload, s.mac(payload)...)
	return hex.EncodeToString(payload[:PayloadSize]), nil
}

// CheckPayload validates a token issued by GeneratePayload and returns its expiry.
func (s *Service) CheckPayload(payloadHex string) (time.Time, error) {
	payload, err := hex.DecodeString(payloadHex)
	if err != nil || len(payload) != PayloadSize {
		return time.Time{}, fmt.Errorf("%w: got %d bytes, expected %d", ErrPayloadLength, len(payload), PayloadSize)
	}

	expected := s.mac(payload[:16])[:16]
	if !hmac.Equal(payload[16:], expected) {
		return time.Time{}, ErrPayloadSignature
	}

	expiresAt := time.Unix(int64(binary.BigEndian.Uint64(payload[8:16])), 0)
	if s.now().Unix() > expiresAt.Unix() {
		return time.Time{}, ErrPayloadExpired
	}
	return expiresAt, nil
}

// CheckProof runs the full verification and returns the proven wallet in raw form.
func (s *Service) CheckProof(ctx context.Context, req models.CheckProofRequest) (string, error) {
	proof := req.Proof

	expiresAt, err := s.CheckPayload(proof.Payload)
	if err != nil {
		return "", err
	}

	if s.now().Unix() > proof.Timestamp+int64(s.proofTTL/time.Second) {
		return "", ErrProofExpired
	}

	if proof.Domain.Value != s.domain {
		return "", fmt.Errorf("%w: got %s, expected %s", ErrDomainMismatch, proof.Domain.Value, s.domain)
	}
	if int(proof.Domain.LengthBytes) != len(proof.Domain.Value) {
		return "", fmt.Errorf("%w: declared %d, actual %d", ErrDomainLength, proof.Domain.LengthBytes, len(proof.Domain.Value))
	}

	addr, err := tonapi.ParseAddress(req.Address)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	signature, err := base64.StdEncoding.DecodeString(proof.Signature)
	if err != nil || len(signature) != ed25519.SignatureSize {
		return "", ErrInvalidSignature
	}

	hash := SigningHash(addr, proof.Domain.Value, proof.Timestamp, proof.Payload)

	publicKey, err := s.keys.AccountPublicKey(ctx, addr.StringRaw())
	if err != nil {
		zap.L().Warn("Public key lookup failed", zap.String("wallet", addr.StringRaw()), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if !ed25519.Verify(publicKey, hash, signature) {
		return "", ErrVerification
	}

	if s.replay != nil {
		fresh, err := s.replay.Remember(ctx, proof.Payload, expiresAt)
		if err != nil {
			return "", fmt.Errorf("failed to record payload: %w", err)
		}
		if !fresh {
			return "", ErrPayloadReused
		}
	}

	return addr.StringRaw(), nil
}

// SigningHash rebuilds the ton-proof-item-v2 message a wallet signs.
func SigningHash(addr *address.Address, domain string, timestamp int64, payload string) []byte {
	msg := make([]byte, 0, len(proofPrefix)+4+32+4+len(domain)+8+len(payload))
	msg = append(msg, proofPrefix...)
	msg = binary.BigEndian.AppendUint32(msg, uint32(addr.Workchain()))
	msg = append(msg, addr.Data()...)
	msg = binary.LittleEndian.AppendUint32(msg, uint32(len(domain)))
	msg = append(msg, domain...)
	msg = binary.LittleEndian.AppendUint64(msg, uint64(timestamp))
	msg = append(msg, payload...)

	msgHash := sha256.Sum256(msg)

	full := make([]byte, 0, 2+len(connectPrefix)+sha256.Size)
	full = append(full, 0xff, 0xff)
	full = append(full, connectPrefix...)
	full = append(full, msgHash[:]...)

	fullHash := sha256.Sum256(full)
	return fullHash[:]
}

func (s *Service) mac(data []byte) []byte {
	h := hmac.New(sha256.New, s.secret)
	h.Write(data)
	return h.Sum(nil)
}
