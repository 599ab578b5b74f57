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

package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"charity-backend-go/internal/models"
	"charity-backend-go/internal/tonapi"

	"go.uber.org/zap"
)

// CookieName is the HTTP-only cookie that carries the access token.
const CookieName = "access_token"

// Admins is the set of wallets allowed to moderate, keyed by raw address.
type Admins map[string]struct{}

func NewAdmins(wallets []string) Admins {
	admins := make(Admins, len(wallets))
	for _, w := range wallets {
		raw, err := tonapi.RawForm(w)
		if err != nil {
			zap.L().Warn("Ignoring invalid admin wallet", zap.String("wallet", w), zap.Error(err))
			continue
		}
		admins[raw] = struct{}{}
	}
	return admins
}

func (a Admins) Contains(wallet string) bool {
	_, ok := a[wallet]
	return ok
}

// RequireAuth rejects requests without a valid token and stores the
// token's wallet in the request context.
func RequireAuth(tokens *TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := tokenFromRequest(r)
			if raw == "" {
				writeError(w, http.StatusUnauthorized, ErrMissingToken)
				return
			}

			wallet, err := tokens.Parse(raw)
			if err != nil {
				zap.L().Debug("Rejected access token", zap.Error(err))
				writeError(w, http.StatusUnauthorized, ErrInvalidToken)
				return
			}

			next.ServeHTTP(w, r.WithContext(models.WithWallet(r.Context(), wallet)))
		})
	}
}

// RequireAdmin must run after RequireAuth.
func RequireAdmin(admins Admins) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wallet := models.WalletFromContext(r.Context())
			if !admins.Contains(wallet) {
				zap.L().Warn("Non-admin wallet attempted moderation", zap.String("wallet", wallet))
				writeError(w, http.StatusForbidden, ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := r.Cookie(CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
