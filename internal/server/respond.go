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

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"charity-backend-go/internal/api"
	"charity-backend-go/internal/media"
	"charity-backend-go/internal/models"
	"charity-backend-go/internal/store"
	"charity-backend-go/internal/tonapi"
	"charity-backend-go/internal/tonproof"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const maxJSONBody = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("Failed to encode response", zap.Error(err))
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		zap.L().Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		msg = "internal server error"
	}
	writeMessage(w, status, msg)
}

func statusFor(err error) int {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrs),
		errors.Is(err, errBadRequest),
		errors.Is(err, api.ErrInvalidChoice),
		errors.Is(err, api.ErrInvalidStatus),
		errors.Is(err, api.ErrInvalidAmount),
		errors.Is(err, api.ErrInvalidAddress),
		errors.Is(err, api.ErrAddressRequired),
		errors.Is(err, api.ErrVotingClosed),
		errors.Is(err, api.ErrVotingExpired),
		errors.Is(err, api.ErrTooManyImages),
		errors.Is(err, api.ErrBurnMismatch),
		errors.Is(err, api.ErrInvalidNftContent),
		errors.Is(err, store.ErrInsufficientLimit),
		errors.Is(err, store.ErrInsufficientPoints),
		errors.Is(err, media.ErrInvalidImage):
		return http.StatusBadRequest

	case errors.Is(err, tonproof.ErrPayloadLength),
		errors.Is(err, tonproof.ErrPayloadSignature),
		errors.Is(err, tonproof.ErrPayloadExpired),
		errors.Is(err, tonproof.ErrPayloadReused),
		errors.Is(err, tonproof.ErrProofExpired),
		errors.Is(err, tonproof.ErrDomainMismatch),
		errors.Is(err, tonproof.ErrDomainLength),
		errors.Is(err, tonproof.ErrInvalidAddress),
		errors.Is(err, tonproof.ErrInvalidSignature),
		errors.Is(err, tonproof.ErrVerification):
		return http.StatusUnauthorized

	case errors.Is(err, api.ErrNotAuthor):
		return http.StatusForbidden

	case errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrCharityNotFound),
		errors.Is(err, store.ErrNftNotFound),
		errors.Is(err, store.ErrVoteNotFound):
		return http.StatusNotFound

	case errors.Is(err, api.ErrAlreadyProcessed),
		errors.Is(err, api.ErrAlreadyChecked),
		errors.Is(err, store.ErrConcurrentModification),
		errors.Is(err, store.ErrDuplicateReference),
		errors.Is(err, store.ErrCharityRetained):
		return http.StatusConflict

	case errors.Is(err, api.ErrBurnPending):
		return http.StatusAccepted

	case errors.Is(err, tonproof.ErrUpstream),
		errors.Is(err, tonapi.ErrTimeout),
		errors.Is(err, tonapi.ErrUpstream),
		errors.Is(err, tonapi.ErrNotFound),
		errors.Is(err, api.ErrChainUnavailable):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

var errBadRequest = errors.New("bad request")

// decodeJSON reads a size-limited JSON body into dst and validates it.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid json body: %v", errBadRequest, err)
	}
	return s.validate.Struct(dst)
}

func listParams(r *http.Request) (models.ListParams, error) {
	q := r.URL.Query()
	params := models.ListParams{Search: strings.TrimSpace(q.Get("search"))}

	var err error
	if v := q.Get("limit"); v != "" {
		if params.Limit, err = strconv.Atoi(v); err != nil || params.Limit < 0 {
			return params, fmt.Errorf("%w: invalid limit %q", errBadRequest, v)
		}
	}
	if v := q.Get("offset"); v != "" {
		if params.Offset, err = strconv.Atoi(v); err != nil || params.Offset < 0 {
			return params, fmt.Errorf("%w: invalid offset %q", errBadRequest, v)
		}
	}
	return params, nil
}
