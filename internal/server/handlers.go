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
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"charity-backend-go/internal/api"
	"charity-backend-go/internal/auth"
	"charity-backend-go/internal/models"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	maxMultipartMemory = 32 << 20
	maxImageFields     = 4
)

func (s *Server) handleGeneratePayload(w http.ResponseWriter, r *http.Request) {
	resp, err := s.svc.GeneratePayload()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCheckProof(w http.ResponseWriter, r *http.Request) {
	var req models.CheckProofRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	resp, err := s.svc.Login(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    resp.Token,
		Path:     "/",
		Expires:  resp.ExpiresAt,
		MaxAge:   int(time.Until(resp.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateCharity(w http.ResponseWriter, r *http.Request) {
	wallet := models.WalletFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartMemory*2)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, r, fmt.Errorf("%w: invalid multipart form: %v", errBadRequest, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	req, err := s.charityRequest(r.MultipartForm)
	if err != nil {
		writeError(w, r, err)
		return
	}

	files, err := imageFiles(r.MultipartForm)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()

	uploads := make([]io.Reader, len(files))
	for i, f := range files {
		uploads[i] = f
	}

	charity, err := s.svc.CreateCharity(r.Context(), wallet, *req, uploads)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, charity)
}

func (s *Server) charityRequest(form *multipart.Form) (*models.CreateCharityRequest, error) {
	value := func(key string) string {
		if v := form.Value[key]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}

	deadline, err := time.Parse(time.RFC3339, value("deadline"))
	if err != nil {
		return nil, fmt.Errorf("%w: deadline must be an RFC 3339 date-time", errBadRequest)
	}
	amount, err := api.ParseAmount(value("amount"))
	if err != nil {
		return nil, err
	}

	req := &models.CreateCharityRequest{
		Title:       value("title"),
		Description: value("description"),
		Contact:     value("contact"),
		Deadline:    deadline,
		Amount:      amount,
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	return req, nil
}

// imageFiles opens image1..image4 in order.
func imageFiles(form *multipart.Form) ([]multipart.File, error) {
	var files []multipart.File
	for i := 1; i <= maxImageFields; i++ {
		headers := form.File[fmt.Sprintf("image%d", i)]
		if len(headers) == 0 {
			continue
		}
		f, err := headers[0].Open()
		if err != nil {
			for _, opened := range files {
				opened.Close()
			}
			return nil, fmt.Errorf("%w: unreadable image%d: %v", errBadRequest, i, err)
		}
		files = append(files, f)
	}
	return files, nil
}

func (s *Server) handleCreateCompany(w http.ResponseWriter, r *http.Request) {
	wallet := models.WalletFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartMemory*2)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, r, fmt.Errorf("%w: invalid multipart form: %v", errBadRequest, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	req, err := s.companyRequest(r.MultipartForm)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var upload io.Reader
	if headers := r.MultipartForm.File["image"]; len(headers) > 0 {
		f, err := headers[0].Open()
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: unreadable image: %v", errBadRequest, err))
			return
		}
		defer f.Close()
		upload = f
	}

	company, err := s.svc.CreateCompany(r.Context(), wallet, *req, upload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, company)
}

func (s *Server) companyRequest(form *multipart.Form) (*models.CreateCompanyRequest, error) {
	value := func(key string) string {
		if v := form.Value[key]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}

	expiredAt, err := time.Parse(time.RFC3339, value("expired_at"))
	if err != nil {
		return nil, fmt.Errorf("%w: expired_at must be an RFC 3339 date-time", errBadRequest)
	}
	amount, err := api.ParseAmount(value("total_amount"))
	if err != nil {
		return nil, err
	}

	req := &models.CreateCompanyRequest{
		Title:       value("title"),
		Description: value("description"),
		ExpiredAt:   expiredAt,
		TotalAmount: amount,
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *Server) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	params, err := listParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	companies, err := s.svc.ListCompanies(r.Context(), params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, companies)
}

func (s *Server) handleGetCharity(w http.ResponseWriter, r *http.Request) {
	charity, err := s.svc.GetCharity(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, charity)
}

func (s *Server) handleListCharities(w http.ResponseWriter, r *http.Request) {
	params, err := listParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	charities, err := s.svc.ListCharities(r.Context(), params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, charities)
}

func (s *Server) handleListInReview(w http.ResponseWriter, r *http.Request) {
	params, err := listParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	charities, err := s.svc.ListInReview(r.Context(), params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, charities)
}

func (s *Server) handleGetInReview(w http.ResponseWriter, r *http.Request) {
	charity, err := s.svc.GetInReview(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, charity)
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	var req models.VoteRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.svc.CastVote(r.Context(), chi.URLParam(r, "id"), models.WalletFromContext(r.Context()), req.Choice)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Message string `json:"message"`
		*models.VoteResult
	}{Message: "Vote processed", VoteResult: result})
}

func (s *Server) handleDeleteCharity(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteCharity(r.Context(), chi.URLParam(r, "id"), models.WalletFromContext(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Charity deleted and funds returned to user"})
}

func (s *Server) handleAwaitingModeration(w http.ResponseWriter, r *http.Request) {
	params, err := listParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	charities, err := s.svc.ListAwaitingModeration(r.Context(), params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, charities)
}

func (s *Server) handleModerate(w http.ResponseWriter, r *http.Request) {
	var req models.ModerateRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	charity, err := s.svc.Moderate(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	zap.L().Info("Moderation applied",
		zap.String("admin", models.WalletFromContext(r.Context())),
		zap.String("charity_id", charity.Id),
		zap.String("status", charity.Status))
	writeJSON(w, http.StatusOK, charity)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.svc.GetUser(r.Context(), models.WalletFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleUserCharities(w http.ResponseWriter, r *http.Request) {
	params, err := listParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	charities, err := s.svc.UserCharities(r.Context(), models.WalletFromContext(r.Context()), params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, charities)
}

func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	inventory, err := s.svc.Inventory(r.Context(), models.WalletFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inventory)
}

func (s *Server) handleUserDonations(w http.ResponseWriter, r *http.Request) {
	params, err := listParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	donations, err := s.svc.UserDonations(r.Context(), models.WalletFromContext(r.Context()), params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, donations)
}

func (s *Server) handleCheckBurn(w http.ResponseWriter, r *http.Request) {
	var req models.CheckBurnRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.svc.CheckBurn(r.Context(), models.WalletFromContext(r.Context()), req.NftAddress)
	if errors.Is(err, api.ErrBurnPending) {
		writeJSON(w, http.StatusAccepted, models.MessageResponse{Message: err.Error()})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if !s.webhookAuthorized(r) {
		writeMessage(w, http.StatusUnauthorized, "invalid webhook token")
		return
	}

	var event models.WebhookEvent
	if err := s.decodeJSON(w, r, &event); err != nil {
		writeError(w, r, err)
		return
	}
	if event.TxHash == "" {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	donation, recorded, err := s.svc.RecordDonation(r.Context(), event.TxHash)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := map[string]interface{}{"ok": true, "recorded": recorded}
	if donation != nil {
		resp["charity_id"] = donation.CharityId
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) webhookAuthorized(r *http.Request) bool {
	secret := s.cfg.WebhookToken
	if secret == "" {
		zap.L().Error("Webhook token is not configured")
		return false
	}

	candidates := []string{r.URL.Query().Get("token")}
	if bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		candidates = append(candidates, bearer)
	}
	for _, c := range candidates {
		if c != "" && subtle.ConstantTimeCompare([]byte(c), []byte(secret)) == 1 {
			return true
		}
	}
	return false
}
