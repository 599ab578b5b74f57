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
	"fmt"
	"io"
	"strings"

	"charity-backend-go/internal/models"
	"charity-backend-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// companyPointCost is what announcing a company takes from the creator.
const companyPointCost = 1

// CreateCompany spends one point of the creator and publishes the company.
// upload may be nil when the form carries no picture.
func (s *CharityService) CreateCompany(ctx context.Context, wallet string, req models.CreateCompanyRequest, upload io.Reader) (*models.Company, error) {
	if req.TotalAmount <= 0 {
		return nil, ErrInvalidAmount
	}

	user, err := s.db.GetUserByWallet(ctx, wallet)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, store.ErrInsufficientPoints
		}
		return nil, err
	}
	if user.Points < companyPointCost {
		return nil, fmt.Errorf("%w: have %d, need %d", store.ErrInsufficientPoints, user.Points, companyPointCost)
	}

	var uploads []io.Reader
	if upload != nil {
		uploads = append(uploads, upload)
	}
	images, err := s.storeImages(ctx, uploads)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	company := &models.Company{
		Id:            uuid.New().String(),
		CreatorWallet: wallet,
		Title:         strings.TrimSpace(req.Title),
		Description:   req.Description,
		Images:        images,
		TotalAmount:   req.TotalAmount,
		ExpiredAt:     req.ExpiredAt.UTC(),
		CreatedAt:     now,
	}

	err = s.db.WithTx(ctx, func(tx store.Repository) error {
		if err := tx.SpendPoints(ctx, wallet, companyPointCost, now); err != nil {
			return err
		}
		return tx.InsertCompany(ctx, company)
	})
	if err != nil {
		zap.L().Warn("Company creation failed", zap.String("wallet", wallet), zap.Error(err))
		s.discardImages(ctx, images)
		return nil, err
	}

	zap.L().Info("Company created",
		zap.String("company_id", company.Id),
		zap.String("creator", wallet),
		zap.Int64("total_amount", company.TotalAmount))

	return company, nil
}

func (s *CharityService) ListCompanies(ctx context.Context, params models.ListParams) ([]models.Company, error) {
	return s.db.ListCompanies(ctx, pageSize(params.Limit, defaultPageSize), pageOffset(params.Offset))
}
