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

package database

import (
	"context"
	"fmt"

	"charity-backend-go/internal/models"

	"go.uber.org/zap"
)

func (r *queries) InsertCompany(ctx context.Context, c *models.Company) error {
	_, err := r.exec(ctx, queryInsertCompany,
		c.Id, c.CreatorWallet, c.Title, c.Description, c.Images, c.TotalAmount, c.ExpiredAt.UTC(), c.CreatedAt.UTC())
	if err != nil {
		zap.L().Error("Failed to insert company", zap.String("id", c.Id), zap.Error(err))
		return fmt.Errorf("unable to insert company: %w", err)
	}
	return nil
}

// ListCompanies returns companies newest first.
func (r *queries) ListCompanies(ctx context.Context, limit, offset int) ([]models.Company, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	companies := []models.Company{}
	if err := r.selectAll(ctx, &companies, queryListCompanies, limit, offset); err != nil {
		return nil, fmt.Errorf("unable to list companies: %w", err)
	}
	return companies, nil
}
