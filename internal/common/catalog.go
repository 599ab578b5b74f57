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

package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"charity-backend-go/internal/auth"
	"charity-backend-go/internal/models"

	"gopkg.in/yaml.v2"
)

// NftCatalogEntry is one collection item that may be burned for points.
// Content is the item's metadata file name, e.g. "25.json".
type NftCatalogEntry struct {
	Address string `yaml:"address"`
	Content string `yaml:"content"`
}

type NftCatalog struct {
	Items []NftCatalogEntry `yaml:"items"`
}

type AdminsConfig struct {
	Admins []string `yaml:"admins"`
}

func resolvePath(file string) (string, error) {
	if filepath.IsAbs(file) {
		return file, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return filepath.Join(wd, file), nil
}

func readYAML(file string, out interface{}) error {
	path, err := resolvePath(file)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unable to read %s: %w", file, err)
	}

	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unable to parse %s: %w", file, err)
	}
	return nil
}

func LoadNftCatalog(catalogFile string) ([]NftCatalogEntry, error) {
	var catalog NftCatalog
	if err := readYAML(catalogFile, &catalog); err != nil {
		return nil, err
	}

	for i, item := range catalog.Items {
		if strings.TrimSpace(item.Address) == "" {
			return nil, fmt.Errorf("item at index %d missing address", i)
		}
		if strings.TrimSpace(item.Content) == "" {
			return nil, fmt.Errorf("item at index %d missing content", i)
		}
	}

	return catalog.Items, nil
}

// LoadAdmins merges ADMIN_WALLETS with the optional admins file.
func LoadAdmins(cfg models.AuthConfig) (auth.Admins, error) {
	wallets := append([]string(nil), cfg.AdminWallets...)

	if cfg.AdminsFile != "" {
		var file AdminsConfig
		if err := readYAML(cfg.AdminsFile, &file); err != nil {
			return nil, err
		}
		wallets = append(wallets, file.Admins...)
	}

	return auth.NewAdmins(wallets), nil
}
