package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"charity-backend-go/internal/models"

	"github.com/google/uuid"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func setupTestDb(t *testing.T) (*Service, func()) {
	t.Helper()

	service, err := NewService(context.Background(), models.DatabaseConfig{
		Driver:       "sqlite3",
		Path:         fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String()),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	cleanup := func() {
		service.Close()
	}

	return service, cleanup
}

func createTestUser(t *testing.T, service *Service, wallet string, limit int64) *models.User {
	t.Helper()

	ctx := context.Background()
	user, _, err := service.EnsureUser(ctx, wallet, testNow)
	if err != nil {
		t.Fatalf("EnsureUser failed: %v", err)
	}
	if limit > 0 {
		if _, err := service.AdjustLimit(ctx, grantParams(wallet, limit)); err != nil {
			t.Fatalf("Initial grant failed: %v", err)
		}
		user.Limit = limit
	}
	return user
}

func createTestCharity(t *testing.T, service *Service, author, status string, createdAt time.Time) *models.Charity {
	t.Helper()

	charity := &models.Charity{
		Id:             uuid.New().String(),
		AuthorWallet:   author,
		Title:          "Water for " + status,
		Description:    "Wells in the village",
		Contact:        "@organiser",
		Images:         models.ImageSet{},
		DonationNeeded: 40,
		Deadline:       createdAt.Add(30 * 24 * time.Hour),
		Status:         status,
		CreatedAt:      createdAt,
	}
	if err := service.InsertCharity(context.Background(), charity); err != nil {
		t.Fatalf("InsertCharity failed: %v", err)
	}
	return charity
}

func TestNewService_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  models.DatabaseConfig
	}{
		{"empty path", models.DatabaseConfig{Driver: "sqlite3", MaxOpenConns: 1, PingTimeout: time.Second}},
		{"zero open conns", models.DatabaseConfig{Driver: "sqlite3", Path: "x.db", PingTimeout: time.Second}},
		{"negative idle conns", models.DatabaseConfig{Driver: "sqlite3", Path: "x.db", MaxOpenConns: 1, MaxIdleConns: -1, PingTimeout: time.Second}},
		{"zero ping timeout", models.DatabaseConfig{Driver: "sqlite3", Path: "x.db", MaxOpenConns: 1}},
		{"unknown driver", models.DatabaseConfig{Driver: "oracle", Path: "x.db", MaxOpenConns: 1, PingTimeout: time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewService(context.Background(), tt.cfg); err == nil {
				t.Errorf("Expected error for %s, got nil", tt.name)
			}
		})
	}
}

func TestSqliteDSN(t *testing.T) {
	if got := sqliteDSN("charity.db"); got != "charity.db?"+sqliteParams {
		t.Errorf("Unexpected DSN %s", got)
	}
	if got := sqliteDSN("file:x?mode=memory"); got != "file:x?mode=memory&"+sqliteParams {
		t.Errorf("Unexpected DSN %s", got)
	}
}
