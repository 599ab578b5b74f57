package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"charity-backend-go/internal/database"
	"charity-backend-go/internal/models"
	"charity-backend-go/internal/store"
	"charity-backend-go/internal/tonapi"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	authorWallet = "0:1111111111111111111111111111111111111111111111111111111111111111"
	voterWallet  = "0:2222222222222222222222222222222222222222222222222222222222222222"
	otherWallet  = "0:3333333333333333333333333333333333333333333333333333333333333333"
	payoutWallet = "0:4444444444444444444444444444444444444444444444444444444444444444"
	nftRaw       = "0:5555555555555555555555555555555555555555555555555555555555555555"
)

var testStart = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

type fakeChain struct {
	mu           sync.Mutex
	transfers    map[string]*models.NftTransfer
	transactions map[string]*models.ChainTransaction
	balance      decimal.Decimal
	err          error
	calls        int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		transfers:    make(map[string]*models.NftTransfer),
		transactions: make(map[string]*models.ChainTransaction),
	}
}

func (f *fakeChain) LastNftTransfer(ctx context.Context, nft string) (*models.NftTransfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	transfer, ok := f.transfers[nft]
	if !ok {
		return nil, fmt.Errorf("%w: no history", tonapi.ErrNotFound)
	}
	return transfer, nil
}

func (f *fakeChain) JettonBalance(ctx context.Context, owner string) (*models.JettonBalance, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.JettonBalance{Raw: f.balance, Decimals: 9}, nil
}

func (f *fakeChain) Transaction(ctx context.Context, hash string) (*models.ChainTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	tx, ok := f.transactions[hash]
	if !ok {
		return nil, fmt.Errorf("%w: %s", tonapi.ErrNotFound, hash)
	}
	return tx, nil
}

type fakeProofs struct {
	wallet string
	err    error
}

func (f *fakeProofs) GeneratePayload() (string, error) {
	return "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff", nil
}

func (f *fakeProofs) CheckProof(ctx context.Context, req models.CheckProofRequest) (string, error) {
	return f.wallet, f.err
}

type fakeTokens struct{}

func (fakeTokens) Issue(wallet string) (string, time.Time, error) {
	return "token-for-" + wallet, testStart.Add(15 * time.Minute), nil
}

type fakeImages struct {
	stored    int
	discarded []string
	failAfter int
}

func (f *fakeImages) Store(ctx context.Context, r io.Reader) (*models.CharityImage, error) {
	if _, err := io.ReadAll(r); err != nil {
		return nil, err
	}
	if f.failAfter > 0 && f.stored >= f.failAfter {
		return nil, errors.New("bucket unavailable")
	}
	f.stored++
	return &models.CharityImage{
		OriginalURL:  fmt.Sprintf("https://cdn.example.com/charities/originals/%d.jpg", f.stored),
		ThumbURL:     fmt.Sprintf("https://cdn.example.com/charities/thumbs/%d.jpg", f.stored),
		OriginalSize: [2]int{1024, 600},
		ThumbSize:    [2]int{400, 240},
	}, nil
}

func (f *fakeImages) Discard(ctx context.Context, img models.CharityImage) error {
	f.discarded = append(f.discarded, img.OriginalURL)
	return nil
}

// faultyStore injects errors and stale reads into the transactions of a
// real store.
type faultyStore struct {
	store.Store

	mu     sync.Mutex
	faults map[string]error
	stale  map[string]models.Vote
}

func newFaultyStore(inner store.Store) *faultyStore {
	return &faultyStore{
		Store:  inner,
		faults: make(map[string]error),
		stale:  make(map[string]models.Vote),
	}
}

func (f *faultyStore) failOn(method, key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults[method+":"+key] = err
}

func (f *faultyStore) staleVote(vote models.Vote) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stale[vote.CharityId+":"+vote.VoterWallet] = vote
}

func (f *faultyStore) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults = make(map[string]error)
	f.stale = make(map[string]models.Vote)
}

func (f *faultyStore) fault(method, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.faults[method+":"+key]
}

func (f *faultyStore) WithTx(ctx context.Context, fn func(tx store.Repository) error) error {
	return f.Store.WithTx(ctx, func(tx store.Repository) error {
		return fn(&faultyRepo{Repository: tx, owner: f})
	})
}

type faultyRepo struct {
	store.Repository
	owner *faultyStore
}

func (r *faultyRepo) MarkCharityRefunded(ctx context.Context, charityId string, at time.Time) (bool, error) {
	if err := r.owner.fault("MarkCharityRefunded", charityId); err != nil {
		return false, err
	}
	return r.Repository.MarkCharityRefunded(ctx, charityId, at)
}

func (r *faultyRepo) MarkNftChecked(ctx context.Context, address, wallet string, at time.Time) (bool, error) {
	if err := r.owner.fault("MarkNftChecked", address); err != nil {
		return false, err
	}
	return r.Repository.MarkNftChecked(ctx, address, wallet, at)
}

func (r *faultyRepo) InsertCharity(ctx context.Context, charity *models.Charity) error {
	if err := r.owner.fault("InsertCharity", charity.AuthorWallet); err != nil {
		return err
	}
	return r.Repository.InsertCharity(ctx, charity)
}

func (r *faultyRepo) InsertCompany(ctx context.Context, company *models.Company) error {
	if err := r.owner.fault("InsertCompany", company.CreatorWallet); err != nil {
		return err
	}
	return r.Repository.InsertCompany(ctx, company)
}

func (r *faultyRepo) GetVote(ctx context.Context, charityId, wallet string) (*models.Vote, error) {
	r.owner.mu.Lock()
	vote, ok := r.owner.stale[charityId+":"+wallet]
	r.owner.mu.Unlock()
	if ok {
		return &vote, nil
	}
	return r.Repository.GetVote(ctx, charityId, wallet)
}

type testEnv struct {
	svc    *CharityService
	db     *database.Service
	chain  *fakeChain
	proofs *fakeProofs
	images *fakeImages
	clock  *testClock
}

func setupTestService(t *testing.T) (*testEnv, func()) {
	t.Helper()

	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Driver:       "sqlite3",
		Path:         fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String()),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	env := &testEnv{
		db:     db,
		chain:  newFakeChain(),
		proofs: &fakeProofs{},
		images: &fakeImages{},
		clock:  &testClock{now: testStart},
	}

	svc, err := NewCharityService(Dependencies{
		Store:  db,
		Chain:  env.chain,
		Proofs: env.proofs,
		Tokens: fakeTokens{},
		Images: env.images,
	}, models.CharityConfig{
		VotingWindow: 30 * time.Minute,
		RefundGrace:  10 * time.Minute,
		MaxImages:    4,
	}, models.ReconcileConfig{
		BurnSettleDelay: time.Minute,
		BurnClaimTTL:    24 * time.Hour,
	})
	if err != nil {
		db.Close()
		t.Fatalf("Failed to create service: %v", err)
	}
	svc.now = env.clock.Now
	env.svc = svc

	return env, func() { db.Close() }
}

func grantTestLimit(t *testing.T, env *testEnv, wallet string, amount int64) {
	t.Helper()
	if _, err := env.svc.GrantLimit(context.Background(), wallet, amount, ""); err != nil {
		t.Fatalf("Failed to grant limit: %v", err)
	}
}

func createTestCharity(t *testing.T, env *testEnv, wallet string, amount int64) *models.Charity {
	t.Helper()
	charity, err := env.svc.CreateCharity(context.Background(), wallet, models.CreateCharityRequest{
		Title:       "Clean water",
		Description: "Wells for the village",
		Contact:     "@organizer",
		Deadline:    testStart.Add(30 * 24 * time.Hour),
		Amount:      amount,
	}, nil)
	if err != nil {
		t.Fatalf("Failed to create charity: %v", err)
	}
	return charity
}

func userLimit(t *testing.T, env *testEnv, wallet string) int64 {
	t.Helper()
	user, err := env.db.GetUserByWallet(context.Background(), wallet)
	if err != nil {
		t.Fatalf("Failed to get user: %v", err)
	}
	return user.Limit
}

func imageUploads(n int) []io.Reader {
	uploads := make([]io.Reader, n)
	for i := range uploads {
		uploads[i] = bytes.NewReader([]byte("image"))
	}
	return uploads
}

func TestNewCharityService_Validation(t *testing.T) {
	if _, err := NewCharityService(Dependencies{}, models.CharityConfig{VotingWindow: time.Minute}, models.ReconcileConfig{}); err == nil {
		t.Error("Expected error without store")
	}
}

func TestHealthCheck(t *testing.T) {
	env, cleanup := setupTestService(t)
	defer cleanup()

	if err := env.svc.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck failed: %v", err)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"40", 40, false},
		{"40.0", 40, false},
		{"1000000000", 1000000000, false},
		{"0", 0, true},
		{"-5", 0, true},
		{"1.5", 0, true},
		{"abc", 0, true},
		{"", 0, true},
		{"99999999999999999999999", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseAmount(%q): expected error, got %d", tt.in, got)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseAmount(%q) = %d, %v; want %d", tt.in, got, err, tt.want)
		}
	}
}
