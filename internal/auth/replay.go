package auth

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
	"go.uber.org/zap"
)

const (
	payloadKeyPrefix = "payload:"
	expiryKeyPrefix  = "expiry:"
)

// ReplayCache is a LevelDB-backed record of proof payloads that have already
// been exchanged for a token. Entries are kept until the payload expires.
type ReplayCache struct {
	db  *leveldb.DB
	now func() time.Time

	// mu makes the lookup and write in Remember one step.
	mu sync.Mutex
}

func NewReplayCache(path string) (*ReplayCache, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("replay cache path required")
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, fmt.Errorf("resolve replay cache path: %w", err)
	}
	db, err := leveldb.OpenFile(abs, nil)
	if err != nil {
		return nil, fmt.Errorf("open replay cache: %w", err)
	}
	zap.L().Info("Payload replay cache opened", zap.String("path", abs))
	return &ReplayCache{db: db, now: time.Now}, nil
}

func (c *ReplayCache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Remember stores payload until expiresAt. It returns false if the payload
// is already present and not yet expired.
func (c *ReplayCache) Remember(ctx context.Context, payload string, expiresAt time.Time) (bool, error) {
	if c == nil || c.db == nil {
		return false, fmt.Errorf("replay cache not configured")
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := []byte(payloadKeyPrefix + payload)
	existing, err := c.db.Get(key, nil)
	switch {
	case errors.Is(err, leveldb.ErrNotFound):
	case err != nil:
		return false, fmt.Errorf("load payload: %w", err)
	default:
		if int64(binary.BigEndian.Uint64(existing)) >= c.now().Unix() {
			return false, nil
		}
	}

	expiry := expiresAt.Unix()
	batch := new(leveldb.Batch)
	batch.Put(key, encodeUnix(expiry))
	batch.Put([]byte(expiryKey(expiry, payload)), nil)
	if err := c.db.Write(batch, nil); err != nil {
		return false, fmt.Errorf("record payload: %w", err)
	}
	return true, nil
}

// Prune deletes every payload that expired before cutoff.
func (c *ReplayCache) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	if c == nil || c.db == nil {
		return 0, fmt.Errorf("replay cache not configured")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoffKey := []byte(expiryKey(cutoff.Unix(), ""))
	iter := c.db.NewIterator(util.BytesPrefix([]byte(expiryKeyPrefix)), nil)
	defer iter.Release()

	batch := new(leveldb.Batch)
	pruned := 0
	for iter.Next() {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if string(iter.Key()) >= string(cutoffKey) {
			break
		}
		payload, ok := parseExpiryKey(iter.Key())
		if !ok {
			continue
		}
		batch.Delete(append([]byte(nil), iter.Key()...))
		batch.Delete([]byte(payloadKeyPrefix + payload))
		pruned++
	}
	if err := iter.Error(); err != nil {
		return 0, fmt.Errorf("iterate expired payloads: %w", err)
	}
	if batch.Len() > 0 {
		if err := c.db.Write(batch, nil); err != nil {
			return 0, fmt.Errorf("prune payloads: %w", err)
		}
	}
	return pruned, nil
}

func expiryKey(unix int64, payload string) string {
	return fmt.Sprintf("%s%020d:%s", expiryKeyPrefix, unix, payload)
}

func parseExpiryKey(key []byte) (string, bool) {
	parts := strings.SplitN(string(key), ":", 3)
	if len(parts) != 3 || parts[2] == "" {
		return "", false
	}
	return parts[2], true
}

func encodeUnix(unix int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(unix))
	return buf
}
