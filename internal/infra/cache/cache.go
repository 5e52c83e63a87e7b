// Package cache is an optional Redis-backed cache for rendered PDFs. It is
// best-effort: every failure is logged and treated as a miss, and the
// pipeline works identically with caching disabled.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gilmarTelles/xlsx-to-pdf/internal/convert"
	"github.com/gilmarTelles/xlsx-to-pdf/internal/infra/logging"
)

const opTimeout = 1 * time.Second

// PDFCache stores rendered PDFs keyed by upload content and options.
type PDFCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New creates a cache around rdb. A nil client yields a cache where every
// read misses and every write is dropped.
func New(rdb *redis.Client, ttl time.Duration) *PDFCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &PDFCache{rdb: rdb, ttl: ttl}
}

// Key derives the cache key from the upload bytes and the options that
// influence the rendered output.
func Key(upload []byte, opts convert.Options) string {
	h := sha256.New()
	h.Write(upload)
	h.Write([]byte(strconv.Itoa(opts.FontSizePt)))
	h.Write([]byte(strconv.FormatBool(opts.Landscape)))
	h.Write([]byte(strconv.FormatBool(opts.SinglePageSheets)))
	return "pdfcache:" + hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached PDF for key, or (nil, false) on miss or failure.
func (c *PDFCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	data, err := c.rdb.Get(opCtx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		logging.Warn("Redis read failed", "error", err)
		return nil, false
	}
	logging.Info("PDF cache hit", "key", key)
	return data, true
}

// Set stores pdf under key with the configured TTL.
func (c *PDFCache) Set(ctx context.Context, key string, pdf []byte) {
	if c == nil || c.rdb == nil {
		return
	}
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.rdb.Set(opCtx, key, pdf, c.ttl).Err(); err != nil {
		logging.Warn("Redis write failed", "error", err)
	}
}
