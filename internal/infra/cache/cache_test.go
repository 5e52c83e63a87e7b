package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/gilmarTelles/xlsx-to-pdf/internal/convert"
)

func testCache(t *testing.T) *PDFCache {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(rdb, time.Minute)
}

func TestKey_DependsOnContentAndOptions(t *testing.T) {
	base := Key([]byte("upload"), convert.Options{FontSizePt: 9, Landscape: true, SinglePageSheets: true})

	assert.Equal(t, base, Key([]byte("upload"), convert.Options{FontSizePt: 9, Landscape: true, SinglePageSheets: true}))
	assert.NotEqual(t, base, Key([]byte("other"), convert.Options{FontSizePt: 9, Landscape: true, SinglePageSheets: true}))
	assert.NotEqual(t, base, Key([]byte("upload"), convert.Options{FontSizePt: 12, Landscape: true, SinglePageSheets: true}))
	assert.NotEqual(t, base, Key([]byte("upload"), convert.Options{FontSizePt: 9, Landscape: false, SinglePageSheets: true}))
}

func TestGetSetRoundTrip(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()
	key := Key([]byte("doc"), convert.Options{FontSizePt: 9})

	_, ok := c.Get(ctx, key)
	assert.False(t, ok, "expected miss before set")

	c.Set(ctx, key, []byte("%PDF-cached"))

	got, ok := c.Get(ctx, key)
	assert.True(t, ok, "expected hit after set")
	assert.Equal(t, []byte("%PDF-cached"), got)
}

func TestNilClientIsAlwaysMiss(t *testing.T) {
	c := New(nil, time.Minute)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"))
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestUnreachableRedisIsTreatedAsMiss(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	c := New(rdb, time.Minute)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"))
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}
