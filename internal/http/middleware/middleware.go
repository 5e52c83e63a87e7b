// Package middleware wires the transport-level concerns around the
// conversion pipeline: CORS, request IDs, API key auth and rate limiting.
// Everything here runs before the handlers; nothing below this layer reads
// ambient global state.
package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	memoryStorage "github.com/gofiber/storage/memory/v2"
	redisStorage "github.com/gofiber/storage/redis/v2"
	"github.com/rs/xid"

	"github.com/gilmarTelles/xlsx-to-pdf/internal/config"
	"github.com/gilmarTelles/xlsx-to-pdf/internal/infra/logging"
	"github.com/gilmarTelles/xlsx-to-pdf/internal/infra/tokens"
)

// TokenRater resolves the rate limit configured for an API token.
type TokenRater interface {
	RateLimit(token string) int
}

// LimiterCache holds one limiter handler per distinct token limit so that
// tokens sharing a limit share a sliding window configuration.
type LimiterCache struct {
	mu       sync.RWMutex
	handlers map[int]fiber.Handler
}

// NewLimiterCache creates an empty cache.
func NewLimiterCache() *LimiterCache {
	return &LimiterCache{handlers: make(map[int]fiber.Handler)}
}

func (c *LimiterCache) get(limit int, build func() fiber.Handler) fiber.Handler {
	c.mu.RLock()
	h, ok := c.handlers[limit]
	c.mu.RUnlock()
	if ok {
		return h
	}

	h = build()
	c.mu.Lock()
	c.handlers[limit] = h
	c.mu.Unlock()
	return h
}

// NewRateLimitStorage returns a Redis-backed fiber storage, falling back to
// in-process memory when no address is configured or the Redis store panics
// during init.
func NewRateLimitStorage(addr string, db int) (store fiber.Storage) {
	store = memoryStorage.New() // safe default
	if addr == "" {
		return store
	}

	defer func() {
		if r := recover(); r != nil {
			logging.Error("Redis limiter store init panicked, falling back to memory", "panic", r)
			store = memoryStorage.New()
		}
	}()
	store = redisStorage.New(redisStorage.Config{
		Addrs:    []string{addr},
		Database: db,
	})
	logging.Info("Using Redis for rate limiting", "addr", addr, "db", db)
	return store
}

func limitReached(c *fiber.Ctx) error {
	logging.Warn("Rate limit exceeded", "path", c.Path())
	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"error": "Too Many Requests",
	})
}

func clientKey(c *fiber.Ctx) string {
	sum := sha256.Sum256([]byte(c.IP() + c.Get("User-Agent")))
	return hex.EncodeToString(sum[:])
}

// KeyAuth requires a valid X-API-Key for every request. Installed only when
// a token store is configured.
func KeyAuth(store *tokens.Store) fiber.Handler {
	return keyauth.New(keyauth.Config{
		KeyLookup:  "header:X-API-Key",
		ContextKey: "api_key",
		Validator: func(c *fiber.Ctx, key string) (bool, error) {
			if !store.Ready() {
				return false, tokens.ErrStoreNotReady
			}
			if !store.Validate(key) {
				return false, tokens.ErrInvalidAPIKey
			}
			return true, nil
		},
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// keyauth can call ErrorHandler with a nil error.
			status := fiber.StatusUnauthorized
			if err == nil {
				err = fiber.ErrUnauthorized
			}
			if errors.Is(err, tokens.ErrStoreNotReady) {
				status = fiber.StatusServiceUnavailable
			}
			return c.Status(status).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})
}

// TokenRateLimit applies the per-token sliding window. Tokens with a zero
// limit (or unauthenticated requests) pass through.
func TokenRateLimit(interval time.Duration, rater TokenRater, store fiber.Storage, cache *LimiterCache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := c.Locals("api_key").(string)
		if !ok || token == "" {
			return c.Next()
		}
		limit := rater.RateLimit(token)
		if limit == 0 {
			return c.Next()
		}

		h := cache.get(limit, func() fiber.Handler {
			return limiter.New(limiter.Config{
				Max:               limit,
				Expiration:        interval,
				LimiterMiddleware: limiter.SlidingWindow{},
				Storage:           store,
				KeyGenerator: func(c *fiber.Ctx) string {
					if t, ok := c.Locals("api_key").(string); ok {
						return t
					}
					return ""
				},
				LimitReached: limitReached,
			})
		})
		return h(c)
	}
}

// UserRateLimit limits unauthenticated clients keyed by a hash of IP and
// user agent. Token-authenticated requests skip it; their limits are applied
// by TokenRateLimit.
func UserRateLimit(max int, interval time.Duration, store fiber.Storage) fiber.Handler {
	if max <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	userLimiter := limiter.New(limiter.Config{
		Max:               max,
		Expiration:        interval,
		LimiterMiddleware: limiter.SlidingWindow{},
		Storage:           store,
		KeyGenerator:      clientKey,
		LimitReached:      limitReached,
	})
	return func(c *fiber.Ctx) error {
		if token, ok := c.Locals("api_key").(string); ok && token != "" {
			return c.Next()
		}
		return userLimiter(c)
	}
}

// Register attaches the full middleware chain to app. store may be nil, in
// which case API key auth and token limits are not installed.
func Register(app *fiber.App, cfg config.Config, store *tokens.Store) {
	rateLimitStore := NewRateLimitStorage(cfg.RateLimiter.RedisHost, cfg.RateLimiter.RedisDB)

	app.Use(cors.New(cors.Config{
		AllowOrigins: corsOrigins(cfg),
	}))

	app.Use(requestid.New(requestid.Config{
		Generator: func() string {
			return xid.New().String()
		},
	}))

	if store != nil {
		app.Use(KeyAuth(store))
		app.Use(TokenRateLimit(cfg.RateLimiter.Interval, store, rateLimitStore, NewLimiterCache()))
	}

	app.Use(UserRateLimit(cfg.RateLimiter.UserLimit, cfg.RateLimiter.Interval, rateLimitStore))

	app.Use(func(c *fiber.Ctx) error {
		requestID := c.Get("X-Request-ID")
		if requestID == "" {
			requestID = c.GetRespHeader("X-Request-ID")
		}
		logging.Info("Incoming request", "method", c.Method(), "path", c.Path(), "request_id", requestID)
		return c.Next()
	})
}

func corsOrigins(cfg config.Config) string {
	if cfg.CORS.AllowOrigins == "" {
		return "*"
	}
	return cfg.CORS.AllowOrigins
}
