// Package tokens manages API keys and their per-token rate limits. Keys live
// in a small Postgres control-plane table and are served from an in-memory
// cache that a background goroutine refreshes.
package tokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/gilmarTelles/xlsx-to-pdf/internal/config"
	"github.com/gilmarTelles/xlsx-to-pdf/internal/infra/logging"
)

var (
	// ErrInvalidAPIKey signals that the provided API key is not known.
	ErrInvalidAPIKey = errors.New("invalid api key")
	// ErrStoreNotReady signals that the token cache has not been loaded yet,
	// e.g. during startup when the DB isn't reachable.
	ErrStoreNotReady = errors.New("token store not ready")
)

// Store caches tokens loaded from Postgres. The zero value is unusable; use
// NewStore.
type Store struct {
	mu    sync.RWMutex
	cache map[string]int

	dbMu sync.Mutex
	dsn  string
	db   *sql.DB
}

// NewStore creates an empty, not-yet-ready store.
func NewStore() *Store {
	return &Store{}
}

func postgresDSN(cfg config.PostgresConfig) (string, error) {
	if strings.HasPrefix(cfg.Host, "postgres://") || strings.HasPrefix(cfg.Host, "postgresql://") {
		return cfg.Host, nil
	}
	if cfg.Host == "" {
		return "", fmt.Errorf("postgres host is empty")
	}
	if cfg.Database == "" {
		return "", fmt.Errorf("postgres database is empty")
	}
	if cfg.User == "" {
		return "", fmt.Errorf("postgres user is empty")
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	u := &url.URL{Scheme: "postgres", Host: fmt.Sprintf("%s:%d", cfg.Host, port), Path: "/" + cfg.Database}
	if cfg.Password != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	} else {
		u.User = url.User(cfg.User)
	}
	if cfg.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", cfg.SSLMode)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (s *Store) getDB(cfg config.PostgresConfig) (*sql.DB, error) {
	dsn, err := postgresDSN(cfg)
	if err != nil {
		return nil, err
	}

	s.dbMu.Lock()
	defer s.dbMu.Unlock()

	if s.db != nil && s.dsn == dsn {
		return s.db, nil
	}
	if s.db != nil {
		_ = s.db.Close()
		s.db = nil
		s.dsn = ""
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Small, low-throughput control plane table.
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s.db = db
	s.dsn = dsn
	return s.db, nil
}

func (s *Store) ensureSchema(cfg config.PostgresConfig) error {
	db, err := s.getDB(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ddl := `CREATE TABLE IF NOT EXISTS tokens (
		token TEXT PRIMARY KEY,
		rate_limit INTEGER NOT NULL DEFAULT 60,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		comment TEXT
	);`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_tokens_created_at ON tokens (created_at);`)
	return err
}

// LoadFromPostgres reads all tokens and rate limits into the cache,
// replacing the previous snapshot atomically.
func (s *Store) LoadFromPostgres(cfg config.PostgresConfig) error {
	if err := s.ensureSchema(cfg); err != nil {
		return err
	}
	db, err := s.getDB(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rows, err := db.QueryContext(ctx, `SELECT token, rate_limit FROM tokens;`)
	if err != nil {
		return err
	}
	defer rows.Close()

	cache := make(map[string]int)
	for rows.Next() {
		var token string
		var limit int
		if err := rows.Scan(&token, &limit); err != nil {
			return err
		}
		cache[token] = limit
	}
	if err := rows.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.cache = cache
	s.mu.Unlock()
	return nil
}

// LoadFromMap replaces the cache with the provided map. Intended for tests
// and local debugging.
func (s *Store) LoadFromMap(m map[string]int) {
	cache := make(map[string]int, len(m))
	for k, v := range m {
		cache[k] = v
	}
	s.mu.Lock()
	s.cache = cache
	s.mu.Unlock()
}

// Ready reports whether the cache has been initialized at least once.
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache != nil
}

// Validate checks whether the token exists in the cached snapshot.
func (s *Store) Validate(token string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cache[token]
	return ok
}

// RateLimit returns the per-token rate limit, or 0 for unknown tokens which
// effectively disables token rate limiting for them.
func (s *Store) RateLimit(token string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit, ok := s.cache[token]; ok {
		return limit
	}
	return 0
}

// RefreshPeriodically reloads from Postgres at the given interval until stop
// is closed.
func (s *Store) RefreshPeriodically(cfg config.PostgresConfig, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.LoadFromPostgres(cfg); err != nil {
				logging.Error("Failed to reload API tokens", "error", err)
			}
		case <-stop:
			return
		}
	}
}

// Close releases the DB handle, if one was opened.
func (s *Store) Close() {
	s.dbMu.Lock()
	defer s.dbMu.Unlock()
	if s.db != nil {
		_ = s.db.Close()
		s.db = nil
		s.dsn = ""
	}
}
