package query

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"
)

type HandleConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

type OpenFunc func(ctx context.Context, cfg HandleConfig) (*sql.DB, error)

// Handle is the process-wide engine connection pool. It is opened on first
// use; a failed open is retried by the next caller.
type Handle struct {
	cfg  HandleConfig
	open OpenFunc

	mu sync.Mutex
	db *sql.DB
}

func NewHandle(cfg HandleConfig) *Handle {
	return &Handle{cfg: cfg, open: Open}
}

func NewHandleWithOpener(cfg HandleConfig, open OpenFunc) *Handle {
	return &Handle{cfg: cfg, open: open}
}

// NewHandleWithDB wraps an already opened pool.
func NewHandleWithDB(db *sql.DB) *Handle {
	return &Handle{db: db}
}

func (h *Handle) DB(ctx context.Context) (*sql.DB, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.db != nil {
		return h.db, nil
	}
	if h.open == nil {
		return nil, fmt.Errorf("engine handle has no opener")
	}
	db, err := h.open(ctx, h.cfg)
	if err != nil {
		return nil, err
	}
	h.db = db
	return db, nil
}

func (h *Handle) Ping(ctx context.Context) error {
	db, err := h.DB(ctx)
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.db == nil {
		return nil
	}
	err := h.db.Close()
	h.db = nil
	return err
}

func Open(ctx context.Context, cfg HandleConfig) (*sql.DB, error) {
	if strings.TrimSpace(cfg.Driver) == "" {
		return nil, fmt.Errorf("engine driver is required")
	}
	if strings.TrimSpace(cfg.DSN) == "" && cfg.Driver != "duckdb" {
		return nil, fmt.Errorf("engine dsn is required")
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s engine: %w", cfg.Driver, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s engine: %w", cfg.Driver, err)
	}

	return db, nil
}
