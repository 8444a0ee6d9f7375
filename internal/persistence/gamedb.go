package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/Banditcantcode/Banditbot/internal/config"
)

// GameDB wraps the read-only MySQL connection to the game server database.
// It is an optional collaborator: when no DSN is configured the handle is
// nil and every lookup degrades to "not found".
type GameDB struct {
	DB *sql.DB
}

// NewGameDB connects to the game database when a DSN is provided.
func NewGameDB(cfg config.GameDBConfig, logger *zap.Logger) (*GameDB, error) {
	if cfg.DSN == "" {
		logger.Warn("GAMEDB_DSN not provided; player lookups disabled")
		return &GameDB{DB: nil}, nil
	}

	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open game database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifeMins) * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping game database: %w", err)
	}

	logger.Info("connected to game database")
	return &GameDB{DB: db}, nil
}

// Close releases the connection pool.
func (g *GameDB) Close() {
	if g != nil && g.DB != nil {
		_ = g.DB.Close()
	}
}

// Handle returns the underlying sql.DB, which may be nil.
func (g *GameDB) Handle() *sql.DB {
	if g == nil {
		return nil
	}
	return g.DB
}

// Ping verifies connectivity for readiness checks.
func (g *GameDB) Ping(ctx context.Context) error {
	if g == nil || g.DB == nil {
		return errors.New("game database not configured")
	}
	return g.DB.PingContext(ctx)
}
