// Package postgres durably mirrors executed trades into a Postgres table
// for downstream reporting (settlement exports, audit queries) that
// shouldn't be run against the disk-first trade store directly. Like the
// Redis mirror, Postgres is never consulted to reconstruct engine state;
// the .dat/.idx files under the data directory remain authoritative.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brightledger/matchengine/internal/domain"
)

// Config holds the connection settings for the Postgres trade mirror.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
}

func (c Config) dsn() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslmode)
}

// NewPool builds a connection pool and verifies connectivity.
func NewPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: new pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return pool, nil
}

// TradeMirror writes executed trades to the blotter table.
type TradeMirror struct {
	pool *pgxpool.Pool
}

// NewTradeMirror wraps pool for trade mirroring.
func NewTradeMirror(pool *pgxpool.Pool) *TradeMirror {
	return &TradeMirror{pool: pool}
}

// SaveTrade inserts t, ignoring duplicate ids, so saving the same trade
// twice is harmless.
func (m *TradeMirror) SaveTrade(t *domain.Trade) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := m.pool.Exec(ctx, `
		INSERT INTO trades (id, buy_order_id, sell_order_id, buy_user_id, sell_user_id, symbol, price, quantity, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`,
		t.ID, t.BuyOrderID, t.SellOrderID, t.BuyUserID, t.SellUserID, t.Symbol, t.Price, t.Quantity, t.Timestamp)
	if err != nil {
		return fmt.Errorf("postgres: insert trade %d: %w", t.ID, err)
	}
	return nil
}

// TradesForSymbol is a reporting query that never backs engine recovery.
func (m *TradeMirror) TradesForSymbol(ctx context.Context, symbol string, limit int) ([]*domain.Trade, error) {
	rows, err := m.pool.Query(ctx, `
		SELECT id, buy_order_id, sell_order_id, buy_user_id, sell_user_id, symbol, price, quantity, occurred_at
		FROM trades WHERE symbol = $1 ORDER BY occurred_at DESC LIMIT $2`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: query trades for %s: %w", symbol, err)
	}
	defer rows.Close()

	var out []*domain.Trade
	for rows.Next() {
		var t domain.Trade
		if err := rows.Scan(&t.ID, &t.BuyOrderID, &t.SellOrderID, &t.BuyUserID, &t.SellUserID, &t.Symbol, &t.Price, &t.Quantity, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("postgres: scan trade: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// Close releases the pool.
func (m *TradeMirror) Close() error {
	m.pool.Close()
	return nil
}
