package postgres

import "context"

// schema is applied once at startup. The trade blotter is append-only and
// intentionally denormalized: it exists for downstream reporting queries,
// not as a source of truth the engine reads back from.
const schema = `
CREATE TABLE IF NOT EXISTS trades (
	id              BIGINT PRIMARY KEY,
	buy_order_id    BIGINT NOT NULL,
	sell_order_id   BIGINT NOT NULL,
	buy_user_id     TEXT NOT NULL,
	sell_user_id    TEXT NOT NULL,
	symbol          TEXT NOT NULL,
	price           NUMERIC NOT NULL,
	quantity        INTEGER NOT NULL,
	occurred_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS trades_symbol_idx ON trades (symbol);
CREATE INDEX IF NOT EXISTS trades_buy_user_idx ON trades (buy_user_id);
CREATE INDEX IF NOT EXISTS trades_sell_user_idx ON trades (sell_user_id);
`

// Migrate creates the trade blotter schema if it doesn't already exist.
func (m *TradeMirror) Migrate(ctx context.Context) error {
	_, err := m.pool.Exec(ctx, schema)
	return err
}
