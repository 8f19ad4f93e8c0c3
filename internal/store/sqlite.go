package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"CryptoPilot/internal/model"
)

// SQLiteStore persists the session to a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// NewSQLiteStore opens (or creates) the database and runs migrations.
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboards can read while the bot writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite store opened", zap.String("path", dbPath))
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			order_id  TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			symbol    TEXT NOT NULL,
			side      TEXT NOT NULL,
			quantity  REAL NOT NULL,
			price     REAL NOT NULL,
			value     REAL NOT NULL,
			fee       REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_ts ON trades(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol)`,

		`CREATE TABLE IF NOT EXISTS positions (
			symbol     TEXT PRIMARY KEY,
			quantity   REAL NOT NULL,
			avg_price  REAL NOT NULL,
			entry_time INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS balance_snapshots (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp     INTEGER NOT NULL,
			total_value   REAL NOT NULL,
			cash_balance  REAL NOT NULL,
			crypto_value  REAL NOT NULL,
			num_positions INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON balance_snapshots(timestamp)`,

		`CREATE TABLE IF NOT EXISTS bot_status (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			status    TEXT NOT NULL,
			detail    TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS session (
			id              INTEGER PRIMARY KEY CHECK (id = 1),
			cash            REAL NOT NULL,
			realized_pnl    REAL NOT NULL,
			counter_date    TEXT NOT NULL,
			daily_volume    REAL NOT NULL,
			daily_loss      REAL NOT NULL,
			high_water_mark REAL NOT NULL,
			breaker_tripped INTEGER NOT NULL,
			tripped_at      INTEGER NOT NULL,
			updated_at      INTEGER NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func (s *SQLiteStore) AppendTrade(trade model.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT INTO trades
		(order_id, timestamp, symbol, side, quantity, price, value, fee)
		VALUES (?,?,?,?,?,?,?,?)`,
		trade.OrderID, trade.Timestamp.Unix(), trade.Symbol, string(trade.Side),
		trade.Quantity, trade.Price, trade.Value, trade.Fee,
	)
	if err != nil {
		return fmt.Errorf("append trade: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpsertPosition(pos model.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT INTO positions
		(symbol, quantity, avg_price, entry_time, updated_at)
		VALUES (?,?,?,?,?)
		ON CONFLICT(symbol) DO UPDATE SET
			quantity=excluded.quantity,
			avg_price=excluded.avg_price,
			updated_at=excluded.updated_at`,
		pos.Symbol, pos.Quantity, pos.AvgPrice,
		pos.EntryTime.Unix(), pos.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert position %s: %w", pos.Symbol, err)
	}
	return nil
}

func (s *SQLiteStore) DeletePosition(symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM positions WHERE symbol = ?`, symbol); err != nil {
		return fmt.Errorf("delete position %s: %w", symbol, err)
	}
	return nil
}

func (s *SQLiteStore) WriteSnapshot(snap model.BalanceSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT INTO balance_snapshots
		(timestamp, total_value, cash_balance, crypto_value, num_positions)
		VALUES (?,?,?,?,?)`,
		snap.Timestamp.Unix(), snap.TotalValue, snap.CashBalance,
		snap.CryptoValue, snap.NumPositions,
	)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SaveSession(state SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tripped := 0
	if state.Breaker.Tripped {
		tripped = 1
	}
	var trippedAt int64
	if !state.Breaker.TrippedAt.IsZero() {
		trippedAt = state.Breaker.TrippedAt.Unix()
	}

	_, err := s.db.Exec(`INSERT INTO session
		(id, cash, realized_pnl, counter_date, daily_volume, daily_loss,
		 high_water_mark, breaker_tripped, tripped_at, updated_at)
		VALUES (1,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			cash=excluded.cash,
			realized_pnl=excluded.realized_pnl,
			counter_date=excluded.counter_date,
			daily_volume=excluded.daily_volume,
			daily_loss=excluded.daily_loss,
			high_water_mark=excluded.high_water_mark,
			breaker_tripped=excluded.breaker_tripped,
			tripped_at=excluded.tripped_at,
			updated_at=excluded.updated_at`,
		state.Cash, state.RealizedPnL,
		state.Counters.Date, state.Counters.Volume, state.Counters.LossSum,
		state.Breaker.HighWaterMark, tripped, trippedAt,
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecordStatus(status, detail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT INTO bot_status (timestamp, status, detail) VALUES (?,?,?)`,
		time.Now().Unix(), status, detail)
	if err != nil {
		return fmt.Errorf("record status: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadSession() (SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var state SessionState
	var tripped int
	var trippedAt int64
	err := s.db.QueryRow(`SELECT cash, realized_pnl, counter_date, daily_volume,
		daily_loss, high_water_mark, breaker_tripped, tripped_at
		FROM session WHERE id = 1`).Scan(
		&state.Cash, &state.RealizedPnL,
		&state.Counters.Date, &state.Counters.Volume, &state.Counters.LossSum,
		&state.Breaker.HighWaterMark, &tripped, &trippedAt,
	)
	if err == sql.ErrNoRows {
		return SessionState{}, nil
	}
	if err != nil {
		return SessionState{}, fmt.Errorf("load session: %w", err)
	}

	state.HasSavedState = true
	state.Breaker.Tripped = tripped != 0
	if trippedAt > 0 {
		state.Breaker.TrippedAt = time.Unix(trippedAt, 0).UTC()
	}
	return state, nil
}

func (s *SQLiteStore) OpenPositions() ([]model.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT symbol, quantity, avg_price, entry_time, updated_at
		FROM positions ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("query positions: %w", err)
	}
	defer rows.Close()

	var out []model.Position
	for rows.Next() {
		var pos model.Position
		var entry, updated int64
		if err := rows.Scan(&pos.Symbol, &pos.Quantity, &pos.AvgPrice, &entry, &updated); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		pos.EntryTime = time.Unix(entry, 0).UTC()
		pos.UpdatedAt = time.Unix(updated, 0).UTC()
		out = append(out, pos)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.logger.Info("closing sqlite store")
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
