// Package store persists the trading session: executed trades, open
// positions, balance snapshots, daily risk counters, and breaker state.
// The trading loop treats persistence failures as fatal, so every write
// returns an error the caller must check.
package store

import (
	"CryptoPilot/internal/model"
	"CryptoPilot/internal/risk"
)

// SessionState is everything needed to resume a run after a restart.
type SessionState struct {
	Cash          float64
	RealizedPnL   float64
	Counters      risk.DailyCounters
	Breaker       risk.BreakerState
	HasSavedState bool
}

// Store is the persistence surface for the trading loop.
type Store interface {
	// AppendTrade records an executed trade. It is written before the fill
	// is applied to the in-memory portfolio.
	AppendTrade(trade model.Trade) error
	// UpsertPosition saves or replaces an open position by symbol.
	UpsertPosition(pos model.Position) error
	// DeletePosition removes a closed position.
	DeletePosition(symbol string) error
	// WriteSnapshot appends a balance snapshot.
	WriteSnapshot(snap model.BalanceSnapshot) error
	// SaveSession persists cash, counters, and breaker state.
	SaveSession(state SessionState) error
	// RecordStatus appends a lifecycle event (start, stop, fatal error).
	RecordStatus(status, detail string) error

	// LoadSession returns the last saved session state.
	// HasSavedState is false on a fresh database.
	LoadSession() (SessionState, error)
	// OpenPositions returns all persisted positions.
	OpenPositions() ([]model.Position, error)

	Close() error
}
