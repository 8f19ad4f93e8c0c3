package store

import "CryptoPilot/internal/model"

// Noop discards all writes and reports no saved state. It backs
// analyze-only runs where nothing should touch the database.
type Noop struct{}

func NewNoop() *Noop { return &Noop{} }

func (n *Noop) AppendTrade(model.Trade) error           { return nil }
func (n *Noop) UpsertPosition(model.Position) error     { return nil }
func (n *Noop) DeletePosition(string) error             { return nil }
func (n *Noop) WriteSnapshot(model.BalanceSnapshot) error { return nil }
func (n *Noop) SaveSession(SessionState) error          { return nil }
func (n *Noop) RecordStatus(string, string) error       { return nil }
func (n *Noop) LoadSession() (SessionState, error)      { return SessionState{}, nil }
func (n *Noop) OpenPositions() ([]model.Position, error) { return nil, nil }
func (n *Noop) Close() error                            { return nil }

var _ Store = (*Noop)(nil)
