// Package storage provides BadgerHold-backed persistence for tracked
// tickers, guru filings, portfolio state and notification history.
package storage

import (
	"errors"
	"fmt"
	"os"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bvanryn/specula/internal/common"
	"github.com/bvanryn/specula/internal/interfaces"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Manager owns the single BadgerHold database and hands out typed stores.
type Manager struct {
	db     *badgerhold.Store
	logger *common.Logger

	tickers   *tickerStore
	gurus     *guruStore
	portfolio *portfolioStore
	notify    *notifyStore
}

// NewManager opens the database at path, creating the directory if needed.
func NewManager(logger *common.Logger, path string) (*Manager, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", path, err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil // Disable default badger logger

	db, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	logger.Debug().Str("path", path).Msg("Storage: database opened")

	m := &Manager{db: db, logger: logger}
	m.tickers = &tickerStore{db: db, logger: logger}
	m.gurus = &guruStore{db: db, logger: logger}
	m.portfolio = &portfolioStore{db: db, logger: logger}
	m.notify = &notifyStore{db: db, logger: logger}
	return m, nil
}

func (m *Manager) Tickers() interfaces.TickerStore      { return m.tickers }
func (m *Manager) Gurus() interfaces.GuruStore          { return m.gurus }
func (m *Manager) Portfolio() interfaces.PortfolioStore { return m.portfolio }
func (m *Manager) Notify() interfaces.NotifyStore       { return m.notify }

// Close closes the underlying database.
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
