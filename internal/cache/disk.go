package cache

import (
	"fmt"
	"os"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/bvanryn/specula/internal/common"
)

// Disk is the L2 tier: a Badger key/value store with per-write TTL and a
// background value-log GC loop keeping the size cap honest.
type Disk struct {
	db     *badger.DB
	logger *common.Logger
	stop   chan struct{}
}

// NewDisk opens the disk cache at path. sizeMB caps the value-log file
// size so GC can reclaim space in reasonably small steps.
func NewDisk(logger *common.Logger, path string, sizeMB int, gcInterval time.Duration) (*Disk, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", path, err)
	}

	opts := badger.DefaultOptions(path).WithLogger(nil)
	if sizeMB > 0 {
		opts = opts.WithValueLogFileSize(int64(sizeMB) << 20)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open disk cache: %w", err)
	}

	d := &Disk{db: db, logger: logger, stop: make(chan struct{})}
	if gcInterval > 0 {
		go d.gcLoop(gcInterval)
	}

	logger.Debug().Str("path", path).Msg("Disk cache opened")
	return d, nil
}

func (d *Disk) gcLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			// Rerun until badger reports nothing left to collect
			for d.db.RunValueLogGC(0.5) == nil {
			}
		}
	}
}

func diskKey(ns, key string) []byte {
	return []byte(ns + ":" + key)
}

// Get returns the stored bytes for ns:key, or false when absent or expired.
func (d *Disk) Get(ns, key string) ([]byte, bool) {
	var value []byte
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(diskKey(ns, key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, false
	}
	return value, true
}

// Set stores value under ns:key with the given TTL.
func (d *Disk) Set(ns, key string, value []byte, ttl time.Duration) error {
	err := d.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(diskKey(ns, key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("disk cache set %s:%s: %w", ns, key, err)
	}
	return nil
}

// Clear drops every entry.
func (d *Disk) Clear() error {
	if err := d.db.DropAll(); err != nil {
		return fmt.Errorf("disk cache clear: %w", err)
	}
	return nil
}

// Close stops the GC loop and closes the store.
func (d *Disk) Close() error {
	close(d.stop)
	return d.db.Close()
}
