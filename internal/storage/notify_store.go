package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bvanryn/specula/internal/common"
	"github.com/bvanryn/specula/internal/models"
)

type notifyStore struct {
	db     *badgerhold.Store
	logger *common.Logger
}

func (s *notifyStore) LastSent(_ context.Context, notifType string) (*time.Time, error) {
	var entry models.NotificationLog
	if err := s.db.Get(notifType, &entry); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get notification log for %s: %w", notifType, err)
	}
	sent := entry.SentAt
	return &sent, nil
}

func (s *notifyStore) RecordSent(_ context.Context, notifType string, at time.Time) error {
	entry := models.NotificationLog{Type: notifType, SentAt: at.UTC()}
	if err := s.db.Upsert(notifType, &entry); err != nil {
		return fmt.Errorf("failed to record notification %s: %w", notifType, err)
	}
	return nil
}

func (s *notifyStore) SaveFXWatch(_ context.Context, watch *models.FXWatchConfig) error {
	if err := s.db.Upsert(watch.ID, watch); err != nil {
		return fmt.Errorf("failed to save fx watch %s/%s: %w", watch.Base, watch.Quote, err)
	}
	return nil
}

func (s *notifyStore) GetFXWatch(_ context.Context, id string) (*models.FXWatchConfig, error) {
	var watch models.FXWatchConfig
	if err := s.db.Get(id, &watch); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get fx watch %s: %w", id, err)
	}
	return &watch, nil
}

func (s *notifyStore) ListFXWatches(_ context.Context, activeOnly bool) ([]models.FXWatchConfig, error) {
	var watches []models.FXWatchConfig
	var query *badgerhold.Query
	if activeOnly {
		query = badgerhold.Where("Active").Eq(true)
	}
	if err := s.db.Find(&watches, query); err != nil {
		return nil, fmt.Errorf("failed to list fx watches: %w", err)
	}
	sort.Slice(watches, func(i, j int) bool {
		return watches[i].Pair() < watches[j].Pair()
	})
	return watches, nil
}

func (s *notifyStore) DeleteFXWatch(_ context.Context, id string) error {
	err := s.db.Delete(id, models.FXWatchConfig{})
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete fx watch %s: %w", id, err)
	}
	return nil
}
