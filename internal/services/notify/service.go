// Package notify dispatches outbound notifications through Telegram,
// enforcing a minimum interval per notification type so a flapping
// signal cannot flood the chat.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/bvanryn/specula/internal/clients/telegram"
	"github.com/bvanryn/specula/internal/common"
	"github.com/bvanryn/specula/internal/interfaces"
)

// Notification types.
const (
	TypeScanSignal = "scan_signal"
	TypeRogueWave  = "rogue_wave"
	TypePriceAlert = "price_alert"
	TypeFXWatch    = "fx_watch"
	TypeDigest     = "digest"
)

// defaultMinIntervals is the floor between two sends of the same type.
// Price alerts and FX watches carry their own per-record cooldowns, so
// the type-level floor stays small.
var defaultMinIntervals = map[string]time.Duration{
	TypeScanSignal: time.Hour,
	TypeRogueWave:  time.Hour,
	TypePriceAlert: 5 * time.Minute,
	TypeFXWatch:    5 * time.Minute,
	TypeDigest:     12 * time.Hour,
}

// Service implements interfaces.Notifier.
type Service struct {
	telegram  *telegram.Client
	store     interfaces.NotifyStore
	logger    *common.Logger
	intervals map[string]time.Duration
	now       func() time.Time
}

// NewService creates the notifier. A telegram client without
// credentials degrades every send to log-only.
func NewService(logger *common.Logger, store interfaces.NotifyStore, tg *telegram.Client) *Service {
	return &Service{
		telegram:  tg,
		store:     store,
		logger:    logger,
		intervals: defaultMinIntervals,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// suppressed reports whether the type's minimum interval has not yet
// elapsed since the last send.
func (s *Service) suppressed(ctx context.Context, notifType string) (bool, error) {
	min, ok := s.intervals[notifType]
	if !ok || min <= 0 {
		return false, nil
	}
	last, err := s.store.LastSent(ctx, notifType)
	if err != nil {
		return false, err
	}
	return last != nil && s.now().Sub(*last) < min, nil
}

// Send delivers text for the notification type. A send inside the
// type's minimum interval is dropped silently; that is not an error.
func (s *Service) Send(ctx context.Context, notifType, text string) error {
	skip, err := s.suppressed(ctx, notifType)
	if err != nil {
		return err
	}
	if skip {
		s.logger.Debug().Str("type", notifType).Msg("Notify: suppressed by rate limit")
		return nil
	}

	if !s.telegram.Enabled() {
		s.logger.Info().Str("type", notifType).Str("text", text).Msg("Notify: transport disabled")
		return s.store.RecordSent(ctx, notifType, s.now())
	}

	if err := s.telegram.SendMessage(ctx, text); err != nil {
		return fmt.Errorf("notify %s: %w", notifType, err)
	}
	s.logger.Info().Str("type", notifType).Msg("Notify: sent")
	return s.store.RecordSent(ctx, notifType, s.now())
}

// SendPhoto delivers a PNG with a caption under the same type gating.
func (s *Service) SendPhoto(ctx context.Context, notifType, caption string, png []byte) error {
	skip, err := s.suppressed(ctx, notifType)
	if err != nil {
		return err
	}
	if skip {
		s.logger.Debug().Str("type", notifType).Msg("Notify: suppressed by rate limit")
		return nil
	}

	if !s.telegram.Enabled() {
		s.logger.Info().Str("type", notifType).Str("caption", caption).Msg("Notify: transport disabled")
		return s.store.RecordSent(ctx, notifType, s.now())
	}

	if err := s.telegram.SendPhoto(ctx, caption, png); err != nil {
		return fmt.Errorf("notify %s: %w", notifType, err)
	}
	return s.store.RecordSent(ctx, notifType, s.now())
}

// SendWithPhoto delivers text and an attached PNG as one dispatch. The
// type's minimum interval is checked once up front, so the photo is
// never suppressed by the send it accompanies.
func (s *Service) SendWithPhoto(ctx context.Context, notifType, text, caption string, png []byte) error {
	skip, err := s.suppressed(ctx, notifType)
	if err != nil {
		return err
	}
	if skip {
		s.logger.Debug().Str("type", notifType).Msg("Notify: suppressed by rate limit")
		return nil
	}

	if !s.telegram.Enabled() {
		s.logger.Info().Str("type", notifType).Str("text", text).Msg("Notify: transport disabled")
		return s.store.RecordSent(ctx, notifType, s.now())
	}

	if err := s.telegram.SendMessage(ctx, text); err != nil {
		return fmt.Errorf("notify %s: %w", notifType, err)
	}
	if len(png) > 0 {
		// The text already went out; a failed attachment is not fatal.
		if err := s.telegram.SendPhoto(ctx, caption, png); err != nil {
			s.logger.Warn().Err(err).Str("type", notifType).Msg("Notify: photo delivery failed")
		}
	}
	s.logger.Info().Str("type", notifType).Msg("Notify: sent")
	return s.store.RecordSent(ctx, notifType, s.now())
}
