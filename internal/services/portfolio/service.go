// Package portfolio analyzes the user's holdings: rebalance drift,
// currency exposure, stress scenarios, withdrawal planning, daily
// snapshots and the weekly digest.
package portfolio

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/bvanryn/specula/internal/common"
	"github.com/bvanryn/specula/internal/interfaces"
	"github.com/bvanryn/specula/internal/models"
)

const (
	// actionThresholdPct is the drift beyond which a rebalance action is
	// suggested, in percentage points.
	actionThresholdPct = 5.0

	// minSaleAmount is the smallest sell a withdrawal plan will suggest.
	minSaleAmount = 100.0
)

// Service implements interfaces.PortfolioService.
type Service struct {
	store     interfaces.PortfolioStore
	notifyDB  interfaces.NotifyStore
	tickers   interfaces.TickerStore
	market    interfaces.MarketDataService
	notifier  interfaces.Notifier
	logger    *common.Logger
	display   string
	benchmark string
	now       func() time.Time
}

// NewService creates the portfolio service. notifier may be nil,
// disabling FX watch alerts and the digest delivery.
func NewService(logger *common.Logger, store interfaces.PortfolioStore, notifyDB interfaces.NotifyStore, tickers interfaces.TickerStore, market interfaces.MarketDataService, notifier interfaces.Notifier, displayCurrency, benchmark string) *Service {
	if displayCurrency == "" {
		displayCurrency = "USD"
	}
	return &Service{
		store:     store,
		notifyDB:  notifyDB,
		tickers:   tickers,
		market:    market,
		notifier:  notifier,
		logger:    logger,
		display:   strings.ToUpper(displayCurrency),
		benchmark: benchmark,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// valuedPortfolio is the shared valuation every analysis starts from:
// all holdings priced and converted to the display currency.
type valuedPortfolio struct {
	profile    *models.InvestmentProfile
	total      float64
	holdings   []models.HoldingValue
	raw        []models.Holding
	byCategory map[models.Category]float64
}

// value prices every holding and converts it to the display currency
// by direct multiplication: value_display = value_native * rate(native->display).
// Holdings that cannot be priced are skipped with a warning rather than
// failing the whole analysis.
func (s *Service) value(ctx context.Context) (*valuedPortfolio, error) {
	profile, err := s.store.GetProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("investment profile: %w", err)
	}
	raw, err := s.store.ListHoldings(ctx)
	if err != nil {
		return nil, err
	}

	var symbols []string
	for _, h := range raw {
		if !h.IsCash {
			symbols = append(symbols, h.Symbol)
		}
	}
	if len(symbols) > 0 {
		if histories, err := s.market.BatchDownloadHistory(ctx, symbols); err == nil {
			s.market.PrimeSignalsCacheBatch(ctx, histories)
		} else {
			s.logger.Warn().Err(err).Msg("Portfolio: batch prefetch failed")
		}
	}

	vp := &valuedPortfolio{
		profile:    profile,
		raw:        raw,
		byCategory: map[models.Category]float64{},
	}
	for _, h := range raw {
		hv, err := s.valueOne(ctx, h)
		if err != nil {
			s.logger.Warn().Err(err).Str("symbol", h.Symbol).Msg("Portfolio: holding skipped")
			continue
		}
		vp.holdings = append(vp.holdings, hv)
		vp.total += hv.MarketValue
		vp.byCategory[hv.Category] += hv.MarketValue
	}

	sort.Slice(vp.holdings, func(i, j int) bool {
		return vp.holdings[i].MarketValue > vp.holdings[j].MarketValue
	})
	return vp, nil
}

func (s *Service) valueOne(ctx context.Context, h models.Holding) (models.HoldingValue, error) {
	price := 1.0
	if !h.IsCash {
		signals, err := s.market.GetTechnicalSignals(ctx, h.Symbol)
		if err != nil {
			return models.HoldingValue{}, err
		}
		price = signals.Price
	}

	rate := 1.0
	if !strings.EqualFold(h.Currency, s.display) {
		var err error
		rate, err = s.market.GetForexRate(ctx, h.Currency, s.display)
		if err != nil {
			return models.HoldingValue{}, fmt.Errorf("fx %s->%s: %w", h.Currency, s.display, err)
		}
	}

	hv := models.HoldingValue{
		Symbol:      h.Symbol,
		Category:    h.Category,
		Quantity:    h.Quantity,
		Price:       price,
		Currency:    h.Currency,
		FXRate:      rate,
		MarketValue: round2(h.Quantity * price * rate),
	}
	if h.CostBasis != nil {
		cost := round2(*h.CostBasis * h.Quantity * rate)
		gain := round2(hv.MarketValue - cost)
		hv.CostValue = &cost
		hv.GainLoss = &gain
	}
	return hv, nil
}

// breakdown computes per-category actuals and drifts against the
// profile targets. Categories held but not targeted (and vice versa)
// both appear.
func (vp *valuedPortfolio) breakdown() []models.CategoryBreakdown {
	var out []models.CategoryBreakdown
	for _, cat := range models.Categories {
		target := vp.profile.TargetAllocation[cat]
		value, held := vp.byCategory[cat]
		if target == 0 && !held {
			continue
		}
		actual := 0.0
		if vp.total > 0 {
			actual = value / vp.total * 100
		}
		out = append(out, models.CategoryBreakdown{
			Category:  cat,
			Value:     round2(value),
			ActualPct: round2(actual),
			TargetPct: target,
			Drift:     round2(actual - target),
		})
	}
	return out
}

// drifts flattens a breakdown into the map the withdrawal planner takes.
func drifts(breakdown []models.CategoryBreakdown) map[models.Category]float64 {
	out := make(map[models.Category]float64, len(breakdown))
	for _, b := range breakdown {
		out[b.Category] = b.Drift
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
