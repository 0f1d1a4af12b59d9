// Package discovery polls a venue's weather-tagged market catalog, parses
// events into ladders of mutually exclusive Bins, and maintains the market
// registry the Monitor reads from.
package discovery

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/weatheragent/core/internal/domain"
)

// Event is a venue catalog event: a group of outcome markets sharing one
// resolution date/station, the raw unit the parser works from.
type Event struct {
	ID      string
	Title   string
	Slug    string
	Active  bool
	Closed  bool
	EndTime time.Time
	Raw     any // venue-specific payload passed to the Parser
}

// MarketCatalog is the thin port onto the trading venue's market listings
// and prices.
type MarketCatalog interface {
	ListWeatherEvents(ctx context.Context) ([]Event, error)
	Prices(ctx context.Context, tokenIDs []string) (map[string]float64, error)
}

// Parser extracts a ladder Market from a catalog Event. ok is false when
// the event isn't a recognizable weather market; the confidence floor is
// applied afterwards by Service.Discover, not by the Parser.
type Parser interface {
	Parse(event Event) (market domain.Market, confidence float64, ok bool)
}

// Registry is the in-memory market registry, upserted by Discover and read
// by GetUpcoming. It is owned by the Service; external callers only read
// snapshots.
type Registry struct {
	mu      sync.Mutex
	markets map[string]domain.Market
}

func newRegistry() *Registry {
	return &Registry{markets: make(map[string]domain.Market)}
}

// Service runs discover/getUpcoming/refreshPrices against a MarketCatalog
// and Parser, maintaining the Registry.
type Service struct {
	catalog    MarketCatalog
	parser     Parser
	minConfidence float64
	registry   *Registry
	now        func() time.Time
}

// NewService builds a discovery Service.
func NewService(catalog MarketCatalog, parser Parser, minConfidence float64) *Service {
	return &Service{
		catalog:       catalog,
		parser:        parser,
		minConfidence: minConfidence,
		registry:      newRegistry(),
		now:           time.Now,
	}
}

// Discover fetches the venue's weather-tagged event catalog, parses each
// event, upserts valid Market records by condition id (preserving status
// on update), and marks every active market past its resolvesAt as
// expired. It is idempotent: running it twice against identical source
// data leaves the registry unchanged.
func (s *Service) Discover(ctx context.Context) error {
	events, err := s.catalog.ListWeatherEvents(ctx)
	if err != nil {
		log.Printf("[discovery] catalog fetch failed: %v", err)
		return nil // discovery errors are logged and skipped, not propagated
	}

	for _, event := range events {
		market, confidence, ok := s.parser.Parse(event)
		if !ok || confidence < s.minConfidence {
			continue
		}
		market.Confidence = confidence
		market.ParsedAt = s.now()
		s.upsert(market)
	}

	s.expireStale()
	return nil
}

func (s *Service) upsert(market domain.Market) {
	s.registry.mu.Lock()
	defer s.registry.mu.Unlock()

	if existing, ok := s.registry.markets[market.ConditionID]; ok {
		market.Status = existing.Status
	} else {
		market.Status = domain.StatusActive
	}
	s.registry.markets[market.ConditionID] = market
}

func (s *Service) expireStale() {
	s.registry.mu.Lock()
	defer s.registry.mu.Unlock()

	now := s.now()
	for id, market := range s.registry.markets {
		if market.Status == domain.StatusActive && now.After(market.ResolvesAt) {
			market.Status = domain.StatusExpired
			s.registry.markets[id] = market
		}
	}
}

// GetUpcoming returns active markets resolving within [now, now+maxLeadDays].
func (s *Service) GetUpcoming(maxLeadDays int) []domain.Market {
	s.registry.mu.Lock()
	defer s.registry.mu.Unlock()

	now := s.now()
	horizon := now.Add(time.Duration(maxLeadDays) * 24 * time.Hour)

	var upcoming []domain.Market
	for _, market := range s.registry.markets {
		if market.Status != domain.StatusActive {
			continue
		}
		if market.ResolvesAt.Before(now) || market.ResolvesAt.After(horizon) {
			continue
		}
		upcoming = append(upcoming, market)
	}
	return upcoming
}

// RefreshPrices batch-fetches current venue prices for every bin of every
// given market, keyed by condition id then token id.
func (s *Service) RefreshPrices(ctx context.Context, markets []domain.Market) (map[string]map[string]float64, error) {
	var tokenIDs []string
	for _, m := range markets {
		for _, b := range m.Bins {
			tokenIDs = append(tokenIDs, b.TokenID)
		}
	}

	prices, err := s.catalog.Prices(ctx, tokenIDs)
	if err != nil {
		log.Printf("[discovery] price refresh failed: %v", err)
		return map[string]map[string]float64{}, nil
	}

	out := make(map[string]map[string]float64, len(markets))
	for _, m := range markets {
		byToken := make(map[string]float64, len(m.Bins))
		for _, b := range m.Bins {
			if p, ok := prices[b.TokenID]; ok {
				byToken[b.TokenID] = p
			}
		}
		out[m.ConditionID] = byToken
	}
	return out, nil
}

// ActiveCount returns the number of markets currently in StatusActive,
// regardless of lead-time horizon. Used by the /status surface.
func (s *Service) ActiveCount() int {
	s.registry.mu.Lock()
	defer s.registry.mu.Unlock()

	n := 0
	for _, m := range s.registry.markets {
		if m.Status == domain.StatusActive {
			n++
		}
	}
	return n
}

// GetMarket returns the registered market for conditionID, if any. Used by
// the Redemption Controller to recover a market's region/date for exposure
// bookkeeping when all it has is a conditionId.
func (s *Service) GetMarket(conditionID string) (domain.Market, bool) {
	s.registry.mu.Lock()
	defer s.registry.mu.Unlock()

	m, ok := s.registry.markets[conditionID]
	return m, ok
}

// MarkResolved transitions a market to RESOLVED, called by the Redemption
// Controller once a position's backing market has settled.
func (s *Service) MarkResolved(conditionID string) {
	s.registry.mu.Lock()
	defer s.registry.mu.Unlock()

	if market, ok := s.registry.markets[conditionID]; ok {
		market.Status = domain.StatusResolved
		s.registry.markets[conditionID] = market
	}
}
