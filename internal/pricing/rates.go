package pricing

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/commtamo10-tech/skatebaypublisher/internal/infra"
)

// ECBFeedURL is the European Central Bank daily reference rate feed.
const ECBFeedURL = "https://www.ecb.europa.eu/stats/eurofxref/eurofxref-daily.xml"

const defaultCacheTTL = 12 * time.Hour

// FallbackRates are used when the ECB feed is unavailable and no cached rates
// exist. All rates are EUR-based: 1 EUR = rate units of the currency.
var FallbackRates = map[string]float64{
	"USD": 1.08,
	"AUD": 1.65,
	"GBP": 0.85,
}

// Options configures a rate Store.
type Options struct {
	FeedURL    string
	CacheTTL   time.Duration
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Store caches EUR-based exchange rates fetched from the ECB feed. It is safe
// for concurrent use.
type Store struct {
	feedURL    string
	cacheTTL   time.Duration
	httpClient *http.Client
	logger     *infra.Logger

	mu        sync.RWMutex
	rates     map[string]float64
	fetchedAt time.Time
}

// NewStore constructs a Store with sane defaults.
func NewStore(opts Options) *Store {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	feedURL := opts.FeedURL
	if feedURL == "" {
		feedURL = ECBFeedURL
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Store{
		feedURL:    feedURL,
		cacheTTL:   ttl,
		httpClient: httpClient,
		logger:     logger,
	}
}

type ecbEnvelope struct {
	XMLName xml.Name  `xml:"Envelope"`
	Cubes   []ecbCube `xml:"Cube>Cube>Cube"`
}

type ecbCube struct {
	Currency string  `xml:"currency,attr"`
	Rate     float64 `xml:"rate,attr"`
}

// Rates returns the cached rates, refreshing them when the cache is stale.
// The feed being unreachable degrades to previously cached rates, then to the
// static fallback table; Rates never fails outright.
func (s *Store) Rates(ctx context.Context) map[string]float64 {
	s.mu.RLock()
	fresh := s.rates != nil && time.Since(s.fetchedAt) < s.cacheTTL
	cached := s.rates
	s.mu.RUnlock()
	if fresh {
		return cached
	}

	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("pricing: rate refresh failed")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.rates != nil {
		return s.rates
	}
	rates := map[string]float64{"EUR": 1.0}
	for cur, rate := range FallbackRates {
		rates[cur] = rate
	}
	return rates
}

// FetchedAt returns the time the cached rates were loaded, zero when none are
// cached yet.
func (s *Store) FetchedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchedAt
}

// Refresh fetches the ECB feed and replaces the cached rates.
func (s *Store) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.feedURL, nil)
	if err != nil {
		return fmt.Errorf("pricing: build request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pricing: fetch rates: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pricing: feed status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("pricing: read feed: %w", err)
	}
	var envelope ecbEnvelope
	if err := xml.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("pricing: decode feed: %w", err)
	}
	if len(envelope.Cubes) == 0 {
		return errors.New("pricing: feed returned no rates")
	}

	rates := map[string]float64{"EUR": 1.0}
	for _, cube := range envelope.Cubes {
		if cube.Currency == "" || cube.Rate <= 0 {
			continue
		}
		rates[cube.Currency] = cube.Rate
	}

	s.mu.Lock()
	s.rates = rates
	s.fetchedAt = time.Now().UTC()
	s.mu.Unlock()

	s.logger.Info().Int("count", len(rates)).Msg("pricing: refreshed exchange rates")
	return nil
}

// Convert converts an amount between currencies using EUR-based rates. Unknown
// currencies convert at parity.
func Convert(amount float64, from, to string, rates map[string]float64) float64 {
	if from == to {
		return amount
	}
	fromRate, ok := rates[from]
	if !ok || fromRate <= 0 {
		fromRate = 1.0
	}
	toRate, ok := rates[to]
	if !ok || toRate <= 0 {
		toRate = 1.0
	}
	switch {
	case from == "EUR":
		return amount * toRate
	case to == "EUR":
		return amount / fromRate
	default:
		return amount / fromRate * toRate
	}
}
