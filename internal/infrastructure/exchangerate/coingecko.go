// Package exchangerate implements the USD rate service against CoinGecko.
package exchangerate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"blocklotto/internal/shared/logger"
)

const (
	coinGeckoURL = "https://api.coingecko.com/api/v3/simple/price?ids=matic-network&vs_currencies=usd"

	requestTimeout  = 10 * time.Second
	cacheTTL        = 5 * time.Minute
	maxResponseSize = 1 << 16
)

// CoinGeckoService fetches the MATIC/USD rate with a short cache. A fetch
// failure serves the last known rate instead of erroring, as long as one
// exists.
type CoinGeckoService struct {
	httpClient *http.Client
	logger     logger.Interface

	mu         sync.Mutex
	cachedRate float64
	cachedAt   time.Time
}

// NewCoinGeckoService creates a CoinGeckoService.
func NewCoinGeckoService(log logger.Interface) *CoinGeckoService {
	return &CoinGeckoService{
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     log.Named("coingecko"),
	}
}

// GetUSDRate returns the MATIC/USD rate.
func (s *CoinGeckoService) GetUSDRate(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cachedAt.IsZero() && time.Since(s.cachedAt) < cacheTTL {
		return s.cachedRate, nil
	}

	rate, err := s.fetch(ctx)
	if err != nil {
		if !s.cachedAt.IsZero() {
			s.logger.Warnw("rate fetch failed, serving stale rate",
				"stale_age", time.Since(s.cachedAt).String(),
				"error", err,
			)
			return s.cachedRate, nil
		}
		return 0, err
	}

	s.cachedRate = rate
	s.cachedAt = time.Now()
	return rate, nil
}

func (s *CoinGeckoService) fetch(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, coinGeckoURL, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetching rate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rate API returned status %d", resp.StatusCode)
	}

	var payload map[string]struct {
		USD float64 `json:"usd"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decoding rate response: %w", err)
	}

	entry, ok := payload["matic-network"]
	if !ok || entry.USD <= 0 {
		return 0, fmt.Errorf("rate missing from response")
	}

	return entry.USD, nil
}
