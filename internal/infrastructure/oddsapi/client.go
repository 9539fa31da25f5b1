package oddsapi

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/odds-monitor/internal/domain/fixture"
	"github.com/riskibarqy/odds-monitor/internal/domain/odds"
	"github.com/riskibarqy/odds-monitor/internal/platform/logging"
	"github.com/riskibarqy/odds-monitor/internal/platform/resilience"
	"github.com/riskibarqy/odds-monitor/internal/usecase"
)

const maxResponseBytes = 6 << 20

var errOddsAPITransient = crerr.New("odds api transient failure")

// ClientConfig configures the odds platform HTTP client.
type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client talks to the odds platform's one-shot HTTP endpoints: fixture
// listing and per-fixture odds snapshots. Implements usecase.OddsGateway.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}

	return &Client{
		httpClient:     httpClient,
		baseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		maxRetries:     max(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        cfg.CircuitBreaker.Build(),
		circuitEnabled: cfg.CircuitBreaker.Enabled,
	}
}

func (c *Client) ListFixtures(ctx context.Context, page, pageSize int) (usecase.FixturePage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 100
	}

	var envelope fixturesEnvelope
	query := map[string]string{
		"page":     strconv.Itoa(page),
		"pageSize": strconv.Itoa(pageSize),
	}
	if err := c.doJSON(ctx, "/fixtures", query, &envelope); err != nil {
		return usecase.FixturePage{}, fmt.Errorf("list fixtures page=%d: %w", page, err)
	}

	fixtures := make([]fixture.Fixture, 0, len(envelope.Data))
	for _, item := range envelope.Data {
		if item.ID <= 0 {
			continue
		}
		fixtures = append(fixtures, mapFixture(item))
	}
	return usecase.FixturePage{
		Fixtures:   fixtures,
		Total:      envelope.Total,
		TotalPages: envelope.TotalPages,
	}, nil
}

func (c *Client) FetchOdds(ctx context.Context, fixtureID int64, fairOdds bool) ([]odds.BookmakerOdds, error) {
	if fixtureID <= 0 {
		return nil, fmt.Errorf("%w: fixture id must be positive", usecase.ErrInvalidInput)
	}

	var envelope oddsEnvelope
	query := map[string]string{
		"fixtureId": strconv.FormatInt(fixtureID, 10),
		"fair_odds": strconv.FormatBool(fairOdds),
	}
	if err := c.doJSON(ctx, "/odds", query, &envelope); err != nil {
		return nil, fmt.Errorf("fetch odds fixture=%d: %w", fixtureID, err)
	}

	books := envelope.Odds[:0:0]
	for _, book := range envelope.Odds {
		if strings.TrimSpace(book.Bookie) == "" {
			continue
		}
		books = append(books, book)
	}
	return books, nil
}

func (c *Client) doJSON(ctx context.Context, path string, query map[string]string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "odds api circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: odds platform is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}

	fullURL := c.baseURL + path
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	out, err, _ := c.flight.Do(fullURL, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && stderrors.Is(reqErr, errOddsAPITransient) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("unexpected response payload type %T", out)
	}
	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode odds platform payload: %w", err)
	}
	return nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %v", errOddsAPITransient, err)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("%w: read response body: %v", errOddsAPITransient, readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case isRetryableStatus(resp.StatusCode):
				lastErr = fmt.Errorf("%w: platform status=%d body=%s", errOddsAPITransient, resp.StatusCode, abbreviateBody(raw))
			default:
				return nil, fmt.Errorf("platform status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("odds platform request failed")
	}
	c.logger.WarnContext(ctx, "odds api request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func abbreviateBody(raw []byte) string {
	const limit = 256
	body := strings.TrimSpace(string(raw))
	if len(body) > limit {
		return body[:limit] + "..."
	}
	return body
}
