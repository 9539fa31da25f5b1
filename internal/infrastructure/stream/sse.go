package stream

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/odds-monitor/internal/platform/logging"
	"github.com/riskibarqy/odds-monitor/internal/usecase"
)

// sseBufferLimit bounds a single event line; odds snapshots for a busy
// fixture can run long but never anywhere near this.
const sseBufferLimit = 4 << 20

// SSEDialer opens per-fixture odds streams over server-sent events.
// Implements usecase.StreamDialer.
type SSEDialer struct {
	httpClient *http.Client
	baseURL    string
	logger     *logging.Logger
}

func NewSSEDialer(httpClient *http.Client, baseURL string, logger *logging.Logger) *SSEDialer {
	if httpClient == nil {
		// streaming body, so no client-level timeout
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SSEDialer{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		logger:     logger,
	}
}

func (d *SSEDialer) DialFixture(ctx context.Context, fixtureID int64, fairOdds bool) (usecase.Stream, error) {
	if fixtureID <= 0 {
		return nil, fmt.Errorf("%w: fixture id must be positive", usecase.ErrInvalidInput)
	}

	values := url.Values{}
	values.Set("fixtureId", strconv.FormatInt(fixtureID, 10))
	values.Set("fair_odds", strconv.FormatBool(fairOdds))
	fullURL := d.baseURL + "?" + values.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("accept", "text/event-stream")
	req.Header.Set("cache-control", "no-cache")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: dial odds stream: %v", usecase.ErrDependencyUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, crerr.Newf("odds stream status=%d", resp.StatusCode)
	}

	conn := &sseStream{
		resp:   resp,
		msgs:   make(chan usecase.StreamMessage, 64),
		logger: d.logger,
	}
	go conn.readLoop(fixtureID)
	return conn, nil
}

type sseStream struct {
	resp   *http.Response
	msgs   chan usecase.StreamMessage
	logger *logging.Logger

	mu     sync.Mutex
	err    error
	closed bool
}

func (s *sseStream) Messages() <-chan usecase.StreamMessage { return s.msgs }

func (s *sseStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *sseStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.resp.Body.Close()
}

// readLoop parses the event-stream framing: "data:" lines carry payloads,
// everything else (comments, event names, blank separators) is skipped.
// A payload that fails to decode is logged and dropped, not fatal.
func (s *sseStream) readLoop(fixtureID int64) {
	defer close(s.msgs)

	scanner := bufio.NewScanner(s.resp.Body)
	scanner.Buffer(make([]byte, 64<<10), sseBufferLimit)

	for scanner.Scan() {
		line := scanner.Bytes()
		if !bytes.HasPrefix(line, []byte("data:")) {
			continue
		}
		payload := bytes.TrimSpace(line[len("data:"):])
		if len(payload) == 0 {
			continue
		}

		msg, err := decodeMessage(payload)
		if err != nil {
			s.logger.Warn("dropping malformed stream event", "fixture_id", fixtureID, "error", err)
			continue
		}
		s.msgs <- msg
	}

	scanErr := scanner.Err()
	s.mu.Lock()
	if scanErr != nil && !s.closed {
		s.err = fmt.Errorf("%w: %v", usecase.ErrStreamClosed, scanErr)
	}
	s.mu.Unlock()
	_ = s.resp.Body.Close()
}
