package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/riskibarqy/odds-monitor/internal/domain/odds"
	"github.com/riskibarqy/odds-monitor/internal/platform/logging"
	"github.com/riskibarqy/odds-monitor/internal/usecase"
)

const maxFilterBodyBytes = 64 << 10

type Handler struct {
	feed      *usecase.FeedService
	monitor   *usecase.MonitorService
	logger    *logging.Logger
	validator *validator.Validate
}

func NewHandler(feed *usecase.FeedService, monitor *usecase.MonitorService, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		feed:      feed,
		monitor:   monitor,
		logger:    logger,
		validator: validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	stats := h.monitor.Stats()
	writeSuccess(ctx, w, http.StatusOK, map[string]any{
		"status": "ok",
		"stats": map[string]any{
			"messagesReceived": stats.MessagesReceived,
			"snapshots":        stats.Snapshots,
			"updates":          stats.Updates,
			"removals":         stats.Removals,
			"evictions":        stats.Evictions,
			"activeFixtures":   stats.ActiveFixtures,
			"historyDepth":     stats.HistoryDepth,
			"lastMessageAt":    stats.LastMessageAt,
		},
	})
}

func (h *Handler) ListFixtures(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListFixtures")
	defer span.End()

	entries := h.monitor.ByKickoff()
	items := make([]fixtureDTO, 0, len(entries))
	for _, entry := range entries {
		items = append(items, fixtureToDTO(entry))
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) ListRecentFixtures(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListRecentFixtures")
	defer span.End()

	entries := h.monitor.RecentlyUpdated()
	items := make([]fixtureDTO, 0, len(entries))
	for _, entry := range entries {
		items = append(items, fixtureToDTO(entry))
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

// GetFixtureOdds serves the merged market view for one fixture. The watched
// fixture reads from the live feed controller; everything else resolves
// through the monitor (active first, then history).
func (h *Handler) GetFixtureOdds(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetFixtureOdds")
	defer span.End()

	fixtureID, err := parseFixtureID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if h.feed.FixtureID() == fixtureID && h.feed.State() == usecase.FeedLive {
		entry, lookupErr := h.monitor.Lookup(fixtureID)
		if lookupErr != nil {
			entry = usecase.FixtureWithOdds{}
			entry.Fixture.ID = fixtureID
		}
		data := h.feed.Data()
		entry.Bookmakers = data
		entry.Top = data.Top()
		writeSuccess(ctx, w, http.StatusOK, fixtureOddsDTO{
			Fixture: fixtureToDTO(entry),
			Books:   dataToBookDTOs(data),
		})
		return
	}

	entry, err := h.monitor.Lookup(fixtureID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, fixtureOddsDTO{
		Fixture: fixtureToDTO(entry),
		Books:   dataToBookDTOs(entry.Bookmakers),
	})
}

func (h *Handler) GetFixtureFlash(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetFixtureFlash")
	defer span.End()

	fixtureID, err := parseFixtureID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if h.feed.FixtureID() != fixtureID {
		writeError(ctx, w, fmt.Errorf("%w: fixture %d is not being watched", usecase.ErrNotFound, fixtureID))
		return
	}

	writeSuccess(ctx, w, http.StatusOK, h.feed.Flash())
}

type movementQuery struct {
	Bookie  string  `validate:"required"`
	Market  string  `validate:"required,oneof=x12 ah ou"`
	Outcome string  `validate:"required"`
	Line    float64 `validate:"gte=-30,lte=30"`
}

var movementMarkets = map[string]string{
	"x12": odds.Market1X2,
	"ah":  odds.MarketAH,
	"ou":  odds.MarketOU,
}

func (h *Handler) GetFixtureMovement(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetFixtureMovement")
	defer span.End()

	fixtureID, err := parseFixtureID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if h.feed.FixtureID() != fixtureID {
		writeError(ctx, w, fmt.Errorf("%w: fixture %d is not being watched", usecase.ErrNotFound, fixtureID))
		return
	}

	query := movementQuery{
		Bookie:  r.URL.Query().Get("bookie"),
		Market:  r.URL.Query().Get("market"),
		Outcome: r.URL.Query().Get("outcome"),
	}
	if raw := r.URL.Query().Get("line"); raw != "" {
		line, parseErr := strconv.ParseFloat(raw, 64)
		if parseErr != nil {
			writeError(ctx, w, fmt.Errorf("%w: line must be numeric", usecase.ErrInvalidInput))
			return
		}
		query.Line = line
	}
	if err := h.validator.Struct(query); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err))
		return
	}

	movement := h.feed.Movement(query.Bookie, movementMarkets[query.Market], query.Outcome, query.Line)
	writeSuccess(ctx, w, http.StatusOK, map[string]string{"movement": string(movement)})
}

func (h *Handler) WatchFixture(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.WatchFixture")
	defer span.End()

	fixtureID, err := parseFixtureID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.feed.Watch(ctx, fixtureID); err != nil {
		h.logger.ErrorContext(ctx, "watch fixture failed", "fixture_id", fixtureID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]any{
		"fixtureId": fixtureID,
		"state":     string(h.feed.State()),
		"warning":   h.feed.Warning(),
	})
}

func (h *Handler) UnwatchFixture(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UnwatchFixture")
	defer span.End()

	fixtureID, err := parseFixtureID(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if h.feed.FixtureID() != fixtureID {
		writeError(ctx, w, fmt.Errorf("%w: fixture %d is not being watched", usecase.ErrNotFound, fixtureID))
		return
	}

	h.feed.Close()
	writeSuccess(ctx, w, http.StatusOK, map[string]string{"state": string(usecase.FeedIdle)})
}

func (h *Handler) ApplyMonitorFilter(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ApplyMonitorFilter")
	defer span.End()

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxFilterBodyBytes))
	if err != nil {
		writeError(ctx, w, fmt.Errorf("%w: read request body", usecase.ErrInvalidInput))
		return
	}
	filter, err := odds.ParseFilter(raw)
	if err != nil {
		writeError(ctx, w, fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err))
		return
	}

	if err := h.monitor.ApplyFilter(ctx, &filter); err != nil {
		h.logger.ErrorContext(ctx, "apply monitor filter failed", "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "filter applied"})
}

func (h *Handler) ClearMonitorFilter(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ClearMonitorFilter")
	defer span.End()

	if err := h.monitor.ClearFilter(ctx); err != nil {
		h.logger.ErrorContext(ctx, "clear monitor filter failed", "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "filter cleared"})
}

func parseFixtureID(r *http.Request) (int64, error) {
	raw := r.PathValue("fixtureID")
	fixtureID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || fixtureID <= 0 {
		return 0, fmt.Errorf("%w: fixture id must be a positive integer", usecase.ErrInvalidInput)
	}
	return fixtureID, nil
}
