package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/mr1hm/disaster-watch/internal/kvstore"
	"github.com/mr1hm/disaster-watch/internal/models"
	"github.com/mr1hm/disaster-watch/internal/repository"
	"github.com/mr1hm/disaster-watch/internal/stream"
)

const defaultHistoryLimit = 20

var validate = validator.New()

// EventSource is satisfied by ingestion.Aggregator.
type EventSource interface {
	FetchAll(ctx context.Context) ([]models.DisasterEvent, error)
	Sources() []string
}

// StatsSource is satisfied by stats.Reporter.
type StatsSource interface {
	FetchStats(ctx context.Context) (models.Stats, error)
}

type Handler struct {
	events      EventSource
	stats       StatsSource
	repo        repository.DisasterRepository
	broadcaster *stream.Broadcaster
	prefs       kvstore.Store
}

func NewHandler(events EventSource, stats StatsSource, repo repository.DisasterRepository,
	broadcaster *stream.Broadcaster, prefs kvstore.Store) *Handler {
	return &Handler{
		events:      events,
		stats:       stats,
		repo:        repo,
		broadcaster: broadcaster,
		prefs:       prefs,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	api.GET("/disasters", h.getDisasters)
	api.GET("/disasters/geojson", h.getDisastersGeoJSON)
	api.GET("/disasters/export", h.exportDisasters)
	api.GET("/stats", h.getStats)
	api.GET("/history", h.getHistory)
	api.GET("/stream", h.streamDisasters)

	api.GET("/preferences/:key", h.getPreference)
	api.PUT("/preferences/:key", h.putPreference)
	api.DELETE("/preferences/:key", h.deletePreference)
	api.DELETE("/preferences", h.clearPreferences)

	r.GET("/health", h.health)
}

// eventQuery is shared by the live endpoints and the stream.
type eventQuery struct {
	Category    string `form:"category"`
	Severity    string `form:"severity"`
	MinSeverity string `form:"min_severity"`
	Source      string `form:"source"`
	Search      string `form:"q" binding:"max=200"`
	Limit       int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

func (q eventQuery) filter() (models.Filter, error) {
	f := models.Filter{
		Source: q.Source,
		Search: q.Search,
		Limit:  q.Limit,
	}

	if q.Category != "" {
		cat, ok := models.ParseCategory(q.Category)
		if !ok {
			return f, errors.New("unknown category: " + q.Category)
		}
		f.Category = &cat
	}
	if q.Severity != "" {
		sev, ok := models.ParseSeverity(q.Severity)
		if !ok {
			return f, errors.New("unknown severity: " + q.Severity)
		}
		f.Severity = &sev
	}
	if q.MinSeverity != "" {
		sev, ok := models.ParseSeverity(q.MinSeverity)
		if !ok {
			return f, errors.New("unknown min_severity: " + q.MinSeverity)
		}
		f.MinSeverity = &sev
	}

	return f, nil
}

func parseEventFilter(c *gin.Context) (models.Filter, bool) {
	var q eventQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return models.Filter{}, false
	}
	f, err := q.filter()
	if err != nil {
		badRequest(c, err)
		return models.Filter{}, false
	}
	return f, true
}

// liveEvents aggregates the upstream feeds and applies the request's filter.
// Upstream failures surface as an empty list, never as an error response.
func (h *Handler) liveEvents(c *gin.Context) ([]models.DisasterEvent, bool) {
	f, ok := parseEventFilter(c)
	if !ok {
		return nil, false
	}

	events, err := h.events.FetchAll(c.Request.Context())
	if err != nil {
		slog.Warn("aggregation aborted", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "request cancelled"})
		return nil, false
	}

	return f.Apply(events), true
}

func (h *Handler) getDisasters(c *gin.Context) {
	events, ok := h.liveEvents(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *Handler) getDisastersGeoJSON(c *gin.Context) {
	events, ok := h.liveEvents(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, toGeoJSON(events))
}

func (h *Handler) exportDisasters(c *gin.Context) {
	events, ok := h.liveEvents(c)
	if !ok {
		return
	}

	filename := "disasters-" + time.Now().UTC().Format(time.DateOnly) + ".json"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.JSON(http.StatusOK, toExport(events))
}

func (h *Handler) getStats(c *gin.Context) {
	s, err := h.stats.FetchStats(c.Request.Context())
	if err != nil {
		slog.Warn("stats aborted", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "request cancelled"})
		return
	}
	c.JSON(http.StatusOK, s)
}

type historyQuery struct {
	Category    string `form:"category"`
	MinSeverity string `form:"min_severity"`
	Source      string `form:"source"`
	Since       string `form:"since" binding:"omitempty,datetime=2006-01-02"`
	Limit       int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset      int    `form:"offset" binding:"omitempty,min=0"`
}

func (h *Handler) getHistory(c *gin.Context) {
	if h.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "archive unavailable"})
		return
	}

	var q historyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	filter := repository.ArchiveFilter{
		Limit:  defaultHistoryLimit,
		Offset: q.Offset,
		Source: q.Source,
	}
	if q.Limit > 0 {
		filter.Limit = q.Limit
	}
	if q.Category != "" {
		cat, ok := models.ParseCategory(q.Category)
		if !ok {
			badRequest(c, errors.New("unknown category: "+q.Category))
			return
		}
		filter.Category = &cat
	}
	if q.MinSeverity != "" {
		sev, ok := models.ParseSeverity(q.MinSeverity)
		if !ok {
			badRequest(c, errors.New("unknown min_severity: "+q.MinSeverity))
			return
		}
		filter.MinSeverity = &sev
	}
	if q.Since != "" {
		since, err := time.Parse(time.DateOnly, q.Since)
		if err != nil {
			badRequest(c, err)
			return
		}
		filter.Since = &since
	}

	events, err := h.repo.ListDisasters(c.Request.Context(), filter)
	if err != nil {
		slog.Error("error listing archive", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to fetch disasters",
		})
		return
	}

	c.JSON(http.StatusOK, events)
}

func (h *Handler) health(c *gin.Context) {
	subscribers := 0
	if h.broadcaster != nil {
		subscribers = h.broadcaster.SubscriberCount()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"sources":     h.events.Sources(),
		"subscribers": subscribers,
	})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
