package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/disaster-watch/internal/classify"
	"github.com/mr1hm/disaster-watch/internal/models"
)

const DefaultEONETURL = "https://eonet.gsfc.nasa.gov/api/v3/events?limit=50&days=30"

type eonetResponse struct {
	Events []eonetEvent `json:"events"`
}

type eonetEvent struct {
	ID          string          `json:"id" validate:"required"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Link        string          `json:"link"`
	Categories  []eonetCategory `json:"categories"`
	Geometry    []eonetGeometry `json:"geometry"` // oldest first
}
type eonetCategory struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}
type eonetGeometry struct {
	MagnitudeValue *float64        `json:"magnitudeValue"`
	MagnitudeUnit  string          `json:"magnitudeUnit"`
	Date           string          `json:"date"`
	Type           string          `json:"type"`
	Coordinates    json.RawMessage `json:"coordinates"` // Point [lon, lat] or Polygon [[[lon, lat], ...]]
}

// EONETSource reads NASA's Earth Observatory Natural Event Tracker.
type EONETSource struct {
	url     string
	fetcher *fetcher
	clock   clockwork.Clock
}

// NewEONETSource builds the multi-hazard source. clock supplies the fallback date for
// events without a usable geometry sample; nil means the real clock.
func NewEONETSource(url string, client *http.Client, retry RetryPolicy, clock clockwork.Clock) *EONETSource {
	if url == "" {
		url = DefaultEONETURL
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &EONETSource{
		url:     url,
		fetcher: newFetcher("eonet", client, retry),
		clock:   clock,
	}
}

func (s *EONETSource) Name() string {
	return models.SourceEONET
}

func (s *EONETSource) Fetch(ctx context.Context) ([]models.DisasterEvent, error) {
	body, err := s.fetcher.get(ctx, s.url)
	if err != nil {
		return nil, err
	}

	var data eonetResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("error decoding EONET response: %w", err)
	}

	events := make([]models.DisasterEvent, 0, len(data.Events))
	for _, e := range data.Events {
		if err := validate.Struct(e); err != nil {
			slog.Warn("skipping malformed EONET event", "id", e.ID, "error", err.Error())
			continue
		}
		events = append(events, s.toEvent(e))
	}

	return events, nil
}

func (s *EONETSource) toEvent(e eonetEvent) models.DisasterEvent {
	category := models.CategoryOther
	if len(e.Categories) > 0 {
		category = classify.NormalizeEONET(e.Categories[0].ID)
	}

	var (
		coords    models.Coordinates
		magnitude *float64
		date      = s.clock.Now().UTC()
	)
	if n := len(e.Geometry); n > 0 {
		latest := e.Geometry[n-1]
		coords = parseCoordinates(latest.Coordinates)
		magnitude = latest.MagnitudeValue

		if ts, err := time.Parse(time.RFC3339, latest.Date); err == nil {
			date = ts.UTC()
		} else {
			slog.Warn("EONET date parsing failed", "id", e.ID, "date", latest.Date, "error", err.Error())
		}
	}

	description := e.Description
	if description == "" {
		description = e.Title
	}

	return models.DisasterEvent{
		ID:          e.ID,
		Title:       e.Title,
		Description: description,
		Category:    category,
		Location: models.Location{
			Coordinates: coords,
			Name:        e.Title,
		},
		Date:         date,
		Severity:     classify.Severity(category, magnitude),
		Source:       models.SourceEONET,
		URL:          e.Link,
		Magnitude:    magnitude,
		AffectedArea: e.Title,
	}
}

// parseCoordinates converts a GeoJSON Point or Polygon into (lat, lon).
// Polygons collapse to the centroid of their outer ring.
func parseCoordinates(raw json.RawMessage) models.Coordinates {
	if len(raw) == 0 {
		return models.Coordinates{}
	}

	var point []float64
	if err := json.Unmarshal(raw, &point); err == nil {
		if len(point) < 2 {
			return models.Coordinates{}
		}
		return models.NewCoordinates(point[1], point[0])
	}

	var polygon [][][]float64
	if err := json.Unmarshal(raw, &polygon); err == nil && len(polygon) > 0 {
		return ringCentroid(polygon[0])
	}

	return models.Coordinates{}
}

func ringCentroid(ring [][]float64) models.Coordinates {
	// GeoJSON rings repeat the first vertex at the end.
	if n := len(ring); n > 1 && len(ring[0]) >= 2 && len(ring[n-1]) >= 2 &&
		ring[0][0] == ring[n-1][0] && ring[0][1] == ring[n-1][1] {
		ring = ring[:n-1]
	}

	var sumLat, sumLon float64
	var count int
	for _, v := range ring {
		if len(v) < 2 {
			continue
		}
		sumLon += v[0]
		sumLat += v[1]
		count++
	}
	if count == 0 {
		return models.Coordinates{}
	}
	return models.NewCoordinates(sumLat/float64(count), sumLon/float64(count))
}
