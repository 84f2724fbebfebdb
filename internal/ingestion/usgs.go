package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mr1hm/disaster-watch/internal/classify"
	"github.com/mr1hm/disaster-watch/internal/models"
)

const DefaultUSGSURL = "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/significant_week.geojson"

var validate = validator.New()

type usgsResponse struct {
	Features []usgsFeature `json:"features"`
}

type usgsFeature struct {
	ID         string         `json:"id" validate:"required"`
	Properties usgsProperties `json:"properties"`
	Geometry   *usgsGeometry  `json:"geometry"`
}
type usgsProperties struct {
	Mag   *float64 `json:"mag"`
	Place string   `json:"place"`
	Time  int64    `json:"time" validate:"gt=0"` // epoch millis
	URL   string   `json:"url"`
	Title string   `json:"title"`
}
type usgsGeometry struct {
	Coordinates []float64 `json:"coordinates"` // [lon, lat, depth]
}

// USGSSource reads the USGS "significant earthquakes, past week" GeoJSON feed.
type USGSSource struct {
	url     string
	fetcher *fetcher
}

func NewUSGSSource(url string, client *http.Client, retry RetryPolicy) *USGSSource {
	if url == "" {
		url = DefaultUSGSURL
	}
	return &USGSSource{
		url:     url,
		fetcher: newFetcher("usgs", client, retry),
	}
}

func (s *USGSSource) Name() string {
	return models.SourceUSGS
}

func (s *USGSSource) Fetch(ctx context.Context) ([]models.DisasterEvent, error) {
	body, err := s.fetcher.get(ctx, s.url)
	if err != nil {
		return nil, err
	}

	var data usgsResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("error decoding USGS response: %w", err)
	}

	events := make([]models.DisasterEvent, 0, len(data.Features))
	for _, f := range data.Features {
		if err := validate.Struct(f); err != nil {
			slog.Warn("skipping malformed USGS feature", "id", f.ID, "error", err.Error())
			continue
		}
		events = append(events, f.toEvent())
	}

	return events, nil
}

func (f usgsFeature) toEvent() models.DisasterEvent {
	var lat, lon float64
	if f.Geometry != nil && len(f.Geometry.Coordinates) >= 2 {
		lon, lat = f.Geometry.Coordinates[0], f.Geometry.Coordinates[1]
	}

	title := f.Properties.Title
	if f.Properties.Mag != nil {
		title = fmt.Sprintf("Earthquake M%.1f", *f.Properties.Mag)
	} else if title == "" {
		title = "Earthquake"
	}

	place := f.Properties.Place
	if place == "" {
		place = title
	}

	return models.DisasterEvent{
		ID:          f.ID,
		Title:       title,
		Description: place,
		Category:    models.CategoryEarthquake,
		Location: models.Location{
			Coordinates: models.NewCoordinates(lat, lon),
			Name:        place,
		},
		Date:         time.UnixMilli(f.Properties.Time).UTC(),
		Severity:     classify.Severity(models.CategoryEarthquake, f.Properties.Mag),
		Source:       models.SourceUSGS,
		URL:          f.Properties.URL,
		Magnitude:    f.Properties.Mag,
		AffectedArea: place,
	}
}
