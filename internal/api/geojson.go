package api

import (
	"fmt"
	"math"
	"time"

	"github.com/mr1hm/disaster-watch/internal/models"
	"github.com/mr1hm/disaster-watch/internal/stats"
)

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

func toGeoJSON(events []models.DisasterEvent) FeatureCollection {
	features := make([]Feature, 0, len(events))

	for i := range events {
		e := &events[i]
		props := map[string]any{
			"id":                 e.ID,
			"title":              e.Title,
			"description":        e.Description,
			"category":           e.Category,
			"severity":           e.Severity.String(),
			"source":             e.Source,
			"date":               e.Date,
			"location":           e.PlaceName(),
			"estimated_affected": stats.EstimatedAffected(e),
		}
		if e.Magnitude != nil {
			props["magnitude"] = *e.Magnitude
		}
		if e.URL != "" {
			props["url"] = e.URL
		}

		features = append(features, Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: []float64{e.Location.Coordinates.Longitude(), e.Location.Coordinates.Latitude()},
			},
			Properties: props,
		})
	}

	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}

// ExportRecord is the flattened download format of one event.
type ExportRecord struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	Location          string   `json:"location"`
	Coordinates       string   `json:"coordinates"`
	Latitude          float64  `json:"latitude"`
	Longitude         float64  `json:"longitude"`
	Severity          string   `json:"severity"`
	Category          string   `json:"category"`
	Date              string   `json:"date"`
	Magnitude         *float64 `json:"magnitude,omitempty"`
	Source            string   `json:"source"`
	EstimatedAffected int      `json:"estimatedAffected"`
	URL               string   `json:"url,omitempty"`
}

func toExport(events []models.DisasterEvent) []ExportRecord {
	records := make([]ExportRecord, 0, len(events))
	for i := range events {
		e := &events[i]
		records = append(records, ExportRecord{
			ID:                e.ID,
			Title:             e.Title,
			Location:          e.PlaceName(),
			Coordinates:       formatCoordinates(e.Location.Coordinates),
			Latitude:          e.Location.Coordinates.Latitude(),
			Longitude:         e.Location.Coordinates.Longitude(),
			Severity:          e.Severity.String(),
			Category:          string(e.Category),
			Date:              e.Date.UTC().Format(time.RFC3339),
			Magnitude:         e.Magnitude,
			Source:            e.Source,
			EstimatedAffected: stats.EstimatedAffected(e),
			URL:               e.URL,
		})
	}
	return records
}

// formatCoordinates renders e.g. "12.3456°N, 45.6789°W".
func formatCoordinates(c models.Coordinates) string {
	latDir, lonDir := "N", "E"
	if c.Latitude() < 0 {
		latDir = "S"
	}
	if c.Longitude() < 0 {
		lonDir = "W"
	}
	return fmt.Sprintf("%.4f°%s, %.4f°%s", math.Abs(c.Latitude()), latDir, math.Abs(c.Longitude()), lonDir)
}
