// Package stats reduces an aggregated event list into dashboard summary numbers.
package stats

import (
	"context"
	"strings"

	"github.com/mr1hm/disaster-watch/internal/models"
)

// UnknownRegion is reported for events whose place text carries no comma.
const UnknownRegion = "unknown"

// EventFetcher is satisfied by ingestion.Aggregator.
type EventFetcher interface {
	FetchAll(ctx context.Context) ([]models.DisasterEvent, error)
}

type Reporter struct {
	fetcher EventFetcher
}

func NewReporter(fetcher EventFetcher) *Reporter {
	return &Reporter{fetcher: fetcher}
}

// FetchStats aggregates the live feeds and reduces them.
func (r *Reporter) FetchStats(ctx context.Context) (models.Stats, error) {
	events, err := r.fetcher.FetchAll(ctx)
	if err != nil {
		return models.Stats{}, err
	}
	return Reduce(events), nil
}

func Reduce(events []models.DisasterEvent) models.Stats {
	s := models.Stats{
		TotalEvents: len(events),
		ByCategory:  make(map[models.Category]int),
	}
	regions := make(map[string]struct{})

	for i := range events {
		e := &events[i]
		switch e.Severity {
		case models.SeverityCritical:
			s.CriticalEvents++
		case models.SeverityHigh:
			s.HighEvents++
		}
		s.ByCategory[e.Category]++
		regions[Region(e)] = struct{}{}
	}
	s.Countries = len(regions)

	return s
}

// Region is the trimmed text after the last comma of the place name.
// It is a rough country proxy, not geocoding.
func Region(e *models.DisasterEvent) string {
	place := e.PlaceName()
	idx := strings.LastIndex(place, ",")
	if idx < 0 {
		return UnknownRegion
	}
	region := strings.TrimSpace(place[idx+1:])
	if region == "" {
		return UnknownRegion
	}
	return region
}
