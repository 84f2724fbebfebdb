package stats

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/disaster-watch/internal/models"
)

func event(cat models.Category, sev models.Severity, place string) models.DisasterEvent {
	return models.DisasterEvent{Category: cat, Severity: sev, Location: models.Location{Name: place}}
}

func TestReduce_ByCategoryOnlyPresent(t *testing.T) {
	events := []models.DisasterEvent{
		event(models.CategoryEarthquake, models.SeverityCritical, "Springfield, USA"),
		event(models.CategoryEarthquake, models.SeverityLow, "Offshore, Chile"),
		event(models.CategoryEarthquake, models.SeverityHigh, "Honshu, Japan"),
		event(models.CategoryWildfire, models.SeverityHigh, "Wildfire in Alberta, Canada"),
		event(models.CategoryWildfire, models.SeverityHigh, "Wildfire near Perth"),
	}

	s := Reduce(events)

	assert.Equal(t, 5, s.TotalEvents)
	assert.Equal(t, 1, s.CriticalEvents)
	assert.Equal(t, 3, s.HighEvents)
	assert.Equal(t, map[models.Category]int{
		models.CategoryEarthquake: 3,
		models.CategoryWildfire:   2,
	}, s.ByCategory)
	// USA, Chile, Japan, Canada, unknown
	assert.Equal(t, 5, s.Countries)
}

func TestReduce_Empty(t *testing.T) {
	s := Reduce(nil)
	assert.Zero(t, s.TotalEvents)
	assert.Zero(t, s.Countries)
	assert.NotNil(t, s.ByCategory)
	assert.Empty(t, s.ByCategory)
}

func TestRegion(t *testing.T) {
	cases := map[string]string{
		"Springfield, USA":               "USA",
		"10 km S of Town, Region, Peru ": "Peru",
		"Mid-Atlantic Ridge":             UnknownRegion,
		"trailing comma,":                UnknownRegion,
		"":                               UnknownRegion,
	}
	for place, want := range cases {
		e := event(models.CategoryOther, models.SeverityMedium, place)
		assert.Equal(t, want, Region(&e), "place %q", place)
	}
}

func TestRegion_FallsBackToDescription(t *testing.T) {
	e := models.DisasterEvent{Description: "Flooding near Lagos, Nigeria"}
	assert.Equal(t, "Nigeria", Region(&e))
}

func TestReduce_SameRegionCountedOnce(t *testing.T) {
	s := Reduce([]models.DisasterEvent{
		event(models.CategoryFlood, models.SeverityMedium, "Jakarta, Indonesia"),
		event(models.CategoryVolcano, models.SeverityHigh, "Java,  Indonesia"),
	})
	assert.Equal(t, 1, s.Countries)
}

type fetcherFunc func(ctx context.Context) ([]models.DisasterEvent, error)

func (f fetcherFunc) FetchAll(ctx context.Context) ([]models.DisasterEvent, error) { return f(ctx) }

func TestReporter_FetchStats(t *testing.T) {
	r := NewReporter(fetcherFunc(func(ctx context.Context) ([]models.DisasterEvent, error) {
		return []models.DisasterEvent{
			event(models.CategoryHurricane, models.SeverityCritical, "Gulf Coast, USA"),
		}, nil
	}))

	s, err := r.FetchStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, s.TotalEvents)
	assert.Equal(t, 1, s.CriticalEvents)
	assert.Equal(t, 1, s.Countries)
}

func TestReporter_FetchStatsError(t *testing.T) {
	r := NewReporter(fetcherFunc(func(ctx context.Context) ([]models.DisasterEvent, error) {
		return nil, context.Canceled
	}))

	_, err := r.FetchStats(context.Background())
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestEstimatedAffected(t *testing.T) {
	hurricane := event(models.CategoryHurricane, models.SeverityCritical, "")
	assert.Equal(t, 1000000, EstimatedAffected(&hurricane))

	fire := event(models.CategoryWildfire, models.SeverityLow, "")
	assert.Equal(t, 500, EstimatedAffected(&fire))

	// Categories outside the table use the "other" row.
	drought := event(models.CategoryDrought, models.SeverityHigh, "")
	assert.Equal(t, 20000, EstimatedAffected(&drought))
}
