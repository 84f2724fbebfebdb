// Package classify holds the two pure leaf functions every source adapter relies on:
// mapping provider category tokens into models.Category, and deriving a models.Severity.
package classify

import "github.com/mr1hm/disaster-watch/internal/models"

// Earthquake magnitude thresholds, checked from the top down.
const (
	criticalMagnitude = 7.0
	highMagnitude     = 6.0
	mediumMagnitude   = 4.0
)

// categoryDefaults is consulted when no magnitude rule applies.
var categoryDefaults = map[models.Category]models.Severity{
	models.CategoryWildfire:  models.SeverityHigh,
	models.CategoryHurricane: models.SeverityCritical,
	models.CategoryFlood:     models.SeverityMedium,
	models.CategoryVolcano:   models.SeverityHigh,
}

// Severity derives the urgency level of an event from its category and optional magnitude.
// Only earthquakes use the magnitude; a nil magnitude means "not reported".
func Severity(category models.Category, magnitude *float64) models.Severity {
	if category == models.CategoryEarthquake && magnitude != nil {
		switch m := *magnitude; {
		case m >= criticalMagnitude:
			return models.SeverityCritical
		case m >= highMagnitude:
			return models.SeverityHigh
		case m >= mediumMagnitude:
			return models.SeverityMedium
		default:
			return models.SeverityLow
		}
	}

	if sev, ok := categoryDefaults[category]; ok {
		return sev
	}
	return models.SeverityMedium
}
