package stats

import "github.com/mr1hm/disaster-watch/internal/models"

// Rough headcounts per category and severity, indexed by models.Severity.
// Display only; never feeds Stats.
var affectedTable = map[models.Category][4]int{
	models.CategoryEarthquake: {1000, 5000, 25000, 100000},
	models.CategoryWildfire:   {500, 2000, 10000, 50000},
	models.CategoryHurricane:  {10000, 50000, 200000, 1000000},
	models.CategoryFlood:      {2000, 10000, 50000, 200000},
	models.CategoryVolcano:    {5000, 15000, 75000, 300000},
	models.CategoryOther:      {1000, 5000, 20000, 100000},
}

// EstimatedAffected returns a placeholder count of people affected.
func EstimatedAffected(e *models.DisasterEvent) int {
	row, ok := affectedTable[e.Category]
	if !ok {
		row = affectedTable[models.CategoryOther]
	}
	if e.Severity < models.SeverityLow || e.Severity > models.SeverityCritical {
		return row[models.SeverityMedium]
	}
	return row[e.Severity]
}
