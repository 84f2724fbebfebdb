package classify

import "github.com/mr1hm/disaster-watch/internal/models"

// eonetCategories maps EONET v3 category IDs. Lookups are exact.
var eonetCategories = map[string]models.Category{
	"wildfires":    models.CategoryWildfire,
	"severeStorms": models.CategoryHurricane,
	"floods":       models.CategoryFlood,
	"earthquakes":  models.CategoryEarthquake,
	"volcanoes":    models.CategoryVolcano,
	"drought":      models.CategoryDrought,
	"dustHaze":     models.CategoryDust,
	"landslides":   models.CategoryLandslide,
	"manmade":      models.CategoryOther,
	"seaLakeIce":   models.CategoryIce,
	"snow":         models.CategorySnow,
	"tempExtremes": models.CategoryHeatwave,
	"waterColor":   models.CategoryWater,
}

// NormalizeEONET maps an EONET category ID to a models.Category, defaulting to other.
func NormalizeEONET(token string) models.Category {
	if c, ok := eonetCategories[token]; ok {
		return c
	}
	return models.CategoryOther
}
