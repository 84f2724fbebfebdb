package models

import "strings"

// Category is the shared event vocabulary every upstream token maps into.
type Category string

const (
	CategoryEarthquake Category = "earthquake"
	CategoryHurricane  Category = "hurricane"
	CategoryFlood      Category = "flood"
	CategoryWildfire   Category = "wildfire"
	CategoryTornado    Category = "tornado"
	CategoryHeatwave   Category = "heatwave"
	CategoryVolcano    Category = "volcano"
	CategoryDrought    Category = "drought"
	CategoryDust       Category = "dust"
	CategoryLandslide  Category = "landslide"
	CategoryIce        Category = "ice"
	CategorySnow       Category = "snow"
	CategoryWater      Category = "water"
	CategoryOther      Category = "other"
)

var Categories = []Category{
	CategoryEarthquake,
	CategoryHurricane,
	CategoryFlood,
	CategoryWildfire,
	CategoryTornado,
	CategoryHeatwave,
	CategoryVolcano,
	CategoryDrought,
	CategoryDust,
	CategoryLandslide,
	CategoryIce,
	CategorySnow,
	CategoryWater,
	CategoryOther,
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory resolves a user-supplied category name.
func ParseCategory(s string) (Category, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}
