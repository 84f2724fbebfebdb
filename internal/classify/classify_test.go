package classify

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/mr1hm/disaster-watch/internal/models"
)

func mag(v float64) *float64 { return &v }

func TestSeverity(t *testing.T) {
	Convey("Given the fixed per-category defaults", t, func() {
		defaults := map[models.Category]models.Severity{
			models.CategoryWildfire:  models.SeverityHigh,
			models.CategoryHurricane: models.SeverityCritical,
			models.CategoryFlood:     models.SeverityMedium,
			models.CategoryVolcano:   models.SeverityHigh,
		}

		Convey("When no magnitude is reported", func() {
			Convey("Then each category returns its default", func() {
				for cat, want := range defaults {
					So(Severity(cat, nil), ShouldEqual, want)
				}
			})
		})

		Convey("When a magnitude is reported for a non-earthquake category", func() {
			Convey("Then the magnitude is ignored", func() {
				for cat, want := range defaults {
					So(Severity(cat, mag(9.9)), ShouldEqual, want)
					So(Severity(cat, mag(0)), ShouldEqual, want)
				}
			})
		})
	})

	Convey("Given an earthquake", t, func() {
		Convey("When the magnitude sits on a threshold boundary", func() {
			Convey("Then the boundary is inclusive", func() {
				So(Severity(models.CategoryEarthquake, mag(3.9)), ShouldEqual, models.SeverityLow)
				So(Severity(models.CategoryEarthquake, mag(4.0)), ShouldEqual, models.SeverityMedium)
				So(Severity(models.CategoryEarthquake, mag(5.99)), ShouldEqual, models.SeverityMedium)
				So(Severity(models.CategoryEarthquake, mag(6.0)), ShouldEqual, models.SeverityHigh)
				So(Severity(models.CategoryEarthquake, mag(6.99)), ShouldEqual, models.SeverityHigh)
				So(Severity(models.CategoryEarthquake, mag(7.0)), ShouldEqual, models.SeverityCritical)
			})
		})

		Convey("When magnitude increases", func() {
			Convey("Then severity never decreases", func() {
				prev := models.SeverityLow
				for m := -1.0; m <= 10.0; m += 0.05 {
					got := Severity(models.CategoryEarthquake, mag(m))
					So(got, ShouldBeGreaterThanOrEqualTo, prev)
					prev = got
				}
			})
		})

		Convey("When magnitude is zero", func() {
			Convey("Then it is treated as reported", func() {
				So(Severity(models.CategoryEarthquake, mag(0)), ShouldEqual, models.SeverityLow)
			})
		})

		Convey("When magnitude is missing", func() {
			Convey("Then it falls back to medium", func() {
				So(Severity(models.CategoryEarthquake, nil), ShouldEqual, models.SeverityMedium)
			})
		})
	})

	Convey("Given any other category", t, func() {
		Convey("Then severity is medium", func() {
			for _, cat := range []models.Category{
				models.CategoryTornado, models.CategoryHeatwave, models.CategoryDrought,
				models.CategoryDust, models.CategoryLandslide, models.CategoryIce,
				models.CategorySnow, models.CategoryWater, models.CategoryOther,
			} {
				So(Severity(cat, nil), ShouldEqual, models.SeverityMedium)
				So(Severity(cat, mag(8)), ShouldEqual, models.SeverityMedium)
			}
		})
	})

	Convey("Given identical inputs", t, func() {
		Convey("Then repeated calls agree", func() {
			for _, cat := range models.Categories {
				for _, m := range []*float64{nil, mag(2), mag(4.5), mag(6.5), mag(7.5)} {
					So(Severity(cat, m), ShouldEqual, Severity(cat, m))
				}
			}
		})
	})
}

func TestNormalizeEONET(t *testing.T) {
	Convey("Given the EONET category table", t, func() {
		Convey("Then every key maps to its documented category", func() {
			So(eonetCategories, ShouldHaveLength, 13)
			for token, want := range eonetCategories {
				So(NormalizeEONET(token), ShouldEqual, want)
			}
			So(NormalizeEONET("severeStorms"), ShouldEqual, models.CategoryHurricane)
			So(NormalizeEONET("tempExtremes"), ShouldEqual, models.CategoryHeatwave)
			So(NormalizeEONET("manmade"), ShouldEqual, models.CategoryOther)
		})

		Convey("When the token is unknown", func() {
			Convey("Then it normalizes to other", func() {
				for _, token := range []string{"", "Wildfires", "tsunami", " floods", "earthquake"} {
					So(NormalizeEONET(token), ShouldEqual, models.CategoryOther)
				}
			})
		})

		Convey("Then every result is a member of the category enumeration", func() {
			for token := range eonetCategories {
				_, ok := models.ParseCategory(string(NormalizeEONET(token)))
				So(ok, ShouldBeTrue)
			}
		})
	})
}
