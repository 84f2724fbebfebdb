package models

import (
	"math"
	"time"
)

const (
	SourceUSGS  = "USGS"
	SourceEONET = "NASA EONET"
)

// DisasterEvent is the unified record every source adapter produces.
type DisasterEvent struct {
	ID           string    `json:"id"` // native upstream ID, unique per source
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Category     Category  `json:"category"`
	Location     Location  `json:"location"`
	Date         time.Time `json:"date"`
	Severity     Severity  `json:"severity"`
	Source       string    `json:"source"`
	URL          string    `json:"url,omitempty"`
	Magnitude    *float64  `json:"magnitude,omitempty"`
	AffectedArea string    `json:"affectedArea,omitempty"`
}

// Coordinates is a (latitude, longitude) pair.
type Coordinates [2]float64

// NewCoordinates builds a pair, replacing non-finite values with 0.
func NewCoordinates(lat, lon float64) Coordinates {
	return Coordinates{finiteOrZero(lat), finiteOrZero(lon)}
}

func (c Coordinates) Latitude() float64  { return c[0] }
func (c Coordinates) Longitude() float64 { return c[1] }

type Location struct {
	Coordinates Coordinates `json:"coordinates"`
	Name        string      `json:"name,omitempty"`
}

// PlaceName returns the location name, falling back to the description.
func (d *DisasterEvent) PlaceName() string {
	if d.Location.Name != "" {
		return d.Location.Name
	}
	return d.Description
}

// Key identifies an event across sources.
func (d *DisasterEvent) Key() string {
	return d.Source + ":" + d.ID
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
