// Package geo holds coordinate types shared by filters, ingestion and results.
package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Coordinate bounds a GEO field accepts. Latitude stops at the Web Mercator
// limit, short of the poles.
const (
	MaxLat = 85.05112878
	MaxLon = 180.0
)

// DefaultLocation is assigned to ingested entities that carry no coordinates.
var DefaultLocation = Point{Lat: 31.0345728, Lon: 30.4676864}

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the point can be stored in a GEO field.
func (p Point) Valid() bool {
	return ValidateCoordinates(p.Lat, p.Lon)
}

// String renders the point in the "lon,lat" order used by GEO fields.
func (p Point) String() string {
	return strconv.FormatFloat(p.Lon, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lat, 'f', -1, 64)
}

// ParsePoint parses the "lon,lat" form produced by String.
func ParsePoint(s string) (Point, error) {
	lonStr, latStr, ok := strings.Cut(s, ",")
	if !ok {
		return Point{}, fmt.Errorf("parse point %q: missing comma", s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return Point{}, fmt.Errorf("parse point lon: %w", err)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return Point{}, fmt.Errorf("parse point lat: %w", err)
	}
	p := Point{Lat: lat, Lon: lon}
	if !p.Valid() {
		return Point{}, fmt.Errorf("parse point %q: out of range", s)
	}
	return p, nil
}

// ValidateCoordinates reports whether lat and lon are finite and inside the
// range a GEO field can index: |lat| <= MaxLat, |lon| <= MaxLon.
func ValidateCoordinates(lat, lon float64) bool {
	return finite(lat) && finite(lon) && math.Abs(lat) <= MaxLat && math.Abs(lon) <= MaxLon
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
