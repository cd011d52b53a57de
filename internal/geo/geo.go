// Package geo provides coordinate sanity checks for catalog entries. The
// catalog covers pubs in the UK and Ireland, so anything far outside that
// bounding box is treated as a geocoding artifact.
package geo

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// Plausible coverage bounds, generous around the British Isles.
var coverage = geom.NewBounds(geom.XY).Set(-11.0, 49.0, 2.5, 61.5)

// driftThresholdDeg is roughly one kilometre at UK latitudes.
const driftThresholdDeg = 0.01

// Plausible reports whether a coordinate pair falls within the catalog's
// coverage area.
func Plausible(lat, lng float64) bool {
	return coverage.OverlapsPoint(geom.XY, geom.Coord{lng, lat})
}

// Distance returns the planar degree-space distance between two points.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	return xy.Distance(geom.Coord{lng1, lat1}, geom.Coord{lng2, lat2})
}

// Drifted reports whether an incoming coordinate pair disagrees with the
// stored pair by more than about a kilometre. Used for audit logging only;
// stored coordinates are fill-once and never overwritten.
func Drifted(storedLat, storedLng, newLat, newLng float64) bool {
	return Distance(storedLat, storedLng, newLat, newLng) > driftThresholdDeg
}
