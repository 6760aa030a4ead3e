package domain

import (
	"math"
	"sort"
)

const haversineEarthRadiusKm = 6371.0

// Station is a fixed observation point from one of the reference tables.
type Station struct {
	Code string  `json:"code"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Coordinate returns the station position.
func (s Station) Coordinate() Coordinate {
	return Coordinate{Lat: s.Lat, Lon: s.Lon}
}

// Haversine returns the great-circle distance between a and b in kilometres.
func Haversine(a, b Coordinate) float64 {
	const degrad = math.Pi / 180
	dLat := (b.Lat - a.Lat) * degrad
	dLon := (b.Lon - a.Lon) * degrad
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*degrad)*math.Cos(b.Lat*degrad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return haversineEarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Nearest returns the station closest to c. On equal distance the station
// listed first wins. The boolean is false when stations is empty.
func Nearest(c Coordinate, stations []Station) (Station, bool) {
	if len(stations) == 0 {
		return Station{}, false
	}
	best := 0
	bestDist := Haversine(c, stations[0].Coordinate())
	for i := 1; i < len(stations); i++ {
		if d := Haversine(c, stations[i].Coordinate()); d < bestDist {
			best, bestDist = i, d
		}
	}
	return stations[best], true
}

// NearestN returns up to n stations ordered by distance from c, keeping list
// order among equal distances.
func NearestN(c Coordinate, stations []Station, n int) []Station {
	if n <= 0 || len(stations) == 0 {
		return nil
	}
	type ranked struct {
		st   Station
		dist float64
	}
	all := make([]ranked, len(stations))
	for i, s := range stations {
		all[i] = ranked{st: s, dist: Haversine(c, s.Coordinate())}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].dist < all[j].dist })

	if n > len(all) {
		n = len(all)
	}
	out := make([]Station, n)
	for i := range out {
		out[i] = all[i].st
	}
	return out
}
