package domain

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidCoordinate is returned for latitudes or longitudes that are not
	// finite or fall outside the WGS-84 range.
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	// ErrOutsideRegion is returned when a coordinate projects outside the
	// forecast grid.
	ErrOutsideRegion = errors.New("coordinate outside supported region")
)

// Coordinate is a WGS-84 latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate reports whether the coordinate is within [-90,90] x [-180,180].
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lon, 0) {
		return fmt.Errorf("%w: %v, %v", ErrInvalidCoordinate, c.Lat, c.Lon)
	}
	if c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("%w: %v, %v", ErrInvalidCoordinate, c.Lat, c.Lon)
	}
	return nil
}

// Key rounds the coordinate to 3 decimal places (about 100 m), the precision
// at which two lookups are considered the same place.
func (c Coordinate) Key() string {
	return fmt.Sprintf("%.3f_%.3f", c.Lat, c.Lon)
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Lat, c.Lon)
}
