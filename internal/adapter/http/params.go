package http

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/couchcryptid/sea-info-service/internal/domain"
)

var errMissingCoordinate = errors.New("lat and lon query parameters are required")

// parseCoordinate reads lat and lon, accepting lng as an alias for lon.
func parseCoordinate(q url.Values) (domain.Coordinate, error) {
	latRaw := strings.TrimSpace(q.Get("lat"))
	lonRaw := strings.TrimSpace(q.Get("lon"))
	if lonRaw == "" {
		lonRaw = strings.TrimSpace(q.Get("lng"))
	}
	if latRaw == "" || lonRaw == "" {
		return domain.Coordinate{}, errMissingCoordinate
	}

	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("%w: lat %q is not a number", domain.ErrInvalidCoordinate, latRaw)
	}
	lon, err := strconv.ParseFloat(lonRaw, 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("%w: lon %q is not a number", domain.ErrInvalidCoordinate, lonRaw)
	}
	return domain.Coordinate{Lat: lat, Lon: lon}, nil
}

// parseFlag treats "true", "1" and friends as set; anything else is unset.
func parseFlag(raw string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && v
}
