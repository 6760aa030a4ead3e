package kma

import (
	"time"

	"github.com/couchcryptid/sea-info-service/internal/domain"
)

// fromNowcast maps observation rows. SKY is not observed.
func fromNowcast(items []item) domain.WeatherSnapshot {
	var s domain.WeatherSnapshot
	for _, it := range items {
		raw := string(it.ObsrValue)
		switch string(it.Category) {
		case catUltraTemp:
			if v, ok := domain.ParseReading(raw); ok && s.AirTemp == nil {
				s.AirTemp = domain.Float64(v)
			}
		case catWind:
			if v, ok := domain.ParseReading(raw); ok && v >= 0 && s.WindSpeed == nil {
				s.WindSpeed = domain.Float64(v)
			}
		case catPrecip:
			if p, ok := domain.ParsePrecip(raw); ok && s.PrecipType == "" {
				s.PrecipType = p
			}
		}
	}
	return s
}

// fromForecast maps forecast rows, choosing per category the valid entry
// whose slot is closest to now. tempCategory is TMP for the short-range
// forecast and T1H for the ultra-short forecast.
func fromForecast(items []item, now time.Time, tempCategory string) domain.WeatherSnapshot {
	var s domain.WeatherSnapshot

	if it, ok := nearestSlot(items, tempCategory, now, validReading); ok {
		v, _ := domain.ParseReading(string(it.FcstValue))
		s.AirTemp = domain.Float64(v)
	}
	if it, ok := nearestSlot(items, catWind, now, validWind); ok {
		v, _ := domain.ParseReading(string(it.FcstValue))
		s.WindSpeed = domain.Float64(v)
	}
	if it, ok := nearestSlot(items, catSky, now, validSky); ok {
		s.Sky, _ = domain.ParseSky(string(it.FcstValue))
	}
	if it, ok := nearestSlot(items, catPrecip, now, validPrecip); ok {
		s.PrecipType, _ = domain.ParsePrecip(string(it.FcstValue))
	}
	return s
}

// nearestSlot returns the first valid item of category with the smallest
// distance between its fcstDate+fcstTime and now.
func nearestSlot(items []item, category string, now time.Time, valid func(string) bool) (item, bool) {
	var (
		best     item
		bestDiff time.Duration
		found    bool
	)
	for _, it := range items {
		if string(it.Category) != category || !valid(string(it.FcstValue)) {
			continue
		}
		slot, err := domain.ParseForecastSlot(string(it.FcstDate), string(it.FcstTime))
		if err != nil {
			continue
		}
		diff := slot.Sub(now).Abs()
		if !found || diff < bestDiff {
			best, bestDiff, found = it, diff, true
		}
	}
	return best, found
}

func validReading(raw string) bool {
	_, ok := domain.ParseReading(raw)
	return ok
}

func validWind(raw string) bool {
	v, ok := domain.ParseReading(raw)
	return ok && v >= 0
}

func validSky(raw string) bool {
	_, ok := domain.ParseSky(raw)
	return ok
}

func validPrecip(raw string) bool {
	_, ok := domain.ParsePrecip(raw)
	return ok
}
