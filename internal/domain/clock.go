package domain

import (
	"fmt"
	"time"
)

// KST is Korea Standard Time. All KMA and KHOA timestamps are local to it.
var KST = time.FixedZone("KST", 9*60*60)

// forecastIssueHours are the short-range forecast issue times.
var forecastIssueHours = [...]int{2, 5, 8, 11, 14, 17, 20, 23}

// forecastDelay is how long after issue a short-range run becomes available.
const forecastDelay = 10 * time.Minute

// BaseTime identifies a forecast run as the API expects it.
type BaseTime struct {
	Date string // YYYYMMDD
	Time string // HHMM
}

func (b BaseTime) String() string {
	return b.Date + " " + b.Time
}

// ForecastBaseTime returns the latest short-range run available at now.
// Before 02:10 KST that is the previous day's 2300 run.
func ForecastBaseTime(now time.Time) BaseTime {
	local := now.In(KST)
	for i := len(forecastIssueHours) - 1; i >= 0; i-- {
		issued := time.Date(local.Year(), local.Month(), local.Day(), forecastIssueHours[i], 0, 0, 0, KST)
		if !local.Before(issued.Add(forecastDelay)) {
			return BaseTime{Date: issued.Format("20060102"), Time: issued.Format("1504")}
		}
	}
	prev := local.AddDate(0, 0, -1)
	return BaseTime{Date: prev.Format("20060102"), Time: "2300"}
}

// UltraBaseTime returns the half-hour base of the ultra-short products:
// HH00 before minute 30, HH30 from it.
func UltraBaseTime(now time.Time) BaseTime {
	local := now.In(KST)
	minute := 0
	if local.Minute() >= 30 {
		minute = 30
	}
	return BaseTime{Date: local.Format("20060102"), Time: fmt.Sprintf("%02d%02d", local.Hour(), minute)}
}

// TideDate returns the YYYYMMDD date the tide forecast is requested for.
func TideDate(now time.Time) string {
	return now.In(KST).Format("20060102")
}

// ParseForecastSlot parses a KMA fcstDate/fcstTime pair in KST.
func ParseForecastSlot(date, hhmm string) (time.Time, error) {
	return time.ParseInLocation("200601021504", date+hhmm, KST)
}
