package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kst(day, hour, minute int) time.Time {
	return time.Date(2026, 10, day, hour, minute, 0, 0, KST)
}

func TestForecastBaseTime(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want BaseTime
	}{
		{"just after midnight uses previous day", kst(19, 0, 5), BaseTime{"20261018", "2300"}},
		{"before first run is available", kst(19, 2, 9), BaseTime{"20261018", "2300"}},
		{"first run available", kst(19, 2, 10), BaseTime{"20261019", "0200"}},
		{"mid afternoon before 1400 run", kst(19, 14, 9), BaseTime{"20261019", "1100"}},
		{"mid afternoon after 1400 run", kst(19, 14, 10), BaseTime{"20261019", "1400"}},
		{"late evening", kst(19, 23, 15), BaseTime{"20261019", "2300"}},
		{"first day of month rolls back", time.Date(2026, 11, 1, 1, 0, 0, 0, KST), BaseTime{"20261031", "2300"}},
		{"utc input is converted", time.Date(2026, 10, 19, 5, 30, 0, 0, time.UTC), BaseTime{"20261019", "1400"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ForecastBaseTime(tt.now))
		})
	}
}

func TestUltraBaseTime(t *testing.T) {
	assert.Equal(t, BaseTime{"20261019", "1400"}, UltraBaseTime(kst(19, 14, 29)))
	assert.Equal(t, BaseTime{"20261019", "1430"}, UltraBaseTime(kst(19, 14, 30)))
	assert.Equal(t, BaseTime{"20261019", "0000"}, UltraBaseTime(kst(19, 0, 0)))
	assert.Equal(t, BaseTime{"20261019", "0930"}, UltraBaseTime(time.Date(2026, 10, 19, 0, 45, 0, 0, time.UTC)))
}

func TestTideDate(t *testing.T) {
	// 20:00 UTC is already the next day in Korea.
	assert.Equal(t, "20261020", TideDate(time.Date(2026, 10, 19, 20, 0, 0, 0, time.UTC)))
}

func TestParseForecastSlot(t *testing.T) {
	got, err := ParseForecastSlot("20261019", "1500")
	require.NoError(t, err)
	assert.True(t, kst(19, 15, 0).Equal(got))

	_, err = ParseForecastSlot("20261019", "15")
	assert.Error(t, err)
}
