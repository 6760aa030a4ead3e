package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tideDay = time.Date(2026, 10, 19, 0, 0, 0, 0, KST)

func series(step time.Duration, levels ...float64) []TideEvent {
	out := make([]TideEvent, len(levels))
	for i, l := range levels {
		out[i] = TideEvent{Kind: TideUnclassified, Time: tideDay.Add(time.Duration(i) * step), Level: l}
	}
	return out
}

func TestExtractExtrema_HighAndLow(t *testing.T) {
	in := series(time.Hour, 1, 5, 2, 0, 4)

	got := ExtractExtrema(in)

	require.Len(t, got, 2)
	assert.Equal(t, TideEvent{Kind: TideHigh, Time: tideDay.Add(time.Hour), Level: 5}, got[0])
	assert.Equal(t, TideEvent{Kind: TideLow, Time: tideDay.Add(3 * time.Hour), Level: 0}, got[1])
}

func TestExtractExtrema_SortsInput(t *testing.T) {
	in := series(time.Hour, 1, 5, 2, 0, 4)
	in[0], in[4] = in[4], in[0]
	in[1], in[3] = in[3], in[1]

	got := ExtractExtrema(in)

	require.Len(t, got, 2)
	assert.Equal(t, TideHigh, got[0].Kind)
	assert.Equal(t, TideLow, got[1].Kind)
}

func TestExtractExtrema_CollapsesCloseEvents(t *testing.T) {
	// Two highs 20 minutes apart with a dip between them.
	in := series(10*time.Minute, 1, 5, 4, 6, 2)

	got := ExtractExtrema(in)

	require.Len(t, got, 1)
	assert.Equal(t, TideHigh, got[0].Kind)
	assert.Equal(t, 5.0, got[0].Level)
	assert.Equal(t, tideDay.Add(10*time.Minute), got[0].Time)
}

func TestExtractExtrema_KeepsEventsThirtyMinutesApart(t *testing.T) {
	in := series(15*time.Minute, 1, 5, 4, 6, 2)

	got := ExtractExtrema(in)

	require.Len(t, got, 2)
	assert.Equal(t, 5.0, got[0].Level)
	assert.Equal(t, 6.0, got[1].Level)
}

func TestExtractExtrema_TooFewPoints(t *testing.T) {
	assert.Empty(t, ExtractExtrema(nil))
	assert.Empty(t, ExtractExtrema(series(time.Hour, 1, 5)))
}

func TestExtractExtrema_FlatSeries(t *testing.T) {
	assert.Empty(t, ExtractExtrema(series(time.Hour, 3, 3, 3, 3)))
}

func TestExtractExtrema_CapsAtEight(t *testing.T) {
	levels := make([]float64, 0, 40)
	for i := range 40 {
		if i%2 == 0 {
			levels = append(levels, 0)
		} else {
			levels = append(levels, 10)
		}
	}
	got := ExtractExtrema(series(time.Hour, levels...))

	require.Len(t, got, MaxTideEvents)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i-1].Time.Before(got[i].Time))
	}
}

func TestNormalizeTide_Labeled(t *testing.T) {
	in := []TideEvent{
		{Kind: TideLow, Time: tideDay.Add(11 * time.Hour), Level: 150},
		{Kind: TideHigh, Time: tideDay.Add(4*time.Hour + 30*time.Minute), Level: 720},
	}

	got := NormalizeTide(in)

	require.Len(t, got, 2)
	assert.Equal(t, TideHigh, got[0].Kind)
	assert.Equal(t, TideLow, got[1].Kind)
}

func TestNormalizeTide_UnlabeledUsesExtractor(t *testing.T) {
	got := NormalizeTide(series(time.Hour, 1, 5, 2, 0, 4))

	require.Len(t, got, 2)
	assert.False(t, HasLabels(series(time.Hour, 1, 5, 2)))
	assert.True(t, HasLabels(got))
}

func TestNormalizeTide_UnclassifiedFallback(t *testing.T) {
	in := series(time.Hour, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14)

	got := NormalizeTide(in)

	require.Len(t, got, MaxUnclassifiedEvents)
	for _, e := range got {
		assert.Equal(t, TideUnclassified, e.Kind)
	}
	assert.Equal(t, 1.0, got[0].Level)
}

func TestNormalizeTide_Empty(t *testing.T) {
	got := NormalizeTide(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestTideEvent_JSON(t *testing.T) {
	e := TideEvent{Kind: TideHigh, Time: time.Date(2026, 10, 18, 19, 30, 0, 0, time.UTC), Level: 120}

	b, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"high","timestamp":"2026-10-19 04:30","level":120}`, string(b))

	var back TideEvent
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, e.Time.Equal(back.Time))
	assert.Equal(t, e.Kind, back.Kind)
}
