package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// TideKind labels a tide event.
type TideKind string

const (
	TideHigh         TideKind = "high"
	TideLow          TideKind = "low"
	TideUnclassified TideKind = "unclassified"
)

const (
	// MaxTideEvents caps the derived events returned for one day.
	MaxTideEvents = 8
	// MaxUnclassifiedEvents caps raw points returned when no extremum is found.
	MaxUnclassifiedEvents = 12

	minExtremumGap = 30 * time.Minute
	tideTimeLayout = "2006-01-02 15:04"
)

// TideEvent is a single high water, low water or unlabeled tide reading.
type TideEvent struct {
	Kind  TideKind
	Time  time.Time
	Level float64
}

type tideEventJSON struct {
	Kind      TideKind `json:"kind"`
	Timestamp string   `json:"timestamp"`
	Level     float64  `json:"level"`
}

// MarshalJSON renders the timestamp in KST as "2006-01-02 15:04".
func (e TideEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(tideEventJSON{
		Kind:      e.Kind,
		Timestamp: e.Time.In(KST).Format(tideTimeLayout),
		Level:     e.Level,
	})
}

func (e *TideEvent) UnmarshalJSON(b []byte) error {
	var raw tideEventJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	t, err := time.ParseInLocation(tideTimeLayout, raw.Timestamp, KST)
	if err != nil {
		return fmt.Errorf("tide timestamp: %w", err)
	}
	*e = TideEvent{Kind: raw.Kind, Time: t, Level: raw.Level}
	return nil
}

// HasLabels reports whether any event is marked high or low.
func HasLabels(events []TideEvent) bool {
	for _, e := range events {
		if e.Kind == TideHigh || e.Kind == TideLow {
			return true
		}
	}
	return false
}

// ExtractExtrema derives high and low water from a dense level series.
//
// Points are sorted by time. An interior point strictly above both neighbours
// is high water, strictly below both is low water. An event within 30 minutes
// of the last kept event is dropped, so the earlier one survives. At most
// MaxTideEvents are returned. Fewer than three points yield nil.
func ExtractExtrema(series []TideEvent) []TideEvent {
	if len(series) < 3 {
		return nil
	}
	pts := make([]TideEvent, len(series))
	copy(pts, series)
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].Time.Before(pts[j].Time) })

	var out []TideEvent
	for i := 1; i < len(pts)-1; i++ {
		prev, curr, next := pts[i-1], pts[i], pts[i+1]
		var kind TideKind
		switch {
		case curr.Level > prev.Level && curr.Level > next.Level:
			kind = TideHigh
		case curr.Level < prev.Level && curr.Level < next.Level:
			kind = TideLow
		default:
			continue
		}
		if n := len(out); n > 0 && curr.Time.Sub(out[n-1].Time) < minExtremumGap {
			continue
		}
		out = append(out, TideEvent{Kind: kind, Time: curr.Time, Level: curr.Level})
		if len(out) == MaxTideEvents {
			break
		}
	}
	return out
}

// NormalizeTide turns a day's upstream events into the events reported to the
// caller. Labeled input is returned sorted. Unlabeled input is reduced with
// ExtractExtrema; if that finds nothing the first raw points are returned as
// unclassified.
func NormalizeTide(events []TideEvent) []TideEvent {
	if len(events) == 0 {
		return []TideEvent{}
	}
	if HasLabels(events) {
		out := make([]TideEvent, 0, len(events))
		for _, e := range events {
			if e.Kind == TideHigh || e.Kind == TideLow {
				out = append(out, e)
			}
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
		return out
	}
	if derived := ExtractExtrema(events); len(derived) > 0 {
		return derived
	}
	n := min(len(events), MaxUnclassifiedEvents)
	out := make([]TideEvent, n)
	for i := range n {
		out[i] = TideEvent{Kind: TideUnclassified, Time: events[i].Time, Level: events[i].Level}
	}
	return out
}
