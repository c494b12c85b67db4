package payload

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/rzbill/surgecast/internal/analytics"
	"github.com/rzbill/surgecast/internal/market"
)

// Float is a float64 that serializes NaN and infinities as JSON null
// instead of failing or leaking non-finite text onto the wire.
type Float float64

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

// Event is the wire form of a single event.
type Event struct {
	Symbol        string `json:"sym"`
	Price         Float  `json:"price"`
	Count         int    `json:"count"`
	PercentChange Float  `json:"pct_change"`
	Volume        Float  `json:"volume"`
	TimeMs        int64  `json:"time_ms"`
	Label         string `json:"label,omitempty"`
}

// Direction groups a tracker's up/down lists.
type Direction struct {
	Up   []Event `json:"up"`
	Down []Event `json:"down"`
}

// Document is the emission payload dispatched to one subscriber. Every
// category field is present even when empty.
type Document struct {
	Highs    []Event              `json:"highs"`
	Lows     []Event              `json:"lows"`
	Trending Direction            `json:"trending"`
	Surging  Direction            `json:"surging"`
	Activity *analytics.Snapshot  `json:"activity"`
	TimeMs   int64                `json:"time_ms,omitempty"`
}

// Format converts a filtered batch and optional activity snapshot into the
// wire document. activity may be nil; the field then serializes as null.
func Format(batch market.Batch, activity *analytics.Snapshot, nowMs int64) Document {
	return Document{
		Highs: wireEvents(batch.Highs),
		Lows:  wireEvents(batch.Lows),
		Trending: Direction{
			Up:   wireEvents(batch.TrendingUp),
			Down: wireEvents(batch.TrendingDown),
		},
		Surging: Direction{
			Up:   wireEvents(batch.SurgingUp),
			Down: wireEvents(batch.SurgingDown),
		},
		Activity: activity,
		TimeMs:   nowMs,
	}
}

// Encode serializes the document.
func Encode(doc Document) ([]byte, error) {
	return json.Marshal(doc)
}

func wireEvents(in []market.Event) []Event {
	out := make([]Event, len(in))
	for i, ev := range in {
		out[i] = Event{
			Symbol:        ev.Symbol,
			Price:         Float(ev.Price),
			Count:         ev.Count,
			PercentChange: Float(ev.PercentChange),
			Volume:        Float(ev.Volume),
			TimeMs:        ev.TimeMs,
			Label:         ev.Label,
		}
	}
	return out
}
