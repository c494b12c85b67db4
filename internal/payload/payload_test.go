package payload

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/rzbill/surgecast/internal/analytics"
	"github.com/rzbill/surgecast/internal/market"
)

func TestFormatEmptyBatchHasAllCategories(t *testing.T) {
	doc := Format(market.Batch{}, nil, 0)
	raw, err := Encode(doc)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, k := range []string{"highs", "lows", "trending", "surging", "activity"} {
		if _, ok := m[k]; !ok {
			t.Fatalf("missing field %q in %s", k, raw)
		}
	}
	if string(m["highs"]) != "[]" {
		t.Fatalf("empty category must be an empty list, got %s", m["highs"])
	}
	if string(m["activity"]) != "null" {
		t.Fatalf("absent activity must be null, got %s", m["activity"])
	}
}

func TestFormatSanitizesNonFiniteFloats(t *testing.T) {
	batch := market.Batch{Highs: []market.Event{{
		Symbol:        "A",
		Price:         math.NaN(),
		PercentChange: math.Inf(1),
		Volume:        math.Inf(-1),
	}}}
	raw, err := Encode(Format(batch, nil, 0))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	s := string(raw)
	if strings.Contains(s, "NaN") || strings.Contains(s, "Inf") {
		t.Fatalf("non-finite value leaked: %s", s)
	}
	for _, want := range []string{`"price":null`, `"pct_change":null`, `"volume":null`} {
		if !strings.Contains(s, want) {
			t.Fatalf("expected %s in %s", want, s)
		}
	}
}

func TestFormatPreservesOrderAndGrouping(t *testing.T) {
	batch := market.Batch{
		Highs:        []market.Event{{Symbol: "A"}, {Symbol: "B"}},
		TrendingUp:   []market.Event{{Symbol: "T"}},
		TrendingDown: []market.Event{{Symbol: "D"}},
		SurgingUp:    []market.Event{{Symbol: "S"}},
	}
	doc := Format(batch, nil, 42)
	if doc.Highs[0].Symbol != "A" || doc.Highs[1].Symbol != "B" {
		t.Fatalf("order: %+v", doc.Highs)
	}
	if doc.Trending.Up[0].Symbol != "T" || doc.Trending.Down[0].Symbol != "D" {
		t.Fatalf("trending: %+v", doc.Trending)
	}
	if doc.Surging.Up[0].Symbol != "S" || len(doc.Surging.Down) != 0 {
		t.Fatalf("surging: %+v", doc.Surging)
	}
	if doc.TimeMs != 42 {
		t.Fatalf("time: %d", doc.TimeMs)
	}
}

func TestFormatCarriesActivity(t *testing.T) {
	snap := analytics.Snapshot{Cycles: 7, EventsSeen: 11}
	raw, err := Encode(Format(market.Batch{}, &snap, 0))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(raw), `"cycles":7`) {
		t.Fatalf("activity not carried: %s", raw)
	}
}

func TestFloatFiniteRoundTrip(t *testing.T) {
	raw, err := json.Marshal(Float(1.25))
	if err != nil || string(raw) != "1.25" {
		t.Fatalf("got %s, %v", raw, err)
	}
}
