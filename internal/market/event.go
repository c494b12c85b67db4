package market

// Category identifies one of the fixed event categories in a batch.
type Category string

// Batch categories, in wire order.
const (
	CategoryHighs        Category = "highs"
	CategoryLows         Category = "lows"
	CategoryTrendingUp   Category = "trending_up"
	CategoryTrendingDown Category = "trending_down"
	CategorySurgingUp    Category = "surging_up"
	CategorySurgingDown  Category = "surging_down"
)

// Categories lists every batch category in wire order.
func Categories() []Category {
	return []Category{
		CategoryHighs, CategoryLows,
		CategoryTrendingUp, CategoryTrendingDown,
		CategorySurgingUp, CategorySurgingDown,
	}
}

// Event is a single detected market event. The shape is fixed here at the
// ingestion boundary; downstream components never branch on representation.
type Event struct {
	Symbol string `json:"sym"`
	// Price is the trade price that triggered the event.
	Price float64 `json:"price"`
	// Count is how many times the symbol has fired this event type in the
	// session; criteria filtering reads this carried value, never recomputes.
	Count int `json:"count"`
	// PercentChange is the session percent move at event time.
	PercentChange float64 `json:"pct_change"`
	// Volume is the interval volume at event time.
	Volume float64 `json:"volume"`
	// TimeMs is the detection timestamp in ms since epoch.
	TimeMs int64 `json:"time_ms"`
	// Label carries an optional upstream annotation (e.g. trend strength).
	Label string `json:"label,omitempty"`
}

// Batch is the unit drained once per emission cycle. Each category is an
// ordered sequence; a category with no events is an empty, present slice in
// the wire form (see payload).
type Batch struct {
	Highs        []Event
	Lows         []Event
	TrendingUp   []Event
	TrendingDown []Event
	SurgingUp    []Event
	SurgingDown  []Event
}

// Events returns the category's ordered event slice.
func (b *Batch) Events(c Category) []Event {
	switch c {
	case CategoryHighs:
		return b.Highs
	case CategoryLows:
		return b.Lows
	case CategoryTrendingUp:
		return b.TrendingUp
	case CategoryTrendingDown:
		return b.TrendingDown
	case CategorySurgingUp:
		return b.SurgingUp
	case CategorySurgingDown:
		return b.SurgingDown
	default:
		return nil
	}
}

// SetEvents replaces the category's event slice.
func (b *Batch) SetEvents(c Category, events []Event) {
	switch c {
	case CategoryHighs:
		b.Highs = events
	case CategoryLows:
		b.Lows = events
	case CategoryTrendingUp:
		b.TrendingUp = events
	case CategoryTrendingDown:
		b.TrendingDown = events
	case CategorySurgingUp:
		b.SurgingUp = events
	case CategorySurgingDown:
		b.SurgingDown = events
	}
}

// Append appends other's events category by category, preserving order.
func (b *Batch) Append(other Batch) {
	for _, c := range Categories() {
		if evs := other.Events(c); len(evs) > 0 {
			b.SetEvents(c, append(b.Events(c), evs...))
		}
	}
}

// Len returns the total event count across categories.
func (b *Batch) Len() int {
	n := 0
	for _, c := range Categories() {
		n += len(b.Events(c))
	}
	return n
}

// Empty reports whether the batch holds no events.
func (b *Batch) Empty() bool { return b.Len() == 0 }
