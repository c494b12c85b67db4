package httpserver

import (
	"github.com/rzbill/surgecast/internal/market"
	"github.com/rzbill/surgecast/internal/settings"
)

// ingestReq is the wire form of an ingested event batch.
type ingestReq struct {
	Highs        []market.Event `json:"highs"`
	Lows         []market.Event `json:"lows"`
	TrendingUp   []market.Event `json:"trending_up"`
	TrendingDown []market.Event `json:"trending_down"`
	SurgingUp    []market.Event `json:"surging_up"`
	SurgingDown  []market.Event `json:"surging_down"`
}

func (r ingestReq) batch() market.Batch {
	return market.Batch{
		Highs:        r.Highs,
		Lows:         r.Lows,
		TrendingUp:   r.TrendingUp,
		TrendingDown: r.TrendingDown,
		SurgingUp:    r.SurgingUp,
		SurgingDown:  r.SurgingDown,
	}
}

func settingsCriteria(enabled bool, minCount int, expression string) settings.Criteria {
	return settings.Criteria{Enabled: enabled, MinCount: minCount, Expression: expression}
}
