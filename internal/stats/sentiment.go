package stats

import (
	"math"

	"github.com/chat-analyzer/gateway/internal/model"
)

// SentimentTotals holds sentiment bucket counts and their share of the total.
type SentimentTotals struct {
	Total            int `json:"total"`
	SuperPositive    int `json:"super_positive"`
	Positive         int `json:"positive"`
	Neutral          int `json:"neutral"`
	Negative         int `json:"negative"`
	SuperNegative    int `json:"super_negative"`
	PositiveCombined int `json:"positive_combined"`
	NegativeCombined int `json:"negative_combined"`
	SuperPositivePct int `json:"super_positive_pct"`
	PositivePct      int `json:"positive_pct"`
	NeutralPct       int `json:"neutral_pct"`
	NegativePct      int `json:"negative_pct"`
	SuperNegativePct int `json:"super_negative_pct"`
}

// Sentiment computes bucket percentages from an agent's details. A nil
// snapshot or a zero total yields zero percentages.
func Sentiment(details *model.AgentDetails) SentimentTotals {
	if details == nil {
		return SentimentTotals{}
	}
	t := SentimentTotals{
		Total:         details.TotalSentimentCount,
		SuperPositive: details.SuperPositiveCount,
		Positive:      details.PositiveCount,
		Neutral:       details.NeutralCount,
		Negative:      details.NegativeCount,
		SuperNegative: details.SuperNegativeCount,
	}
	t.PositiveCombined = t.SuperPositive + t.Positive
	t.NegativeCombined = t.SuperNegative + t.Negative
	t.SuperPositivePct = pct(t.SuperPositive, t.Total)
	t.PositivePct = pct(t.Positive, t.Total)
	t.NeutralPct = pct(t.Neutral, t.Total)
	t.NegativePct = pct(t.Negative, t.Total)
	t.SuperNegativePct = pct(t.SuperNegative, t.Total)
	return t
}

// pct rounds halves up.
func pct(v, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Floor(float64(v)/float64(total)*100 + 0.5))
}
