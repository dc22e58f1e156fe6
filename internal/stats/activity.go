package stats

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/chat-analyzer/gateway/internal/model"
)

// Timestamped is anything bucketed by creation time.
type Timestamped interface {
	Timestamp() time.Time
}

// Weekdays in display order.
var Weekdays = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// HourCount is the number of items created in one hour of the day.
type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// Activity holds the weekday and hour histograms.
type Activity struct {
	Weekday []Count     `json:"weekday"`
	Hours   []HourCount `json:"hours"`
	Buckets []Count     `json:"buckets"`
}

// ConversationsByDay counts conversations per UTC calendar day.
func ConversationsByDay(conversations []model.Conversation) map[string]int {
	byDay := make(map[string]int)
	for _, c := range conversations {
		byDay[c.CreatedAt.UTC().Format(time.DateOnly)]++
	}
	return byDay
}

// Trend orders day counts ascending by date.
func Trend(byDay map[string]int) []Count {
	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	slices.Sort(days)
	trend := make([]Count, 0, len(days))
	for _, day := range days {
		trend = append(trend, Count{Label: day, Count: byDay[day]})
	}
	return trend
}

// WeekdayHistogram counts items per weekday in loc, Mon through Sun. Every
// weekday is present.
func WeekdayHistogram[T Timestamped](items []T, loc *time.Location) []Count {
	if loc == nil {
		loc = time.Local
	}
	counts := make(map[string]int, 7)
	for _, it := range items {
		counts[it.Timestamp().In(loc).Weekday().String()[:3]]++
	}
	out := make([]Count, 0, len(Weekdays))
	for _, day := range Weekdays {
		out = append(out, Count{Label: day, Count: counts[day]})
	}
	return out
}

// HourHistogram counts items per hour of the day in loc. All 24 hours are
// present.
func HourHistogram[T Timestamped](items []T, loc *time.Location) []HourCount {
	if loc == nil {
		loc = time.Local
	}
	var counts [24]int
	for _, it := range items {
		counts[it.Timestamp().In(loc).Hour()]++
	}
	out := make([]HourCount, 24)
	for h := range counts {
		out[h] = HourCount{Hour: h, Count: counts[h]}
	}
	return out
}

// HourBuckets folds an hour histogram into 3-hour groups labelled
// "HH:00-HH:59". Empty groups are omitted.
func HourBuckets(hours []HourCount) []Count {
	var groups [8]int
	for _, h := range hours {
		if h.Hour < 0 || h.Hour > 23 {
			continue
		}
		groups[h.Hour/3] += h.Count
	}
	var out []Count
	for i, n := range groups {
		if n == 0 {
			continue
		}
		start := i * 3
		out = append(out, Count{Label: fmt.Sprintf("%02d:00-%02d:59", start, start+2), Count: n})
	}
	if out == nil {
		out = []Count{}
	}
	return out
}

// ActivityMaps buckets messages by weekday and hour, falling back to
// conversations when there are no messages.
func ActivityMaps(messages []model.Message, conversations []model.Conversation, loc *time.Location) Activity {
	var a Activity
	if len(messages) > 0 {
		a.Weekday = WeekdayHistogram(messages, loc)
		a.Hours = HourHistogram(messages, loc)
	} else {
		a.Weekday = WeekdayHistogram(conversations, loc)
		a.Hours = HourHistogram(conversations, loc)
	}
	a.Buckets = HourBuckets(a.Hours)
	return a
}

// SourceCounts breaks conversations down by source and chat type.
type SourceCounts struct {
	Source []Count `json:"source"`
	Type   []Count `json:"type"`
}

// SourceBreakdown counts conversations per source and chat type, most common
// first. Ties keep first-seen order.
func SourceBreakdown(conversations []model.Conversation) SourceCounts {
	source := newTally()
	chatType := newTally()
	for _, c := range conversations {
		source.add(c.Source)
		chatType.add(c.ChatType)
	}
	return SourceCounts{Source: source.descending(), Type: chatType.descending()}
}

type tally struct {
	order  []string
	counts map[string]int
}

func newTally() *tally {
	return &tally{counts: make(map[string]int)}
}

func (t *tally) add(key string) {
	if _, ok := t.counts[key]; !ok {
		t.order = append(t.order, key)
	}
	t.counts[key]++
}

func (t *tally) descending() []Count {
	out := make([]Count, 0, len(t.order))
	for _, key := range t.order {
		out = append(out, Count{Label: key, Count: t.counts[key]})
	}
	slices.SortStableFunc(out, func(a, b Count) int { return b.Count - a.Count })
	return out
}

// Initials derives avatar initials from a user's names, falling back to the
// first two letters of the username, then "U".
func Initials(firstName, lastName, username string) string {
	first := strings.TrimSpace(firstName)
	last := strings.TrimSpace(lastName)
	if first != "" || last != "" {
		return strings.ToUpper(prefix(first, 1) + prefix(last, 1))
	}
	if username != "" {
		return strings.ToUpper(prefix(username, 2))
	}
	return "U"
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}
