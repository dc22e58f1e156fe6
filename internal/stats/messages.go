package stats

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"unicode/utf16"

	"github.com/chat-analyzer/gateway/internal/model"
)

// Latencies returns the reply delays in one thread, in milliseconds. The most
// recent user message is paired with the next assistant message; further
// assistant messages before another user message are ignored. Negative
// deltas are dropped.
func Latencies(thread []model.Message) []float64 {
	list := byTime(thread)
	var out []float64
	var lastUser *float64
	for _, m := range list {
		t := float64(m.CreatedAt.UnixMilli())
		switch m.SenderType {
		case model.SenderUser:
			lastUser = &t
		case model.SenderAssistant:
			if lastUser == nil {
				continue
			}
			if delta := t - *lastUser; delta >= 0 {
				out = append(out, delta)
			}
			lastUser = nil
		}
	}
	return out
}

// ResponseTimes summarizes reply latency over the given conversations.
func ResponseTimes(conversations []model.Conversation, messagesByConversation map[model.ID][]model.Message) Summary {
	var deltas []float64
	for _, c := range conversations {
		deltas = append(deltas, Latencies(messagesByConversation[c.ID])...)
	}
	return Summarize(deltas)
}

// ResponseTimesFromMessages groups messages by conversation and summarizes
// reply latency.
func ResponseTimesFromMessages(messages []model.Message) Summary {
	var order []model.ID
	threads := make(map[model.ID][]model.Message)
	for _, m := range messages {
		if _, ok := threads[m.Conversation]; !ok {
			order = append(order, m.Conversation)
		}
		threads[m.Conversation] = append(threads[m.Conversation], m)
	}
	var deltas []float64
	for _, id := range order {
		deltas = append(deltas, Latencies(threads[id])...)
	}
	return Summarize(deltas)
}

// Row is the size and span of one conversation.
type Row struct {
	ID           model.ID `json:"id"`
	MessageCount int      `json:"msg_count"`
	DurationMs   float64  `json:"duration_ms"`
}

// Aggregation summarizes conversation sizes and spans.
type Aggregation struct {
	Rows           []Row   `json:"rows"`
	AvgMessages    float64 `json:"avg_msgs"`
	MedianMessages float64 `json:"med_msgs"`
	MinMessages    int     `json:"min_msgs"`
	MaxMessages    int     `json:"max_msgs"`
	AvgDuration    float64 `json:"avg_duration"`
	MedianDuration float64 `json:"med_duration"`
	MinDuration    float64 `json:"min_duration"`
	MaxDuration    float64 `json:"max_duration"`
	TopByMessages  []Row   `json:"top_by_msgs"`
	TopByDuration  []Row   `json:"top_by_duration"`
}

// Aggregate computes per-conversation message counts and durations with their
// distribution and the top three of each.
func Aggregate(conversations []model.Conversation, messagesByConversation map[model.ID][]model.Message) Aggregation {
	rows := make([]Row, 0, len(conversations))
	for _, c := range conversations {
		list := byTime(messagesByConversation[c.ID])
		row := Row{ID: c.ID, MessageCount: len(list)}
		if len(list) > 0 {
			row.DurationMs = float64(list[len(list)-1].CreatedAt.Sub(list[0].CreatedAt).Milliseconds())
		}
		rows = append(rows, row)
	}

	counts := make([]int, len(rows))
	durations := make([]float64, len(rows))
	for i, r := range rows {
		counts[i] = r.MessageCount
		durations[i] = r.DurationMs
	}
	slices.Sort(counts)
	slices.Sort(durations)

	agg := Aggregation{
		Rows:           rows,
		AvgMessages:    Average(ints(counts)),
		MedianMessages: Median(ints(counts)),
		AvgDuration:    Average(durations),
		MedianDuration: Median(durations),
		TopByMessages:  top(rows, func(a, b Row) int { return b.MessageCount - a.MessageCount }),
		TopByDuration: top(rows, func(a, b Row) int {
			switch {
			case b.DurationMs > a.DurationMs:
				return 1
			case b.DurationMs < a.DurationMs:
				return -1
			default:
				return 0
			}
		}),
	}
	if len(rows) > 0 {
		agg.MinMessages = counts[0]
		agg.MaxMessages = counts[len(counts)-1]
		agg.MinDuration = durations[0]
		agg.MaxDuration = durations[len(durations)-1]
	}
	return agg
}

func top(rows []Row, cmp func(a, b Row) int) []Row {
	out := slices.Clone(rows)
	slices.SortStableFunc(out, cmp)
	if len(out) > 3 {
		out = out[:3]
	}
	return out
}

// MessageSummary holds volume and length statistics of a message set.
type MessageSummary struct {
	TotalMessages  int     `json:"total_messages"`
	TotalWords     int     `json:"total_words"`
	TotalChars     int     `json:"total_chars"`
	AvgWords       float64 `json:"avg_words"`
	AvgChars       float64 `json:"avg_chars"`
	MedianWords    float64 `json:"median_words"`
	MedianChars    float64 `json:"median_chars"`
	UserCount      int     `json:"user_count"`
	AssistantCount int     `json:"assistant_count"`
}

// MessageStats counts messages, words and characters.
func MessageStats(messages []model.Message) MessageSummary {
	s := MessageSummary{TotalMessages: len(messages)}
	words := make([]float64, 0, len(messages))
	chars := make([]float64, 0, len(messages))
	for _, m := range messages {
		w := WordCount(m.Content)
		ch := CharCount(m.Content)
		s.TotalWords += w
		s.TotalChars += ch
		words = append(words, float64(w))
		chars = append(chars, float64(ch))
		switch m.SenderType {
		case model.SenderUser:
			s.UserCount++
		case model.SenderAssistant:
			s.AssistantCount++
		}
	}
	if s.TotalMessages > 0 {
		s.AvgWords = float64(s.TotalWords) / float64(s.TotalMessages)
		s.AvgChars = float64(s.TotalChars) / float64(s.TotalMessages)
	}
	s.MedianWords = Median(words)
	s.MedianChars = Median(chars)
	return s
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// CharCount counts UTF-16 code units, the length browsers report.
func CharCount(text string) int {
	n := 0
	for _, r := range text {
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}

// Flatten returns all messages of the given conversations, oldest first.
func Flatten(conversations []model.Conversation, messagesByConversation map[model.ID][]model.Message) []model.Message {
	var all []model.Message
	for _, c := range conversations {
		all = append(all, messagesByConversation[c.ID]...)
	}
	return byTime(all)
}

func byTime(messages []model.Message) []model.Message {
	out := slices.Clone(messages)
	slices.SortStableFunc(out, func(a, b model.Message) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}

// FormatDuration renders milliseconds as "-", "Ns", "Nm Ns" or "Nh Nm".
func FormatDuration(ms float64) string {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || ms < 0 {
		return "-"
	}
	s := int64(math.Floor(ms / 1000))
	if s < 60 {
		return fmt.Sprintf("%ds", s)
	}
	m := s / 60
	if m < 60 {
		return fmt.Sprintf("%dm %ds", m, s%60)
	}
	return fmt.Sprintf("%dh %dm", m/60, m%60)
}
