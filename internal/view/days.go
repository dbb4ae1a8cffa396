package view

import (
	"time"

	"inbox-engine/internal/models"
)

// DayBucket is one calendar day of the timeline.
type DayBucket struct {
	Date     time.Time
	Label    string
	Messages []models.Message
}

// GroupByDay partitions an ascending message sequence into local calendar-day
// buckets. Messages without a usable timestamp are skipped rather than
// crashing the pass.
func GroupByDay(msgs []models.Message, now time.Time) []DayBucket {
	var buckets []DayBucket
	for _, m := range msgs {
		if m.CreatedAt.IsZero() {
			continue
		}
		day := truncateToDay(m.CreatedAt.Local())
		if n := len(buckets); n > 0 && buckets[n-1].Date.Equal(day) {
			buckets[n-1].Messages = append(buckets[n-1].Messages, m)
			continue
		}
		buckets = append(buckets, DayBucket{
			Date:     day,
			Label:    dayLabel(day, now),
			Messages: []models.Message{m},
		})
	}
	return buckets
}

func dayLabel(day, now time.Time) string {
	today := truncateToDay(now.Local())
	switch {
	case day.Equal(today):
		return "Today"
	case day.Equal(today.AddDate(0, 0, -1)):
		return "Yesterday"
	default:
		return day.Format("January 2, 2006")
	}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
