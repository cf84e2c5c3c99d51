package chore

import (
	"fmt"
	"time"

	"github.com/dukerupert/chorewheel/internal/model"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusOverdue   Status = "overdue"
)

// DayKey formats t as a calendar-day key in UTC.
func DayKey(t time.Time) string {
	return t.UTC().Format(model.DateLayout)
}

// ParseDay parses a calendar-day key into midnight UTC.
func ParseDay(s string) (time.Time, error) {
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day %q: %w", s, err)
	}
	return d, nil
}

// Days returns every calendar day in [start, end], inclusive, at midnight UTC.
// It returns nil when start is after end.
func Days(start, end time.Time) []time.Time {
	start = startOfDay(start)
	end = startOfDay(end)
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// DayCount returns how many calendar days [start, end] spans, 0 when start is
// after end. Spans past the range of time.Duration saturate instead of
// overflowing.
func DayCount(start, end time.Time) int {
	start = startOfDay(start)
	end = startOfDay(end)
	if start.After(end) {
		return 0
	}
	return int(end.Sub(start)/(24*time.Hour)) + 1
}

// IsDueOn reports whether the generator should schedule the chore on day.
// Daily chores are due every day and weekly chores on their listed weekdays.
// Interval and as-needed chores are never scheduled automatically.
func IsDueOn(c model.ChoreTemplate, day time.Time) bool {
	switch c.Frequency {
	case model.FrequencyDaily:
		return true
	case model.FrequencyWeekly:
		wd := int(day.UTC().Weekday())
		for _, d := range c.Weekdays {
			if d == wd {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// AssignmentStatus classifies an assignment relative to today.
func AssignmentStatus(a model.Assignment, today time.Time) Status {
	if a.Completed() {
		return StatusCompleted
	}
	if a.DueDate < DayKey(today) {
		return StatusOverdue
	}
	return StatusPending
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
