package model

import "time"

// DateLayout is the calendar-day format used for due dates and expense days.
const DateLayout = "2006-01-02"

type Frequency string

const (
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyInterval Frequency = "interval"
	FrequencyAsNeeded Frequency = "as_needed"
)

// Valid reports whether f is one of the known frequency kinds.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyInterval, FrequencyAsNeeded:
		return true
	}
	return false
}

// ChoreTemplate is the reusable definition of a recurring task.
type ChoreTemplate struct {
	ID           int64     `json:"id"`
	HouseholdID  int64     `json:"household_id"`
	Name         string    `json:"name"`
	Room         string    `json:"room"`
	Frequency    Frequency `json:"frequency"`
	Weekdays     []int     `json:"weekdays"`
	IntervalDays *int      `json:"interval_days"`
	Points       int       `json:"points"`
	Active       bool      `json:"active"`
	CreatedBy    *int64    `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Assignment is one occurrence of a chore due on a specific day, owned by one user.
type Assignment struct {
	ID          int64      `json:"id"`
	ChoreID     int64      `json:"chore_id"`
	AssignedTo  int64      `json:"assigned_to"`
	DueDate     string     `json:"due_date"`
	CompletedAt *time.Time `json:"completed_at"`
	CompletedBy *int64     `json:"completed_by"`
	IsBonus     bool       `json:"is_bonus"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Completed reports whether the assignment has a completion recorded.
func (a Assignment) Completed() bool {
	return a.CompletedAt != nil
}

// NewAssignment is a row requested by the generator or by an ad-hoc log.
type NewAssignment struct {
	ChoreID    int64  `json:"chore_id"`
	AssignedTo int64  `json:"assigned_to"`
	DueDate    string `json:"due_date"`
}

type LeaderboardEntry struct {
	UserID           int64 `json:"user_id"`
	Points           int   `json:"points"`
	Completions      int   `json:"completions"`
	BonusCompletions int   `json:"bonus_completions"`
}
