package model

import "time"

type Nudge struct {
	ID           int64      `json:"id"`
	HouseholdID  int64      `json:"household_id"`
	FromUser     int64      `json:"from_user"`
	ToUser       int64      `json:"to_user"`
	AssignmentID *int64     `json:"assignment_id"`
	Message      string     `json:"message"`
	ReadAt       *time.Time `json:"read_at"`
	CreatedAt    time.Time  `json:"created_at"`
}
