package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/chorewheel/internal/model"
)

// ErrNoMembers is returned when a chore's household has nobody to assign.
var ErrNoMembers = errors.New("household has no members")

// FairnessStore owns the per-chore completion counters behind the rotation.
type FairnessStore struct {
	db *sql.DB
}

func NewFairnessStore(db *sql.DB) *FairnessStore {
	return &FairnessStore{db: db}
}

// Counts returns completion counters for a chore keyed by user id.
func (s *FairnessStore) Counts(choreID int64) (map[int64]int, error) {
	rows, err := s.db.Query(`SELECT user_id, count FROM fairness_counters WHERE chore_id = ?`, choreID)
	if err != nil {
		return nil, fmt.Errorf("list fairness counters: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var userID int64
		var n int
		if err := rows.Scan(&userID, &n); err != nil {
			return nil, fmt.Errorf("scan fairness counter: %w", err)
		}
		counts[userID] = n
	}
	return counts, rows.Err()
}

// Increment bumps the completion counter for (chore, user).
func (s *FairnessStore) Increment(choreID, userID int64) error {
	_, err := s.db.Exec(
		`INSERT INTO fairness_counters (household_id, chore_id, user_id, count)
		 SELECT household_id, id, ?, 1 FROM chores WHERE id = ?
		 ON CONFLICT(chore_id, user_id) DO UPDATE SET count = count + 1`,
		userID, choreID,
	)
	if err != nil {
		return fmt.Errorf("increment fairness: %w", err)
	}
	return nil
}

// NextAssignee picks who should own the chore on dueDate. Members with the
// fewest completions of the chore are eligible; among them the pick rotates by
// calendar day in join order, so consecutive days go to different people.
// It returns 0 and no error when the chore does not exist.
func (s *FairnessStore) NextAssignee(choreID int64, dueDate string) (int64, error) {
	day, err := time.Parse(model.DateLayout, dueDate)
	if err != nil {
		return 0, fmt.Errorf("parse due date: %w", err)
	}

	var householdID int64
	err = s.db.QueryRow(`SELECT household_id FROM chores WHERE id = ?`, choreID).Scan(&householdID)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get chore household: %w", err)
	}

	members, err := NewHouseholdStore(s.db).ListMembers(householdID)
	if err != nil {
		return 0, err
	}
	if len(members) == 0 {
		return 0, ErrNoMembers
	}

	counts, err := s.Counts(choreID)
	if err != nil {
		return 0, err
	}

	min := -1
	for _, m := range members {
		if c := counts[m.UserID]; min < 0 || c < min {
			min = c
		}
	}
	var eligible []int64
	for _, m := range members {
		if counts[m.UserID] == min {
			eligible = append(eligible, m.UserID)
		}
	}

	dayNumber := day.Unix() / 86400
	idx := int(dayNumber % int64(len(eligible)))
	if idx < 0 {
		idx += len(eligible)
	}
	return eligible[idx], nil
}
