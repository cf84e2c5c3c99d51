package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/chorewheel/internal/model"
)

type NudgeStore struct {
	db *sql.DB
}

func NewNudgeStore(db *sql.DB) *NudgeStore {
	return &NudgeStore{db: db}
}

func scanNudge(scanner interface{ Scan(...any) error }) (*model.Nudge, error) {
	var n model.Nudge
	var assignmentID sql.NullInt64
	var readAt sql.NullTime

	err := scanner.Scan(&n.ID, &n.HouseholdID, &n.FromUser, &n.ToUser, &assignmentID, &n.Message, &readAt, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	if assignmentID.Valid {
		n.AssignmentID = &assignmentID.Int64
	}
	if readAt.Valid {
		t := readAt.Time.UTC()
		n.ReadAt = &t
	}
	return &n, nil
}

const nudgeCols = `id, household_id, from_user, to_user, assignment_id, message, read_at, created_at`

func (s *NudgeStore) Create(householdID, fromUser, toUser int64, assignmentID *int64, message string) (*model.Nudge, error) {
	var aID sql.NullInt64
	if assignmentID != nil {
		aID = sql.NullInt64{Int64: *assignmentID, Valid: true}
	}
	result, err := s.db.Exec(
		`INSERT INTO nudges (household_id, from_user, to_user, assignment_id, message) VALUES (?, ?, ?, ?, ?)`,
		householdID, fromUser, toUser, aID, message,
	)
	if err != nil {
		return nil, fmt.Errorf("insert nudge: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *NudgeStore) GetByID(id int64) (*model.Nudge, error) {
	row := s.db.QueryRow(`SELECT `+nudgeCols+` FROM nudges WHERE id = ?`, id)
	n, err := scanNudge(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get nudge: %w", err)
	}
	return n, nil
}

// ListForUser returns nudges sent to or from userID in a household, newest first.
func (s *NudgeStore) ListForUser(householdID, userID int64) ([]model.Nudge, error) {
	rows, err := s.db.Query(
		`SELECT `+nudgeCols+` FROM nudges WHERE household_id = ? AND (to_user = ? OR from_user = ?)
		 ORDER BY created_at DESC, id DESC`,
		householdID, userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list nudges: %w", err)
	}
	defer rows.Close()

	var nudges []model.Nudge
	for rows.Next() {
		n, err := scanNudge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan nudge: %w", err)
		}
		nudges = append(nudges, *n)
	}
	return nudges, rows.Err()
}

// MarkRead sets read_at once; later calls keep the first timestamp.
func (s *NudgeStore) MarkRead(id int64, at time.Time) (*model.Nudge, error) {
	_, err := s.db.Exec(`UPDATE nudges SET read_at = ? WHERE id = ? AND read_at IS NULL`, at.UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("mark nudge read: %w", err)
	}
	return s.GetByID(id)
}
