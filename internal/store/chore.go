package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/chorewheel/internal/model"
)

// ErrAlreadyCompleted is returned when completing an assignment that already has a completion.
var ErrAlreadyCompleted = errors.New("assignment already completed")

type ChoreStore struct {
	db *sql.DB
}

func NewChoreStore(db *sql.DB) *ChoreStore {
	return &ChoreStore{db: db}
}

// --- Weekday encoding ---

func encodeWeekdays(days []int) string {
	if len(days) == 0 {
		return ""
	}
	sorted := append([]int(nil), days...)
	sort.Ints(sorted)
	parts := make([]string, 0, len(sorted))
	for i, d := range sorted {
		if i > 0 && d == sorted[i-1] {
			continue
		}
		parts = append(parts, strconv.Itoa(d))
	}
	return strings.Join(parts, ",")
}

func decodeWeekdays(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	var days []int
	for _, part := range strings.Split(s, ",") {
		d, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("parse weekday %q: %w", part, err)
		}
		days = append(days, d)
	}
	return days, nil
}

// --- Chore template methods ---

func scanChore(scanner interface{ Scan(...any) error }) (*model.ChoreTemplate, error) {
	var c model.ChoreTemplate
	var weekdays string
	var intervalDays sql.NullInt64
	var active int
	var createdBy sql.NullInt64

	err := scanner.Scan(
		&c.ID, &c.HouseholdID, &c.Name, &c.Room, &c.Frequency, &weekdays,
		&intervalDays, &c.Points, &active, &createdBy, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Weekdays, err = decodeWeekdays(weekdays)
	if err != nil {
		return nil, err
	}
	if intervalDays.Valid {
		n := int(intervalDays.Int64)
		c.IntervalDays = &n
	}
	c.Active = active != 0
	if createdBy.Valid {
		c.CreatedBy = &createdBy.Int64
	}
	return &c, nil
}

const choreCols = `id, household_id, name, room, frequency, weekdays, interval_days, points, active, created_by, created_at, updated_at`

func choreArgs(c model.ChoreTemplate) (sql.NullInt64, int, sql.NullInt64) {
	var interval sql.NullInt64
	if c.IntervalDays != nil {
		interval = sql.NullInt64{Int64: int64(*c.IntervalDays), Valid: true}
	}
	var active int
	if c.Active {
		active = 1
	}
	var createdBy sql.NullInt64
	if c.CreatedBy != nil {
		createdBy = sql.NullInt64{Int64: *c.CreatedBy, Valid: true}
	}
	return interval, active, createdBy
}

func (s *ChoreStore) Create(c model.ChoreTemplate) (*model.ChoreTemplate, error) {
	interval, active, createdBy := choreArgs(c)
	result, err := s.db.Exec(
		`INSERT INTO chores (household_id, name, room, frequency, weekdays, interval_days, points, active, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.HouseholdID, c.Name, c.Room, c.Frequency, encodeWeekdays(c.Weekdays), interval, c.Points, active, createdBy,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreStore) GetByID(id int64) (*model.ChoreTemplate, error) {
	row := s.db.QueryRow(`SELECT `+choreCols+` FROM chores WHERE id = ?`, id)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	return c, nil
}

// List returns a household's chore templates ordered by room then name.
func (s *ChoreStore) List(householdID int64, activeOnly bool) ([]model.ChoreTemplate, error) {
	query := `SELECT ` + choreCols + ` FROM chores WHERE household_id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY room ASC, name ASC, id ASC`

	rows, err := s.db.Query(query, householdID)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	defer rows.Close()

	var chores []model.ChoreTemplate
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}

// Update rewrites the editable fields of a template. Household and creator never change.
func (s *ChoreStore) Update(id int64, c model.ChoreTemplate) (*model.ChoreTemplate, error) {
	interval, active, _ := choreArgs(c)
	_, err := s.db.Exec(
		`UPDATE chores SET name = ?, room = ?, frequency = ?, weekdays = ?, interval_days = ?, points = ?, active = ? WHERE id = ?`,
		c.Name, c.Room, c.Frequency, encodeWeekdays(c.Weekdays), interval, c.Points, active, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update chore: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreStore) SetActive(id int64, active bool) (*model.ChoreTemplate, error) {
	var a int
	if active {
		a = 1
	}
	if _, err := s.db.Exec(`UPDATE chores SET active = ? WHERE id = ?`, a, id); err != nil {
		return nil, fmt.Errorf("set chore active: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM chores WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete chore: %w", err)
	}
	return nil
}

// --- Assignment methods ---

func scanAssignment(scanner interface{ Scan(...any) error }) (*model.Assignment, error) {
	var a model.Assignment
	var completedAt sql.NullTime
	var completedBy sql.NullInt64
	var bonus int

	err := scanner.Scan(
		&a.ID, &a.ChoreID, &a.AssignedTo, &a.DueDate,
		&completedAt, &completedBy, &bonus, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		t := completedAt.Time.UTC()
		a.CompletedAt = &t
	}
	if completedBy.Valid {
		a.CompletedBy = &completedBy.Int64
	}
	a.IsBonus = bonus != 0
	return &a, nil
}

const assignmentCols = `a.id, a.chore_id, a.assigned_to, a.due_date, a.completed_at, a.completed_by, a.is_bonus, a.created_at`

// AssignmentFilter narrows ListAssignments with equality filters. Zero values are ignored.
type AssignmentFilter struct {
	HouseholdID int64
	ChoreID     int64
	AssignedTo  int64
	DueDate     string
}

func (s *ChoreStore) ListAssignments(f AssignmentFilter) ([]model.Assignment, error) {
	query := `SELECT ` + assignmentCols + ` FROM assignments a JOIN chores c ON c.id = a.chore_id WHERE 1 = 1`
	var args []any
	if f.HouseholdID != 0 {
		query += ` AND c.household_id = ?`
		args = append(args, f.HouseholdID)
	}
	if f.ChoreID != 0 {
		query += ` AND a.chore_id = ?`
		args = append(args, f.ChoreID)
	}
	if f.AssignedTo != 0 {
		query += ` AND a.assigned_to = ?`
		args = append(args, f.AssignedTo)
	}
	if f.DueDate != "" {
		query += ` AND a.due_date = ?`
		args = append(args, f.DueDate)
	}
	query += ` ORDER BY a.due_date ASC, a.id ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []model.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignments = append(assignments, *a)
	}
	return assignments, rows.Err()
}

func (s *ChoreStore) GetAssignment(id int64) (*model.Assignment, error) {
	row := s.db.QueryRow(`SELECT `+assignmentCols+` FROM assignments a WHERE a.id = ?`, id)
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	return a, nil
}

// InsertAssignments batch-inserts rows in one transaction. A row whose
// (chore_id, due_date) already exists is skipped, so the batch never creates a
// second assignment for the same chore and day. The inserted rows are returned.
func (s *ChoreStore) InsertAssignments(rows []model.NewAssignment) ([]model.Assignment, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var ids []int64
	for _, r := range rows {
		result, err := tx.Exec(
			`INSERT INTO assignments (chore_id, assigned_to, due_date)
			 SELECT ?, ?, ?
			 WHERE NOT EXISTS (SELECT 1 FROM assignments WHERE chore_id = ? AND due_date = ?)`,
			r.ChoreID, r.AssignedTo, r.DueDate, r.ChoreID, r.DueDate,
		)
		if err != nil {
			return nil, fmt.Errorf("insert assignment: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			continue
		}
		id, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("last insert id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit assignments: %w", err)
	}

	inserted := make([]model.Assignment, 0, len(ids))
	for _, id := range ids {
		a, err := s.GetAssignment(id)
		if err != nil {
			return nil, err
		}
		if a != nil {
			inserted = append(inserted, *a)
		}
	}
	return inserted, nil
}

// LogCompleted records an ad-hoc activity: an assignment created already completed
// by the same user.
func (s *ChoreStore) LogCompleted(choreID, userID int64, dueDate string, at time.Time) (*model.Assignment, error) {
	result, err := s.db.Exec(
		`INSERT INTO assignments (chore_id, assigned_to, due_date, completed_at, completed_by, is_bonus)
		 VALUES (?, ?, ?, ?, ?, 0)`,
		choreID, userID, dueDate, at.UTC(), userID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert logged assignment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetAssignment(id)
}

// Complete marks an assignment done. It is a one-shot mutation: completing an
// already-completed assignment returns ErrAlreadyCompleted.
func (s *ChoreStore) Complete(id, completedBy int64, at time.Time) (*model.Assignment, error) {
	result, err := s.db.Exec(
		`UPDATE assignments
		 SET completed_at = ?, completed_by = ?, is_bonus = CASE WHEN assigned_to = ? THEN 0 ELSE 1 END
		 WHERE id = ? AND completed_at IS NULL`,
		at.UTC(), completedBy, completedBy, id,
	)
	if err != nil {
		return nil, fmt.Errorf("complete assignment: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		existing, err := s.GetAssignment(id)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, nil
		}
		return nil, ErrAlreadyCompleted
	}
	return s.GetAssignment(id)
}

// HouseholdIDForAssignment resolves the owning household, or 0 if the assignment is unknown.
func (s *ChoreStore) HouseholdIDForAssignment(id int64) (int64, error) {
	var hid int64
	err := s.db.QueryRow(
		`SELECT c.household_id FROM assignments a JOIN chores c ON c.id = a.chore_id WHERE a.id = ?`, id,
	).Scan(&hid)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("household for assignment: %w", err)
	}
	return hid, nil
}
