package store

import (
	"errors"
	"testing"
	"time"

	"github.com/dukerupert/chorewheel/internal/model"
)

func createChore(t *testing.T, cs *ChoreStore, householdID int64, name string, freq model.Frequency, weekdays ...int) *model.ChoreTemplate {
	t.Helper()
	c, err := cs.Create(model.ChoreTemplate{
		HouseholdID: householdID,
		Name:        name,
		Room:        "Kitchen",
		Frequency:   freq,
		Weekdays:    weekdays,
		Points:      2,
		Active:      true,
	})
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}
	return c
}

func TestChoreCRUD(t *testing.T) {
	db := setupTestDB(t)
	h, users := seedHousehold(t, db, 1)
	cs := NewChoreStore(db)

	interval := 3
	created, err := cs.Create(model.ChoreTemplate{
		HouseholdID:  h.ID,
		Name:         "Mop floors",
		Room:         "Kitchen",
		Frequency:    model.FrequencyWeekly,
		Weekdays:     []int{5, 1, 3, 3},
		IntervalDays: &interval,
		Points:       4,
		Active:       true,
		CreatedBy:    &users[0].ID,
	})
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}
	if created.Name != "Mop floors" {
		t.Errorf("name = %q, want %q", created.Name, "Mop floors")
	}
	if len(created.Weekdays) != 3 || created.Weekdays[0] != 1 || created.Weekdays[2] != 5 {
		t.Errorf("weekdays = %v, want [1 3 5]", created.Weekdays)
	}
	if created.IntervalDays == nil || *created.IntervalDays != 3 {
		t.Errorf("interval_days = %v, want 3", created.IntervalDays)
	}
	if !created.Active {
		t.Error("expected active chore")
	}
	if created.CreatedBy == nil || *created.CreatedBy != users[0].ID {
		t.Errorf("created_by = %v, want %d", created.CreatedBy, users[0].ID)
	}

	created.Name = "Mop all floors"
	created.Points = 6
	created.Weekdays = nil
	created.Frequency = model.FrequencyDaily
	updated, err := cs.Update(created.ID, *created)
	if err != nil {
		t.Fatalf("update chore: %v", err)
	}
	if updated.Name != "Mop all floors" || updated.Points != 6 {
		t.Errorf("updated = %+v", updated)
	}
	if updated.Frequency != model.FrequencyDaily || len(updated.Weekdays) != 0 {
		t.Errorf("frequency = %q weekdays = %v", updated.Frequency, updated.Weekdays)
	}

	disabled, err := cs.SetActive(created.ID, false)
	if err != nil {
		t.Fatalf("set active: %v", err)
	}
	if disabled.Active {
		t.Error("expected inactive chore")
	}

	if err := cs.Delete(created.ID); err != nil {
		t.Fatalf("delete chore: %v", err)
	}
	got, err := cs.GetByID(created.ID)
	if err != nil {
		t.Fatalf("get deleted chore: %v", err)
	}
	if got != nil {
		t.Error("expected nil for deleted chore")
	}
}

func TestChoreRejectsUnknownFrequency(t *testing.T) {
	db := setupTestDB(t)
	h, _ := seedHousehold(t, db, 1)
	cs := NewChoreStore(db)

	_, err := cs.Create(model.ChoreTemplate{HouseholdID: h.ID, Name: "Bad", Frequency: "monthly"})
	if err == nil {
		t.Fatal("expected check constraint error")
	}
}

func TestChoreListActiveOnly(t *testing.T) {
	db := setupTestDB(t)
	h, _ := seedHousehold(t, db, 1)
	cs := NewChoreStore(db)

	a := createChore(t, cs, h.ID, "Dishes", model.FrequencyDaily)
	b := createChore(t, cs, h.ID, "Trash", model.FrequencyWeekly, 1)
	if _, err := cs.SetActive(b.ID, false); err != nil {
		t.Fatalf("disable: %v", err)
	}

	active, err := cs.List(h.ID, true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(active) != 1 || active[0].ID != a.ID {
		t.Fatalf("active = %+v, want only %d", active, a.ID)
	}

	all, err := cs.List(h.ID, false)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 chores, got %d", len(all))
	}
}

func TestInsertAssignmentsSkipsExistingChoreDay(t *testing.T) {
	db := setupTestDB(t)
	h, users := seedHousehold(t, db, 2)
	cs := NewChoreStore(db)
	c := createChore(t, cs, h.ID, "Dishes", model.FrequencyDaily)

	first, err := cs.InsertAssignments([]model.NewAssignment{
		{ChoreID: c.ID, AssignedTo: users[0].ID, DueDate: "2026-03-02"},
		{ChoreID: c.ID, AssignedTo: users[1].ID, DueDate: "2026-03-03"},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 inserted, got %d", len(first))
	}

	second, err := cs.InsertAssignments([]model.NewAssignment{
		{ChoreID: c.ID, AssignedTo: users[1].ID, DueDate: "2026-03-02"},
		{ChoreID: c.ID, AssignedTo: users[0].ID, DueDate: "2026-03-04"},
	})
	if err != nil {
		t.Fatalf("insert again: %v", err)
	}
	if len(second) != 1 || second[0].DueDate != "2026-03-04" {
		t.Fatalf("second insert = %+v, want only 2026-03-04", second)
	}

	all, err := cs.ListAssignments(AssignmentFilter{HouseholdID: h.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 assignments, got %d", len(all))
	}
}

func TestListAssignmentsFilters(t *testing.T) {
	db := setupTestDB(t)
	h, users := seedHousehold(t, db, 2)
	other, err := NewHouseholdStore(db).Create("Other House", users[0].ID)
	if err != nil {
		t.Fatalf("create other household: %v", err)
	}
	cs := NewChoreStore(db)

	c := createChore(t, cs, h.ID, "Dishes", model.FrequencyDaily)
	oc := createChore(t, cs, other.ID, "Elsewhere", model.FrequencyDaily)
	if _, err := cs.InsertAssignments([]model.NewAssignment{
		{ChoreID: c.ID, AssignedTo: users[0].ID, DueDate: "2026-03-02"},
		{ChoreID: c.ID, AssignedTo: users[1].ID, DueDate: "2026-03-03"},
		{ChoreID: oc.ID, AssignedTo: users[0].ID, DueDate: "2026-03-02"},
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	byHousehold, _ := cs.ListAssignments(AssignmentFilter{HouseholdID: h.ID})
	if len(byHousehold) != 2 {
		t.Errorf("household filter: got %d, want 2", len(byHousehold))
	}
	byUser, _ := cs.ListAssignments(AssignmentFilter{HouseholdID: h.ID, AssignedTo: users[1].ID})
	if len(byUser) != 1 || byUser[0].DueDate != "2026-03-03" {
		t.Errorf("assignee filter: got %+v", byUser)
	}
	byDay, _ := cs.ListAssignments(AssignmentFilter{DueDate: "2026-03-02"})
	if len(byDay) != 2 {
		t.Errorf("due date filter: got %d, want 2", len(byDay))
	}
}

func TestCompleteAssignment(t *testing.T) {
	db := setupTestDB(t)
	h, users := seedHousehold(t, db, 2)
	cs := NewChoreStore(db)
	c := createChore(t, cs, h.ID, "Dishes", model.FrequencyDaily)

	rows, _ := cs.InsertAssignments([]model.NewAssignment{
		{ChoreID: c.ID, AssignedTo: users[0].ID, DueDate: "2026-03-02"},
		{ChoreID: c.ID, AssignedTo: users[0].ID, DueDate: "2026-03-03"},
	})
	at := time.Date(2026, 3, 2, 18, 30, 0, 0, time.UTC)

	own, err := cs.Complete(rows[0].ID, users[0].ID, at)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if own.CompletedAt == nil || !own.CompletedAt.Equal(at) {
		t.Errorf("completed_at = %v, want %v", own.CompletedAt, at)
	}
	if own.CompletedBy == nil || *own.CompletedBy != users[0].ID {
		t.Errorf("completed_by = %v, want %d", own.CompletedBy, users[0].ID)
	}
	if own.IsBonus {
		t.Error("completion by assignee should not be a bonus")
	}

	bonus, err := cs.Complete(rows[1].ID, users[1].ID, at)
	if err != nil {
		t.Fatalf("complete bonus: %v", err)
	}
	if !bonus.IsBonus {
		t.Error("completion by someone else should be a bonus")
	}

	if _, err := cs.Complete(rows[0].ID, users[1].ID, at); !errors.Is(err, ErrAlreadyCompleted) {
		t.Errorf("second completion err = %v, want ErrAlreadyCompleted", err)
	}

	missing, err := cs.Complete(9999, users[0].ID, at)
	if err != nil {
		t.Fatalf("complete missing: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown assignment")
	}
}

func TestLogCompleted(t *testing.T) {
	db := setupTestDB(t)
	h, users := seedHousehold(t, db, 1)
	cs := NewChoreStore(db)
	c := createChore(t, cs, h.ID, "Water plants", model.FrequencyAsNeeded)

	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	a, err := cs.LogCompleted(c.ID, users[0].ID, "2026-03-02", at)
	if err != nil {
		t.Fatalf("log completed: %v", err)
	}
	if !a.Completed() || a.IsBonus {
		t.Errorf("logged assignment = %+v", a)
	}
	if a.AssignedTo != users[0].ID || *a.CompletedBy != users[0].ID {
		t.Errorf("assigned_to = %d completed_by = %d", a.AssignedTo, *a.CompletedBy)
	}

	hid, err := cs.HouseholdIDForAssignment(a.ID)
	if err != nil {
		t.Fatalf("household for assignment: %v", err)
	}
	if hid != h.ID {
		t.Errorf("household = %d, want %d", hid, h.ID)
	}
}
