package handler

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/dukerupert/chorewheel/internal/model"
	"github.com/dukerupert/chorewheel/internal/store"
)

func newChoreHandler(f *fixture) *ChoreHandler {
	h := NewChoreHandler(f.chores, f.fairness, f.households, nil, f.logger)
	h.now = func() time.Time { return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC) }
	return h
}

func createChoreVia(t *testing.T, f *fixture, h *ChoreHandler, body map[string]any) model.ChoreTemplate {
	t.Helper()
	body["household_id"] = f.household.ID
	rec := serve(t, "POST /api/chores", h.Create, f.members[0].ID, "POST", "/api/chores", body)
	wantStatus(t, rec, http.StatusCreated)
	return decode[model.ChoreTemplate](t, rec)
}

func TestChoreCreateValidation(t *testing.T) {
	f := newFixture(t, 2)
	h := newChoreHandler(f)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing name", map[string]any{"frequency": "daily"}},
		{"bad frequency", map[string]any{"name": "Dishes", "frequency": "hourly"}},
		{"bad weekday", map[string]any{"name": "Dishes", "frequency": "weekly", "weekdays": []int{7}}},
		{"interval without days", map[string]any{"name": "Filters", "frequency": "interval"}},
		{"negative points", map[string]any{"name": "Dishes", "frequency": "daily", "points": -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.body["household_id"] = f.household.ID
			rec := serve(t, "POST /api/chores", h.Create, f.members[0].ID, "POST", "/api/chores", tt.body)
			wantStatus(t, rec, http.StatusBadRequest)
		})
	}
}

func TestChoreCreateAndList(t *testing.T) {
	f := newFixture(t, 2)
	h := newChoreHandler(f)

	c := createChoreVia(t, f, h, map[string]any{"name": "Trash", "frequency": "weekly", "weekdays": []int{5, 1}, "points": 3})
	if !c.Active {
		t.Error("new chore should default to active")
	}
	if c.CreatedBy == nil || *c.CreatedBy != f.members[0].ID {
		t.Errorf("created_by = %v, want %d", c.CreatedBy, f.members[0].ID)
	}
	if len(c.Weekdays) != 2 || c.Weekdays[0] != 1 || c.Weekdays[1] != 5 {
		t.Errorf("weekdays = %v, want [1 5]", c.Weekdays)
	}

	target := fmt.Sprintf("/api/chores?household_id=%d", f.household.ID)
	rec := serve(t, "GET /api/chores", h.List, f.members[1].ID, "GET", target, nil)
	wantStatus(t, rec, http.StatusOK)
	if got := decode[[]model.ChoreTemplate](t, rec); len(got) != 1 || got[0].ID != c.ID {
		t.Errorf("list = %+v, want the created chore", got)
	}
}

func TestChoreListRequiresMembership(t *testing.T) {
	f := newFixture(t, 1)
	h := newChoreHandler(f)

	target := fmt.Sprintf("/api/chores?household_id=%d", f.household.ID)
	rec := serve(t, "GET /api/chores", h.List, f.outsider.ID, "GET", target, nil)
	wantStatus(t, rec, http.StatusForbidden)

	rec = serve(t, "GET /api/chores", h.List, f.members[0].ID, "GET", "/api/chores", nil)
	wantStatus(t, rec, http.StatusBadRequest)
}

func TestChoreUpdateKeepsActiveWhenOmitted(t *testing.T) {
	f := newFixture(t, 1)
	h := newChoreHandler(f)
	c := createChoreVia(t, f, h, map[string]any{"name": "Dishes", "frequency": "daily", "active": false})

	target := fmt.Sprintf("/api/chores/%d", c.ID)
	rec := serve(t, "PUT /api/chores/{id}", h.Update, f.members[0].ID, "PUT", target,
		map[string]any{"name": "Dishes (evening)", "frequency": "daily", "points": 2})
	wantStatus(t, rec, http.StatusOK)

	got := decode[model.ChoreTemplate](t, rec)
	if got.Active {
		t.Error("update without active flag re-enabled the chore")
	}
	if got.Name != "Dishes (evening)" || got.Points != 2 {
		t.Errorf("updated chore = %+v", got)
	}
}

func TestInsertAssignmentsSkipsExisting(t *testing.T) {
	f := newFixture(t, 2)
	h := newChoreHandler(f)
	c := createChoreVia(t, f, h, map[string]any{"name": "Dishes", "frequency": "daily"})

	body := map[string]any{"assignments": []model.NewAssignment{
		{ChoreID: c.ID, AssignedTo: f.members[0].ID, DueDate: "2025-03-10"},
		{ChoreID: c.ID, AssignedTo: f.members[1].ID, DueDate: "2025-03-11"},
	}}
	rec := serve(t, "POST /api/assignments", h.InsertAssignments, f.members[0].ID, "POST", "/api/assignments", body)
	wantStatus(t, rec, http.StatusCreated)
	if got := decode[[]model.Assignment](t, rec); len(got) != 2 {
		t.Fatalf("first insert created %d rows, want 2", len(got))
	}

	rec = serve(t, "POST /api/assignments", h.InsertAssignments, f.members[0].ID, "POST", "/api/assignments", body)
	wantStatus(t, rec, http.StatusCreated)
	if got := decode[[]model.Assignment](t, rec); len(got) != 0 {
		t.Errorf("second insert created %d rows, want 0", len(got))
	}
}

func TestInsertAssignmentsRejectsOutsiders(t *testing.T) {
	f := newFixture(t, 1)
	h := newChoreHandler(f)
	c := createChoreVia(t, f, h, map[string]any{"name": "Dishes", "frequency": "daily"})

	row := model.NewAssignment{ChoreID: c.ID, AssignedTo: f.outsider.ID, DueDate: "2025-03-10"}
	rec := serve(t, "POST /api/assignments", h.InsertAssignments, f.members[0].ID, "POST", "/api/assignments",
		map[string]any{"assignments": []model.NewAssignment{row}})
	wantStatus(t, rec, http.StatusBadRequest)

	row.AssignedTo = f.members[0].ID
	rec = serve(t, "POST /api/assignments", h.InsertAssignments, f.outsider.ID, "POST", "/api/assignments",
		map[string]any{"assignments": []model.NewAssignment{row}})
	wantStatus(t, rec, http.StatusForbidden)

	row.DueDate = "10/03/2025"
	rec = serve(t, "POST /api/assignments", h.InsertAssignments, f.members[0].ID, "POST", "/api/assignments",
		map[string]any{"assignments": []model.NewAssignment{row}})
	wantStatus(t, rec, http.StatusBadRequest)
}

func TestCompleteAssignment(t *testing.T) {
	f := newFixture(t, 2)
	h := newChoreHandler(f)
	c := createChoreVia(t, f, h, map[string]any{"name": "Dishes", "frequency": "daily"})

	inserted, err := f.chores.InsertAssignments([]model.NewAssignment{
		{ChoreID: c.ID, AssignedTo: f.members[0].ID, DueDate: "2025-03-10"},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	target := fmt.Sprintf("/api/assignments/%d", inserted[0].ID)

	// bob completes alice's assignment with an empty body
	rec := serve(t, "PATCH /api/assignments/{id}", h.CompleteAssignment, f.members[1].ID, "PATCH", target, nil)
	wantStatus(t, rec, http.StatusOK)
	a := decode[model.Assignment](t, rec)
	if a.CompletedBy == nil || *a.CompletedBy != f.members[1].ID {
		t.Errorf("completed_by = %v, want %d", a.CompletedBy, f.members[1].ID)
	}
	if !a.IsBonus {
		t.Error("completion by another member should be a bonus")
	}

	rec = serve(t, "PATCH /api/assignments/{id}", h.CompleteAssignment, f.members[0].ID, "PATCH", target, nil)
	wantStatus(t, rec, http.StatusConflict)

	rec = serve(t, "PATCH /api/assignments/{id}", h.CompleteAssignment, f.members[0].ID, "PATCH", "/api/assignments/9999", nil)
	wantStatus(t, rec, http.StatusNotFound)
}

func TestLogActivity(t *testing.T) {
	f := newFixture(t, 1)
	h := newChoreHandler(f)
	c := createChoreVia(t, f, h, map[string]any{"name": "Water plants", "frequency": "as_needed"})

	for i := 0; i < 2; i++ {
		rec := serve(t, "POST /api/assignments/log", h.LogActivity, f.members[0].ID, "POST", "/api/assignments/log",
			map[string]any{"chore_id": c.ID})
		wantStatus(t, rec, http.StatusCreated)
		a := decode[model.Assignment](t, rec)
		if a.DueDate != "2025-03-10" || !a.Completed() || a.AssignedTo != f.members[0].ID {
			t.Errorf("logged assignment = %+v", a)
		}
	}

	all, err := f.chores.ListAssignments(store.AssignmentFilter{HouseholdID: f.household.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("logged %d rows, want 2 (log activity is not deduplicated)", len(all))
	}
}

func TestNextAssigneeAndIncrement(t *testing.T) {
	f := newFixture(t, 2)
	h := newChoreHandler(f)
	c := createChoreVia(t, f, h, map[string]any{"name": "Dishes", "frequency": "daily"})

	rec := serve(t, "POST /api/rpc/increment_fairness", h.IncrementFairness, f.members[0].ID, "POST", "/api/rpc/increment_fairness",
		map[string]any{"chore_id": c.ID, "user_id": f.members[0].ID})
	wantStatus(t, rec, http.StatusNoContent)

	rec = serve(t, "POST /api/rpc/next_assignee", h.NextAssignee, f.members[0].ID, "POST", "/api/rpc/next_assignee",
		map[string]any{"chore_id": c.ID, "due_date": "2025-03-10"})
	wantStatus(t, rec, http.StatusOK)
	got := decode[map[string]int64](t, rec)
	if got["user_id"] != f.members[1].ID {
		t.Errorf("next assignee = %d, want the member with fewer completions (%d)", got["user_id"], f.members[1].ID)
	}

	rec = serve(t, "POST /api/rpc/next_assignee", h.NextAssignee, f.members[0].ID, "POST", "/api/rpc/next_assignee",
		map[string]any{"chore_id": c.ID, "due_date": "tomorrow"})
	wantStatus(t, rec, http.StatusBadRequest)
}
