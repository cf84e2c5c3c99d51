package handler

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/dukerupert/chorewheel/internal/model"
)

func newExpenseHandler(f *fixture) *ExpenseHandler {
	h := NewExpenseHandler(f.expenses, f.households, nil, f.logger)
	h.now = func() time.Time { return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC) }
	return h
}

func TestExpenseCreateValidatesSplits(t *testing.T) {
	f := newFixture(t, 2)
	h := newExpenseHandler(f)
	alice, bob := f.members[0].ID, f.members[1].ID

	tests := []struct {
		name   string
		splits []model.ExpenseSplit
	}{
		{"no splits", nil},
		{"sum mismatch", []model.ExpenseSplit{{UserID: alice, AmountCents: 500}, {UserID: bob, AmountCents: 400}}},
		{"outsider", []model.ExpenseSplit{{UserID: alice, AmountCents: 500}, {UserID: f.outsider.ID, AmountCents: 500}}},
		{"duplicate user", []model.ExpenseSplit{{UserID: alice, AmountCents: 500}, {UserID: alice, AmountCents: 500}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := model.Expense{HouseholdID: f.household.ID, Description: "Groceries", AmountCents: 1000, Splits: tt.splits}
			rec := serve(t, "POST /api/expenses", h.Create, alice, "POST", "/api/expenses", body)
			wantStatus(t, rec, http.StatusBadRequest)
		})
	}
}

func TestExpenseLifecycle(t *testing.T) {
	f := newFixture(t, 2)
	h := newExpenseHandler(f)
	alice, bob := f.members[0].ID, f.members[1].ID

	body := model.Expense{
		HouseholdID: f.household.ID,
		Description: "Groceries",
		AmountCents: 1001,
		Category:    "food",
		Splits:      []model.ExpenseSplit{{UserID: alice, AmountCents: 501}, {UserID: bob, AmountCents: 500}},
	}
	rec := serve(t, "POST /api/expenses", h.Create, alice, "POST", "/api/expenses", body)
	wantStatus(t, rec, http.StatusCreated)
	e := decode[model.Expense](t, rec)

	if e.PaidBy != alice {
		t.Errorf("paid_by = %d, want caller %d", e.PaidBy, alice)
	}
	if e.SpentOn != "2025-03-10" {
		t.Errorf("spent_on = %q, want today", e.SpentOn)
	}
	var bobSplit model.ExpenseSplit
	for _, sp := range e.Splits {
		if sp.UserID == alice && !sp.Settled {
			t.Error("payer's own split should be settled")
		}
		if sp.UserID == bob {
			bobSplit = sp
		}
	}
	if bobSplit.Settled {
		t.Fatal("bob's split should start unsettled")
	}

	rec = serve(t, "POST /api/expenses/splits/{id}/settle", h.SettleSplit, bob, "POST",
		fmt.Sprintf("/api/expenses/splits/%d/settle", bobSplit.ID), nil)
	wantStatus(t, rec, http.StatusOK)
	settled := decode[model.Expense](t, rec)
	for _, sp := range settled.Splits {
		if !sp.Settled {
			t.Errorf("split %d still unsettled", sp.ID)
		}
	}

	rec = serve(t, "GET /api/expenses", h.List, bob, "GET", fmt.Sprintf("/api/expenses?household_id=%d", f.household.ID), nil)
	wantStatus(t, rec, http.StatusOK)
	if got := decode[[]model.Expense](t, rec); len(got) != 1 {
		t.Fatalf("list = %d expenses, want 1", len(got))
	}

	rec = serve(t, "DELETE /api/expenses/{id}", h.Delete, f.outsider.ID, "DELETE", fmt.Sprintf("/api/expenses/%d", e.ID), nil)
	wantStatus(t, rec, http.StatusForbidden)

	rec = serve(t, "DELETE /api/expenses/{id}", h.Delete, bob, "DELETE", fmt.Sprintf("/api/expenses/%d", e.ID), nil)
	wantStatus(t, rec, http.StatusNoContent)

	rec = serve(t, "DELETE /api/expenses/{id}", h.Delete, bob, "DELETE", fmt.Sprintf("/api/expenses/%d", e.ID), nil)
	wantStatus(t, rec, http.StatusNotFound)
}
