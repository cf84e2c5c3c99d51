package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/chorewheel/internal/auth"
	"github.com/dukerupert/chorewheel/internal/model"
	"github.com/dukerupert/chorewheel/internal/store"
	"github.com/dukerupert/chorewheel/internal/websocket"
)

type ExpenseHandler struct {
	membership
	expenseStore *store.ExpenseStore
	now          func() time.Time
}

func NewExpenseHandler(es *store.ExpenseStore, hs *store.HouseholdStore, hub *websocket.Hub, logger *slog.Logger) *ExpenseHandler {
	return &ExpenseHandler{
		membership:   membership{households: hs, hub: hub, logger: logger},
		expenseStore: es,
		now:          time.Now,
	}
}

// List handles GET /api/expenses?household_id=
func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	householdID, err := parseInt64Query(r, "household_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid household_id")
		return
	}
	if h.requireMember(w, r, householdID) == nil {
		return
	}

	expenses, err := h.expenseStore.List(householdID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list expenses")
		return
	}
	if expenses == nil {
		expenses = []model.Expense{}
	}
	writeJSON(w, http.StatusOK, expenses)
}

// Create handles POST /api/expenses. Splits must add up to the amount and
// name household members only. The payer's own share is stored settled.
func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.Expense
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if h.requireMember(w, r, req.HouseholdID) == nil {
		return
	}

	req.Description = strings.TrimSpace(req.Description)
	if req.Description == "" {
		writeError(w, http.StatusBadRequest, "description is required")
		return
	}
	if req.AmountCents <= 0 {
		writeError(w, http.StatusBadRequest, "amount_cents must be positive")
		return
	}
	if req.SpentOn == "" {
		req.SpentOn = h.now().UTC().Format(model.DateLayout)
	} else if _, err := time.Parse(model.DateLayout, req.SpentOn); err != nil {
		writeError(w, http.StatusBadRequest, "spent_on must be YYYY-MM-DD")
		return
	}
	if req.PaidBy == 0 {
		req.PaidBy = auth.UserID(r.Context())
	}
	if msg := h.validateParticipants(req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	for i := range req.Splits {
		req.Splits[i].Settled = req.Splits[i].UserID == req.PaidBy
	}

	expense, err := h.expenseStore.Create(req)
	if err != nil {
		h.logger.Error("create expense", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create expense")
		return
	}

	h.broadcast(websocket.NewMessage(expense.HouseholdID, "expense", "created", expense.ID, nil))
	writeJSON(w, http.StatusCreated, expense)
}

func (h *ExpenseHandler) validateParticipants(e model.Expense) string {
	ok, err := h.isMember(e.HouseholdID, e.PaidBy)
	if err != nil {
		return "failed to check membership"
	}
	if !ok {
		return "paid_by is not a household member"
	}
	if len(e.Splits) == 0 {
		return "at least one split is required"
	}

	var total int64
	seen := make(map[int64]bool)
	for _, sp := range e.Splits {
		if sp.AmountCents < 0 {
			return "split amounts must not be negative"
		}
		if seen[sp.UserID] {
			return "each member may appear in one split only"
		}
		seen[sp.UserID] = true
		ok, err := h.isMember(e.HouseholdID, sp.UserID)
		if err != nil {
			return "failed to check membership"
		}
		if !ok {
			return "split user is not a household member"
		}
		total += sp.AmountCents
	}
	if total != e.AmountCents {
		return "splits must add up to amount_cents"
	}
	return ""
}

// Delete handles DELETE /api/expenses/{id}
func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	expense, err := h.expenseStore.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get expense")
		return
	}
	if expense == nil {
		writeError(w, http.StatusNotFound, "expense not found")
		return
	}
	if h.requireMember(w, r, expense.HouseholdID) == nil {
		return
	}

	if err := h.expenseStore.Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete expense")
		return
	}

	h.broadcast(websocket.NewMessage(expense.HouseholdID, "expense", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

// SettleSplit handles POST /api/expenses/splits/{id}/settle
func (h *ExpenseHandler) SettleSplit(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	hid, err := h.expenseStore.HouseholdIDForSplit(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get split")
		return
	}
	if hid == 0 {
		writeError(w, http.StatusNotFound, "split not found")
		return
	}
	if h.requireMember(w, r, hid) == nil {
		return
	}

	expense, err := h.expenseStore.SettleSplit(id)
	if err != nil {
		h.logger.Error("settle split", "split_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to settle split")
		return
	}
	if expense == nil {
		writeError(w, http.StatusNotFound, "split not found")
		return
	}

	h.broadcast(websocket.NewMessage(hid, "expense", "updated", expense.ID, map[string]any{"split_id": id}))
	writeJSON(w, http.StatusOK, expense)
}
