package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/chorewheel/internal/auth"
	"github.com/dukerupert/chorewheel/internal/model"
	"github.com/dukerupert/chorewheel/internal/observability"
	"github.com/dukerupert/chorewheel/internal/store"
	"github.com/dukerupert/chorewheel/internal/websocket"
)

type ChoreHandler struct {
	membership
	choreStore    *store.ChoreStore
	fairnessStore *store.FairnessStore
	now           func() time.Time
}

func NewChoreHandler(cs *store.ChoreStore, fs *store.FairnessStore, hs *store.HouseholdStore, hub *websocket.Hub, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{
		membership:    membership{households: hs, hub: hub, logger: logger},
		choreStore:    cs,
		fairnessStore: fs,
		now:           time.Now,
	}
}

type choreRequest struct {
	HouseholdID  int64           `json:"household_id"`
	Name         string          `json:"name"`
	Room         string          `json:"room"`
	Frequency    model.Frequency `json:"frequency"`
	Weekdays     []int           `json:"weekdays"`
	IntervalDays *int            `json:"interval_days"`
	Points       int             `json:"points"`
	Active       *bool           `json:"active"`
}

func (req *choreRequest) validate() string {
	req.Name = strings.TrimSpace(req.Name)
	req.Room = strings.TrimSpace(req.Room)
	if req.Name == "" {
		return "name is required"
	}
	if !req.Frequency.Valid() {
		return "frequency must be daily, weekly, interval or as_needed"
	}
	for _, d := range req.Weekdays {
		if d < 0 || d > 6 {
			return "weekdays must be between 0 (Sunday) and 6 (Saturday)"
		}
	}
	if req.Frequency == model.FrequencyInterval && (req.IntervalDays == nil || *req.IntervalDays <= 0) {
		return "interval_days must be positive for interval chores"
	}
	if req.Points < 0 {
		return "points must not be negative"
	}
	return ""
}

func (req choreRequest) template() model.ChoreTemplate {
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return model.ChoreTemplate{
		HouseholdID:  req.HouseholdID,
		Name:         req.Name,
		Room:         req.Room,
		Frequency:    req.Frequency,
		Weekdays:     req.Weekdays,
		IntervalDays: req.IntervalDays,
		Points:       req.Points,
		Active:       active,
	}
}

// List handles GET /api/chores?household_id=&active=
func (h *ChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	householdID, err := parseInt64Query(r, "household_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid household_id")
		return
	}
	if h.requireMember(w, r, householdID) == nil {
		return
	}

	chores, err := h.choreStore.List(householdID, r.URL.Query().Get("active") == "true")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list chores")
		return
	}
	if chores == nil {
		chores = []model.ChoreTemplate{}
	}
	writeJSON(w, http.StatusOK, chores)
}

// Create handles POST /api/chores
func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req choreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if h.requireMember(w, r, req.HouseholdID) == nil {
		return
	}

	tpl := req.template()
	userID := auth.UserID(r.Context())
	tpl.CreatedBy = &userID

	chore, err := h.choreStore.Create(tpl)
	if err != nil {
		h.logger.Error("create chore", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create chore")
		return
	}

	h.broadcast(websocket.NewMessage(chore.HouseholdID, "chore", "created", chore.ID, nil))
	writeJSON(w, http.StatusCreated, chore)
}

// loadChore resolves the {id} chore and checks the caller's membership.
func (h *ChoreHandler) loadChore(w http.ResponseWriter, r *http.Request) *model.ChoreTemplate {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil
	}
	chore, err := h.choreStore.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get chore")
		return nil
	}
	if chore == nil {
		writeError(w, http.StatusNotFound, "chore not found")
		return nil
	}
	if h.requireMember(w, r, chore.HouseholdID) == nil {
		return nil
	}
	return chore
}

// Update handles PUT /api/chores/{id}. Setting active=false disables the chore.
func (h *ChoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing := h.loadChore(w, r)
	if existing == nil {
		return
	}

	var req choreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if req.Active == nil {
		req.Active = &existing.Active
	}

	chore, err := h.choreStore.Update(existing.ID, req.template())
	if err != nil {
		h.logger.Error("update chore", "chore_id", existing.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update chore")
		return
	}

	h.broadcast(websocket.NewMessage(chore.HouseholdID, "chore", "updated", chore.ID, nil))
	writeJSON(w, http.StatusOK, chore)
}

// Delete handles DELETE /api/chores/{id}. This is a hard delete that removes
// the chore's assignments too; clients normally disable instead.
func (h *ChoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	chore := h.loadChore(w, r)
	if chore == nil {
		return
	}
	if err := h.choreStore.Delete(chore.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete chore")
		return
	}

	h.broadcast(websocket.NewMessage(chore.HouseholdID, "chore", "deleted", chore.ID, nil))
	w.WriteHeader(http.StatusNoContent)
}

// ListAssignments handles GET /api/assignments?household_id=&assigned_to=&due_date=&chore_id=
func (h *ChoreHandler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	var f store.AssignmentFilter
	var err error
	if f.HouseholdID, err = parseInt64Query(r, "household_id"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid household_id")
		return
	}
	if f.AssignedTo, err = parseInt64Query(r, "assigned_to"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid assigned_to")
		return
	}
	if f.ChoreID, err = parseInt64Query(r, "chore_id"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid chore_id")
		return
	}
	f.DueDate = r.URL.Query().Get("due_date")
	if h.requireMember(w, r, f.HouseholdID) == nil {
		return
	}

	assignments, err := h.choreStore.ListAssignments(f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list assignments")
		return
	}
	if assignments == nil {
		assignments = []model.Assignment{}
	}
	writeJSON(w, http.StatusOK, assignments)
}

// InsertAssignments handles POST /api/assignments, a batch insert. Rows whose
// (chore, due_date) already exists are skipped; the response lists the rows
// actually created.
func (h *ChoreHandler) InsertAssignments(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Assignments []model.NewAssignment `json:"assignments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.Assignments) == 0 {
		writeJSON(w, http.StatusCreated, []model.Assignment{})
		return
	}

	callerID := auth.UserID(r.Context())
	households := make(map[int64]int64) // chore id -> household id
	for _, row := range req.Assignments {
		if _, err := time.Parse(model.DateLayout, row.DueDate); err != nil {
			writeError(w, http.StatusBadRequest, "due_date must be YYYY-MM-DD")
			return
		}
		hid, ok := households[row.ChoreID]
		if !ok {
			chore, err := h.choreStore.GetByID(row.ChoreID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to get chore")
				return
			}
			if chore == nil {
				writeError(w, http.StatusBadRequest, "unknown chore_id")
				return
			}
			member, err := h.isMember(chore.HouseholdID, callerID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to check membership")
				return
			}
			if !member {
				writeError(w, http.StatusForbidden, "not a member of this household")
				return
			}
			hid = chore.HouseholdID
			households[row.ChoreID] = hid
		}
		member, err := h.isMember(hid, row.AssignedTo)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to check membership")
			return
		}
		if !member {
			writeError(w, http.StatusBadRequest, "assigned_to is not a household member")
			return
		}
	}

	inserted, err := h.choreStore.InsertAssignments(req.Assignments)
	if err != nil {
		h.logger.Error("insert assignments", "rows", len(req.Assignments), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to insert assignments")
		return
	}
	observability.RecordAssignmentsCreated(len(inserted))

	notified := make(map[int64]bool)
	for _, a := range inserted {
		hid := households[a.ChoreID]
		if !notified[hid] {
			notified[hid] = true
			h.broadcast(websocket.NewMessage(hid, "assignment", "created", 0, map[string]any{"count": len(inserted)}))
		}
	}
	writeJSON(w, http.StatusCreated, inserted)
}

// LogActivity handles POST /api/assignments/log. It records an ad-hoc
// completion by the caller due today. These rows are not deduplicated.
func (h *ChoreHandler) LogActivity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChoreID int64 `json:"chore_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	chore, err := h.choreStore.GetByID(req.ChoreID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get chore")
		return
	}
	if chore == nil {
		writeError(w, http.StatusNotFound, "chore not found")
		return
	}
	if h.requireMember(w, r, chore.HouseholdID) == nil {
		return
	}

	now := h.now().UTC()
	a, err := h.choreStore.LogCompleted(chore.ID, auth.UserID(r.Context()), now.Format(model.DateLayout), now)
	if err != nil {
		h.logger.Error("log activity", "chore_id", chore.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to log activity")
		return
	}

	h.broadcast(websocket.NewMessage(chore.HouseholdID, "assignment", "completed", a.ID, nil))
	writeJSON(w, http.StatusCreated, a)
}

// CompleteAssignment handles PATCH /api/assignments/{id}. completed_by
// defaults to the caller and must be a household member.
func (h *ChoreHandler) CompleteAssignment(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req struct {
		CompletedBy int64 `json:"completed_by"`
	}
	// An empty body means the caller completed it
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	hid, err := h.choreStore.HouseholdIDForAssignment(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get assignment")
		return
	}
	if hid == 0 {
		writeError(w, http.StatusNotFound, "assignment not found")
		return
	}
	if h.requireMember(w, r, hid) == nil {
		return
	}

	completer := auth.UserID(r.Context())
	if req.CompletedBy != 0 && req.CompletedBy != completer {
		member, err := h.isMember(hid, req.CompletedBy)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to check membership")
			return
		}
		if !member {
			writeError(w, http.StatusBadRequest, "completed_by is not a household member")
			return
		}
		completer = req.CompletedBy
	}

	a, err := h.choreStore.Complete(id, completer, h.now())
	if errors.Is(err, store.ErrAlreadyCompleted) {
		writeError(w, http.StatusConflict, "assignment already completed")
		return
	}
	if err != nil {
		h.logger.Error("complete assignment", "assignment_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to complete assignment")
		return
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "assignment not found")
		return
	}

	h.broadcast(websocket.NewMessage(hid, "assignment", "completed", a.ID, map[string]any{"is_bonus": a.IsBonus}))
	writeJSON(w, http.StatusOK, a)
}

// NextAssignee handles POST /api/rpc/next_assignee
func (h *ChoreHandler) NextAssignee(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChoreID int64  `json:"chore_id"`
		DueDate string `json:"due_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if _, err := time.Parse(model.DateLayout, req.DueDate); err != nil {
		writeError(w, http.StatusBadRequest, "due_date must be YYYY-MM-DD")
		return
	}
	chore, err := h.choreStore.GetByID(req.ChoreID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get chore")
		return
	}
	if chore == nil {
		writeError(w, http.StatusNotFound, "chore not found")
		return
	}
	if h.requireMember(w, r, chore.HouseholdID) == nil {
		return
	}

	userID, err := h.fairnessStore.NextAssignee(chore.ID, req.DueDate)
	if errors.Is(err, store.ErrNoMembers) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("next assignee", "chore_id", chore.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to pick assignee")
		return
	}
	observability.RecordNextAssigneeLookup()
	writeJSON(w, http.StatusOK, map[string]int64{"user_id": userID})
}

// IncrementFairness handles POST /api/rpc/increment_fairness
func (h *ChoreHandler) IncrementFairness(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChoreID int64 `json:"chore_id"`
		UserID  int64 `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	chore, err := h.choreStore.GetByID(req.ChoreID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get chore")
		return
	}
	if chore == nil {
		writeError(w, http.StatusNotFound, "chore not found")
		return
	}
	if h.requireMember(w, r, chore.HouseholdID) == nil {
		return
	}
	member, err := h.isMember(chore.HouseholdID, req.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check membership")
		return
	}
	if !member {
		writeError(w, http.StatusBadRequest, "user_id is not a household member")
		return
	}

	if err := h.fairnessStore.Increment(chore.ID, req.UserID); err != nil {
		h.logger.Error("increment fairness", "chore_id", chore.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to increment fairness")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
