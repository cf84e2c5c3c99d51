package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/chorewheel/internal/auth"
	"github.com/dukerupert/chorewheel/internal/model"
	"github.com/dukerupert/chorewheel/internal/store"
	"github.com/dukerupert/chorewheel/internal/websocket"
)

type HouseholdHandler struct {
	membership
	householdStore *store.HouseholdStore
}

func NewHouseholdHandler(hs *store.HouseholdStore, hub *websocket.Hub, logger *slog.Logger) *HouseholdHandler {
	return &HouseholdHandler{
		membership:     membership{households: hs, hub: hub, logger: logger},
		householdStore: hs,
	}
}

// List handles GET /api/households
func (h *HouseholdHandler) List(w http.ResponseWriter, r *http.Request) {
	households, err := h.householdStore.ListHouseholdsForUser(auth.UserID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list households")
		return
	}
	if households == nil {
		households = []model.Household{}
	}
	writeJSON(w, http.StatusOK, households)
}

// Create handles POST /api/households. The caller becomes its admin and the
// household is seeded with inactive starter chores.
func (h *HouseholdHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	userID := auth.UserID(r.Context())
	household, err := h.householdStore.Create(req.Name, userID)
	if err != nil {
		h.logger.Error("create household", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create household")
		return
	}
	if err := h.householdStore.SeedDefaults(household.ID, userID); err != nil {
		h.logger.Warn("seed household defaults", "household_id", household.ID, "error", err)
	}

	writeJSON(w, http.StatusCreated, household)
}

// Get handles GET /api/households/{id}
func (h *HouseholdHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if h.requireMember(w, r, id) == nil {
		return
	}

	household, err := h.householdStore.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get household")
		return
	}
	if household == nil {
		writeError(w, http.StatusNotFound, "household not found")
		return
	}
	writeJSON(w, http.StatusOK, household)
}

// Members handles GET /api/households/{id}/members
func (h *HouseholdHandler) Members(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if h.requireMember(w, r, id) == nil {
		return
	}

	members, err := h.householdStore.ListMembers(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list members")
		return
	}
	if members == nil {
		members = []model.HouseholdMember{}
	}
	writeJSON(w, http.StatusOK, members)
}

// Join handles POST /api/households/join
func (h *HouseholdHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InviteCode string `json:"invite_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	household, err := h.householdStore.VerifyInviteCode(req.InviteCode)
	if err != nil {
		h.logger.Error("verify invite code", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to verify invite code")
		return
	}
	if household == nil {
		writeError(w, http.StatusNotFound, "invalid invite code")
		return
	}

	userID := auth.UserID(r.Context())
	member, err := h.householdStore.AddMember(household.ID, userID, model.RoleMember)
	if err != nil {
		h.logger.Error("add member", "household_id", household.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to join household")
		return
	}

	h.broadcast(websocket.NewMessage(household.ID, "member", "joined", userID, nil))
	writeJSON(w, http.StatusOK, map[string]any{"household": household, "member": member})
}

// Leave handles DELETE /api/households/{id}/members/me
func (h *HouseholdHandler) Leave(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if h.requireMember(w, r, id) == nil {
		return
	}

	userID := auth.UserID(r.Context())
	if err := h.householdStore.RemoveMember(id, userID); err != nil {
		h.logger.Error("remove member", "household_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to leave household")
		return
	}

	h.broadcast(websocket.NewMessage(id, "member", "left", userID, nil))
	if h.hub != nil {
		h.hub.Disconnect(id, userID)
	}
	w.WriteHeader(http.StatusNoContent)
}

// VerifyInviteCode handles POST /api/rpc/verify_invite_code. It answers with
// the matching household id, or null when the code is unknown.
func (h *HouseholdHandler) VerifyInviteCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	household, err := h.householdStore.VerifyInviteCode(req.Code)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to verify invite code")
		return
	}
	var id *int64
	if household != nil {
		id = &household.ID
	}
	writeJSON(w, http.StatusOK, map[string]*int64{"household_id": id})
}
