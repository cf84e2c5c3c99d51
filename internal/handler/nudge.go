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

const maxNudgeLength = 280

// NudgeNotifier delivers a nudge to the recipient's devices.
type NudgeNotifier interface {
	NotifyNudge(nudge *model.Nudge, fromName string) int
}

type NudgeHandler struct {
	membership
	nudgeStore *store.NudgeStore
	choreStore *store.ChoreStore
	notifier   NudgeNotifier
	now        func() time.Time
}

// NewNudgeHandler creates the nudge endpoints. notifier may be nil when push is not configured.
func NewNudgeHandler(ns *store.NudgeStore, cs *store.ChoreStore, hs *store.HouseholdStore, notifier NudgeNotifier, hub *websocket.Hub, logger *slog.Logger) *NudgeHandler {
	return &NudgeHandler{
		membership: membership{households: hs, hub: hub, logger: logger},
		nudgeStore: ns,
		choreStore: cs,
		notifier:   notifier,
		now:        time.Now,
	}
}

// List handles GET /api/nudges?household_id=
func (h *NudgeHandler) List(w http.ResponseWriter, r *http.Request) {
	householdID, err := parseInt64Query(r, "household_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid household_id")
		return
	}
	if h.requireMember(w, r, householdID) == nil {
		return
	}

	nudges, err := h.nudgeStore.ListForUser(householdID, auth.UserID(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list nudges")
		return
	}
	if nudges == nil {
		nudges = []model.Nudge{}
	}
	writeJSON(w, http.StatusOK, nudges)
}

type nudgeRequest struct {
	HouseholdID  int64  `json:"household_id"`
	ToUser       int64  `json:"to_user"`
	AssignmentID *int64 `json:"assignment_id"`
	Message      string `json:"message"`
}

// Create handles POST /api/nudges
func (h *NudgeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req nudgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	sender := h.requireMember(w, r, req.HouseholdID)
	if sender == nil {
		return
	}

	req.Message = strings.TrimSpace(req.Message)
	if len(req.Message) > maxNudgeLength {
		writeError(w, http.StatusBadRequest, "message is too long")
		return
	}
	if req.ToUser == sender.UserID {
		writeError(w, http.StatusBadRequest, "cannot nudge yourself")
		return
	}
	ok, err := h.isMember(req.HouseholdID, req.ToUser)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check membership")
		return
	}
	if !ok {
		writeError(w, http.StatusBadRequest, "to_user is not a household member")
		return
	}
	if req.AssignmentID != nil {
		hid, err := h.choreStore.HouseholdIDForAssignment(*req.AssignmentID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to get assignment")
			return
		}
		if hid != req.HouseholdID {
			writeError(w, http.StatusBadRequest, "assignment not found in household")
			return
		}
	}

	nudge, err := h.nudgeStore.Create(req.HouseholdID, sender.UserID, req.ToUser, req.AssignmentID, req.Message)
	if err != nil {
		h.logger.Error("create nudge", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to send nudge")
		return
	}

	if h.notifier != nil {
		h.notifier.NotifyNudge(nudge, sender.DisplayName)
	}
	h.broadcast(websocket.NewMessage(nudge.HouseholdID, "nudge", "created", nudge.ID, map[string]any{"to_user": nudge.ToUser}))
	writeJSON(w, http.StatusCreated, nudge)
}

// MarkRead handles POST /api/nudges/{id}/read. Only the recipient may mark a nudge read.
func (h *NudgeHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	nudge, err := h.nudgeStore.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get nudge")
		return
	}
	if nudge == nil {
		writeError(w, http.StatusNotFound, "nudge not found")
		return
	}
	if nudge.ToUser != auth.UserID(r.Context()) {
		writeError(w, http.StatusForbidden, "only the recipient can mark a nudge read")
		return
	}

	updated, err := h.nudgeStore.MarkRead(id, h.now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to mark nudge read")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
