package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/chorewheel/internal/auth"
	"github.com/dukerupert/chorewheel/internal/model"
	"github.com/dukerupert/chorewheel/internal/store"
	"github.com/dukerupert/chorewheel/internal/websocket"
)

func parseIDParam(r *http.Request) (int64, error) {
	idStr := r.PathValue("id")
	return strconv.ParseInt(idStr, 10, 64)
}

// parseInt64Query returns 0 when the parameter is absent.
func parseInt64Query(r *http.Request, name string) (int64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// membership guards household-scoped endpoints.
type membership struct {
	households *store.HouseholdStore
	hub        *websocket.Hub
	logger     *slog.Logger
}

func (m membership) broadcast(msg websocket.Message) {
	if m.hub != nil {
		m.hub.Broadcast(msg)
	}
}

// requireMember writes a 403 (or 500) and returns nil unless the caller belongs
// to householdID.
func (m membership) requireMember(w http.ResponseWriter, r *http.Request, householdID int64) *model.HouseholdMember {
	if householdID <= 0 {
		writeError(w, http.StatusBadRequest, "household_id is required")
		return nil
	}
	member, err := m.households.GetMember(householdID, auth.UserID(r.Context()))
	if err != nil {
		m.logger.Error("membership lookup", "household_id", householdID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to check membership")
		return nil
	}
	if member == nil {
		writeError(w, http.StatusForbidden, "not a member of this household")
		return nil
	}
	return member
}

// isMember reports whether userID belongs to householdID.
func (m membership) isMember(householdID, userID int64) (bool, error) {
	member, err := m.households.GetMember(householdID, userID)
	if err != nil {
		return false, err
	}
	return member != nil, nil
}
