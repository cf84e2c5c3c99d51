package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/chorewheel/internal/auth"
	"github.com/dukerupert/chorewheel/internal/model"
)

// MemberLookup resolves a user's membership in a household, nil when absent.
type MemberLookup interface {
	GetMember(householdID, userID int64) (*model.HouseholdMember, error)
}

// HandleWebSocket returns an HTTP handler that upgrades connections to WebSocket
// and runs them as Hub clients of the household named by ?household_id=.
// The caller must be authenticated and a member of that household.
func HandleWebSocket(hub *Hub, members MemberLookup, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		householdID, err := strconv.ParseInt(r.URL.Query().Get("household_id"), 10, 64)
		if err != nil || householdID <= 0 {
			writeError(w, http.StatusBadRequest, "household_id is required")
			return
		}

		userID := auth.UserID(r.Context())
		m, err := members.GetMember(householdID, userID)
		if err != nil {
			logger.Error("websocket membership lookup", "household_id", householdID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if m == nil {
			writeError(w, http.StatusForbidden, "not a member of this household")
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // native clients send no Origin
		})
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}

		client := NewClient(hub, conn, householdID, userID)
		client.Run(r.Context())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
