package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	ws "github.com/coder/websocket"
	"go.uber.org/goleak"

	"github.com/dukerupert/chorewheel/internal/auth"
	"github.com/dukerupert/chorewheel/internal/model"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, householdID int64) *Client {
	return NewClient(hub, nil, householdID, 0)
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, 1)
	c2 := mockClient(hub, 2)

	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}
	if got := hub.HouseholdClientCount(1); got != 1 {
		t.Fatalf("expected 1 client in household 1, got %d", got)
	}

	hub.Unregister(c1)
	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", got)
	}

	hub.Unregister(c2)
	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestDoubleUnregister(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, 1)
	hub.Register(c)
	hub.Unregister(c)
	// Should not panic
	hub.Unregister(c)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestBroadcastScopedToHousehold(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, 1)
	c2 := mockClient(hub, 1)
	other := mockClient(hub, 2)
	hub.Register(c1)
	hub.Register(c2)
	hub.Register(other)

	hub.Broadcast(NewMessage(1, "assignment", "completed", 42, map[string]any{"chore_id": float64(3)}))

	for _, c := range []*Client{c1, c2} {
		select {
		case data := <-c.send:
			var got Message
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.Type != "assignment_completed" {
				t.Errorf("expected type assignment_completed, got %s", got.Type)
			}
			if got.HouseholdID != 1 {
				t.Errorf("expected household 1, got %d", got.HouseholdID)
			}
			if got.ID != 42 {
				t.Errorf("expected id 42, got %d", got.ID)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for message")
		}
	}

	select {
	case <-other.send:
		t.Error("client of another household received the message")
	default:
	}

	hub.Unregister(c1)
	hub.Unregister(c2)
	hub.Unregister(other)
}

func TestBroadcastEmptyHub(t *testing.T) {
	hub := NewHub(slog.Default())
	// Should not panic
	hub.Broadcast(NewMessage(1, "chore", "created", 1, nil))
}

func TestBroadcastFullBuffer(t *testing.T) {
	hub := NewHub(slog.Default())

	c := mockClient(hub, 1)
	hub.Register(c)

	for i := 0; i < sendBufferSize; i++ {
		hub.Broadcast(NewMessage(1, "test", "fill", int64(i), nil))
	}

	// This should drop the message, not panic or block
	hub.Broadcast(NewMessage(1, "test", "dropped", 999, nil))

	count := 0
	for {
		select {
		case <-c.send:
			count++
		default:
			goto done
		}
	}
done:
	if count != sendBufferSize {
		t.Errorf("expected %d messages, got %d", sendBufferSize, count)
	}

	hub.Unregister(c)
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage(7, "expense", "updated", 5, nil)
	if msg.Type != "expense_updated" {
		t.Errorf("expected type expense_updated, got %s", msg.Type)
	}
	if msg.HouseholdID != 7 {
		t.Errorf("expected household 7, got %d", msg.HouseholdID)
	}
	if msg.Entity != "expense" || msg.Action != "updated" || msg.ID != 5 {
		t.Errorf("unexpected message %+v", msg)
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(household int64) {
			defer wg.Done()
			c := mockClient(hub, household)
			hub.Register(c)
			hub.Broadcast(NewMessage(household, "test", "concurrent", 0, nil))
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}(int64(i % 3))
	}

	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}

type stubMembers map[int64][]int64

func (s stubMembers) GetMember(householdID, userID int64) (*model.HouseholdMember, error) {
	for _, id := range s[householdID] {
		if id == userID {
			return &model.HouseholdMember{HouseholdID: householdID, UserID: userID, Role: model.RoleMember}, nil
		}
	}
	return nil, nil
}

// withUser stands in for the auth middleware.
func withUser(userID int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(auth.WithAuth(r.Context(), auth.AuthContext{UserID: userID})))
	})
}

func TestHandleWebSocketRejectsNonMember(t *testing.T) {
	hub := NewHub(slog.Default())
	h := withUser(5, HandleWebSocket(hub, stubMembers{1: {4}}, slog.Default()))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/ws?household_id=1", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/ws", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleWebSocketDeliversAndCleansUp(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hub := NewHub(slog.Default())
	srv := httptest.NewServer(withUser(4, HandleWebSocket(hub, stubMembers{1: {4}}, slog.Default())))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := ws.Dial(ctx, "ws"+srv.URL[len("http"):]+"/ws?household_id=1", &ws.DialOptions{HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.HouseholdClientCount(1) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Broadcast(NewMessage(1, "nudge", "created", 9, nil))

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got Message
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != "nudge_created" || got.ID != 9 {
		t.Errorf("got %+v", got)
	}

	conn.Close(ws.StatusNormalClosure, "")
	for hub.ClientCount() != 0 {
		if time.Now().After(deadline.Add(2 * time.Second)) {
			t.Fatal("client never unregistered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	srv.Close()
}

func TestDisconnectUser(t *testing.T) {
	hub := NewHub(slog.Default())
	alice := NewClient(hub, nil, 1, 10)
	aliceOther := NewClient(hub, nil, 2, 10)
	bob := NewClient(hub, nil, 1, 11)
	for _, c := range []*Client{alice, aliceOther, bob} {
		hub.Register(c)
	}

	if n := hub.Disconnect(1, 10); n != 1 {
		t.Fatalf("Disconnect = %d, want 1", n)
	}
	if _, ok := <-alice.send; ok {
		t.Error("alice's send channel still open")
	}
	if got := hub.HouseholdClientCount(1); got != 1 {
		t.Errorf("household 1 clients = %d, want 1", got)
	}
	if got := hub.HouseholdClientCount(2); got != 1 {
		t.Errorf("household 2 clients = %d, want 1", got)
	}

	// Run's deferred Unregister after a disconnect must not double-close.
	hub.Unregister(alice)
	if n := hub.Disconnect(1, 10); n != 0 {
		t.Errorf("second Disconnect = %d, want 0", n)
	}
}
