package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukerupert/chorewheel/internal/auth"
	"github.com/dukerupert/chorewheel/internal/database"
	"github.com/dukerupert/chorewheel/internal/model"
	"github.com/dukerupert/chorewheel/internal/store"
)

type fixture struct {
	households *store.HouseholdStore
	chores     *store.ChoreStore
	fairness   *store.FairnessStore
	expenses   *store.ExpenseStore
	nudges     *store.NudgeStore
	push       *store.PushStore
	users      *store.UserStore
	household  *model.Household
	members    []model.User
	outsider   *model.User
	logger     *slog.Logger
}

// newFixture opens a migrated in-memory database with a household of n members
// and one user who belongs to no household.
func newFixture(t *testing.T, n int) *fixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		households: store.NewHouseholdStore(db),
		chores:     store.NewChoreStore(db),
		fairness:   store.NewFairnessStore(db),
		expenses:   store.NewExpenseStore(db),
		nudges:     store.NewNudgeStore(db),
		push:       store.NewPushStore(db),
		users:      store.NewUserStore(db),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	names := []string{"alice", "bob", "carol", "dave"}
	for i := 0; i < n; i++ {
		u, err := f.users.Create(names[i]+"@example.com", names[i], []byte("hash"))
		if err != nil {
			t.Fatalf("create user: %v", err)
		}
		f.members = append(f.members, *u)
	}
	f.household, err = f.households.Create("Maple Street", f.members[0].ID)
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	for _, u := range f.members[1:] {
		if _, err := f.households.AddMember(f.household.ID, u.ID, model.RoleMember); err != nil {
			t.Fatalf("add member: %v", err)
		}
	}
	f.outsider, err = f.users.Create("eve@example.com", "eve", []byte("hash"))
	if err != nil {
		t.Fatalf("create outsider: %v", err)
	}
	return f
}

// serve routes a single request through a mux holding pattern, as userID.
func serve(t *testing.T, pattern string, h http.HandlerFunc, userID int64, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, r)
	req = req.WithContext(auth.WithAuth(req.Context(), auth.AuthContext{UserID: userID}))

	mux := http.NewServeMux()
	mux.HandleFunc(pattern, h)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func wantStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}
