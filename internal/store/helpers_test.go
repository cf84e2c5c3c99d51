package store

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/dukerupert/chorewheel/internal/database"
	"github.com/dukerupert/chorewheel/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// seedHousehold creates n users and a household they all belong to, in order.
func seedHousehold(t *testing.T, db *sql.DB, n int) (*model.Household, []model.User) {
	t.Helper()
	us := NewUserStore(db)
	hs := NewHouseholdStore(db)

	var users []model.User
	for i := 0; i < n; i++ {
		u, err := us.Create(fmt.Sprintf("user%d@example.com", i), fmt.Sprintf("User %d", i), []byte("hash"))
		if err != nil {
			t.Fatalf("create user: %v", err)
		}
		users = append(users, *u)
	}

	h, err := hs.Create("Test House", users[0].ID)
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	for _, u := range users[1:] {
		if _, err := hs.AddMember(h.ID, u.ID, model.RoleMember); err != nil {
			t.Fatalf("add member: %v", err)
		}
	}
	return h, users
}
