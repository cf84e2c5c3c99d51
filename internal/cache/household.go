package cache

import (
	"context"
	"log/slog"

	"github.com/dukerupert/chorewheel/internal/model"
)

// HouseholdAPI is the part of the service HouseholdCache uses.
type HouseholdAPI interface {
	CreateHousehold(ctx context.Context, name string) (*model.Household, error)
	GetHousehold(ctx context.Context, id int64) (*model.Household, error)
	ListMembers(ctx context.Context, householdID int64) ([]model.HouseholdMember, error)
	VerifyInviteCode(ctx context.Context, code string) (int64, error)
	JoinHousehold(ctx context.Context, inviteCode string) (*model.Household, *model.HouseholdMember, error)
	LeaveHousehold(ctx context.Context, householdID int64) error
}

type householdSnapshot struct {
	Household *model.Household        `json:"household"`
	Members   []model.HouseholdMember `json:"members"`
}

// HouseholdCache holds the current household and its members.
type HouseholdCache struct {
	base
	api       HouseholdAPI
	household *model.Household
	members   []model.HouseholdMember
}

func NewHouseholdCache(api HouseholdAPI, mirror *Mirror, logger *slog.Logger) *HouseholdCache {
	return &HouseholdCache{base: newBase(mirror, logger), api: api}
}

// Restore loads the last household from the mirror.
func (c *HouseholdCache) Restore() error {
	var snap householdSnapshot
	if _, err := c.mirror.Load(&snap); err != nil {
		return c.fail("restore household", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.household = snap.Household
	c.members = snap.Members
	return nil
}

// Create makes a new household owned by the caller. The service picks the invite code.
func (c *HouseholdCache) Create(ctx context.Context, name string) (*model.Household, error) {
	h, err := c.api.CreateHousehold(ctx, name)
	if err != nil {
		return nil, c.fail("create household", err, "name", name)
	}
	if err := c.Fetch(ctx, h.ID); err != nil {
		return nil, err
	}
	return h, nil
}

// Join checks the invite code, joins its household and makes it current.
func (c *HouseholdCache) Join(ctx context.Context, code string) (*model.Household, error) {
	id, err := c.api.VerifyInviteCode(ctx, code)
	if err != nil {
		return nil, c.fail("verify invite code", err)
	}
	if id == 0 {
		return nil, c.fail("verify invite code", ErrInvalidInviteCode)
	}
	h, _, err := c.api.JoinHousehold(ctx, code)
	if err != nil {
		return nil, c.fail("join household", err, "household_id", id)
	}
	if err := c.Fetch(ctx, h.ID); err != nil {
		return nil, err
	}
	return h, nil
}

// Fetch loads a household and its members and makes it current.
func (c *HouseholdCache) Fetch(ctx context.Context, householdID int64) error {
	h, err := c.api.GetHousehold(ctx, householdID)
	if err != nil {
		return c.fail("fetch household", err, "household_id", householdID)
	}
	members, err := c.api.ListMembers(ctx, householdID)
	if err != nil {
		return c.fail("fetch members", err, "household_id", householdID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.household = h
	c.members = members
	c.err = ""
	c.persist(householdSnapshot{Household: h, Members: members})
	return nil
}

// Leave removes the caller from the current household.
func (c *HouseholdCache) Leave(ctx context.Context) error {
	id := c.ID()
	if id == 0 {
		return c.fail("leave household", ErrNoHousehold)
	}
	if err := c.api.LeaveHousehold(ctx, id); err != nil {
		return c.fail("leave household", err, "household_id", id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.household = nil
	c.members = nil
	c.err = ""
	c.persist(householdSnapshot{})
	return nil
}

// ID returns the current household id, 0 when none.
func (c *HouseholdCache) ID() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.household == nil {
		return 0
	}
	return c.household.ID
}

func (c *HouseholdCache) Household() *model.Household {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.household == nil {
		return nil
	}
	h := *c.household
	return &h
}

func (c *HouseholdCache) Members() []model.HouseholdMember {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.HouseholdMember(nil), c.members...)
}

// MemberIDs returns member user ids in join order.
func (c *HouseholdCache) MemberIDs() []int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]int64, 0, len(c.members))
	for _, m := range c.members {
		ids = append(ids, m.UserID)
	}
	return ids
}

func (c *HouseholdCache) IsAdmin(userID int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, m := range c.members {
		if m.UserID == userID {
			return m.Role == model.RoleAdmin
		}
	}
	return false
}

// DisplayName returns the member's name, or "" for non-members.
func (c *HouseholdCache) DisplayName(userID int64) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, m := range c.members {
		if m.UserID == userID {
			return m.DisplayName
		}
	}
	return ""
}
