package cache

import (
	"context"
	"log/slog"

	"github.com/dukerupert/chorewheel/internal/model"
	"github.com/dukerupert/chorewheel/internal/remote"
)

// NudgeAPI is the part of the service NudgeCache uses.
type NudgeAPI interface {
	ListNudges(ctx context.Context, householdID int64) ([]model.Nudge, error)
	SendNudge(ctx context.Context, in remote.NudgeInput) (*model.Nudge, error)
	MarkNudgeRead(ctx context.Context, id int64) (*model.Nudge, error)
}

type nudgeSnapshot struct {
	HouseholdID int64         `json:"household_id"`
	Nudges      []model.Nudge `json:"nudges"`
}

// NudgeCache holds the nudges the signed-in user sent or received in a household.
type NudgeCache struct {
	base
	api         NudgeAPI
	me          Identity
	householdID int64
	nudges      []model.Nudge
}

func NewNudgeCache(api NudgeAPI, me Identity, mirror *Mirror, logger *slog.Logger) *NudgeCache {
	return &NudgeCache{base: newBase(mirror, logger), api: api, me: me}
}

func (c *NudgeCache) Restore() error {
	var snap nudgeSnapshot
	if _, err := c.mirror.Load(&snap); err != nil {
		return c.fail("restore nudges", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.householdID = snap.HouseholdID
	c.nudges = snap.Nudges
	return nil
}

func (c *NudgeCache) save() {
	c.persist(nudgeSnapshot{HouseholdID: c.householdID, Nudges: c.nudges})
}

func (c *NudgeCache) Fetch(ctx context.Context, householdID int64) error {
	nudges, err := c.api.ListNudges(ctx, householdID)
	if err != nil {
		return c.fail("fetch nudges", err, "household_id", householdID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.householdID = householdID
	c.nudges = nudges
	c.err = ""
	c.save()
	return nil
}

// Send nudges another member. The service pushes it to their devices.
func (c *NudgeCache) Send(ctx context.Context, householdID, toUser int64, assignmentID *int64, message string) (*model.Nudge, error) {
	n, err := c.api.SendNudge(ctx, remote.NudgeInput{
		HouseholdID:  householdID,
		ToUser:       toUser,
		AssignmentID: assignmentID,
		Message:      message,
	})
	if err != nil {
		return nil, c.fail("send nudge", err, "to_user", toUser)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.householdID == householdID {
		c.nudges = append([]model.Nudge{*n}, c.nudges...)
	}
	c.err = ""
	c.save()
	return n, nil
}

func (c *NudgeCache) MarkRead(ctx context.Context, id int64) error {
	n, err := c.api.MarkNudgeRead(ctx, id)
	if err != nil {
		return c.fail("mark nudge read", err, "nudge_id", id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.nudges {
		if c.nudges[i].ID == n.ID {
			c.nudges[i] = *n
		}
	}
	c.err = ""
	c.save()
	return nil
}

// Inbox returns nudges sent to the signed-in user, newest first.
func (c *NudgeCache) Inbox() []model.Nudge {
	me := c.me.UserID()
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []model.Nudge
	for _, n := range c.nudges {
		if n.ToUser == me {
			out = append(out, n)
		}
	}
	return out
}

func (c *NudgeCache) UnreadCount() int {
	count := 0
	for _, n := range c.Inbox() {
		if n.ReadAt == nil {
			count++
		}
	}
	return count
}
