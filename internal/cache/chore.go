package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dukerupert/chorewheel/internal/chore"
	"github.com/dukerupert/chorewheel/internal/model"
	"github.com/dukerupert/chorewheel/internal/observability"
	"github.com/dukerupert/chorewheel/internal/remote"
)

// ChoreAPI is the part of the service ChoreCache uses.
type ChoreAPI interface {
	ListChores(ctx context.Context, householdID int64, activeOnly bool) ([]model.ChoreTemplate, error)
	CreateChore(ctx context.Context, in remote.ChoreInput) (*model.ChoreTemplate, error)
	UpdateChore(ctx context.Context, id int64, in remote.ChoreInput) (*model.ChoreTemplate, error)
	ListAssignments(ctx context.Context, q remote.AssignmentQuery) ([]model.Assignment, error)
	InsertAssignments(ctx context.Context, rows []model.NewAssignment) ([]model.Assignment, error)
	LogActivity(ctx context.Context, choreID int64) (*model.Assignment, error)
	CompleteAssignment(ctx context.Context, id, completedBy int64) (*model.Assignment, error)
	NextAssignee(ctx context.Context, choreID int64, dueDate string) (int64, error)
	IncrementFairness(ctx context.Context, choreID, userID int64) error
}

type choreSnapshot struct {
	HouseholdID int64                 `json:"household_id"`
	Chores      []model.ChoreTemplate `json:"chores"`
	Assignments []model.Assignment    `json:"assignments"`
}

// ChoreCache holds the chore templates and assignments of one household.
type ChoreCache struct {
	base
	api         ChoreAPI
	me          Identity
	now         func() time.Time
	householdID int64
	chores      []model.ChoreTemplate
	assignments []model.Assignment
}

func NewChoreCache(api ChoreAPI, me Identity, mirror *Mirror, logger *slog.Logger) *ChoreCache {
	return &ChoreCache{base: newBase(mirror, logger), api: api, me: me, now: time.Now}
}

// Restore loads the last snapshot from the mirror.
func (c *ChoreCache) Restore() error {
	var snap choreSnapshot
	if _, err := c.mirror.Load(&snap); err != nil {
		return c.fail("restore chores", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.householdID = snap.HouseholdID
	c.chores = snap.Chores
	c.assignments = snap.Assignments
	return nil
}

// save mirrors the current state. Callers hold mu.
func (c *ChoreCache) save() {
	c.persist(choreSnapshot{HouseholdID: c.householdID, Chores: c.chores, Assignments: c.assignments})
}

// switchHousehold drops rows of another household. Callers hold mu.
func (c *ChoreCache) switchHousehold(householdID int64) {
	if c.householdID != householdID {
		c.householdID = householdID
		c.chores = nil
		c.assignments = nil
	}
}

// FetchChores replaces the cached templates, active and disabled, of a household.
func (c *ChoreCache) FetchChores(ctx context.Context, householdID int64) error {
	chores, err := c.api.ListChores(ctx, householdID, false)
	if err != nil {
		return c.fail("fetch chores", err, "household_id", householdID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.switchHousehold(householdID)
	c.chores = chores
	c.err = ""
	c.save()
	return nil
}

// FetchAssignments replaces the cached assignments of a household.
func (c *ChoreCache) FetchAssignments(ctx context.Context, householdID int64) error {
	assignments, err := c.api.ListAssignments(ctx, remote.AssignmentQuery{HouseholdID: householdID})
	if err != nil {
		return c.fail("fetch assignments", err, "household_id", householdID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.switchHousehold(householdID)
	c.assignments = assignments
	c.err = ""
	c.save()
	return nil
}

func (c *ChoreCache) CreateChore(ctx context.Context, in remote.ChoreInput) (*model.ChoreTemplate, error) {
	t, err := c.api.CreateChore(ctx, in)
	if err != nil {
		return nil, c.fail("create chore", err, "name", in.Name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.switchHousehold(t.HouseholdID)
	c.chores = append(c.chores, *t)
	c.err = ""
	c.save()
	return t, nil
}

func (c *ChoreCache) UpdateChore(ctx context.Context, id int64, in remote.ChoreInput) (*model.ChoreTemplate, error) {
	t, err := c.api.UpdateChore(ctx, id, in)
	if err != nil {
		return nil, c.fail("update chore", err, "chore_id", id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.replaceChore(*t)
	c.err = ""
	c.save()
	return t, nil
}

// DisableChore soft-deletes a cached chore so the generator skips it.
func (c *ChoreCache) DisableChore(ctx context.Context, id int64) error {
	t, ok := c.Chore(id)
	if !ok {
		return c.fail("disable chore", ErrUnknownChore, "chore_id", id)
	}
	in := remote.InputFor(t)
	inactive := false
	in.Active = &inactive
	_, err := c.UpdateChore(ctx, id, in)
	return err
}

func (c *ChoreCache) replaceChore(t model.ChoreTemplate) {
	for i := range c.chores {
		if c.chores[i].ID == t.ID {
			c.chores[i] = t
			return
		}
	}
	if t.HouseholdID == c.householdID {
		c.chores = append(c.chores, t)
	}
}

func (c *ChoreCache) replaceAssignment(a model.Assignment) {
	for i := range c.assignments {
		if c.assignments[i].ID == a.ID {
			c.assignments[i] = a
			return
		}
	}
	c.assignments = append(c.assignments, a)
}

// CompleteAssignment marks an assignment done by the signed-in user and
// credits them in the fairness counters.
func (c *ChoreCache) CompleteAssignment(ctx context.Context, id int64) (*model.Assignment, error) {
	a, err := c.api.CompleteAssignment(ctx, id, 0)
	if err != nil {
		return nil, c.fail("complete assignment", err, "assignment_id", id)
	}

	c.mu.Lock()
	c.replaceAssignment(*a)
	c.save()
	c.mu.Unlock()

	completer := a.AssignedTo
	if a.CompletedBy != nil {
		completer = *a.CompletedBy
	}
	if err := c.api.IncrementFairness(ctx, a.ChoreID, completer); err != nil {
		return a, c.fail("increment fairness", err, "chore_id", a.ChoreID)
	}

	c.mu.Lock()
	c.err = ""
	c.mu.Unlock()
	return a, nil
}

// LogActivity records an unscheduled completion of a chore by the signed-in user today.
func (c *ChoreCache) LogActivity(ctx context.Context, choreID int64) (*model.Assignment, error) {
	a, err := c.api.LogActivity(ctx, choreID)
	if err != nil {
		return nil, c.fail("log activity", err, "chore_id", choreID)
	}

	c.mu.Lock()
	c.replaceAssignment(*a)
	c.save()
	c.mu.Unlock()

	if err := c.api.IncrementFairness(ctx, choreID, a.AssignedTo); err != nil {
		return a, c.fail("increment fairness", err, "chore_id", choreID)
	}

	c.mu.Lock()
	c.err = ""
	c.mu.Unlock()
	return a, nil
}

// MaxGenerateDays bounds one generator run. Each due chore-day costs a remote
// assignee lookup.
const MaxGenerateDays = 366

// GenerateAssignments makes sure every active chore of the household has one
// assignment on each day in [start, end] it is due. When the cache holds
// another household it is refetched first. Assignees come from the service one
// chore-day at a time; the new rows are inserted in a single batch and the
// cache is then refetched. Any remote failure aborts the run before anything
// is inserted. It returns the number of rows the service actually inserted,
// which is lower than the rows sent when another run got there first.
func (c *ChoreCache) GenerateAssignments(ctx context.Context, householdID int64, start, end time.Time) (int, error) {
	n, err := c.generate(ctx, householdID, start, end)
	observability.RecordGeneratorRun(err, n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (c *ChoreCache) generate(ctx context.Context, householdID int64, start, end time.Time) (int, error) {
	switch n := chore.DayCount(start, end); {
	case n == 0:
		return 0, c.fail("generate assignments", fmt.Errorf("%w: %s > %s", ErrInvalidRange, chore.DayKey(start), chore.DayKey(end)))
	case n > MaxGenerateDays:
		return 0, c.fail("generate assignments", fmt.Errorf("%w: %d days, at most %d", ErrRangeTooLong, n, MaxGenerateDays))
	}
	if householdID <= 0 {
		return 0, c.fail("generate assignments", ErrNoHousehold)
	}

	c.mu.RLock()
	current := c.householdID == householdID
	c.mu.RUnlock()
	if !current {
		if err := c.FetchChores(ctx, householdID); err != nil {
			return 0, err
		}
		if err := c.FetchAssignments(ctx, householdID); err != nil {
			return 0, err
		}
	}

	c.mu.RLock()
	var active []model.ChoreTemplate
	for _, t := range c.chores {
		if t.Active {
			active = append(active, t)
		}
	}
	existing := make(map[string]bool, len(c.assignments))
	for _, a := range c.assignments {
		existing[assignmentKey(a.ChoreID, a.DueDate)] = true
	}
	c.mu.RUnlock()

	var rows []model.NewAssignment
	for _, day := range chore.Days(start, end) {
		key := chore.DayKey(day)
		for _, t := range active {
			if !chore.IsDueOn(t, day) || existing[assignmentKey(t.ID, key)] {
				continue
			}
			userID, err := c.api.NextAssignee(ctx, t.ID, key)
			if err != nil {
				return 0, c.fail("generate assignments", err, "chore_id", t.ID, "due_date", key)
			}
			rows = append(rows, model.NewAssignment{ChoreID: t.ID, AssignedTo: userID, DueDate: key})
		}
	}

	var inserted []model.Assignment
	if len(rows) > 0 {
		var err error
		inserted, err = c.api.InsertAssignments(ctx, rows)
		if err != nil {
			return 0, c.fail("generate assignments", err, "rows", len(rows))
		}
		if len(inserted) < len(rows) {
			c.logger.Info("generator rows already present", "household_id", householdID, "sent", len(rows), "inserted", len(inserted))
		}
	}
	if err := c.FetchAssignments(ctx, householdID); err != nil {
		return 0, err
	}
	return len(inserted), nil
}

func assignmentKey(choreID int64, dueDate string) string {
	return fmt.Sprintf("%d/%s", choreID, dueDate)
}

// Chores returns the cached templates.
func (c *ChoreCache) Chores() []model.ChoreTemplate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.ChoreTemplate(nil), c.chores...)
}

func (c *ChoreCache) Chore(id int64) (model.ChoreTemplate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, t := range c.chores {
		if t.ID == id {
			return t, true
		}
	}
	return model.ChoreTemplate{}, false
}

// Assignments returns the cached assignments.
func (c *ChoreCache) Assignments() []model.Assignment {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.Assignment(nil), c.assignments...)
}

// MyAssignments returns the signed-in user's open assignments, earliest due first.
func (c *ChoreCache) MyAssignments() []model.Assignment {
	me := c.me.UserID()
	return c.filter(func(a model.Assignment) bool {
		return a.AssignedTo == me && !a.Completed()
	})
}

// Overdue returns open assignments due before today.
func (c *ChoreCache) Overdue() []model.Assignment {
	today := c.now()
	return c.filter(func(a model.Assignment) bool {
		return chore.AssignmentStatus(a, today) == chore.StatusOverdue
	})
}

// Today returns every assignment due today, done or not.
func (c *ChoreCache) Today() []model.Assignment {
	today := chore.DayKey(c.now())
	return c.filter(func(a model.Assignment) bool {
		return a.DueDate == today
	})
}

// Leaderboard ranks members by points earned from completed assignments.
func (c *ChoreCache) Leaderboard() []model.LeaderboardEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return chore.Leaderboard(c.assignments, c.chores)
}

func (c *ChoreCache) filter(keep func(model.Assignment) bool) []model.Assignment {
	c.mu.RLock()
	var out []model.Assignment
	for _, a := range c.assignments {
		if keep(a) {
			out = append(out, a)
		}
	}
	c.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DueDate != out[j].DueDate {
			return out[i].DueDate < out[j].DueDate
		}
		return out[i].ID < out[j].ID
	})
	return out
}
