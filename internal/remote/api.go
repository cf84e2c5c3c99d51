package remote

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dukerupert/chorewheel/internal/model"
)

// Auth

func (c *Client) SignUp(ctx context.Context, email, password, displayName string) (*Session, error) {
	in := map[string]string{"email": email, "password": password, "display_name": displayName}
	var s Session
	if err := c.do(ctx, "signup", http.MethodPost, "/api/auth/signup", nil, in, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	in := map[string]string{"email": email, "password": password}
	var s Session
	if err := c.do(ctx, "signin", http.MethodPost, "/api/auth/signin", nil, in, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Me returns the profile of the token's owner.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var u model.User
	if err := c.do(ctx, "me", http.MethodGet, "/api/auth/me", nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Households

func (c *Client) ListHouseholds(ctx context.Context) ([]model.Household, error) {
	var out []model.Household
	err := c.do(ctx, "list_households", http.MethodGet, "/api/households", nil, nil, &out)
	return out, err
}

func (c *Client) CreateHousehold(ctx context.Context, name string) (*model.Household, error) {
	var h model.Household
	if err := c.do(ctx, "create_household", http.MethodPost, "/api/households", nil, map[string]string{"name": name}, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *Client) GetHousehold(ctx context.Context, id int64) (*model.Household, error) {
	var h model.Household
	if err := c.do(ctx, "get_household", http.MethodGet, idPath("/api/households/%d", id), nil, nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *Client) ListMembers(ctx context.Context, householdID int64) ([]model.HouseholdMember, error) {
	var out []model.HouseholdMember
	err := c.do(ctx, "list_members", http.MethodGet, idPath("/api/households/%d/members", householdID), nil, nil, &out)
	return out, err
}

// JoinHousehold adds the caller to the household owning inviteCode.
func (c *Client) JoinHousehold(ctx context.Context, inviteCode string) (*model.Household, *model.HouseholdMember, error) {
	var out struct {
		Household model.Household       `json:"household"`
		Member    model.HouseholdMember `json:"member"`
	}
	if err := c.do(ctx, "join_household", http.MethodPost, "/api/households/join", nil, map[string]string{"invite_code": inviteCode}, &out); err != nil {
		return nil, nil, err
	}
	return &out.Household, &out.Member, nil
}

func (c *Client) LeaveHousehold(ctx context.Context, householdID int64) error {
	return c.do(ctx, "leave_household", http.MethodDelete, idPath("/api/households/%d/members/me", householdID), nil, nil, nil)
}

// VerifyInviteCode returns the household id for code, or 0 when the code is unknown.
func (c *Client) VerifyInviteCode(ctx context.Context, code string) (int64, error) {
	var out struct {
		HouseholdID *int64 `json:"household_id"`
	}
	if err := c.do(ctx, "verify_invite_code", http.MethodPost, "/api/rpc/verify_invite_code", nil, map[string]string{"code": code}, &out); err != nil {
		return 0, err
	}
	if out.HouseholdID == nil {
		return 0, nil
	}
	return *out.HouseholdID, nil
}

// Chores

// ChoreInput is the writable part of a chore template. A nil Active leaves
// the current value on update and means active on create.
type ChoreInput struct {
	HouseholdID  int64           `json:"household_id"`
	Name         string          `json:"name"`
	Room         string          `json:"room"`
	Frequency    model.Frequency `json:"frequency"`
	Weekdays     []int           `json:"weekdays"`
	IntervalDays *int            `json:"interval_days,omitempty"`
	Points       int             `json:"points"`
	Active       *bool           `json:"active,omitempty"`
}

// InputFor returns the writable fields of an existing template.
func InputFor(t model.ChoreTemplate) ChoreInput {
	active := t.Active
	return ChoreInput{
		HouseholdID:  t.HouseholdID,
		Name:         t.Name,
		Room:         t.Room,
		Frequency:    t.Frequency,
		Weekdays:     t.Weekdays,
		IntervalDays: t.IntervalDays,
		Points:       t.Points,
		Active:       &active,
	}
}

func (c *Client) ListChores(ctx context.Context, householdID int64, activeOnly bool) ([]model.ChoreTemplate, error) {
	q := householdQuery(householdID)
	if activeOnly {
		q.Set("active", "true")
	}
	var out []model.ChoreTemplate
	err := c.do(ctx, "list_chores", http.MethodGet, "/api/chores", q, nil, &out)
	return out, err
}

func (c *Client) CreateChore(ctx context.Context, in ChoreInput) (*model.ChoreTemplate, error) {
	var t model.ChoreTemplate
	if err := c.do(ctx, "create_chore", http.MethodPost, "/api/chores", nil, in, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) UpdateChore(ctx context.Context, id int64, in ChoreInput) (*model.ChoreTemplate, error) {
	var t model.ChoreTemplate
	if err := c.do(ctx, "update_chore", http.MethodPut, idPath("/api/chores/%d", id), nil, in, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteChore hard-deletes a chore and its assignments.
func (c *Client) DeleteChore(ctx context.Context, id int64) error {
	return c.do(ctx, "delete_chore", http.MethodDelete, idPath("/api/chores/%d", id), nil, nil, nil)
}

// AssignmentQuery filters ListAssignments. Zero fields are ignored.
type AssignmentQuery struct {
	HouseholdID int64
	AssignedTo  int64
	ChoreID     int64
	DueDate     string
}

func (q AssignmentQuery) values() url.Values {
	v := householdQuery(q.HouseholdID)
	if q.AssignedTo != 0 {
		v.Set("assigned_to", strconv.FormatInt(q.AssignedTo, 10))
	}
	if q.ChoreID != 0 {
		v.Set("chore_id", strconv.FormatInt(q.ChoreID, 10))
	}
	if q.DueDate != "" {
		v.Set("due_date", q.DueDate)
	}
	return v
}

func (c *Client) ListAssignments(ctx context.Context, q AssignmentQuery) ([]model.Assignment, error) {
	var out []model.Assignment
	err := c.do(ctx, "list_assignments", http.MethodGet, "/api/assignments", q.values(), nil, &out)
	return out, err
}

// InsertAssignments batch-inserts rows and returns the ones the service created.
func (c *Client) InsertAssignments(ctx context.Context, rows []model.NewAssignment) ([]model.Assignment, error) {
	in := map[string][]model.NewAssignment{"assignments": rows}
	var out []model.Assignment
	err := c.do(ctx, "insert_assignments", http.MethodPost, "/api/assignments", nil, in, &out)
	return out, err
}

// LogActivity records a completed, ad-hoc assignment for the caller due today.
func (c *Client) LogActivity(ctx context.Context, choreID int64) (*model.Assignment, error) {
	var a model.Assignment
	if err := c.do(ctx, "log_activity", http.MethodPost, "/api/assignments/log", nil, map[string]int64{"chore_id": choreID}, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// CompleteAssignment marks an assignment done. completedBy 0 means the caller.
func (c *Client) CompleteAssignment(ctx context.Context, id, completedBy int64) (*model.Assignment, error) {
	var in any
	if completedBy != 0 {
		in = map[string]int64{"completed_by": completedBy}
	}
	var a model.Assignment
	if err := c.do(ctx, "complete_assignment", http.MethodPatch, idPath("/api/assignments/%d", id), nil, in, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Procedures

func (c *Client) NextAssignee(ctx context.Context, choreID int64, dueDate string) (int64, error) {
	in := map[string]any{"chore_id": choreID, "due_date": dueDate}
	var out struct {
		UserID int64 `json:"user_id"`
	}
	if err := c.do(ctx, "next_assignee", http.MethodPost, "/api/rpc/next_assignee", nil, in, &out); err != nil {
		return 0, err
	}
	return out.UserID, nil
}

func (c *Client) IncrementFairness(ctx context.Context, choreID, userID int64) error {
	in := map[string]int64{"chore_id": choreID, "user_id": userID}
	return c.do(ctx, "increment_fairness", http.MethodPost, "/api/rpc/increment_fairness", nil, in, nil)
}

// Expenses

func (c *Client) ListExpenses(ctx context.Context, householdID int64) ([]model.Expense, error) {
	var out []model.Expense
	err := c.do(ctx, "list_expenses", http.MethodGet, "/api/expenses", householdQuery(householdID), nil, &out)
	return out, err
}

func (c *Client) CreateExpense(ctx context.Context, e model.Expense) (*model.Expense, error) {
	var out model.Expense
	if err := c.do(ctx, "create_expense", http.MethodPost, "/api/expenses", nil, e, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteExpense(ctx context.Context, id int64) error {
	return c.do(ctx, "delete_expense", http.MethodDelete, idPath("/api/expenses/%d", id), nil, nil, nil)
}

// SettleSplit marks one split settled and returns the updated expense.
func (c *Client) SettleSplit(ctx context.Context, splitID int64) (*model.Expense, error) {
	var out model.Expense
	if err := c.do(ctx, "settle_split", http.MethodPost, idPath("/api/expenses/splits/%d/settle", splitID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Nudges

func (c *Client) ListNudges(ctx context.Context, householdID int64) ([]model.Nudge, error) {
	var out []model.Nudge
	err := c.do(ctx, "list_nudges", http.MethodGet, "/api/nudges", householdQuery(householdID), nil, &out)
	return out, err
}

type NudgeInput struct {
	HouseholdID  int64  `json:"household_id"`
	ToUser       int64  `json:"to_user"`
	AssignmentID *int64 `json:"assignment_id,omitempty"`
	Message      string `json:"message"`
}

func (c *Client) SendNudge(ctx context.Context, in NudgeInput) (*model.Nudge, error) {
	var n model.Nudge
	if err := c.do(ctx, "send_nudge", http.MethodPost, "/api/nudges", nil, in, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (c *Client) MarkNudgeRead(ctx context.Context, id int64) (*model.Nudge, error) {
	var n model.Nudge
	if err := c.do(ctx, "mark_nudge_read", http.MethodPost, idPath("/api/nudges/%d/read", id), nil, nil, &n); err != nil {
		return nil, err
	}
	return &n, nil
}
