package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukerupert/chorewheel/internal/model"
)

// ExpenseAPI is the part of the service ExpenseCache uses.
type ExpenseAPI interface {
	ListExpenses(ctx context.Context, householdID int64) ([]model.Expense, error)
	CreateExpense(ctx context.Context, e model.Expense) (*model.Expense, error)
	SettleSplit(ctx context.Context, splitID int64) (*model.Expense, error)
	DeleteExpense(ctx context.Context, id int64) error
}

type expenseSnapshot struct {
	HouseholdID int64           `json:"household_id"`
	Expenses    []model.Expense `json:"expenses"`
}

// ExpenseCache holds a household's shared expenses, newest first.
type ExpenseCache struct {
	base
	api         ExpenseAPI
	me          Identity
	now         func() time.Time
	householdID int64
	expenses    []model.Expense
}

func NewExpenseCache(api ExpenseAPI, me Identity, mirror *Mirror, logger *slog.Logger) *ExpenseCache {
	return &ExpenseCache{base: newBase(mirror, logger), api: api, me: me, now: time.Now}
}

func (c *ExpenseCache) Restore() error {
	var snap expenseSnapshot
	if _, err := c.mirror.Load(&snap); err != nil {
		return c.fail("restore expenses", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.householdID = snap.HouseholdID
	c.expenses = snap.Expenses
	return nil
}

func (c *ExpenseCache) save() {
	c.persist(expenseSnapshot{HouseholdID: c.householdID, Expenses: c.expenses})
}

func (c *ExpenseCache) Fetch(ctx context.Context, householdID int64) error {
	expenses, err := c.api.ListExpenses(ctx, householdID)
	if err != nil {
		return c.fail("fetch expenses", err, "household_id", householdID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.householdID = householdID
	c.expenses = expenses
	c.err = ""
	c.save()
	return nil
}

// EqualSplit divides amountCents across memberIDs. Remainder cents go one
// each to the first members in order, so the parts always sum to the amount.
func EqualSplit(amountCents int64, memberIDs []int64) []model.ExpenseSplit {
	if len(memberIDs) == 0 {
		return nil
	}
	n := int64(len(memberIDs))
	share, rem := amountCents/n, amountCents%n
	splits := make([]model.ExpenseSplit, len(memberIDs))
	for i, id := range memberIDs {
		amt := share
		if int64(i) < rem {
			amt++
		}
		splits[i] = model.ExpenseSplit{UserID: id, AmountCents: amt}
	}
	return splits
}

// Add records an expense paid by the signed-in user and split equally across memberIDs.
func (c *ExpenseCache) Add(ctx context.Context, householdID int64, description string, amountCents int64, category string, memberIDs []int64) (*model.Expense, error) {
	if amountCents <= 0 || len(memberIDs) == 0 {
		return nil, c.fail("add expense", ErrInvalidExpense)
	}
	me := c.me.UserID()
	if me == 0 {
		return nil, c.fail("add expense", ErrNotSignedIn)
	}

	e, err := c.api.CreateExpense(ctx, model.Expense{
		HouseholdID: householdID,
		PaidBy:      me,
		Description: description,
		AmountCents: amountCents,
		Category:    category,
		SpentOn:     c.now().UTC().Format(model.DateLayout),
		Splits:      EqualSplit(amountCents, memberIDs),
	})
	if err != nil {
		return nil, c.fail("add expense", err, "household_id", householdID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.householdID != householdID {
		c.householdID = householdID
		c.expenses = nil
	}
	c.expenses = append([]model.Expense{*e}, c.expenses...)
	c.err = ""
	c.save()
	return e, nil
}

// Settle marks one split paid back.
func (c *ExpenseCache) Settle(ctx context.Context, splitID int64) (*model.Expense, error) {
	e, err := c.api.SettleSplit(ctx, splitID)
	if err != nil {
		return nil, c.fail("settle split", err, "split_id", splitID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.expenses {
		if c.expenses[i].ID == e.ID {
			c.expenses[i] = *e
		}
	}
	c.err = ""
	c.save()
	return e, nil
}

func (c *ExpenseCache) Delete(ctx context.Context, id int64) error {
	if err := c.api.DeleteExpense(ctx, id); err != nil {
		return c.fail("delete expense", err, "expense_id", id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.expenses[:0]
	for _, e := range c.expenses {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	c.expenses = kept
	c.err = ""
	c.save()
	return nil
}

func (c *ExpenseCache) Expenses() []model.Expense {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.Expense(nil), c.expenses...)
}

// TotalOwedByMe sums the signed-in user's unsettled shares of expenses others paid.
func (c *ExpenseCache) TotalOwedByMe() int64 {
	me := c.me.UserID()
	var total int64
	c.eachOpenSplit(func(e model.Expense, sp model.ExpenseSplit) {
		if sp.UserID == me {
			total += sp.AmountCents
		}
	})
	return total
}

// TotalOwedToMe sums others' unsettled shares of expenses the signed-in user paid.
func (c *ExpenseCache) TotalOwedToMe() int64 {
	me := c.me.UserID()
	var total int64
	c.eachOpenSplit(func(e model.Expense, sp model.ExpenseSplit) {
		if e.PaidBy == me {
			total += sp.AmountCents
		}
	})
	return total
}

// Balances returns each member's net position in cents: positive when others
// owe them, negative when they owe. The values sum to zero.
func (c *ExpenseCache) Balances() map[int64]int64 {
	bal := make(map[int64]int64)
	c.eachOpenSplit(func(e model.Expense, sp model.ExpenseSplit) {
		bal[e.PaidBy] += sp.AmountCents
		bal[sp.UserID] -= sp.AmountCents
	})
	return bal
}

// eachOpenSplit visits unsettled splits owed to someone other than their holder.
func (c *ExpenseCache) eachOpenSplit(fn func(model.Expense, model.ExpenseSplit)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.expenses {
		for _, sp := range e.Splits {
			if sp.Settled || sp.UserID == e.PaidBy {
				continue
			}
			fn(e, sp)
		}
	}
}
