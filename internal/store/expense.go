package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/chorewheel/internal/model"
)

type ExpenseStore struct {
	db *sql.DB
}

func NewExpenseStore(db *sql.DB) *ExpenseStore {
	return &ExpenseStore{db: db}
}

func scanExpense(scanner interface{ Scan(...any) error }) (*model.Expense, error) {
	var e model.Expense
	err := scanner.Scan(&e.ID, &e.HouseholdID, &e.PaidBy, &e.Description, &e.AmountCents, &e.Category, &e.SpentOn, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func scanSplit(scanner interface{ Scan(...any) error }) (*model.ExpenseSplit, error) {
	var sp model.ExpenseSplit
	var settled int
	err := scanner.Scan(&sp.ID, &sp.ExpenseID, &sp.UserID, &sp.AmountCents, &settled)
	if err != nil {
		return nil, err
	}
	sp.Settled = settled != 0
	return &sp, nil
}

const expenseCols = `id, household_id, paid_by, description, amount_cents, category, spent_on, created_at`
const splitCols = `id, expense_id, user_id, amount_cents, settled`

// Create inserts an expense together with its splits.
func (s *ExpenseStore) Create(e model.Expense) (*model.Expense, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO expenses (household_id, paid_by, description, amount_cents, category, spent_on) VALUES (?, ?, ?, ?, ?, ?)`,
		e.HouseholdID, e.PaidBy, e.Description, e.AmountCents, e.Category, e.SpentOn,
	)
	if err != nil {
		return nil, fmt.Errorf("insert expense: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	for _, sp := range e.Splits {
		var settled int
		if sp.Settled {
			settled = 1
		}
		if _, err := tx.Exec(
			`INSERT INTO expense_splits (expense_id, user_id, amount_cents, settled) VALUES (?, ?, ?, ?)`,
			id, sp.UserID, sp.AmountCents, settled,
		); err != nil {
			return nil, fmt.Errorf("insert split: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit expense: %w", err)
	}
	return s.GetByID(id)
}

func (s *ExpenseStore) GetByID(id int64) (*model.Expense, error) {
	row := s.db.QueryRow(`SELECT `+expenseCols+` FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get expense: %w", err)
	}
	splits, err := s.listSplits(`WHERE expense_id = ?`, id)
	if err != nil {
		return nil, err
	}
	e.Splits = splits
	return e, nil
}

// List returns a household's expenses, newest first, with splits attached.
func (s *ExpenseStore) List(householdID int64) ([]model.Expense, error) {
	rows, err := s.db.Query(
		`SELECT `+expenseCols+` FROM expenses WHERE household_id = ? ORDER BY spent_on DESC, id DESC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	var expenses []model.Expense
	index := make(map[int64]int)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		index[e.ID] = len(expenses)
		expenses = append(expenses, *e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	rows.Close()

	splits, err := s.listSplits(
		`WHERE expense_id IN (SELECT id FROM expenses WHERE household_id = ?)`, householdID,
	)
	if err != nil {
		return nil, err
	}
	for _, sp := range splits {
		if i, ok := index[sp.ExpenseID]; ok {
			expenses[i].Splits = append(expenses[i].Splits, sp)
		}
	}
	return expenses, nil
}

func (s *ExpenseStore) listSplits(where string, args ...any) ([]model.ExpenseSplit, error) {
	rows, err := s.db.Query(`SELECT `+splitCols+` FROM expense_splits `+where+` ORDER BY id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list splits: %w", err)
	}
	defer rows.Close()

	var splits []model.ExpenseSplit
	for rows.Next() {
		sp, err := scanSplit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan split: %w", err)
		}
		splits = append(splits, *sp)
	}
	return splits, rows.Err()
}

func (s *ExpenseStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}

// SettleSplit marks a split paid back and returns the parent expense.
func (s *ExpenseStore) SettleSplit(splitID int64) (*model.Expense, error) {
	var expenseID int64
	err := s.db.QueryRow(`SELECT expense_id FROM expense_splits WHERE id = ?`, splitID).Scan(&expenseID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get split: %w", err)
	}
	if _, err := s.db.Exec(`UPDATE expense_splits SET settled = 1 WHERE id = ?`, splitID); err != nil {
		return nil, fmt.Errorf("settle split: %w", err)
	}
	return s.GetByID(expenseID)
}

// HouseholdIDForSplit resolves the household owning a split, or 0 if unknown.
func (s *ExpenseStore) HouseholdIDForSplit(splitID int64) (int64, error) {
	var hid int64
	err := s.db.QueryRow(
		`SELECT e.household_id FROM expense_splits sp JOIN expenses e ON e.id = sp.expense_id WHERE sp.id = ?`,
		splitID,
	).Scan(&hid)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("household for split: %w", err)
	}
	return hid, nil
}
