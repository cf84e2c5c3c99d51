package model

import "time"

type Expense struct {
	ID          int64          `json:"id"`
	HouseholdID int64          `json:"household_id"`
	PaidBy      int64          `json:"paid_by"`
	Description string         `json:"description"`
	AmountCents int64          `json:"amount_cents"`
	Category    string         `json:"category"`
	SpentOn     string         `json:"spent_on"`
	CreatedAt   time.Time      `json:"created_at"`
	Splits      []ExpenseSplit `json:"splits"`
}

// ExpenseSplit is one member's share of an expense.
type ExpenseSplit struct {
	ID          int64 `json:"id"`
	ExpenseID   int64 `json:"expense_id"`
	UserID      int64 `json:"user_id"`
	AmountCents int64 `json:"amount_cents"`
	Settled     bool  `json:"settled"`
}
