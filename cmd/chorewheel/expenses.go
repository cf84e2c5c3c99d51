package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dukerupert/chorewheel/internal/cache"
)

func (a *app) expenseCache(s *session) *cache.ExpenseCache {
	return cache.NewExpenseCache(s.api, s.auth, a.mirror("expenses"), a.logger.With("component", "expense_cache"))
}

func cents(v int64) string {
	sign := ""
	if v < 0 {
		sign, v = "-", -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

func newExpensesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expenses",
		Short: "Show shared expenses and who owes whom",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, hid, err := a.inHousehold(ctx)
			if err != nil {
				return err
			}
			expenses := a.expenseCache(s)
			if err := expenses.Fetch(ctx, hid); err != nil {
				return err
			}

			var rows [][]string
			for _, e := range expenses.Expenses() {
				rows = append(rows, []string{strconv.FormatInt(e.ID, 10), e.SpentOn, s.name(e.PaidBy), cents(e.AmountCents), e.Description})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"ID", "Day", "Paid by", "Amount", "Description"}, rows))

			fmt.Fprintf(out, "you owe %s, you are owed %s\n", cents(expenses.TotalOwedByMe()), cents(expenses.TotalOwedToMe()))
			balances := expenses.Balances()
			var balanceRows [][]string
			for _, id := range s.households.MemberIDs() {
				balanceRows = append(balanceRows, []string{s.name(id), cents(balances[id])})
			}
			fmt.Fprintln(out, renderTable([]string{"Member", "Balance"}, balanceRows))
			return nil
		},
	}

	var category string
	add := &cobra.Command{
		Use:   "add DESCRIPTION AMOUNT_CENTS",
		Short: "Record an expense you paid, split equally across the household",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[1])
			}
			ctx := cmd.Context()
			s, hid, err := a.inHousehold(ctx)
			if err != nil {
				return err
			}
			e, err := a.expenseCache(s).Add(ctx, hid, args[0], amount, category, s.households.MemberIDs())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recorded %s for %s\n", e.Description, cents(e.AmountCents))
			return nil
		},
	}
	add.Flags().StringVar(&category, "category", "", "expense category")

	settle := &cobra.Command{
		Use:   "settle SPLIT_ID",
		Short: "Mark one share of an expense paid back",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid split id %q", args[0])
			}
			s, err := a.signedIn()
			if err != nil {
				return err
			}
			_, err = a.expenseCache(s).Settle(cmd.Context(), id)
			return err
		},
	}

	cmd.AddCommand(add, settle)
	return cmd
}
