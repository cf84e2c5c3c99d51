package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/chorewheel/internal/cache"
	"github.com/dukerupert/chorewheel/internal/chore"
)

const defaultGenerateDays = 7

func (a *app) choreCache(s *session) *cache.ChoreCache {
	return cache.NewChoreCache(s.api, s.auth, a.mirror("chores"), a.logger.With("component", "chore_cache"))
}

func newGenerateCmd(a *app) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Assign every active chore for each day it is due in a date range",
		Long: `Creates one assignment per active chore and due day between --from and
--to (inclusive). Days that already have an assignment are left alone, so
running it twice over the same range adds nothing. One run covers at most
a year. The count printed is the rows actually inserted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now().UTC()
			var err error
			if from != "" {
				if start, err = chore.ParseDay(from); err != nil {
					return fmt.Errorf("--from: %w", err)
				}
			}
			end := start.AddDate(0, 0, defaultGenerateDays-1)
			if to != "" {
				if end, err = chore.ParseDay(to); err != nil {
					return fmt.Errorf("--to: %w", err)
				}
			}
			if n := chore.DayCount(start, end); n > cache.MaxGenerateDays {
				return fmt.Errorf("--from %s --to %s spans %d days, at most %d per run", chore.DayKey(start), chore.DayKey(end), n, cache.MaxGenerateDays)
			}

			ctx := cmd.Context()
			s, hid, err := a.inHousehold(ctx)
			if err != nil {
				return err
			}
			chores := a.choreCache(s)
			if err := chores.FetchChores(ctx, hid); err != nil {
				return err
			}
			if err := chores.FetchAssignments(ctx, hid); err != nil {
				return err
			}
			n, err := chores.GenerateAssignments(ctx, hid, start, end)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d assignments from %s to %s\n", n, chore.DayKey(start), chore.DayKey(end))
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD (default a week from --from)")
	return cmd
}

func newLeaderboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard",
		Short: "Rank household members by chore points",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, hid, err := a.inHousehold(ctx)
			if err != nil {
				return err
			}
			chores := a.choreCache(s)
			if err := chores.FetchChores(ctx, hid); err != nil {
				return err
			}
			if err := chores.FetchAssignments(ctx, hid); err != nil {
				return err
			}

			var rows [][]string
			for i, e := range chores.Leaderboard() {
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					s.name(e.UserID),
					strconv.Itoa(e.Points),
					strconv.Itoa(e.Completions),
					strconv.Itoa(e.BonusCompletions),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"#", "Member", "Points", "Done", "Bonus"}, rows))

			if overdue := len(chores.Overdue()); overdue > 0 {
				fmt.Fprintln(out, alertStyle.Render(fmt.Sprintf("%d assignments are overdue", overdue)))
			}
			return nil
		},
	}
}
