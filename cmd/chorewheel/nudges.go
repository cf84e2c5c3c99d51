package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dukerupert/chorewheel/internal/cache"
)

func (a *app) nudgeCache(s *session) *cache.NudgeCache {
	return cache.NewNudgeCache(s.api, s.auth, a.mirror("nudges"), a.logger.With("component", "nudge_cache"))
}

func newNudgesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nudges",
		Short: "Show nudges sent to you",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, hid, err := a.inHousehold(ctx)
			if err != nil {
				return err
			}
			nudges := a.nudgeCache(s)
			if err := nudges.Fetch(ctx, hid); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, unreadStyle.Render(fmt.Sprintf("%d unread", nudges.UnreadCount())))
			inbox := nudges.Inbox()
			if len(inbox) == 0 {
				return nil
			}
			var rows [][]string
			for _, n := range inbox {
				mark := ""
				if n.ReadAt == nil {
					mark = "*"
				}
				rows = append(rows, []string{mark, strconv.FormatInt(n.ID, 10), n.CreatedAt.Local().Format("Jan 2 15:04"), s.name(n.FromUser), n.Message})
			}
			fmt.Fprintln(out, renderTable([]string{"", "ID", "Sent", "From", "Message"}, rows))
			return nil
		},
	}

	send := &cobra.Command{
		Use:   "send USER_ID MESSAGE...",
		Short: "Nudge another member",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			ctx := cmd.Context()
			s, hid, err := a.inHousehold(ctx)
			if err != nil {
				return err
			}
			if _, err := a.nudgeCache(s).Send(ctx, hid, to, nil, strings.Join(args[1:], " ")); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "nudged %s\n", s.name(to))
			return nil
		},
	}

	read := &cobra.Command{
		Use:   "read ID",
		Short: "Mark a nudge read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid nudge id %q", args[0])
			}
			s, err := a.signedIn()
			if err != nil {
				return err
			}
			return a.nudgeCache(s).MarkRead(cmd.Context(), id)
		},
	}

	cmd.AddCommand(send, read)
	return cmd
}
