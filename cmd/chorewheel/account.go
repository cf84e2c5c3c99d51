package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSignUpCmd(a *app) *cobra.Command {
	var email, password, name string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.session()
			if err := s.auth.SignUp(cmd.Context(), email, password, name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed up as %s\n", s.auth.Profile().DisplayName)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (at least 8 characters)")
	cmd.Flags().StringVar(&name, "name", "", "display name shown to the household")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	cmd.MarkFlagRequired("name")
	return cmd
}

func newSignInCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in and remember the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.session()
			if err := s.auth.SignIn(cmd.Context(), email, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s\n", s.auth.Profile().DisplayName)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func newSignOutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Forget the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.session()
			if err := s.auth.SignOut(); err != nil {
				return err
			}
			return a.mirror("household").Clear()
		},
	}
}

func newHouseholdCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "household",
		Short: "Show, create, join or leave the current household",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := a.inHousehold(cmd.Context())
			if err != nil {
				return err
			}
			h := s.households.Household()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (invite code %s)\n", h.Name, h.InviteCode)
			for _, m := range s.households.Members() {
				fmt.Fprintf(out, "  %d\t%s\t%s\n", m.UserID, m.DisplayName, m.Role)
			}
			return nil
		},
	}

	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a household and make it current",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.signedIn()
			if err != nil {
				return err
			}
			h, err := s.households.Create(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s, invite code %s\n", h.Name, h.InviteCode)
			return nil
		},
	}

	join := &cobra.Command{
		Use:   "join CODE",
		Short: "Join a household by invite code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.signedIn()
			if err != nil {
				return err
			}
			h, err := s.households.Join(cmd.Context(), strings.ToUpper(strings.TrimSpace(args[0])))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "joined %s\n", h.Name)
			return nil
		},
	}

	leave := &cobra.Command{
		Use:   "leave",
		Short: "Leave the current household",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.signedIn()
			if err != nil {
				return err
			}
			if err := s.households.Restore(); err != nil {
				return err
			}
			return s.households.Leave(cmd.Context())
		},
	}

	cmd.AddCommand(create, join, leave)
	return cmd
}
