package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hongminglow/clubhub/internal/session"
)

func newLoginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := a.readSecret(cmd, password, "Password: ")
			if err != nil {
				return err
			}
			store := session.FromContext(cmd.Context())
			if err := store.Login(cmd.Context(), email, pw); err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			printSignedIn(cmd, store)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	var email, name, password, confirm string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := a.readSecret(cmd, password, "Password: ")
			if err != nil {
				return err
			}
			again, err := a.readSecret(cmd, confirm, "Confirm password: ")
			if err != nil {
				return err
			}
			if pw != again {
				return errors.New("passwords do not match")
			}
			store := session.FromContext(cmd.Context())
			if err := store.Register(cmd.Context(), email, strings.TrimSpace(name), pw); err != nil {
				return fmt.Errorf("registration failed: %w", err)
			}
			printSignedIn(cmd, store)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	cmd.Flags().StringVar(&confirm, "confirm", "", "password confirmation (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func printSignedIn(cmd *cobra.Command, store *session.Store) {
	id, ok := store.Identity()
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "Signed in.")
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", id.Email)
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session.FromContext(cmd.Context()).Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap := session.FromContext(cmd.Context()).Snapshot()
			if snap.Identity == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
				return nil
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintf(tw, "ID\t%s\n", snap.Identity.ID)
			fmt.Fprintf(tw, "Email\t%s\n", snap.Identity.Email)
			fmt.Fprintf(tw, "Name\t%s\n", orDash(snap.Identity.Name))
			fmt.Fprintf(tw, "Role\t%s\n", orDash(string(snap.Identity.Role)))
			fmt.Fprintf(tw, "Admin\t%t\n", snap.IsAdmin())
			return tw.Flush()
		},
	}
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow session changes pushed by the backend until signed out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.requireClient()
			if err != nil {
				return err
			}
			store := session.FromContext(cmd.Context())
			if store.Lifecycle() != session.Authenticated {
				return errNotSignedIn
			}

			out := cmd.OutOrStdout()
			unsubscribe := store.Subscribe(func(s session.Snapshot) {
				if s.Identity == nil {
					fmt.Fprintln(out, "signed out")
					return
				}
				fmt.Fprintf(out, "%s role=%s admin=%t\n", s.Identity.Email, orDash(string(s.Identity.Role)), s.IsAdmin())
			})
			defer unsubscribe()

			id, _ := store.Identity()
			fmt.Fprintf(out, "watching session of %s (Ctrl-C to stop)\n", id.Email)
			err = client.Watch(cmd.Context())
			if cmd.Context().Err() != nil {
				return nil
			}
			return err
		},
	}
}
