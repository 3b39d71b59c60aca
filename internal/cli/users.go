package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hongminglow/clubhub/internal/models"
	"github.com/hongminglow/clubhub/internal/session"
	"github.com/hongminglow/clubhub/internal/views"
)

func newUsersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage accounts and roles (admin only)",
	}
	cmd.AddCommand(
		newUsersListCmd(a),
		newUsersRoleCmd(a, "promote", models.RoleAdmin),
		newUsersRoleCmd(a, "demote", models.RoleUser),
		newUsersDeleteCmd(a),
	)
	return cmd
}

func newUsersListCmd(a *app) *cobra.Command {
	var search, role, drafts string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users with their drafts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			roleFilter, err := views.ParseRoleFilter(role)
			if err != nil {
				return err
			}
			presence, err := views.ParseDraftPresence(drafts)
			if err != nil {
				return err
			}
			client, err := a.requireAdmin(cmd.Context())
			if err != nil {
				return err
			}

			ctx, cancel := a.requestContext(cmd.Context())
			defer cancel()
			var (
				users []models.User
				posts []models.Post
			)
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() (err error) {
				users, err = client.ListUsers(gctx)
				return err
			})
			g.Go(func() (err error) {
				posts, err = client.ListAllPosts(gctx)
				return err
			})
			if err := g.Wait(); err != nil {
				return fmt.Errorf("list users: %w", err)
			}

			rows := views.UserFilter{Search: search, Role: roleFilter, Drafts: presence}.
				Apply(views.AttachDrafts(users, posts))
			return writeUsers(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "match email, name, or draft titles")
	cmd.Flags().StringVar(&role, "role", "all", "all, admin, or user")
	cmd.Flags().StringVar(&drafts, "drafts", "all", "all, with, or without")
	return cmd
}

func writeUsers(w io.Writer, rows []views.UserRow) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No users found.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tROLE\tDRAFTS\tJOINED")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			r.ID, r.Email, orDash(r.Name), r.Role, len(r.Drafts),
			r.CreatedAt.Local().Format("2006-01-02"))
	}
	return tw.Flush()
}

func newUsersRoleCmd(a *app, use string, role models.Role) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: fmt.Sprintf("Set a user's role to %s", role),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.requireAdmin(cmd.Context())
			if err != nil {
				return err
			}
			ctx, cancel := a.requestContext(cmd.Context())
			defer cancel()
			user, err := client.UpdateUserRole(ctx, args[0], role)
			if err != nil {
				return fmt.Errorf("update role: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", user.Email, user.Role)
			return nil
		},
	}
}

func newUsersDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a user and their sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.requireAdmin(cmd.Context())
			if err != nil {
				return err
			}
			if id, ok := session.FromContext(cmd.Context()).Identity(); ok && id.ID == args[0] {
				return fmt.Errorf("refusing to delete the signed-in account")
			}
			ctx, cancel := a.requestContext(cmd.Context())
			defer cancel()
			if err := client.DeleteUser(ctx, args[0]); err != nil {
				return fmt.Errorf("delete user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted user %s\n", args[0])
			return nil
		},
	}
}
