package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hongminglow/clubhub/internal/models"
	"github.com/hongminglow/clubhub/internal/views"
)

func newPostsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "Browse and manage club and event posts",
	}
	cmd.AddCommand(newPostsListCmd(a), newPostsCreateCmd(a), newPostsDeleteCmd(a))
	return cmd
}

func newPostsListCmd(a *app) *cobra.Command {
	var search, category string
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List posts, optionally filtered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := views.ParsePostCategory(category)
			if err != nil {
				return err
			}

			client, err := a.requireClient()
			if err != nil {
				return err
			}
			if all || cat == views.CategoryDraft {
				if client, err = a.requireAdmin(cmd.Context()); err != nil {
					return err
				}
			}

			ctx, cancel := a.requestContext(cmd.Context())
			defer cancel()
			var posts []models.Post
			if all || cat == views.CategoryDraft {
				posts, err = client.ListAllPosts(ctx)
			} else {
				posts, err = client.ListPublishedPosts(ctx)
			}
			if err != nil {
				return fmt.Errorf("list posts: %w", err)
			}

			posts = views.PostFilter{Search: search, Category: cat}.Apply(posts)
			return writePosts(cmd.OutOrStdout(), posts)
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "match title or content (case-insensitive)")
	cmd.Flags().StringVar(&category, "filter", "all", "all, club, events, or draft")
	cmd.Flags().BoolVar(&all, "all", false, "include drafts (admin only)")
	return cmd
}

func writePosts(w io.Writer, posts []models.Post) error {
	if len(posts) == 0 {
		_, err := fmt.Fprintln(w, "No posts found.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tTYPE\tSTATUS\tTITLE\tDATE\tTIME\tCREATED")
	for _, p := range posts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.Type, p.Status, p.Title,
			orDash(deref(p.Date)), orDash(deref(p.Time)),
			p.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func newPostsCreateCmd(a *app) *cobra.Command {
	var postType, imagePath string
	var asDraft bool
	draft := views.NewDraft()
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Publish a post or save it as a draft (admin only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.requireAdmin(cmd.Context())
			if err != nil {
				return err
			}
			if draft.Type, err = models.ParsePostType(postType); err != nil {
				return err
			}
			if imagePath != "" {
				if err := draft.LoadImage(imagePath); err != nil {
					return err
				}
			}

			ctx, cancel := a.requestContext(cmd.Context())
			defer cancel()
			var post models.Post
			if asDraft {
				post, err = draft.SaveDraft(ctx, client)
			} else {
				post, err = draft.Publish(ctx, client)
			}
			if err != nil {
				return err
			}
			verb := "Published"
			if post.IsDraft() {
				verb = "Saved draft"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %q (%s)\n", verb, post.Title, post.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&draft.Title, "title", "", "post title")
	f.StringVar(&draft.Content, "content", "", "post body")
	f.StringVar(&postType, "type", string(models.PostTypeClub), "club or events")
	f.StringVar(&draft.Date, "date", "", "event date, YYYY-MM-DD")
	f.StringVar(&draft.Time, "time", "", "event time, HH:MM")
	f.StringVar(&imagePath, "image", "", "path to an image to attach (max 5MB)")
	f.BoolVar(&asDraft, "draft", false, "save as a draft instead of publishing")
	return cmd
}

func newPostsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a post (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.requireAdmin(cmd.Context())
			if err != nil {
				return err
			}
			ctx, cancel := a.requestContext(cmd.Context())
			defer cancel()
			if err := client.DeletePost(ctx, args[0]); err != nil {
				return fmt.Errorf("delete post: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted post %s\n", args[0])
			return nil
		},
	}
}
