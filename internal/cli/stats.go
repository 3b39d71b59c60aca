package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hongminglow/clubhub/internal/models"
	"github.com/hongminglow/clubhub/internal/views"
)

func newStatsCmd(a *app) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show post counts and weekly activity (admin only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.requireAdmin(cmd.Context())
			if err != nil {
				return err
			}

			ctx, cancel := a.requestContext(cmd.Context())
			defer cancel()
			var (
				posts  []models.Post
				visits []time.Time
			)
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() (err error) {
				posts, err = client.ListAllPosts(gctx)
				return err
			})
			g.Go(func() (err error) {
				visits, err = client.ListVisits(gctx, days)
				return err
			})
			if err := g.Wait(); err != nil {
				return fmt.Errorf("load stats: %w", err)
			}

			sum := views.Summarize(posts)
			out := cmd.OutOrStdout()
			tw := newTable(out)
			fmt.Fprintf(tw, "Total posts\t%d\n", sum.Total)
			fmt.Fprintf(tw, "Published\t%d\n", sum.Published)
			fmt.Fprintf(tw, "Events\t%d\n", sum.Events)
			fmt.Fprintf(tw, "Drafts\t%d\n", sum.Drafts)
			if err := tw.Flush(); err != nil {
				return err
			}

			fmt.Fprintln(out)
			tw = newTable(out)
			fmt.Fprintln(tw, "DAY\tPOSTS\tVISITORS\t")
			for _, d := range views.WeeklyActivity(posts, visits, time.Local) {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", d.Day, d.Posts, d.Visitors, strings.Repeat("#", d.Visitors))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "only count visits from the last N days (0 for all)")
	return cmd
}
