// Package cli implements the clubctl command tree.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/hongminglow/clubhub/internal/backend"
	"github.com/hongminglow/clubhub/internal/backend/rest"
	"github.com/hongminglow/clubhub/internal/config"
	"github.com/hongminglow/clubhub/internal/logger"
	"github.com/hongminglow/clubhub/internal/session"
)

var (
	errNoBackend   = errors.New("no backend configured; set CLUBHUB_URL or pass --url")
	errNotSignedIn = errors.New("not signed in; run 'clubctl login' first")
	errNotAdmin    = errors.New("this command requires the admin role")
)

// app is the state shared by every command of one invocation.
type app struct {
	url         string
	sessionFile string
	timeout     time.Duration
	verbose     bool

	stdin  *bufio.Reader
	logger *slog.Logger
	client *rest.Client
	store  *session.Store
}

// Execute runs clubctl with the process arguments.
func Execute(ctx context.Context) error {
	root, a := newRootCmd()
	defer a.close()
	return root.ExecuteContext(ctx)
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}
	root := &cobra.Command{
		Use:   "clubctl",
		Short: "Manage clubhub posts and users from the command line",
		Long: `clubctl signs in to a clubhub backend and manages club and event posts.

Anyone can browse published posts. Creating posts, managing users and viewing
stats require an account with the admin role.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.url, "url", "", "backend base URL (overrides CLUBHUB_URL)")
	flags.StringVar(&a.sessionFile, "session-file", "", "where the access token is stored (overrides CLUBHUB_SESSION_FILE)")
	flags.DurationVar(&a.timeout, "timeout", 0, "per-request timeout (overrides CLUBHUB_TIMEOUT)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log requests and session changes to stderr")

	root.AddCommand(
		newLoginCmd(a),
		newRegisterCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newWatchCmd(a),
		newPostsCmd(a),
		newUsersCmd(a),
		newStatsCmd(a),
	)
	return root, a
}

// setup builds the backend client and session store, then waits for the
// store to settle before any command runs.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("url") {
		cfg.BaseURL = a.url
	}
	if cmd.Flags().Changed("session-file") {
		cfg.SessionFile = a.sessionFile
	}
	if cmd.Flags().Changed("timeout") && a.timeout > 0 {
		cfg.Timeout = a.timeout
	}
	a.timeout = cfg.Timeout

	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = logger.NewText(cmd.ErrOrStderr(), level)

	var be backend.Backend
	if cfg.Configured() {
		client, err := rest.New(rest.Options{
			BaseURL: cfg.BaseURL,
			Tokens:  rest.NewFileTokenStore(cfg.SessionFile),
			Logger:  a.logger,
		})
		if err != nil {
			return err
		}
		a.client = client
		be = client
	}

	ctx := cmd.Context()
	a.store = session.New(ctx, be, session.WithLogger(a.logger), session.WithCallTimeout(cfg.Timeout))

	waitCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := a.store.Wait(waitCtx); err != nil {
		return fmt.Errorf("waiting for session: %w", err)
	}
	a.logger.Debug("session ready", "lifecycle", a.store.Lifecycle(), "backend", cfg.BaseURL)

	cmd.SetContext(session.NewContext(ctx, a.store))
	return nil
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
}

// requestContext bounds one data call by the configured timeout.
func (a *app) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.timeout)
}

func (a *app) requireClient() (*rest.Client, error) {
	if a.client == nil {
		return nil, errNoBackend
	}
	return a.client, nil
}

// requireAdmin gates admin commands on the signed-in identity's role.
func (a *app) requireAdmin(ctx context.Context) (*rest.Client, error) {
	client, err := a.requireClient()
	if err != nil {
		return nil, err
	}
	store := session.FromContext(ctx)
	if store.Lifecycle() != session.Authenticated {
		return nil, errNotSignedIn
	}
	if !store.IsAdmin() {
		return nil, errNotAdmin
	}
	return client, nil
}
