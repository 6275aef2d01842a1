// Package cli implements the teamhub command line client: it signs in, keeps the
// session between invocations and calls the gateway through the typed client.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"teamhub/internal/auth"
	"teamhub/internal/gateway/client"
	"teamhub/internal/platform/config"
	"teamhub/internal/platform/logger"
	"teamhub/internal/platform/redis"
	"teamhub/internal/session"
	"teamhub/pkg/requestcontext"
)

// Option configures the root command.
type Option func(*app)

// WithConfig skips environment loading and uses cfg.
func WithConfig(cfg config.Client) Option {
	return func(a *app) {
		a.cfg = cfg
		a.cfgLoaded = true
	}
}

// WithLogger overrides the logger built from configuration.
func WithLogger(l *slog.Logger) Option {
	return func(a *app) {
		a.log = l
	}
}

// app holds everything a command needs once flags have been parsed.
type app struct {
	cfg       config.Client
	cfgLoaded bool
	output    string

	log       *slog.Logger
	store     *session.Store
	persister session.Persister
	service   *auth.Service
	client    *client.Client
	closers   []func() error
}

// NewRootCommand builds the command tree. Resources opened during setup are
// released after a successful run; Execute also releases them when the command
// fails.
func NewRootCommand(opts ...Option) *cobra.Command {
	return newApp(opts...).rootCommand()
}

func newApp(opts ...Option) *app {
	a := &app{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *app) rootCommand() *cobra.Command {
	var (
		gatewayURL   string
		timeout      time.Duration
		sessionStore string
		profile      string
	)

	root := &cobra.Command{
		Use:   "teamhub",
		Short: "TeamHub command line client",
		Long: `teamhub talks to the TeamHub gateway on behalf of a signed-in user.

Sign in once with "teamhub login"; the session is saved to a file (or Redis,
when TEAMHUB_SESSION_STORE is a redis:// URL) and reused until it expires.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !a.cfgLoaded {
				if err := config.LoadDotEnv(); err != nil {
					return err
				}
				cfg, err := config.ClientFromEnv()
				if err != nil {
					return err
				}
				a.cfg = cfg
			}
			flags := cmd.Flags()
			if flags.Changed("gateway") {
				a.cfg.GatewayURL = gatewayURL
			}
			if flags.Changed("timeout") {
				a.cfg.Timeout = timeout
			}
			if flags.Changed("session-store") {
				a.cfg.SessionStore = sessionStore
				if a.cfg.UsesRedis() {
					a.cfg.Redis = config.DefaultRedisConfig(sessionStore)
				}
			}
			if flags.Changed("profile") {
				a.cfg.Profile = profile
			}
			if a.output != "json" && a.output != "yaml" {
				return fmt.Errorf("--output must be json or yaml, got %q", a.output)
			}

			// one id per invocation, sent as X-Request-ID on every call
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = requestcontext.WithRequestID(ctx, uuid.NewString())
			cmd.SetContext(ctx)
			return a.setup(ctx, cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&gatewayURL, "gateway", "", "gateway base URL (default $TEAMHUB_GATEWAY_URL)")
	pf.DurationVar(&timeout, "timeout", 0, "per-request timeout (default $TEAMHUB_TIMEOUT or 30s)")
	pf.StringVar(&sessionStore, "session-store", "", "session file path or redis:// URL")
	pf.StringVar(&profile, "profile", "", "session profile name")
	pf.StringVarP(&a.output, "output", "o", "json", "output format: json or yaml")

	root.AddCommand(
		a.loginCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.projectsCmd(),
		a.tasksCmd(),
		a.membersCmd(),
		a.orgCmd(),
		a.adminCmd(),
		a.analyticsCmd(),
		a.dashboardCmd(),
		a.requestCmd(),
	)
	return root
}

// setup wires the session store, persister, client and login service, then
// restores any saved session.
func (a *app) setup(ctx context.Context, stderr io.Writer) error {
	if a.log == nil {
		a.log = logger.NewWithWriter(stderr, a.cfg.Environment, a.cfg.LogLevel)
	}

	persister, err := a.newPersister(ctx)
	if err != nil {
		return err
	}
	a.persister = persister
	a.store = session.NewStore()
	a.client = client.New(a.cfg.GatewayURL, a.store,
		client.WithTimeout(a.cfg.Timeout),
		client.WithLogger(a.log),
	)

	issuer, err := a.newIssuer()
	if err != nil {
		return err
	}
	a.service = auth.NewService(issuer, a.store,
		auth.WithPersister(a.persister),
		auth.WithLogger(a.log),
	)

	if _, _, err := a.service.Restore(ctx); err != nil {
		a.log.WarnContext(ctx, "ignoring saved session", "error", err)
	}
	return nil
}

func (a *app) newPersister(ctx context.Context) (session.Persister, error) {
	if !a.cfg.UsesRedis() {
		path, err := a.cfg.SessionFile()
		if err != nil {
			return nil, err
		}
		return session.NewFile(path), nil
	}
	rc, err := redis.New(ctx, a.cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}
	a.closers = append(a.closers, rc.Close)
	return session.NewRedis(rc.Client, session.WithProfile(a.cfg.Profile)), nil
}

func (a *app) newIssuer() (auth.Issuer, error) {
	if a.cfg.Auth == "dev" {
		return auth.NewDevIssuer(a.cfg.DevSigningKey, a.cfg.DevSecret)
	}
	return auth.NewUpstreamIssuer(a.client), nil
}

func (a *app) close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// Execute runs the CLI and returns the process exit code. Errors are printed
// to stderr in the "<kind> <code>: <message>" form.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer, opts ...Option) int {
	a := newApp(opts...)
	defer func() {
		if err := a.close(); err != nil && a.log != nil {
			a.log.WarnContext(ctx, "failed to release session store", "error", err)
		}
	}()

	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, FormatError(err))
		return ExitCode(err)
	}
	return 0
}
