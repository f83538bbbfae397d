package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/adanyl0v/go-todo/internal/app"
	"github.com/adanyl0v/go-todo/internal/client"
	"github.com/adanyl0v/go-todo/internal/config"
	"github.com/adanyl0v/go-todo/internal/todosync"
	"github.com/adanyl0v/go-todo/internal/tui"
)

var errMissingCredentials = errors.New("email and password are required (--email/--password or TODO_EMAIL/TODO_PASSWORD)")

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Env      string
	Server   string
	Email    string
	Password string
	LogFile  string
	Config   *config.ClientConfig

	logger zerolog.Logger
}

// NewRootCommand creates the todo command. Without a subcommand it opens
// the interactive list.
func NewRootCommand(cfg *config.ClientConfig) *cobra.Command {
	opts := &RootOptions{
		Config: cfg,
		logger: zerolog.Nop(),
	}

	cmd := &cobra.Command{
		Use:           "todo",
		Short:         "Realtime todo list",
		Long:          "Manage your todos from the terminal. Changes made elsewhere show up live.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := app.NewClientLogger(opts.Env, opts.LogFile)
			if err != nil {
				return fmt.Errorf("failed to init logger: %w", err)
			}
			opts.logger = logger
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd.Context(), opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Server, "server", cfg.ServerURL, "todo server url")
	cmd.PersistentFlags().StringVar(&opts.Email, "email", cfg.Email, "account email")
	cmd.PersistentFlags().StringVar(&opts.Password, "password", cfg.Password, "account password")
	cmd.PersistentFlags().StringVar(&opts.LogFile, "log-file", cfg.LogFile, "log file path")
	cmd.PersistentFlags().StringVar(&opts.Env, "env", cfg.Env, "log level preset (local|dev|prod)")

	cmd.AddCommand(NewRegisterCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewToggleCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))

	return cmd
}

func (o *RootOptions) newClient() (*client.Client, error) {
	return client.New(o.logger.With().Str("component", "client").Logger(), o.Server, o.Config.Timeout)
}

// signIn returns a client with a signed in session.
func (o *RootOptions) signIn(ctx context.Context) (*client.Client, *client.Session, error) {
	if o.Email == "" || o.Password == "" {
		return nil, nil, errMissingCredentials
	}

	c, err := o.newClient()
	if err != nil {
		return nil, nil, err
	}
	session := client.NewSession(c)
	err = session.SignIn(ctx, o.Email, o.Password)
	if err != nil {
		return nil, nil, err
	}
	o.logger.Info().
		Str("user_id", session.UserID()).
		Msg("signed in")
	return c, session, nil
}

func runInteractive(ctx context.Context, opts *RootOptions) error {
	c, session, err := opts.signIn(ctx)
	if err != nil {
		return err
	}
	return tui.Run(ctx, opts.logger.With().Str("component", "sync").Logger(), c, session, session.Email())
}

// failures keeps the first error notification of each operation.
type failures struct {
	mu   sync.Mutex
	errs map[todosync.Op]error
}

func (f *failures) Notify(n todosync.Notification) {
	if n.Level != todosync.LevelError {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errs == nil {
		f.errs = make(map[todosync.Op]error)
	}
	if _, ok := f.errs[n.Op]; !ok {
		f.errs[n.Op] = errors.New(n.String())
	}
}

func (f *failures) err(op todosync.Op) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errs[op]
}

// withController signs in, waits for the initial load and runs fn against
// the loaded list.
func withController(
	ctx context.Context,
	opts *RootOptions,
	fn func(ctx context.Context, ctrl *todosync.Controller) error,
) error {
	c, session, err := opts.signIn(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	notes := &failures{}
	ctrl := todosync.New(opts.logger.With().Str("component", "sync").Logger(), c, session, notes, todosync.Options{})
	go func() { _ = ctrl.Run(ctx) }()
	defer func() {
		cancel()
		<-ctrl.Done()
	}()

	select {
	case <-ctrl.Ready():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := notes.err(todosync.OpLoad); err != nil {
		return err
	}
	return fn(ctx, ctrl)
}
