// Package cli implements the ideactl command line client.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ideaclient/infrastructure/config"
	"ideaclient/infrastructure/di"
)

// Builder assembles the client for a loaded configuration
type Builder func(ctx context.Context, cfg *config.Config, out io.Writer) (*di.Container, func(), error)

type App struct {
	ConfigPath      string
	APIURL          string
	MetricsTextfile string
	PrettyJSON      bool

	build      Builder
	forceWatch bool
	container  *di.Container
	cleanup    func()
}

// Execute runs ideactl with args and returns the process exit code
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	return run(ctx, args, stdout, stderr, di.InitializeContainer)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, build Builder) int {
	app := &App{build: build}
	cmd := NewRootCmd(app)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if closeErr := app.Close(); closeErr != nil && err == nil {
		fmt.Fprintln(stderr, closeErr.Error())
		err = closeErr
	}
	if err != nil {
		return 1
	}
	return 0
}

func NewRootCmd(app *App) *cobra.Command {
	if app.build == nil {
		app.build = di.InitializeContainer
	}

	cmd := &cobra.Command{
		Use:           "ideactl",
		Short:         "Command line client for the ideas API",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  # Sign in; the session is kept until logout or expiry
  ideactl login --email me@example.com --password secret

  # Work with ideas
  ideactl ideas create --name "Podcast" --description "Weekly show"
  ideactl ideas list
  ideactl ideas comment 12 --content "Needs a co-host"

  # Follow the session as other terminals log in and out
  ideactl whoami --watch
`),
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", "", "Path to a YAML config file (default: $"+config.EnvConfigPath+")")
	cmd.PersistentFlags().StringVar(&app.APIURL, "api-url", "", "API base URL (overrides config)")
	cmd.PersistentFlags().StringVar(&app.MetricsTextfile, "metrics-textfile", "", "Write Prometheus metrics to this file on exit")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newRegisterCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newWhoamiCmd(app))
	cmd.AddCommand(newIdeasCmd(app))
	cmd.AddCommand(newTagsCmd(app))
	cmd.AddCommand(newScriptsCmd(app))
	cmd.AddCommand(newUsersCmd(app))
	cmd.AddCommand(newConfigCmd(app))

	return cmd
}

func (app *App) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(app.ConfigPath)
	if err != nil {
		return nil, err
	}
	if app.APIURL != "" {
		cfg.API.BaseURL = app.APIURL
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	if app.MetricsTextfile != "" {
		cfg.Metrics.Textfile = app.MetricsTextfile
	}
	if app.forceWatch && cfg.Session.Backend == config.BackendFile {
		cfg.Session.Watch = true
	}
	return cfg, nil
}

// connect builds the client on first use and restores the saved session
func (app *App) connect(cmd *cobra.Command) (*di.Container, error) {
	if app.container != nil {
		return app.container, nil
	}

	cfg, err := app.loadConfig()
	if err != nil {
		return nil, err
	}
	container, cleanup, err := app.build(cmd.Context(), cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	app.container, app.cleanup = container, cleanup

	container.Session.Restore(cmd.Context())
	return container, nil
}

// Close writes the metrics textfile, if any, and releases the client
func (app *App) Close() error {
	if app.container == nil {
		return nil
	}
	defer func() {
		app.cleanup()
		app.container, app.cleanup = nil, nil
	}()

	path := app.container.Config.Metrics.Textfile
	if path == "" {
		return nil
	}
	if err := app.container.Metrics.WriteTextfile(path); err != nil {
		app.container.Logger.Warn("Failed to write metrics", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	if app.PrettyJSON {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(map[string]any{"data": v})
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), "error: "+err.Error())
	return err
}

func parseID(kind, arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", kind, arg)
	}
	return id, nil
}
