// Package app assembles a binary: logging, state directory, settings, the
// auth commands and the API command table behind one cobra root command.
package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"

	"golang.org/x/oauth2/google"

	"gapi/internal/analyticsadmin"
	"gapi/internal/api"
	"gapi/internal/auth"
	"gapi/internal/cli"
	"gapi/internal/clipboard"
	"gapi/internal/config"
	"gapi/internal/output"
	"gapi/internal/preset"
	"gapi/internal/resource"
	"gapi/internal/tagmanager"
)

// VerboseEnv enables debug logging when set to a true value.
const VerboseEnv = "GAPI_VERBOSE"

// Binary describes one command-line tool.
type Binary struct {
	Name    string
	Short   string
	Version string
	Presets preset.Set
	// BaseURL returns the API root, applying any settings override.
	BaseURL func(s *config.Settings) string
	Routes  func(f *resource.Factory) []cli.Route
}

// TagManager is the gtm binary.
func TagManager(version string) Binary {
	return Binary{
		Name:    tagmanager.Name,
		Short:   "Google Tag Manager v2 from the command line",
		Version: version,
		Presets: tagmanager.Presets,
		BaseURL: func(s *config.Settings) string {
			if s.TagManagerBaseURL != "" {
				return s.TagManagerBaseURL
			}
			return tagmanager.BaseURL
		},
		Routes: tagmanager.Routes,
	}
}

// AnalyticsAdmin is the ga binary.
func AnalyticsAdmin(version string) Binary {
	return Binary{
		Name:    analyticsadmin.Name,
		Short:   "Google Analytics Admin v1beta from the command line",
		Version: version,
		Presets: analyticsadmin.Presets,
		BaseURL: func(s *config.Settings) string {
			if s.AnalyticsAdminBaseURL != "" {
				return s.AnalyticsAdminBaseURL
			}
			return analyticsadmin.BaseURL
		},
		Routes: analyticsadmin.Routes,
	}
}

// Main runs one invocation of b and returns the process exit code. stdout
// receives exactly one JSON document; diagnostics go to stderr.
func Main(ctx context.Context, b Binary, args []string, stdin *cli.Input, stdout, stderr io.Writer) int {
	// cobra reads os.Args when handed nil
	if args == nil {
		args = []string{}
	}
	log := newLogger(args, stderr)

	paths, err := config.ResolvePaths(os.Getenv(config.HomeEnv))
	if err != nil {
		return output.Render(stdout, nil, err)
	}
	log.Debug("state directory", "dir", paths.Dir)

	settings, err := config.LoadSettings(paths.Settings)
	if err != nil {
		return output.Render(stdout, nil, err)
	}

	store := auth.NewStore(paths.Token, b.Name)
	clients := &auth.ClientFactory{
		Paths:    paths,
		Self:     b.Name,
		Endpoint: google.Endpoint,
		Store:    store,
	}

	baseURL := b.BaseURL(settings)
	userAgent := b.Name + "/" + b.Version
	connect := func(ctx context.Context) (resource.Service, error) {
		httpClient, err := clients.HTTPClient(ctx)
		if err != nil {
			return nil, err
		}
		return api.NewClient(httpClient, baseURL, userAgent, log), nil
	}

	commands := &auth.Commands{
		Flow: &auth.Flow{
			Paths:    paths,
			Self:     b.Name,
			Store:    store,
			Endpoint: google.Endpoint,
			OpenURL:  auth.OpenBrowser,
			Prompt:   stderr,
			Log:      log,
		},
		Paths:     paths,
		Presets:   b.Presets,
		Settings:  settings,
		Input:     stdin,
		Clipboard: clipboard.New(),
		Log:       log,
	}

	routes := commands.Routes()
	routes = append(routes, b.Routes(resource.NewFactory(connect, stdin))...)
	router := cli.NewRouter(b.Name, routes)

	exitCode := output.ExitOK
	root := cli.NewRootCmd(b.Name, b.Short, b.Version, router, &exitCode)
	root.SetArgs(args)
	root.SetIn(stdin.Reader)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		return output.Render(stdout, nil, err)
	}
	return exitCode
}

// newLogger writes text logs to stderr. --verbose or GAPI_VERBOSE lowers the
// level from WARN to DEBUG.
func newLogger(args []string, stderr io.Writer) *slog.Logger {
	_, flags := cli.Parse(args)
	verbose := flags.Bool("verbose")
	if on, err := strconv.ParseBool(os.Getenv(VerboseEnv)); err == nil && on {
		verbose = true
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
}
