package auth

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gapi/internal/cli"
	"gapi/internal/clipboard"
	"gapi/internal/config"
	"gapi/internal/output"
	"gapi/internal/preset"
)

// Commands implements the auth command group shared by both binaries.
type Commands struct {
	Flow      *Flow
	Paths     config.Paths
	Presets   preset.Set
	Settings  *config.Settings
	Input     *cli.Input
	Clipboard *clipboard.Reader
	Log       *slog.Logger
}

// Routes returns the auth command table.
func (c *Commands) Routes() []cli.Route {
	return []cli.Route{
		{Command: "auth login", Handler: c.Login},
		{Command: "auth credentials set", Handler: c.SetCredentials},
		{Command: "auth credentials paste-win", Handler: c.PasteWindows},
		{Command: "auth credentials paste-macos", Handler: c.PasteMacOS},
	}
}

// Login runs the browser authorization flow.
//
// Flags: --scopes <list>, --preset readonly|edit|publish, --timeout <seconds>,
// --no-browser.
func (c *Commands) Login(ctx context.Context, flags cli.Flags) (*output.Response, error) {
	name := flags.String("preset")
	if name == "" && c.Settings != nil {
		name = c.Settings.DefaultPreset
	}
	if _, known := c.Presets[name]; name != "" && !known && flags.String("scopes") == "" {
		c.logger().Warn("unknown scope preset, using default", "preset", name, "default", preset.Default, "known", c.Presets.Names())
	}
	scopes := c.Presets.Resolve(flags.String("scopes"), name)

	timeout, err := c.loginTimeout(flags)
	if err != nil {
		return nil, err
	}

	openBrowser := !flags.Bool("no-browser")
	if c.Settings != nil && !c.Settings.BrowserEnabled() {
		openBrowser = false
	}

	err = c.Flow.Run(ctx, LoginOptions{
		Scopes:      scopes,
		Timeout:     timeout,
		OpenBrowser: openBrowser,
	})
	if err != nil {
		return nil, err
	}
	return &output.Response{OK: true, Action: "auth.login", Scopes: scopes}, nil
}

func (c *Commands) loginTimeout(flags cli.Flags) (time.Duration, error) {
	timeout := DefaultLoginTimeout
	if c.Settings != nil && c.Settings.LoginTimeout > 0 {
		timeout = seconds(c.Settings.LoginTimeout)
	}
	if !flags.Has("timeout") {
		return timeout, nil
	}

	raw := flags.String("timeout")
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil || secs < 0 {
		return 0, output.InvalidArg("timeout", raw)
	}
	return seconds(secs), nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// SetCredentials imports the OAuth client JSON from --file or stdin.
func (c *Commands) SetCredentials(ctx context.Context, flags cli.Flags) (*output.Response, error) {
	return c.importCredentials(ctx, flags, false)
}

// PasteWindows imports the OAuth client JSON from the Windows clipboard.
func (c *Commands) PasteWindows(ctx context.Context, flags cli.Flags) (*output.Response, error) {
	if c.Clipboard.GOOS != "windows" {
		return nil, output.UnsupportedPlatform("paste-win is only supported on Windows.")
	}
	return c.importCredentials(ctx, flags, true)
}

// PasteMacOS imports the OAuth client JSON from the macOS clipboard.
func (c *Commands) PasteMacOS(ctx context.Context, flags cli.Flags) (*output.Response, error) {
	if c.Clipboard.GOOS != "darwin" {
		return nil, output.UnsupportedPlatform("paste-macos is only supported on macOS.")
	}
	return c.importCredentials(ctx, flags, true)
}

func (c *Commands) importCredentials(ctx context.Context, flags cli.Flags, fromClipboard bool) (*output.Response, error) {
	path := c.Paths.Credentials

	exists, err := config.Exists(path)
	if err != nil {
		return nil, fmt.Errorf("failed to check credentials file: %w", err)
	}
	if exists && !flags.Bool("overwrite") {
		return nil, output.CredentialsAlreadyExist(path)
	}

	raw, err := c.readCredentials(ctx, flags, fromClipboard)
	if err != nil {
		return nil, err
	}

	body, err := cli.ParseBody(raw)
	if err != nil {
		return nil, output.InvalidJSON("Invalid JSON input.")
	}
	if _, err := config.ParseCredentials(body.JSON); err != nil {
		return nil, output.InvalidCredentials("Invalid credentials JSON.")
	}

	if err := c.Paths.EnsureDir(); err != nil {
		return nil, err
	}
	if err := config.WriteJSON(path, body.JSON); err != nil {
		return nil, err
	}
	c.logger().Debug("credentials saved", "path", path)

	return &output.Response{OK: true, Action: "auth.credentials.set", Path: path}, nil
}

// readCredentials takes clipboard text first, then --file, then piped stdin.
func (c *Commands) readCredentials(ctx context.Context, flags cli.Flags, fromClipboard bool) ([]byte, error) {
	if fromClipboard {
		text, err := c.Clipboard.Read(ctx)
		if err != nil {
			return nil, err
		}
		return []byte(text), nil
	}

	if file := flags.String("file"); file != "" {
		abs, err := filepath.Abs(file)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", file, err)
		}
		data, err := os.ReadFile(abs)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		return data, nil
	}

	return c.Input.ReadPiped("No --file provided and stdin is empty.")
}

func (c *Commands) logger() *slog.Logger {
	if c.Log != nil {
		return c.Log
	}
	return slog.New(slog.DiscardHandler)
}
