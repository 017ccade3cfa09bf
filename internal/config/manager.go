// Package config manages the state directory: the OAuth client credentials,
// the token file location and the optional settings.yaml.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"gapi/internal/output"
)

const (
	StateDirName        = ".gapis"
	CredentialsFileName = "credentials.json"
	TokenFileName       = "token.json"
	SettingsFileName    = "settings.yaml"

	// HomeEnv overrides the state directory location.
	HomeEnv = "GAPI_HOME"
)

// ResolvePaths returns the state file locations. home wins when set;
// otherwise the state directory sits next to the executable.
func ResolvePaths(home string) (Paths, error) {
	dir := home
	if dir == "" {
		exe, err := os.Executable()
		if err != nil {
			return Paths{}, fmt.Errorf("failed to locate executable: %w", err)
		}
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		dir = filepath.Join(filepath.Dir(exe), StateDirName)
	}
	return PathsIn(dir), nil
}

// PathsIn returns the state file locations inside dir
func PathsIn(dir string) Paths {
	return Paths{
		Dir:         dir,
		Credentials: filepath.Join(dir, CredentialsFileName),
		Token:       filepath.Join(dir, TokenFileName),
		Settings:    filepath.Join(dir, SettingsFileName),
	}
}

// EnsureDir creates the state directory if it doesn't exist
func (p Paths) EnsureDir() error {
	// user read/write/execute only
	if err := os.MkdirAll(p.Dir, 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	return nil
}

// LoadSettings reads settings.yaml. A missing file yields empty settings.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Settings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}
	return &settings, nil
}

// LoadCredentials reads and validates the OAuth client file. self is the
// command prefix shown in the import instructions.
func LoadCredentials(path, self string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, output.MissingCredentials(fmt.Sprintf(`Missing OAuth credentials at %s.

Set credentials from a downloaded Google OAuth Desktop App JSON:
  %[2]s auth credentials set --file /path/to/credentials.json

Or use clipboard shortcuts:
  %[2]s auth credentials paste-win --overwrite  (Windows)
  %[2]s auth credentials paste-macos --overwrite  (macOS)`, path, self))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	creds, err := ParseCredentials(data)
	if err != nil {
		return nil, output.InvalidCredentials(fmt.Sprintf("Invalid credentials file format at %s.", path))
	}
	return creds, nil
}

// ParseCredentials extracts the client from an {"installed":{...}} or
// {"web":{...}} document. Both client_id and client_secret must be set.
func ParseCredentials(data []byte) (*Credentials, error) {
	var file clientFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}

	block := file.Installed
	if block == nil {
		block = file.Web
	}
	if block == nil || block.ClientID == "" || block.ClientSecret == "" {
		return nil, errors.New("credentials must contain an installed or web client with client_id and client_secret")
	}

	return &Credentials{
		ClientID:     block.ClientID,
		ClientSecret: block.ClientSecret,
		RedirectURIs: block.RedirectURIs,
	}, nil
}

// Exists reports whether path exists
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// WriteJSON writes v as indented, newline-terminated JSON, creating parent
// directories as needed.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	// user read/write only
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}
