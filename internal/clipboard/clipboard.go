// Package clipboard reads text from the system clipboard on Windows and macOS.
package clipboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"gapi/internal/output"
)

// Falls back to the first file of a copied file list.
var powershellScript = strings.Join([]string{
	"$ErrorActionPreference='Stop';",
	"try { $t = Get-Clipboard -Raw; if ($t) { $t; exit 0 } } catch {}",
	"try { $files = Get-Clipboard -Format FileDropList; if ($files -and $files.Count -gt 0) { Get-Content -Raw -LiteralPath $files[0]; exit 0 } } catch {}",
	"exit 2",
}, " ")

// Runner executes a command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Reader reads the clipboard through the platform tool.
type Reader struct {
	GOOS string
	Run  Runner
}

// New returns a reader for the running platform.
func New() *Reader {
	return &Reader{GOOS: runtime.GOOS, Run: execOutput}
}

// Command returns the tool and arguments used on goos.
func Command(goos string) (name string, args []string, ok bool) {
	switch goos {
	case "windows":
		return "powershell.exe", []string{"-NoProfile", "-Command", powershellScript}, true
	case "darwin":
		return "pbpaste", nil, true
	}
	return "", nil, false
}

// Read returns the trimmed clipboard text.
func (r *Reader) Read(ctx context.Context) (string, error) {
	name, args, ok := Command(r.GOOS)
	if !ok {
		return "", output.UnsupportedPlatform("Clipboard mode is only supported on Windows and macOS.")
	}

	out, err := r.Run(ctx, name, args...)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", output.ClipboardReadFailed(name, err)
		}
		return "", fmt.Errorf("failed to run %s: %w", name, err)
	}

	text := strings.TrimSpace(string(out))
	if text == "" {
		return "", output.EmptyClipboard()
	}
	return text, nil
}

func execOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, err
	}
	return stdout.Bytes(), nil
}
