package clipboard

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gapi/internal/output"
)

func stub(out string, err error) (Runner, *[]string) {
	var called []string
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		called = append(called, name)
		return []byte(out), err
	}, &called
}

func TestReadMacOS(t *testing.T) {
	run, called := stub("  {\"installed\":{}}\n", nil)
	r := &Reader{GOOS: "darwin", Run: run}

	text, err := r.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `{"installed":{}}`, text)
	assert.Equal(t, []string{"pbpaste"}, *called)
}

func TestReadWindowsUsesPowerShell(t *testing.T) {
	name, args, ok := Command("windows")
	require.True(t, ok)
	assert.Equal(t, "powershell.exe", name)
	assert.Equal(t, "-NoProfile", args[0])
	assert.Contains(t, args[2], "Get-Clipboard -Raw")
	assert.Contains(t, args[2], "FileDropList")
}

func TestReadUnsupported(t *testing.T) {
	run, called := stub("", nil)
	r := &Reader{GOOS: "linux", Run: run}

	_, err := r.Read(context.Background())
	require.Error(t, err)
	assert.Equal(t, output.KindUnsupportedPlatform, output.AsError(err).Kind)
	assert.Empty(t, *called)
}

func TestReadEmpty(t *testing.T) {
	run, _ := stub(" \r\n", nil)
	r := &Reader{GOOS: "darwin", Run: run}

	_, err := r.Read(context.Background())
	require.Error(t, err)
	assert.Equal(t, output.KindEmptyClipboard, output.AsError(err).Kind)
}

func TestReadToolFailure(t *testing.T) {
	run, _ := stub("", &exec.ExitError{})
	r := &Reader{GOOS: "windows", Run: run}

	_, err := r.Read(context.Background())
	require.Error(t, err)
	e := output.AsError(err)
	assert.Equal(t, output.KindClipboardReadFailed, e.Kind)
	assert.Equal(t, "Failed to read clipboard via powershell.exe.", e.Message)
}

func TestReadToolMissing(t *testing.T) {
	run, _ := stub("", exec.ErrNotFound)
	r := &Reader{GOOS: "darwin", Run: run}

	_, err := r.Read(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, exec.ErrNotFound))
	assert.Equal(t, output.Kind(""), output.AsError(err).Kind)
}
