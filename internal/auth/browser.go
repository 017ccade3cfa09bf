package auth

import (
	"io"

	"github.com/pkg/browser"
)

// OpenBrowser opens url in the default browser. Output of the launcher is
// discarded so it cannot interleave with the JSON result.
func OpenBrowser(url string) error {
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
	return browser.OpenURL(url)
}
