// Command gtm manages Google Tag Manager accounts, containers, workspaces and
// their entities. Every invocation prints one JSON document to stdout.
package main

import (
	"context"
	"os"
	"os/signal"

	"gapi/internal/app"
	"gapi/internal/cli"
)

var version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := app.Main(ctx, app.TagManager(version), os.Args[1:], cli.Stdin(), os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
