package cli

import (
	"github.com/spf13/cobra"

	"gapi/internal/output"
)

// NewRootCmd wraps the router in a cobra root command. Flag parsing is left to
// Parse so unknown flags reach the handlers untouched. The exit code of the
// dispatched command is stored in exitCode.
func NewRootCmd(name, short, version string, router *Router, exitCode *int) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <resource> <verb> [flags]",
		Short: short,
		Long: short + `

Every invocation prints exactly one JSON document to stdout.
Run "` + name + ` help" for the full command list.`,
		Args:               cobra.ArbitraryArgs,
		DisableFlagParsing: true,
		SilenceErrors:      true,
		SilenceUsage:       true,
		RunE: func(cmd *cobra.Command, args []string) error {
			positional, flags := Parse(args)
			if len(positional) == 0 && flags.Has("version") {
				*exitCode = output.Render(cmd.OutOrStdout(), &output.Response{OK: true, Version: version}, nil)
				return nil
			}
			*exitCode = router.Dispatch(cmd.Context(), cmd.OutOrStdout(), positional, flags)
			return nil
		},
	}
}
