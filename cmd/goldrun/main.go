package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"goldrun"
	"goldrun/cmd/goldrun/historycmd"
	"goldrun/cmd/goldrun/plancmd"
	"goldrun/cmd/goldrun/runcmd"
	"goldrun/cmd/goldrun/ui"
	"goldrun/internal/logging"
	"goldrun/internal/support/buildinfo"
)

func main() {
	var (
		debug bool
		plain bool
	)
	if err := logging.Configure(logging.LevelWarn); err != nil {
		_, _ = os.Stderr.WriteString("configure logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:           "goldrun",
		Short:         "Provisioning step runner for golden VM images",
		Version:       buildinfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := logging.LevelWarn
			if debug {
				level = logging.LevelDebug
			}
			if err := logging.Configure(level); err != nil {
				return err
			}
			// Debug echo and in-place redraw fight over the terminal;
			// debug wins and forces plain step lines.
			ui.ConfigureInteraction(plain || debug)
			return nil
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Echo the run log to the console and enable debug logging")
	root.PersistentFlags().BoolVar(&plain, "plain", false, "Disable colors and animated output")

	root.AddCommand(runcmd.Cmd(&debug))
	root.AddCommand(plancmd.Cmd())
	root.AddCommand(historycmd.Cmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.ErrorMsg("%v", err))
		os.Exit(exitCode(err))
	}
}

// exitCode distinguishes "the image is bad" (a fatal step halted the
// run) from "the audit trail is bad" (the log could not be written) for
// the calling orchestrator.
func exitCode(err error) int {
	var sinkErr *goldrun.SinkError
	if errors.As(err, &sinkErr) {
		return 2
	}
	return 1
}
