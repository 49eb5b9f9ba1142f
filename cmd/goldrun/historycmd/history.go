// Package historycmd implements "goldrun history": query past runs
// recorded in the history database.
package historycmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"goldrun"
	"goldrun/cmd/goldrun/ui"
	"goldrun/internal/config"
	"goldrun/internal/history"
)

// Cmd returns the "goldrun history" command group.
func Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query recorded runs",
	}
	cmd.AddCommand(listCmd())
	cmd.AddCommand(showCmd())
	return cmd
}

func open() (*history.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return history.Open(cfg.HistoryPath())
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := open()
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Runs(cmd.Context())
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println(ui.Muted("no runs recorded"))
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				rows = append(rows, []string{
					strconv.FormatInt(r.ID, 10),
					r.Plan,
					r.StartedAt.Format(time.DateTime),
					outcome(r.Outcome, r.HaltedAt),
					strconv.Itoa(r.Steps),
				})
			}
			fmt.Println(ui.Table([]string{"ID", "Plan", "Started", "Outcome", "Steps"}, rows))
			return nil
		},
	}
}

func showCmd() *cobra.Command {
	var withOutput bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one run's step results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid run id %q", args[0])
			}

			store, err := open()
			if err != nil {
				return err
			}
			defer store.Close()

			run, steps, err := store.Get(cmd.Context(), id)
			if err != nil {
				return err
			}

			fmt.Print(ui.KeyValues("  ",
				ui.KV("Run", strconv.FormatInt(run.ID, 10)),
				ui.KV("Plan", run.Plan),
				ui.KV("Started", run.StartedAt.Format(time.DateTime)),
				ui.KV("Outcome", outcome(run.Outcome, run.HaltedAt)),
			))

			rows := make([][]string, 0, len(steps))
			for _, s := range steps {
				rows = append(rows, []string{
					strconv.Itoa(s.Seq + 1),
					s.Label,
					s.Status,
					s.EndedAt.Sub(s.StartedAt).Round(time.Millisecond).String(),
				})
			}
			fmt.Println(ui.Table([]string{"#", "Step", "Status", "Elapsed"}, rows))

			if withOutput {
				for _, s := range steps {
					if s.Output == "" {
						continue
					}
					fmt.Println(ui.Bold(s.Label))
					fmt.Println(s.Output)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withOutput, "output", false, "Include each step's captured output")
	return cmd
}

func outcome(o goldrun.Outcome, haltedAt string) string {
	switch o {
	case goldrun.OutcomeCompleted:
		return ui.Success(string(o))
	case goldrun.OutcomeHalted:
		return ui.ErrorStyle.Render(fmt.Sprintf("halted at %q", haltedAt))
	default:
		return ui.Warn(string(o))
	}
}
