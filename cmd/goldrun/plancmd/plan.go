// Package plancmd implements "goldrun plan": inspect and validate plan
// files without running them.
package plancmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"goldrun/cmd/goldrun/ui"
	"goldrun/internal/plan"
)

// Cmd returns the "goldrun plan" command group.
func Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Inspect and validate provisioning plans",
	}
	cmd.AddCommand(validateCmd())
	cmd.AddCommand(showCmd())
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <plan.yaml>...",
		Short: "Validate plan files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			invalid := 0
			for _, path := range args {
				p, err := plan.Load(path)
				if err != nil {
					invalid++
					fmt.Println(ui.ErrorMsg("%s: %v", path, err))
					continue
				}
				fmt.Println(ui.SuccessMsg("%s: %s (%d steps)", path, p.Name, len(p.Steps)))
			}
			if invalid > 0 {
				return fmt.Errorf("%d of %d plans invalid", invalid, len(args))
			}
			return nil
		},
	}
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <plan.yaml>",
		Short: "Show a plan's steps and policies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := plan.Load(args[0])
			if err != nil {
				return err
			}

			fmt.Print(ui.KeyValues("  ",
				ui.KV("Plan", p.Name),
				ui.KV("Description", p.Description),
				ui.KV("Steps", strconv.Itoa(len(p.Steps))),
			))

			rows := make([][]string, 0, len(p.Steps))
			for i, s := range p.Steps {
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					s.Name,
					kind(s),
					policy(s.Ignorable),
				})
			}
			fmt.Println(ui.Table([]string{"#", "Step", "Kind", "On failure"}, rows))
			return nil
		},
	}
}

func kind(s plan.StepSpec) string {
	switch {
	case s.Run != "":
		return "command"
	case s.Download != nil:
		return "download"
	default:
		return "timesync"
	}
}

func policy(ignorable bool) string {
	if ignorable {
		return "continue"
	}
	return "halt"
}
