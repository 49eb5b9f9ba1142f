// Package runcmd implements "goldrun run": execute a provisioning plan
// against the local host or a rehearsal container.
package runcmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"goldrun"
	"goldrun/cmd/goldrun/ui"
	"goldrun/internal/action"
	"goldrun/internal/config"
	"goldrun/internal/history"
	"goldrun/internal/hostinfo"
	"goldrun/internal/plan"
	"goldrun/internal/runlog"
	"goldrun/internal/sandbox"
	"goldrun/internal/tracing"
)

// Cmd returns the "goldrun run" command. debugFlag points at the root
// persistent flag value.
func Cmd(debugFlag *bool) *cobra.Command {
	var (
		logPath      string
		sandboxImage string
		otlpEndpoint string
		noHistory    bool
	)

	cmd := &cobra.Command{
		Use:   "run <plan.yaml>",
		Short: "Execute a provisioning plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			p, err := plan.Load(args[0])
			if err != nil {
				return err
			}

			if logPath == "" {
				logPath = cfg.LogPath(p.Name)
			}
			var logOpts []runlog.Option
			if *debugFlag {
				logOpts = append(logOpts, runlog.WithEcho(os.Stderr))
			}
			log, err := runlog.Open(logPath, logOpts...)
			if err != nil {
				// No audit trail, no run.
				return &goldrun.SinkError{Err: err}
			}
			defer log.Close()

			ctx := cmd.Context()

			ex, cleanup, err := execer(ctx, sandboxImage, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			steps := p.Compile(ex)

			endpoint := otlpEndpoint
			if endpoint == "" {
				endpoint = cfg.OTLPEndpoint
			}
			endRun := func(goldrun.Outcome) {}
			if endpoint != "" {
				shutdown, err := tracing.Setup(ctx, endpoint)
				if err != nil {
					return err
				}
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = shutdown(shutdownCtx)
				}()
				ctx, endRun = tracing.StartRun(ctx, p.Name)
				steps = tracing.Wrap(steps)
			}

			if err := log.Info(hostinfo.Collect().Summary()); err != nil {
				return &goldrun.SinkError{Err: err}
			}

			runner := &goldrun.Runner{Sink: log}
			closeProgress := attachProgress(runner, steps)

			started := time.Now()
			rep, runErr := runner.Run(ctx, p.Name, steps)
			closeProgress()
			endRun(rep.Outcome)

			if !noHistory {
				record(ctx, cfg, rep)
			}

			printSummary(rep, logPath, time.Since(started))
			return runErr
		},
	}

	cmd.Flags().StringVar(&logPath, "log", "", "Run log file (default: per-plan file under the configured log directory)")
	cmd.Flags().StringVar(&sandboxImage, "sandbox", "", "Rehearse command steps in a container of this image instead of the host")
	cmd.Flags().Lookup("sandbox").NoOptDefVal = config.DefaultSandboxImage
	cmd.Flags().StringVar(&otlpEndpoint, "otlp-endpoint", "", "Export run traces to this OTLP/HTTP endpoint")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record this run in the history database")
	return cmd
}

// execer picks where command steps run. Download and timesync steps
// always run on the host regardless.
func execer(ctx context.Context, sandboxImage string, cfg *config.Config) (action.Execer, func(), error) {
	if sandboxImage == "" {
		return action.Local{}, func() {}, nil
	}
	if sandboxImage == config.DefaultSandboxImage && cfg.SandboxImage != "" {
		sandboxImage = cfg.SandboxImage
	}

	docker, err := sandbox.Connect()
	if err != nil {
		return nil, nil, err
	}
	ctr := sandbox.New(docker, fmt.Sprintf("goldrun-rehearsal-%d", os.Getpid()), sandboxImage)
	if err := ctr.Start(ctx); err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := ctr.Stop(stopCtx); err != nil {
			slog.Warn("Sandbox cleanup failed.", "err", err)
		}
	}
	return ctr, cleanup, nil
}

// attachProgress wires either the live checklist or plain step lines to
// the runner, returning a close func.
func attachProgress(runner *goldrun.Runner, steps []goldrun.Step) func() {
	if !ui.IsInteractive() {
		runner.OnStep = func(ev goldrun.StepEvent) {
			fmt.Fprintln(os.Stderr, ui.PlainStepLine(ev))
		}
		return func() {}
	}

	labels := make([]string, len(steps))
	for i, s := range steps {
		labels[i] = s.Label
	}
	checklist := ui.NewChecklist(os.Stderr, labels)
	runner.OnStep = checklist.OnStep
	return checklist.Close
}

// record appends the run to the history database. History failures are
// diagnostics, not run failures: the durable run log already has the
// authoritative record.
func record(ctx context.Context, cfg *config.Config, rep *goldrun.Report) {
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		slog.Warn("History unavailable.", "err", err)
		return
	}
	defer store.Close()
	if _, err := store.Record(ctx, rep); err != nil {
		slog.Warn("Recording run history failed.", "err", err)
	}
}

func printSummary(rep *goldrun.Report, logPath string, elapsed time.Duration) {
	switch rep.Outcome {
	case goldrun.OutcomeCompleted:
		fmt.Println(ui.SuccessMsg("run completed: %s", rep.Plan))
	case goldrun.OutcomeHalted:
		fmt.Println(ui.ErrorMsg("run halted at %q", rep.HaltedAt))
	case goldrun.OutcomeLogUnavailable:
		fmt.Println(ui.ErrorMsg("run aborted: log unavailable"))
	}

	ok, ignored, failed := 0, 0, 0
	for _, r := range rep.Results {
		switch {
		case r.OK():
			ok++
		case r.Ignored:
			ignored++
		default:
			failed++
		}
	}
	fmt.Print(ui.KeyValues("  ",
		ui.KV("Steps", fmt.Sprintf("%d ok, %d ignored, %d failed", ok, ignored, failed)),
		ui.KV("Elapsed", elapsed.Round(time.Millisecond).String()),
		ui.KV("Log", logPath),
	))
}
