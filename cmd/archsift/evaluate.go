package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/efebarandurmaz/archsift/internal/app"
	"github.com/efebarandurmaz/archsift/internal/config"
	"github.com/efebarandurmaz/archsift/internal/evaluator"
	"github.com/efebarandurmaz/archsift/internal/observability"
	"github.com/efebarandurmaz/archsift/internal/pipeline"
	temporalmod "github.com/efebarandurmaz/archsift/internal/temporal"
)

var (
	eligibleColor   = color.New(color.FgGreen, color.Bold)
	ineligibleColor = color.New(color.FgRed, color.Bold)
	fallbackColor   = color.New(color.FgYellow)
)

type evaluateFlags struct {
	handoff string
	remote  bool
	timings bool
	json    bool
}

func newEvaluateCmd(configPath *string) *cobra.Command {
	var f evaluateFlags

	cmd := &cobra.Command{
		Use:   "evaluate <path>",
		Short: "Analyze a codebase and decide whether it is eligible for generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runEvaluate(ctx, *configPath, args[0], f, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVar(&f.handoff, "handoff", "", "Write the hand-off document for eligible runs (.json or .yaml)")
	cmd.Flags().BoolVar(&f.remote, "remote", false, "Run as a Temporal workflow on a worker")
	cmd.Flags().BoolVar(&f.timings, "timings", false, "Print the run report with stage timings")
	cmd.Flags().BoolVar(&f.json, "json", false, "Print the run report as JSON instead of the summary")
	return cmd
}

func runEvaluate(ctx context.Context, configPath, root string, f evaluateFlags, stdout, stderr io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := cfg.Log.NewLogger(stderr)
	if err != nil {
		return err
	}

	tp, err := observability.InitTracing(ctx, cfg.TracingConfig("archsift", version))
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
	} else {
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	if f.remote {
		return runRemote(ctx, cfg, root, f, stdout, logger)
	}

	stages, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}

	opts := []pipeline.Option{pipeline.WithLogger(logger)}
	if f.handoff != "" {
		opts = append(opts, pipeline.WithHandoff(pipeline.FileHandoff{Path: f.handoff}))
	}
	st, err := pipeline.New(stages.Analyzer, stages.Evaluator, opts...).Run(ctx, root)
	if err != nil {
		if f.timings && st != nil {
			st.Report().PrintSummary(stderr)
		}
		return err
	}

	if f.json {
		data, err := st.Report().JSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, string(data))
	} else {
		fmt.Fprint(stdout, st.Summary())
		printVerdict(stdout, st.Decision())
	}
	if f.timings {
		st.Report().PrintSummary(stderr)
	}
	if herr := st.HandoffErr(); herr != nil {
		fmt.Fprintf(stderr, "Warning: hand-off failed: %v\n", herr)
	}
	return verdictExit(st.Decision())
}

func runRemote(ctx context.Context, cfg *config.Config, root string, f evaluateFlags, stdout io.Writer, logger *slog.Logger) error {
	c, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("temporal client: %w", err)
	}
	defer c.Close()

	logger.Info("submitting evaluation workflow", "task_queue", cfg.Temporal.TaskQueue, "root", root)
	out, err := temporalmod.RunRemote(ctx, c, cfg.Temporal.TaskQueue, temporalmod.EvaluationInput{
		Root:        root,
		HandoffPath: f.handoff,
	})
	if err != nil {
		return err
	}

	fmt.Fprint(stdout, out.Summary)
	printVerdict(stdout, out.Decision)
	if out.HandoffError != "" {
		logger.Warn("hand-off failed", "error", out.HandoffError)
	}
	return verdictExit(out.Decision)
}

func printVerdict(w io.Writer, d *evaluator.Decision) {
	if d == nil {
		return
	}
	fmt.Fprintln(w)
	if d.Eligible {
		eligibleColor.Fprintf(w, "ELIGIBLE")
	} else {
		ineligibleColor.Fprintf(w, "NOT ELIGIBLE")
	}
	fmt.Fprintf(w, "  %s (%.1f/10)\n", d.Level, d.Score)
	if d.Fallback() {
		fallbackColor.Fprintln(w, "reasoning service unavailable, deterministic fallback used")
	}
}

func verdictExit(d *evaluator.Decision) error {
	if d != nil && d.Eligible {
		return nil
	}
	return exitCode(exitNotEligible)
}
