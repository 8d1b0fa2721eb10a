package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/efebarandurmaz/archsift/internal/apperr"
)

// Process exit codes.
const (
	exitEligible    = 0
	exitNotEligible = 1
	exitError       = 2
)

var version = "0.1.0"

// exitCode carries a non-error exit status out of a command.
type exitCode int

func (c exitCode) Error() string { return fmt.Sprintf("exit status %d", int(c)) }

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	return execute(context.Background(), args, os.Stderr)
}

func execute(ctx context.Context, args []string, stderr io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return exitEligible
	}
	var code exitCode
	if errors.As(err, &code) {
		return int(code)
	}
	fmt.Fprintf(stderr, "Error: %s\n  %v\n", apperr.Category(err), err)
	return exitError
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "archsift",
		Short:         "Complexity gate for Python codebases",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default ./archsift.yaml when present)")

	rootCmd.AddCommand(
		newEvaluateCmd(&configPath),
		newAnalyzeCmd(&configPath),
		newProvidersCmd(),
	)
	return rootCmd
}
