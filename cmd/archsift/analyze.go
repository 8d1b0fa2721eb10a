package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/efebarandurmaz/archsift/internal/analyzer"
	"github.com/efebarandurmaz/archsift/internal/config"
)

func newAnalyzeCmd(configPath *string) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "analyze <path>",
		Short: "Print structural metrics without evaluating complexity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), *configPath, args[0], output, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVarP(&output, "format", "f", "table", "Output format: table, json or yaml")
	return cmd
}

func runAnalyze(ctx context.Context, configPath, root, output string, stdout, stderr io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := cfg.Log.NewLogger(stderr)
	if err != nil {
		return err
	}

	a, err := analyzer.New(cfg.AnalyzerOptions(), logger)
	if err != nil {
		return err
	}
	m, err := a.Analyze(ctx, root)
	if err != nil {
		return err
	}
	return writeMetrics(stdout, m, output)
}

func writeMetrics(w io.Writer, m *analyzer.CodebaseMetrics, output string) error {
	switch strings.ToLower(output) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(m)
	case "table", "":
		return writeMetricsTable(w, m)
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", output)
	}
}

func writeMetricsTable(w io.Writer, m *analyzer.CodebaseMetrics) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Metric", "Value"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.PerColumn = []tw.Align{tw.AlignLeft, tw.AlignRight}
	})

	rows := [][]string{
		{"Root", m.Root},
		{"Files attempted", strconv.Itoa(m.FilesAttempted)},
		{"Files parsed", strconv.Itoa(m.FilesParsed)},
		{"Lines", strconv.Itoa(m.TotalLines)},
		{"Classes", strconv.Itoa(m.TotalClasses)},
		{"Functions", strconv.Itoa(m.TotalFunctions)},
		{"Async functions", strconv.Itoa(m.AsyncFunctions)},
		{"Imports", strconv.Itoa(m.TotalImports)},
		{"Import density", strconv.FormatFloat(m.ImportDensity, 'f', 2, 64)},
		{"Frameworks", joinOrNone(m.Frameworks)},
		{"Patterns", joinOrNone(m.Patterns)},
		{"Entry points", joinOrNone(m.Structure.EntryPoints)},
		{"Has tests", strconv.FormatBool(m.Structure.HasTests)},
		{"Has docs", strconv.FormatBool(m.Structure.HasDocs)},
		{"Skipped files", strconv.Itoa(len(m.Skipped))},
	}
	if err := table.Bulk(rows); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if len(m.Skipped) > 0 {
		fmt.Fprintln(w, "\nSkipped:")
		skipped := append([]analyzer.SkippedFile(nil), m.Skipped...)
		sort.Slice(skipped, func(i, j int) bool { return skipped[i].Path < skipped[j].Path })
		for _, s := range skipped {
			fmt.Fprintf(w, "  %s: %s\n", s.Path, s.Reason)
		}
	}
	return nil
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "None"
	}
	return strings.Join(items, ", ")
}
