package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lineagekit/tsql-lineage/pkg/lineage"
	"github.com/spf13/cobra"
)

// NewExtractCommand creates the extract command: the CLI's sole operation,
// parsing a T-SQL script and reporting the column lineage it contains.
func NewExtractCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract [file]",
		Short: "Extract column lineage from a T-SQL script",
		Long: `Extract parses a T-SQL script and reports the column-level lineage it
contains: which source columns and expressions feed which target columns.

With no file argument, or with "-", the script is read from stdin.`,
		Example: `  # Extract lineage from a file, printed as text
  tsqllineage extract migration.sql

  # Extract lineage from stdin, as JSON
  cat migration.sql | tsqllineage extract -o json

  # Render a statistics table instead of individual edges
  tsqllineage extract -o table migration.sql`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, args)
		},
	}
	return cmd
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	script, err := readScript(args)
	if err != nil {
		return err
	}

	opts := lineage.DefaultOptions()
	opts.ExtractTableReferences = cfg.ExtractTableReferences
	opts.ExtractColumnReferences = cfg.ExtractColumnReferences
	opts.UseQuotedIdentifiers = cfg.UseQuotedIdentifiers
	opts.CompatibilityLevel = compatLevelFromString(cfg.CompatLevel)
	if cfg.MaxNestedQueryDepth > 0 {
		opts.MaxNestedQueryDepth = cfg.MaxNestedQueryDepth
	}
	opts.Concurrency = cfg.Concurrency

	ctx := cmd.Context()
	var result *lineage.Result
	if cfg.Async {
		result, err = lineage.ExtractAsync(ctx, script, opts)
	} else {
		result, err = lineage.Extract(ctx, script, opts)
	}
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	if cfg.Verbose {
		for _, pe := range result.ParseErrors {
			fmt.Fprintf(cmd.ErrOrStderr(), "parse error at %d:%d: %s\n", pe.Line, pe.Column, pe.Message)
		}
		for _, w := range result.Warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning at %d:%d: %s\n", w.Line, w.Column, w.Message)
		}
	}

	out := cmd.OutOrStdout()
	switch strings.ToLower(cfg.Output) {
	case "json":
		return renderJSON(out, result)
	case "table":
		return renderTable(out, result)
	default:
		return renderText(out, result)
	}
}

func readScript(args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read script from stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to read script file %s: %w", args[0], err)
	}
	return string(b), nil
}

func compatLevelFromString(s string) lineage.CompatLevel {
	switch s {
	case "2016":
		return lineage.Compat2016
	case "2017":
		return lineage.Compat2017
	case "2019":
		return lineage.Compat2019
	default:
		return lineage.Compat2022
	}
}
