package main

import (
	"context"
	"fmt"
	"os"

	"github.com/lineagekit/tsql-lineage/cmd/tsqllineage/internal/cliconfig"
	"github.com/spf13/cobra"
)

// Version information, set at build time via -ldflags.
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

var cfgFile string

// NewRootCmd builds the tsqllineage command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tsqllineage",
		Short: "Column-level lineage extraction for T-SQL scripts",
		Long: `tsqllineage parses T-SQL scripts and extracts column-level data
lineage: which source columns and expressions feed which target columns,
across SELECT, INSERT, UPDATE, MERGE, CTEs, and stored procedures.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./tsqllineage.yaml)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "output format (text|json|table)")
	rootCmd.PersistentFlags().Bool("extract-table-references", true, "extract table references")
	rootCmd.PersistentFlags().Bool("extract-column-references", true, "extract column references")
	rootCmd.PersistentFlags().Bool("use-quoted-identifiers", false, "quoted-identifier setting; accepted but not read: identifiers always match case-insensitively")
	rootCmd.PersistentFlags().String("compat-level", "", "SQL Server compatibility level (2016|2017|2019|2022)")
	rootCmd.PersistentFlags().Int("max-nested-query-depth", 0, "max nested subquery/CTE depth")
	rootCmd.PersistentFlags().Int("concurrency", 0, "batch parsing worker count for --async (0 = GOMAXPROCS)")
	rootCmd.PersistentFlags().Bool("async", false, "parse batches concurrently before extracting")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "print the config file used and extraction diagnostics")

	rootCmd.AddCommand(NewExtractCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}

// Execute runs the root command against os.Args.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func loadConfig(cmd *cobra.Command) (*cliconfig.Config, error) {
	cfg, err := cliconfig.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if cfg.Verbose {
		if used := cliconfig.GetConfigFileUsed(); used != "" {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", used)
		}
	}
	return cfg, nil
}
