// Package main implements the hbase2hive binary, which migrates wide-column
// row histories into a flat target table and reconciles the two sides.
package main

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand that needs a job configuration.
type globalFlags struct {
	configFile string
	envFile    string
	dataDir    string
	schemaFile string
	logLevel   string
}

func newRootCmd(out io.Writer) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "hbase2hive",
		Short: "Migrate wide-column row histories into a flat target table",
		Long: `hbase2hive replays every stored version and tombstone of a source row,
decides what the row looks like today and writes it to the target table.
Each run publishes reconciliation reports that "verify" compares.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flags.envFile == "" {
				return nil
			}
			if err := godotenv.Load(flags.envFile); err != nil {
				return fmt.Errorf("failed to load env file %s: %w", flags.envFile, err)
			}
			return nil
		},
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configFile, "config", "c", "", "Path to job configuration file (YAML or JSON)")
	pf.StringVar(&flags.envFile, "env-file", "", "Additional .env file with H2H_* variables")
	pf.StringVar(&flags.dataDir, "data-dir", "", "Base directory for local data files")
	pf.StringVar(&flags.schemaFile, "schema", "", "Path to the table definition")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(
		newVersionCmd(),
		newMigrateCmd(flags),
		newVerifyCmd(flags),
		newValidateSchemaCmd(flags),
		newRowKeyCmd(flags),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "hbase2hive version %s (commit: %s)\n", version, commit)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
