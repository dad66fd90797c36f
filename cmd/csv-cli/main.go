package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"csv-cli/internal/agent"
	"csv-cli/internal/config"
	"csv-cli/internal/repl"
	"csv-cli/internal/service"
	"csv-cli/internal/store"

	"github.com/spf13/cobra"
)

var (
	flagDir      string
	flagConfig   string
	flagReadOnly bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "csv-cli",
		Short: "Interactive CSV workspace command-line tool",
		Long: `csv-cli - Interactive command-line tool for a workspace of CSV files

Each CSV file in the workspace directory is exposed as a named table that can
be listed, previewed, filtered, searched, queried with JSONPath expressions,
and exported. Without a subcommand, csv-cli starts an interactive REPL.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := openStore()
			if err != nil {
				return err
			}
			defer ts.Close()
			repl.Start(ts)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&flagDir, "dir", "", "Workspace directory containing CSV files")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVar(&flagReadOnly, "read-only", false, "Open workspace in read-only mode")

	rootCmd.AddCommand(
		newTablesCmd(),
		newDescribeCmd(),
		newHeadCmd(),
		newStatsCmd(),
		newExportCmd(),
		newWatchCmd(),
		newAskCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves the effective configuration from flags and config file
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if flagConfig != "" {
		loaded, err := config.LoadConfig(flagConfig)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if flagDir != "" {
		cfg.Workspace.Dir = flagDir
	}
	if flagReadOnly {
		cfg.Workspace.ReadOnly = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func openStore() (store.TableStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Workspace.ReadOnly {
		return store.OpenReadOnly(cfg.Workspace.Dir)
	}
	return store.Open(cfg.Workspace.Dir)
}

func newTablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List all CSV tables in the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := openStore()
			if err != nil {
				return err
			}
			defer ts.Close()

			tables, err := ts.ListTables()
			if err != nil {
				return err
			}
			if len(tables) == 0 {
				fmt.Println("No CSV tables found")
				return nil
			}
			for _, t := range tables {
				fmt.Printf("%s\t%d rows\t%d columns\n", t.Name, t.RowCount, t.ColumnCount)
			}
			return nil
		},
	}
}

func newDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <table>",
		Short: "Show the schema of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := openStore()
			if err != nil {
				return err
			}
			defer ts.Close()

			info, err := ts.Describe(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Table: %s\n", info.Name)
			fmt.Printf("Path: %s\n", info.Path)
			fmt.Printf("Rows: %d\n", info.RowCount)
			fmt.Println("Columns:")
			for _, col := range info.Columns {
				fmt.Printf("  %s (%s)\n", col.Name, col.Type)
			}
			return nil
		},
	}
}

func newHeadCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "head <table>",
		Short: "Print the first rows of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := openStore()
			if err != nil {
				return err
			}
			defer ts.Close()

			rs, err := ts.Head(args[0], n)
			if err != nil {
				return err
			}
			fmt.Println(strings.Join(rs.Columns, " | "))
			for _, row := range rs.Rows {
				fmt.Println(strings.Join(row, " | "))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "rows", "n", 10, "Number of rows to print")
	return cmd
}

func newStatsCmd() *cobra.Command {
	var column string
	cmd := &cobra.Command{
		Use:   "stats <table>",
		Short: "Show statistics for a table or column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := openStore()
			if err != nil {
				return err
			}
			defer ts.Close()

			if column != "" {
				stats, err := ts.ColumnStats(args[0], column)
				if err != nil {
					return err
				}
				fmt.Printf("Column: %s (%s)\n", stats.Name, stats.Type)
				fmt.Printf("Values: %d (empty: %d, distinct: %d)\n", stats.Count, stats.EmptyCount, stats.DistinctCount)
				if stats.Mean != nil {
					fmt.Printf("Mean: %g  Min: %g  Max: %g  Sum: %g\n", *stats.Mean, *stats.Min, *stats.Max, *stats.Sum)
				}
				return nil
			}

			stats, err := ts.TableStats(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Table: %s\n", stats.Name)
			fmt.Printf("Rows: %d  Columns: %d  Size: %d bytes\n", stats.RowCount, stats.ColumnCount, stats.FileSize)
			fmt.Printf("Modified: %s\n", stats.ModTime.Format(time.RFC3339))
			for _, col := range stats.Columns {
				fmt.Printf("  %s (%s): %d values, %d empty, %d distinct\n",
					col.Name, col.Type, col.Count, col.EmptyCount, col.DistinctCount)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&column, "column", "", "Column to show statistics for")
	return cmd
}

func newExportCmd() *cobra.Command {
	var (
		format  string
		columns string
		pretty  bool
	)
	cmd := &cobra.Command{
		Use:   "export <table> <output_file>",
		Short: "Export a table to a CSV or JSON file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := openStore()
			if err != nil {
				return err
			}
			defer ts.Close()

			opts := service.ExportOptions{
				Table:  args[0],
				Format: format,
				Header: true,
				Pretty: pretty,
			}
			if columns != "" {
				opts.Columns = strings.Split(columns, ",")
			}

			f, err := os.Create(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			result, err := service.NewExportService(ts).Export(f, opts)
			if err != nil {
				return err
			}
			fmt.Printf("Successfully exported %d rows of table '%s' to '%s'\n", result.RecordCount, args[0], args[1])
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "csv", "Export format (csv or json)")
	cmd.Flags().StringVar(&columns, "columns", "", "Comma-separated columns to export")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")
	return cmd
}

func newWatchCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch <table>",
		Short: "Watch a table for newly appended rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := openStore()
			if err != nil {
				return err
			}
			defer ts.Close()

			table := args[0]
			info, err := ts.Describe(table)
			if err != nil {
				return err
			}

			fmt.Printf("Watching table '%s' for new rows (interval: %v)...\n", table, interval)
			fmt.Println("Press Ctrl+C to stop")

			c := make(chan os.Signal, 1)
			signal.Notify(c, os.Interrupt, syscall.SIGTERM)

			lastCount := info.RowCount
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				select {
				case <-c:
					fmt.Println("\nStopping watch...")
					return nil
				case <-ticker.C:
					if err := ts.Reload(table); err != nil {
						fmt.Printf("Watch error: %v\n", err)
						continue
					}
					info, err := ts.Describe(table)
					if err != nil {
						fmt.Printf("Watch error: %v\n", err)
						continue
					}
					if info.RowCount > lastCount {
						rs, err := ts.Tail(table, info.RowCount-lastCount)
						if err != nil {
							fmt.Printf("Watch error: %v\n", err)
							continue
						}
						for _, row := range rs.Rows {
							fmt.Printf("[%s] New: %s\n", time.Now().Format("15:04:05"), strings.Join(row, " | "))
						}
					}
					lastCount = info.RowCount
				}
			}
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Polling interval")
	return cmd
}

func newAskCmd() *cobra.Command {
	var interactive bool
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the workspace a natural-language question",
		Long: `Ask the workspace a natural-language question using the configured LLM
provider. The agent section of the configuration file must be enabled.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Agent == nil || !cfg.Agent.Enabled {
				return fmt.Errorf("agent is not enabled; set agent.enabled in the configuration file")
			}

			ts, err := openStore()
			if err != nil {
				return err
			}
			defer ts.Close()

			ag := agent.NewAgent(ts)
			ctx := context.Background()
			if err := ag.Initialize(ctx, cfg.Agent); err != nil {
				return err
			}
			defer ag.Close()

			if len(args) > 0 {
				return askOnce(ctx, ag, strings.Join(args, " "))
			}
			if !interactive {
				return fmt.Errorf("a question is required unless --interactive is set")
			}

			fmt.Println("Ask questions about the CSV workspace. Type 'exit' to quit.")
			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("ask> ")
				if !scanner.Scan() {
					return scanner.Err()
				}
				question := strings.TrimSpace(scanner.Text())
				if question == "" {
					continue
				}
				if question == "exit" || question == "quit" {
					return nil
				}
				if err := askOnce(ctx, ag, question); err != nil {
					fmt.Printf("Error: %v\n", err)
				}
			}
		},
	}
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Start an interactive question session")
	return cmd
}

func askOnce(ctx context.Context, ag *agent.Agent, question string) error {
	result, err := ag.ProcessQuery(ctx, question)
	if err != nil {
		return err
	}
	if !result.Success {
		fmt.Printf("Query failed (%s): %s\n", result.ErrorType, result.Error)
		return nil
	}
	fmt.Println(result.Explanation)
	if len(result.ToolsUsed) > 0 {
		fmt.Printf("(tools: %s, took %v)\n", strings.Join(result.ToolsUsed, ", "), result.ExecutionTime.Round(time.Millisecond))
	}
	return nil
}
