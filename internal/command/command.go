package command

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"csv-cli/internal/jsonutil"
	"csv-cli/internal/service"
	"csv-cli/internal/store"
	"csv-cli/internal/util"
)

type ReplState struct {
	CurrentTable string
}

type Handler struct {
	Store store.TableStore
	State interface{} // *ReplState, used to manage the active table
}

func (h *Handler) state() *ReplState {
	if h.State != nil {
		if s, ok := h.State.(*ReplState); ok {
			return s
		}
	}
	return nil
}

// resolveTable picks the table argument or falls back to the active table.
// The first argument only counts as a table name when the store knows it, so
// forms like "search <pattern>" and "filter <col> <op> <value>" work against
// the active table.
func (h *Handler) resolveTable(parts []string, argIndex int) (string, []string) {
	active := ""
	if s := h.state(); s != nil {
		active = s.CurrentTable
	}
	if len(parts) <= argIndex {
		if active != "" {
			return active, nil
		}
		return "", nil
	}
	candidate := parts[argIndex]
	if _, err := h.Store.Describe(candidate); err == nil {
		return candidate, parts[argIndex+1:]
	}
	if active != "" {
		return active, parts[argIndex:]
	}
	return candidate, parts[argIndex+1:]
}

func (h *Handler) Execute(input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return true
	}
	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	switch cmd {
	case "use":
		if len(parts) != 2 {
			fmt.Println("Usage: use <table>")
			return true
		}
		if _, err := h.Store.Describe(parts[1]); err != nil {
			fmt.Printf("Cannot use table: %v\n", err)
			return true
		}
		if s := h.state(); s != nil {
			s.CurrentTable = parts[1]
			fmt.Printf("Switched to table: %s\n", parts[1])
		}
	case "tables":
		tables, err := h.Store.ListTables()
		if err != nil {
			fmt.Printf("List tables failed: %v\n", err)
			return true
		}
		if len(tables) == 0 {
			fmt.Println("No CSV tables found")
			return true
		}
		fmt.Println("Tables:")
		for _, t := range tables {
			fmt.Printf("  %s (%d rows, %d columns)\n", t.Name, t.RowCount, t.ColumnCount)
		}
	case "describe":
		table, _ := h.resolveTable(parts, 1)
		if table == "" {
			fmt.Println("Usage: describe [<table>]")
			return true
		}
		info, err := h.Store.Describe(table)
		if err != nil {
			fmt.Printf("Describe failed: %v\n", err)
			return true
		}
		fmt.Printf("Table: %s\n", info.Name)
		fmt.Printf("Path: %s\n", info.Path)
		fmt.Printf("Rows: %d\n", info.RowCount)
		fmt.Println("Columns:")
		for _, col := range info.Columns {
			fmt.Printf("  %s (%s)\n", col.Name, col.Type)
		}
	case "head", "tail":
		table, rest := h.resolveTable(parts, 1)
		if table == "" {
			fmt.Printf("Usage: %s [<table>] [n]\n", cmd)
			return true
		}
		n := 10
		if len(rest) > 0 {
			if parsed, err := strconv.Atoi(rest[0]); err == nil {
				n = parsed
			}
		}
		var rs *store.ResultSet
		var err error
		if cmd == "head" {
			rs, err = h.Store.Head(table, n)
		} else {
			rs, err = h.Store.Tail(table, n)
		}
		if err != nil {
			fmt.Printf("Query failed: %v\n", err)
			return true
		}
		printResultSet(rs)
	case "rows":
		table, rest := h.resolveTable(parts, 1)
		if table == "" {
			fmt.Println("Usage: rows [<table>] [--offset=N] [--limit=N] [--columns=a,b]")
			return true
		}
		opts := store.ScanOptions{}
		for _, arg := range rest {
			switch {
			case strings.HasPrefix(arg, "--offset="):
				opts.Offset, _ = strconv.Atoi(strings.TrimPrefix(arg, "--offset="))
			case strings.HasPrefix(arg, "--limit="):
				opts.Limit, _ = strconv.Atoi(strings.TrimPrefix(arg, "--limit="))
			case strings.HasPrefix(arg, "--columns="):
				opts.Columns = strings.Split(strings.TrimPrefix(arg, "--columns="), ",")
			}
		}
		rs, err := h.Store.Scan(table, opts)
		if err != nil {
			fmt.Printf("Query failed: %v\n", err)
			return true
		}
		printResultSet(rs)
		if rs.HasMore {
			fmt.Printf("(more rows available, next offset %d)\n", rs.NextOffset)
		}
	case "filter":
		table, rest := h.resolveTable(parts, 1)
		if table == "" || len(rest) < 3 {
			fmt.Println("Usage: filter [<table>] <column> <op> <value> [--limit=N]")
			fmt.Println("Operators: eq, ne, gt, ge, lt, le, contains")
			return true
		}
		opts := store.FilterOptions{
			Column: rest[0],
			Op:     store.FilterOp(rest[1]),
			Value:  rest[2],
		}
		for _, arg := range rest[3:] {
			if strings.HasPrefix(arg, "--limit=") {
				opts.Limit, _ = strconv.Atoi(strings.TrimPrefix(arg, "--limit="))
			}
		}
		rs, err := h.Store.Filter(table, opts)
		if err != nil {
			fmt.Printf("Filter failed: %v\n", err)
			return true
		}
		printResultSet(rs)
	case "search":
		table, rest := h.resolveTable(parts, 1)
		if table == "" || len(rest) < 1 {
			fmt.Println("Usage: search [<table>] <pattern> [--columns=a,b] [--regex] [--case] [--limit=N]")
			return true
		}
		opts := store.SearchOptions{Pattern: rest[0]}
		for _, arg := range rest[1:] {
			switch {
			case strings.HasPrefix(arg, "--columns="):
				opts.Columns = strings.Split(strings.TrimPrefix(arg, "--columns="), ",")
			case arg == "--regex":
				opts.UseRegex = true
			case arg == "--case":
				opts.CaseSensitive = true
			case strings.HasPrefix(arg, "--limit="):
				opts.Limit, _ = strconv.Atoi(strings.TrimPrefix(arg, "--limit="))
			}
		}
		rs, err := h.Store.Search(table, opts)
		if err != nil {
			fmt.Printf("Search failed: %v\n", err)
			return true
		}
		if rs.Count == 0 {
			fmt.Println("No matches")
			return true
		}
		fmt.Println(strings.Join(rs.Columns, " | "))
		for _, row := range rs.Rows {
			cells := make([]string, len(row))
			for i, cell := range row {
				cells[i] = util.HighlightMatches(cell, opts.Pattern, opts.UseRegex, opts.CaseSensitive)
			}
			fmt.Println(strings.Join(cells, " | "))
		}
		fmt.Printf("(%d matches)\n", rs.Count)
	case "jsonq":
		table, rest := h.resolveTable(parts, 1)
		if table == "" || len(rest) < 1 {
			fmt.Println("Usage: jsonq [<table>] <path> [<value>] [--limit=N] [--pretty]")
			return true
		}
		expr := rest[0]
		value := ""
		limit := 0
		pretty := false
		for _, arg := range rest[1:] {
			switch {
			case strings.HasPrefix(arg, "--limit="):
				limit, _ = strconv.Atoi(strings.TrimPrefix(arg, "--limit="))
			case arg == "--pretty":
				pretty = true
			case !strings.HasPrefix(arg, "--"):
				value = arg
			}
		}
		rs, err := h.Store.QueryByPath(table, expr, value, limit)
		if err != nil {
			fmt.Printf("Query failed: %v\n", err)
			return true
		}
		if rs.Count == 0 {
			fmt.Println("No matches")
			return true
		}
		for _, record := range rs.Records() {
			generic := make(map[string]interface{}, len(record))
			for k, v := range record {
				generic[k] = v
			}
			out, err := jsonutil.MarshalRecord(generic, pretty)
			if err != nil {
				fmt.Printf("Format failed: %v\n", err)
				return true
			}
			fmt.Println(out)
		}
	case "stats":
		table, rest := h.resolveTable(parts, 1)
		if table == "" {
			fmt.Println("Usage: stats [<table>] [<column>]")
			return true
		}
		if len(rest) > 0 {
			stats, err := h.Store.ColumnStats(table, rest[0])
			if err != nil {
				fmt.Printf("Stats failed: %v\n", err)
				return true
			}
			printColumnStats(stats)
			return true
		}
		stats, err := h.Store.TableStats(table)
		if err != nil {
			fmt.Printf("Stats failed: %v\n", err)
			return true
		}
		fmt.Printf("Table: %s (%d rows, %d columns, %d bytes)\n",
			stats.Name, stats.RowCount, stats.ColumnCount, stats.FileSize)
		for _, col := range stats.Columns {
			printColumnStats(&col)
		}
	case "export":
		table, rest := h.resolveTable(parts, 1)
		if table == "" || len(rest) < 1 {
			fmt.Println("Usage: export [<table>] <file_path> [--format=csv|json] [--columns=a,b]")
			return true
		}
		opts := service.ExportOptions{Table: table, Format: "csv", Header: true}
		outputFile := rest[0]
		for _, arg := range rest[1:] {
			switch {
			case strings.HasPrefix(arg, "--format="):
				opts.Format = strings.TrimPrefix(arg, "--format=")
			case strings.HasPrefix(arg, "--columns="):
				opts.Columns = strings.Split(strings.TrimPrefix(arg, "--columns="), ",")
			}
		}
		f, err := os.Create(outputFile)
		if err != nil {
			fmt.Printf("Export failed: %v\n", err)
			return true
		}
		result, err := service.NewExportService(h.Store).Export(f, opts)
		f.Close()
		if err != nil {
			fmt.Printf("Export failed: %v\n", err)
			return true
		}
		fmt.Printf("Exported %d rows to %s\n", result.RecordCount, outputFile)
	case "append":
		table, rest := h.resolveTable(parts, 1)
		if table == "" || len(rest) < 1 {
			fmt.Println("Usage: append [<table>] col=value [col=value ...]")
			return true
		}
		values := make(map[string]string)
		for _, arg := range rest {
			idx := strings.Index(arg, "=")
			if idx <= 0 {
				fmt.Printf("Invalid assignment: %s (expected col=value)\n", arg)
				return true
			}
			values[arg[:idx]] = arg[idx+1:]
		}
		if err := h.Store.AppendRow(table, values); err != nil {
			fmt.Printf("Append failed: %v\n", err)
		} else {
			fmt.Println("OK")
		}
	case "reload":
		table, _ := h.resolveTable(parts, 1)
		if table == "" {
			fmt.Println("Usage: reload [<table>]")
			return true
		}
		if err := h.Store.Reload(table); err != nil {
			fmt.Printf("Reload failed: %v\n", err)
		} else {
			fmt.Println("OK")
		}
	case "help":
		printHelp()
	case "exit", "quit":
		return false
	default:
		fmt.Println("Unknown command. Type 'help' for available commands.")
	}
	return true
}

func printResultSet(rs *store.ResultSet) {
	if rs.Count == 0 {
		fmt.Println("No rows")
		return
	}
	fmt.Println(strings.Join(rs.Columns, " | "))
	for _, row := range rs.Rows {
		fmt.Println(strings.Join(row, " | "))
	}
	fmt.Printf("(%d rows)\n", rs.Count)
}

func printColumnStats(stats *store.ColumnStats) {
	fmt.Printf("Column: %s (%s)\n", stats.Name, stats.Type)
	fmt.Printf("  values: %d, empty: %d, distinct: %d\n", stats.Count, stats.EmptyCount, stats.DistinctCount)
	if stats.Mean != nil {
		fmt.Printf("  mean: %g, min: %g, max: %g, sum: %g\n", *stats.Mean, *stats.Min, *stats.Max, *stats.Sum)
	}
	if len(stats.SampleValues) > 0 {
		fmt.Printf("  samples: %s\n", strings.Join(stats.SampleValues, ", "))
	}
}

func printHelp() {
	fmt.Println("Available commands:")
	fmt.Println("  use <table>                                  Switch active table")
	fmt.Println("  tables                                       List all CSV tables")
	fmt.Println("  describe [<table>]                           Show table schema")
	fmt.Println("  head [<table>] [n]                           First n rows (default 10)")
	fmt.Println("  tail [<table>] [n]                           Last n rows (default 10)")
	fmt.Println("  rows [<table>] [--offset=N] [--limit=N]      Page through rows")
	fmt.Println("  filter [<table>] <col> <op> <value>          Filter rows (eq/ne/gt/ge/lt/le/contains)")
	fmt.Println("  search [<table>] <pattern> [--regex]         Search cells for a pattern")
	fmt.Println("  jsonq [<table>] <path> [<value>]             JSONPath query over row records")
	fmt.Println("  stats [<table>] [<column>]                   Table or column statistics")
	fmt.Println("  export [<table>] <file> [--format=json]      Export table to a file")
	fmt.Println("  append [<table>] col=value ...               Append a row (disabled in read-only)")
	fmt.Println("  reload [<table>]                             Drop cached table data")
	fmt.Println("  help                                         Show this help")
	fmt.Println("  exit, quit                                   Exit")
}
