// Package repl provides an interactive REPL (Read-Eval-Print Loop) for the
// CSV workspace CLI.
//
// This package handles Windows-specific issues related to signal handling and
// channel closures. On Windows, the go-prompt library and multiple signal
// handlers can cause race conditions leading to "close of closed channel"
// panics. The exit handling has been made thread-safe and uses os.Exit()
// instead of panic() to avoid conflicts with go-prompt's internal signal
// handling.
package repl

import (
	"fmt"
	"os"
	"os/exec"
	"sync"

	"csv-cli/internal/command"
	"csv-cli/internal/store"

	prompt "github.com/c-bata/go-prompt"
)

var (
	// Global flag to track if we're in the exit process
	exiting   = false
	exitMutex sync.Mutex
)

func Start(ts store.TableStore) {
	state := &command.ReplState{}
	handler := &command.Handler{Store: ts, State: state}

	if ts.IsReadOnly() {
		fmt.Println("Welcome to csv-cli (READ-ONLY MODE).")
		fmt.Println("Type 'help' for available commands, 'exit' or 'quit' to exit.")
		fmt.Println("Note: Write operations are disabled in read-only mode.")
	} else {
		fmt.Println("Welcome to csv-cli.")
		fmt.Println("Type 'help' for available commands, 'exit' or 'quit' to exit.")
	}
	fmt.Printf("Workspace: %s\n", ts.Dir())

	p := prompt.New(
		func(in string) {
			if !handler.Execute(in) {
				// Use thread-safe exit handling
				exitMutex.Lock()
				if exiting {
					exitMutex.Unlock()
					return
				}
				exiting = true
				exitMutex.Unlock()

				fmt.Println("Bye.")
				// Only fix terminal on WSL
				if isWSL() {
					fixWSLTerminal()
				}
				// Use os.Exit instead of panic to avoid go-prompt's signal handler conflicts
				os.Exit(0)
			}
		},
		completer,
		prompt.OptionLivePrefix(func() (string, bool) {
			readOnlyFlag := ""
			if ts.IsReadOnly() {
				readOnlyFlag = "[READ-ONLY]"
			}
			table := state.CurrentTable
			if table == "" {
				table = "-"
			}
			return fmt.Sprintf("csv%s[%s]> ", readOnlyFlag, table), true
		}),
	)

	defer func() {
		if r := recover(); r != nil {
			// Only handle our own panics, let others propagate
			if r == "exit" {
				return
			}
			panic(r)
		}
	}()

	p.Run()
}

// isWSL checks if we're running in Windows Subsystem for Linux
func isWSL() bool {
	return os.Getenv("WSL_DISTRO_NAME") != "" || os.Getenv("WSLENV") != ""
}

// fixWSLTerminal restores terminal input visibility for WSL
func fixWSLTerminal() {
	cmd := exec.Command("reset")
	_ = cmd.Run()

	cmd = exec.Command("stty", "echo")
	_ = cmd.Run()

	fmt.Print("\033[?25h") // Show cursor
	fmt.Print("\033[0m")   // Reset attributes
}

func completer(d prompt.Document) []prompt.Suggest {
	s := []prompt.Suggest{
		{Text: "use", Description: "use <table> Switch active table"},
		{Text: "tables", Description: "List all CSV tables in the workspace"},
		{Text: "describe", Description: "describe [<table>] Show table schema"},
		{Text: "head", Description: "head [<table>] [n] First n rows"},
		{Text: "tail", Description: "tail [<table>] [n] Last n rows"},
		{Text: "rows", Description: "rows [<table>] [--offset=N] [--limit=N] Page through rows"},
		{Text: "filter", Description: "filter [<table>] <col> <op> <value> Filter rows by predicate"},
		{Text: "search", Description: "search [<table>] <pattern> [--regex] [--case] Search cells"},
		{Text: "jsonq", Description: "jsonq [<table>] <path> [<value>] [--pretty] JSONPath query over rows"},
		{Text: "stats", Description: "stats [<table>] [<column>] Table or column statistics"},
		{Text: "export", Description: "export [<table>] <file> [--format=csv|json] Export table"},
		{Text: "append", Description: "append [<table>] col=value ... Append a row (disabled in read-only)"},
		{Text: "reload", Description: "reload [<table>] Drop cached table data"},
		{Text: "help", Description: "Show help with all available commands"},
		{Text: "exit", Description: "Exit"},
		{Text: "quit", Description: "Exit"},
	}
	return prompt.FilterHasPrefix(s, d.GetWordBeforeCursor(), true)
}
