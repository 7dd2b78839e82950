// Command bookmind is a terminal client for the book recommendation service.
//
// Usage:
//
//	bookmind                   Interactive TUI
//	bookmind tui               Interactive TUI
//	bookmind suggest <query>   Catalog suggestions for a query
//	bookmind recommend <title> Recommendations for a title
//	bookmind health            Backend health
//	bookmind events            JSONL event log viewer
package main

import (
	"fmt"
	"os"
)

const usage = `bookmind - discover your next favorite book

Usage:
  bookmind [command] [flags]

Commands:
  tui         Interactive search and recommendations (default)
  suggest     Print catalog suggestions for a query
  recommend   Print recommendations for a book title
  health      Show backend health and capabilities
  events      JSONL event log viewer

Environment:
  BOOKMIND_API_URL      Backend base URL (default: http://localhost:8000)
  NEXT_PUBLIC_API_URL   Legacy backend host, used when BOOKMIND_API_URL is unset
  BOOKMIND_CONFIG       Path to a YAML config file
  BOOKMIND_TRACE        Set to 1 to record every UI message in the event log

Run 'bookmind <command> -h' for command-specific help.
`

func main() {
	cmd := "tui"
	if len(os.Args) >= 2 && (os.Args[1] == "" || os.Args[1][0] != '-') {
		cmd = os.Args[1]
		// Strip the program name + subcommand so flag sets see only their flags
		os.Args = os.Args[1:]
	}

	switch cmd {
	case "tui":
		runTUI()
	case "suggest":
		runSuggest()
	case "recommend":
		runRecommend()
	case "health":
		runHealth()
	case "events":
		runEvents()
	case "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "bookmind: unknown command %q\n\n", cmd)
		fmt.Print(usage)
		os.Exit(1)
	}
}
