package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/im-vishesh15th/bookmind/internal/catalog"
	"github.com/im-vishesh15th/bookmind/internal/logging"
)

func runSuggest() {
	fs := flag.NewFlagSet("suggest", flag.ExitOnError)
	common := addCommonFlags(fs)
	limit := fs.Int("n", 0, "Maximum suggestions (default: search.max_suggestions)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: bookmind suggest [flags] <query>")
		fs.PrintDefaults()
	}
	fs.Parse(os.Args[1:])
	query := argText(fs, "query")

	cfg := common.loadConfig()
	cliLogging(cfg)
	if *limit <= 0 {
		*limit = cfg.Search.MaxSuggestions
	}

	ctx, cancel := signalContext()
	defer cancel()

	client := newClient(cfg, nil)
	start := time.Now()
	titles, err := client.Books(ctx)
	if err != nil {
		fatalf("fetch catalog: %v", err)
	}
	logging.Debug("catalog fetched", "count", len(titles), "dur", time.Since(start))

	matches := catalog.Filter(titles, query, *limit)
	if len(matches) == 0 {
		fmt.Printf("No books match %q (catalog has %d titles)\n", query, len(titles))
		return
	}
	for i, t := range matches {
		fmt.Printf("%2d. %s\n", i+1, t)
	}
	fmt.Printf("\n%d result", len(matches))
	if len(matches) != 1 {
		fmt.Print("s")
	}
	fmt.Println(" found")
}
