package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/im-vishesh15th/bookmind/internal/backend"
	"github.com/im-vishesh15th/bookmind/internal/ui/recommend"
)

func runRecommend() {
	fs := flag.NewFlagSet("recommend", flag.ExitOnError)
	common := addCommonFlags(fs)
	count := fs.Int("n", -1, "num_recommendations to request, 0 lets the backend decide (default: recommend.count)")
	rawJSON := fs.Bool("json", false, "Print the raw response as JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: bookmind recommend [flags] <title>")
		fs.PrintDefaults()
	}
	fs.Parse(os.Args[1:])
	title := argText(fs, "title")

	cfg := common.loadConfig()
	if *count >= 0 {
		cfg.Recommend.Count = *count
	}
	cliLogging(cfg)

	ctx, cancel := signalContext()
	defer cancel()

	client := newClient(cfg, nil)
	start := time.Now()
	rec, err := client.Recommend(ctx, title)
	if err != nil {
		fatalf("%s", backend.Message(err))
	}

	if *rawJSON {
		out, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			fatalf("encode: %v", err)
		}
		fmt.Println(string(out))
		return
	}

	searched := rec.SearchedBook
	if searched.Title == "" {
		searched.Title = title
	}
	fmt.Printf("Recommendations for %q", searched.Title)
	if meta := bookMeta(searched); meta != "" {
		fmt.Printf(" (%s)", meta)
	}
	fmt.Printf(" in %s\n\n", time.Since(start).Round(time.Millisecond))

	if len(rec.Recommendations) == 0 {
		fmt.Println("No recommendations found.")
		return
	}
	for i, b := range rec.Recommendations {
		line := fmt.Sprintf("%2d. %s", i+1, b.Title)
		if b.Confidence != nil {
			line += fmt.Sprintf("  [%s match]", recommend.FormatConfidence(*b.Confidence))
		}
		fmt.Println(line)
		if meta := bookMeta(b); meta != "" {
			fmt.Printf("    %s\n", meta)
		}
	}
}

// bookMeta renders "by Author · 1965 · Publisher · ★ 4.25", skipping empty parts.
func bookMeta(b backend.BookInfo) string {
	var parts []string
	if b.Author != nil && *b.Author != "" {
		parts = append(parts, "by "+*b.Author)
	}
	if b.Year.Valid {
		parts = append(parts, b.Year.String())
	}
	if b.Publisher != nil && *b.Publisher != "" {
		parts = append(parts, *b.Publisher)
	}
	if b.Rating != nil {
		parts = append(parts, fmt.Sprintf("★ %.2f", *b.Rating))
	}
	return strings.Join(parts, " · ")
}
