package main

import (
	"flag"
	"fmt"
	"os"
	"time"
)

func runHealth() {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	common := addCommonFlags(fs)
	fs.Parse(os.Args[1:])

	cfg := common.loadConfig()
	cliLogging(cfg)

	ctx, cancel := signalContext()
	defer cancel()

	client := newClient(cfg, nil)
	start := time.Now()
	h, err := client.Health(ctx)
	if err != nil {
		fmt.Printf("Backend:  %s\n", client.BaseURL())
		fatalf("backend unreachable: %v", err)
	}

	fmt.Printf("Backend:          %s\n", client.BaseURL())
	fmt.Printf("Status:           %s (%s)\n", h.Status, time.Since(start).Round(time.Millisecond))
	fmt.Printf("Model loaded:     %s\n", yesNo(h.ModelLoaded))
	fmt.Printf("Recommendations:  %s\n", yesNo(h.Capabilities.Recommendations))
	fmt.Printf("Book list:        %s\n", yesNo(h.Capabilities.BookList))
	if h.Limited() {
		fmt.Println("\nThe backend is running in limited mode; recommendations will fail.")
		os.Exit(3)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
