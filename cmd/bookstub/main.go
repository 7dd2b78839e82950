// Command bookstub serves the recommendation API from a YAML catalog.
//
// Usage:
//
//	bookstub [-addr :8000] [-catalog books.yaml] [-latency 300ms] [-limited]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/im-vishesh15th/bookmind/internal/logging"
	"github.com/im-vishesh15th/bookmind/internal/stub"
)

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	addr := flag.String("addr", envOrDefault("BOOKSTUB_ADDR", "127.0.0.1:8000"), "Listen address")
	catalogPath := flag.String("catalog", "", "YAML catalog (default: built-in fixture)")
	latency := flag.Duration("latency", 0, "Artificial latency for every endpoint")
	booksLatency := flag.Duration("books-latency", 0, "Artificial latency for /books (overrides -latency)")
	recLatency := flag.Duration("recommend-latency", 0, "Artificial latency for /recommend (overrides -latency)")
	limited := flag.Bool("limited", false, "Serve in limited mode (no model loaded)")
	verbose := flag.Bool("v", false, "Log every request")
	flag.Parse()

	level := log.InfoLevel
	if *verbose {
		level = log.DebugLevel
	}
	logging.SetOutput(os.Stderr, level)

	cat := stub.DefaultCatalog()
	if *catalogPath != "" {
		var err error
		if cat, err = stub.LoadCatalog(*catalogPath); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}
	if *limited {
		cat.ModelLoaded = false
	}

	opts := stub.Options{BooksLatency: *latency, RecommendLatency: *latency}
	if *booksLatency > 0 {
		opts.BooksLatency = *booksLatency
	}
	if *recLatency > 0 {
		opts.RecommendLatency = *recLatency
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           logRequests(stub.New(cat, opts).Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logging.Info("bookstub listening",
		"addr", *addr,
		"books", len(cat.Books),
		"model_loaded", cat.ModelLoaded,
		"books_latency", opts.BooksLatency,
		"recommend_latency", opts.RecommendLatency,
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Error("server failed", "err", err)
		os.Exit(1)
	}
	logging.Info("bookstub stopped")
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, req.ProtoMajor)
		next.ServeHTTP(ww, req)
		logging.Debug("request",
			"method", req.Method,
			"path", req.URL.RequestURI(),
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"dur", time.Since(start),
			"request_id", req.Header.Get("X-Request-ID"),
		)
	})
}
