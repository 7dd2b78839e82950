// Package stub is an in-memory stand-in for the recommendation backend.
//
// It serves the same three endpoints from a YAML catalog so the TUI and the
// client can be developed and tested without the model service. Error
// bodies follow the real service: {"detail": "..."} for handled errors and
// a list-valued detail for malformed query parameters.
package stub

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// PlaceholderImage is returned for books without cover art.
const PlaceholderImage = "https://via.placeholder.com/150x225?text=No+Image+Available"

// DefaultCount is used when num_recommendations is not given.
const DefaultCount = 5

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is the fixture the stub serves.
type Catalog struct {
	// ModelLoaded false puts the stub in limited mode: /books and
	// /recommend answer 503 and /health reports the missing model.
	ModelLoaded bool   `yaml:"model_loaded"`
	Books       []Book `yaml:"books"`
}

type Book struct {
	Title     string    `yaml:"title"`
	ImageURL  string    `yaml:"image_url"`
	Author    string    `yaml:"author"`
	Year      string    `yaml:"year"`
	Publisher string    `yaml:"publisher"`
	Rating    *float64  `yaml:"rating"`
	Similar   []Similar `yaml:"similar"`
}

type Similar struct {
	Title      string  `yaml:"title"`
	Confidence float64 `yaml:"confidence"`
}

// DefaultCatalog returns the built-in fixture.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("stub: embedded catalog: %v", err))
	}
	return c
}

// LoadCatalog reads a YAML fixture from path.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("stub: read catalog: %w", err)
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("stub: parse catalog: %w", err)
	}
	return &c, nil
}

// Titles returns catalog titles in fixture order.
func (c *Catalog) Titles() []string {
	out := make([]string, 0, len(c.Books))
	for _, b := range c.Books {
		out = append(out, b.Title)
	}
	return out
}

// Options adds artificial latency per endpoint.
type Options struct {
	BooksLatency     time.Duration
	RecommendLatency time.Duration
}

// Server serves a Catalog over HTTP.
type Server struct {
	cat   *Catalog
	index map[string]*Book
	opts  Options
}

func New(cat *Catalog, opts Options) *Server {
	s := &Server{cat: cat, index: make(map[string]*Book, len(cat.Books)), opts: opts}
	for i := range cat.Books {
		b := &cat.Books[i]
		if _, dup := s.index[b.Title]; !dup {
			s.index[b.Title] = b
		}
	}
	return s
}

// Handler returns the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/books", s.handleBooks)
	r.Get("/recommend/{title}", s.handleRecommend)
	return r
}

type bookJSON struct {
	Title      string   `json:"title"`
	ImageURL   string   `json:"image_url"`
	Year       *string  `json:"year"`
	Publisher  *string  `json:"publisher"`
	Author     *string  `json:"author"`
	Rating     *float64 `json:"rating"`
	Confidence *float64 `json:"confidence"`
}

type recommendationJSON struct {
	SearchedBook    bookJSON   `json:"searched_book"`
	Recommendations []bookJSON `json:"recommendations"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"model_loaded": s.cat.ModelLoaded,
		"service_capabilities": map[string]bool{
			"recommendations": s.cat.ModelLoaded,
			"book_list":       s.cat.ModelLoaded,
		},
	})
}

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	if !wait(r.Context(), s.opts.BooksLatency) {
		return
	}
	if !s.cat.ModelLoaded {
		writeDetail(w, http.StatusServiceUnavailable, "Book recommendation service is currently unavailable. Please try again later.")
		return
	}
	writeJSON(w, http.StatusOK, s.cat.Titles())
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	if !wait(r.Context(), s.opts.RecommendLatency) {
		return
	}
	if !s.cat.ModelLoaded {
		writeDetail(w, http.StatusServiceUnavailable, "Book recommendation service is currently unavailable. Please try again later.")
		return
	}

	title := chi.URLParam(r, "title")
	// chi routes on RawPath when the request needed it (e.g. an escaped
	// slash), leaving the parameter percent-encoded.
	if r.URL.RawPath != "" {
		if unescaped, err := url.PathUnescape(title); err == nil {
			title = unescaped
		}
	}

	n := DefaultCount
	if raw := r.URL.Query().Get("num_recommendations"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"detail": []map[string]any{{
					"loc":  []string{"query", "num_recommendations"},
					"msg":  "value is not a valid integer",
					"type": "type_error.integer",
				}},
			})
			return
		}
		n = v
	}

	book, ok := s.index[title]
	if !ok {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("Book '%s' not found", title))
		return
	}
	if n < 1 || n > 20 {
		writeDetail(w, http.StatusBadRequest, "Number of recommendations must be between 1 and 20")
		return
	}

	resp := recommendationJSON{
		SearchedBook:    s.details(book.Title),
		Recommendations: make([]bookJSON, 0, n),
	}
	for _, sim := range book.Similar {
		if len(resp.Recommendations) == n {
			break
		}
		if sim.Title == book.Title {
			continue
		}
		b := s.details(sim.Title)
		conf := sim.Confidence
		b.Confidence = &conf
		resp.Recommendations = append(resp.Recommendations, b)
	}
	writeJSON(w, http.StatusOK, resp)
}

// details renders a catalog entry, or the placeholder record for titles the
// catalog does not describe.
func (s *Server) details(title string) bookJSON {
	b, ok := s.index[title]
	if !ok {
		return bookJSON{Title: title, ImageURL: PlaceholderImage}
	}
	out := bookJSON{
		Title:     b.Title,
		ImageURL:  b.ImageURL,
		Year:      optional(b.Year),
		Publisher: optional(b.Publisher),
		Author:    optional(b.Author),
		Rating:    b.Rating,
	}
	if out.ImageURL == "" {
		out.ImageURL = PlaceholderImage
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// wait sleeps for d, returning false if the client went away first.
func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
