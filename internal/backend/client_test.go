package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, h http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	opts = append([]Option{WithRateLimit(0, 0), WithoutBreaker()}, opts...)
	c, err := New(srv.URL, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestBooks(t *testing.T) {
	var ua, reqID string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/books" {
			t.Errorf("path = %q, want /books", r.URL.Path)
		}
		ua = r.Header.Get("User-Agent")
		reqID = r.Header.Get("X-Request-ID")
		w.Write([]byte(`["Dune","Emma","Dune"]`))
	}))

	titles, err := c.Books(context.Background())
	if err != nil {
		t.Fatalf("Books: %v", err)
	}
	if len(titles) != 3 || titles[0] != "Dune" || titles[2] != "Dune" {
		t.Errorf("titles = %v", titles)
	}
	if !strings.HasPrefix(ua, "bookmind/") {
		t.Errorf("User-Agent = %q", ua)
	}
	if reqID == "" {
		t.Error("X-Request-ID not set")
	}
}

func TestBooksNullIsEmpty(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`null`))
	}))
	titles, err := c.Books(context.Background())
	if err != nil {
		t.Fatalf("Books: %v", err)
	}
	if titles == nil || len(titles) != 0 {
		t.Errorf("titles = %#v, want empty non-nil", titles)
	}
}

func TestBooksMalformed(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"a list"}`))
	}))
	if _, err := c.Books(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestRecommendEscapesTitle(t *testing.T) {
	var uri string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uri = r.RequestURI
		w.Write([]byte(`{"searched_book":{"title":"x"},"recommendations":[]}`))
	}))

	if _, err := c.Recommend(context.Background(), "Harry Potter / Stone?"); err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	want := "/recommend/Harry%20Potter%20%2F%20Stone%3F"
	if uri != want {
		t.Errorf("request URI = %q, want %q", uri, want)
	}
}

func TestRecommendCountParam(t *testing.T) {
	tests := []struct {
		name string
		n    int
		want string
	}{
		{"unset", 0, ""},
		{"five", 5, "5"},
		{"clamped", 99, "20"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			var present bool
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, present = r.URL.Query()["num_recommendations"]
				got = r.URL.Query().Get("num_recommendations")
				w.Write([]byte(`{"recommendations":[]}`))
			}), WithRecommendationCount(tt.n))

			if _, err := c.Recommend(context.Background(), "Dune"); err != nil {
				t.Fatalf("Recommend: %v", err)
			}
			if tt.want == "" && present {
				t.Errorf("num_recommendations sent as %q, want absent", got)
			}
			if got != tt.want {
				t.Errorf("num_recommendations = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRecommendDecodes(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"searched_book": {"title": "Dune", "image_url": "http://img/dune", "author": "Frank Herbert", "year": 1965},
			"recommendations": [
				{"title": "Hyperion", "image_url": "", "author": null, "year": "1989", "rating": 4.25, "confidence": 0.87},
				{"title": "Solaris", "image_url": "", "year": "None"}
			]
		}`))
	}))

	rec, err := c.Recommend(context.Background(), "Dune")
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if rec.SearchedBook.Title != "Dune" || rec.SearchedBook.Author == nil || *rec.SearchedBook.Author != "Frank Herbert" {
		t.Errorf("searched_book = %+v", rec.SearchedBook)
	}
	if len(rec.Recommendations) != 2 {
		t.Fatalf("got %d recommendations, want 2", len(rec.Recommendations))
	}
	h := rec.Recommendations[0]
	if h.Author != nil {
		t.Errorf("author = %v, want nil", *h.Author)
	}
	if !h.Year.Valid || h.Year.Value != 1989 {
		t.Errorf("year = %+v, want 1989", h.Year)
	}
	if h.Rating == nil || *h.Rating != 4.25 {
		t.Errorf("rating = %v", h.Rating)
	}
	if h.Confidence == nil || *h.Confidence != 0.87 {
		t.Errorf("confidence = %v", h.Confidence)
	}
	if rec.Recommendations[1].Year.Valid {
		t.Errorf("year None decoded as %+v", rec.Recommendations[1].Year)
	}
}

func TestRecommendMissingListIsEmpty(t *testing.T) {
	for _, body := range []string{`{"searched_book":{"title":"Dune"}}`, `{"recommendations":null}`} {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))
		rec, err := c.Recommend(context.Background(), "Dune")
		if err != nil {
			t.Fatalf("Recommend(%s): %v", body, err)
		}
		if rec.Recommendations == nil || len(rec.Recommendations) != 0 {
			t.Errorf("body %s: recommendations = %#v, want empty non-nil", body, rec.Recommendations)
		}
	}
}

func TestRecommendAPIErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"detail", 404, `{"detail":"Book not found"}`, "Book not found"},
		{"no detail", 500, `{"error":"boom"}`, "Error: 500"},
		{"not json", 502, `<html>bad gateway</html>`, "Error: 502"},
		{"empty body", 503, ``, "Error: 503"},
		{"detail list", 422, `{"detail":[{"loc":["path","title"],"msg":"field required"}]}`, "Error: 422"},
		{"blank detail", 400, `{"detail":"   "}`, "Error: 400"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			_, err := c.Recommend(context.Background(), "Dune")
			if err == nil {
				t.Fatal("expected error")
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %T %v, want *APIError", err, err)
			}
			if apiErr.Status != tt.status {
				t.Errorf("status = %d, want %d", apiErr.Status, tt.status)
			}
			if got := Message(err); got != tt.want {
				t.Errorf("Message = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRecommendTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := New(url, WithRateLimit(0, 0), WithoutBreaker())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.Recommend(context.Background(), "Dune")
	if err == nil {
		t.Fatal("expected transport error")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Errorf("transport failure surfaced as APIError: %v", err)
	}
	if Message(err) == "" {
		t.Error("Message is empty")
	}
}

func TestRequestTimeout(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}), WithTimeout(20*time.Millisecond))

	_, err := c.Books(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestCancelledContext(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Books(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestHealth(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"status":"healthy","model_loaded":false,"service_capabilities":{"recommendations":false,"book_list":true}}`))
	}))
	h, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if h.Status != "healthy" || h.ModelLoaded || !h.Capabilities.BookList {
		t.Errorf("health = %+v", h)
	}
	if !h.Limited() {
		t.Error("Limited() = false, want true")
	}
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}), WithBreaker(BreakerSettings{
		Name:         "test-open",
		MaxRequests:  1,
		Timeout:      time.Minute,
		MinRequests:  2,
		FailureRatio: 0.5,
	}))

	for i := 0; i < 2; i++ {
		if _, err := c.Books(context.Background()); err == nil {
			t.Fatal("expected error")
		}
	}
	_, err := c.Books(context.Background())
	if !IsBreakerOpen(err) {
		t.Fatalf("err = %v, want breaker open", err)
	}
	if Message(err) == "" {
		t.Error("breaker error has no message")
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("server hits = %d, want 2", got)
	}
}

func TestBreakerRejectionKeepsBackendDetail(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"detail":"Recommendation model not loaded"}`))
	}), WithBreaker(BreakerSettings{
		Name:         "test-detail",
		MaxRequests:  1,
		Timeout:      time.Minute,
		MinRequests:  2,
		FailureRatio: 0.5,
	}))

	for i := 0; i < 2; i++ {
		_, err := c.Recommend(context.Background(), "Dune")
		if got := Message(err); got != "Recommendation model not loaded" {
			t.Fatalf("call %d: Message = %q", i, got)
		}
	}

	_, err := c.Recommend(context.Background(), "Dune")
	if !IsBreakerOpen(err) {
		t.Fatalf("err = %v, want breaker open", err)
	}
	if got := Message(err); got != "Recommendation model not loaded" {
		t.Errorf("rejected call Message = %q, want the last backend detail", got)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("server hits = %d, want 2", got)
	}
}

func TestBreakerRejectionWithoutBackendDetail(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close() // every call now fails at the transport

	c, err := New(url, WithRateLimit(0, 0), WithBreaker(BreakerSettings{
		Name:         "test-transport",
		MaxRequests:  1,
		Timeout:      time.Minute,
		MinRequests:  2,
		FailureRatio: 0.5,
	}))
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if _, err := c.Books(context.Background()); err == nil || IsBreakerOpen(err) {
			t.Fatalf("call %d: err = %v, want transport error", i, err)
		}
	}
	_, err = c.Books(context.Background())
	if !IsBreakerOpen(err) {
		t.Fatalf("err = %v, want breaker open", err)
	}
	if got := Message(err); got != UnavailableMessage {
		t.Errorf("Message = %q, want %q", got, UnavailableMessage)
	}
}

func TestBreakerIgnoresClientErrors(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"Book not found"}`))
	}), WithBreaker(BreakerSettings{
		Name:         "test-4xx",
		MaxRequests:  1,
		Timeout:      time.Minute,
		MinRequests:  2,
		FailureRatio: 0.5,
	}))

	for i := 0; i < 5; i++ {
		_, err := c.Recommend(context.Background(), "Nope")
		if !IsNotFound(err) {
			t.Fatalf("call %d: err = %v, want not found", i, err)
		}
	}
	if got := hits.Load(); got != 5 {
		t.Errorf("server hits = %d, want 5", got)
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"http://localhost:8000", "http://localhost:8000", false},
		{"localhost:8000", "http://localhost:8000", false},
		{"https://api.example.com/", "https://api.example.com", false},
		{"  https://api.example.com/v1/  ", "https://api.example.com/v1", false},
		{"", "", true},
		{"ftp://files.example.com", "", true},
		{"http://", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeBaseURL(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizeBaseURL(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeBaseURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
