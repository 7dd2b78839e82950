package backend

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// BookInfo is one recommendation record. Optional fields are nil when the
// backend omits them or sends null.
type BookInfo struct {
	Title      string   `json:"title"`
	ImageURL   string   `json:"image_url"`
	Author     *string  `json:"author,omitempty"`
	Year       Year     `json:"year"`
	Rating     *float64 `json:"rating,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"` // in [0,1]
	Publisher  *string  `json:"publisher,omitempty"`
}

// Recommendation is the 2xx body of GET /recommend/{title}.
type Recommendation struct {
	SearchedBook BookInfo `json:"searched_book"`
	// Recommendations is never nil after decoding: a missing or null field
	// becomes an empty slice.
	Recommendations []BookInfo `json:"recommendations"`
}

// Health is the body of GET /health.
type Health struct {
	Status       string       `json:"status"`
	ModelLoaded  bool         `json:"model_loaded"`
	Capabilities Capabilities `json:"service_capabilities"`
}

// Capabilities reports which endpoints the backend can currently serve.
type Capabilities struct {
	Recommendations bool `json:"recommendations"`
	BookList        bool `json:"book_list"`
}

// Limited reports whether the backend is up but running without its model.
func (h Health) Limited() bool {
	return !h.ModelLoaded || !h.Capabilities.Recommendations || !h.Capabilities.BookList
}

// Year is a publication year. The backend sends it as a number or as the
// string form of one ("2003", sometimes "None"); anything that is not a
// positive integer decodes as absent.
type Year struct {
	Value int
	Valid bool
}

// NewYear returns a valid Year.
func NewYear(v int) Year {
	return Year{Value: v, Valid: v > 0}
}

func (y *Year) UnmarshalJSON(data []byte) error {
	*y = Year{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return nil
	}
	*y = NewYear(int(f))
	return nil
}

func (y Year) MarshalJSON() ([]byte, error) {
	if !y.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(y.Value)), nil
}

// String returns the year, or "" when absent.
func (y Year) String() string {
	if !y.Valid {
		return ""
	}
	return strconv.Itoa(y.Value)
}
