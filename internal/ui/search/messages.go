package search

import "time"

// SelectedMsg is emitted when the user picks a suggestion. It is the only
// output of the search box.
type SelectedMsg struct {
	Title string
}

// CatalogLoaded carries the result of one filtering pass. Gen is the
// suggestion generation the fetch was issued under; a result whose Gen is
// no longer current is discarded.
type CatalogLoaded struct {
	Gen    uint64
	Query  string
	Titles []string
	Err    error
	Dur    time.Duration
}
