package ui

// Features gates optional functionality. All default to false.
type Features struct {
	Mouse       bool // click to focus and to pick suggestions
	HealthCheck bool // query /health at startup and show the result
}
