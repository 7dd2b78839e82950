// Package ui provides the Bubble Tea TUI for bookmind.
package ui

import "github.com/im-vishesh15th/bookmind/internal/backend"

// HealthChecked is sent when the startup health probe finishes.
type HealthChecked struct {
	Health *backend.Health
	Err    error
}
