// Package realclock provides a real implementation of the Clock port using the time package.
package realclock

import (
	"time"

	"github.com/acolita/remote-files-mcp/internal/ports"
)

// Clock implements ports.Clock using the standard time package.
type Clock struct{}

// New returns a new real Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current local time.
func (c *Clock) Now() time.Time {
	return time.Now()
}

// Ensure Clock implements ports.Clock.
var _ ports.Clock = (*Clock)(nil)
