package clock

import (
	"time"

	"github.com/sophialabs/apicover/internal/infrastructure/ports"
)

var _ ports.Clock = (*SystemClock)(nil)

// SystemClock reports wall-clock time in UTC.
type SystemClock struct{}

// New creates a new SystemClock.
func New() *SystemClock {
	return &SystemClock{}
}

func (c *SystemClock) Now() time.Time { return time.Now().UTC() }
