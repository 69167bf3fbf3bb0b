// Package seed generates synthetic progress history and replays it into a
// service, either in-process or against a running HTTP API.
package seed

import (
	"time"

	"github.com/okian/defend100/internal/domain/goals"
	"github.com/okian/defend100/internal/domain/progress"
)

// Config holds configuration for a seeding run.
type Config struct {
	Days    int              // Number of days to generate, ending at End
	End     progress.DateKey // Last generated day
	Profile Profile          // Behaviour of the simulated user
	Seed    int64            // Random seed; equal seeds give equal samples
	Workers int              // Number of concurrent submitters
	BaseURL string           // Base URL of the API for HTTP seeding
	Timeout time.Duration    // HTTP request timeout
}

// Sample is one recorded value. Its JSON shape matches POST /progress.
type Sample struct {
	WriteID string           `json:"write_id"`
	Date    progress.DateKey `json:"date"`
	Key     goals.Key        `json:"key"`
	Value   float64          `json:"value"`
}

// Stats holds seeding statistics.
type Stats struct {
	Generated  int
	Submitted  int
	Successful int
	Duplicate  int
	Failed     int
	StartTime  time.Time
	Duration   time.Duration
}
