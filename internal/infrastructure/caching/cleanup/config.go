package cleanup

import (
	"time"

	"github.com/FableForge/canvasflow-go/pkg/config"
)

// Config holds cleanup worker configuration, sourced from the central config package.
type Config struct {
	CleanupInterval  time.Duration
	VerboseReporting bool
	BoardTimeout     time.Duration
	RenderCacheTTL   time.Duration
	PublishedMaxKeep int
}

// NewConfig creates a new cleanup configuration by reading values
// from the already-initialized variables in the centralized /pkg/config package.
func NewConfig() *Config {
	return &Config{
		CleanupInterval:  config.CleanupInterval,
		VerboseReporting: config.CleanupVerboseReports,
		BoardTimeout:     config.BoardTimeout,
		RenderCacheTTL:   config.RenderCacheTTL,
		PublishedMaxKeep: config.PublishedResultMaxKeep,
	}
}
