package performance

import (
	"fmt"
	"sync"
	"time"
)

// Tracker manages performance markers and provides metrics aggregation
type Tracker struct {
	markers map[string]*Marker
	mu      sync.RWMutex
	started time.Time
	config  *TrackerConfig
}

// TrackerConfig contains configuration options for the performance tracker
type TrackerConfig struct {
	MaxMarkers            int           `json:"maxMarkers"`
	SlowResponseThreshold time.Duration `json:"slowResponseThreshold"`
}

// DefaultTrackerConfig returns a sensible default configuration
func DefaultTrackerConfig() *TrackerConfig {
	return &TrackerConfig{
		MaxMarkers:            10000,
		SlowResponseThreshold: 500 * time.Millisecond,
	}
}

// NewTracker creates a new performance tracker with the given configuration
func NewTracker(config *TrackerConfig) *Tracker {
	if config == nil {
		config = DefaultTrackerConfig()
	}

	return &Tracker{
		markers: make(map[string]*Marker),
		started: time.Now(),
		config:  config,
	}
}

// StartOperation begins tracking a new operation for a board
func (t *Tracker) StartOperation(operation, boardID string) *Marker {
	marker := &Marker{
		Operation: operation,
		BoardID:   boardID,
		StartTime: time.Now(),
		Metadata:  make(map[string]any),
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.markers) >= t.config.MaxMarkers {
		t.evictOldestLocked()
	}

	key := fmt.Sprintf("%s:%s:%d", operation, boardID, marker.StartTime.UnixNano())
	t.markers[key] = marker
	return marker
}

// evictOldestLocked drops the oldest completed marker. Caller holds t.mu.
func (t *Tracker) evictOldestLocked() {
	var oldestKey string
	var oldestTime time.Time
	for key, m := range t.markers {
		if !m.Completed {
			continue
		}
		if oldestKey == "" || m.StartTime.Before(oldestTime) {
			oldestKey = key
			oldestTime = m.StartTime
		}
	}
	if oldestKey != "" {
		delete(t.markers, oldestKey)
	}
}

// Stats summarizes completed markers per operation.
type Stats struct {
	Operation     string        `json:"operation"`
	Count         int           `json:"count"`
	Failures      int           `json:"failures"`
	TotalDuration time.Duration `json:"totalDuration"`
	MaxDuration   time.Duration `json:"maxDuration"`
}

// GetStats aggregates completed markers by operation name.
func (t *Tracker) GetStats() map[string]*Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	stats := make(map[string]*Stats)
	for _, m := range t.markers {
		if !m.Completed {
			continue
		}
		s, ok := stats[m.Operation]
		if !ok {
			s = &Stats{Operation: m.Operation}
			stats[m.Operation] = s
		}
		s.Count++
		if !m.Success {
			s.Failures++
		}
		s.TotalDuration += m.Duration
		if m.Duration > s.MaxDuration {
			s.MaxDuration = m.Duration
		}
	}
	return stats
}

// Uptime reports how long the tracker has been running.
func (t *Tracker) Uptime() time.Duration {
	return time.Since(t.started)
}
