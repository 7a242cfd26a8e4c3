// Package classifier maps raw sensor readings to a discrete status tier.
// This is the single home for threshold logic; consumers read the derived
// status and never recompute thresholds themselves.
package classifier

import (
	"time"

	"drainwatch.sh/internal/models"
)

// Default threshold values, matching the dashboard's color bands.
const (
	DefaultWarningLevel         = 60
	DefaultCriticalLevel        = 80
	DefaultOfflineIfSignalBelow = 1
	DefaultFreshnessWindow      = 15 * time.Minute
)

// Thresholds configures classification. The zero value of any field selects
// its default.
type Thresholds struct {
	// WarningLevel and CriticalLevel are inclusive lower bounds on
	// WaterLevelPct for the warning and critical tiers.
	WarningLevel  float64
	CriticalLevel float64

	// OfflineIfSignalBelow marks a sensor offline when its reported signal
	// strength falls below this percentage.
	OfflineIfSignalBelow float64

	// FreshnessWindow marks a sensor offline when its last observation is
	// older than this, or absent entirely. A stale sensor is offline no
	// matter what it last reported.
	FreshnessWindow time.Duration
}

// DefaultThresholds returns the standard configuration.
func DefaultThresholds() Thresholds {
	return Thresholds{
		WarningLevel:         DefaultWarningLevel,
		CriticalLevel:        DefaultCriticalLevel,
		OfflineIfSignalBelow: DefaultOfflineIfSignalBelow,
		FreshnessWindow:      DefaultFreshnessWindow,
	}
}

// Classifier derives statuses from readings. It holds no mutable state and
// is safe for concurrent use.
type Classifier struct {
	thresholds Thresholds
}

// New creates a classifier, filling unset threshold fields with defaults.
func New(t Thresholds) *Classifier {
	if t.WarningLevel <= 0 {
		t.WarningLevel = DefaultWarningLevel
	}
	if t.CriticalLevel <= 0 {
		t.CriticalLevel = DefaultCriticalLevel
	}
	if t.OfflineIfSignalBelow <= 0 {
		t.OfflineIfSignalBelow = DefaultOfflineIfSignalBelow
	}
	if t.FreshnessWindow <= 0 {
		t.FreshnessWindow = DefaultFreshnessWindow
	}
	return &Classifier{thresholds: t}
}

// Thresholds returns the active configuration.
func (c *Classifier) Thresholds() Thresholds {
	return c.thresholds
}

// Classify derives the status for a reading as of the given instant. It is a
// pure function of the reading, the thresholds, and now: identical inputs
// always classify identically. Missing optional fields never cause an error;
// a non-offline reading without a water level classifies as normal.
func (c *Classifier) Classify(r models.SensorReading, now time.Time) models.Status {
	if c.offline(r, now) {
		return models.StatusOffline
	}
	if r.WaterLevelPct == nil {
		return models.StatusNormal
	}
	switch level := *r.WaterLevelPct; {
	case level >= c.thresholds.CriticalLevel:
		return models.StatusCritical
	case level >= c.thresholds.WarningLevel:
		return models.StatusWarning
	default:
		return models.StatusNormal
	}
}

func (c *Classifier) offline(r models.SensorReading, now time.Time) bool {
	if r.ObservedAt.IsZero() {
		return true
	}
	if now.Sub(r.ObservedAt) > c.thresholds.FreshnessWindow {
		return true
	}
	return r.SignalPct != nil && *r.SignalPct < c.thresholds.OfflineIfSignalBelow
}
