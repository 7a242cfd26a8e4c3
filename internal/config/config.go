// Package config loads daemon configuration from environment variables.
// Every option has a working default; an empty environment yields a usable
// development setup.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds everything cmd/drainwatchd needs to wire the daemon.
type Config struct {
	// ListenAddr is the HTTP API listen address.
	ListenAddr string

	// AllowedOrigins configures CORS for browser dashboards. Empty means
	// same origin only.
	AllowedOrigins []string

	// FeedInterval is how often the simulated feed produces a batch. Zero
	// disables the simulator.
	FeedInterval time.Duration

	// RefreshInterval is how often stored readings are reclassified so
	// silent sensors drift to offline.
	RefreshInterval time.Duration

	// HistoryLimit bounds the trailing history kept per sensor.
	HistoryLimit int

	// Classification thresholds.
	WarningLevel         float64
	CriticalLevel        float64
	OfflineIfSignalBelow float64
	FreshnessWindow      time.Duration
}

// FromEnv builds a Config from DRAINWATCH_* environment variables, falling
// back to defaults for anything unset or unparsable.
func FromEnv() Config {
	return Config{
		ListenAddr:           getString("DRAINWATCH_LISTEN_ADDR", ":8080"),
		AllowedOrigins:       getStringList("DRAINWATCH_ALLOWED_ORIGINS", nil),
		FeedInterval:         getDuration("DRAINWATCH_FEED_INTERVAL", 5*time.Second),
		RefreshInterval:      getDuration("DRAINWATCH_REFRESH_INTERVAL", time.Minute),
		HistoryLimit:         getInt("DRAINWATCH_HISTORY_LIMIT", 50),
		WarningLevel:         getFloat("DRAINWATCH_WARNING_LEVEL", 60),
		CriticalLevel:        getFloat("DRAINWATCH_CRITICAL_LEVEL", 80),
		OfflineIfSignalBelow: getFloat("DRAINWATCH_OFFLINE_SIGNAL_BELOW", 1),
		FreshnessWindow:      getDuration("DRAINWATCH_FRESHNESS_WINDOW", 15*time.Minute),
	}
}

func getString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getStringList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getInt(key string, defaultValue int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		slog.With("key", key).With("value", value).With("error", err).Error("error converting to int, using default value")
		return defaultValue
	}
	return intValue
}

func getFloat(key string, defaultValue float64) float64 {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		slog.With("key", key).With("value", value).With("error", err).Error("error parsing to float, using default value")
		return defaultValue
	}
	return floatValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	durationValue, err := time.ParseDuration(value)
	if err != nil {
		slog.With("key", key).With("value", value).With("error", err).Error("error parsing to duration, using default value")
		return defaultValue
	}
	return durationValue
}
