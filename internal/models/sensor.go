package models

import (
	"time"
)

// SensorReading is the latest set of measurements reported by one drain
// sensor. All measurement fields are independently optional; a nil pointer
// means the sensor did not report that channel, which is distinct from
// reporting zero.
type SensorReading struct {
	SensorID string `json:"sensor_id"`
	ZoneID   string `json:"zone_id,omitempty"`
	Location string `json:"location,omitempty"`

	WaterLevelPct *float64 `json:"water_level_pct,omitempty"`
	FlowRate      *float64 `json:"flow_rate,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
	BatteryPct    *float64 `json:"battery_pct,omitempty"`
	SignalPct     *float64 `json:"signal_pct,omitempty"`

	ObservedAt time.Time         `json:"observed_at"`
	Metadata   map[string]string `json:"metadata,omitempty"`

	// Status is derived by the classifier on every ingest. It is never
	// accepted from the feed as ground truth.
	Status Status `json:"status"`
}

// Status is the classification tier derived from a reading.
type Status string

const (
	StatusNormal   Status = "normal"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
	StatusOffline  Status = "offline"
)

// SeverityRank orders statuses by urgency for sorting. Higher is worse.
func (s Status) SeverityRank() int {
	switch s {
	case StatusCritical:
		return 3
	case StatusWarning:
		return 2
	case StatusNormal:
		return 1
	case StatusOffline:
		return 0
	}
	return -1
}

// Zone is a named grouping of sensors used for rollups and map partitioning.
// Color is display-only and carried through untouched.
type Zone struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Validate checks that a reading can be ingested.
func (r *SensorReading) Validate() error {
	if r.SensorID == "" {
		return ErrInvalidReading("sensor ID is required")
	}
	if r.WaterLevelPct != nil && (*r.WaterLevelPct < 0 || *r.WaterLevelPct > 100) {
		return ErrInvalidReading("water level must be within 0-100")
	}
	return nil
}

// ErrInvalidReading represents a reading validation error.
type ErrInvalidReading string

func (e ErrInvalidReading) Error() string {
	return string(e)
}

// Clone returns a deep copy. The measurement pointers and metadata map are
// fresh, so writes through the copy never reach the receiver.
func (r SensorReading) Clone() SensorReading {
	out := r
	out.WaterLevelPct = cloneFloat(r.WaterLevelPct)
	out.FlowRate = cloneFloat(r.FlowRate)
	out.Temperature = cloneFloat(r.Temperature)
	out.BatteryPct = cloneFloat(r.BatteryPct)
	out.SignalPct = cloneFloat(r.SignalPct)
	if r.Metadata != nil {
		out.Metadata = make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Float is a convenience for building optional measurement fields.
func Float(v float64) *float64 {
	return &v
}
