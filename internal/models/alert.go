package models

import (
	"time"
)

// Alert is an operator-facing event raised against a sensor. The sensor
// reference is soft: an alert may outlive the sensor it points at.
type Alert struct {
	ID       string `json:"id"`
	SensorID string `json:"sensor_id"`
	Location string `json:"location,omitempty"`

	Category AlertCategory `json:"category"`
	Severity Severity      `json:"severity"`
	Priority Priority      `json:"priority"`

	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Value       string `json:"value,omitempty"`
	Threshold   string `json:"threshold,omitempty"`
	AssignedTo  string `json:"assigned_to,omitempty"`

	State     LifecycleState `json:"state"`
	CreatedAt time.Time      `json:"created_at"`

	AcknowledgedBy string     `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	ResolvedBy     string     `json:"resolved_by,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
}

// AlertCategory classifies what an alert is about.
type AlertCategory string

const (
	CategoryWaterLevel  AlertCategory = "water_level"
	CategoryTemperature AlertCategory = "temperature"
	CategoryFlowRate    AlertCategory = "flow_rate"
	CategorySensorError AlertCategory = "sensor_error"
	CategoryBattery     AlertCategory = "battery"
	CategoryMaintenance AlertCategory = "maintenance"
)

// Severity and Priority are independent axes: severity describes how bad the
// condition is, priority how urgently an operator should act.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// LifecycleState tracks an alert's progress. Transitions are monotonic:
// active -> acknowledged -> resolved, with resolve allowed directly from
// active.
type LifecycleState string

const (
	StateActive       LifecycleState = "active"
	StateAcknowledged LifecycleState = "acknowledged"
	StateResolved     LifecycleState = "resolved"
)

// Rank orders severities for sorting. Higher is worse.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	}
	return 0
}

// Clone returns a deep copy. The timestamp pointers are fresh, so writes
// through the copy never reach the receiver.
func (a Alert) Clone() Alert {
	out := a
	if a.AcknowledgedAt != nil {
		t := *a.AcknowledgedAt
		out.AcknowledgedAt = &t
	}
	if a.ResolvedAt != nil {
		t := *a.ResolvedAt
		out.ResolvedAt = &t
	}
	return out
}

// Validate checks that an alert can be raised.
func (a *Alert) Validate() error {
	if a.ID == "" {
		return ErrInvalidAlert("alert ID is required")
	}
	if a.SensorID == "" {
		return ErrInvalidAlert("sensor ID is required")
	}
	if a.Title == "" {
		return ErrInvalidAlert("alert title is required")
	}
	return nil
}

// ErrInvalidAlert represents an alert validation error.
type ErrInvalidAlert string

func (e ErrInvalidAlert) Error() string {
	return string(e)
}
