// Package query answers read-only, UI-shaped questions against registry and
// ledger snapshots. It holds no state of its own and never mutates its
// inputs; each call returns fresh slices.
package query

import (
	"sort"
	"strings"

	"drainwatch.sh/internal/models"
)

// SortKey selects the sensor ordering of a result.
type SortKey string

const (
	// SortNone keeps the input order (registry insertion order).
	SortNone SortKey = ""

	// SortBySeverity orders sensors worst-first: critical, warning, normal,
	// offline.
	SortBySeverity SortKey = "severity"

	// SortByID orders sensors by id ascending.
	SortByID SortKey = "id"

	// SortByLevel orders sensors by water level descending; sensors without
	// a level sort last.
	SortByLevel SortKey = "level"
)

// Spec describes one view's filters. Set fields AND-combine. SearchText is
// applied independently per entity type against its own display fields.
type Spec struct {
	Status     models.Status
	Zone       string
	Tab        models.LifecycleState
	SearchText string
	SortBy     SortKey
}

// Result is the exact pair of collections a view renders.
type Result struct {
	Sensors []models.SensorReading `json:"sensors"`
	Alerts  []models.Alert         `json:"alerts"`
}

// Apply filters and sorts snapshots per the spec. Sorting is stable: sensors
// with equal keys keep their input relative order, so re-renders do not
// flicker.
func Apply(sensors []models.SensorReading, alerts []models.Alert, spec Spec) Result {
	return Result{
		Sensors: filterSensors(sensors, spec),
		Alerts:  filterAlerts(alerts, spec),
	}
}

func filterSensors(sensors []models.SensorReading, spec Spec) []models.SensorReading {
	needle := strings.ToLower(spec.SearchText)
	out := make([]models.SensorReading, 0, len(sensors))
	for _, s := range sensors {
		if spec.Status != "" && s.Status != spec.Status {
			continue
		}
		if spec.Zone != "" && s.ZoneID != spec.Zone {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(s.SensorID), needle) &&
			!strings.Contains(strings.ToLower(s.Location), needle) {
			continue
		}
		out = append(out, s)
	}
	sortSensors(out, spec.SortBy)
	return out
}

func filterAlerts(alerts []models.Alert, spec Spec) []models.Alert {
	needle := strings.ToLower(spec.SearchText)
	out := make([]models.Alert, 0, len(alerts))
	for _, a := range alerts {
		if spec.Tab != "" && a.State != spec.Tab {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(a.Title), needle) &&
			!strings.Contains(strings.ToLower(a.SensorID), needle) &&
			!strings.Contains(strings.ToLower(a.Location), needle) {
			continue
		}
		out = append(out, a)
	}
	if spec.SortBy == SortBySeverity {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Severity.Rank() > out[j].Severity.Rank()
		})
	}
	return out
}

func sortSensors(sensors []models.SensorReading, key SortKey) {
	switch key {
	case SortBySeverity:
		sort.SliceStable(sensors, func(i, j int) bool {
			return sensors[i].Status.SeverityRank() > sensors[j].Status.SeverityRank()
		})
	case SortByID:
		sort.SliceStable(sensors, func(i, j int) bool {
			return sensors[i].SensorID < sensors[j].SensorID
		})
	case SortByLevel:
		sort.SliceStable(sensors, func(i, j int) bool {
			li, lj := sensors[i].WaterLevelPct, sensors[j].WaterLevelPct
			switch {
			case li == nil:
				return false
			case lj == nil:
				return true
			default:
				return *li > *lj
			}
		})
	}
}
