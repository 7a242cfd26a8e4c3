// Package aggregate computes zone-level and system-level rollups from
// registry and ledger snapshots. Rollups are always recomputed in full from
// current state, never incrementally patched, so they cannot drift.
package aggregate

import (
	"drainwatch.sh/internal/models"
)

// StatusCounts counts sensors per derived status.
type StatusCounts struct {
	Normal   int `json:"normal"`
	Warning  int `json:"warning"`
	Critical int `json:"critical"`
	Offline  int `json:"offline"`
}

// Total returns the number of counted sensors.
func (c StatusCounts) Total() int {
	return c.Normal + c.Warning + c.Critical + c.Offline
}

func (c *StatusCounts) add(s models.Status) {
	switch s {
	case models.StatusNormal:
		c.Normal++
	case models.StatusWarning:
		c.Warning++
	case models.StatusCritical:
		c.Critical++
	case models.StatusOffline:
		c.Offline++
	}
}

// AlertCounts counts alerts per lifecycle state and per severity.
type AlertCounts struct {
	Active       int `json:"active"`
	Acknowledged int `json:"acknowledged"`
	Resolved     int `json:"resolved"`

	Critical int `json:"critical"`
	Warning  int `json:"warning"`
	Info     int `json:"info"`
}

func (c *AlertCounts) add(a models.Alert) {
	switch a.State {
	case models.StateActive:
		c.Active++
	case models.StateAcknowledged:
		c.Acknowledged++
	case models.StateResolved:
		c.Resolved++
	}
	switch a.Severity {
	case models.SeverityCritical:
		c.Critical++
	case models.SeverityWarning:
		c.Warning++
	case models.SeverityInfo:
		c.Info++
	}
}

// Rollup is one scope's statistics: the whole system or a single zone.
// AvgWaterLevelPct is the mean over sensors that reported a level; sensors
// without one are excluded from the denominator, and the field is nil when
// no sensor in scope reported a level.
type Rollup struct {
	Sensors          StatusCounts `json:"sensors"`
	AvgWaterLevelPct *float64     `json:"avg_water_level_pct,omitempty"`
	Alerts           AlertCounts  `json:"alerts"`
}

// SystemAggregate is the full rollup set for one state version.
type SystemAggregate struct {
	System Rollup            `json:"system"`
	Zones  map[string]Rollup `json:"zones"`
}

// Clone returns a deep copy; the zone map and average pointers are fresh, so
// writes through the copy never reach the receiver.
func (a SystemAggregate) Clone() SystemAggregate {
	out := SystemAggregate{
		System: a.System.clone(),
		Zones:  make(map[string]Rollup, len(a.Zones)),
	}
	for id, r := range a.Zones {
		out.Zones[id] = r.clone()
	}
	return out
}

func (r Rollup) clone() Rollup {
	if r.AvgWaterLevelPct != nil {
		v := *r.AvgWaterLevelPct
		r.AvgWaterLevelPct = &v
	}
	return r
}

type accumulator struct {
	rollup   Rollup
	levelSum float64
	levelN   int
}

func (acc *accumulator) addReading(r models.SensorReading) {
	acc.rollup.Sensors.add(r.Status)
	if r.WaterLevelPct != nil {
		acc.levelSum += *r.WaterLevelPct
		acc.levelN++
	}
}

func (acc *accumulator) finish() Rollup {
	if acc.levelN > 0 {
		avg := acc.levelSum / float64(acc.levelN)
		acc.rollup.AvgWaterLevelPct = &avg
	}
	return acc.rollup
}

// Compute derives the aggregate from snapshots of current sensors and
// alerts. It is pure: identical snapshots always produce identical output.
// Alerts are attributed to a zone through the sensor they reference; alerts
// whose sensor is unknown count toward the system scope only.
func Compute(sensors []models.SensorReading, alerts []models.Alert) SystemAggregate {
	system := &accumulator{}
	zones := make(map[string]*accumulator)
	sensorZone := make(map[string]string, len(sensors))

	for _, r := range sensors {
		system.addReading(r)
		sensorZone[r.SensorID] = r.ZoneID
		if r.ZoneID == "" {
			continue
		}
		acc, ok := zones[r.ZoneID]
		if !ok {
			acc = &accumulator{}
			zones[r.ZoneID] = acc
		}
		acc.addReading(r)
	}

	for _, a := range alerts {
		system.rollup.Alerts.add(a)
		if zoneID, ok := sensorZone[a.SensorID]; ok && zoneID != "" {
			if acc, ok := zones[zoneID]; ok {
				acc.rollup.Alerts.add(a)
			}
		}
	}

	out := SystemAggregate{
		System: system.finish(),
		Zones:  make(map[string]Rollup, len(zones)),
	}
	for id, acc := range zones {
		out.Zones[id] = acc.finish()
	}
	return out
}
