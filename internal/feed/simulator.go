// Package feed is the external feed collaborator during development: it
// generates plausible readings and alerts for a fixture fleet and pushes
// them into the view model. A production deployment replaces this with a
// client for the real sensor uplink; the view model cannot tell the
// difference.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"drainwatch.sh/internal/metrics"
	"drainwatch.sh/internal/models"
	"drainwatch.sh/viewmodel"
)

// Zones is the fixture zone metadata.
var Zones = []models.Zone{
	{ID: "zone-a", Name: "Zone A: Downtown", Color: "#3b82f6"},
	{ID: "zone-b", Name: "Zone B: Industrial", Color: "#10b981"},
	{ID: "zone-c", Name: "Zone C: Residential", Color: "#8b5cf6"},
}

type fixtureSensor struct {
	id       string
	location string
	zone     string
	baseline float64 // resting water level
	silent   bool    // never reports; exercises the offline path
}

var fleet = []fixtureSensor{
	{id: "S-001", location: "Main Street Junction", zone: "zone-a", baseline: 80},
	{id: "S-002", location: "Park Avenue Drain", zone: "zone-a", baseline: 62},
	{id: "S-003", location: "Central Plaza", zone: "zone-b", baseline: 32},
	{id: "S-004", location: "Harbor District", zone: "zone-c", baseline: 45},
	{id: "S-005", location: "Industrial Area", zone: "zone-b", baseline: 66},
	{id: "S-006", location: "Residential Block 5", zone: "zone-a", baseline: 28},
	{id: "S-007", location: "Shopping District", zone: "zone-c", baseline: 0, silent: true},
	{id: "S-008", location: "Tech Park Entrance", zone: "zone-b", baseline: 38},
}

type sensorState struct {
	fixtureSensor
	level   float64
	battery float64
	alerted bool // a critical alert is already open for this sensor
}

// Simulator drives a view model with synthetic batches on a ticker.
type Simulator struct {
	vm       *viewmodel.ViewModel
	interval time.Duration
	rng      *rand.Rand
	state    []*sensorState
	critical float64
	logger   *slog.Logger
}

// New creates a simulator. The critical level is used to decide when to
// raise a water-level alert alongside a reading.
func New(vm *viewmodel.ViewModel, interval time.Duration, criticalLevel float64) *Simulator {
	state := make([]*sensorState, 0, len(fleet))
	for _, f := range fleet {
		state = append(state, &sensorState{
			fixtureSensor: f,
			level:         f.baseline,
			battery:       70 + rand.Float64()*30,
		})
	}
	return &Simulator{
		vm:       vm,
		interval: interval,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		state:    state,
		critical: criticalLevel,
		logger:   slog.Default().With("component", "feed"),
	}
}

// Run produces batches until the context is cancelled.
func (s *Simulator) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick() // seed immediately so the dashboard is never empty

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick generates and ingests one batch. Exported so tests can step the
// simulator without a ticker.
func (s *Simulator) Tick() viewmodel.IngestResult {
	readings, alerts := s.generate(time.Now())
	result := s.vm.Ingest(readings, alerts)

	metrics.ObserveIngest(
		acceptedByKind(len(readings), result.Errors, "reading"),
		acceptedByKind(len(alerts), result.Errors, "alert"),
		len(result.Errors))
	snap := s.vm.Snapshot()
	metrics.ObserveState(snap.Aggregates, snap.Version)

	if len(result.Errors) > 0 {
		s.logger.Warn("simulator batch rejected records", "rejected", len(result.Errors))
	}
	s.logger.Debug("ingested batch",
		"readings", len(readings),
		"alerts", len(alerts),
		"version", result.Version)
	return result
}

func (s *Simulator) generate(now time.Time) ([]models.SensorReading, []models.Alert) {
	var readings []models.SensorReading
	var alerts []models.Alert

	for _, st := range s.state {
		if st.silent {
			continue
		}

		// Random walk around the baseline, clamped to 0-100.
		st.level += s.rng.Float64()*10 - 5
		if st.level < 0 {
			st.level = 0
		}
		if st.level > 100 {
			st.level = 100
		}
		st.battery -= s.rng.Float64() * 0.05
		if st.battery < 5 {
			st.battery = 100 // battery swap
		}

		readings = append(readings, models.SensorReading{
			SensorID:      st.id,
			ZoneID:        st.zone,
			Location:      st.location,
			WaterLevelPct: models.Float(round1(st.level)),
			FlowRate:      models.Float(round1(20 + st.level*1.2 + s.rng.Float64()*10)),
			Temperature:   models.Float(round1(20 + s.rng.Float64()*6)),
			BatteryPct:    models.Float(round1(st.battery)),
			SignalPct:     models.Float(round1(75 + s.rng.Float64()*25)),
			ObservedAt:    now,
		})

		switch {
		case st.level >= s.critical && !st.alerted:
			st.alerted = true
			alerts = append(alerts, models.Alert{
				ID:          uuid.New().String(),
				SensorID:    st.id,
				Location:    st.location,
				Category:    models.CategoryWaterLevel,
				Severity:    models.SeverityCritical,
				Priority:    models.PriorityHigh,
				Title:       "Critical Water Level Exceeded",
				Description: fmt.Sprintf("Water level at %s has exceeded the critical threshold.", st.location),
				Value:       fmt.Sprintf("%.0f%%", st.level),
				Threshold:   fmt.Sprintf("%.0f%%", s.critical),
				CreatedAt:   now,
			})
		case st.level < s.critical-10:
			// Re-arm once the level has clearly receded.
			st.alerted = false
		}
	}

	return readings, alerts
}

// acceptedByKind subtracts the rejected records of one kind from the batch
// total, so the metrics count only what actually landed.
func acceptedByKind(total int, errs []viewmodel.IngestError, kind string) int {
	for _, e := range errs {
		if e.Kind == kind {
			total--
		}
	}
	return total
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
