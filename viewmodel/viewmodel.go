// Package viewmodel is the single entry point presentation code calls. It
// composes the classifier, sensor registry, alert ledger, aggregator, and
// query engine behind one facade that hands out mutually consistent
// snapshots.
package viewmodel

import (
	"log/slog"
	"sync"
	"time"

	"drainwatch.sh/internal/aggregate"
	"drainwatch.sh/internal/classifier"
	"drainwatch.sh/internal/derrors"
	"drainwatch.sh/internal/ledger"
	"drainwatch.sh/internal/models"
	"drainwatch.sh/internal/query"
	"drainwatch.sh/internal/registry"
)

// Options configures a view model at construction. There is no runtime
// reconfiguration; build a new view model to change thresholds.
type Options struct {
	Thresholds   classifier.Thresholds
	HistoryLimit int
	Zones        []models.Zone

	// Clock overrides the time source. Intended for tests.
	Clock func() time.Time
}

// ViewModel owns all dashboard state. Its mutex serializes writers, so
// multiple feed goroutines may call Ingest concurrently; each call is
// applied atomically with respect to Snapshot.
type ViewModel struct {
	mu       sync.RWMutex
	registry *registry.Registry
	ledger   *ledger.Ledger
	zones    []models.Zone
	agg      aggregate.SystemAggregate
	version  uint64
	now      func() time.Time
	logger   *slog.Logger
}

// New creates a view model with empty registry and ledger.
func New(opts Options) *ViewModel {
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	c := classifier.New(opts.Thresholds)
	reg := registry.New(c, opts.HistoryLimit)
	reg.SetClock(now)

	zones := make([]models.Zone, len(opts.Zones))
	copy(zones, opts.Zones)

	return &ViewModel{
		registry: reg,
		ledger:   ledger.New(),
		zones:    zones,
		agg:      aggregate.SystemAggregate{Zones: map[string]aggregate.Rollup{}},
		now:      now,
		logger:   slog.Default().With("component", "viewmodel"),
	}
}

// IngestError reports one rejected record of an ingest batch.
type IngestError struct {
	Kind string `json:"kind"` // "reading" or "alert"
	ID   string `json:"id,omitempty"`
	Err  error  `json:"-"`
}

// Message returns the rejection reason for serialization.
func (e IngestError) Message() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// IngestResult summarizes one ingest call. Errors are per-record; the rest
// of the batch is always applied (partial failure, never all-or-nothing).
type IngestResult struct {
	Version  uint64        `json:"version"`
	Accepted int           `json:"accepted"`
	Errors   []IngestError `json:"errors,omitempty"`
}

// Ingest applies a batch of readings and alerts, then recomputes the cached
// aggregates so the next Snapshot observes registry, ledger, and rollups
// from the same state version. The version counter increments only when at
// least one record was applied, so pollers can skip re-rendering when
// nothing changed.
func (vm *ViewModel) Ingest(readings []models.SensorReading, alerts []models.Alert) IngestResult {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	var result IngestResult
	for _, r := range readings {
		if _, err := vm.registry.Upsert(r); err != nil {
			result.Errors = append(result.Errors, IngestError{Kind: "reading", ID: r.SensorID, Err: err})
			continue
		}
		result.Accepted++
	}
	for _, a := range alerts {
		if err := vm.ledger.Raise(a, vm.now()); err != nil {
			result.Errors = append(result.Errors, IngestError{Kind: "alert", ID: a.ID, Err: err})
			continue
		}
		result.Accepted++
	}

	if result.Accepted > 0 {
		vm.version++
		vm.recompute()
	}
	result.Version = vm.version

	if len(result.Errors) > 0 {
		vm.logger.Warn("ingest batch partially rejected",
			"accepted", result.Accepted,
			"rejected", len(result.Errors))
	}
	return result
}

// Snapshot is one atomic read of the whole view model. The three collections
// are always computed from the same underlying state version.
type Snapshot struct {
	Sensors    []models.SensorReading    `json:"sensors"`
	Alerts     []models.Alert            `json:"alerts"`
	Zones      []models.Zone             `json:"zones,omitempty"`
	Aggregates aggregate.SystemAggregate `json:"aggregates"`
	Version    uint64                    `json:"version"`
}

// Snapshot returns the current state as deep copies, pointer fields
// included; the caller may hold or mutate them freely.
func (vm *ViewModel) Snapshot() Snapshot {
	vm.mu.RLock()
	defer vm.mu.RUnlock()

	zones := make([]models.Zone, len(vm.zones))
	copy(zones, vm.zones)

	return Snapshot{
		Sensors:    vm.registry.List(),
		Alerts:     vm.ledger.List(ledger.Filter{}),
		Zones:      zones,
		Aggregates: vm.agg.Clone(),
		Version:    vm.version,
	}
}

// Version returns the current state version.
func (vm *ViewModel) Version() uint64 {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.version
}

// Query answers one view's filtered projection against the current state.
func (vm *ViewModel) Query(spec query.Spec) query.Result {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return query.Apply(vm.registry.List(), vm.ledger.List(ledger.Filter{}), spec)
}

// ListAlerts answers the alerts view with the ledger's richer filter.
func (vm *ViewModel) ListAlerts(f ledger.Filter) []models.Alert {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.ledger.List(f)
}

// Sensor returns one sensor's latest reading and trailing history.
func (vm *ViewModel) Sensor(sensorID string) (models.SensorReading, []models.SensorReading, error) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()

	latest, err := vm.registry.Get(sensorID)
	if err != nil {
		return models.SensorReading{}, nil, err
	}
	history, err := vm.registry.History(sensorID)
	if err != nil {
		return models.SensorReading{}, nil, err
	}
	return latest, history, nil
}

// RemoveSensor deletes a sensor and its history. Alerts referencing it are
// kept with a dangling soft reference.
func (vm *ViewModel) RemoveSensor(sensorID string) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	if err := vm.registry.Remove(sensorID); err != nil {
		return err
	}
	vm.version++
	vm.recompute()
	return nil
}

// Acknowledge marks an alert acknowledged by the given actor.
func (vm *ViewModel) Acknowledge(alertID, actor string) (models.Alert, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	alert, err := vm.ledger.Acknowledge(alertID, actor, vm.now())
	if err != nil {
		return models.Alert{}, err
	}
	vm.version++
	vm.recompute()
	return alert, nil
}

// Resolve marks an alert resolved by the given actor.
func (vm *ViewModel) Resolve(alertID, actor string) (models.Alert, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	alert, err := vm.ledger.Resolve(alertID, actor, vm.now())
	if err != nil {
		return models.Alert{}, err
	}
	vm.version++
	vm.recompute()
	return alert, nil
}

// AcknowledgeMany applies per-alert transition rules independently and
// returns a result per id. The version advances when any succeeded.
func (vm *ViewModel) AcknowledgeMany(alertIDs []string, actor string) []ledger.OpResult {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	results := vm.ledger.AcknowledgeMany(alertIDs, actor, vm.now())
	vm.afterBulk(results)
	return results
}

// ResolveMany resolves each alert independently with per-id results.
func (vm *ViewModel) ResolveMany(alertIDs []string, actor string) []ledger.OpResult {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	results := vm.ledger.ResolveMany(alertIDs, actor, vm.now())
	vm.afterBulk(results)
	return results
}

func (vm *ViewModel) afterBulk(results []ledger.OpResult) {
	for _, r := range results {
		if r.Err == nil {
			vm.version++
			vm.recompute()
			return
		}
	}
}

// Zones returns the configured zone metadata.
func (vm *ViewModel) Zones() []models.Zone {
	vm.mu.RLock()
	defer vm.mu.RUnlock()

	out := make([]models.Zone, len(vm.zones))
	copy(out, vm.zones)
	return out
}

// Refresh reclassifies stored readings against the current clock and, when
// any status changed, recomputes aggregates and advances the version.
// Sensors that went silent drift to offline without requiring a new ingest.
func (vm *ViewModel) Refresh() {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	if vm.registry.Reclassify() > 0 {
		vm.version++
		vm.recompute()
	}
}

// recompute rebuilds the cached aggregates. Callers must hold the write
// lock; registry and ledger updates always happen before this within the
// same locked section.
func (vm *ViewModel) recompute() {
	vm.agg = aggregate.Compute(vm.registry.List(), vm.ledger.List(ledger.Filter{}))
}

// IsNotFound reports whether err marks an unknown sensor or alert id.
func IsNotFound(err error) bool {
	return derrors.IsCode(err, derrors.CodeNotFound)
}
