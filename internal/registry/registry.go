// Package registry holds the current known set of sensors: the latest
// reading per sensor plus a bounded trailing history used for trend
// sparklines.
package registry

import (
	"sync"
	"time"

	"drainwatch.sh/internal/classifier"
	"drainwatch.sh/internal/derrors"
	"drainwatch.sh/internal/models"
)

// DefaultHistoryLimit bounds the trailing history kept per sensor.
const DefaultHistoryLimit = 50

// Registry is safe for concurrent use. List order is the insertion order of
// each sensor's first-ever upsert, unaffected by later updates, so views
// render reproducibly across refreshes.
type Registry struct {
	mu           sync.RWMutex
	classifier   *classifier.Classifier
	latest       map[string]models.SensorReading
	history      map[string][]models.SensorReading
	order        []string
	historyLimit int
	now          func() time.Time
}

// New creates a registry. A historyLimit <= 0 selects the default.
func New(c *classifier.Classifier, historyLimit int) *Registry {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Registry{
		classifier:   c,
		latest:       make(map[string]models.SensorReading),
		history:      make(map[string][]models.SensorReading),
		historyLimit: historyLimit,
		now:          time.Now,
	}
}

// SetClock overrides the time source. Intended for tests.
func (r *Registry) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Upsert replaces the stored reading for the reading's sensor, recomputes
// its derived status, and appends it to the bounded history (oldest sample
// evicted first). The reading is copied on the way in, so the registry never
// shares pointers with the caller. Returns the stored reading.
func (r *Registry) Upsert(reading models.SensorReading) (models.SensorReading, error) {
	if err := reading.Validate(); err != nil {
		return models.SensorReading{}, derrors.Wrap(err, derrors.CodeInvalidArgument, "invalid reading")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	reading = reading.Clone()
	reading.Status = r.classifier.Classify(reading, r.now())

	if _, known := r.latest[reading.SensorID]; !known {
		r.order = append(r.order, reading.SensorID)
	}
	r.latest[reading.SensorID] = reading

	hist := append(r.history[reading.SensorID], reading)
	if len(hist) > r.historyLimit {
		hist = hist[len(hist)-r.historyLimit:]
	}
	r.history[reading.SensorID] = hist

	return reading.Clone(), nil
}

// Get returns a deep copy of the latest reading for a sensor.
func (r *Registry) Get(sensorID string) (models.SensorReading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reading, ok := r.latest[sensorID]
	if !ok {
		return models.SensorReading{}, derrors.Newf(derrors.CodeNotFound, "sensor %q not found", sensorID)
	}
	return reading.Clone(), nil
}

// History returns a deep copy of the trailing history for a sensor, oldest
// first.
func (r *Registry) History(sensorID string) ([]models.SensorReading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	hist, ok := r.history[sensorID]
	if !ok {
		return nil, derrors.Newf(derrors.CodeNotFound, "sensor %q not found", sensorID)
	}
	out := make([]models.SensorReading, 0, len(hist))
	for _, reading := range hist {
		out = append(out, reading.Clone())
	}
	return out, nil
}

// List returns deep copies of the latest reading of every sensor in stable
// insertion order. Mutating the result never affects registry state.
func (r *Registry) List() []models.SensorReading {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.SensorReading, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.latest[id].Clone())
	}
	return out
}

// Len returns the number of known sensors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.latest)
}

// Remove deletes a sensor and its history. Alerts referencing the sensor are
// untouched; they keep a dangling soft reference.
func (r *Registry) Remove(sensorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.latest[sensorID]; !ok {
		return derrors.Newf(derrors.CodeNotFound, "sensor %q not found", sensorID)
	}
	delete(r.latest, sensorID)
	delete(r.history, sensorID)
	for i, id := range r.order {
		if id == sensorID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Reclassify recomputes the derived status of every stored reading against
// the current clock and returns how many changed. Stale sensors drift to
// offline between ingests.
func (r *Registry) Reclassify() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	changed := 0
	for id, reading := range r.latest {
		status := r.classifier.Classify(reading, now)
		if status != reading.Status {
			reading.Status = status
			r.latest[id] = reading
			changed++
		}
	}
	return changed
}
