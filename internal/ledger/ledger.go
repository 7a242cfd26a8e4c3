// Package ledger holds alert records keyed by id and enforces their
// lifecycle: active -> acknowledged -> resolved, never backward. Alerts
// persist until explicit resolution and are never silently dropped.
package ledger

import (
	"strings"
	"sync"
	"time"

	"drainwatch.sh/internal/derrors"
	"drainwatch.sh/internal/models"
)

// Ledger is safe for concurrent use. List order is raise order.
type Ledger struct {
	mu     sync.RWMutex
	alerts map[string]models.Alert
	order  []string
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{alerts: make(map[string]models.Alert)}
}

// Raise inserts a new alert in the active state. The alert's incoming
// lifecycle fields are ignored; every alert starts active. An unset CreatedAt
// is stamped with at, so callers control the clock.
func (l *Ledger) Raise(alert models.Alert, at time.Time) error {
	if err := alert.Validate(); err != nil {
		return derrors.Wrap(err, derrors.CodeInvalidArgument, "invalid alert")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.alerts[alert.ID]; exists {
		return derrors.Newf(derrors.CodeAlreadyExists, "alert %q already raised", alert.ID)
	}

	alert.State = models.StateActive
	alert.AcknowledgedBy = ""
	alert.AcknowledgedAt = nil
	alert.ResolvedBy = ""
	alert.ResolvedAt = nil
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = at
	}

	l.alerts[alert.ID] = alert
	l.order = append(l.order, alert.ID)
	return nil
}

// Acknowledge moves an active alert to acknowledged, recording who and when.
// Any other current state fails with FAILED_PRECONDITION and leaves the
// alert unchanged.
func (l *Ledger) Acknowledge(alertID, by string, at time.Time) (models.Alert, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	alert, ok := l.alerts[alertID]
	if !ok {
		return models.Alert{}, derrors.Newf(derrors.CodeNotFound, "alert %q not found", alertID)
	}
	if alert.State != models.StateActive {
		return models.Alert{}, derrors.Newf(derrors.CodeFailedPrecondition,
			"alert %q is %s, only active alerts can be acknowledged", alertID, alert.State)
	}

	alert.State = models.StateAcknowledged
	alert.AcknowledgedBy = by
	alert.AcknowledgedAt = &at
	l.alerts[alertID] = alert
	return alert.Clone(), nil
}

// Resolve moves an active or acknowledged alert to resolved. Resolving an
// alert that was never acknowledged is allowed (skip-ahead).
func (l *Ledger) Resolve(alertID, by string, at time.Time) (models.Alert, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	alert, ok := l.alerts[alertID]
	if !ok {
		return models.Alert{}, derrors.Newf(derrors.CodeNotFound, "alert %q not found", alertID)
	}
	if alert.State == models.StateResolved {
		return models.Alert{}, derrors.Newf(derrors.CodeFailedPrecondition,
			"alert %q is already resolved", alertID)
	}

	alert.State = models.StateResolved
	alert.ResolvedBy = by
	alert.ResolvedAt = &at
	l.alerts[alertID] = alert
	return alert.Clone(), nil
}

// Get returns a deep copy of one alert by id.
func (l *Ledger) Get(alertID string) (models.Alert, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	alert, ok := l.alerts[alertID]
	if !ok {
		return models.Alert{}, derrors.Newf(derrors.CodeNotFound, "alert %q not found", alertID)
	}
	return alert.Clone(), nil
}

// Filter selects alerts in List. Set fields AND-combine. SearchText matches
// case-insensitively as a substring of the title, sensor id, or location
// (any of the three).
type Filter struct {
	State      models.LifecycleState
	Severity   models.Severity
	Priority   models.Priority
	SensorID   string
	SearchText string
}

func (f Filter) matches(a models.Alert) bool {
	if f.State != "" && a.State != f.State {
		return false
	}
	if f.Severity != "" && a.Severity != f.Severity {
		return false
	}
	if f.Priority != "" && a.Priority != f.Priority {
		return false
	}
	if f.SensorID != "" && a.SensorID != f.SensorID {
		return false
	}
	if f.SearchText != "" {
		needle := strings.ToLower(f.SearchText)
		if !strings.Contains(strings.ToLower(a.Title), needle) &&
			!strings.Contains(strings.ToLower(a.SensorID), needle) &&
			!strings.Contains(strings.ToLower(a.Location), needle) {
			return false
		}
	}
	return true
}

// List returns deep copies of alerts matching the filter, in raise order.
// Mutating the result never affects ledger state.
func (l *Ledger) List(f Filter) []models.Alert {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.Alert, 0, len(l.order))
	for _, id := range l.order {
		if alert := l.alerts[id]; f.matches(alert) {
			out = append(out, alert.Clone())
		}
	}
	return out
}

// Len returns the number of alerts in the ledger.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.alerts)
}

// OpResult reports the outcome of one alert in a bulk operation.
type OpResult struct {
	AlertID string
	Err     error
}

// AcknowledgeMany acknowledges each alert independently. A failure on one id
// never blocks the others; callers get a result per id in input order.
func (l *Ledger) AcknowledgeMany(alertIDs []string, by string, at time.Time) []OpResult {
	results := make([]OpResult, 0, len(alertIDs))
	for _, id := range alertIDs {
		_, err := l.Acknowledge(id, by, at)
		results = append(results, OpResult{AlertID: id, Err: err})
	}
	return results
}

// ResolveMany resolves each alert independently, with per-id results.
func (l *Ledger) ResolveMany(alertIDs []string, by string, at time.Time) []OpResult {
	results := make([]OpResult, 0, len(alertIDs))
	for _, id := range alertIDs {
		_, err := l.Resolve(id, by, at)
		results = append(results, OpResult{AlertID: id, Err: err})
	}
	return results
}
