package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drainwatch.sh/internal/derrors"
	"drainwatch.sh/internal/ledger"
	"drainwatch.sh/internal/models"
)

func alert(id, sensorID string) models.Alert {
	return models.Alert{
		ID:       id,
		SensorID: sensorID,
		Location: "Main Street Junction",
		Category: models.CategoryWaterLevel,
		Severity: models.SeverityCritical,
		Priority: models.PriorityHigh,
		Title:    "Critical Water Level Exceeded",
	}
}

func TestRaise(t *testing.T) {
	l := ledger.New()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, l.Raise(alert("ALT-001", "S-001"), now))

	got, err := l.Get("ALT-001")
	require.NoError(t, err)
	assert.Equal(t, models.StateActive, got.State)
	// An unset CreatedAt is stamped with the caller's time, never the wall
	// clock.
	assert.Equal(t, now, got.CreatedAt)
	assert.Nil(t, got.AcknowledgedAt)
	assert.Nil(t, got.ResolvedAt)
}

func TestRaiseKeepsExplicitCreatedAt(t *testing.T) {
	l := ledger.New()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	created := now.Add(-time.Hour)

	a := alert("ALT-001", "S-001")
	a.CreatedAt = created
	require.NoError(t, l.Raise(a, now))

	got, err := l.Get("ALT-001")
	require.NoError(t, err)
	assert.Equal(t, created, got.CreatedAt)
}

func TestRaiseDuplicateID(t *testing.T) {
	l := ledger.New()
	now := time.Now()

	require.NoError(t, l.Raise(alert("ALT-001", "S-001"), now))
	err := l.Raise(alert("ALT-001", "S-002"), now)
	require.Error(t, err)
	assert.Equal(t, derrors.CodeAlreadyExists, derrors.GetCode(err))
	assert.Equal(t, 1, l.Len())
}

func TestRaiseInvalidAlert(t *testing.T) {
	l := ledger.New()

	err := l.Raise(models.Alert{ID: "ALT-001"}, time.Now())
	require.Error(t, err)
	assert.Equal(t, derrors.CodeInvalidArgument, derrors.GetCode(err))
}

func TestLifecycleHappyPath(t *testing.T) {
	l := ledger.New()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, l.Raise(alert("ALT-001", "S-001"), now))

	acked, err := l.Acknowledge("ALT-001", "Jane Smith", now)
	require.NoError(t, err)
	assert.Equal(t, models.StateAcknowledged, acked.State)
	assert.Equal(t, "Jane Smith", acked.AcknowledgedBy)
	require.NotNil(t, acked.AcknowledgedAt)
	assert.Equal(t, now, *acked.AcknowledgedAt)

	resolved, err := l.Resolve("ALT-001", "John Doe", now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, models.StateResolved, resolved.State)
	assert.Equal(t, "John Doe", resolved.ResolvedBy)
	require.NotNil(t, resolved.ResolvedAt)
}

func TestReturnedAlertIsDetached(t *testing.T) {
	l := ledger.New()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, l.Raise(alert("ALT-001", "S-001"), now))
	acked, err := l.Acknowledge("ALT-001", "Jane Smith", now)
	require.NoError(t, err)

	// Writing through the returned timestamp pointer must not reach the
	// ledger's stored alert.
	*acked.AcknowledgedAt = now.Add(time.Hour)

	got, err := l.Get("ALT-001")
	require.NoError(t, err)
	assert.Equal(t, now, *got.AcknowledgedAt)
}

func TestResolveSkipAhead(t *testing.T) {
	l := ledger.New()
	now := time.Now()

	require.NoError(t, l.Raise(alert("ALT-001", "S-001"), now))

	resolved, err := l.Resolve("ALT-001", "Tech Team", now)
	require.NoError(t, err)
	assert.Equal(t, models.StateResolved, resolved.State)
	assert.Nil(t, resolved.AcknowledgedAt)
}

func TestInvalidTransitions(t *testing.T) {
	now := time.Now()

	t.Run("acknowledge twice fails and leaves state unchanged", func(t *testing.T) {
		l := ledger.New()
		require.NoError(t, l.Raise(alert("ALT-001", "S-001"), now))

		first, err := l.Acknowledge("ALT-001", "Jane Smith", now)
		require.NoError(t, err)

		_, err = l.Acknowledge("ALT-001", "John Doe", now.Add(time.Minute))
		require.Error(t, err)
		assert.Equal(t, derrors.CodeFailedPrecondition, derrors.GetCode(err))

		got, err := l.Get("ALT-001")
		require.NoError(t, err)
		assert.Equal(t, first, got)
	})

	t.Run("resolve twice fails", func(t *testing.T) {
		l := ledger.New()
		require.NoError(t, l.Raise(alert("ALT-001", "S-001"), now))

		_, err := l.Resolve("ALT-001", "Jane Smith", now)
		require.NoError(t, err)

		_, err = l.Resolve("ALT-001", "John Doe", now)
		assert.Equal(t, derrors.CodeFailedPrecondition, derrors.GetCode(err))
	})

	t.Run("acknowledge after resolve fails", func(t *testing.T) {
		l := ledger.New()
		require.NoError(t, l.Raise(alert("ALT-001", "S-001"), now))

		_, err := l.Resolve("ALT-001", "Jane Smith", now)
		require.NoError(t, err)

		_, err = l.Acknowledge("ALT-001", "John Doe", now)
		assert.Equal(t, derrors.CodeFailedPrecondition, derrors.GetCode(err))
	})

	t.Run("unknown alert", func(t *testing.T) {
		l := ledger.New()

		_, err := l.Acknowledge("ALT-404", "Jane Smith", now)
		assert.Equal(t, derrors.CodeNotFound, derrors.GetCode(err))
		_, err = l.Resolve("ALT-404", "Jane Smith", now)
		assert.Equal(t, derrors.CodeNotFound, derrors.GetCode(err))
	})
}

func TestListFilter(t *testing.T) {
	l := ledger.New()
	now := time.Now()

	a := alert("ALT-001", "S-001")
	b := models.Alert{
		ID: "ALT-002", SensorID: "S-002", Location: "Park Avenue Drain",
		Category: models.CategoryBattery, Severity: models.SeverityWarning,
		Priority: models.PriorityMedium, Title: "Low Battery Warning",
	}
	c := models.Alert{
		ID: "ALT-003", SensorID: "S-003", Location: "Central Plaza",
		Category: models.CategorySensorError, Severity: models.SeverityCritical,
		Priority: models.PriorityHigh, Title: "Sensor Communication Lost",
	}
	require.NoError(t, l.Raise(a, now))
	require.NoError(t, l.Raise(b, now))
	require.NoError(t, l.Raise(c, now))
	_, err := l.Acknowledge("ALT-002", "Jane Smith", now)
	require.NoError(t, err)

	testCases := []struct {
		name     string
		filter   ledger.Filter
		expected []string
	}{
		{
			name:     "empty filter returns all in raise order",
			filter:   ledger.Filter{},
			expected: []string{"ALT-001", "ALT-002", "ALT-003"},
		},
		{
			name:     "by lifecycle state",
			filter:   ledger.Filter{State: models.StateAcknowledged},
			expected: []string{"ALT-002"},
		},
		{
			name:     "by severity",
			filter:   ledger.Filter{Severity: models.SeverityCritical},
			expected: []string{"ALT-001", "ALT-003"},
		},
		{
			name:     "by priority and severity AND-combine",
			filter:   ledger.Filter{Severity: models.SeverityCritical, Priority: models.PriorityMedium},
			expected: []string{},
		},
		{
			name:     "by sensor id",
			filter:   ledger.Filter{SensorID: "S-003"},
			expected: []string{"ALT-003"},
		},
		{
			name:     "search matches title case-insensitively",
			filter:   ledger.Filter{SearchText: "battery"},
			expected: []string{"ALT-002"},
		},
		{
			name:     "search matches location",
			filter:   ledger.Filter{SearchText: "plaza"},
			expected: []string{"ALT-003"},
		},
		{
			name:     "search matches sensor id",
			filter:   ledger.Filter{SearchText: "s-001"},
			expected: []string{"ALT-001"},
		},
		{
			name:     "search AND-combines with state",
			filter:   ledger.Filter{State: models.StateActive, SearchText: "s-00"},
			expected: []string{"ALT-001", "ALT-003"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var ids []string
			for _, got := range l.List(tc.filter) {
				ids = append(ids, got.ID)
			}
			if len(tc.expected) == 0 {
				assert.Empty(t, ids)
				return
			}
			assert.Equal(t, tc.expected, ids)
		})
	}
}

func TestBulkPartialSuccess(t *testing.T) {
	l := ledger.New()
	now := time.Now()

	require.NoError(t, l.Raise(alert("ALT-001", "S-001"), now))
	require.NoError(t, l.Raise(alert("ALT-002", "S-002"), now))
	_, err := l.Resolve("ALT-002", "Jane Smith", now)
	require.NoError(t, err)

	results := l.AcknowledgeMany([]string{"ALT-001", "ALT-002", "ALT-404"}, "Tech Team", now)
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err)
	assert.Equal(t, derrors.CodeFailedPrecondition, derrors.GetCode(results[1].Err))
	assert.Equal(t, derrors.CodeNotFound, derrors.GetCode(results[2].Err))

	// The failing ids did not block the first one.
	got, err := l.Get("ALT-001")
	require.NoError(t, err)
	assert.Equal(t, models.StateAcknowledged, got.State)
}

func TestResolveMany(t *testing.T) {
	l := ledger.New()
	now := time.Now()

	require.NoError(t, l.Raise(alert("ALT-001", "S-001"), now))
	require.NoError(t, l.Raise(alert("ALT-002", "S-002"), now))

	results := l.ResolveMany([]string{"ALT-001", "ALT-002"}, "Tech Team", now)
	for _, res := range results {
		assert.NoError(t, res.Err)
	}
	assert.Len(t, l.List(ledger.Filter{State: models.StateResolved}), 2)
}
