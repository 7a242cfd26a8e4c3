package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drainwatch.sh/internal/models"
	"drainwatch.sh/internal/server"
	"drainwatch.sh/viewmodel"
)

func newTestServer(t *testing.T) (*httptest.Server, *viewmodel.ViewModel) {
	t.Helper()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	vm := viewmodel.New(viewmodel.Options{
		Clock: func() time.Time { return now },
	})
	vm.Ingest([]models.SensorReading{
		{SensorID: "S-001", ZoneID: "zone-a", Location: "Main Street Junction", WaterLevelPct: models.Float(85), ObservedAt: now},
		{SensorID: "S-002", ZoneID: "zone-b", Location: "Central Plaza", WaterLevelPct: models.Float(32), ObservedAt: now},
	}, []models.Alert{
		{ID: "ALT-001", SensorID: "S-001", Title: "Critical Water Level Exceeded",
			Category: models.CategoryWaterLevel, Severity: models.SeverityCritical, Priority: models.PriorityHigh},
	})

	srv := server.New(server.Config{ListenAddr: ":0"}, vm)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, vm
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, body any, out any) int {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestSnapshotEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	var snap viewmodel.Snapshot
	status := getJSON(t, ts.URL+"/api/v1/snapshot", &snap)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, uint64(1), snap.Version)
	assert.Len(t, snap.Sensors, 2)
	assert.Len(t, snap.Alerts, 1)
	assert.Equal(t, 1, snap.Aggregates.System.Sensors.Critical)
}

func TestSensorsEndpointFilters(t *testing.T) {
	ts, _ := newTestServer(t)

	var body struct {
		Sensors []models.SensorReading `json:"sensors"`
		Total   int                    `json:"total"`
	}
	status := getJSON(t, ts.URL+"/api/v1/sensors?status=critical&zone=zone-a&search=main", &body)

	assert.Equal(t, http.StatusOK, status)
	require.Equal(t, 1, body.Total)
	assert.Equal(t, "S-001", body.Sensors[0].SensorID)
}

func TestSensorDetailEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	var body struct {
		Sensor  models.SensorReading   `json:"sensor"`
		History []models.SensorReading `json:"history"`
	}
	status := getJSON(t, ts.URL+"/api/v1/sensors/S-001", &body)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "S-001", body.Sensor.SensorID)
	assert.Len(t, body.History, 1)
}

func TestUnknownSensorIs404(t *testing.T) {
	ts, _ := newTestServer(t)

	var body map[string]any
	status := getJSON(t, ts.URL+"/api/v1/sensors/S-404", &body)

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestAcknowledgeFlow(t *testing.T) {
	ts, _ := newTestServer(t)

	var acked models.Alert
	status := postJSON(t, ts.URL+"/api/v1/alerts/ALT-001/acknowledge",
		map[string]string{"actor": "Jane Smith"}, &acked)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, models.StateAcknowledged, acked.State)

	// Second acknowledge conflicts.
	var errBody map[string]any
	status = postJSON(t, ts.URL+"/api/v1/alerts/ALT-001/acknowledge",
		map[string]string{"actor": "John Doe"}, &errBody)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "FAILED_PRECONDITION", errBody["code"])
}

func TestAcknowledgeRequiresActor(t *testing.T) {
	ts, _ := newTestServer(t)

	status := postJSON(t, ts.URL+"/api/v1/alerts/ALT-001/acknowledge",
		map[string]string{}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestBulkResolvePartialSuccess(t *testing.T) {
	ts, _ := newTestServer(t)

	var body struct {
		Results []struct {
			AlertID string `json:"alert_id"`
			OK      bool   `json:"ok"`
			Code    string `json:"code"`
		} `json:"results"`
	}
	status := postJSON(t, ts.URL+"/api/v1/alerts/resolve",
		map[string]any{"ids": []string{"ALT-001", "ALT-404"}, "actor": "Tech Team"}, &body)

	assert.Equal(t, http.StatusOK, status)
	require.Len(t, body.Results, 2)
	assert.True(t, body.Results[0].OK)
	assert.False(t, body.Results[1].OK)
	assert.Equal(t, "NOT_FOUND", body.Results[1].Code)
}

func TestIngestEndpoint(t *testing.T) {
	ts, vm := newTestServer(t)
	before := vm.Version()

	var body struct {
		Version  uint64 `json:"version"`
		Accepted int    `json:"accepted"`
		Errors   []struct {
			Kind    string `json:"kind"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	status := postJSON(t, ts.URL+"/api/v1/ingest", map[string]any{
		"readings": []map[string]any{
			{"sensor_id": "S-003", "zone_id": "zone-a", "water_level_pct": 50, "observed_at": time.Now().Format(time.RFC3339)},
			{"zone_id": "zone-a"}, // missing sensor_id
		},
	}, &body)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, body.Accepted)
	assert.Equal(t, before+1, body.Version)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "reading", body.Errors[0].Kind)
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	var body map[string]any
	status := getJSON(t, ts.URL+"/health", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
}
