package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"capsule-service/src/capsule"
	"capsule-service/src/models"
	"capsule-service/src/schemas"
	"capsule-service/src/service"

	"github.com/gin-gonic/gin"
)

type staticConfigs struct{ err error }

func (s *staticConfigs) ActiveConfig(context.Context) (models.ChallengeConfig, error) {
	if s.err != nil {
		return models.ChallengeConfig{}, s.err
	}
	return models.ChallengeConfig{
		RequiredDurationMs:    2000,
		BetaThresholdDeg:      150,
		GammaStabilityDeg:     15,
		StabilityThresholdDeg: 45,
	}, nil
}

type nullSink struct{}

func (nullSink) RecordAttempt(context.Context, *models.AttemptRecord) error { return nil }
func (nullSink) RecordUnlock(context.Context, *models.UnlockRecord, map[string]any) error {
	return nil
}
func (nullSink) NotifyUnlocked(context.Context, *models.UnlockRecord) error { return nil }
func (nullSink) NotifyAttempt(context.Context, *models.AttemptRecord) error { return nil }

// newTestRouter wires a gin engine over a real coordinator with no-op
// collaborators.
func newTestRouter(t *testing.T, configs capsule.ConfigProvider) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	coordinator := capsule.NewCoordinator(capsule.NewRegistry(), configs, nullSink{}, nullSink{}, nullSink{})
	sc := NewSessionController(service.NewChallengeService(coordinator))

	r := gin.New()
	r.POST("/flip/sessions", sc.StartSession)
	r.POST("/flip/sessions/:id/samples", sc.IngestSample)
	r.GET("/flip/sessions/:id", sc.GetStatus)
	r.DELETE("/flip/sessions/:id", sc.EndSession)
	r.POST("/flip/capabilities", sc.CheckCapabilities)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeStatus(t *testing.T, w *httptest.ResponseRecorder) schemas.SessionStatusResponse {
	t.Helper()
	var status schemas.SessionStatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	return status
}

func TestSessionFlowOverHTTP(t *testing.T) {
	r := newTestRouter(t, &staticConfigs{})

	w := doJSON(t, r, http.MethodPost, "/flip/sessions", schemas.StartSessionRequest{
		UserID:     "user-1",
		DeviceInfo: map[string]any{"model": "pixel-9"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("start status = %d, body %s", w.Code, w.Body.String())
	}
	var started schemas.StartSessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &started); err != nil {
		t.Fatalf("decode start response: %v", err)
	}
	if started.SessionID == "" || started.RequiredDurationMs != 2000 {
		t.Fatalf("start response = %+v", started)
	}

	beta, gamma := 165.0, 4.0
	sample := models.OrientationSample{Beta: &beta, Gamma: &gamma, TimestampMs: 1}

	w = doJSON(t, r, http.MethodPost, "/flip/sessions/"+started.SessionID+"/samples",
		schemas.IngestSampleRequest{Sample: sample})
	if w.Code != http.StatusOK {
		t.Fatalf("ingest status = %d, body %s", w.Code, w.Body.String())
	}
	if status := decodeStatus(t, w); !status.IsFlipped || status.IsComplete {
		t.Fatalf("after first sample: %+v", status)
	}

	sample.TimestampMs = 2500
	w = doJSON(t, r, http.MethodPost, "/flip/sessions/"+started.SessionID+"/samples",
		schemas.IngestSampleRequest{Sample: sample})
	if status := decodeStatus(t, w); !status.IsComplete {
		t.Fatalf("after threshold crossing: %+v", status)
	}

	w = doJSON(t, r, http.MethodGet, "/flip/sessions/"+started.SessionID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	if status := decodeStatus(t, w); !status.IsComplete {
		t.Fatalf("status query: %+v", status)
	}

	w = doJSON(t, r, http.MethodDelete, "/flip/sessions/"+started.SessionID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("end status = %d", w.Code)
	}
}

func TestUnknownSessionReturns404(t *testing.T) {
	r := newTestRouter(t, &staticConfigs{})

	beta, gamma := 165.0, 4.0
	w := doJSON(t, r, http.MethodPost, "/flip/sessions/nope/samples",
		schemas.IngestSampleRequest{Sample: models.OrientationSample{Beta: &beta, Gamma: &gamma}})
	if w.Code != http.StatusNotFound {
		t.Fatalf("ingest on unknown session = %d, want 404", w.Code)
	}

	var apiErr schemas.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &apiErr); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.Title != "Not Found" {
		t.Errorf("error body = %+v", apiErr)
	}
}

func TestStartWithoutActiveConfigReturns503(t *testing.T) {
	r := newTestRouter(t, &staticConfigs{err: models.ErrNoActiveConfig})

	w := doJSON(t, r, http.MethodPost, "/flip/sessions", schemas.StartSessionRequest{UserID: "user-1"})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("start without config = %d, want 503", w.Code)
	}
}

func TestStartRejectsMalformedBody(t *testing.T) {
	r := newTestRouter(t, &staticConfigs{})

	req := httptest.NewRequest(http.MethodPost, "/flip/sessions", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("malformed body = %d, want 400", w.Code)
	}
}

func TestCapabilitiesEndpoint(t *testing.T) {
	r := newTestRouter(t, &staticConfigs{})

	beta := 10.0
	w := doJSON(t, r, http.MethodPost, "/flip/capabilities",
		schemas.CapabilitiesRequest{Sample: models.OrientationSample{Beta: &beta}})
	if w.Code != http.StatusOK {
		t.Fatalf("capabilities status = %d", w.Code)
	}

	var report schemas.CapabilitiesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.HasRequiredSensors {
		t.Error("beta-only sample reported as fully capable")
	}
	if len(report.MissingFeatures) == 0 {
		t.Error("no missing features reported")
	}
}
