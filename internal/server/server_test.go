package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/raysh454/phishscan/internal/app"
	"github.com/raysh454/phishscan/internal/model"
	"github.com/raysh454/phishscan/internal/server"
	"github.com/raysh454/phishscan/internal/testutil"
)

func newTestServer(t *testing.T) *server.Server {
	t.Helper()

	appCfg := app.DefaultConfig()
	appCfg.Enrichment.Enabled = false
	appCfg.Server.MaxBodyBytes = 4096

	s, err := server.NewServer(server.Config{
		ListenAddr: ":0",
		AppConfig:  appCfg,
		Logger:     &testutil.DummyLogger{},
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func doJSON(t *testing.T, s http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON response: %v (body: %s)", err, rec.Body.String())
	}
}

// ─── CORS ──────────────────────────────────────────────────────────────

func TestServer_CORS_HeaderPresent(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "GET", "/healthz", "")

	origin := rec.Header().Get("Access-Control-Allow-Origin")
	if origin != "*" {
		t.Errorf("expected CORS origin *, got %q", origin)
	}
}

func TestServer_CORS_AllowedOrigins(t *testing.T) {
	t.Parallel()
	appCfg := app.DefaultConfig()
	appCfg.Enrichment.Enabled = false
	appCfg.Server.AllowedOrigins = []string{"https://mail.example.com"}
	s, err := server.NewServer(server.Config{AppConfig: appCfg, Logger: &testutil.DummyLogger{}})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	defer s.Close()

	req := httptest.NewRequest("GET", "/healthz", nil)
	req.Header.Set("Origin", "https://mail.example.com")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://mail.example.com" {
		t.Errorf("allowed origin = %q", got)
	}

	req = httptest.NewRequest("GET", "/healthz", nil)
	req.Header.Set("Origin", "https://evil.test")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("foreign origin echoed: %q", got)
	}
}

func TestServer_OptionsPreflight(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "OPTIONS", "/scan", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 for OPTIONS, got %d", rec.Code)
	}
	if methods := rec.Header().Get("Access-Control-Allow-Methods"); methods != "POST" {
		t.Errorf("Allow-Methods = %q", methods)
	}
}

// ─── Health ────────────────────────────────────────────────────────────

func TestServer_Health(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "GET", "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body server.HealthResponse
	decodeJSON(t, rec, &body)
	if body.Status != "ok" || len(body.Evaluators) != 4 {
		t.Errorf("health = %+v", body)
	}
}

// ─── Scan ──────────────────────────────────────────────────────────────

func TestServer_Scan(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "POST", "/scan", `{"links":["http://bit.ly/test"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var res map[string]any
	decodeJSON(t, rec, &res)
	if res["score"] != float64(22) || res["verdict"] != "SAFE" {
		t.Errorf("result = %v", res)
	}
	signals, _ := res["signals"].([]any)
	if len(signals) != 1 {
		t.Fatalf("signals = %v", res["signals"])
	}
	sig := signals[0].(map[string]any)
	if sig["severity"] != "MEDIUM" {
		t.Errorf("severity serialized as %v", sig["severity"])
	}
	evidence := sig["evidence"].(map[string]any)
	if sources, _ := evidence["sources"].([]any); len(sources) != 2 {
		t.Errorf("evidence.sources = %v", evidence["sources"])
	}
}

func TestServer_Scan_EmptyObject(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "POST", "/scan", `{}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var res model.ScanResult
	decodeJSON(t, rec, &res)
	if res.Score != 0 || res.Verdict != model.VerdictSafe || res.Summary != "No suspicious indicators found." {
		t.Errorf("result = %+v", res)
	}
	if !strings.Contains(doJSON(t, s, "POST", "/scan", `{}`).Body.String(), `"signals":[]`) {
		t.Error("signals must serialize as an empty list")
	}
}

func TestServer_Scan_WrongTypesAreLenient(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "POST", "/scan", `{"links":"http://bit.ly/x","attachments":{"a":1},"subject":7}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for wrong-typed fields, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestServer_Scan_InvalidJSON(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "POST", "/scan", `{invalid}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestServer_Scan_BodyTooLarge(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	body := `{"bodyText":"` + strings.Repeat("a", 8192) + `"}`
	rec := doJSON(t, s, "POST", "/scan", body)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}

// ─── Jobs ──────────────────────────────────────────────────────────────

func TestServer_ListJobs_Empty(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "GET", "/jobs", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var jobs []map[string]any
	decodeJSON(t, rec, &jobs)
	if len(jobs) != 0 {
		t.Errorf("expected no jobs, got %d", len(jobs))
	}
}

func TestServer_GetJob_NotFound(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "GET", "/jobs/nonexistent", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestServer_CancelJob_NotFound(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "DELETE", "/jobs/nonexistent", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestServer_ScanJob_Lifecycle(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "POST", "/jobs/scan", `{"attachments":[{"filename":"invoice.pdf.exe"}]}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var job map[string]any
	decodeJSON(t, rec, &job)
	id, _ := job["id"].(string)
	if id == "" {
		t.Fatalf("job has no id: %v", job)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		rec = doJSON(t, s, "GET", "/jobs/"+id, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var got app.Job
		decodeJSON(t, rec, &got)
		if got.Status == app.JobDone {
			if got.Result == nil || got.Result.Score != 55 || got.Result.Verdict != model.VerdictSuspicious {
				t.Errorf("result = %+v", got.Result)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job never finished, last status %q", got.Status)
		}
		time.Sleep(5 * time.Millisecond)
	}

	rec = doJSON(t, s, "DELETE", "/jobs/"+id, "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("cancel of finished job: expected 204, got %d", rec.Code)
	}
}

// ─── WebSocket ─────────────────────────────────────────────────────────

func TestServer_ScanWS_StreamsEvents(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	ts := httptest.NewServer(s)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/scan"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	if err := conn.WriteJSON(map[string]any{"links": []string{"http://bit.ly/test"}}); err != nil {
		t.Fatalf("write payload: %v", err)
	}

	var job app.Job
	if err := conn.ReadJSON(&job); err != nil {
		t.Fatalf("read job: %v", err)
	}
	if job.ID == "" {
		t.Fatal("first message should be the job")
	}

	var last app.JobEvent
	for {
		var ev app.JobEvent
		if err := conn.ReadJSON(&ev); err != nil {
			break
		}
		if ev.JobID != job.ID {
			t.Errorf("event for foreign job %q", ev.JobID)
		}
		last = ev
	}
	if last.Type != app.JobEventResult || last.Result == nil || last.Result.Score != 22 {
		t.Errorf("last event = %+v", last)
	}
}

// ─── Swagger ───────────────────────────────────────────────────────────

func TestServer_SwaggerDoc(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "GET", "/swagger/doc.json", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"/scan"`) {
		t.Error("swagger doc does not describe /scan")
	}
}
