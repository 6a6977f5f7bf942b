package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/gray-logic-energy/internal/audit"
	"github.com/nerrad567/gray-logic-energy/internal/device"
	"github.com/nerrad567/gray-logic-energy/internal/energy"
	"github.com/nerrad567/gray-logic-energy/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-energy/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-energy/internal/infrastructure/logging"
	_ "github.com/nerrad567/gray-logic-energy/migrations"
)

// testEnv bundles a server with the stores behind it.
type testEnv struct {
	srv      *Server
	router   http.Handler
	devices  *device.SQLiteRepository
	plans    *energy.SQLitePlanRepository
	audit    *audit.SQLiteRepository
	alerts   []string
	alertErr error
}

// newTestEnv creates a Server backed by a migrated in-memory database.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("database.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	env := &testEnv{
		devices: device.NewSQLiteRepository(db.DB),
		plans:   energy.NewSQLitePlanRepository(db.DB),
		audit:   audit.NewSQLiteRepository(db.DB),
	}
	if _, err := env.plans.EnsurePlan(ctx, 3); err != nil {
		t.Fatalf("EnsurePlan: %v", err)
	}

	notifier := energy.NotifierFunc(func(_ context.Context, msg string) error {
		env.alerts = append(env.alerts, msg)
		return env.alertErr
	})

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host:     "127.0.0.1",
			Timeouts: config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5},
		},
		Logger:   testLogger(),
		Registry: device.NewRegistry(env.devices),
		Monitor:  energy.NewMonitor(env.devices, env.plans, notifier),
		Audit:    env.audit,
		Checks:   map[string]HealthChecker{"database": db},
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	env.srv = srv
	env.router = srv.Handler()
	return env
}

func testLogger() *logging.Logger {
	return logging.NewWithWriter(config.LoggingConfig{Level: "error", Format: "text"}, "test", io.Discard)
}

func (e *testEnv) addDevice(t *testing.T, name string, watts float64, on bool) int64 {
	t.Helper()
	d := &device.Device{Name: name, PowerWatts: watts, IsOn: on}
	if err := e.devices.Create(context.Background(), d); err != nil {
		t.Fatalf("Create(%s): %v", name, err)
	}
	return d.ID
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshal %q: %v", w.Body.String(), err)
	}
}

type failingCheck struct{}

func (failingCheck) HealthCheck(context.Context) error { return errors.New("broker unreachable") }

// ─── Construction ──────────────────────────────────────────────────

func TestNew_RequiredDeps(t *testing.T) {
	registry := device.NewRegistry(device.NewMemoryRepository())
	monitor := energy.NewMonitor(device.NewMemoryRepository(), energy.NewMemoryPlanRepository(1), energy.NotifierFunc(
		func(context.Context, string) error { return nil }))

	tests := []struct {
		name string
		deps Deps
	}{
		{"missing logger", Deps{Registry: registry, Monitor: monitor}},
		{"missing registry", Deps{Logger: testLogger(), Monitor: monitor}},
		{"missing monitor", Deps{Logger: testLogger(), Registry: registry}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.deps); err == nil {
				t.Error("New() error = nil, want error")
			}
		})
	}
}

// ─── Health & Middleware ───────────────────────────────────────────

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var resp struct {
		Status     string            `json:"status"`
		Version    string            `json:"version"`
		Components map[string]string `json:"components"`
	}
	decode(t, w, &resp)
	if resp.Status != "ok" || resp.Version != "test" {
		t.Errorf("health = %+v, want ok/test", resp)
	}
	if resp.Components["database"] != "ok" {
		t.Errorf("components[database] = %q, want ok", resp.Components["database"])
	}
}

func TestHealth_DegradedComponent(t *testing.T) {
	env := newTestEnv(t)
	env.srv.checks["mqtt"] = failingCheck{}

	w := env.do(t, http.MethodGet, "/api/v1/health", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("health status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}

	var resp struct {
		Status     string            `json:"status"`
		Components map[string]string `json:"components"`
	}
	decode(t, w, &resp)
	if resp.Status != "degraded" {
		t.Errorf("status = %q, want degraded", resp.Status)
	}
	if resp.Components["mqtt"] != "broker unreachable" {
		t.Errorf("components[mqtt] = %q", resp.Components["mqtt"])
	}
}

func TestRequestID(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/health", "")
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want client-123", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/energy/plan/limit", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("ACAO = %q, want http://localhost:3000", got)
	}
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	env := newTestEnv(t)
	env.srv.cfg.CORS.AllowedOrigins = []string{"http://panel.local"}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("ACAO = %q, want empty", got)
	}
}

func TestRecovery(t *testing.T) {
	env := newTestEnv(t)
	h := env.srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestNotFound(t *testing.T) {
	env := newTestEnv(t)
	if w := env.do(t, http.MethodGet, "/api/v1/nonexistent", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── Devices ───────────────────────────────────────────────────────

func TestListDevices(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/devices", "")
	var empty struct {
		Devices []device.Device `json:"devices"`
		Count   int             `json:"count"`
	}
	decode(t, w, &empty)
	if empty.Devices == nil || empty.Count != 0 {
		t.Errorf("empty list = %+v, want [] and 0", empty)
	}

	env.addDevice(t, "Heater", 1000, true)
	env.addDevice(t, "Fridge", 150, false)

	w = env.do(t, http.MethodGet, "/api/v1/devices", "")
	var resp struct {
		Devices []device.Device `json:"devices"`
		Count   int             `json:"count"`
	}
	decode(t, w, &resp)
	if resp.Count != 2 || resp.Devices[0].Name != "Heater" || resp.Devices[1].Name != "Fridge" {
		t.Errorf("list = %+v, want Heater then Fridge", resp)
	}
}

func TestListActiveDevices(t *testing.T) {
	env := newTestEnv(t)
	env.addDevice(t, "Heater", 1000, true)
	env.addDevice(t, "Fridge", 150, false)
	env.addDevice(t, "Oven", 2000, true)

	w := env.do(t, http.MethodGet, "/api/v1/devices/active", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Devices []device.Device `json:"devices"`
		Count   int             `json:"count"`
	}
	decode(t, w, &resp)
	if resp.Count != 2 || resp.Devices[0].Name != "Heater" || resp.Devices[1].Name != "Oven" {
		t.Errorf("active = %+v, want Heater then Oven", resp)
	}
}

func TestGetDevice(t *testing.T) {
	env := newTestEnv(t)
	id := env.addDevice(t, "Heater", 1000, true)

	w := env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/devices/%d", id), "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got device.Device
	decode(t, w, &got)
	if got.ID != id || got.Name != "Heater" || !got.IsOn || got.PowerWatts != 1000 {
		t.Errorf("device = %+v", got)
	}
}

func TestGetDevice_Errors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		path string
		want int
	}{
		{"/api/v1/devices/99", http.StatusNotFound},
		{"/api/v1/devices/abc", http.StatusBadRequest},
		{"/api/v1/devices/0", http.StatusBadRequest},
		{"/api/v1/devices/-4", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if w := env.do(t, http.MethodGet, tt.path, ""); w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestSetDeviceState(t *testing.T) {
	env := newTestEnv(t)
	id := env.addDevice(t, "Heater", 1000, false)
	path := fmt.Sprintf("/api/v1/devices/%d/state", id)

	w := env.do(t, http.MethodPut, path, `{"on": true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		ID   int64 `json:"id"`
		IsOn bool  `json:"is_on"`
	}
	decode(t, w, &resp)
	if resp.ID != id || !resp.IsOn {
		t.Errorf("response = %+v, want id %d on", resp, id)
	}

	stored, err := env.devices.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !stored.IsOn || stored.PowerWatts != 1000 || stored.Name != "Heater" {
		t.Errorf("stored = %+v, want only IsOn changed", stored)
	}

	page, err := env.audit.List(context.Background(), audit.Filter{Action: audit.ActionToggle})
	if err != nil {
		t.Fatalf("audit List: %v", err)
	}
	if page.Total != 1 {
		t.Fatalf("audit total = %d, want 1", page.Total)
	}
	entry := page.Entries[0]
	if entry.EntityType != audit.EntityDevice || entry.EntityID != fmt.Sprint(id) || entry.Details["on"] != true {
		t.Errorf("audit entry = %+v", entry)
	}
	if entry.Details["request_id"] == nil {
		t.Error("audit entry missing request_id")
	}
}

func TestSetDeviceState_Errors(t *testing.T) {
	env := newTestEnv(t)
	id := env.addDevice(t, "Heater", 1000, false)

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"unknown device", "/api/v1/devices/99/state", `{"on": true}`, http.StatusNotFound},
		{"invalid JSON", fmt.Sprintf("/api/v1/devices/%d/state", id), `{on`, http.StatusBadRequest},
		{"missing field", fmt.Sprintf("/api/v1/devices/%d/state", id), `{}`, http.StatusBadRequest},
		{"bad id", "/api/v1/devices/x/state", `{"on": true}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPut, tt.path, tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			var apiErr Error
			decode(t, w, &apiErr)
			if apiErr.Status != tt.want || apiErr.Message == "" {
				t.Errorf("error body = %+v", apiErr)
			}
		})
	}

	page, err := env.audit.List(context.Background(), audit.Filter{})
	if err != nil {
		t.Fatalf("audit List: %v", err)
	}
	if page.Total != 0 {
		t.Errorf("audit total = %d, want 0 after failed requests", page.Total)
	}
}

// ─── Energy ────────────────────────────────────────────────────────

func TestGetUsage(t *testing.T) {
	env := newTestEnv(t)
	env.addDevice(t, "Heater", 1000, true)
	env.addDevice(t, "Kettle", 1500, true)
	env.addDevice(t, "Oven", 2000, false)

	w := env.do(t, http.MethodGet, "/api/v1/energy/usage", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp usageResponse
	decode(t, w, &resp)
	if resp.UsageKWh != 2.5 || resp.Formatted != "2,5" || resp.ActiveDevices != 2 {
		t.Errorf("usage = %+v, want 2.5 / 2,5 / 2", resp)
	}
}

func TestCheckOverload(t *testing.T) {
	env := newTestEnv(t)
	env.addDevice(t, "Heater", 1000, true)
	env.addDevice(t, "Kettle", 1500, true)
	env.addDevice(t, "Oven", 2000, true)

	w := env.do(t, http.MethodPost, "/api/v1/energy/check", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var reading energy.Reading
	decode(t, w, &reading)
	if !reading.Overloaded || reading.UsageKWh != 4.5 || reading.DailyLimitKWh != 3 {
		t.Errorf("reading = %+v", reading)
	}
	if len(env.alerts) != 1 || env.alerts[0] != "Overload detected: 4,5 kWh used!" {
		t.Errorf("alerts = %q", env.alerts)
	}
}

func TestCheckOverload_UnderLimit(t *testing.T) {
	env := newTestEnv(t)
	env.addDevice(t, "Heater", 1000, true)

	w := env.do(t, http.MethodPost, "/api/v1/energy/check", "")
	var reading energy.Reading
	decode(t, w, &reading)
	if w.Code != http.StatusOK || reading.Overloaded {
		t.Errorf("status %d reading %+v, want 200 and not overloaded", w.Code, reading)
	}
	if len(env.alerts) != 0 {
		t.Errorf("alerts = %q, want none", env.alerts)
	}
}

func TestCheckOverload_AlertFailure(t *testing.T) {
	env := newTestEnv(t)
	env.alertErr = errors.New("webhook down")
	env.addDevice(t, "Oven", 4000, true)

	w := env.do(t, http.MethodPost, "/api/v1/energy/check", "")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	var resp checkResponse
	decode(t, w, &resp)
	if !resp.Overloaded || !strings.Contains(resp.AlertError, "webhook down") {
		t.Errorf("response = %+v", resp)
	}
}

func TestPlanEndpoints(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/energy/plan", "")
	var plan energy.Plan
	decode(t, w, &plan)
	if w.Code != http.StatusOK || plan.DailyLimitKWh != 3 {
		t.Fatalf("GET plan = %d %+v", w.Code, plan)
	}

	w = env.do(t, http.MethodPut, "/api/v1/energy/plan/limit", `{"daily_limit_kwh": -2.5}`)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT limit status = %d, body %s", w.Code, w.Body.String())
	}
	decode(t, w, &plan)
	if plan.DailyLimitKWh != -2.5 {
		t.Errorf("limit = %v, want -2.5 stored as given", plan.DailyLimitKWh)
	}

	stored, err := env.plans.GetCurrentPlan(context.Background())
	if err != nil {
		t.Fatalf("GetCurrentPlan: %v", err)
	}
	if stored.DailyLimitKWh != -2.5 {
		t.Errorf("stored limit = %v, want -2.5", stored.DailyLimitKWh)
	}

	w = env.do(t, http.MethodGet, "/api/v1/audit?action=limit_update", "")
	var page audit.Page
	decode(t, w, &page)
	if page.Total != 1 || page.Entries[0].EntityType != audit.EntityPlan {
		t.Errorf("audit page = %+v", page)
	}
}

func TestUpdateLimit_BadRequest(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []string{`{`, `{}`, `{"daily_limit_kwh": "ten"}`} {
		if w := env.do(t, http.MethodPut, "/api/v1/energy/plan/limit", body); w.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, w.Code)
		}
	}
}

// ─── Audit ─────────────────────────────────────────────────────────

func TestListAuditLogs_BadQuery(t *testing.T) {
	env := newTestEnv(t)

	for _, q := range []string{"limit=x", "offset=-1", "offset=y"} {
		if w := env.do(t, http.MethodGet, "/api/v1/audit?"+q, ""); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, w.Code)
		}
	}
}

func TestListAuditLogs_NotConfigured(t *testing.T) {
	env := newTestEnv(t)
	env.srv.auditRepo = nil

	if w := env.do(t, http.MethodGet, "/api/v1/audit", ""); w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

// ─── Metrics ───────────────────────────────────────────────────────

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	if w := env.do(t, http.MethodGet, "/metrics", ""); w.Code != http.StatusNotFound {
		t.Errorf("/metrics without gatherer = %d, want 404", w.Code)
	}

	collector := energy.NewMetricsCollector()
	if err := collector.Observe(context.Background(), energy.Reading{
		UsageKWh: 4.5, DailyLimitKWh: 3, ActiveDevices: 3, Overloaded: true, CheckedAt: time.Now(),
	}); err != nil {
		t.Fatalf("Observe: %v", err)
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collector)
	env.srv.gatherer = reg
	env.router = env.srv.Handler()

	w := env.do(t, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("graylogic_energy_usage_kwh 4.5")) {
		t.Errorf("/metrics body missing usage gauge:\n%s", w.Body.String())
	}
}

// ─── Lifecycle ─────────────────────────────────────────────────────

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestServer_StartAndClose(t *testing.T) {
	env := newTestEnv(t)
	id := env.addDevice(t, "Heater", 1000, false)
	env.srv.cfg.Port = freePort(t)

	if err := env.srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Start = nil, want error")
	}

	if err := env.srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := env.srv.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() after Start = %v", err)
	}

	base := fmt.Sprintf("http://127.0.0.1:%d", env.srv.cfg.Port)
	var resp *http.Response
	var err error
	for i := 0; i < 50; i++ {
		resp, err = http.Get(base + "/api/v1/health")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	resp.Body.Close()

	req, _ := http.NewRequest(http.MethodPut, fmt.Sprintf("%s/api/v1/devices/%d/state", base, id), strings.NewReader(`{"on":true}`))
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("toggle request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("toggle status = %d", resp.StatusCode)
	}

	if err := env.srv.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}

	// Close flushes the queued audit entry.
	page, err := env.audit.List(context.Background(), audit.Filter{})
	if err != nil {
		t.Fatalf("audit List: %v", err)
	}
	if page.Total != 1 {
		t.Errorf("audit total after Close = %d, want 1", page.Total)
	}

	if _, err := http.Get(base + "/api/v1/health"); err == nil {
		t.Error("server still responding after Close()")
	}
}
