package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func serve(e *echo.Echo, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, vals := range header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func lastLogEvent(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var evt map[string]interface{}
	if err := json.Unmarshal(lines[len(lines)-1], &evt); err != nil {
		t.Fatalf("decode log event: %v", err)
	}
	return evt
}

func TestRequestIDGeneratesAndEchoes(t *testing.T) {
	e := echo.New()
	e.Use(RequestID())
	e.GET("/pagos", func(c echo.Context) error {
		if rid, _ := c.Get("request_id").(string); rid == "" {
			t.Error("request_id missing from context")
		}
		return c.NoContent(http.StatusOK)
	})

	rec := serve(e, http.MethodGet, "/pagos", nil)
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("response must carry X-Request-ID")
	}
}

func TestRequestIDKeepsCallerValue(t *testing.T) {
	e := echo.New()
	e.Use(RequestID())
	e.GET("/pagos", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	rec := serve(e, http.MethodGet, "/pagos", http.Header{RequestIDHeader: {"caller-rid-7"}})
	if got := rec.Header().Get(RequestIDHeader); got != "caller-rid-7" {
		t.Errorf("X-Request-ID = %q, want the caller's value", got)
	}
}

func TestLoggerRecordsRequestFields(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.Use(RequestID())
	e.Use(Logger(zerolog.New(&buf)))
	e.GET("/usuarios/:id/consultaF", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]bool{"success": true})
	})

	rec := serve(e, http.MethodGet, "/usuarios/3/consultaF?detalle=1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	evt := lastLogEvent(t, &buf)
	if evt["level"] != "info" {
		t.Errorf("level = %v, want info for a 200", evt["level"])
	}
	if evt["path"] != "/usuarios/3/consultaF" {
		t.Errorf("path = %v", evt["path"])
	}
	if evt["query"] != "detalle=1" {
		t.Errorf("query = %v", evt["query"])
	}
	if evt["status"] != 200.0 {
		t.Errorf("status field = %v, want 200", evt["status"])
	}
	if evt["request_id"] == "" || evt["request_id"] == nil {
		t.Error("log event must carry the request id")
	}
}

func TestLoggerSeverityTracksStatus(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.Use(Logger(zerolog.New(&buf)))
	e.GET("/boom", func(c echo.Context) error {
		return errors.New("pool exhausted")
	})
	e.GET("/missing", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "no such payment")
	})

	rec := serve(e, http.MethodGet, "/boom", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if evt := lastLogEvent(t, &buf); evt["level"] != "error" {
		t.Errorf("level = %v, want error for a 500", evt["level"])
	}

	buf.Reset()
	rec = serve(e, http.MethodGet, "/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if evt := lastLogEvent(t, &buf); evt["level"] != "warn" {
		t.Errorf("level = %v, want warn for a 404", evt["level"])
	}
}

func TestRecoveryTurnsPanicInto500(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.Use(Recovery(zerolog.New(&buf)))
	e.PUT("/pago/1/cambioEP", func(c echo.Context) error {
		panic("nil invoice row")
	})

	rec := serve(e, http.MethodPut, "/pago/1/cambioEP", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	evt := lastLogEvent(t, &buf)
	if evt["panic"] != "nil invoice row" {
		t.Errorf("panic field = %v", evt["panic"])
	}
	if evt["path"] != "/pago/1/cambioEP" {
		t.Errorf("path field = %v", evt["path"])
	}
	if evt["stack"] == nil {
		t.Error("log event must carry the stack")
	}
}

func TestRecoveryLeavesHealthyRequestsAlone(t *testing.T) {
	e := echo.New()
	e.Use(Recovery(zerolog.Nop()))
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})

	rec := serve(e, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRateLimitOnAPIGroup(t *testing.T) {
	e := echo.New()
	api := e.Group("/api/v1")
	api.Use(RateLimit(RateLimitConfig{RequestsPerSecond: 0.01, BurstSize: 3}))
	api.GET("/facturas", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/usuarios/1/consultaF", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	for i := 0; i < 3; i++ {
		if rec := serve(e, http.MethodGet, "/api/v1/facturas", nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200 within burst", i, rec.Code)
		}
	}

	rec := serve(e, http.MethodGet, "/api/v1/facturas", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429 beyond burst", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("rejection must set Retry-After")
	}

	// the workflow endpoints outside the group stay unthrottled
	if rec := serve(e, http.MethodGet, "/usuarios/1/consultaF", nil); rec.Code != http.StatusOK {
		t.Errorf("workflow endpoint status = %d, want 200", rec.Code)
	}
}

func TestRateLimitTracksClientsSeparately(t *testing.T) {
	table := newVisitorTable(RateLimitConfig{RequestsPerSecond: 0.01, BurstSize: 1})
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	if ok, _ := table.take("10.0.0.1", now); !ok {
		t.Fatal("first client's first request must pass")
	}
	if ok, _ := table.take("10.0.0.1", now); ok {
		t.Fatal("first client's second request must be rejected")
	}
	if ok, _ := table.take("10.0.0.2", now); !ok {
		t.Fatal("a different client must have its own bucket")
	}
}

func TestRateLimitRefillsOverTime(t *testing.T) {
	table := newVisitorTable(RateLimitConfig{RequestsPerSecond: 2, BurstSize: 1})
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	if ok, _ := table.take("10.0.0.1", now); !ok {
		t.Fatal("first request must pass")
	}
	ok, wait := table.take("10.0.0.1", now)
	if ok {
		t.Fatal("bucket must be empty immediately after")
	}
	if wait < 1 {
		t.Errorf("wait = %d, want at least one second", wait)
	}
	if ok, _ := table.take("10.0.0.1", now.Add(time.Second)); !ok {
		t.Error("bucket must refill after the elapsed interval")
	}
}
