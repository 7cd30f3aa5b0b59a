package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/dmrb/internal/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// echoRequestID responds with the request id seen by the handler.
func echoRequestID(c *gin.Context) {
	c.String(http.StatusOK, GetRequestID(c))
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		wantEcho bool
	}{
		{name: "no header generates uuid"},
		{name: "upstream id is kept", header: "lb-7f3a9c01", wantEcho: true},
		{name: "oversized id is replaced", header: strings.Repeat("x", maxRequestIDLength+1)},
		{name: "id with spaces is replaced", header: "two words"},
		{name: "id with control characters is replaced", header: "abc\x01def"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(RequestID())
			router.GET("/api/v1/kpis", echoRequestID)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/kpis", nil)
			if tt.header != "" {
				req.Header.Set(RequestIDHeader, tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			got := w.Body.String()
			if got != w.Header().Get(RequestIDHeader) {
				t.Errorf("Expected header and context ids to match, got %q and %q", w.Header().Get(RequestIDHeader), got)
			}
			if tt.wantEcho {
				if got != tt.header {
					t.Errorf("Expected upstream id %q, got %q", tt.header, got)
				}
				return
			}
			if len(got) != 36 {
				t.Errorf("Expected a generated UUID, got %q", got)
			}
		})
	}

	t.Run("GetRequestID returns empty string if not set", func(t *testing.T) {
		if id := GetRequestID(&gin.Context{}); id != "" {
			t.Errorf("Expected empty string, got %s", id)
		}
	})
}

func TestCORS(t *testing.T) {
	dashboardOrigins := []string{"http://localhost:5173", "https://board.example.com"}

	tests := []struct {
		name            string
		origins         []string
		method          string
		origin          string
		wantStatus      int
		wantAllowOrigin string
		wantCredentials string
	}{
		{
			name:            "allowed origin",
			origins:         dashboardOrigins,
			method:          http.MethodGet,
			origin:          "https://board.example.com",
			wantStatus:      http.StatusOK,
			wantAllowOrigin: "https://board.example.com",
			wantCredentials: "true",
		},
		{
			name:       "disallowed origin gets no headers",
			origins:    dashboardOrigins,
			method:     http.MethodGet,
			origin:     "http://evil.com",
			wantStatus: http.StatusForbidden,
		},
		{
			name:            "wildcard allows any origin without credentials",
			origins:         []string{"*"},
			method:          http.MethodGet,
			origin:          "http://leasing-office.example",
			wantStatus:      http.StatusOK,
			wantAllowOrigin: "*",
		},
		{
			name:            "preflight for allowed origin",
			origins:         dashboardOrigins,
			method:          http.MethodOptions,
			origin:          "http://localhost:5173",
			wantStatus:      http.StatusNoContent,
			wantAllowOrigin: "http://localhost:5173",
			wantCredentials: "true",
		},
		{
			name:       "preflight for disallowed origin",
			origins:    dashboardOrigins,
			method:     http.MethodOptions,
			origin:     "http://evil.com",
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(CORS(tt.origins))
			router.GET("/api/v1/units", func(c *gin.Context) { c.String(http.StatusOK, "OK") })
			router.POST("/api/v1/refresh", func(c *gin.Context) { c.String(http.StatusOK, "OK") })

			target := "/api/v1/units"
			req := httptest.NewRequest(tt.method, target, nil)
			req.Header.Set("Origin", tt.origin)
			if tt.method == http.MethodOptions {
				req = httptest.NewRequest(tt.method, "/api/v1/refresh", nil)
				req.Header.Set("Origin", tt.origin)
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllowOrigin {
				t.Errorf("Expected Access-Control-Allow-Origin %q, got %q", tt.wantAllowOrigin, got)
			}
			if got := w.Header().Get("Access-Control-Allow-Credentials"); got != tt.wantCredentials {
				t.Errorf("Expected Access-Control-Allow-Credentials %q, got %q", tt.wantCredentials, got)
			}
			if tt.method == http.MethodOptions && tt.wantStatus == http.StatusNoContent {
				if methods := w.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(methods, http.MethodPost) {
					t.Errorf("Expected POST in allowed methods, got %q", methods)
				}
			}
		})
	}
}

func TestLogger(t *testing.T) {
	newRouter := func(buf *bytes.Buffer) *gin.Engine {
		log := logger.NewWithOptions(logger.Options{Env: "test", Level: "info", Output: buf})
		router := gin.New()
		router.Use(RequestID())
		router.Use(Logger(log, "/health"))
		router.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "OK") })
		router.GET("/api/v1/units/:id", func(c *gin.Context) {
			if GetLogger(c) == nil {
				t.Error("Expected logger to be in context")
			}
			if c.Param("id") == "missing" {
				c.String(http.StatusNotFound, "nope")
				return
			}
			c.String(http.StatusOK, "OK")
		})
		return router
	}

	t.Run("logs completed request with fields", func(t *testing.T) {
		var buf bytes.Buffer
		router := newRouter(&buf)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/units/101?today=2025-01-10", nil)
		req.Header.Set(RequestIDHeader, "req-101")
		router.ServeHTTP(httptest.NewRecorder(), req)

		out := buf.String()
		for _, want := range []string{"Request completed", `"request_id":"req-101"`, `"status":200`, `"query":"today=2025-01-10"`} {
			if !strings.Contains(out, want) {
				t.Errorf("Expected log to contain %s, got %s", want, out)
			}
		}
	})

	t.Run("client errors log at warn", func(t *testing.T) {
		var buf bytes.Buffer
		router := newRouter(&buf)

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/units/missing", nil))

		if !strings.Contains(buf.String(), `"level":"warn"`) {
			t.Errorf("Expected warn entry, got %s", buf.String())
		}
	})

	t.Run("quiet paths log at debug level", func(t *testing.T) {
		var buf bytes.Buffer
		router := newRouter(&buf)

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
		if buf.Len() != 0 {
			t.Errorf("Expected health probe to be filtered at info level, got %s", buf.String())
		}
	})

	t.Run("GetLogger returns nil if not set", func(t *testing.T) {
		if GetLogger(&gin.Context{}) != nil {
			t.Error("Expected nil logger")
		}
	})
}

func TestRecovery(t *testing.T) {
	t.Run("recovers from panic and returns 500", func(t *testing.T) {
		var buf bytes.Buffer
		log := logger.NewWithOptions(logger.Options{Env: "test", Output: &buf})
		router := gin.New()
		router.Use(RequestID())
		router.Use(Recovery(log))
		router.GET("/api/v1/kpis", func(c *gin.Context) {
			panic("nil snapshot")
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/kpis", nil))

		if w.Code != http.StatusInternalServerError {
			t.Errorf("Expected status 500 after panic, got %d", w.Code)
		}
		body := w.Body.String()
		if !strings.Contains(body, "INTERNAL_SERVER_ERROR") || !strings.Contains(body, "request_id") {
			t.Errorf("Expected error envelope with request id, got %s", body)
		}
		if strings.Contains(body, "nil snapshot") {
			t.Error("Expected panic value to stay out of the response")
		}
		if !strings.Contains(buf.String(), "nil snapshot") {
			t.Errorf("Expected panic value in the log, got %s", buf.String())
		}
	})

	t.Run("does not interfere with normal requests", func(t *testing.T) {
		router := gin.New()
		router.Use(Recovery(logger.Nop()))
		router.GET("/api/v1/kpis", func(c *gin.Context) { c.String(http.StatusOK, "OK") })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/kpis", nil))

		if w.Code != http.StatusOK || w.Body.String() != "OK" {
			t.Errorf("Expected 200 OK, got %d %s", w.Code, w.Body.String())
		}
	})
}

func TestTimeout(t *testing.T) {
	tests := []struct {
		name         string
		timeout      time.Duration
		wantDeadline bool
	}{
		{name: "positive duration sets a deadline", timeout: time.Second, wantDeadline: true},
		{name: "zero duration leaves the context alone", timeout: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ctx context.Context
			router := gin.New()
			router.Use(Timeout(tt.timeout))
			router.GET("/api/v1/units", func(c *gin.Context) {
				ctx = c.Request.Context()
				c.String(http.StatusOK, "OK")
			})

			router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/units", nil))

			deadline, ok := ctx.Deadline()
			if ok != tt.wantDeadline {
				t.Fatalf("Expected deadline=%v, got %v", tt.wantDeadline, ok)
			}
			if ok && time.Until(deadline) > tt.timeout {
				t.Errorf("Expected deadline within %s, got %s", tt.timeout, time.Until(deadline))
			}
		})
	}
}

func TestMiddlewareStack(t *testing.T) {
	log := logger.Nop()

	router := gin.New()
	router.Use(RequestID())
	router.Use(Logger(log))
	router.Use(Recovery(log))
	router.Use(CORS([]string{"http://localhost:5173"}))
	router.Use(Timeout(time.Minute))
	router.GET("/api/v1/kpis", func(c *gin.Context) {
		if GetRequestID(c) == "" {
			t.Error("Expected request ID from RequestID middleware")
		}
		if GetLogger(c) == nil {
			t.Error("Expected logger from Logger middleware")
		}
		c.String(http.StatusOK, "OK")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/kpis", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("Expected X-Request-ID header")
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Error("Expected CORS headers")
	}
}
