package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/dmrb/internal/repository"
	"github.com/stwalsh4118/dmrb/internal/source"
)

// MockWorkbookRepository is a mock implementation of repository.WorkbookRepository.
type MockWorkbookRepository struct {
	mock.Mock
}

func (m *MockWorkbookRepository) Load(ctx context.Context) (*repository.Snapshot, error) {
	args := m.Called(ctx)
	snapshot, _ := args.Get(0).(*repository.Snapshot)
	return snapshot, args.Error(1)
}

func (m *MockWorkbookRepository) Invalidate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockWorkbookRepository) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// setupTestRouter creates a test Gin router.
func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func TestHealthHandler_Health(t *testing.T) {
	tests := []struct {
		name           string
		expectedStatus int
		expectedBody   HealthResponse
	}{
		{
			name:           "health check returns 200 OK",
			expectedStatus: http.StatusOK,
			expectedBody: HealthResponse{
				Status: "healthy",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Liveness never touches the repository
			repo := new(MockWorkbookRepository)
			handler := NewHealthHandler(repo, "test")

			router := setupTestRouter()
			router.GET("/health", handler.Health)

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var response HealthResponse
			err := json.NewDecoder(w.Body).Decode(&response)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedBody, response)
			repo.AssertNotCalled(t, "Ping", mock.Anything)
		})
	}
}

func TestHealthHandler_Ready(t *testing.T) {
	loadedAt := time.Date(2025, 1, 10, 7, 0, 0, 0, time.UTC)

	tests := []struct {
		name               string
		pingErr            error
		snapshot           *repository.Snapshot
		loadErr            error
		expectedStatus     int
		expectedStatusText string
		expectedCache      string
		expectedSource     string
	}{
		{
			name:               "ready when cache and source answer",
			snapshot:           &repository.Snapshot{LoadedAt: loadedAt},
			expectedStatus:     http.StatusOK,
			expectedStatusText: "ready",
			expectedCache:      "connected",
			expectedSource:     "reachable",
		},
		{
			name:               "not ready when cache is down",
			pingErr:            errors.New("dial tcp: connection refused"),
			snapshot:           &repository.Snapshot{LoadedAt: loadedAt},
			expectedStatus:     http.StatusServiceUnavailable,
			expectedStatusText: "not_ready",
			expectedCache:      "disconnected",
			expectedSource:     "reachable",
		},
		{
			name:               "not ready when source is unreachable",
			loadErr:            fmt.Errorf("%w: timeout", source.ErrSourceUnavailable),
			expectedStatus:     http.StatusServiceUnavailable,
			expectedStatusText: "not_ready",
			expectedCache:      "connected",
			expectedSource:     "unreachable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockWorkbookRepository)
			repo.On("Ping", mock.Anything).Return(tt.pingErr)
			repo.On("Load", mock.Anything).Return(tt.snapshot, tt.loadErr)

			handler := NewHealthHandler(repo, "test")
			router := setupTestRouter()
			router.GET("/health/ready", handler.Ready)

			req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var response ReadyResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, tt.expectedStatusText, response.Status)
			assert.Equal(t, tt.expectedCache, response.Cache)
			assert.Equal(t, tt.expectedSource, response.Source)
			if tt.loadErr == nil {
				require.NotNil(t, response.LoadedAt)
				assert.True(t, loadedAt.Equal(*response.LoadedAt))
			} else {
				assert.Nil(t, response.LoadedAt)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestHealthHandler_Ready_AppliesTimeout(t *testing.T) {
	repo := new(MockWorkbookRepository)
	repo.On("Ping", mock.MatchedBy(func(ctx context.Context) bool {
		deadline, ok := ctx.Deadline()
		return ok && time.Until(deadline) <= HealthCheckTimeout
	})).Return(nil)
	repo.On("Load", mock.Anything).Return(&repository.Snapshot{}, nil)

	handler := NewHealthHandler(repo, "test")
	router := setupTestRouter()
	router.GET("/health/ready", handler.Ready)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	repo.AssertExpectations(t)
}

func TestHealthHandler_Info(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		startTime   time.Time
		checkUptime bool
	}{
		{
			name:        "returns API info with development environment",
			env:         "development",
			startTime:   time.Now().Add(-2 * time.Hour),
			checkUptime: true,
		},
		{
			name:        "returns API info with production environment",
			env:         "production",
			startTime:   time.Now().Add(-24 * time.Hour),
			checkUptime: true,
		},
		{
			name:        "returns API info with test environment",
			env:         "test",
			startTime:   time.Now(),
			checkUptime: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := &HealthHandler{
				startTime: tt.startTime,
				env:       tt.env,
			}

			router := setupTestRouter()
			router.GET("/api/v1/info", handler.Info)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/info", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)

			var response InfoResponse
			err := json.NewDecoder(w.Body).Decode(&response)
			require.NoError(t, err)

			assert.Equal(t, APIVersion, response.Version)
			assert.Equal(t, tt.env, response.Environment)

			if tt.checkUptime {
				assert.NotEmpty(t, response.Uptime)
			}
		})
	}
}

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		expected string
	}{
		{
			name:     "formats seconds only",
			duration: 45 * time.Second,
			expected: "0h 0m 45s",
		},
		{
			name:     "formats minutes and seconds",
			duration: 5*time.Minute + 30*time.Second,
			expected: "0h 5m 30s",
		},
		{
			name:     "formats hours, minutes and seconds",
			duration: 2*time.Hour + 15*time.Minute + 45*time.Second,
			expected: "2h 15m 45s",
		},
		{
			name:     "formats days, hours, minutes and seconds",
			duration: 3*24*time.Hour + 5*time.Hour + 30*time.Minute + 15*time.Second,
			expected: "3d 5h 30m 15s",
		},
		{
			name:     "formats exactly one day",
			duration: 24 * time.Hour,
			expected: "1d 0h 0m 0s",
		},
		{
			name:     "formats zero duration",
			duration: 0,
			expected: "0h 0m 0s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := formatUptime(tt.duration)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestNewHealthHandler(t *testing.T) {
	repo := new(MockWorkbookRepository)
	handler := NewHealthHandler(repo, "production")

	assert.NotNil(t, handler)
	assert.Equal(t, repo, handler.repo)
	assert.Equal(t, "production", handler.env)
	assert.False(t, handler.startTime.IsZero())
}

func TestReadyResponse_JSON(t *testing.T) {
	loadedAt := time.Date(2025, 1, 10, 7, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		response ReadyResponse
		expected string
	}{
		{
			name: "ready state",
			response: ReadyResponse{
				Status:   "ready",
				Cache:    "connected",
				Source:   "reachable",
				LoadedAt: &loadedAt,
			},
			expected: `{"status":"ready","cache":"connected","source":"reachable","loaded_at":"2025-01-10T07:00:00Z"}`,
		},
		{
			name: "not ready omits loaded_at",
			response: ReadyResponse{
				Status: "not_ready",
				Cache:  "connected",
				Source: "unreachable",
			},
			expected: `{"status":"not_ready","cache":"connected","source":"unreachable"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.response)
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, string(data))
		})
	}
}

func TestAPIVersion(t *testing.T) {
	assert.Equal(t, "0.1.0", APIVersion)
}

func BenchmarkHealthHandler_Health(b *testing.B) {
	handler := NewHealthHandler(nil, "test")

	router := setupTestRouter()
	router.GET("/health", handler.Health)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
	}
}

func BenchmarkFormatUptime(b *testing.B) {
	duration := 3*24*time.Hour + 5*time.Hour + 30*time.Minute + 15*time.Second

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = formatUptime(duration)
	}
}

func ExampleHealthHandler_Health() {
	handler := NewHealthHandler(nil, "development")

	router := gin.New()
	router.GET("/health", handler.Health)

	fmt.Println("Health endpoint registered at /health")
	// Output: Health endpoint registered at /health
}
