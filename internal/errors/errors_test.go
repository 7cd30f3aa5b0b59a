package errors

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/gin-gonic/gin"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/dmrb/internal/logger"
	"github.com/stwalsh4118/dmrb/internal/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// setupTestContext returns a context carrying a request id and a JSON logger
// that writes into logs.
func setupTestContext(logs *bytes.Buffer) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/kpis?today=2025-01-10", nil)

	out := io.Writer(io.Discard)
	if logs != nil {
		out = logs
	}
	c.Set(middleware.LoggerKey, logger.NewWithOptions(logger.Options{Env: "test", Level: "debug", Output: out}))
	c.Set(middleware.RequestIDKey, "test-request-id")

	return c, w
}

func parseErrorResponse(t *testing.T, body *bytes.Buffer) ErrorResponse {
	t.Helper()
	var response ErrorResponse
	require.NoError(t, json.Unmarshal(body.Bytes(), &response), "Failed to parse error response JSON")
	return response
}

func TestErrorResponders(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.4:443: i/o timeout")

	tests := []struct {
		name            string
		respond         func(c *gin.Context)
		expectedStatus  int
		expectedCode    string
		expectedMessage string
		expectedDetails map[string]interface{}
		expectedLog     string
	}{
		{
			name:            "not found",
			respond:         func(c *gin.Context) { NotFound(c, "unit not found: 999") },
			expectedStatus:  http.StatusNotFound,
			expectedCode:    ErrNotFound,
			expectedMessage: "unit not found: 999",
			expectedLog:     "Resource not found",
		},
		{
			name:            "bad request without details",
			respond:         func(c *gin.Context) { BadRequest(c, "Invalid query parameters", nil) },
			expectedStatus:  http.StatusBadRequest,
			expectedCode:    ErrBadRequest,
			expectedMessage: "Invalid query parameters",
			expectedLog:     "Bad request",
		},
		{
			name: "bad request with details",
			respond: func(c *gin.Context) {
				BadRequest(c, "Invalid query parameters", map[string]interface{}{"today": "tomorrow"})
			},
			expectedStatus:  http.StatusBadRequest,
			expectedCode:    ErrBadRequest,
			expectedMessage: "Invalid query parameters",
			expectedDetails: map[string]interface{}{"today": "tomorrow"},
			expectedLog:     "Bad request",
		},
		{
			name:            "internal server error",
			respond:         func(c *gin.Context) { InternalServerError(c, "Failed to compute KPIs", cause) },
			expectedStatus:  http.StatusInternalServerError,
			expectedCode:    ErrInternalServer,
			expectedMessage: "Failed to compute KPIs",
			expectedLog:     "Internal server error",
		},
		{
			name:            "service unavailable",
			respond:         func(c *gin.Context) { ServiceUnavailable(c, "Workbook source is unavailable", cause) },
			expectedStatus:  http.StatusServiceUnavailable,
			expectedCode:    ErrSourceUnavailable,
			expectedMessage: "Workbook source is unavailable",
			expectedLog:     "Data source unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := new(bytes.Buffer)
			c, w := setupTestContext(logs)

			tt.respond(c)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.NotContains(t, w.Body.String(), "i/o timeout", "cause must stay in the logs")

			response := parseErrorResponse(t, w.Body)
			assert.Equal(t, tt.expectedCode, response.Error.Code)
			assert.Equal(t, tt.expectedMessage, response.Error.Message)
			assert.Equal(t, "test-request-id", response.Error.RequestID)
			assert.Equal(t, tt.expectedDetails, response.Error.Details)

			assert.Contains(t, logs.String(), tt.expectedLog)
			assert.Contains(t, logs.String(), `"request_id":"test-request-id"`)
			assert.Contains(t, logs.String(), `"path":"/api/v1/kpis"`)
		})
	}
}

func TestSchemaError(t *testing.T) {
	c, w := setupTestContext(nil)

	SchemaError(c, "Unit", []string{"Move-in", "Phases"})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	response := parseErrorResponse(t, w.Body)
	assert.Equal(t, ErrSchema, response.Error.Code)
	assert.Equal(t, "test-request-id", response.Error.RequestID)
	assert.Equal(t, "Unit", response.Error.Details["sheet"])
	assert.Equal(t, []interface{}{"Move-in", "Phases"}, response.Error.Details["missing_columns"])
}

func TestValidationError(t *testing.T) {
	c, w := setupTestContext(nil)

	type tasksQuery struct {
		Today string `validate:"required,datetime=2006-01-02"`
		Days  int    `validate:"gte=0"`
	}

	err := validator.New().Struct(tasksQuery{Today: "01/10/2025", Days: -1})
	var validationErrors validator.ValidationErrors
	require.True(t, errors.As(err, &validationErrors))

	ValidationError(c, validationErrors)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	response := parseErrorResponse(t, w.Body)
	assert.Equal(t, ErrValidation, response.Error.Code)
	assert.Equal(t, "Validation failed for one or more fields", response.Error.Message)
	assert.Len(t, response.Error.Details, 2)

	assert.Equal(t, "Must be a date in the format 2006-01-02", response.Error.Details["Today"])
	assert.Equal(t, "Must be greater than or equal to 0", response.Error.Details["Days"])
}

func TestFormatValidationError(t *testing.T) {
	tests := []struct {
		name     string
		tag      string
		param    string
		expected string
	}{
		{
			name:     "required",
			tag:      "required",
			param:    "",
			expected: "This field is required",
		},
		{
			name:     "datetime",
			tag:      "datetime",
			param:    "2006-01-02",
			expected: "Must be a date in the format 2006-01-02",
		},
		{name: "min", tag: "min", param: "1", expected: "Value is too short or small (minimum: 1)"},
		{name: "max", tag: "max", param: "366", expected: "Value is too long or large (maximum: 366)"},
		{name: "gte", tag: "gte", param: "0", expected: "Must be greater than or equal to 0"},
		{name: "lte", tag: "lte", param: "30", expected: "Must be less than or equal to 30"},
		{
			name:     "oneof",
			tag:      "oneof",
			param:    "json yaml",
			expected: "Must be one of: json yaml",
		},
		{
			name:     "unknown",
			tag:      "unknown_tag",
			param:    "",
			expected: "Validation failed for tag: unknown_tag",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := formatValidationError(&mockFieldError{tag: tt.tag, param: tt.param})
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestErrorResponseWithoutMiddleware(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/units/1", nil)

	SchemaError(c, "Unit", []string{"Unit"})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	response := parseErrorResponse(t, w.Body)
	assert.Equal(t, ErrSchema, response.Error.Code)
	assert.Empty(t, response.Error.RequestID)
}

func TestErrorConstants(t *testing.T) {
	assert.Equal(t, "NOT_FOUND", ErrNotFound)
	assert.Equal(t, "BAD_REQUEST", ErrBadRequest)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", ErrInternalServer)
	assert.Equal(t, "VALIDATION_ERROR", ErrValidation)
	assert.Equal(t, "SOURCE_UNAVAILABLE", ErrSourceUnavailable)
	assert.Equal(t, "SCHEMA_ERROR", ErrSchema)
}

// mockFieldError is a mock implementation of validator.FieldError for testing.
type mockFieldError struct {
	tag   string
	param string
}

func (m *mockFieldError) Tag() string                    { return m.tag }
func (m *mockFieldError) ActualTag() string              { return m.tag }
func (m *mockFieldError) Namespace() string              { return "" }
func (m *mockFieldError) StructNamespace() string        { return "" }
func (m *mockFieldError) Field() string                  { return "TestField" }
func (m *mockFieldError) StructField() string            { return "TestField" }
func (m *mockFieldError) Value() interface{}             { return nil }
func (m *mockFieldError) Param() string                  { return m.param }
func (m *mockFieldError) Kind() reflect.Kind             { return reflect.String }
func (m *mockFieldError) Type() reflect.Type             { return nil }
func (m *mockFieldError) Translate(ut.Translator) string { return "" }
func (m *mockFieldError) Error() string                  { return "" }
