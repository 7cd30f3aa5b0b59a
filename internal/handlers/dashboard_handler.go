package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	apierrors "github.com/stwalsh4118/dmrb/internal/errors"
	"github.com/stwalsh4118/dmrb/internal/middleware"
	"github.com/stwalsh4118/dmrb/internal/models"
	"github.com/stwalsh4118/dmrb/internal/services"
	"github.com/stwalsh4118/dmrb/internal/source"
)

// DashboardHandler handles the make-ready dashboard endpoints.
type DashboardHandler struct {
	service services.DashboardService
}

// NewDashboardHandler creates a new DashboardHandler instance.
func NewDashboardHandler(service services.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		service: service,
	}
}

// TodayRequest is the reference date accepted by every dashboard endpoint.
// An empty value means the current date in the configured time zone.
type TodayRequest struct {
	Today string `form:"today" binding:"omitempty,datetime=2006-01-02"`
}

// TasksRequest selects the task day. An empty Date means yesterday.
type TasksRequest struct {
	Today string `form:"today" binding:"omitempty,datetime=2006-01-02"`
	Date  string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}

// parseDay converts a validated YYYY-MM-DD query value; empty yields zero.
func parseDay(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(models.EventDateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// bindQuery binds and validates query parameters, writing the error response
// itself when binding fails.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			apierrors.ValidationError(c, validationErrors)
			return false
		}
		apierrors.BadRequest(c, "Invalid query parameters", nil)
		return false
	}
	return true
}

// bindToday reads the optional today parameter.
func bindToday(c *gin.Context) (time.Time, bool) {
	var req TodayRequest
	if !bindQuery(c, &req) {
		return time.Time{}, false
	}
	return parseDay(req.Today), true
}

// writeError maps service errors to HTTP responses.
func writeError(c *gin.Context, err error, message string) {
	var schemaErr *models.SchemaError
	switch {
	case errors.Is(err, services.ErrInvalidView):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrUnitNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.As(err, &schemaErr):
		apierrors.SchemaError(c, schemaErr.Sheet, schemaErr.Missing)
	case errors.Is(err, source.ErrSourceUnavailable):
		apierrors.ServiceUnavailable(c, "Workbook source is unavailable", err)
	default:
		apierrors.InternalServerError(c, message, err)
	}
}

// PhaseOverview handles GET /api/v1/overview/phases.
func (h *DashboardHandler) PhaseOverview(c *gin.Context) {
	today, ok := bindToday(c)
	if !ok {
		return
	}

	result, err := h.service.PhaseOverview(c.Request.Context(), today)
	if err != nil {
		writeError(c, err, "Failed to build phase overview")
		return
	}

	c.JSON(http.StatusOK, result)
}

// Units handles GET /api/v1/units.
func (h *DashboardHandler) Units(c *gin.Context) {
	today, ok := bindToday(c)
	if !ok {
		return
	}

	result, err := h.service.AllUnits(c.Request.Context(), today)
	if err != nil {
		writeError(c, err, "Failed to list units")
		return
	}

	c.JSON(http.StatusOK, result)
}

// Unit handles GET /api/v1/units/:id.
func (h *DashboardHandler) Unit(c *gin.Context) {
	today, ok := bindToday(c)
	if !ok {
		return
	}

	result, err := h.service.Unit(c.Request.Context(), c.Param("id"), today)
	if err != nil {
		writeError(c, err, "Failed to load unit")
		return
	}

	c.JSON(http.StatusOK, result)
}

// View handles GET /api/v1/views/:view.
func (h *DashboardHandler) View(c *gin.Context) {
	today, ok := bindToday(c)
	if !ok {
		return
	}

	view := c.Param("view")
	if log := middleware.GetLogger(c); log != nil {
		log.Debug("Processing view request", map[string]interface{}{"view": view})
	}

	result, err := h.service.UnitsView(c.Request.Context(), view, today)
	if err != nil {
		writeError(c, err, "Failed to build unit view")
		return
	}

	c.JSON(http.StatusOK, result)
}

// KPIs handles GET /api/v1/kpis.
func (h *DashboardHandler) KPIs(c *gin.Context) {
	today, ok := bindToday(c)
	if !ok {
		return
	}

	result, err := h.service.KPIs(c.Request.Context(), today)
	if err != nil {
		writeError(c, err, "Failed to compute KPIs")
		return
	}

	c.JSON(http.StatusOK, result)
}

// MoveActivity handles GET /api/v1/move-activity.
func (h *DashboardHandler) MoveActivity(c *gin.Context) {
	today, ok := bindToday(c)
	if !ok {
		return
	}

	result, err := h.service.MoveActivity(c.Request.Context(), today)
	if err != nil {
		writeError(c, err, "Failed to list move activity")
		return
	}

	c.JSON(http.StatusOK, result)
}

// Tasks handles GET /api/v1/tasks.
func (h *DashboardHandler) Tasks(c *gin.Context) {
	var req TasksRequest
	if !bindQuery(c, &req) {
		return
	}

	result, err := h.service.Tasks(c.Request.Context(), parseDay(req.Date), parseDay(req.Today))
	if err != nil {
		writeError(c, err, "Failed to build task schedule")
		return
	}

	c.JSON(http.StatusOK, result)
}

// Refresh handles POST /api/v1/refresh.
func (h *DashboardHandler) Refresh(c *gin.Context) {
	result, err := h.service.Refresh(c.Request.Context())
	if err != nil {
		writeError(c, err, "Failed to refresh workbook")
		return
	}

	if log := middleware.GetLogger(c); log != nil {
		log.Info("Workbook refreshed on request", map[string]interface{}{
			"units": result.Units,
			"tasks": result.Tasks,
		})
	}

	c.JSON(http.StatusOK, result)
}

// RegisterRoutes mounts the dashboard endpoints on group.
func (h *DashboardHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/overview/phases", h.PhaseOverview)
	group.GET("/units", h.Units)
	group.GET("/units/:id", h.Unit)
	group.GET("/views/:view", h.View)
	group.GET("/kpis", h.KPIs)
	group.GET("/move-activity", h.MoveActivity)
	group.GET("/tasks", h.Tasks)
	group.POST("/refresh", h.Refresh)
}
