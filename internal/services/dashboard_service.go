package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stwalsh4118/dmrb/internal/aggregator"
	"github.com/stwalsh4118/dmrb/internal/deriver"
	"github.com/stwalsh4118/dmrb/internal/logger"
	"github.com/stwalsh4118/dmrb/internal/models"
	"github.com/stwalsh4118/dmrb/internal/repository"
	"github.com/stwalsh4118/dmrb/internal/tasks"
)

// Service-level errors
var (
	ErrInvalidView  = errors.New("invalid unit view")
	ErrUnitNotFound = errors.New("unit not found")
)

// Meta describes the data behind a response.
type Meta struct {
	LoadedAt time.Time `json:"loaded_at" yaml:"loaded_at"`
	Today    string    `json:"today" yaml:"today"`
	Source   string    `json:"source" yaml:"source"`
	Warnings []string  `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// OverviewResult is the phase → building overview.
type OverviewResult struct {
	Phases []models.PhaseOverview `json:"phases" yaml:"phases"`
	Meta   Meta                   `json:"meta" yaml:"meta"`
}

// UnitsResult is the flat unit table.
type UnitsResult struct {
	Units []models.UnitRow `json:"units" yaml:"units"`
	Meta  Meta             `json:"meta" yaml:"meta"`
	Count int              `json:"count" yaml:"count"`
}

// UnitResult is one derived unit.
type UnitResult struct {
	Meta Meta              `json:"meta" yaml:"meta"`
	Unit models.UnitRecord `json:"unit" yaml:"unit"`
}

// ViewResult is one filtered unit view.
type ViewResult struct {
	Meta                  Meta `json:"meta" yaml:"meta"`
	models.UnitViewResult `yaml:",inline"`
}

// KPIResult is the property-level summary.
type KPIResult struct {
	Meta Meta              `json:"meta" yaml:"meta"`
	KPIs models.KPISummary `json:"kpis" yaml:"kpis"`
}

// MoveActivityResult lists today's and upcoming move events.
type MoveActivityResult struct {
	Meta     Meta                `json:"meta" yaml:"meta"`
	Activity models.MoveActivity `json:"activity" yaml:"activity"`
}

// TasksResult is the task schedule of one day.
type TasksResult struct {
	Meta           Meta `json:"meta" yaml:"meta"`
	models.TaskDay `yaml:",inline"`
}

// RefreshResult reports a forced reload.
type RefreshResult struct {
	LoadedAt time.Time `json:"loaded_at" yaml:"loaded_at"`
	Source   string    `json:"source" yaml:"source"`
	Warnings []string  `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Units    int       `json:"units" yaml:"units"`
	Tasks    int       `json:"tasks" yaml:"tasks"`
}

// DashboardService defines the interface for dashboard business logic
// operations. A zero today means the current date in the configured time zone.
type DashboardService interface {
	// PhaseOverview groups units Phase → Building with counts, vacant lists and
	// the move events falling on today.
	PhaseOverview(ctx context.Context, today time.Time) (*OverviewResult, error)

	// AllUnits returns every identified unit sorted by days vacant, most first.
	AllUnits(ctx context.Context, today time.Time) (*UnitsResult, error)

	// Unit returns one derived unit by id.
	// Returns ErrUnitNotFound when no row carries the id.
	Unit(ctx context.Context, id string, today time.Time) (*UnitResult, error)

	// UnitsView returns one of the filtered unit views.
	// Returns ErrInvalidView for names outside models.AllUnitViews.
	UnitsView(ctx context.Context, view string, today time.Time) (*ViewResult, error)

	// KPIs returns the property-level summary.
	KPIs(ctx context.Context, today time.Time) (*KPIResult, error)

	// MoveActivity returns move-outs today and upcoming, and move-ins tomorrow.
	MoveActivity(ctx context.Context, today time.Time) (*MoveActivityResult, error)

	// Tasks returns the tasks due on day, grouped by type. A zero day selects
	// the walk of the day (yesterday).
	Tasks(ctx context.Context, day, today time.Time) (*TasksResult, error)

	// Refresh drops the cached workbook and loads it again.
	Refresh(ctx context.Context) (*RefreshResult, error)
}

// dashboardService is the concrete implementation of DashboardService.
type dashboardService struct {
	repo    repository.WorkbookRepository
	deriver *deriver.Deriver
	agg     *aggregator.Aggregator
	loc     *time.Location
	log     *logger.Logger
	now     func() time.Time
}

// NewDashboardService creates a new instance of DashboardService. A nil loc
// resolves today in UTC.
func NewDashboardService(repo repository.WorkbookRepository, d *deriver.Deriver, agg *aggregator.Aggregator, loc *time.Location, log *logger.Logger) DashboardService {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logger.Nop()
	}
	return &dashboardService{
		repo:    repo,
		deriver: d,
		agg:     agg,
		loc:     loc,
		log:     log,
		now:     time.Now,
	}
}

func (s *dashboardService) resolveToday(today time.Time) time.Time {
	if today.IsZero() {
		return models.DateOf(s.now().In(s.loc))
	}
	return models.DateOf(today)
}

// load fetches a snapshot and derives its units for today.
func (s *dashboardService) load(ctx context.Context, today time.Time) ([]models.UnitRecord, Meta, error) {
	snapshot, err := s.repo.Load(ctx)
	if err != nil {
		s.log.Error("Failed to load workbook", err, nil)
		return nil, Meta{}, fmt.Errorf("failed to load workbook: %w", err)
	}

	units, err := s.deriver.DeriveAll(snapshot.Units, today)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("failed to derive unit fields: %w", err)
	}

	meta := Meta{
		LoadedAt: snapshot.LoadedAt,
		Today:    today.Format(models.EventDateLayout),
		Source:   snapshot.Source,
		Warnings: snapshot.Warnings,
	}
	return units, meta, nil
}

func (s *dashboardService) PhaseOverview(ctx context.Context, today time.Time) (*OverviewResult, error) {
	today = s.resolveToday(today)
	units, meta, err := s.load(ctx, today)
	if err != nil {
		return nil, err
	}

	phases := s.agg.PhaseOverview(units, today)
	s.log.Info("Built phase overview", map[string]interface{}{
		"today":  meta.Today,
		"units":  len(units),
		"phases": len(phases),
	})

	return &OverviewResult{Phases: phases, Meta: meta}, nil
}

func (s *dashboardService) AllUnits(ctx context.Context, today time.Time) (*UnitsResult, error) {
	today = s.resolveToday(today)
	units, meta, err := s.load(ctx, today)
	if err != nil {
		return nil, err
	}

	rows := s.agg.AllUnits(units)
	return &UnitsResult{Units: rows, Meta: meta, Count: len(rows)}, nil
}

func (s *dashboardService) Unit(ctx context.Context, id string, today time.Time) (*UnitResult, error) {
	id = strings.TrimSpace(id)
	today = s.resolveToday(today)
	units, meta, err := s.load(ctx, today)
	if err != nil {
		return nil, err
	}

	for _, u := range units {
		if strings.EqualFold(strings.TrimSpace(u.UnitID), id) {
			return &UnitResult{Meta: meta, Unit: u}, nil
		}
	}

	s.log.Debug("Unit not found", map[string]interface{}{"unit_id": id})
	return nil, fmt.Errorf("%w: %s", ErrUnitNotFound, id)
}

func (s *dashboardService) UnitsView(ctx context.Context, view string, today time.Time) (*ViewResult, error) {
	v := models.UnitView(strings.ToLower(strings.TrimSpace(view)))
	if !v.Valid() {
		s.log.Warn("Invalid unit view requested", map[string]interface{}{"view": view})
		return nil, fmt.Errorf("%w: %q", ErrInvalidView, view)
	}

	today = s.resolveToday(today)
	units, meta, err := s.load(ctx, today)
	if err != nil {
		return nil, err
	}

	result, err := s.agg.View(units, v, today)
	if err != nil {
		if errors.Is(err, aggregator.ErrUnknownView) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidView, err)
		}
		return nil, err
	}

	s.log.Info("Built unit view", map[string]interface{}{
		"view":  string(v),
		"today": meta.Today,
		"count": result.Count,
	})

	return &ViewResult{Meta: meta, UnitViewResult: result}, nil
}

func (s *dashboardService) KPIs(ctx context.Context, today time.Time) (*KPIResult, error) {
	today = s.resolveToday(today)
	units, meta, err := s.load(ctx, today)
	if err != nil {
		return nil, err
	}
	return &KPIResult{Meta: meta, KPIs: s.agg.KPIs(units)}, nil
}

func (s *dashboardService) MoveActivity(ctx context.Context, today time.Time) (*MoveActivityResult, error) {
	today = s.resolveToday(today)
	units, meta, err := s.load(ctx, today)
	if err != nil {
		return nil, err
	}
	return &MoveActivityResult{Meta: meta, Activity: s.agg.MoveActivity(units, today)}, nil
}

func (s *dashboardService) Tasks(ctx context.Context, day, today time.Time) (*TasksResult, error) {
	today = s.resolveToday(today)
	if day.IsZero() {
		day = tasks.WalkDate(today)
	}

	snapshot, err := s.repo.Load(ctx)
	if err != nil {
		s.log.Error("Failed to load workbook", err, nil)
		return nil, fmt.Errorf("failed to load workbook: %w", err)
	}

	schedule := tasks.Schedule(snapshot.Tasks, day)
	s.log.Info("Built task schedule", map[string]interface{}{
		"date":  schedule.Date,
		"tasks": schedule.Count,
	})

	return &TasksResult{
		Meta: Meta{
			LoadedAt: snapshot.LoadedAt,
			Today:    today.Format(models.EventDateLayout),
			Source:   snapshot.Source,
			Warnings: snapshot.Warnings,
		},
		TaskDay: schedule,
	}, nil
}

func (s *dashboardService) Refresh(ctx context.Context) (*RefreshResult, error) {
	if err := s.repo.Invalidate(ctx); err != nil {
		s.log.Warn("Cache invalidation failed", map[string]interface{}{"error": err.Error()})
	}

	snapshot, err := s.repo.Load(ctx)
	if err != nil {
		s.log.Error("Refresh failed", err, nil)
		return nil, fmt.Errorf("failed to reload workbook: %w", err)
	}

	s.log.Info("Workbook refreshed", map[string]interface{}{
		"source": snapshot.Source,
		"units":  len(snapshot.Units.Rows),
		"tasks":  len(snapshot.Tasks),
	})

	return &RefreshResult{
		LoadedAt: snapshot.LoadedAt,
		Source:   snapshot.Source,
		Warnings: snapshot.Warnings,
		Units:    len(snapshot.Units.Rows),
		Tasks:    len(snapshot.Tasks),
	}, nil
}
