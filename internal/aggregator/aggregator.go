// Package aggregator turns derived unit rows into Phase → Building
// hierarchies, flat lists and headline metrics. It only groups, filters and
// counts; classification is done upstream by the deriver.
package aggregator

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stwalsh4118/dmrb/internal/logger"
	"github.com/stwalsh4118/dmrb/internal/models"
)

// Config holds the presentation and KPI settings of an Aggregator.
type Config struct {
	// TotalUnits is the occupancy denominator; zero means use the row count.
	TotalUnits int `validate:"gte=0"`
	// SLADays is the largest days-vacant value still counted as SLA compliant.
	SLADays int `validate:"gte=0"`
	// AtRiskDays is the days-vacant value beyond which a not-ready unit is at risk.
	AtRiskDays       int     `validate:"gtefield=SLADays"`
	HealthyAvgDays   float64 `validate:"gte=0"`
	LaggingAvgDays   float64 `validate:"gtefield=HealthyAvgDays"`
	MovingWindowDays int     `validate:"gte=0"`
	VacantDot        string
	OccupiedDot      string
}

// DefaultConfig returns the dashboard defaults.
func DefaultConfig() Config {
	return Config{
		TotalUnits:       1300,
		SLADays:          8,
		AtRiskDays:       25,
		HealthyAvgDays:   10,
		LaggingAvgDays:   20,
		MovingWindowDays: 3,
		VacantDot:        "🔴",
		OccupiedDot:      "🟢",
	}
}

var validate = validator.New()

// Validate checks the configuration for internal consistency.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid aggregator config: %w", err)
	}
	return nil
}

// Aggregator builds view models from derived units. It holds only immutable
// configuration and is safe for concurrent use.
type Aggregator struct {
	cfg Config
	log *logger.Logger
}

// New creates an Aggregator after validating cfg.
func New(cfg Config, log *logger.Logger) (*Aggregator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Aggregator{cfg: cfg, log: log}, nil
}

// Config returns the aggregator settings.
func (a *Aggregator) Config() Config {
	return a.cfg
}

// hierarchy is an ordered Phase → Building grouping of units.
type hierarchy struct {
	phases []string
	groups map[string]*phaseGroup
}

type phaseGroup struct {
	buildings []string
	units     map[string][]models.UnitRecord
}

// groupByPhaseAndBuilding groups units preserving their relative order within
// each building. Units lacking a phase or building are dropped and counted.
func groupByPhaseAndBuilding(units []models.UnitRecord) (hierarchy, int) {
	h := hierarchy{groups: make(map[string]*phaseGroup)}
	excluded := 0

	for _, u := range units {
		phase := strings.TrimSpace(u.Phase)
		building := strings.TrimSpace(u.Building)
		if phase == "" || building == "" {
			excluded++
			continue
		}

		pg, ok := h.groups[phase]
		if !ok {
			pg = &phaseGroup{units: make(map[string][]models.UnitRecord)}
			h.groups[phase] = pg
			h.phases = append(h.phases, phase)
		}
		if _, ok := pg.units[building]; !ok {
			pg.buildings = append(pg.buildings, building)
		}
		pg.units[building] = append(pg.units[building], u)
	}

	sortLabels(h.phases)
	for _, pg := range h.groups {
		sortLabels(pg.buildings)
	}
	return h, excluded
}

// PhaseOverview builds the Phase → Building occupancy overview. Move events
// are the move-outs and move-ins falling exactly on today.
func (a *Aggregator) PhaseOverview(units []models.UnitRecord, today time.Time) []models.PhaseOverview {
	h, excluded := groupByPhaseAndBuilding(units)
	if excluded > 0 {
		a.log.Debug("Units without phase or building excluded from overview", map[string]interface{}{
			"excluded": excluded,
		})
	}

	result := make([]models.PhaseOverview, 0, len(h.phases))
	for _, phase := range h.phases {
		pg := h.groups[phase]
		po := models.PhaseOverview{
			Key:       phase,
			Label:     PhaseLabel(phase),
			Buildings: make([]models.BuildingOverview, 0, len(pg.buildings)),
		}

		for _, building := range pg.buildings {
			bo := a.buildingOverview(building, pg.units[building], today)
			po.TotalUnits += bo.TotalUnits
			po.Buildings = append(po.Buildings, bo)
		}
		result = append(result, po)
	}

	return result
}

func (a *Aggregator) buildingOverview(building string, units []models.UnitRecord, today time.Time) models.BuildingOverview {
	bo := models.BuildingOverview{
		Key:         building,
		Label:       BuildingLabel(building),
		TotalUnits:  len(units),
		VacantUnits: []models.VacantUnit{},
		MoveEvents:  []models.MoveEvent{},
	}

	var moveOuts, moveIns []models.MoveEvent
	for _, u := range units {
		switch {
		case u.NVM.IsVacant():
			bo.VacantCount++
		case u.NVM == models.NVMMoveIn:
			bo.MoveInCount++
		}
		if u.NVM.IsNotice() {
			bo.NoticeCount++
		}

		id := strings.TrimSpace(u.UnitID)
		if id == "" {
			continue
		}

		if u.NVM.IsVacant() {
			bo.VacantUnits = append(bo.VacantUnits, models.VacantUnit{
				UnitID:         id,
				MoveOut:        models.FormatDate(u.MoveOut, models.DisplayDateLayout),
				MoveIn:         models.FormatDate(u.MoveIn, models.DisplayDateLayout),
				DaysVacant:     u.DaysVacant,
				LifecycleLabel: u.LifecycleLabel,
			})
		}
		if models.SameDay(u.MoveOut, today) {
			moveOuts = append(moveOuts, newMoveEvent(id, models.MoveOutEvent, u.MoveOut))
		}
		if models.SameDay(u.MoveIn, today) {
			moveIns = append(moveIns, newMoveEvent(id, models.MoveInEvent, u.MoveIn))
		}
	}
	bo.OccupiedCount = bo.TotalUnits - bo.VacantCount
	bo.MoveEvents = append(append(bo.MoveEvents, moveOuts...), moveIns...)

	return bo
}

func newMoveEvent(unitID string, kind models.MoveEventKind, date *time.Time) models.MoveEvent {
	verb := "Move Out"
	if kind == models.MoveInEvent {
		verb = "Move In"
	}
	d := models.FormatDate(date, models.EventDateLayout)
	return models.MoveEvent{
		UnitID: unitID,
		Kind:   kind,
		Date:   d,
		Text:   fmt.Sprintf("Unit %s - %s %s", unitID, verb, d),
	}
}

// AllUnits returns one display row per identifiable unit, longest vacancy
// first. Units with unknown days vacant sort after every known value,
// negative ones included.
func (a *Aggregator) AllUnits(units []models.UnitRecord) []models.UnitRow {
	rows := make([]models.UnitRow, 0, len(units))
	skipped := 0

	for _, u := range units {
		id := strings.TrimSpace(u.UnitID)
		if id == "" {
			skipped++
			continue
		}
		rows = append(rows, a.unitRow(id, u))
	}
	if skipped > 0 {
		a.log.Debug("Units without identifier skipped from list", map[string]interface{}{
			"skipped": skipped,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return daysVacantBefore(rows[i].DaysVacant, rows[j].DaysVacant)
	})
	return rows
}

func (a *Aggregator) unitRow(id string, u models.UnitRecord) models.UnitRow {
	dot := a.cfg.OccupiedDot
	if u.NVM.IsVacant() {
		dot = a.cfg.VacantDot
	}
	return models.UnitRow{
		UnitID:        id,
		Phase:         strings.TrimSpace(u.Phase),
		Building:      strings.TrimSpace(u.Building),
		StatusDot:     dot,
		MoveOut:       models.FormatDate(u.MoveOut, models.DisplayDateLayout),
		MoveIn:        models.FormatDate(u.MoveIn, models.DisplayDateLayout),
		DaysVacant:    u.DaysVacant,
		DaysToBeReady: u.DaysToBeReady,
		NVM:           u.NVM,
		Lifecycle:     u.LifecycleLabel,
		TurnLevel:     u.TurnLevel,
		Vacant:        u.NVM.IsVacant(),
		Blocked:       u.Blocked,
	}
}

// daysVacantBefore orders known values descending with unknown last.
func daysVacantBefore(a, b *int) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return *a > *b
	}
}
