package models

// PhaseOverview groups the buildings of one phase.
type PhaseOverview struct {
	Key        string             `json:"key" yaml:"key"`
	Label      string             `json:"label" yaml:"label"`
	Buildings  []BuildingOverview `json:"buildings" yaml:"buildings"`
	TotalUnits int                `json:"total_units" yaml:"total_units"`
}

// BuildingOverview carries the occupancy counts and today's activity for one building.
type BuildingOverview struct {
	Key           string       `json:"key" yaml:"key"`
	Label         string       `json:"label" yaml:"label"`
	VacantUnits   []VacantUnit `json:"vacant_units" yaml:"vacant_units"`
	MoveEvents    []MoveEvent  `json:"move_events" yaml:"move_events"`
	TotalUnits    int          `json:"total_units" yaml:"total_units"`
	VacantCount   int          `json:"vacant_count" yaml:"vacant_count"`
	OccupiedCount int          `json:"occupied_count" yaml:"occupied_count"`
	NoticeCount   int          `json:"notice_count" yaml:"notice_count"`
	MoveInCount   int          `json:"move_in_count" yaml:"move_in_count"`
}

// VacantUnit is the compact entry listed under a building for each empty unit.
type VacantUnit struct {
	DaysVacant     *int           `json:"days_vacant" yaml:"days_vacant"`
	UnitID         string         `json:"unit_id" yaml:"unit_id"`
	MoveOut        string         `json:"move_out" yaml:"move_out"`
	MoveIn         string         `json:"move_in" yaml:"move_in"`
	LifecycleLabel LifecycleLabel `json:"lifecycle_label" yaml:"lifecycle_label"`
}

// MoveEventKind distinguishes move-outs from move-ins.
type MoveEventKind string

const (
	MoveOutEvent MoveEventKind = "move_out"
	MoveInEvent  MoveEventKind = "move_in"
)

// MoveEvent is a single move-out or move-in happening on a given day.
type MoveEvent struct {
	UnitID string        `json:"unit_id" yaml:"unit_id"`
	Kind   MoveEventKind `json:"kind" yaml:"kind"`
	Date   string        `json:"date" yaml:"date"`
	Text   string        `json:"text" yaml:"text"`
}

// UnitRow is the flat display row for the all-units list.
type UnitRow struct {
	DaysVacant    *int           `json:"days_vacant" yaml:"days_vacant"`
	DaysToBeReady *int           `json:"days_to_be_ready" yaml:"days_to_be_ready"`
	UnitID        string         `json:"unit_id" yaml:"unit_id"`
	Phase         string         `json:"phase" yaml:"phase"`
	Building      string         `json:"building" yaml:"building"`
	StatusDot     string         `json:"status_dot" yaml:"status_dot"`
	MoveOut       string         `json:"move_out" yaml:"move_out"`
	MoveIn        string         `json:"move_in" yaml:"move_in"`
	NVM           NVMStatus      `json:"nvm" yaml:"nvm"`
	Lifecycle     LifecycleLabel `json:"lifecycle_label" yaml:"lifecycle_label"`
	TurnLevel     TurnLevel      `json:"turn_level" yaml:"turn_level"`
	Vacant        bool           `json:"vacant" yaml:"vacant"`
	Blocked       bool           `json:"unit_blocked" yaml:"unit_blocked"`
}

// HealthStatus summarizes average vacancy age across the property.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "Healthy"
	HealthLagging  HealthStatus = "Lagging"
	HealthCritical HealthStatus = "Critical"
)

// KPISummary is the property-wide headline metrics block.
type KPISummary struct {
	AvgDaysVacant    *float64     `json:"avg_days_vacant" yaml:"avg_days_vacant"`
	Health           HealthStatus `json:"health_status" yaml:"health_status"`
	TotalUnits       int          `json:"total_units" yaml:"total_units"`
	VacantUnits      int          `json:"vacant_units" yaml:"vacant_units"`
	OccupiedUnits    int          `json:"occupied_units" yaml:"occupied_units"`
	NoticeUnits      int          `json:"notice_units" yaml:"notice_units"`
	ActiveTurns      int          `json:"active_turns" yaml:"active_turns"`
	UnitsReady       int          `json:"units_ready" yaml:"units_ready"`
	BlockedUnits     int          `json:"blocked_units" yaml:"blocked_units"`
	SLACompliant     int          `json:"sla_compliant" yaml:"sla_compliant"`
	UnitsAtRisk      int          `json:"units_at_risk" yaml:"units_at_risk"`
	OccupancyPct     float64      `json:"occupancy_pct" yaml:"occupancy_pct"`
	VacancyPct       float64      `json:"vacancy_pct" yaml:"vacancy_pct"`
	SLACompliancePct float64      `json:"sla_compliance_pct" yaml:"sla_compliance_pct"`
}

// MoveActivity lists upcoming move-outs and tomorrow's move-ins.
type MoveActivity struct {
	MoveOutsToday    []MoveEvent `json:"move_outs_today" yaml:"move_outs_today"`
	UpcomingMoveOuts []MoveEvent `json:"upcoming_move_outs" yaml:"upcoming_move_outs"`
	MoveInsTomorrow  []MoveEvent `json:"move_ins_tomorrow" yaml:"move_ins_tomorrow"`
}

// UnitView names a filtered units listing.
type UnitView string

const (
	ViewActive   UnitView = "active"
	ViewNotice   UnitView = "notice"
	ViewVacant   UnitView = "vacant"
	ViewMoving   UnitView = "moving"
	ViewReady    UnitView = "ready"
	ViewNotReady UnitView = "not-ready"
	ViewAll      UnitView = "all"
)

// AllUnitViews lists every supported view.
var AllUnitViews = []UnitView{ViewActive, ViewNotice, ViewVacant, ViewMoving, ViewReady, ViewNotReady, ViewAll}

// Valid reports whether v is a known view.
func (v UnitView) Valid() bool {
	for _, known := range AllUnitViews {
		if v == known {
			return true
		}
	}
	return false
}

// UnitCard is one unit inside a filtered view.
type UnitCard struct {
	DaysVacant     *int           `json:"days_vacant" yaml:"days_vacant"`
	DaysToBeReady  *int           `json:"days_to_be_ready" yaml:"days_to_be_ready"`
	UnitID         string         `json:"unit_id" yaml:"unit_id"`
	MoveOut        string         `json:"move_out" yaml:"move_out"`
	MoveIn         string         `json:"move_in" yaml:"move_in"`
	NVM            NVMStatus      `json:"nvm" yaml:"nvm"`
	LifecycleLabel LifecycleLabel `json:"lifecycle_label" yaml:"lifecycle_label"`
	TurnLevel      TurnLevel      `json:"turn_level" yaml:"turn_level"`
	Comments       string         `json:"comments,omitempty" yaml:"comments,omitempty"`
	ReadinessPct   int            `json:"readiness_pct" yaml:"readiness_pct"`
	Blocked        bool           `json:"unit_blocked" yaml:"unit_blocked"`
}

// ViewBuilding groups unit cards for one building in a filtered view.
type ViewBuilding struct {
	Key           string     `json:"key" yaml:"key"`
	Label         string     `json:"label" yaml:"label"`
	Units         []UnitCard `json:"units" yaml:"units"`
	OccupiedCount int        `json:"occupied_count" yaml:"occupied_count"`
	VacantCount   int        `json:"vacant_count" yaml:"vacant_count"`
}

// ViewPhase groups buildings for one phase in a filtered view.
type ViewPhase struct {
	Key       string         `json:"key" yaml:"key"`
	Label     string         `json:"label" yaml:"label"`
	Buildings []ViewBuilding `json:"buildings" yaml:"buildings"`
	UnitCount int            `json:"unit_count" yaml:"unit_count"`
}

// UnitViewResult is a filtered Phase → Building → Unit hierarchy.
type UnitViewResult struct {
	View   UnitView    `json:"view" yaml:"view"`
	Phases []ViewPhase `json:"phases" yaml:"phases"`
	Count  int         `json:"count" yaml:"count"`
}

// TaskUnit is one unit's entry within a task type group.
type TaskUnit struct {
	Unit     string `json:"unit" yaml:"unit"`
	UnitPath string `json:"unit_id" yaml:"unit_id"`
	Vendor   string `json:"vendor" yaml:"vendor"`
	Status   string `json:"status" yaml:"status"`
}

// TaskBuilding groups task units by building.
type TaskBuilding struct {
	Building string     `json:"building" yaml:"building"`
	Label    string     `json:"label" yaml:"label"`
	Units    []TaskUnit `json:"units" yaml:"units"`
}

// TaskPhase groups task buildings by phase.
type TaskPhase struct {
	Phase     string         `json:"phase" yaml:"phase"`
	Label     string         `json:"label" yaml:"label"`
	Buildings []TaskBuilding `json:"buildings" yaml:"buildings"`
}

// TaskGroup collects the tasks of one type due on a day.
type TaskGroup struct {
	Type   TaskType    `json:"type" yaml:"type"`
	Phases []TaskPhase `json:"phases" yaml:"phases"`
	Count  int         `json:"count" yaml:"count"`
}

// TaskDay is the full schedule of tasks due on Date.
type TaskDay struct {
	Date   string      `json:"date" yaml:"date"`
	Groups []TaskGroup `json:"groups" yaml:"groups"`
	Count  int         `json:"count" yaml:"count"`
}
