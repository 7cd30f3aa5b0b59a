package models

import "time"

// TaskType names one kind of make-ready task tracked on the task sheet.
type TaskType string

const (
	TaskInspections TaskType = "Inspections"
	TaskBids        TaskType = "Bids"
	TaskPaint       TaskType = "Paint"
	TaskMakeReady   TaskType = "Make Ready"
	TaskHousekeep   TaskType = "Housekeeping"
	TaskFlooring    TaskType = "Flooring/Carpet"
	TaskOther       TaskType = "Other Task"
	TaskOther2      TaskType = "Other Task 2"
	TaskFinalWalk   TaskType = "Final Walk"
)

// TaskDateColumn pairs a task type with the task sheet column holding its due date.
type TaskDateColumn struct {
	Type   TaskType
	Column string
}

// TaskDateColumns is ordered the way task groups are presented.
var TaskDateColumns = []TaskDateColumn{
	{TaskInspections, "Inspection Date"},
	{TaskBids, "Bids Date"},
	{TaskPaint, "Paint Date"},
	{TaskMakeReady, "MR date"},
	{TaskHousekeep, "HK Date"},
	{TaskFlooring, "F/C Date"},
	{TaskOther, "Other Task Date"},
	{TaskOther2, "O/T Date"},
	{TaskFinalWalk, "Final walk Date"},
}

// Task sheet column names.
const (
	ColumnTaskUnitPath = "Unit ID"
	ColumnTaskVendor   = "Vendor / Employee"
	ColumnTaskStatus   = "Task Status"
)

// TaskRecord is one row of the task sheet. Phase, Building and Unit are
// parsed from UnitPath and empty when the path is malformed.
type TaskRecord struct {
	Due      map[TaskType]time.Time `json:"-" yaml:"-"`
	UnitPath string                 `json:"unit_id" yaml:"unit_id"`
	Phase    string                 `json:"phase" yaml:"phase"`
	Building string                 `json:"building" yaml:"building"`
	Unit     string                 `json:"unit" yaml:"unit"`
	Vendor   string                 `json:"vendor" yaml:"vendor"`
	Status   string                 `json:"status" yaml:"status"`
}
