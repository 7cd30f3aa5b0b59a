package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Unit sheet column names after header normalization.
const (
	ColumnUnit          = "Unit"
	ColumnUnitPath      = "Unit id"
	ColumnPhase         = "Phases"
	ColumnBuilding      = "Building"
	ColumnMoveOut       = "Move-out"
	ColumnMoveIn        = "Move-in"
	ColumnStatus        = "Status"
	ColumnComments      = "Comments"
	ColumnDaysVacant    = "DV"
	ColumnDaysToBeReady = "DTBR"
)

// RequiredUnitColumns must all be present on the unit sheet.
var RequiredUnitColumns = []string{ColumnUnit, ColumnPhase, ColumnBuilding, ColumnMoveOut, ColumnMoveIn}

// UnitRecord is one apartment unit row. The derived block is written only by
// the deriver; upstream loaders leave it zero.
type UnitRecord struct {
	MoveOut               *time.Time `json:"move_out" yaml:"move_out"`
	MoveIn                *time.Time `json:"move_in" yaml:"move_in"`
	SuppliedDaysVacant    *int       `json:"-" yaml:"-"`
	SuppliedDaysToBeReady *int       `json:"-" yaml:"-"`
	UnitID                string     `json:"unit_id" yaml:"unit_id"`
	UnitPath              string     `json:"unit_path,omitempty" yaml:"unit_path,omitempty"`
	Phase                 string     `json:"phase" yaml:"phase"`
	Building              string     `json:"building" yaml:"building"`
	Status                string     `json:"status" yaml:"status"`
	Comments              string     `json:"comments,omitempty" yaml:"comments,omitempty"`

	DaysVacant     *int           `json:"days_vacant" yaml:"days_vacant"`
	DaysToBeReady  *int           `json:"days_to_be_ready" yaml:"days_to_be_ready"`
	NVM            NVMStatus      `json:"nvm" yaml:"nvm"`
	LifecycleLabel LifecycleLabel `json:"lifecycle_label" yaml:"lifecycle_label"`
	TurnLevel      TurnLevel      `json:"turn_level" yaml:"turn_level"`
	Blocked        bool           `json:"unit_blocked" yaml:"unit_blocked"`
}

// UnitTable is the raw unit sheet: the header set that was present and the rows.
type UnitTable struct {
	Columns []string
	Rows    []UnitRecord
}

// HasColumn reports whether name was present in the source header.
func (t UnitTable) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

// MissingColumns returns the entries of required absent from the table header.
func (t UnitTable) MissingColumns(required []string) []string {
	var missing []string
	for _, col := range required {
		if !t.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	return missing
}

// ErrSchema is matched by every SchemaError.
var ErrSchema = errors.New("schema validation failed")

// SchemaError reports required columns missing from a sheet.
type SchemaError struct {
	Sheet   string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s sheet missing required columns: %s", e.Sheet, strings.Join(e.Missing, ", "))
}

// Is lets errors.Is(err, ErrSchema) match.
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}
