// Package deriver computes the per-unit classification fields (days vacant,
// days to ready, NVM status, lifecycle label, turn level and blocked flag)
// from raw unit rows. Every function takes "today" explicitly and never reads
// the clock, so results are deterministic for a given reference date.
package deriver

import (
	"strings"
	"time"

	"github.com/stwalsh4118/dmrb/internal/logger"
	"github.com/stwalsh4118/dmrb/internal/models"
)

// UnitSheet is the sheet name used in schema errors.
const UnitSheet = "Unit"

// Deriver applies a fixed rule set to unit records. It holds no mutable state
// and is safe for concurrent use.
type Deriver struct {
	rules *Rules
	log   *logger.Logger
}

// New creates a Deriver. A nil rules argument selects DefaultRules.
func New(rules *Rules, log *logger.Logger) *Deriver {
	if rules == nil {
		rules = DefaultRules()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Deriver{rules: rules, log: log}
}

// Rules returns the rule set in use.
func (d *Deriver) Rules() *Rules {
	return d.rules
}

// DaysVacant is today − move-out in days; negative when the move-out is still
// ahead, nil when there is no move-out date.
func (d *Deriver) DaysVacant(rec models.UnitRecord, today time.Time) *int {
	t := models.DateOf(today)
	return models.DaysBetween(&t, rec.MoveOut)
}

// DaysToBeReady is move-in − today in days; positive while the move-in is
// still ahead, nil when there is no move-in date.
func (d *Deriver) DaysToBeReady(rec models.UnitRecord, today time.Time) *int {
	t := models.DateOf(today)
	return models.DaysBetween(rec.MoveIn, &t)
}

// NVMStatus classifies the unit's occupancy transition. Checks run in fixed
// priority order and the first match wins. A date equal to today counts as
// already happened.
func (d *Deriver) NVMStatus(rec models.UnitRecord, today time.Time) models.NVMStatus {
	t := models.DateOf(today)

	var movedOut, moveOutAhead, movedIn, moveInAhead bool
	if rec.MoveOut != nil {
		mo := models.DateOf(*rec.MoveOut)
		movedOut = !mo.After(t)
		moveOutAhead = !movedOut
	}
	if rec.MoveIn != nil {
		mi := models.DateOf(*rec.MoveIn)
		movedIn = !mi.After(t)
		moveInAhead = !movedIn
	}

	switch {
	case movedIn:
		return models.NVMMoveIn
	case movedOut && moveInAhead:
		return models.NVMSMI
	case movedOut && rec.MoveIn == nil:
		return models.NVMVacant
	case moveOutAhead && moveInAhead:
		return models.NVMNoticeSMI
	case moveOutAhead && rec.MoveIn == nil:
		return models.NVMNotice
	default:
		return models.NVMBlank
	}
}

// LifecycleLabel maps the free-text work status through the configured
// synonym table. Unmapped or blank text is Not Ready.
func (d *Deriver) LifecycleLabel(rec models.UnitRecord) models.LifecycleLabel {
	if label, ok := d.rules.lifecycle[normalizeStatus(rec.Status)]; ok {
		return label
	}
	return models.LifecycleNotReady
}

// TurnLevel buckets days vacant. Ready vacant units age through the ready
// buckets; everything else is measured against the turn SLA. Unknown days
// count as zero.
func (d *Deriver) TurnLevel(label models.LifecycleLabel, nvm models.NVMStatus, daysVacant *int) models.TurnLevel {
	days := 0
	if daysVacant != nil {
		days = *daysVacant
	}
	th := d.rules.thresholds

	if label == models.LifecycleReady && nvm == models.NVMVacant {
		switch {
		case days <= th.Fresh:
			return models.TurnFreshReady
		case days <= th.Idle:
			return models.TurnIdleReady
		case days <= th.Aging:
			return models.TurnAgingReady
		default:
			return models.TurnStaleReady
		}
	}

	switch {
	case days <= th.Fresh:
		return models.TurnOnTrack
	case days <= th.Idle:
		return models.TurnLagging
	case days <= th.Aging:
		return models.TurnDelayed
	case days <= th.Critical:
		return models.TurnCritical
	default:
		return models.TurnException
	}
}

// UnitBlocked reports whether the comments mention any blocked keyword.
func (d *Deriver) UnitBlocked(rec models.UnitRecord) bool {
	comments := strings.ToLower(rec.Comments)
	if comments == "" {
		return false
	}
	for _, kw := range d.rules.blockedKeywords {
		if kw != "" && strings.Contains(comments, kw) {
			return true
		}
	}
	return false
}

// Derive returns a copy of rec with every derived field populated. Supplied
// day counts are used when present; the classification fields are always
// recomputed.
func (d *Deriver) Derive(rec models.UnitRecord, today time.Time) models.UnitRecord {
	out := rec

	if rec.SuppliedDaysVacant != nil {
		out.DaysVacant = models.IntPtr(*rec.SuppliedDaysVacant)
	} else {
		out.DaysVacant = d.DaysVacant(rec, today)
	}

	if rec.SuppliedDaysToBeReady != nil {
		v := *rec.SuppliedDaysToBeReady
		if d.rules.invertSuppliedDaysToReady {
			v = -v
		}
		out.DaysToBeReady = &v
	} else {
		out.DaysToBeReady = d.DaysToBeReady(rec, today)
	}

	out.NVM = d.NVMStatus(rec, today)
	out.LifecycleLabel = d.LifecycleLabel(rec)
	out.TurnLevel = d.TurnLevel(out.LifecycleLabel, out.NVM, out.DaysVacant)
	out.Blocked = d.UnitBlocked(rec)

	return out
}

// DeriveAll derives every row of table into a new slice. The input rows are
// never modified. Missing required columns fail with a *models.SchemaError;
// an empty table yields an empty result and a warning.
func (d *Deriver) DeriveAll(table models.UnitTable, today time.Time) ([]models.UnitRecord, error) {
	if missing := table.MissingColumns(models.RequiredUnitColumns); len(missing) > 0 {
		d.log.Error("Unit sheet failed schema validation", models.ErrSchema, map[string]interface{}{
			"missing_columns": missing,
		})
		return nil, &models.SchemaError{Sheet: UnitSheet, Missing: missing}
	}

	if len(table.Rows) == 0 {
		d.log.Warn("Unit table is empty, nothing to derive", nil)
		return []models.UnitRecord{}, nil
	}

	out := make([]models.UnitRecord, len(table.Rows))
	var unknownDays int
	for i, rec := range table.Rows {
		out[i] = d.Derive(rec, today)
		if out[i].DaysVacant == nil {
			unknownDays++
		}
	}

	d.log.Debug("Derived unit fields", map[string]interface{}{
		"units":               len(out),
		"unknown_days_vacant": unknownDays,
		"today":               models.DateOf(today).Format(models.EventDateLayout),
	})

	return out, nil
}
