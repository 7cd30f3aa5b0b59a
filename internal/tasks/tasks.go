// Package tasks selects maintenance tasks due on a day and groups them by
// task type and Phase → Building → Unit.
package tasks

import (
	"strings"
	"time"

	"github.com/stwalsh4118/dmrb/internal/models"
)

// ParseUnitPath splits a composite path like "P-5 / Bld-1 / U-210" into its
// phase, building and unit parts. Malformed paths yield three empty strings.
func ParseUnitPath(path string) (phase, building, unit string) {
	parts := strings.Split(path, "/")
	if len(parts) < 3 {
		return "", "", ""
	}
	phase = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(parts[0]), "P-"))
	building = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(parts[1]), "Bld-"))
	unit = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(parts[2]), "U-"))
	return phase, building, unit
}

// WalkDate is the default schedule day: the day before today.
func WalkDate(today time.Time) time.Time {
	return models.DateOf(today).AddDate(0, 0, -1)
}

// ForDate returns, per task type, the tasks whose due date falls on day.
// Types with no matching task are omitted.
func ForDate(records []models.TaskRecord, day time.Time) map[models.TaskType][]models.TaskRecord {
	d := models.DateOf(day)
	result := make(map[models.TaskType][]models.TaskRecord)

	for _, col := range models.TaskDateColumns {
		for _, rec := range records {
			due, ok := rec.Due[col.Type]
			if !ok || !models.DateOf(due).Equal(d) {
				continue
			}
			result[col.Type] = append(result[col.Type], rec)
		}
	}
	return result
}

// GroupByHierarchy arranges tasks Phase → Building → Unit. Tasks whose path
// does not parse into all three parts are dropped.
func GroupByHierarchy(records []models.TaskRecord) []models.TaskPhase {
	type buildingKey struct{ phase, building string }

	var phaseOrder []string
	buildingOrder := make(map[string][]string)
	units := make(map[buildingKey][]models.TaskUnit)

	for _, rec := range records {
		phase, building, unit := rec.Phase, rec.Building, rec.Unit
		if phase == "" && building == "" && unit == "" {
			phase, building, unit = ParseUnitPath(rec.UnitPath)
		}
		if phase == "" || building == "" || unit == "" {
			continue
		}

		if _, ok := buildingOrder[phase]; !ok {
			phaseOrder = append(phaseOrder, phase)
			buildingOrder[phase] = nil
		}
		key := buildingKey{phase, building}
		if _, ok := units[key]; !ok {
			buildingOrder[phase] = append(buildingOrder[phase], building)
		}
		units[key] = append(units[key], models.TaskUnit{
			Unit:     unit,
			UnitPath: rec.UnitPath,
			Vendor:   orMissing(rec.Vendor),
			Status:   orMissing(rec.Status),
		})
	}

	phases := make([]models.TaskPhase, 0, len(phaseOrder))
	for _, phase := range phaseOrder {
		tp := models.TaskPhase{Phase: phase, Label: "Phase " + phase}
		for _, building := range buildingOrder[phase] {
			tp.Buildings = append(tp.Buildings, models.TaskBuilding{
				Building: building,
				Label:    "Building " + building,
				Units:    units[buildingKey{phase, building}],
			})
		}
		phases = append(phases, tp)
	}
	return phases
}

// Schedule builds the full grouped task listing for day, in task column order.
func Schedule(records []models.TaskRecord, day time.Time) models.TaskDay {
	byType := ForDate(records, day)
	out := models.TaskDay{
		Date:   models.DateOf(day).Format(models.EventDateLayout),
		Groups: []models.TaskGroup{},
	}

	for _, col := range models.TaskDateColumns {
		recs, ok := byType[col.Type]
		if !ok {
			continue
		}
		out.Groups = append(out.Groups, models.TaskGroup{
			Type:   col.Type,
			Phases: GroupByHierarchy(recs),
			Count:  len(recs),
		})
		out.Count += len(recs)
	}
	return out
}

func orMissing(s string) string {
	if strings.TrimSpace(s) == "" {
		return models.MissingValue
	}
	return s
}
