package aggregator

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/stwalsh4118/dmrb/internal/models"
)

// ErrUnknownView is returned for a view name outside models.AllUnitViews.
var ErrUnknownView = errors.New("unknown unit view")

// filterFor returns the membership predicate of a view.
func (a *Aggregator) filterFor(view models.UnitView, today time.Time) (func(models.UnitRecord) bool, error) {
	t := models.DateOf(today)
	windowEnd := t.AddDate(0, 0, a.cfg.MovingWindowDays)

	switch view {
	case models.ViewActive, models.ViewNotReady:
		return func(u models.UnitRecord) bool {
			return u.LifecycleLabel == models.LifecycleNotReady || u.LifecycleLabel == models.LifecycleInTurn
		}, nil
	case models.ViewNotice:
		return func(u models.UnitRecord) bool { return u.NVM == models.NVMNotice }, nil
	case models.ViewVacant:
		return func(u models.UnitRecord) bool { return u.NVM.IsVacant() }, nil
	case models.ViewMoving:
		return func(u models.UnitRecord) bool {
			if u.MoveIn == nil {
				return false
			}
			mi := models.DateOf(*u.MoveIn)
			return !mi.Before(t) && !mi.After(windowEnd)
		}, nil
	case models.ViewReady:
		return func(u models.UnitRecord) bool { return u.LifecycleLabel == models.LifecycleReady }, nil
	case models.ViewAll:
		return func(models.UnitRecord) bool { return true }, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownView, view)
	}
}

// View filters units into one of the named listings and groups the result
// Phase → Building, each building ordered by days vacant descending.
func (a *Aggregator) View(units []models.UnitRecord, view models.UnitView, today time.Time) (models.UnitViewResult, error) {
	keep, err := a.filterFor(view, today)
	if err != nil {
		return models.UnitViewResult{}, err
	}

	selected := make([]models.UnitRecord, 0, len(units))
	for _, u := range units {
		if strings.TrimSpace(u.UnitID) == "" {
			continue
		}
		if keep(u) {
			selected = append(selected, u)
		}
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return daysVacantBefore(selected[i].DaysVacant, selected[j].DaysVacant)
	})

	h, _ := groupByPhaseAndBuilding(selected)
	result := models.UnitViewResult{View: view, Phases: make([]models.ViewPhase, 0, len(h.phases))}

	for _, phase := range h.phases {
		pg := h.groups[phase]
		vp := models.ViewPhase{Key: phase, Label: PhaseLabel(phase)}

		for _, building := range pg.buildings {
			vb := models.ViewBuilding{Key: building, Label: BuildingLabel(building)}
			for _, u := range pg.units[building] {
				if u.NVM.IsVacant() {
					vb.VacantCount++
				} else {
					vb.OccupiedCount++
				}
				vb.Units = append(vb.Units, unitCard(u))
			}
			vp.UnitCount += len(vb.Units)
			vp.Buildings = append(vp.Buildings, vb)
		}

		result.Count += vp.UnitCount
		result.Phases = append(result.Phases, vp)
	}

	a.log.Debug("Built unit view", map[string]interface{}{
		"view":  string(view),
		"count": result.Count,
	})

	return result, nil
}

func unitCard(u models.UnitRecord) models.UnitCard {
	return models.UnitCard{
		UnitID:         strings.TrimSpace(u.UnitID),
		MoveOut:        models.FormatDate(u.MoveOut, models.DisplayDateLayout),
		MoveIn:         models.FormatDate(u.MoveIn, models.DisplayDateLayout),
		DaysVacant:     u.DaysVacant,
		DaysToBeReady:  u.DaysToBeReady,
		NVM:            u.NVM,
		LifecycleLabel: u.LifecycleLabel,
		TurnLevel:      u.TurnLevel,
		Comments:       u.Comments,
		ReadinessPct:   u.LifecycleLabel.ReadinessPct(),
		Blocked:        u.Blocked,
	}
}
