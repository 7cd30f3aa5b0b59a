package aggregator

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stwalsh4118/dmrb/internal/models"
)

var hundred = decimal.NewFromInt(100)

// percent returns part/whole*100 rounded to one decimal place, or 0 when whole is 0.
func percent(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return decimal.NewFromInt(int64(part)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(whole))).
		Round(1).
		InexactFloat64()
}

// KPIs computes the property-wide headline metrics. Average days vacant is
// taken over every unit with a known value; SLA compliance is measured
// against vacant units only.
func (a *Aggregator) KPIs(units []models.UnitRecord) models.KPISummary {
	k := models.KPISummary{TotalUnits: a.cfg.TotalUnits}
	if k.TotalUnits == 0 {
		k.TotalUnits = len(units)
	}

	daysSum := decimal.Zero
	daysKnown := 0

	for _, u := range units {
		vacant := u.NVM.IsVacant()
		if vacant {
			k.VacantUnits++
			if u.DaysVacant != nil && *u.DaysVacant <= a.cfg.SLADays {
				k.SLACompliant++
			}
		}
		if u.NVM.IsNotice() {
			k.NoticeUnits++
		}
		switch u.LifecycleLabel {
		case models.LifecycleInTurn:
			k.ActiveTurns++
		case models.LifecycleReady:
			k.UnitsReady++
		}
		if u.Blocked {
			k.BlockedUnits++
		}
		if u.DaysVacant != nil {
			daysSum = daysSum.Add(decimal.NewFromInt(int64(*u.DaysVacant)))
			daysKnown++
			if *u.DaysVacant > a.cfg.AtRiskDays && u.LifecycleLabel != models.LifecycleReady {
				k.UnitsAtRisk++
			}
		}
	}

	k.OccupiedUnits = k.TotalUnits - k.VacantUnits
	if k.OccupiedUnits < 0 {
		k.OccupiedUnits = 0
	}
	k.OccupancyPct = percent(k.OccupiedUnits, k.TotalUnits)
	k.VacancyPct = percent(k.VacantUnits, k.TotalUnits)
	k.SLACompliancePct = percent(k.SLACompliant, k.VacantUnits)

	avg := 0.0
	if daysKnown > 0 {
		avg = daysSum.Div(decimal.NewFromInt(int64(daysKnown))).Round(1).InexactFloat64()
		k.AvgDaysVacant = &avg
	}
	k.Health = a.health(avg)

	return k
}

func (a *Aggregator) health(avgDays float64) models.HealthStatus {
	switch {
	case avgDays <= a.cfg.HealthyAvgDays:
		return models.HealthHealthy
	case avgDays <= a.cfg.LaggingAvgDays:
		return models.HealthLagging
	default:
		return models.HealthCritical
	}
}

// MoveActivity lists move-outs on or after today (earliest first) split into
// today and upcoming, plus move-ins scheduled for tomorrow.
func (a *Aggregator) MoveActivity(units []models.UnitRecord, today time.Time) models.MoveActivity {
	t := models.DateOf(today)
	tomorrow := t.AddDate(0, 0, 1)

	activity := models.MoveActivity{
		MoveOutsToday:    []models.MoveEvent{},
		UpcomingMoveOuts: []models.MoveEvent{},
		MoveInsTomorrow:  []models.MoveEvent{},
	}

	type dated struct {
		date  time.Time
		event models.MoveEvent
	}
	var upcoming []dated

	for _, u := range units {
		id := strings.TrimSpace(u.UnitID)
		if id == "" {
			continue
		}
		if u.MoveOut != nil {
			mo := models.DateOf(*u.MoveOut)
			switch {
			case mo.Equal(t):
				activity.MoveOutsToday = append(activity.MoveOutsToday, newMoveEvent(id, models.MoveOutEvent, u.MoveOut))
			case mo.After(t):
				upcoming = append(upcoming, dated{date: mo, event: newMoveEvent(id, models.MoveOutEvent, u.MoveOut)})
			}
		}
		if models.SameDay(u.MoveIn, tomorrow) {
			activity.MoveInsTomorrow = append(activity.MoveInsTomorrow, newMoveEvent(id, models.MoveInEvent, u.MoveIn))
		}
	}

	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].date.Before(upcoming[j].date)
	})
	for _, d := range upcoming {
		activity.UpcomingMoveOuts = append(activity.UpcomingMoveOuts, d.event)
	}

	return activity
}
