package models

import "strings"

// NVMStatus is the Notice / Vacant / Move-in occupancy classification of a unit.
type NVMStatus string

// NVM tokens, in the priority order they are evaluated.
const (
	NVMMoveIn    NVMStatus = "MOVE IN"
	NVMSMI       NVMStatus = "SMI"
	NVMVacant    NVMStatus = "VACANT"
	NVMNoticeSMI NVMStatus = "NOTICE + SMI"
	NVMNotice    NVMStatus = "NOTICE"
	NVMBlank     NVMStatus = ""
)

// AllNVMStatuses lists every NVM token.
var AllNVMStatuses = []NVMStatus{NVMMoveIn, NVMSMI, NVMVacant, NVMNoticeSMI, NVMNotice, NVMBlank}

// IsVacant reports whether the unit is physically empty (VACANT or SMI).
func (s NVMStatus) IsVacant() bool {
	return s == NVMVacant || s == NVMSMI
}

// IsNotice reports whether the outgoing tenant is still in place with notice given.
func (s NVMStatus) IsNotice() bool {
	return strings.Contains(strings.ToLower(string(s)), "notice")
}

// LifecycleLabel is the coarse make-ready workflow state of a unit.
type LifecycleLabel string

const (
	LifecycleReady    LifecycleLabel = "Ready"
	LifecycleInTurn   LifecycleLabel = "In Turn"
	LifecycleNotReady LifecycleLabel = "Not Ready"
)

// ReadinessPct maps the lifecycle to the progress value shown on unit cards.
func (l LifecycleLabel) ReadinessPct() int {
	switch l {
	case LifecycleReady:
		return 100
	case LifecycleInTurn:
		return 50
	default:
		return 0
	}
}

// TurnLevel buckets a unit's turnaround (or ready-vacancy aging) by days vacant.
type TurnLevel string

// Ready-and-vacant buckets.
const (
	TurnFreshReady TurnLevel = "Fresh Ready"
	TurnIdleReady  TurnLevel = "Idle Ready"
	TurnAgingReady TurnLevel = "Aging Ready"
	TurnStaleReady TurnLevel = "Stale Ready"
)

// Still-turning buckets.
const (
	TurnOnTrack   TurnLevel = "On Track"
	TurnLagging   TurnLevel = "Lagging"
	TurnDelayed   TurnLevel = "Delayed"
	TurnCritical  TurnLevel = "Critical"
	TurnException TurnLevel = "Exception"
)
