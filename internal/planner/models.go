// Package planner decides, for a user and a calendar date, whether the day is
// a training or rest day, which workout applies and which macro targets are in
// effect, and reconciles unresolved past days.
package planner

import (
	"time"

	"cyclecoach/internal/plan"
)

// DayType classifies a calendar day.
type DayType string

const (
	DayTypeTrain DayType = "train"
	DayTypeRest  DayType = "rest"
)

// Status is the lifecycle state of a calendar day. Planned days transition to
// done or skipped, both of which are terminal.
type Status string

const (
	StatusPlanned Status = "planned"
	StatusDone    Status = "done"
	StatusSkipped Status = "skipped"
)

// Day is one resolved calendar day for a user. Macros are snapshotted at
// assignment time so later plan edits do not rewrite history.
type Day struct {
	Date       time.Time
	Type       DayType
	Status     Status
	WorkoutKey *string // set only on training days
	Macros     plan.Macros
}

// Settings holds the per-user planning state.
type Settings struct {
	CycleIndex int
	StartDate  *time.Time
}
