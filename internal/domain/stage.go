package domain

import (
	"errors"
	"time"
)

// Stage is the lifecycle state of a Listing.
type Stage string

const (
	StageNew       Stage = "new"
	StageScheduled Stage = "scheduled"
	StageVisited   Stage = "visited"
	StageArchived  Stage = "archived"
)

// Stages is the set of allowed lifecycle stages.
var Stages = []Stage{StageNew, StageScheduled, StageVisited, StageArchived}

// IsValid checks if a stage is recognized.
func (s Stage) IsValid() bool {
	for _, v := range Stages {
		if s == v {
			return true
		}
	}
	return false
}

// StageAction is a user-driven lifecycle operation.
type StageAction string

const (
	ActionSchedule    StageAction = "schedule"
	ActionReschedule  StageAction = "reschedule"
	ActionMarkVisited StageAction = "markVisited"
	ActionCancelVisit StageAction = "cancelVisit"
	ActionArchive     StageAction = "archive"
	ActionRestore     StageAction = "restore"
)

var (
	ErrInvalidTransition = errors.New("Invalid stage transition")
	ErrVisitDateRequired = errors.New("Visit date is required")
)

// StageChange describes the effect of one transition: the new stage plus the
// date fields the transition touches. Fields not named here are untouched.
type StageChange struct {
	To                      Stage
	SetScheduledVisitDate   *time.Time
	ClearScheduledVisitDate bool
	SetVisitedDate          *time.Time
}

// transitions is the full (stage, action) table. Any pair not listed here is
// rejected with ErrInvalidTransition, regardless of what the caller's UI offers.
var transitions = map[Stage]map[StageAction]Stage{
	StageNew: {
		ActionSchedule: StageScheduled,
		ActionArchive:  StageArchived,
	},
	StageScheduled: {
		ActionMarkVisited: StageVisited,
		ActionReschedule:  StageScheduled,
		ActionCancelVisit: StageNew,
		ActionArchive:     StageArchived,
	},
	StageVisited: {
		ActionArchive: StageArchived,
	},
	StageArchived: {
		ActionRestore: StageNew,
	},
}

// dateActions are the actions that require a caller-supplied date.
var dateActions = map[StageAction]bool{
	ActionSchedule:    true,
	ActionReschedule:  true,
	ActionMarkVisited: true,
}

// Transition validates (from, action) against the table and returns the
// resulting change. The date value itself is not sanity-checked; the machine
// only requires that one is present where the transition consumes it.
func Transition(from Stage, action StageAction, date *time.Time) (StageChange, error) {
	row, ok := transitions[from]
	if !ok {
		return StageChange{}, ErrInvalidTransition
	}
	to, ok := row[action]
	if !ok {
		return StageChange{}, ErrInvalidTransition
	}
	if dateActions[action] && date == nil {
		return StageChange{}, ErrVisitDateRequired
	}

	change := StageChange{To: to}
	switch action {
	case ActionSchedule, ActionReschedule:
		change.SetScheduledVisitDate = date
	case ActionMarkVisited:
		// scheduled_visit_date is retained
		change.SetVisitedDate = date
	case ActionCancelVisit:
		change.ClearScheduledVisitDate = true
	}
	// archive and restore move the stage only; dates survive the round trip
	return change, nil
}

// ActionsFrom lists the legal actions from a stage, for clients that want to
// render only the valid buttons.
func ActionsFrom(s Stage) []StageAction {
	row := transitions[s]
	out := make([]StageAction, 0, len(row))
	for _, a := range []StageAction{ActionSchedule, ActionReschedule, ActionMarkVisited, ActionCancelVisit, ActionArchive, ActionRestore} {
		if _, ok := row[a]; ok {
			out = append(out, a)
		}
	}
	return out
}
