package flow

import "time"

// Step is the current position of a conversation inside a flow. A user with
// no stored state is idle; there is no explicit idle step.
type Step int

const (
	StepTripDestination Step = iota + 1
	StepTripStartDate
	StepTripEndDate
	StepTripNotes
	StepTaskTrip
	StepTaskDescription
	StepCityInput
)

func (s Step) String() string {
	switch s {
	case StepTripDestination:
		return "trip-destination"
	case StepTripStartDate:
		return "trip-start-date"
	case StepTripEndDate:
		return "trip-end-date"
	case StepTripNotes:
		return "trip-notes"
	case StepTaskTrip:
		return "task-trip-selection"
	case StepTaskDescription:
		return "task-description"
	case StepCityInput:
		return "city-input"
	default:
		return "unknown"
	}
}

// Mode distinguishes which terminal action the shared city-input step serves.
// Creation flows carry ModeNone.
type Mode int

const (
	ModeNone Mode = iota
	ModeWeather
	ModeForecast
	ModePOI
)

func (m Mode) String() string {
	switch m {
	case ModeWeather:
		return "weather"
	case ModeForecast:
		return "forecast"
	case ModePOI:
		return "poi"
	default:
		return "none"
	}
}

// FlowKind selects which flow StartFlow begins.
type FlowKind int

const (
	FlowTrip FlowKind = iota
	FlowTask
	FlowCity
)

// Fields holds the values accumulated across accepted inputs. Only the
// fields belonging to steps already passed in the current flow are ever set.
type Fields struct {
	Destination string
	StartDate   time.Time
	EndDate     time.Time
	TripID      string
}

// State is one user's active conversation position. States live only in the
// in-memory store; a process restart silently drops in-flight flows.
type State struct {
	UserID int64
	Step   Step
	Mode   Mode
	Fields Fields
}
