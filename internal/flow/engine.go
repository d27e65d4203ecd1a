// Package flow drives the multi-turn guided input sequences: trip creation,
// task creation and the shared city-input step behind the weather, forecast
// and POI queries. Each user has at most one active flow; inputs that fail
// validation re-prompt without touching the stored state.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"travelbot/internal/domain"
	"travelbot/internal/format"
)

// OtherCityChoice is the reply-keyboard sentinel that asks for free-text
// city input instead of one of the suggested trip destinations.
const OtherCityChoice = "Other city..."

const (
	defaultDateFormat  = "02.01.2006"
	defaultResultLimit = 5

	minDestinationLen = 2
)

// TripStore is the persistence surface the engine's completion actions need.
type TripStore interface {
	CreateTrip(ctx context.Context, userID int64, destination string, start, end time.Time, notes string) (domain.Trip, error)
	ListTrips(ctx context.Context, userID int64) ([]domain.Trip, error)
	CreateTask(ctx context.Context, tripID, description string) (domain.Task, error)
}

// Resolver answers weather/forecast/POI queries. It never fails; degraded
// results come back as placeholder records.
type Resolver interface {
	Resolve(ctx context.Context, kind domain.QueryKind, city string, limit int) []domain.Record
}

// Engine is the conversational intake state machine.
type Engine struct {
	store       *Store
	trips       TripStore
	resolver    Resolver
	dateFormat  string
	resultLimit int
	logger      *slog.Logger
}

func NewEngine(store *Store, trips TripStore, resolver Resolver, dateFormat string, resultLimit int, logger *slog.Logger) (*Engine, error) {
	if store == nil {
		return nil, errors.New("flow: store must not be nil")
	}
	if trips == nil {
		return nil, errors.New("flow: trip store must not be nil")
	}
	if resolver == nil {
		return nil, errors.New("flow: resolver must not be nil")
	}
	if strings.TrimSpace(dateFormat) == "" {
		dateFormat = defaultDateFormat
	}
	if resultLimit <= 0 {
		resultLimit = defaultResultLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:       store,
		trips:       trips,
		resolver:    resolver,
		dateFormat:  dateFormat,
		resultLimit: resultLimit,
		logger:      logger,
	}, nil
}

// StartFlow begins a flow for the user, replacing any flow already in
// progress. For FlowCity the mode selects the terminal query action.
func (e *Engine) StartFlow(ctx context.Context, userID int64, kind FlowKind, mode Mode) (domain.Outbound, error) {
	switch kind {
	case FlowTrip:
		e.store.Set(userID, State{Step: StepTripDestination})
		return domain.Outbound{Text: "🏝 Let's plan a new trip!\n\nEnter the destination (city or country):"}, nil

	case FlowTask:
		trips, err := e.trips.ListTrips(ctx, userID)
		if err != nil {
			return domain.Outbound{}, newError(ErrorStorage, "list_trips", err)
		}
		if len(trips) == 0 {
			return domain.Outbound{Text: "You have no trips yet. Create one with /new_trip."}, nil
		}
		e.store.Set(userID, State{Step: StepTaskTrip})
		return domain.Outbound{
			Text:    "Select a trip for the task:",
			Choices: lo.Map(trips, func(t domain.Trip, _ int) string { return format.TripLabel(t) }),
		}, nil

	case FlowCity:
		if mode == ModeNone {
			return domain.Outbound{}, newError(ErrorInvalidMode, "city_flow_requires_mode", nil)
		}
		choices := e.cityChoices(ctx, userID)
		e.store.Set(userID, State{Step: StepCityInput, Mode: mode})
		return domain.Outbound{
			Text:    "Select a city from your trips or type a name:",
			Choices: choices,
		}, nil

	default:
		return domain.Outbound{}, newError(ErrorInvalidMode, "unknown_flow_kind", nil)
	}
}

// HandleText feeds one user turn into the active flow. The second return
// value is false when the user has no active flow; the input then falls
// through to command handling.
func (e *Engine) HandleText(ctx context.Context, userID int64, text string) (domain.Outbound, bool) {
	st, ok := e.store.Get(userID)
	if !ok {
		return domain.Outbound{}, false
	}

	input := strings.TrimSpace(text)
	switch st.Step {
	case StepTripDestination:
		return e.handleDestination(userID, st, input), true
	case StepTripStartDate:
		return e.handleStartDate(userID, st, input), true
	case StepTripEndDate:
		return e.handleEndDate(userID, st, input), true
	case StepTripNotes:
		return e.completeTrip(ctx, userID, st, input), true
	case StepTaskTrip:
		return e.handleTaskTrip(ctx, userID, st, input), true
	case StepTaskDescription:
		return e.completeTask(ctx, userID, st, input), true
	case StepCityInput:
		return e.completeCityQuery(ctx, userID, st, input), true
	default:
		e.logger.Warn("conversation in unknown step, clearing", "user", userID, "step", int(st.Step))
		e.store.Clear(userID)
		return domain.Outbound{}, false
	}
}

// Cancel unconditionally clears any in-flight flow. It is the only
// transition not gated by per-state validation.
func (e *Engine) Cancel(userID int64) domain.Outbound {
	if _, ok := e.store.Get(userID); !ok {
		return domain.Outbound{Text: "Nothing to cancel."}
	}
	e.store.Clear(userID)
	return domain.Outbound{Text: "❌ Action cancelled."}
}

func (e *Engine) handleDestination(userID int64, st State, input string) domain.Outbound {
	if len([]rune(input)) < minDestinationLen {
		return domain.Outbound{Text: fmt.Sprintf("The destination must be at least %d characters long.", minDestinationLen)}
	}
	st.Fields.Destination = input
	st.Step = StepTripStartDate
	e.store.Set(userID, st)
	return domain.Outbound{Text: "📅 Enter the start date (" + e.dateHint() + "):"}
}

func (e *Engine) handleStartDate(userID int64, st State, input string) domain.Outbound {
	date, err := time.Parse(e.dateFormat, input)
	if err != nil {
		return e.badDate()
	}
	st.Fields.StartDate = date
	st.Step = StepTripEndDate
	e.store.Set(userID, st)
	return domain.Outbound{Text: "📅 Enter the end date (" + e.dateHint() + "):"}
}

func (e *Engine) handleEndDate(userID int64, st State, input string) domain.Outbound {
	date, err := time.Parse(e.dateFormat, input)
	if err != nil {
		return e.badDate()
	}
	if date.Before(st.Fields.StartDate) {
		return domain.Outbound{Text: "❌ The end date must not be before the start date."}
	}
	st.Fields.EndDate = date
	st.Step = StepTripNotes
	e.store.Set(userID, st)
	return domain.Outbound{Text: "📝 Any notes for the trip? (send '-' for none)"}
}

func (e *Engine) completeTrip(ctx context.Context, userID int64, st State, input string) domain.Outbound {
	notes := input
	if notes == "-" {
		notes = ""
	}

	trip, err := e.trips.CreateTrip(ctx, userID, st.Fields.Destination, st.Fields.StartDate, st.Fields.EndDate, notes)
	if err != nil {
		// State is kept so the user can resend the notes once storage recovers.
		e.logger.Error("create trip failed", "user", userID, "err", err)
		return domain.Outbound{Text: "⚠️ Could not save the trip. Please try again."}
	}

	e.store.Clear(userID)
	return domain.Outbound{Text: format.TripCreated(trip, e.dateFormat)}
}

func (e *Engine) handleTaskTrip(ctx context.Context, userID int64, st State, input string) domain.Outbound {
	tripID := strings.TrimSpace(strings.SplitN(input, ":", 2)[0])
	if tripID == "" || !e.tripExists(ctx, userID, tripID) {
		return domain.Outbound{Text: "Please select a trip from the list."}
	}
	st.Fields.TripID = tripID
	st.Step = StepTaskDescription
	e.store.Set(userID, st)
	return domain.Outbound{Text: "Enter the task description:"}
}

func (e *Engine) completeTask(ctx context.Context, userID int64, st State, input string) domain.Outbound {
	if input == "" {
		return domain.Outbound{Text: "The description must not be empty."}
	}

	task, err := e.trips.CreateTask(ctx, st.Fields.TripID, input)
	if err != nil {
		e.logger.Error("create task failed", "user", userID, "trip", st.Fields.TripID, "err", err)
		return domain.Outbound{Text: "⚠️ Could not save the task. Please try again."}
	}

	e.store.Clear(userID)
	return domain.Outbound{Text: fmt.Sprintf("✅ Task added: %s", task.Description)}
}

func (e *Engine) completeCityQuery(ctx context.Context, userID int64, st State, input string) domain.Outbound {
	if input == OtherCityChoice {
		// Sentinel: re-prompt for free text, state and mode unchanged.
		return domain.Outbound{Text: "Enter the city name:"}
	}
	if input == "" {
		return domain.Outbound{Text: "Please enter a city name."}
	}

	out := e.runCityQuery(ctx, st.Mode, input)
	e.store.Clear(userID)
	return out
}

func (e *Engine) runCityQuery(ctx context.Context, mode Mode, city string) domain.Outbound {
	switch mode {
	case ModeWeather:
		records := e.resolver.Resolve(ctx, domain.KindWeather, city, 1)
		return domain.Outbound{Text: format.Weather(city, records)}
	case ModeForecast:
		records := e.resolver.Resolve(ctx, domain.KindForecast, city, e.resultLimit)
		return domain.Outbound{Text: format.Forecast(city, records, e.dateFormat)}
	case ModePOI:
		records := e.resolver.Resolve(ctx, domain.KindPOI, city, e.resultLimit)
		return domain.Outbound{Text: format.POI(city, records)}
	default:
		// Unreachable: StartFlow rejects ModeNone for city flows.
		return domain.Outbound{Text: "⚠️ Something went wrong. Please start over."}
	}
}

func (e *Engine) tripExists(ctx context.Context, userID int64, tripID string) bool {
	trips, err := e.trips.ListTrips(ctx, userID)
	if err != nil {
		e.logger.Error("list trips failed during selection", "user", userID, "err", err)
		return false
	}
	return lo.SomeBy(trips, func(t domain.Trip) bool { return t.ID == tripID })
}

func (e *Engine) cityChoices(ctx context.Context, userID int64) []string {
	trips, err := e.trips.ListTrips(ctx, userID)
	if err != nil {
		// Suggestions are a convenience; free text still works.
		e.logger.Warn("list trips failed, starting city flow without suggestions", "user", userID, "err", err)
		return []string{OtherCityChoice}
	}
	cities := lo.Uniq(lo.Map(trips, func(t domain.Trip, _ int) string { return t.Destination }))
	sort.Strings(cities)
	return append(cities, OtherCityChoice)
}

func (e *Engine) dateHint() string {
	return "e.g. " + time.Now().Format(e.dateFormat)
}

func (e *Engine) badDate() domain.Outbound {
	return domain.Outbound{Text: "Invalid date. Use the format " + e.dateHint() + "."}
}
