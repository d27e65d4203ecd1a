// Package bot dispatches inbound chat events: slash commands, free text fed
// to the flow engine, and structured callback actions from inline buttons.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"travelbot/internal/domain"
	"travelbot/internal/flow"
	"travelbot/internal/format"
)

const defaultResultLimit = 5

// Storage is the persistence surface the router needs on top of what the
// flow engine already consumes.
type Storage interface {
	flow.TripStore
	EnsureUser(ctx context.Context, userID int64, username, firstName string) (domain.User, error)
	GetTrip(ctx context.Context, userID int64, tripID string) (domain.Trip, bool, error)
	DeleteTrip(ctx context.Context, userID int64, tripID string) (bool, error)
	ListTasks(ctx context.Context, tripID string) ([]domain.Task, error)
	ToggleTaskComplete(ctx context.Context, tripID, taskID string) (bool, error)
	DeleteTask(ctx context.Context, tripID, taskID string) (bool, error)
}

// Engine is the flow engine surface the router depends on.
type Engine interface {
	StartFlow(ctx context.Context, userID int64, kind flow.FlowKind, mode flow.Mode) (domain.Outbound, error)
	HandleText(ctx context.Context, userID int64, text string) (domain.Outbound, bool)
	Cancel(userID int64) domain.Outbound
}

// Router routes one inbound event to a reply.
type Router struct {
	engine      Engine
	storage     Storage
	resolver    flow.Resolver
	dateFormat  string
	resultLimit int
	logger      *slog.Logger
}

func NewRouter(engine Engine, storage Storage, resolver flow.Resolver, dateFormat string, resultLimit int, logger *slog.Logger) (*Router, error) {
	if engine == nil {
		return nil, errors.New("bot: engine must not be nil")
	}
	if storage == nil {
		return nil, errors.New("bot: storage must not be nil")
	}
	if resolver == nil {
		return nil, errors.New("bot: resolver must not be nil")
	}
	if strings.TrimSpace(dateFormat) == "" {
		dateFormat = "02.01.2006"
	}
	if resultLimit <= 0 {
		resultLimit = defaultResultLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		engine:      engine,
		storage:     storage,
		resolver:    resolver,
		dateFormat:  dateFormat,
		resultLimit: resultLimit,
		logger:      logger,
	}, nil
}

// HandleMessage processes one text message. Commands always win, so /cancel
// works from inside any flow; everything else goes to the flow engine first.
// Idle free text is ignored (empty Outbound).
func (r *Router) HandleMessage(ctx context.Context, userID int64, username, firstName, text string) domain.Outbound {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "/") {
		return r.handleCommand(ctx, userID, username, firstName, text)
	}

	if out, handled := r.engine.HandleText(ctx, userID, text); handled {
		return out
	}
	return domain.Outbound{}
}

func (r *Router) handleCommand(ctx context.Context, userID int64, username, firstName, text string) domain.Outbound {
	command, arg := splitCommand(text)

	switch command {
	case "/start":
		if _, err := r.storage.EnsureUser(ctx, userID, username, firstName); err != nil {
			r.logger.Error("user registration failed", "user", userID, "err", err)
		}
		return domain.Outbound{Text: welcomeText}
	case "/help":
		return domain.Outbound{Text: helpText}
	case "/cancel":
		return r.engine.Cancel(userID)
	case "/new_trip":
		return r.startFlow(ctx, userID, flow.FlowTrip, flow.ModeNone)
	case "/my_trips":
		return r.listTrips(ctx, userID)
	case "/add_task":
		return r.startFlow(ctx, userID, flow.FlowTask, flow.ModeNone)
	case "/tasks":
		return r.listAllTasks(ctx, userID)
	case "/weather":
		return r.cityQuery(ctx, userID, flow.ModeWeather, arg)
	case "/forecast":
		return r.cityQuery(ctx, userID, flow.ModeForecast, arg)
	case "/top_location":
		return r.cityQuery(ctx, userID, flow.ModePOI, arg)
	default:
		return domain.Outbound{Text: "Unknown command. Try /help."}
	}
}

// HandleCallback processes a structured action token of the form
// "entity:action:id" (task tokens carry "tripID:taskID" as the id part).
func (r *Router) HandleCallback(ctx context.Context, userID int64, data string) domain.Outbound {
	parts := strings.SplitN(strings.TrimSpace(data), ":", 3)
	if len(parts) != 3 {
		return domain.Outbound{Text: "Could not process this action."}
	}
	entity, action, id := parts[0], parts[1], parts[2]

	switch entity {
	case "trip":
		return r.tripAction(ctx, userID, action, id)
	case "task":
		return r.taskAction(ctx, userID, action, id)
	default:
		return domain.Outbound{Text: "Could not process this action."}
	}
}

func (r *Router) startFlow(ctx context.Context, userID int64, kind flow.FlowKind, mode flow.Mode) domain.Outbound {
	out, err := r.engine.StartFlow(ctx, userID, kind, mode)
	if err != nil {
		r.logger.Error("start flow failed", "user", userID, "err", err)
		return domain.Outbound{Text: "⚠️ Something went wrong. Please try again later."}
	}
	return out
}

// cityQuery serves "/weather Lisbon" directly and starts the city-input flow
// when the command has no argument.
func (r *Router) cityQuery(ctx context.Context, userID int64, mode flow.Mode, city string) domain.Outbound {
	if city == "" {
		return r.startFlow(ctx, userID, flow.FlowCity, mode)
	}

	switch mode {
	case flow.ModeWeather:
		return domain.Outbound{Text: format.Weather(city, r.resolver.Resolve(ctx, domain.KindWeather, city, 1))}
	case flow.ModeForecast:
		return domain.Outbound{Text: format.Forecast(city, r.resolver.Resolve(ctx, domain.KindForecast, city, r.resultLimit), r.dateFormat)}
	default:
		return domain.Outbound{Text: format.POI(city, r.resolver.Resolve(ctx, domain.KindPOI, city, r.resultLimit))}
	}
}

func (r *Router) listTrips(ctx context.Context, userID int64) domain.Outbound {
	trips, err := r.storage.ListTrips(ctx, userID)
	if err != nil {
		r.logger.Error("list trips failed", "user", userID, "err", err)
		return domain.Outbound{Text: "⚠️ Could not load your trips. Please try again later."}
	}
	if len(trips) == 0 {
		return domain.Outbound{Text: "You have no trips yet. Create one with /new_trip."}
	}

	actions := make([]domain.Action, 0, len(trips)*2)
	for _, t := range trips {
		actions = append(actions,
			domain.Action{Label: "📍 " + t.Destination, Data: "trip:view:" + t.ID},
			domain.Action{Label: "📋 Tasks", Data: "trip:tasks:" + t.ID},
			domain.Action{Label: "🗑 Delete", Data: "trip:delete:" + t.ID},
		)
	}
	return domain.Outbound{
		Text:    format.TripList(trips, r.dateFormat),
		Actions: actions,
	}
}

func (r *Router) listAllTasks(ctx context.Context, userID int64) domain.Outbound {
	trips, err := r.storage.ListTrips(ctx, userID)
	if err != nil {
		r.logger.Error("list trips failed", "user", userID, "err", err)
		return domain.Outbound{Text: "⚠️ Could not load your tasks. Please try again later."}
	}
	if len(trips) == 0 {
		return domain.Outbound{Text: "You have no trips yet. Create one with /new_trip."}
	}

	var b strings.Builder
	for _, t := range trips {
		tasks, err := r.storage.ListTasks(ctx, t.ID)
		if err != nil {
			r.logger.Error("list tasks failed", "trip", t.ID, "err", err)
			continue
		}
		if len(tasks) == 0 {
			continue
		}
		b.WriteString(format.TaskList(t.Destination, tasks))
		b.WriteString("\n\n")
	}
	if b.Len() == 0 {
		return domain.Outbound{Text: "You have no tasks yet. Add one with /add_task."}
	}
	return domain.Outbound{Text: strings.TrimRight(b.String(), "\n")}
}

func (r *Router) tripAction(ctx context.Context, userID int64, action, tripID string) domain.Outbound {
	switch action {
	case "view":
		trip, found, err := r.storage.GetTrip(ctx, userID, tripID)
		if err != nil {
			r.logger.Error("get trip failed", "trip", tripID, "err", err)
			return domain.Outbound{Text: "⚠️ Could not load the trip."}
		}
		if !found {
			return domain.Outbound{Text: "Trip not found."}
		}
		return domain.Outbound{Text: tripDetails(trip, r.dateFormat)}

	case "tasks":
		trip, found, err := r.storage.GetTrip(ctx, userID, tripID)
		if err != nil {
			r.logger.Error("get trip failed", "trip", tripID, "err", err)
			return domain.Outbound{Text: "⚠️ Could not load the trip."}
		}
		if !found {
			return domain.Outbound{Text: "Trip not found."}
		}
		tasks, err := r.storage.ListTasks(ctx, tripID)
		if err != nil {
			r.logger.Error("list tasks failed", "trip", tripID, "err", err)
			return domain.Outbound{Text: "⚠️ Could not load the tasks."}
		}
		actions := make([]domain.Action, 0, len(tasks)*2)
		for _, task := range tasks {
			status := "⬜"
			if task.Completed {
				status = "✅"
			}
			actions = append(actions,
				domain.Action{Label: status + " " + task.Description, Data: "task:toggle:" + tripID + ":" + task.ID},
				domain.Action{Label: "🗑", Data: "task:delete:" + tripID + ":" + task.ID},
			)
		}
		return domain.Outbound{Text: format.TaskList(trip.Destination, tasks), Actions: actions}

	case "delete":
		deleted, err := r.storage.DeleteTrip(ctx, userID, tripID)
		if err != nil {
			r.logger.Error("delete trip failed", "trip", tripID, "err", err)
			return domain.Outbound{Text: "⚠️ Could not delete the trip."}
		}
		if !deleted {
			return domain.Outbound{Text: "Trip not found."}
		}
		return domain.Outbound{Text: "🗑 Trip deleted."}

	default:
		return domain.Outbound{Text: "Could not process this action."}
	}
}

func (r *Router) taskAction(ctx context.Context, _ int64, action, id string) domain.Outbound {
	parts := strings.SplitN(id, ":", 2)
	if len(parts) != 2 {
		return domain.Outbound{Text: "Could not process this action."}
	}
	tripID, taskID := parts[0], parts[1]

	switch action {
	case "toggle":
		toggled, err := r.storage.ToggleTaskComplete(ctx, tripID, taskID)
		if err != nil {
			r.logger.Error("toggle task failed", "task", taskID, "err", err)
			return domain.Outbound{Text: "⚠️ Could not update the task."}
		}
		if !toggled {
			return domain.Outbound{Text: "Task not found."}
		}
		return domain.Outbound{Text: "Task updated."}

	case "delete":
		deleted, err := r.storage.DeleteTask(ctx, tripID, taskID)
		if err != nil {
			r.logger.Error("delete task failed", "task", taskID, "err", err)
			return domain.Outbound{Text: "⚠️ Could not delete the task."}
		}
		if !deleted {
			return domain.Outbound{Text: "Task not found."}
		}
		return domain.Outbound{Text: "🗑 Task deleted."}

	default:
		return domain.Outbound{Text: "Could not process this action."}
	}
}

func tripDetails(t domain.Trip, dateFormat string) string {
	notes := t.Notes
	if notes == "" {
		notes = "none"
	}
	return fmt.Sprintf(
		"📍 %s\n📅 %s - %s\n📝 Notes: %s",
		t.Destination,
		t.StartDate.Format(dateFormat),
		t.EndDate.Format(dateFormat),
		notes,
	)
}

func splitCommand(text string) (command, arg string) {
	parts := strings.SplitN(text, " ", 2)
	command = parts[0]
	// Telegram appends the bot mention in group chats: "/weather@TravelBot".
	if at := strings.IndexByte(command, '@'); at > 0 {
		command = command[:at]
	}
	if len(parts) == 2 {
		arg = strings.TrimSpace(parts[1])
	}
	return command, arg
}
