package orchestrators

import (
	"context"
	"fmt"
	"log/slog"

	"feeminton/internal/domain/calendar"
	"feeminton/internal/domain/schedule"
)

// ScheduleCreator posts one schedule to the API.
type ScheduleCreator interface {
	CreateSchedule(ctx context.Context, at calendar.Timestamp, groupID int) (schedule.Schedule, error)
}

// CreateScheduleInput carries input for the single-create orchestrator.
type CreateScheduleInput struct {
	GroupID       int
	DateTimeLocal string // <input type="datetime-local"> value
}

// CreateScheduleDeps holds dependencies for CreateSchedule.
type CreateScheduleDeps struct {
	Creator ScheduleCreator
}

// CreateError wraps an API failure while creating a schedule.
type CreateError struct {
	At  calendar.Timestamp
	Err error
}

func (e *CreateError) Error() string {
	return "Failed to create schedule: " + e.Err.Error()
}

// Unwrap exposes the API error.
func (e *CreateError) Unwrap() error {
	return e.Err
}

// ExecuteCreateSchedule creates one schedule from a datetime-local value.
// PRE: GroupID > 0 and DateTimeLocal is set, else *ValidationError
// POST: The schedule exists on the server; its naive timestamp has zero seconds
func ExecuteCreateSchedule(ctx context.Context, input CreateScheduleInput, deps CreateScheduleDeps) (schedule.Schedule, error) {
	if input.DateTimeLocal == "" || input.GroupID <= 0 {
		return schedule.Schedule{}, warning("Please fill Date & Time and Group ID.")
	}
	at, err := calendar.FromDateTimeLocal(input.DateTimeLocal)
	if err != nil {
		return schedule.Schedule{}, warning(fmt.Sprintf("Date & Time %q is not valid.", input.DateTimeLocal))
	}
	at = calendar.NewTimestamp(at.Year(), int(at.Month()), at.Day(), at.Hour(), at.Minute())

	created, err := deps.Creator.CreateSchedule(ctx, at, input.GroupID)
	if err != nil {
		slog.Error("schedule_event", "event", "create_failed", "group_id", input.GroupID, "at", at.String(), "error", err)
		return schedule.Schedule{}, &CreateError{At: at, Err: err}
	}
	slog.Info("schedule_event", "event", "created", "schedule_id", created.ID, "group_id", input.GroupID, "at", at.String())
	return created, nil
}
