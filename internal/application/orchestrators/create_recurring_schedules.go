package orchestrators

import (
	"context"
	"fmt"
	"log/slog"

	"feeminton/internal/domain/calendar"
	"feeminton/internal/domain/schedule"
)

// CreateRecurringInput carries input for the recurring-create orchestrator.
type CreateRecurringInput struct {
	GroupID  int
	Month    string // "YYYY-MM"
	Time     string // "HH:MM"
	Weekdays []int  // 0 = Sunday .. 6 = Saturday
}

// CreateRecurringDeps holds dependencies for CreateRecurringSchedules.
type CreateRecurringDeps struct {
	Creator ScheduleCreator
}

// CreateRecurringResult reports what the batch did.
type CreateRecurringResult struct {
	Month   calendar.YearMonth
	Planned []calendar.Timestamp
	Created []schedule.Schedule
}

// BatchError reports the create that stopped a batch. Schedules created
// before it stay created.
type BatchError struct {
	At      calendar.Timestamp
	Created int
	Planned int
	Err     error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("Failed to create schedule for %s: %v (%d of %d created)",
		e.At.Parts().DisplayDate(), e.Err, e.Created, e.Planned)
}

// Unwrap exposes the API error.
func (e *BatchError) Unwrap() error {
	return e.Err
}

// ExecuteCreateRecurringSchedules creates one schedule per matching weekday
// of the month. Calls run one after another and the batch stops at the
// first failure.
// PRE: Month, Time, GroupID set and at least one weekday, else *ValidationError
// POST: Result.Created holds every schedule created, also on failure
// INVARIANT: At most one CreateSchedule call is in flight
func ExecuteCreateRecurringSchedules(ctx context.Context, input CreateRecurringInput, deps CreateRecurringDeps) (CreateRecurringResult, error) {
	if input.Month == "" || input.Time == "" || input.GroupID <= 0 {
		return CreateRecurringResult{}, warning("Please fill Month, Time and Group ID.")
	}
	if len(input.Weekdays) == 0 {
		return CreateRecurringResult{}, warning("Please choose at least one day of the week.")
	}
	ym, err := calendar.ParseYearMonth(input.Month)
	if err != nil {
		return CreateRecurringResult{}, warning(fmt.Sprintf("Month %q is not valid.", input.Month))
	}
	planned, err := calendar.EnumerateWeekdays(ym, input.Time, input.Weekdays)
	if err != nil {
		return CreateRecurringResult{}, warning(fmt.Sprintf("Time or weekdays are not valid: %v.", err))
	}

	result := CreateRecurringResult{Month: ym, Planned: planned, Created: []schedule.Schedule{}}
	if len(planned) == 0 {
		return result, &ValidationError{Message: "No matching days in the selected month.", Level: LevelInfo}
	}

	for _, at := range planned {
		if err := ctx.Err(); err != nil {
			return result, &BatchError{At: at, Created: len(result.Created), Planned: len(planned), Err: err}
		}
		created, err := deps.Creator.CreateSchedule(ctx, at, input.GroupID)
		if err != nil {
			slog.Error("schedule_event", "event", "recurring_stopped",
				"group_id", input.GroupID, "at", at.String(),
				"created", len(result.Created), "planned", len(planned), "error", err)
			return result, &BatchError{At: at, Created: len(result.Created), Planned: len(planned), Err: err}
		}
		result.Created = append(result.Created, created)
	}

	slog.Info("schedule_event", "event", "recurring_created", "group_id", input.GroupID, "month", ym.Key(), "count", len(result.Created))
	return result, nil
}
