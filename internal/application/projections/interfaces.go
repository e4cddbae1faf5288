package projections

import (
	"context"

	"feeminton/internal/domain/calendar"
	"feeminton/internal/domain/group"
	"feeminton/internal/domain/member"
	"feeminton/internal/domain/schedule"
)

// MonthLister lists the schedules of a month.
type MonthLister interface {
	GetSchedulesForMonth(ctx context.Context, ym calendar.YearMonth, groupID int) ([]schedule.Schedule, error)
}

// ScheduleGetter fetches one schedule directly.
type ScheduleGetter interface {
	GetScheduleByID(ctx context.Context, id int) (schedule.Schedule, error)
}

// ScheduleSource is what the schedule resolver needs.
type ScheduleSource interface {
	MonthLister
	ScheduleGetter
}

// MemberSource fetches member details.
type MemberSource interface {
	GetMember(ctx context.Context, id int) (member.Member, error)
}

// GroupSource lists groups.
type GroupSource interface {
	GetGroups(ctx context.Context) ([]group.Group, error)
}
