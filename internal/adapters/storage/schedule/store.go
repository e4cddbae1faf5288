package schedule

import (
	"context"

	"feeminton/internal/domain/calendar"
	domain "feeminton/internal/domain/schedule"
)

// Store persists Schedule state together with its attendances.
type Store interface {
	GetByID(ctx context.Context, id int) (domain.Schedule, error)
	Create(ctx context.Context, value domain.Schedule) (int, error)
	Delete(ctx context.Context, id int) error
	List(ctx context.Context, filter ListFilter) ([]domain.Schedule, error)
	CountInMonth(ctx context.Context, groupID int, ym calendar.YearMonth) (int, error)
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	Month   *calendar.YearMonth // nil means every month
	GroupID int                 // 0 means every group
}
