package attendance

import (
	"context"

	"github.com/shopspring/decimal"

	domain "feeminton/internal/domain/attendance"
	"feeminton/internal/domain/calendar"
)

// Store persists Attendance state.
type Store interface {
	GetByID(ctx context.Context, id int) (domain.Attendance, error)
	SetJoined(ctx context.Context, id int, joined bool, refund decimal.Decimal) (domain.Attendance, error)
	ListBySchedule(ctx context.Context, scheduleID int) ([]domain.Attendance, error)
	RefundTotal(ctx context.Context, memberID int, ym calendar.YearMonth) (decimal.Decimal, error)
}
