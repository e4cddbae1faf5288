package member

import (
	"context"

	domain "feeminton/internal/domain/member"
)

// Store persists Member state. Billing figures are not stored; the backend
// computes them per request.
type Store interface {
	GetByID(ctx context.Context, id int) (domain.Member, error)
	Create(ctx context.Context, value domain.Member) (int, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Member, error)
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	GroupID int // 0 means every group
}
