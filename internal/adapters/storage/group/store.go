package group

import (
	"context"

	domain "feeminton/internal/domain/group"
)

// Store persists Group state.
type Store interface {
	GetByID(ctx context.Context, id int) (domain.Group, error)
	Create(ctx context.Context, value domain.Group) (int, error)
	List(ctx context.Context) ([]domain.Group, error)
}
