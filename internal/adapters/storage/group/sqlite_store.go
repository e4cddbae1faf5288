package group

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"feeminton/internal/adapters/storage"
	domain "feeminton/internal/domain/group"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new GroupStore.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a Group by its ID.
// PRE: id > 0
// POST: Returns the entity or an error wrapping storage.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id int) (domain.Group, error) {
	var entity domain.Group
	err := s.db.QueryRowContext(ctx, "SELECT id, name FROM groups WHERE id = ?", id).Scan(&entity.ID, &entity.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Group{}, fmt.Errorf("group %d: %w", id, storage.ErrNotFound)
	}
	return entity, err
}

// Create inserts a Group and returns its new ID.
// PRE: entity has been validated
// POST: Row inserted
func (s *SQLiteStore) Create(ctx context.Context, entity domain.Group) (int, error) {
	res, err := s.db.ExecContext(ctx, "INSERT INTO groups (name) VALUES (?)", entity.Name)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return int(id), err
}

// List retrieves all Groups ordered by ID.
func (s *SQLiteStore) List(ctx context.Context) ([]domain.Group, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM groups ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []domain.Group{}
	for rows.Next() {
		var entity domain.Group
		if err := rows.Scan(&entity.ID, &entity.Name); err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}
