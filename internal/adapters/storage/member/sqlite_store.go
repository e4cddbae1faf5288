package member

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"feeminton/internal/adapters/storage"
	domain "feeminton/internal/domain/member"
)

const selectMember = "SELECT id, nickname, gender, group_id, member_fee FROM members"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new MemberStore.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a Member by its ID.
// PRE: id > 0
// POST: Returns the entity or an error wrapping storage.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id int) (domain.Member, error) {
	row := s.db.QueryRowContext(ctx, selectMember+" WHERE id = ?", id)
	var entity domain.Member
	err := row.Scan(&entity.ID, &entity.Nickname, &entity.Gender, &entity.GroupID, &entity.MemberFee)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Member{}, fmt.Errorf("member %d: %w", id, storage.ErrNotFound)
	}
	return entity, err
}

// Create inserts a Member and returns its new ID.
// PRE: entity has been validated
// POST: Row inserted
func (s *SQLiteStore) Create(ctx context.Context, entity domain.Member) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO members (nickname, gender, group_id, member_fee) VALUES (?, ?, ?, ?)",
		entity.Nickname, entity.Gender, entity.GroupID, entity.MemberFee,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return int(id), err
}

// List retrieves Members ordered by nickname, ignoring case.
// PRE: filter has valid parameters
// POST: Returns matching entities
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Member, error) {
	query := selectMember
	var args []any
	if filter.GroupID > 0 {
		query += " WHERE group_id = ?"
		args = append(args, filter.GroupID)
	}
	query += " ORDER BY nickname COLLATE NOCASE, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []domain.Member{}
	for rows.Next() {
		var entity domain.Member
		if err := rows.Scan(&entity.ID, &entity.Nickname, &entity.Gender, &entity.GroupID, &entity.MemberFee); err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}
