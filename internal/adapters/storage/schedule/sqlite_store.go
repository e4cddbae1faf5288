package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"feeminton/internal/adapters/storage"
	attendanceStore "feeminton/internal/adapters/storage/attendance"
	domainAttendance "feeminton/internal/domain/attendance"
	"feeminton/internal/domain/calendar"
	domain "feeminton/internal/domain/schedule"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new ScheduleStore.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a Schedule and its attendances.
// PRE: id > 0
// POST: Returns the entity or an error wrapping storage.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id int) (domain.Schedule, error) {
	var entity domain.Schedule
	err := s.db.QueryRowContext(ctx, "SELECT id, schedule_date, group_id FROM schedules WHERE id = ?", id).
		Scan(&entity.ID, &entity.ScheduleDate, &entity.GroupID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Schedule{}, fmt.Errorf("schedule %d: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return domain.Schedule{}, err
	}

	byID, err := s.attendances(ctx, " WHERE a.schedule_id = ?", id)
	if err != nil {
		return domain.Schedule{}, err
	}
	entity.Attendances = nonNil(byID[id])
	return entity, nil
}

// Create inserts a Schedule and one joined attendance, refund 0, for every
// member of its group, in one transaction.
// PRE: entity has been validated
// POST: Returns the new schedule ID
func (s *SQLiteStore) Create(ctx context.Context, entity domain.Schedule) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "INSERT INTO schedules (schedule_date, group_id) VALUES (?, ?)", entity.ScheduleDate, entity.GroupID)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO attendance (member_id, schedule_id, joined, refund_amount) SELECT id, ?, 1, 0 FROM members WHERE group_id = ?",
		id, entity.GroupID,
	); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int(id), nil
}

// Delete removes a Schedule and its attendances.
// PRE: id > 0
// POST: Rows removed, or an error wrapping storage.ErrNotFound
func (s *SQLiteStore) Delete(ctx context.Context, id int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM attendance WHERE schedule_id = ?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM schedules WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("schedule %d: %w", id, storage.ErrNotFound)
	}
	return tx.Commit()
}

// List retrieves Schedules with their attendances, ascending by date then ID.
// PRE: filter has valid parameters
// POST: Returns a non-nil slice; every schedule has a non-nil attendance list
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Schedule, error) {
	where, args := filter.where()

	rows, err := s.db.QueryContext(ctx, "SELECT s.id, s.schedule_date, s.group_id FROM schedules AS s"+where+" ORDER BY s.schedule_date, s.id", args...)
	if err != nil {
		return nil, err
	}
	results := []domain.Schedule{}
	for rows.Next() {
		var entity domain.Schedule
		if err := rows.Scan(&entity.ID, &entity.ScheduleDate, &entity.GroupID); err != nil {
			rows.Close()
			return nil, err
		}
		results = append(results, entity)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	byID, err := s.attendances(ctx, " JOIN schedules AS s ON s.id = a.schedule_id"+where, args...)
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].Attendances = nonNil(byID[results[i].ID])
	}
	return results, nil
}

// CountInMonth counts a group's schedules in ym.
// PRE: groupID > 0
// POST: Returns a count >= 0
func (s *SQLiteStore) CountInMonth(ctx context.Context, groupID int, ym calendar.YearMonth) (int, error) {
	from, to := storage.MonthBounds(ym)
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM schedules WHERE group_id = ? AND schedule_date >= ? AND schedule_date < ?",
		groupID, from, to,
	).Scan(&n)
	return n, err
}

// attendances loads attendance rows grouped by schedule ID, in display order.
func (s *SQLiteStore) attendances(ctx context.Context, clause string, args ...any) (map[int][]domainAttendance.Attendance, error) {
	rows, err := s.db.QueryContext(ctx, attendanceStore.SelectColumns+clause+attendanceStore.OrderByName, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int][]domainAttendance.Attendance)
	for rows.Next() {
		a, err := attendanceStore.Scan(rows)
		if err != nil {
			return nil, err
		}
		out[a.ScheduleID] = append(out[a.ScheduleID], a)
	}
	return out, rows.Err()
}

func (f ListFilter) where() (string, []any) {
	var conds []string
	var args []any
	if f.Month != nil {
		from, to := storage.MonthBounds(*f.Month)
		conds = append(conds, "s.schedule_date >= ?", "s.schedule_date < ?")
		args = append(args, from, to)
	}
	if f.GroupID > 0 {
		conds = append(conds, "s.group_id = ?")
		args = append(args, f.GroupID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func nonNil(list []domainAttendance.Attendance) []domainAttendance.Attendance {
	if list == nil {
		return []domainAttendance.Attendance{}
	}
	return list
}
