package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"feeminton/internal/adapters/storage"
	domain "feeminton/internal/domain/attendance"
	"feeminton/internal/domain/calendar"
)

// SelectColumns is the attendance projection shared with the schedule store.
// Rows are joined with members for the display name.
const SelectColumns = "SELECT a.id, a.schedule_id, m.id, m.nickname, a.joined, a.refund_amount FROM attendance AS a JOIN members AS m ON m.id = a.member_id"

// OrderByName is the stable display order of attendees.
const OrderByName = " ORDER BY m.nickname COLLATE NOCASE, a.id"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new AttendanceStore.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Scan reads one row selected with SelectColumns.
func Scan(row interface{ Scan(...any) error }) (domain.Attendance, error) {
	var entity domain.Attendance
	err := row.Scan(&entity.ID, &entity.ScheduleID, &entity.MemberID, &entity.MemberName, &entity.Joined, &entity.RefundAmount)
	return entity, err
}

// GetByID retrieves an Attendance by its ID.
// PRE: id > 0
// POST: Returns the entity or an error wrapping storage.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id int) (domain.Attendance, error) {
	entity, err := Scan(s.db.QueryRowContext(ctx, SelectColumns+" WHERE a.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Attendance{}, fmt.Errorf("attendance %d: %w", id, storage.ErrNotFound)
	}
	return entity, err
}

// SetJoined updates the joined flag and refund of one attendance and returns
// the stored row.
// PRE: id > 0, refund >= 0
// POST: Row updated, or an error wrapping storage.ErrNotFound
func (s *SQLiteStore) SetJoined(ctx context.Context, id int, joined bool, refund decimal.Decimal) (domain.Attendance, error) {
	res, err := s.db.ExecContext(ctx, "UPDATE attendance SET joined = ?, refund_amount = ? WHERE id = ?", joined, refund, id)
	if err != nil {
		return domain.Attendance{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Attendance{}, fmt.Errorf("attendance %d: %w", id, storage.ErrNotFound)
	}
	return s.GetByID(ctx, id)
}

// ListBySchedule retrieves the attendees of one schedule in display order.
// PRE: scheduleID > 0
// POST: Returns a non-nil slice
func (s *SQLiteStore) ListBySchedule(ctx context.Context, scheduleID int) ([]domain.Attendance, error) {
	rows, err := s.db.QueryContext(ctx, SelectColumns+" WHERE a.schedule_id = ?"+OrderByName, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []domain.Attendance{}
	for rows.Next() {
		entity, err := Scan(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// RefundTotal sums the refunds of sessions the member skipped in ym.
// PRE: memberID > 0
// POST: Returns zero when there is nothing to refund
func (s *SQLiteStore) RefundTotal(ctx context.Context, memberID int, ym calendar.YearMonth) (decimal.Decimal, error) {
	from, to := storage.MonthBounds(ym)
	var total decimal.NullDecimal
	err := s.db.QueryRowContext(ctx,
		`SELECT SUM(a.refund_amount) FROM attendance AS a
		JOIN schedules AS s ON s.id = a.schedule_id
		WHERE a.member_id = ? AND a.joined = 0 AND s.schedule_date >= ? AND s.schedule_date < ?`,
		memberID, from, to,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
