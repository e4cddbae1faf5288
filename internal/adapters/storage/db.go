// Package storage holds the SQLite plumbing of the development backend.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"feeminton/internal/domain/calendar"
)

// dsnPragmas are applied to every pooled connection.
const dsnPragmas = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"

// Open opens the SQLite database at path with WAL, a busy timeout and
// foreign keys enabled, then creates the schema. ":memory:" opens a private
// in-memory database.
// PRE: path is non-empty
// POST: Returns a pinged, initialized database or an error
func Open(path string) (*sql.DB, error) {
	dsn := path + dsnPragmas
	if path == ":memory:" {
		dsn = path
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: SQLite has a single writer, and an in-memory database
	// exists only on the connection that created it.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if err := InitDB(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// InitDB initializes the database schema.
// PRE: db is a valid database connection
// POST: All tables are created
func InitDB(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS groups (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS members (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		nickname TEXT NOT NULL,
		gender TEXT NOT NULL DEFAULT '',
		group_id INTEGER NOT NULL,
		member_fee NUMERIC NOT NULL DEFAULT 0,
		FOREIGN KEY (group_id) REFERENCES groups(id)
	);

	CREATE TABLE IF NOT EXISTS schedules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		schedule_date TEXT NOT NULL,
		group_id INTEGER NOT NULL,
		FOREIGN KEY (group_id) REFERENCES groups(id)
	);

	CREATE INDEX IF NOT EXISTS idx_schedules_date ON schedules(schedule_date);

	CREATE TABLE IF NOT EXISTS attendance (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		member_id INTEGER NOT NULL,
		schedule_id INTEGER NOT NULL,
		joined INTEGER NOT NULL DEFAULT 1,
		refund_amount NUMERIC NOT NULL DEFAULT 0,
		FOREIGN KEY (member_id) REFERENCES members(id),
		FOREIGN KEY (schedule_id) REFERENCES schedules(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_attendance_schedule ON attendance(schedule_id);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SeedDemo fills an empty database with two groups, a handful of members and
// weekly sessions for the month of now and the month after. A database that
// already has groups is left alone.
// PRE: schema exists
// POST: Returns whether rows were inserted
func SeedDemo(ctx context.Context, db SQLDB, now time.Time) (bool, error) {
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM groups").Scan(&n); err != nil {
		return false, fmt.Errorf("failed to count groups: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	groups := []struct {
		name    string
		weekday time.Weekday
		clock   string
		members []demoMember
	}{
		{"Tuesday Smashers", time.Tuesday, "19:30", []demoMember{
			{"Anna", "female", "120"}, {"bao", "male", "120"}, {"Chi", "female", "100"}, {"Dũng", "male", "120"},
		}},
		{"Saturday Open", time.Saturday, "14:00", []demoMember{
			{"Emil", "male", "80"}, {"fiona", "female", "80"}, {"Gia", "", "80"},
		}},
	}

	for _, g := range groups {
		res, err := tx.ExecContext(ctx, "INSERT INTO groups (name) VALUES (?)", g.name)
		if err != nil {
			return false, fmt.Errorf("failed to seed group: %w", err)
		}
		groupID, _ := res.LastInsertId()

		for _, m := range g.members {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO members (nickname, gender, group_id, member_fee) VALUES (?, ?, ?, ?)",
				m.nickname, m.gender, groupID, m.fee,
			); err != nil {
				return false, fmt.Errorf("failed to seed member: %w", err)
			}
		}

		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		for day := first; day.Before(first.AddDate(0, 2, 0)); day = day.AddDate(0, 0, 1) {
			if day.Weekday() != g.weekday {
				continue
			}
			at := day.Format("2006-01-02") + "T" + g.clock + ":00"
			res, err := tx.ExecContext(ctx, "INSERT INTO schedules (schedule_date, group_id) VALUES (?, ?)", at, groupID)
			if err != nil {
				return false, fmt.Errorf("failed to seed schedule: %w", err)
			}
			scheduleID, _ := res.LastInsertId()
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO attendance (member_id, schedule_id, joined, refund_amount) SELECT id, ?, 1, 0 FROM members WHERE group_id = ?",
				scheduleID, groupID,
			); err != nil {
				return false, fmt.Errorf("failed to seed attendance: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

type demoMember struct {
	nickname string
	gender   string
	fee      string
}

// ErrNotFound is wrapped by stores when a row does not exist.
var ErrNotFound = errors.New("not found")

// MonthBounds returns the half-open [from, to) schedule_date range of ym as
// stored text, which sorts chronologically.
func MonthBounds(ym calendar.YearMonth) (string, string) {
	from := calendar.NewTimestamp(ym.Year, ym.Month, 1, 0, 0)
	next := ym.Next()
	to := calendar.NewTimestamp(next.Year, next.Month, 1, 0, 0)
	return from.String(), to.String()
}
