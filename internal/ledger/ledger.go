// Package ledger persists accumulated study time per calendar day.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// ErrNoDSN is returned when a postgres ledger is opened without a DSN.
var ErrNoDSN = errors.New("ledger: postgres requires a DSN")

// DayLayout formats the calendar-day key.
const DayLayout = "2006-01-02"

// Ledger maps a calendar day to the seconds studied that day.
type Ledger struct {
	db *sql.DB
}

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*Ledger, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:data/ronten.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			return nil, ErrNoDSN
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if _, err := db.ExecContext(ctx, schema(driver)); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

func schema(driver Driver) string {
	if driver == DriverPostgres {
		return schemaPostgres
	}
	return schemaSQLite
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS study_time (
  day TEXT PRIMARY KEY,
  seconds REAL NOT NULL DEFAULT 0
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS study_time (
  day TEXT PRIMARY KEY,
  seconds DOUBLE PRECISION NOT NULL DEFAULT 0
);
`

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Add credits seconds to the day containing at. Non-positive amounts are ignored.
func (l *Ledger) Add(ctx context.Context, at time.Time, seconds float64) error {
	if seconds <= 0 {
		return nil
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO study_time (day, seconds) VALUES ($1, $2)
		ON CONFLICT (day) DO UPDATE SET seconds = study_time.seconds + EXCLUDED.seconds`,
		at.Format(DayLayout), seconds)
	if err != nil {
		return fmt.Errorf("add study time: %w", err)
	}
	return nil
}

// Day returns the seconds recorded for a day key, or 0.
func (l *Ledger) Day(ctx context.Context, day string) (float64, error) {
	var seconds float64
	err := l.db.QueryRowContext(ctx, `SELECT seconds FROM study_time WHERE day=$1`, day).Scan(&seconds)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read study time %s: %w", day, err)
	}
	return seconds, nil
}

// Totals returns the seconds studied on the day of now and the day before.
func (l *Ledger) Totals(ctx context.Context, now time.Time) (today, yesterday float64, err error) {
	if today, err = l.Day(ctx, now.Format(DayLayout)); err != nil {
		return 0, 0, err
	}
	if yesterday, err = l.Day(ctx, now.AddDate(0, 0, -1).Format(DayLayout)); err != nil {
		return 0, 0, err
	}
	return today, yesterday, nil
}

// Credit converts the time since the last user action into creditable
// seconds. Only gaps in (0, cutoff] count; longer gaps are treated as time
// away from the desk.
func Credit(elapsed, cutoff time.Duration) (float64, bool) {
	if elapsed <= 0 || elapsed > cutoff {
		return 0, false
	}
	return elapsed.Seconds(), true
}

// Format renders seconds as "H時間M分" from one hour up, else "M分S秒".
func Format(seconds float64) string {
	total := int64(seconds)
	if total < 0 {
		total = 0
	}
	h, rem := total/3600, total%3600
	m, s := rem/60, rem%60
	if h > 0 {
		return fmt.Sprintf("%d時間%d分", h, m)
	}
	return fmt.Sprintf("%d分%d秒", m, s)
}
