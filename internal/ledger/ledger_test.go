package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Ledger {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "ledger.db")
	l, err := Open(context.Background(), DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestAddAndTotals(t *testing.T) {
	l := openTemp(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local)

	require.NoError(t, l.Add(ctx, now.AddDate(0, 0, -1), 90))
	require.NoError(t, l.Add(ctx, now, 30.5))
	require.NoError(t, l.Add(ctx, now.Add(2*time.Hour), 29.5))
	require.NoError(t, l.Add(ctx, now.AddDate(0, 0, -2), 1000))

	today, yesterday, err := l.Totals(ctx, now)
	require.NoError(t, err)
	assert.InDelta(t, 60, today, 1e-9)
	assert.InDelta(t, 90, yesterday, 1e-9)
}

func TestAddIgnoresNonPositive(t *testing.T) {
	l := openTemp(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local)

	require.NoError(t, l.Add(ctx, now, 0))
	require.NoError(t, l.Add(ctx, now, -5))

	today, err := l.Day(ctx, now.Format(DayLayout))
	require.NoError(t, err)
	assert.Zero(t, today)
}

func TestTotalsAcrossMonthBoundary(t *testing.T) {
	l := openTemp(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 0, 30, 0, 0, time.Local)

	require.NoError(t, l.Add(ctx, time.Date(2026, 2, 28, 23, 0, 0, 0, time.Local), 42))

	today, yesterday, err := l.Totals(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, today)
	assert.InDelta(t, 42, yesterday, 1e-9)
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), Driver("mysql"), "")
	assert.Error(t, err)
}

func TestOpenPostgresRequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), DriverPostgres, "")
	assert.ErrorIs(t, err, ErrNoDSN)
}

func TestCredit(t *testing.T) {
	cutoff := 30 * time.Minute
	tests := []struct {
		elapsed time.Duration
		want    float64
		ok      bool
	}{
		{0, 0, false},
		{-time.Second, 0, false},
		{1500 * time.Millisecond, 1.5, true},
		{cutoff, 1800, true},
		{cutoff + time.Millisecond, 0, false},
	}
	for _, tt := range tests {
		got, ok := Credit(tt.elapsed, cutoff)
		assert.Equal(t, tt.ok, ok, "elapsed=%s", tt.elapsed)
		assert.InDelta(t, tt.want, got, 1e-9, "elapsed=%s", tt.elapsed)
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "0分0秒"},
		{59.9, "0分59秒"},
		{61, "1分1秒"},
		{3599, "59分59秒"},
		{3600, "1時間0分"},
		{3725, "1時間2分"},
		{36000, "10時間0分"},
		{-3, "0分0秒"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Format(tt.seconds), "seconds=%v", tt.seconds)
	}
}
