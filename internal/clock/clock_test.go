package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTodayOverride(t *testing.T) {
	got, err := Today("2026-08-28", "Asia/Tokyo")
	require.NoError(t, err)
	require.Equal(t, 2026, got.Year())
	require.Equal(t, time.August, got.Month())
	require.Equal(t, 28, got.Day())
	require.Equal(t, "Asia/Tokyo", got.Location().String())
}

func TestTodayWithoutOverrideIsMidnight(t *testing.T) {
	got, err := Today("", "Asia/Tokyo")
	require.NoError(t, err)
	require.Zero(t, got.Hour())
	require.Zero(t, got.Minute())
}

func TestTodayRejectsBadInput(t *testing.T) {
	_, err := Today("28-08-2026", "Asia/Tokyo")
	require.Error(t, err)

	_, err = Today("", "Mars/Olympus")
	require.Error(t, err)
}
