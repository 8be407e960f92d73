package timeutils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMinuteOfDay(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"08:00", 480, false},
		{"23:59", 1439, false},
		{" 16:30 ", 990, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"8", 0, true},
		{"ab:cd", 0, true},
	}

	for _, c := range cases {
		got, err := ParseMinuteOfDay(c.in)
		if c.wantErr {
			assert.Error(t, err, "input %q", c.in)
			continue
		}
		require.NoError(t, err, "input %q", c.in)
		assert.Equal(t, c.want, got, "input %q", c.in)
	}
}

func TestFormatMinuteOfDay(t *testing.T) {
	assert.Equal(t, "08:00", FormatMinuteOfDay(480))
	assert.Equal(t, "00:00", FormatMinuteOfDay(0))
	assert.Equal(t, "23:59", FormatMinuteOfDay(1439))
	// Fuera de rango se normaliza al día
	assert.Equal(t, "00:30", FormatMinuteOfDay(MinutesPerDay+30))
}

func TestMinuteOfDay(t *testing.T) {
	ts := time.Date(2026, 3, 10, 14, 45, 12, 0, time.UTC)
	assert.Equal(t, 14*60+45, MinuteOfDay(ts))
}

func TestStartOfDay(t *testing.T) {
	ts := time.Date(2026, 3, 10, 14, 45, 12, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), StartOfDay(ts))
}
