package timeutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "0:01:30", FormatTime(90.7))
	assert.Equal(t, "1:11:22", FormatTime(4282))
	assert.Equal(t, "0:00:00", FormatTime(-3))
}

func TestFormatPrecise(t *testing.T) {
	assert.Equal(t, "0:00:10.500", FormatPrecise(10.5))
	assert.Equal(t, "0:01:00.000", FormatPrecise(59.9996))
}

func TestCompact(t *testing.T) {
	assert.Equal(t, "010203", Compact(3723.9))
	assert.Equal(t, "000000", Compact(0))
}

func TestParseTimeToSeconds(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"1:02:03", 3723},
		{"02:30", 150},
		{"1:02.5", 62.5},
		{"42", 42},
		{" 7.25 ", 7.25},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeToSeconds(tt.in)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}

	for _, bad := range []string{"", "abc", "1:75", "-4", "1:2:3:4"} {
		_, err := ParseTimeToSeconds(bad)
		assert.Error(t, err, bad)
	}
}
