package slurmtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		expected  Limit
		expectErr bool
	}{
		{
			name:     "hours minutes seconds",
			in:       "2:00:00",
			expected: Limit{Duration: 2 * time.Hour},
		},
		{
			name:     "one day",
			in:       "1-00:00:00",
			expected: Limit{Duration: 24 * time.Hour},
		},
		{
			name:     "days and hours only",
			in:       "7-12",
			expected: Limit{Duration: 7*24*time.Hour + 12*time.Hour},
		},
		{
			name:     "days hours minutes",
			in:       "2-06:30",
			expected: Limit{Duration: 2*24*time.Hour + 6*time.Hour + 30*time.Minute},
		},
		{
			name:     "minutes and seconds",
			in:       "30:15",
			expected: Limit{Duration: 30*time.Minute + 15*time.Second},
		},
		{
			name:     "bare minutes",
			in:       "90",
			expected: Limit{Duration: 90 * time.Minute},
		},
		{
			name:     "infinite",
			in:       "infinite",
			expected: Limit{Unlimited: true},
		},
		{
			name:     "unlimited uppercase",
			in:       "UNLIMITED",
			expected: Limit{Unlimited: true},
		},
		{
			name:      "garbage",
			in:        "abc",
			expectErr: true,
		},
		{
			name:      "empty",
			in:        "",
			expectErr: true,
		},
		{
			name:      "negative field",
			in:        "-1:00",
			expectErr: true,
		},
		{
			name:      "too many fields",
			in:        "1:2:3:4",
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limit, err := Parse(tt.in)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, limit)
		})
	}
}

func TestLimitAdmits(t *testing.T) {
	twoHours := Limit{Duration: 2 * time.Hour}
	day := Limit{Duration: 24 * time.Hour}
	inf := Limit{Unlimited: true}

	assert.True(t, day.Admits(twoHours))
	assert.True(t, twoHours.Admits(twoHours))
	assert.False(t, twoHours.Admits(day))
	assert.True(t, inf.Admits(day))
	assert.True(t, inf.Admits(inf))
	assert.False(t, day.Admits(inf))
}

func TestLimitString(t *testing.T) {
	assert.Equal(t, "infinite", Limit{Unlimited: true}.String())
	assert.Equal(t, "02:00:00", Limit{Duration: 2 * time.Hour}.String())
	assert.Equal(t, "1-00:00:00", Limit{Duration: 24 * time.Hour}.String())
}
