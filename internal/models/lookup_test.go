package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestYearGraduationYear(t *testing.T) {
	spring := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	fall := time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		spring int
		fall   int
	}{
		{"Freshman", 2029, 2030},
		{"Sophomore", 2028, 2029},
		{"Junior", 2027, 2028},
		{"Senior", 2026, 2027},
		{"FRESH MAN", 2029, 2030},
	}

	for _, tt := range tests {
		year := Year{Name: tt.name}
		require.Equal(t, tt.spring, year.GraduationYear(spring), "%s in spring", tt.name)
		require.Equal(t, tt.fall, year.GraduationYear(fall), "%s in fall", tt.name)
	}

	// Numeric names pass through unchanged.
	numeric := Year{Name: "2031"}
	require.Equal(t, 2031, numeric.GraduationYear(spring))

	// Unknown names are not mapped.
	unknown := Year{Name: "Graduate Student"}
	require.Zero(t, unknown.GraduationYear(spring))
}
