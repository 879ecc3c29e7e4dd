package fiscal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/edgar-llm/internal/model"
)

func TestNormalizePeriodEnd(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"iso", "2022-12-31", "2022-12-31"},
		{"compact", "20221231", "2022-12-31"},
		{"iso slashes", "2022/12/31", "2022-12-31"},
		{"us slashes", "12/31/2022", "2022-12-31"},
		{"us dashes", "06-30-2024", "2024-06-30"},
		{"long month", "December 31, 2022", "2022-12-31"},
		{"short month", "Dec 31, 2022", "2022-12-31"},
		{"long month no comma", "September 28 2024", "2024-09-28"},
		{"single digit day", "April 1, 2023", "2023-04-01"},
		{"surrounding whitespace", "  2023-06-30  ", "2023-06-30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePeriodEnd(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizePeriodEnd_Invalid(t *testing.T) {
	for _, input := range []string{
		"",
		"   ",
		"not-a-date",
		"2022-13-45",
		"31/12/2022",
		"Q1 2023",
		"2022",
	} {
		t.Run(input, func(t *testing.T) {
			_, err := NormalizePeriodEnd(input)
			require.Error(t, err)

			var dateErr *model.InvalidDateFormatError
			assert.True(t, errors.As(err, &dateErr))
		})
	}
}
