package valueobjects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNumbers(t *testing.T) {
	tests := []struct {
		name    string
		values  []int
		wantErr string
	}{
		{
			name:   "valid pick",
			values: []int{5, 12, 23, 34, 45, 56},
		},
		{
			name:   "valid pick at bounds",
			values: []int{1, 2, 3, 4, 5, 60},
		},
		{
			name:    "too few numbers",
			values:  []int{1, 2, 3},
			wantErr: "exactly 6 numbers",
		},
		{
			name:    "too many numbers",
			values:  []int{1, 2, 3, 4, 5, 6, 7},
			wantErr: "exactly 6 numbers",
		},
		{
			name:    "duplicate number",
			values:  []int{1, 1, 2, 3, 4, 5},
			wantErr: "duplicate number 1",
		},
		{
			name:    "number too low",
			values:  []int{0, 2, 3, 4, 5, 6},
			wantErr: "out of range",
		},
		{
			name:    "number too high",
			values:  []int{1, 2, 3, 4, 5, 61},
			wantErr: "out of range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := NewNumbers(tt.values, 6, 60)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 6, n.Size())
		})
	}
}

func TestNumbersSortedOnConstruction(t *testing.T) {
	n, err := NewNumbers([]int{56, 5, 45, 12, 34, 23}, 6, 60)
	require.NoError(t, err)

	assert.Equal(t, []int{5, 12, 23, 34, 45, 56}, n.Values())
}

func TestNumbersMatches(t *testing.T) {
	pick, err := NewNumbers([]int{5, 12, 23, 34, 45, 56}, 6, 60)
	require.NoError(t, err)

	tests := []struct {
		name    string
		winning []int
		want    int
	}{
		{"five matches", []int{12, 23, 34, 45, 56, 60}, 5},
		{"all six", []int{5, 12, 23, 34, 45, 56}, 6},
		{"no matches", []int{1, 2, 3, 4, 6, 7}, 0},
		{"two matches", []int{5, 12, 1, 2, 3, 4}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			winning, err := NewNumbers(tt.winning, 6, 60)
			require.NoError(t, err)
			assert.Equal(t, tt.want, pick.Matches(winning))
			assert.Equal(t, tt.want, winning.Matches(pick))
		})
	}
}

func TestNumbersContains(t *testing.T) {
	n, err := NewNumbers([]int{5, 12, 23, 34, 45, 56}, 6, 60)
	require.NoError(t, err)

	assert.True(t, n.Contains(23))
	assert.False(t, n.Contains(24))
}

func TestNumbersEqual(t *testing.T) {
	a, err := NewNumbers([]int{5, 12, 23, 34, 45, 56}, 6, 60)
	require.NoError(t, err)
	b, err := NewNumbers([]int{56, 45, 34, 23, 12, 5}, 6, 60)
	require.NoError(t, err)
	c, err := NewNumbers([]int{5, 12, 23, 34, 45, 57}, 6, 60)
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestNumbersValuesIsACopy(t *testing.T) {
	n, err := NewNumbers([]int{1, 2, 3, 4, 5, 6}, 6, 60)
	require.NoError(t, err)

	values := n.Values()
	values[0] = 99

	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, n.Values())
}
