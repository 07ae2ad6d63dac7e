package card

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/lotto/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateProducesValidCards(t *testing.T) {
	gen := NewSeededGenerator(clockwork.NewFakeClock(), 1, 2)
	sessionID := uuid.New()

	for i := 0; i < 2000; i++ {
		c, err := gen.Generate(sessionID, 42)
		require.NoError(t, err)

		assert.Len(t, c.Numbers, models.CardSize)
		assert.Equal(t, sessionID, c.SessionID)
		assert.Equal(t, int64(42), c.UserID)
		assert.Empty(t, c.Marked)
		assert.IsNonDecreasing(t, c.Numbers)

		perBand := map[int]int{}
		for _, n := range c.Numbers {
			assert.GreaterOrEqual(t, n, 1)
			assert.LessOrEqual(t, n, models.MaxNumber)
			perBand[models.BandOf(n)]++
		}
		for b, count := range perBand {
			assert.LessOrEqual(t, count, 3, "band %d", b)
		}
	}
}

func TestGenerateSpreadsAcrossBands(t *testing.T) {
	gen := NewSeededGenerator(clockwork.NewFakeClock(), 7, 7)

	hits := map[int]bool{}
	for i := 0; i < 200; i++ {
		c, err := gen.Generate(uuid.New(), 1)
		require.NoError(t, err)
		for _, n := range c.Numbers {
			hits[n] = true
		}
	}
	assert.True(t, hits[80], "top of last band should be reachable")
	assert.True(t, hits[1], "bottom of first band should be reachable")
}

func TestValidate(t *testing.T) {
	valid := func() *models.Card {
		nums := []int{1, 2, 3, 10, 11, 12, 20, 21, 22, 30, 31, 32, 40, 41, 42}
		rows := map[int]int{}
		for _, n := range nums {
			rows[n] = n % 10 % 3
		}
		return &models.Card{Numbers: nums, Rows: rows}
	}

	tests := []struct {
		name   string
		mutate func(c *models.Card)
	}{
		{"too few numbers", func(c *models.Card) { c.Numbers = c.Numbers[:14] }},
		{"out of range", func(c *models.Card) { c.Numbers[14] = 81; c.Rows[81] = 0 }},
		{"duplicate", func(c *models.Card) { c.Numbers[14] = 41 }},
		{"band overflow", func(c *models.Card) { c.Numbers[14] = 13; c.Rows[13] = 1 }},
		{"missing row", func(c *models.Card) { delete(c.Rows, 42) }},
		{"row reused", func(c *models.Card) { c.Rows[42] = c.Rows[41] }},
	}

	require.NoError(t, Validate(valid()))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.ErrorIs(t, Validate(c), ErrGeneration)
		})
	}
}

func TestLayoutPlacesEveryNumber(t *testing.T) {
	gen := NewSeededGenerator(clockwork.NewFakeClock(), 3, 4)
	c, err := gen.Generate(uuid.New(), 1)
	require.NoError(t, err)

	grid := Layout(c)
	placed := 0
	for r := range grid {
		for b, n := range grid[r] {
			if n == 0 {
				continue
			}
			placed++
			assert.Equal(t, b, models.BandOf(n))
			assert.Equal(t, r, c.Rows[n])
		}
	}
	assert.Equal(t, models.CardSize, placed)
}

func TestBandOf(t *testing.T) {
	cases := map[int]int{1: 0, 9: 0, 10: 1, 19: 1, 60: 6, 69: 6, 70: 7, 79: 7, 80: 7}
	for n, want := range cases {
		assert.Equal(t, want, models.BandOf(n), "n=%d", n)
	}
}
