package card

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/lotto/go/internal/models"
)

// ErrGeneration is returned when a card cannot satisfy the structural rules.
var ErrGeneration = errors.New("card generation failed")

const maxPerBand = 3

// Clock is the subset of clockwork.Clock the generator needs.
type Clock interface {
	Now() time.Time
}

// Generator produces structurally valid cards. It is safe for concurrent use.
type Generator struct {
	mu    sync.Mutex
	rng   *rand.Rand
	clock Clock
}

// NewGenerator creates a generator seeded from the runtime's random source.
func NewGenerator(clock Clock) *Generator {
	return NewSeededGenerator(clock, rand.Uint64(), rand.Uint64())
}

// NewSeededGenerator creates a deterministic generator, used in tests.
func NewSeededGenerator(clock Clock, seed1, seed2 uint64) *Generator {
	return &Generator{
		rng:   rand.New(rand.NewPCG(seed1, seed2)),
		clock: clock,
	}
}

// Generate builds a new card for userID in sessionID. The card is validated
// before it is returned; a malformed card is never handed out.
func (g *Generator) Generate(sessionID uuid.UUID, userID int64) (*models.Card, error) {
	g.mu.Lock()
	slots := g.distribute()
	numbers, rows := g.fill(slots)
	g.mu.Unlock()

	c := &models.Card{
		ID:        uuid.New(),
		SessionID: sessionID,
		UserID:    userID,
		Numbers:   numbers,
		Rows:      rows,
		Marked:    []int{},
		CreatedAt: g.clock.Now(),
	}
	if err := Validate(c); err != nil {
		return nil, err
	}
	return c, nil
}

// distribute allocates CardSize slots across the bands. Phase one flips a
// coin per band weighted by the band's size, phase two tops up uniformly
// among unsaturated bands.
func (g *Generator) distribute() [models.Bands]int {
	var slots [models.Bands]int
	total := 0

	for pass := 0; pass < maxPerBand && total < models.CardSize; pass++ {
		for b := 0; b < models.Bands && total < models.CardSize; b++ {
			if slots[b] >= maxPerBand {
				continue
			}
			lo, hi := models.BandRange(b)
			weight := float64(hi-lo+1) / 11.0
			if g.rng.Float64() < weight {
				slots[b]++
				total++
			}
		}
	}

	for total < models.CardSize {
		open := make([]int, 0, models.Bands)
		for b := range slots {
			if slots[b] < maxPerBand {
				open = append(open, b)
			}
		}
		if len(open) == 0 {
			break
		}
		slots[open[g.rng.IntN(len(open))]]++
		total++
	}
	return slots
}

// fill samples the numbers of each band and gives each one a distinct row.
func (g *Generator) fill(slots [models.Bands]int) ([]int, map[int]int) {
	numbers := make([]int, 0, models.CardSize)
	rows := make(map[int]int, models.CardSize)

	for b, count := range slots {
		if count == 0 {
			continue
		}
		lo, hi := models.BandRange(b)
		picks := g.rng.Perm(hi - lo + 1)[:count]

		rowOrder := []int{0, 1, 2}
		g.rng.Shuffle(len(rowOrder), func(i, j int) {
			rowOrder[i], rowOrder[j] = rowOrder[j], rowOrder[i]
		})

		for i, p := range picks {
			n := lo + p
			numbers = append(numbers, n)
			rows[n] = rowOrder[i]
		}
	}
	slices.Sort(numbers)
	return numbers, rows
}

// Validate checks every structural rule of a card.
func Validate(c *models.Card) error {
	if len(c.Numbers) != models.CardSize {
		return fmt.Errorf("%w: card has %d numbers, want %d", ErrGeneration, len(c.Numbers), models.CardSize)
	}

	seen := make(map[int]bool, len(c.Numbers))
	perBand := make(map[int]int, models.Bands)
	rowsUsed := make(map[[2]int]bool, len(c.Numbers))

	for _, n := range c.Numbers {
		if n < 1 || n > models.MaxNumber {
			return fmt.Errorf("%w: number %d out of range", ErrGeneration, n)
		}
		if seen[n] {
			return fmt.Errorf("%w: duplicate number %d", ErrGeneration, n)
		}
		seen[n] = true

		b := models.BandOf(n)
		perBand[b]++
		if perBand[b] > maxPerBand {
			return fmt.Errorf("%w: band %d has more than %d numbers", ErrGeneration, b, maxPerBand)
		}

		row, ok := c.Rows[n]
		if !ok || row < 0 || row >= models.Rows {
			return fmt.Errorf("%w: number %d has no valid row", ErrGeneration, n)
		}
		key := [2]int{b, row}
		if rowsUsed[key] {
			return fmt.Errorf("%w: band %d row %d used twice", ErrGeneration, b, row)
		}
		rowsUsed[key] = true
	}
	return nil
}
