package card

import "github.com/mcdev12/lotto/go/internal/models"

// Layout returns the card as a rows x bands grid. Empty cells hold 0.
func Layout(c *models.Card) [models.Rows][models.Bands]int {
	var grid [models.Rows][models.Bands]int
	for _, n := range c.Numbers {
		row, ok := c.Rows[n]
		if !ok || row < 0 || row >= models.Rows {
			continue
		}
		grid[row][models.BandOf(n)] = n
	}
	return grid
}
