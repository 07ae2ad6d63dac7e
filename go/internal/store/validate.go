package store

import (
	"errors"
	"fmt"

	"github.com/mcdev12/lotto/go/internal/models"
)

var (
	// ErrConflict is returned when a unique value is already taken.
	ErrConflict = errors.New("conflict")
	// ErrInvalidUpdate is returned for a session update that would break a
	// session invariant.
	ErrInvalidUpdate = errors.New("invalid session update")
)

// ValidateUpdate rejects updates that carry nothing or that would store an
// impossible draw sequence or status.
func ValidateUpdate(u models.SessionUpdate) error {
	if u.Empty() {
		return fmt.Errorf("%w: no fields set", ErrInvalidUpdate)
	}
	if u.Status != nil {
		switch *u.Status {
		case models.SessionStatusWaiting, models.SessionStatusPreparing,
			models.SessionStatusRunning, models.SessionStatusFinished:
		default:
			return fmt.Errorf("%w: unknown status %q", ErrInvalidUpdate, *u.Status)
		}
	}
	if u.Drawn != nil {
		drawn := *u.Drawn
		if len(drawn) > models.MaxNumber {
			return fmt.Errorf("%w: %d draws exceeds %d", ErrInvalidUpdate, len(drawn), models.MaxNumber)
		}
		seen := make(map[int]bool, len(drawn))
		for _, n := range drawn {
			if n < 1 || n > models.MaxNumber {
				return fmt.Errorf("%w: drawn number %d out of range", ErrInvalidUpdate, n)
			}
			if seen[n] {
				return fmt.Errorf("%w: number %d drawn twice", ErrInvalidUpdate, n)
			}
			seen[n] = true
		}
	}
	return nil
}
