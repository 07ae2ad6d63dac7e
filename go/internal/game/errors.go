package game

import (
	"errors"

	"github.com/mcdev12/lotto/go/internal/card"
)

var (
	// ErrGeneration means a card could not be built; the player should retry.
	ErrGeneration = card.ErrGeneration

	ErrInvalidState     = errors.New("session does not allow this action now")
	ErrStaleReference   = errors.New("reference does not match a live session")
	ErrNotOwner         = errors.New("only the creator can start this session")
	ErrNotEnoughPlayers = errors.New("not enough players")
	ErrAlreadyInSession = errors.New("already playing in another session")
	ErrNoLiveSession    = errors.New("no live session")
)

// Kind classifies errors returned by the engine.
type Kind int

const (
	KindInternal Kind = iota
	KindGeneration
	KindStateConflict
	KindStaleReference
)

func (k Kind) String() string {
	switch k {
	case KindGeneration:
		return "generation"
	case KindStateConflict:
		return "state_conflict"
	case KindStaleReference:
		return "stale_reference"
	default:
		return "internal"
	}
}

// KindOf maps err onto the engine's error taxonomy.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrGeneration):
		return KindGeneration
	case errors.Is(err, ErrStaleReference):
		return KindStaleReference
	case errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrNotOwner),
		errors.Is(err, ErrNotEnoughPlayers),
		errors.Is(err, ErrAlreadyInSession),
		errors.Is(err, ErrNoLiveSession):
		return KindStateConflict
	default:
		return KindInternal
	}
}
