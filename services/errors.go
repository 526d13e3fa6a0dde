package services

import (
	"errors"
)

var (
	// ErrInsufficientPlayers means a round start was attempted with fewer
	// than two room members. The coordinator broadcasts the failure itself.
	ErrInsufficientPlayers = errors.New("not enough players to start")
	// ErrContentUnavailable means the content provider produced no questions.
	ErrContentUnavailable = errors.New("no questions available")
	// ErrForbidden means a non-owner attempted an owner-only action.
	ErrForbidden = errors.New("only the host can advance the game")
)

// DuplicateSubmissionError rejects an answer whose text collides with the
// hidden correct answer or an already-submitted decoy. Only the submitting
// client sees the message; nothing is broadcast.
type DuplicateSubmissionError struct {
	Message string
}

func (e *DuplicateSubmissionError) Error() string {
	return e.Message
}
