package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is the parent of every malformed-input error.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidPin is returned when a PIN is not a 6-digit numeral.
	ErrInvalidPin = fmt.Errorf("%w: pin must be 6 digits", ErrValidation)
	// ErrInvalidNickname is returned for empty or overlong nicknames.
	ErrInvalidNickname = fmt.Errorf("%w: nickname must be 1-%d characters", ErrValidation, MaxNicknameLength)
	// ErrInvalidTimeLimit is returned when the answer time limit is out of range.
	ErrInvalidTimeLimit = fmt.Errorf("%w: time limit must be %d-%d seconds", ErrValidation, MinTimeLimitSeconds, MaxTimeLimitSeconds)
	// ErrInvalidQuestionSet is returned when a custom or imported question set is malformed.
	ErrInvalidQuestionSet = fmt.Errorf("%w: invalid question set", ErrValidation)

	// ErrUnauthorized is returned when a non-host attempts a host-only action.
	ErrUnauthorized = errors.New("only the host can do that")
	// ErrSessionNotFound is returned when no live session matches a PIN.
	ErrSessionNotFound = errors.New("game not found")
	// ErrAlreadyStarted is returned when joining a session that left the lobby.
	ErrAlreadyStarted = errors.New("game already started")
	// ErrAlreadyJoined is returned when a connection joins a session it is already part of.
	ErrAlreadyJoined = errors.New("already joined this game")
	// ErrInvalidState is returned when an action does not apply to the session's current state.
	ErrInvalidState = errors.New("action not allowed in the current game state")
	// ErrInvalidQuestionState is returned when the current question index is out of range.
	ErrInvalidQuestionState = errors.New("no current question")

	// ErrAnswerRejected is the parent of answer rejections reported back to the submitter.
	ErrAnswerRejected = errors.New("answer rejected")
	// ErrTimeExpired is returned when an answer arrives after the time limit.
	ErrTimeExpired = fmt.Errorf("%w: time expired", ErrAnswerRejected)

	// ErrProviderFailure wraps any failure of the external quiz content store.
	ErrProviderFailure = errors.New("could not load quiz")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")

	// ErrPinInUse is returned by a registry when the PIN is already taken.
	ErrPinInUse = errors.New("pin already in use")
	// ErrPinExhausted is returned when no free PIN was found.
	ErrPinExhausted = errors.New("no free pin available")
)

// Reason maps an error to a stable, client-facing code.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidPin):
		return "invalid_pin"
	case errors.Is(err, ErrInvalidNickname):
		return "invalid_nickname"
	case errors.Is(err, ErrInvalidTimeLimit):
		return "invalid_time_limit"
	case errors.Is(err, ErrInvalidQuestionSet):
		return "invalid_question_set"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrSessionNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyStarted):
		return "already_started"
	case errors.Is(err, ErrAlreadyJoined):
		return "already_joined"
	case errors.Is(err, ErrInvalidQuestionState):
		return "invalid_question_state"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrTimeExpired):
		return "time_expired"
	case errors.Is(err, ErrProviderFailure):
		return "provider_failure"
	case errors.Is(err, ErrValidation):
		return "validation"
	default:
		return "internal"
	}
}
