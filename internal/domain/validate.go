package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	PinLength           = 6
	MaxNicknameLength   = 20
	MinTimeLimitSeconds = 5
	MaxTimeLimitSeconds = 120
	MaxQuestions        = 50
)

// ValidatePin reports whether pin is exactly six ASCII digits.
func ValidatePin(pin string) error {
	if len(pin) != PinLength {
		return ErrInvalidPin
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return ErrInvalidPin
		}
	}
	return nil
}

// NormalizeNickname trims the nickname and checks its length in characters.
func NormalizeNickname(raw string) (string, error) {
	nickname := strings.TrimSpace(raw)
	if nickname == "" || utf8.RuneCountInString(nickname) > MaxNicknameLength {
		return "", ErrInvalidNickname
	}
	return nickname, nil
}

// ValidateTimeLimit checks the per-question answer window in seconds.
func ValidateTimeLimit(seconds int) error {
	if seconds < MinTimeLimitSeconds || seconds > MaxTimeLimitSeconds {
		return ErrInvalidTimeLimit
	}
	return nil
}

// ValidateQuestions checks the shape of a question set: 1-50 questions, each with
// non-empty text, exactly four non-empty options and a correct index in [0,3].
func ValidateQuestions(questions []Question) error {
	if len(questions) == 0 {
		return fmt.Errorf("%w: no questions", ErrInvalidQuestionSet)
	}
	if len(questions) > MaxQuestions {
		return fmt.Errorf("%w: %d questions, at most %d allowed", ErrInvalidQuestionSet, len(questions), MaxQuestions)
	}
	for i, q := range questions {
		if strings.TrimSpace(q.Text) == "" {
			return fmt.Errorf("%w: question %d has no text", ErrInvalidQuestionSet, i+1)
		}
		if len(q.Options) != OptionCount {
			return fmt.Errorf("%w: question %d needs %d options, got %d", ErrInvalidQuestionSet, i+1, OptionCount, len(q.Options))
		}
		for j, opt := range q.Options {
			if strings.TrimSpace(opt) == "" {
				return fmt.Errorf("%w: question %d option %d is empty", ErrInvalidQuestionSet, i+1, j+1)
			}
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= OptionCount {
			return fmt.Errorf("%w: question %d correct answer out of range", ErrInvalidQuestionSet, i+1)
		}
	}
	return nil
}
