package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestValidatePin(t *testing.T) {
	for _, pin := range []string{"123456", "000000", "999999"} {
		if err := ValidatePin(pin); err != nil {
			t.Fatalf("expected %q valid, got %v", pin, err)
		}
	}
	for _, pin := range []string{"", "12345", "1234567", "12a456", " 12345", "１２３４５６"} {
		if err := ValidatePin(pin); !errors.Is(err, ErrInvalidPin) {
			t.Fatalf("expected %q invalid, got %v", pin, err)
		}
	}
}

func TestNormalizeNickname(t *testing.T) {
	got, err := NormalizeNickname("  Alice  ")
	if err != nil || got != "Alice" {
		t.Fatalf("expected trimmed Alice, got %q (%v)", got, err)
	}
	if _, err := NormalizeNickname("   "); !errors.Is(err, ErrInvalidNickname) {
		t.Fatalf("expected blank nickname rejected, got %v", err)
	}
	if _, err := NormalizeNickname(strings.Repeat("x", 21)); !errors.Is(err, ErrInvalidNickname) {
		t.Fatalf("expected 21 chars rejected, got %v", err)
	}
	if _, err := NormalizeNickname(strings.Repeat("é", 20)); err != nil {
		t.Fatalf("expected 20 multibyte chars accepted, got %v", err)
	}
}

func TestValidateTimeLimit(t *testing.T) {
	for _, s := range []int{5, 20, 120} {
		if err := ValidateTimeLimit(s); err != nil {
			t.Fatalf("expected %d valid, got %v", s, err)
		}
	}
	for _, s := range []int{0, 4, 121} {
		if err := ValidateTimeLimit(s); !errors.Is(err, ErrInvalidTimeLimit) || !errors.Is(err, ErrValidation) {
			t.Fatalf("expected %d invalid, got %v", s, err)
		}
	}
}

func TestValidateQuestions(t *testing.T) {
	valid := func(n int) []Question {
		out := make([]Question, n)
		for i := range out {
			out[i] = Question{ID: fmt.Sprint(i), Text: "q", Options: []string{"a", "b", "c", "d"}, CorrectIndex: i % 4}
		}
		return out
	}

	for _, n := range []int{1, 50} {
		if err := ValidateQuestions(valid(n)); err != nil {
			t.Fatalf("expected %d questions valid, got %v", n, err)
		}
	}
	for _, n := range []int{0, 51} {
		if err := ValidateQuestions(valid(n)); !errors.Is(err, ErrInvalidQuestionSet) {
			t.Fatalf("expected %d questions invalid, got %v", n, err)
		}
	}

	cases := map[string]func(q *Question){
		"empty text":    func(q *Question) { q.Text = " " },
		"three options": func(q *Question) { q.Options = q.Options[:3] },
		"empty option":  func(q *Question) { q.Options[2] = "" },
		"index high":    func(q *Question) { q.CorrectIndex = 4 },
		"index low":     func(q *Question) { q.CorrectIndex = -1 },
	}
	for name, mutate := range cases {
		set := valid(3)
		mutate(&set[1])
		if err := ValidateQuestions(set); !errors.Is(err, ErrInvalidQuestionSet) {
			t.Fatalf("%s: expected invalid question set, got %v", name, err)
		}
	}
}

func TestReason(t *testing.T) {
	if got := Reason(fmt.Errorf("%w: boom", ErrProviderFailure)); got != "provider_failure" {
		t.Fatalf("expected provider_failure, got %s", got)
	}
	if got := Reason(ErrTimeExpired); got != "time_expired" {
		t.Fatalf("expected time_expired, got %s", got)
	}
	if got := Reason(errors.New("other")); got != "internal" {
		t.Fatalf("expected internal, got %s", got)
	}
}
