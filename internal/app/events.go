package app

import (
	"context"
	"time"

	"live-quiz-service/internal/domain"
)

// Outbound event types.
const (
	EventSessionCreated    = "session-created"
	EventJoinResult        = "join-result"
	EventRosterUpdate      = "roster-update"
	EventQuestionShown     = "question-shown"
	EventBeginAnswering    = "begin-answering"
	EventAnswerConfirmed   = "answer-confirmed"
	EventAnswerRejected    = "answer-rejected"
	EventAnswerCountUpdate = "answer-count-update"
	EventAnswerRevealed    = "answer-revealed"
	EventQuestionResults   = "question-results"
	EventCountdown         = "countdown"
	EventGameEnded         = "game-ended"
	EventHostDisconnected  = "host-disconnected"
	EventError             = "error"
)

// Event is one addressed message for a single connection.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Broadcaster delivers events to connections. Implementations must not block
// and must not call back into the GameService.
type Broadcaster interface {
	Send(connectionID string, event Event)
}

type SessionCreatedPayload struct {
	PIN            string `json:"pin"`
	TotalQuestions int    `json:"totalQuestions"`
}

type JoinResultPayload struct {
	Success  bool   `json:"success"`
	PIN      string `json:"pin,omitempty"`
	Nickname string `json:"nickname,omitempty"`
	Error    string `json:"error,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

type RosterPayload struct {
	Players []domain.Player `json:"players"`
	Count   int             `json:"count"`
}

type QuestionShownPayload struct {
	Question       string   `json:"question"`
	Options        []string `json:"options"`
	QuestionNumber int      `json:"questionNumber"`
	TotalQuestions int      `json:"totalQuestions"`
	TimeLimit      int      `json:"timeLimit"`
	TotalPlayers   int      `json:"totalPlayers"`
	PreRoll        int      `json:"preRoll"`
}

type BeginAnsweringPayload struct {
	QuestionNumber int `json:"questionNumber"`
	TotalQuestions int `json:"totalQuestions"`
	TimeLimit      int `json:"timeLimit"`
	PreRoll        int `json:"preRoll"`
}

type AnswerConfirmedPayload struct {
	QuestionNumber int `json:"questionNumber"`
}

type AnswerRejectedPayload struct {
	Reason string `json:"reason"`
}

type AnswerCountPayload struct {
	Answered int `json:"answered"`
	Total    int `json:"total"`
}

type AnswerRevealedPayload struct {
	QuestionNumber    int                   `json:"questionNumber"`
	CorrectOption     int                   `json:"correctOption"`
	CorrectOptionText string                `json:"correctOptionText"`
	Results           []domain.PlayerResult `json:"results"`
}

type QuestionResultsPayload struct {
	QuestionNumber    int                       `json:"questionNumber"`
	TotalQuestions    int                       `json:"totalQuestions"`
	CorrectOption     int                       `json:"correctOption"`
	CorrectOptionText string                    `json:"correctOptionText"`
	Leaderboard       []domain.LeaderboardEntry `json:"leaderboard"`
	Results           []domain.PlayerResult     `json:"results"`
	IsLastQuestion    bool                      `json:"isLastQuestion"`
}

type CountdownPayload struct {
	Seconds int `json:"seconds"`
}

type GameEndedPayload struct {
	Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

// Lifecycle event types published for external observers.
const (
	LifecycleCreated = "session.created"
	LifecycleStarted = "session.started"
	LifecycleEnded   = "session.ended"
)

// Reasons attached to LifecycleEnded.
const (
	EndReasonCompleted        = "completed"
	EndReasonEndedByHost      = "ended_by_host"
	EndReasonHostDisconnected = "host_disconnected"
)

// LifecycleEvent is a coarse-grained session milestone.
type LifecycleEvent struct {
	Type       string    `json:"type"`
	PIN        string    `json:"pin"`
	Reason     string    `json:"reason,omitempty"`
	Players    int       `json:"players"`
	OccurredAt time.Time `json:"occurredAt"`
}

// EventPublisher ships lifecycle events to an external bus. Failures are logged, never surfaced.
type EventPublisher interface {
	Publish(ctx context.Context, event LifecycleEvent) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, LifecycleEvent) error { return nil }
