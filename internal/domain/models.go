package domain

import "time"

// OptionCount is the fixed number of answer options per question.
const OptionCount = 4

// Question models an MCQ question with four options and one correct option index.
type Question struct {
	ID           string   `json:"id"`
	Text         string   `json:"question"`
	Options      []string `json:"answers"`
	CorrectIndex int      `json:"correctAnswer"`
}

// CorrectText returns the text of the correct option, or "" if the index is out of range.
func (q Question) CorrectText() string {
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return ""
	}
	return q.Options[q.CorrectIndex]
}

// Clone returns a copy that shares no backing arrays with q.
func (q Question) Clone() Question {
	out := q
	out.Options = append([]string(nil), q.Options...)
	return out
}

// Quiz is a named collection of questions as served by the content store.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title,omitempty"`
	Questions []Question `json:"questions"`
}

// Player is a connection taking part in a session.
type Player struct {
	ConnectionID string `json:"id"`
	Nickname     string `json:"nickname"`
	Score        int    `json:"score"`

	// JoinOrder breaks leaderboard ties; lower joined earlier.
	JoinOrder int `json:"-"`
}

// Answer is a player's single submission for the current question.
type Answer struct {
	OptionIndex int
	Correct     bool
	Points      int
	SubmittedAt time.Time
	Elapsed     time.Duration
}

// LeaderboardEntry is one ranked row of a leaderboard.
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	PlayerID string `json:"playerId"`
	Nickname string `json:"nickname"`
	Score    int    `json:"score"`
}

// PlayerResult summarizes how a player did on the current question.
type PlayerResult struct {
	PlayerID string `json:"playerId"`
	Nickname string `json:"nickname"`
	Answered bool   `json:"answered"`
	Correct  bool   `json:"correct"`
	Points   int    `json:"points"`
	Score    int    `json:"score"`
}
