package app

import (
	"sort"
	"time"

	"live-quiz-service/internal/domain"
)

// State is a session's position in the game lifecycle.
type State string

const (
	StateLobby    State = "LOBBY"
	StateQuestion State = "QUESTION"
	StateResult   State = "RESULT"
	StateEnded    State = "ENDED"
)

// Session is the in-memory aggregate for one running game. It is only touched
// while the owning GameService holds its lock.
type Session struct {
	pin       string
	hostID    string
	createdAt time.Time

	state             State
	questions         []domain.Question
	currentIndex      int
	timeLimit         time.Duration
	questionStartTime time.Time
	revealed          bool

	players map[string]*domain.Player
	answers map[string]domain.Answer
	joinSeq int
}

// NewSession builds a LOBBY session owning a private copy of questions.
func NewSession(pin, hostID string, questions []domain.Question, now time.Time) *Session {
	owned := make([]domain.Question, len(questions))
	for i, q := range questions {
		owned[i] = q.Clone()
	}
	return &Session{
		pin:          pin,
		hostID:       hostID,
		createdAt:    now,
		state:        StateLobby,
		questions:    owned,
		currentIndex: -1,
		players:      make(map[string]*domain.Player),
		answers:      make(map[string]domain.Answer),
	}
}

// PIN returns the session identifier.
func (s *Session) PIN() string { return s.pin }

// HostID returns the host connection id.
func (s *Session) HostID() string { return s.hostID }

func (s *Session) addPlayer(connID, nickname string) domain.Player {
	s.joinSeq++
	p := &domain.Player{ConnectionID: connID, Nickname: nickname, JoinOrder: s.joinSeq}
	s.players[connID] = p
	return *p
}

func (s *Session) removePlayer(connID string) bool {
	if _, ok := s.players[connID]; !ok {
		return false
	}
	delete(s.players, connID)
	return true
}

// playerList returns a snapshot of players in join order.
func (s *Session) playerList() []domain.Player {
	out := make([]domain.Player, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinOrder < out[j].JoinOrder })
	return out
}

func (s *Session) playerIDs() []string {
	players := s.playerList()
	ids := make([]string, len(players))
	for i, p := range players {
		ids[i] = p.ConnectionID
	}
	return ids
}

func (s *Session) currentQuestion() (domain.Question, bool) {
	if s.currentIndex < 0 || s.currentIndex >= len(s.questions) {
		return domain.Question{}, false
	}
	return s.questions[s.currentIndex], true
}

func (s *Session) isLastQuestion() bool {
	return s.currentIndex == len(s.questions)-1
}

// enterQuestion moves to question index, clearing answers.
func (s *Session) enterQuestion(index int, startAt time.Time) {
	s.currentIndex = index
	s.state = StateQuestion
	s.answers = make(map[string]domain.Answer)
	s.questionStartTime = startAt
	s.revealed = false
}

func (s *Session) leaderboard() []domain.LeaderboardEntry {
	return BuildLeaderboard(s.playerList())
}

// results summarizes every current player's outcome on the current question.
func (s *Session) results() []domain.PlayerResult {
	players := s.playerList()
	out := make([]domain.PlayerResult, 0, len(players))
	for _, p := range players {
		ans, answered := s.answers[p.ConnectionID]
		out = append(out, domain.PlayerResult{
			PlayerID: p.ConnectionID,
			Nickname: p.Nickname,
			Answered: answered,
			Correct:  answered && ans.Correct,
			Points:   ans.Points,
			Score:    p.Score,
		})
	}
	return out
}

// answeredPlayerIDs lists current players with a recorded answer.
func (s *Session) answeredPlayerIDs() []string {
	var ids []string
	for _, id := range s.playerIDs() {
		if _, ok := s.answers[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func (s *Session) answeredCount() int {
	n := 0
	for id := range s.answers {
		if _, ok := s.players[id]; ok {
			n++
		}
	}
	return n
}

// SessionSnapshot is a read-only view of a session.
type SessionSnapshot struct {
	PIN            string                    `json:"pin"`
	State          State                     `json:"state"`
	QuestionNumber int                       `json:"questionNumber"`
	TotalQuestions int                       `json:"totalQuestions"`
	TimeLimit      int                       `json:"timeLimit,omitempty"`
	PlayerCount    int                       `json:"playerCount"`
	AnsweredCount  int                       `json:"answeredCount"`
	Leaderboard    []domain.LeaderboardEntry `json:"leaderboard"`
	CreatedAt      time.Time                 `json:"createdAt"`
}

func (s *Session) snapshot() SessionSnapshot {
	return SessionSnapshot{
		PIN:            s.pin,
		State:          s.state,
		QuestionNumber: s.currentIndex + 1,
		TotalQuestions: len(s.questions),
		TimeLimit:      int(s.timeLimit / time.Second),
		PlayerCount:    len(s.players),
		AnsweredCount:  s.answeredCount(),
		Leaderboard:    s.leaderboard(),
		CreatedAt:      s.createdAt,
	}
}
