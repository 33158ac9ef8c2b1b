package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"live-quiz-service/internal/domain"
)

const (
	DefaultPreRoll      = 3 * time.Second
	DefaultCountdown    = 3 * time.Second
	DefaultCleanupDelay = 60 * time.Second

	maxCreateAttempts = 5
)

// SessionRepository abstracts the registry of live sessions (in-memory, Redis-marked, etc).
// Only Reserve may wait on the network; it is called without the service lock.
type SessionRepository interface {
	// Reserve claims pin for hostID, failing with domain.ErrPinInUse if it is taken.
	Reserve(ctx context.Context, pin, hostID string) error
	// Release gives up a reservation that never became a session.
	Release(pin string)
	// Create registers session, failing with domain.ErrPinInUse if its PIN is taken.
	Create(session *Session) error
	Get(pin string) (*Session, bool)
	Exists(pin string) bool
	// Touch extends the lifetime of a live session's reservation.
	Touch(pin string)
	Delete(pin string)
	List() []*Session
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuestionSource selects where a new session's questions come from. A non-nil
// Questions slice (even an empty one) is a custom set; otherwise QuizID is
// fetched from the content store; with neither, the fallback set is used.
type QuestionSource struct {
	Questions []domain.Question
	QuizID    string
}

// Options tunes a GameService. Zero values fall back to defaults, except
// PreRoll where zero means no pre-roll.
type Options struct {
	Clock        clockwork.Clock
	PreRoll      time.Duration
	Countdown    time.Duration
	CleanupDelay time.Duration
	Fallback     []domain.Question
	Publisher    EventPublisher
	Pins         *PinAllocator
}

// GameService orchestrates live game sessions. A single mutex serializes every
// handler and timer callback.
type GameService struct {
	mu       sync.Mutex
	sessions SessionRepository
	quizzes  QuizRepository
	notifier Broadcaster
	events   EventPublisher
	pins     *PinAllocator
	clock    clockwork.Clock
	timers   *timerSet

	preRoll      time.Duration
	countdown    time.Duration
	cleanupDelay time.Duration
	fallback     []domain.Question
}

func NewGameService(store SessionRepository, quizzes QuizRepository, notifier Broadcaster, opts Options) *GameService {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Publisher == nil {
		opts.Publisher = noopPublisher{}
	}
	if opts.Pins == nil {
		opts.Pins = NewPinAllocator()
	}
	if opts.PreRoll < 0 {
		opts.PreRoll = 0
	}
	if opts.Countdown <= 0 {
		opts.Countdown = DefaultCountdown
	}
	if opts.CleanupDelay <= 0 {
		opts.CleanupDelay = DefaultCleanupDelay
	}

	s := &GameService{
		sessions:     store,
		quizzes:      quizzes,
		notifier:     notifier,
		events:       opts.Publisher,
		pins:         opts.Pins,
		clock:        opts.Clock,
		preRoll:      opts.PreRoll,
		countdown:    opts.Countdown,
		cleanupDelay: opts.CleanupDelay,
		fallback:     opts.Fallback,
	}
	s.timers = newTimerSet(opts.Clock, &s.mu)
	return s
}

// CreateSession registers a new LOBBY session hosted by hostID and returns its PIN.
// The content store is consulted before anything becomes visible in the registry.
func (s *GameService) CreateSession(ctx context.Context, hostID string, src QuestionSource) (string, error) {
	questions, err := s.resolveQuestions(ctx, src)
	if err != nil {
		return "", err
	}

	pin, err := s.reservePin(ctx, hostID)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session := NewSession(pin, hostID, questions, s.clock.Now())
	if err := s.sessions.Create(session); err != nil {
		s.sessions.Release(pin)
		return "", err
	}

	log.Info().
		Str("pin", session.pin).
		Str("host", hostID).
		Int("questions", len(session.questions)).
		Msg("game created")

	s.notifier.Send(hostID, Event{Type: EventSessionCreated, Payload: SessionCreatedPayload{
		PIN:            session.pin,
		TotalQuestions: len(session.questions),
	}})
	s.publish(ctx, session, LifecycleCreated, "")
	return session.pin, nil
}

func (s *GameService) reservePin(ctx context.Context, hostID string) (string, error) {
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		pin, err := s.pins.Allocate(s.sessions.Exists)
		if err != nil {
			return "", err
		}
		err = s.sessions.Reserve(ctx, pin, hostID)
		if errors.Is(err, domain.ErrPinInUse) {
			continue
		}
		if err != nil {
			return "", err
		}
		return pin, nil
	}
	return "", domain.ErrPinExhausted
}

func (s *GameService) resolveQuestions(ctx context.Context, src QuestionSource) ([]domain.Question, error) {
	var questions []domain.Question
	switch {
	case src.Questions != nil:
		questions = src.Questions
	case src.QuizID != "":
		if s.quizzes == nil {
			return nil, fmt.Errorf("%w: no content store configured", domain.ErrProviderFailure)
		}
		quiz, err := s.quizzes.GetQuiz(ctx, src.QuizID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrProviderFailure, err)
		}
		questions = quiz.Questions
	default:
		questions = s.fallback
	}
	if err := domain.ValidateQuestions(questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// JoinSession adds connID as a player of the lobby identified by pin.
func (s *GameService) JoinSession(_ context.Context, connID, pin, nickname string) error {
	if err := domain.ValidatePin(pin); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions.Get(pin)
	if !ok {
		return domain.ErrSessionNotFound
	}
	if session.state != StateLobby {
		return domain.ErrAlreadyStarted
	}
	name, err := domain.NormalizeNickname(nickname)
	if err != nil {
		return err
	}
	if _, joined := session.players[connID]; joined || connID == session.hostID {
		return domain.ErrAlreadyJoined
	}

	session.addPlayer(connID, name)
	s.sessions.Touch(pin)
	log.Info().Str("pin", pin).Str("player", connID).Str("nickname", name).Msg("player joined")

	s.notifier.Send(connID, Event{Type: EventJoinResult, Payload: JoinResultPayload{
		Success:  true,
		PIN:      pin,
		Nickname: name,
	}})
	s.sendRoster(session)
	return nil
}

// StartSession moves a lobby to its first question.
func (s *GameService) StartSession(ctx context.Context, requesterID, pin string, timeLimitSeconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.hostSession(requesterID, pin)
	if err != nil {
		return err
	}
	if err := domain.ValidateTimeLimit(timeLimitSeconds); err != nil {
		return err
	}
	if session.state != StateLobby {
		return domain.ErrInvalidState
	}

	session.timeLimit = time.Duration(timeLimitSeconds) * time.Second
	s.beginQuestion(session, 0)
	log.Info().Str("pin", pin).Int("time_limit", timeLimitSeconds).Int("players", len(session.players)).Msg("game started")
	s.publish(ctx, session, LifecycleStarted, "")
	return nil
}

// SubmitAnswer records a player's answer for the current question. Stale or
// malformed submissions are dropped without error; late ones fail with ErrTimeExpired.
func (s *GameService) SubmitAnswer(_ context.Context, playerID, pin string, optionIndex int) error {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions.Get(pin)
	if !ok {
		return nil
	}
	player, ok := session.players[playerID]
	if !ok || session.state != StateQuestion {
		return nil
	}
	if optionIndex < 0 || optionIndex >= domain.OptionCount || session.questionStartTime.IsZero() {
		return nil
	}
	question, ok := session.currentQuestion()
	if !ok {
		return nil
	}

	elapsed := now.Sub(session.questionStartTime)
	if elapsed > session.timeLimit {
		return domain.ErrTimeExpired
	}
	if _, answered := session.answers[playerID]; answered {
		return nil
	}
	if elapsed < 0 {
		elapsed = 0
	}

	correct := optionIndex == question.CorrectIndex
	points := ScoreAnswer(correct, elapsed, session.timeLimit)
	player.Score += points
	session.answers[playerID] = domain.Answer{
		OptionIndex: optionIndex,
		Correct:     correct,
		Points:      points,
		SubmittedAt: now,
		Elapsed:     elapsed,
	}

	log.Debug().
		Str("pin", pin).
		Str("player", playerID).
		Bool("correct", correct).
		Int("points", points).
		Dur("elapsed", elapsed).
		Msg("answer recorded")

	s.notifier.Send(playerID, Event{Type: EventAnswerConfirmed, Payload: AnswerConfirmedPayload{
		QuestionNumber: session.currentIndex + 1,
	}})

	count := Event{Type: EventAnswerCountUpdate, Payload: AnswerCountPayload{
		Answered: session.answeredCount(),
		Total:    len(session.players),
	}}
	s.notifier.Send(session.hostID, count)
	s.sendAll(session.answeredPlayerIDs(), count)

	if session.answeredCount() >= len(session.players) {
		s.reveal(session)
	}
	return nil
}

// RequestResults closes the current question and shows the leaderboard.
func (s *GameService) RequestResults(_ context.Context, requesterID, pin string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.hostSession(requesterID, pin)
	if err != nil {
		return err
	}
	s.timers.cancel(pin, revealTimer)

	question, ok := session.currentQuestion()
	if !ok {
		return domain.ErrInvalidQuestionState
	}
	switch session.state {
	case StateResult:
		return nil
	case StateEnded:
		return domain.ErrInvalidState
	}

	session.state = StateResult
	s.sendAll(s.everyone(session), Event{Type: EventQuestionResults, Payload: QuestionResultsPayload{
		QuestionNumber:    session.currentIndex + 1,
		TotalQuestions:    len(session.questions),
		CorrectOption:     question.CorrectIndex,
		CorrectOptionText: question.CorrectText(),
		Leaderboard:       session.leaderboard(),
		Results:           session.results(),
		IsLastQuestion:    session.isLastQuestion(),
	}})
	log.Info().Str("pin", pin).Int("question", session.currentIndex+1).Msg("results shown")
	return nil
}

// AdvanceQuestion ends the game after the last question, otherwise schedules
// the next question behind a countdown. Repeated calls replace the pending countdown.
func (s *GameService) AdvanceQuestion(ctx context.Context, requesterID, pin string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.hostSession(requesterID, pin)
	if err != nil {
		return err
	}
	if session.state == StateLobby || session.state == StateEnded {
		return domain.ErrInvalidState
	}
	s.timers.cancel(pin, advanceTimer)

	next := session.currentIndex + 1
	if next >= len(session.questions) {
		s.finish(ctx, session, EndReasonCompleted)
		return nil
	}

	s.sendAll(s.everyone(session), Event{Type: EventCountdown, Payload: CountdownPayload{
		Seconds: int(s.countdown / time.Second),
	}})
	s.timers.arm(pin, advanceTimer, s.countdown, func() {
		current, ok := s.sessions.Get(pin)
		if !ok || current.state == StateEnded {
			log.Debug().Str("pin", pin).Msg("countdown fired for a finished game")
			return
		}
		s.beginQuestion(current, next)
	})
	return nil
}

// EndSession finishes the game early at the host's request.
func (s *GameService) EndSession(ctx context.Context, requesterID, pin string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.hostSession(requesterID, pin)
	if err != nil {
		return err
	}
	if session.state == StateEnded {
		return domain.ErrInvalidState
	}
	s.finish(ctx, session, EndReasonEndedByHost)
	return nil
}

// Disconnect handles a closed connection: a host takes its sessions down
// immediately, a player is dropped from the roster.
func (s *GameService) Disconnect(ctx context.Context, connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, session := range s.sessions.List() {
		if session.hostID == connID {
			s.sendAll(session.playerIDs(), Event{Type: EventHostDisconnected})
			s.timers.cancelAll(session.pin)
			s.sessions.Delete(session.pin)
			log.Info().Str("pin", session.pin).Msg("game deleted (host disconnected)")
			s.publish(ctx, session, LifecycleEnded, EndReasonHostDisconnected)
			continue
		}
		if session.removePlayer(connID) {
			log.Info().Str("pin", session.pin).Str("player", connID).Msg("player left")
			s.sendRoster(session)
		}
	}
}

// Snapshot returns a read-only view of the session identified by pin.
func (s *GameService) Snapshot(_ context.Context, pin string) (SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions.Get(pin)
	if !ok {
		return SessionSnapshot{}, domain.ErrSessionNotFound
	}
	return session.snapshot(), nil
}

// Close stops every pending timer.
func (s *GameService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timers.stopAll()
}

func (s *GameService) hostSession(requesterID, pin string) (*Session, error) {
	session, ok := s.sessions.Get(pin)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if session.hostID != requesterID {
		return nil, domain.ErrUnauthorized
	}
	return session, nil
}

// beginQuestion enters question index, emits the question payloads and arms the reveal timer.
func (s *GameService) beginQuestion(session *Session, index int) {
	session.enterQuestion(index, s.clock.Now().Add(s.preRoll))
	s.sessions.Touch(session.pin)
	question, _ := session.currentQuestion()

	limit := int(session.timeLimit / time.Second)
	preRoll := int(s.preRoll / time.Second)

	s.notifier.Send(session.hostID, Event{Type: EventQuestionShown, Payload: QuestionShownPayload{
		Question:       question.Text,
		Options:        append([]string(nil), question.Options...),
		QuestionNumber: index + 1,
		TotalQuestions: len(session.questions),
		TimeLimit:      limit,
		TotalPlayers:   len(session.players),
		PreRoll:        preRoll,
	}})
	s.sendAll(session.playerIDs(), Event{Type: EventBeginAnswering, Payload: BeginAnsweringPayload{
		QuestionNumber: index + 1,
		TotalQuestions: len(session.questions),
		TimeLimit:      limit,
		PreRoll:        preRoll,
	}})

	pin := session.pin
	s.timers.arm(pin, revealTimer, session.timeLimit+s.preRoll, func() {
		current, ok := s.sessions.Get(pin)
		if !ok || current.state != StateQuestion {
			return
		}
		s.reveal(current)
	})
}

// reveal shows the correct answer without leaving QUESTION. It runs at most once per question.
func (s *GameService) reveal(session *Session) {
	s.timers.cancel(session.pin, revealTimer)
	if session.revealed {
		return
	}
	question, ok := session.currentQuestion()
	if !ok {
		return
	}
	session.revealed = true

	s.sendAll(s.everyone(session), Event{Type: EventAnswerRevealed, Payload: AnswerRevealedPayload{
		QuestionNumber:    session.currentIndex + 1,
		CorrectOption:     question.CorrectIndex,
		CorrectOptionText: question.CorrectText(),
		Results:           session.results(),
	}})
	log.Debug().Str("pin", session.pin).Int("question", session.currentIndex+1).Msg("answer revealed")
}

// finish moves a session to ENDED and schedules its removal after the grace delay.
func (s *GameService) finish(ctx context.Context, session *Session, reason string) {
	pin := session.pin
	s.timers.cancel(pin, revealTimer)
	s.timers.cancel(pin, advanceTimer)

	session.state = StateEnded
	s.sendAll(s.everyone(session), Event{Type: EventGameEnded, Payload: GameEndedPayload{
		Leaderboard: session.leaderboard(),
	}})

	s.timers.arm(pin, cleanupTimer, s.cleanupDelay, func() {
		if current, ok := s.sessions.Get(pin); ok && current == session {
			s.sessions.Delete(pin)
			log.Info().Str("pin", pin).Msg("game cleaned up")
		}
	})
	log.Info().Str("pin", pin).Str("reason", reason).Msg("game ended")
	s.publish(ctx, session, LifecycleEnded, reason)
}

func (s *GameService) sendRoster(session *Session) {
	players := session.playerList()
	s.notifier.Send(session.hostID, Event{Type: EventRosterUpdate, Payload: RosterPayload{
		Players: players,
		Count:   len(players),
	}})
}

func (s *GameService) everyone(session *Session) []string {
	return append([]string{session.hostID}, session.playerIDs()...)
}

func (s *GameService) sendAll(ids []string, event Event) {
	for _, id := range ids {
		s.notifier.Send(id, event)
	}
}

func (s *GameService) publish(ctx context.Context, session *Session, kind, reason string) {
	event := LifecycleEvent{
		Type:       kind,
		PIN:        session.pin,
		Reason:     reason,
		Players:    len(session.players),
		OccurredAt: s.clock.Now(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Str("pin", session.pin).Str("event", kind).Msg("lifecycle publish failed")
	}
}
