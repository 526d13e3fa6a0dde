package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"bazinga/content"
	"bazinga/logger"
	"bazinga/models"
	"bazinga/store"

	"github.com/gin-gonic/gin"
)

// Store is the persistence collaborator surface the coordinator needs.
// *store.Store implements it; tests substitute a fake.
type Store interface {
	GetRoomByCode(code string) (*models.Room, error)
	GetGame(gameID uint) (*models.Game, error)
	CreateGameWithQuestions(roomID uint, theme string, seeds []store.QuestionSeed) (*models.Game, error)
	SetCurrentQuestion(gameID, questionID uint) error
	GetQuestion(questionID uint) (*models.Question, error)
	CreateAnswer(questionID uint, playerID *uint, text string) (*models.Answer, error)
	AnswersForQuestion(questionID uint) ([]models.Answer, error)
	SetCorrectAnswer(questionID, answerID uint) error
	CreateVote(answerID, voterID uint) (*models.Vote, error)
	VotesForQuestion(questionID uint) ([]models.Vote, error)
	AddScores(gameID uint, deltas map[uint]int) error
	ScoresForGame(gameID uint) ([]models.PlayerGameScore, error)
}

// Broadcaster is the room-keyed fanout surface: publish an event to every
// viewer, count the active roster, and claim phase transitions so each one
// fires exactly once across instances.
type Broadcaster interface {
	Publish(ctx context.Context, roomCode string, payload []byte) error
	RosterCount(ctx context.Context, roomCode string) (int, error)
	AcquireTransition(ctx context.Context, roomCode, marker string) (bool, error)
	ReleaseTransition(ctx context.Context, roomCode, marker string) error
}

// GameService is the room session coordinator: it drives the phase machine
// Lobby -> QuestionLive -> CollectingAnswers -> Voting -> RoundResults and
// emits every broadcast that moves the clients along with it.
type GameService struct {
	store    Store
	sessions Sessions
	bus      Broadcaster
	content  content.Provider

	// Pacing gaps, overridable in tests. StartDelay lets clients render the
	// game-started transition before the first question lands; RevealDelay
	// gives players time to read their individual vote result.
	StartDelay  time.Duration
	RevealDelay time.Duration

	mu        sync.Mutex
	roomLocks map[string]*sync.Mutex
}

func NewGameService(st Store, sessions Sessions, b Broadcaster, provider content.Provider) *GameService {
	return &GameService{
		store:       st,
		sessions:    sessions,
		bus:         b,
		content:     provider,
		StartDelay:  100 * time.Millisecond,
		RevealDelay: 5 * time.Second,
		roomLocks:   make(map[string]*sync.Mutex),
	}
}

// roomLock serializes completion checks and transitions within this
// instance; the AcquireTransition marker covers races across instances.
func (s *GameService) roomLock(roomCode string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.roomLocks[roomCode]
	if !ok {
		lock = &sync.Mutex{}
		s.roomLocks[roomCode] = lock
	}
	return lock
}

func (s *GameService) broadcast(ctx context.Context, roomCode, event string, fields gin.H) {
	payload, err := encodeEvent(event, fields)
	if err != nil {
		logger.Errorf("marshal %s event for room %s: %v", event, roomCode, err)
		return
	}
	if err := s.bus.Publish(ctx, roomCode, payload); err != nil {
		logger.Errorf("broadcast %s to room %s: %v", event, roomCode, err)
	}
}

// abortTransition surfaces a fault that hit after the transition marker was
// claimed, then frees the marker so the next completion check can retry once
// the fault clears.
func (s *GameService) abortTransition(ctx context.Context, roomCode, marker, message string) {
	s.broadcast(ctx, roomCode, "error", gin.H{"message": message})
	if err := s.bus.ReleaseTransition(ctx, roomCode, marker); err != nil {
		logger.Errorf("release transition %s in room %s: %v", marker, roomCode, err)
	}
}

func (s *GameService) Themes() []string {
	return s.content.Themes()
}

// StartGame begins a new round: fetches unseen questions for the theme,
// persists the game with zeroed scores, seeds the session state and walks
// every client into the first question.
func (s *GameService) StartGame(ctx context.Context, roomCode, theme string, numQuestions int) error {
	room, err := s.store.GetRoomByCode(roomCode)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		logger.Errorf("load room %s: %v", roomCode, err)
		s.broadcast(ctx, roomCode, "error", gin.H{"message": "Something went wrong starting the game."})
		return err
	}
	if err != nil || len(room.Players) < 2 {
		logger.Warnf("cannot start game in room %s: not enough players", roomCode)
		s.broadcast(ctx, roomCode, "error", gin.H{"message": "Not enough players to start."})
		return ErrInsufficientPlayers
	}

	state, err := s.sessions.Load(ctx, roomCode)
	if err != nil {
		logger.Errorf("load state for room %s: %v", roomCode, err)
		return err
	}
	if state == nil {
		state = NewRoundState()
	}

	questions, err := s.content.Questions(theme, numQuestions, state.Seen)
	if err != nil || len(questions) == 0 {
		logger.Warnf("cannot start game in room %s: no questions for theme %q", roomCode, theme)
		s.broadcast(ctx, roomCode, "error", gin.H{"message": "Failed to generate questions for the theme."})
		return ErrContentUnavailable
	}

	seeds := make([]store.QuestionSeed, len(questions))
	for i, qa := range questions {
		seeds[i] = store.QuestionSeed{QuestionText: qa.QuestionText, CorrectAnswerText: qa.CorrectAnswer}
	}
	game, err := s.store.CreateGameWithQuestions(room.ID, theme, seeds)
	if err != nil {
		logger.Errorf("create game in room %s: %v", roomCode, err)
		s.broadcast(ctx, roomCode, "error", gin.H{"message": "Something went wrong starting the game."})
		return err
	}

	state.GameID = game.ID
	state.QuestionIndex = 0
	for _, qa := range questions {
		state.Seen[qa.QuestionText] = true
	}
	if err := s.sessions.Save(ctx, roomCode, state); err != nil {
		logger.Errorf("save state for room %s: %v", roomCode, err)
		return err
	}

	first := game.Questions[0]
	if err := s.store.SetCurrentQuestion(game.ID, first.ID); err != nil {
		logger.Errorf("set current question for game %d: %v", game.ID, err)
		return err
	}

	logger.Infof("game %d started in room %s: theme %q, %d questions", game.ID, roomCode, theme, len(game.Questions))
	s.broadcast(ctx, roomCode, "game_started", gin.H{"game": game})
	time.Sleep(s.StartDelay)
	s.broadcast(ctx, roomCode, "new_question", gin.H{"question": first})
	s.BroadcastPlayerUpdate(ctx, roomCode)
	return nil
}

// SubmitAnswer records a decoy. Text matching the hidden correct answer or
// any existing answer (case-insensitively) is rejected back to the submitter
// only; accepted answers are announced and may complete the phase.
func (s *GameService) SubmitAnswer(ctx context.Context, roomCode string, userID, questionID uint, text string) error {
	question, err := s.store.GetQuestion(questionID)
	if err != nil {
		return err
	}

	if strings.EqualFold(text, question.CorrectAnswerText) {
		return &DuplicateSubmissionError{Message: "This is too similar to the correct answer. Try something else!"}
	}

	existing, err := s.store.AnswersForQuestion(questionID)
	if err != nil {
		return err
	}
	for _, answer := range existing {
		if strings.EqualFold(answer.AnswerText, text) {
			return &DuplicateSubmissionError{Message: "Someone already submitted that answer. Try to be more original!"}
		}
	}

	if _, err := s.store.CreateAnswer(questionID, &userID, text); err != nil {
		return err
	}

	s.broadcast(ctx, roomCode, "player_answered", gin.H{"user_id": userID})
	s.CheckAnswerCompletion(ctx, roomCode)
	return nil
}

// CheckAnswerCompletion opens voting once every rostered player has
// answered: the true answer is injected, marked correct, and the full set is
// shuffled into anonymous options.
func (s *GameService) CheckAnswerCompletion(ctx context.Context, roomCode string) {
	lock := s.roomLock(roomCode)
	lock.Lock()
	defer lock.Unlock()

	_, game := s.currentGame(ctx, roomCode)
	if game == nil || game.CurrentQuestionID == nil {
		return
	}
	questionID := *game.CurrentQuestionID

	answers, err := s.store.AnswersForQuestion(questionID)
	if err != nil {
		logger.Errorf("list answers for question %d: %v", questionID, err)
		return
	}
	active, err := s.bus.RosterCount(ctx, roomCode)
	if err != nil {
		logger.Errorf("roster count for room %s: %v", roomCode, err)
		return
	}
	if active == 0 || len(answers) != active {
		return
	}

	marker := fmt.Sprintf("voting:%d", questionID)
	claimed, err := s.bus.AcquireTransition(ctx, roomCode, marker)
	if err != nil || !claimed {
		return
	}

	question, err := s.store.GetQuestion(questionID)
	if err != nil {
		logger.Errorf("load question %d: %v", questionID, err)
		s.abortTransition(ctx, roomCode, marker, "Something went wrong starting the vote.")
		return
	}
	correct, err := s.store.CreateAnswer(questionID, nil, question.CorrectAnswerText)
	if err != nil {
		logger.Errorf("inject correct answer for question %d: %v", questionID, err)
		s.abortTransition(ctx, roomCode, marker, "Something went wrong starting the vote.")
		return
	}
	if err := s.store.SetCorrectAnswer(questionID, correct.ID); err != nil {
		logger.Errorf("mark correct answer for question %d: %v", questionID, err)
		s.abortTransition(ctx, roomCode, marker, "Something went wrong starting the vote.")
		return
	}

	all, err := s.store.AnswersForQuestion(questionID)
	if err != nil {
		logger.Errorf("list answers for question %d: %v", questionID, err)
		s.abortTransition(ctx, roomCode, marker, "Something went wrong starting the vote.")
		return
	}
	options := make([]AnswerOption, len(all))
	for i, answer := range all {
		options[i] = AnswerOption{ID: answer.ID, Text: answer.AnswerText}
	}
	rand.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})

	logger.Infof("room %s: all %d answers in for question %d, voting open", roomCode, active, questionID)
	s.broadcast(ctx, roomCode, "start_voting", gin.H{"answers": options})
}

// SubmitVote records a vote and may close the voting phase.
func (s *GameService) SubmitVote(ctx context.Context, roomCode string, userID, answerID uint) error {
	if _, err := s.store.CreateVote(answerID, userID); err != nil {
		return err
	}
	s.broadcast(ctx, roomCode, "player_voted", gin.H{"user_id": userID})
	s.checkVoteCompletion(ctx, roomCode)
	return nil
}

func (s *GameService) checkVoteCompletion(ctx context.Context, roomCode string) {
	lock := s.roomLock(roomCode)
	lock.Lock()
	defer lock.Unlock()

	state, game := s.currentGame(ctx, roomCode)
	if game == nil || game.CurrentQuestionID == nil {
		return
	}
	questionID := *game.CurrentQuestionID

	votes, err := s.store.VotesForQuestion(questionID)
	if err != nil {
		logger.Errorf("list votes for question %d: %v", questionID, err)
		return
	}
	active, err := s.bus.RosterCount(ctx, roomCode)
	if err != nil {
		logger.Errorf("roster count for room %s: %v", roomCode, err)
		return
	}
	// Count distinct voters: a repeat vote must neither complete the phase
	// early nor push the count past the roster for good.
	voted := map[uint]bool{}
	for _, vote := range votes {
		voted[vote.VoterID] = true
	}
	if active == 0 || len(voted) != active {
		return
	}

	marker := fmt.Sprintf("results:%d", questionID)
	claimed, err := s.bus.AcquireTransition(ctx, roomCode, marker)
	if err != nil || !claimed {
		return
	}

	question, err := s.store.GetQuestion(questionID)
	if err != nil || question.CorrectAnswerID == nil {
		logger.Errorf("question %d has no correct answer marked", questionID)
		s.abortTransition(ctx, roomCode, marker, "Something went wrong finishing the round.")
		return
	}
	correctID := *question.CorrectAnswerID

	// Per-voter outcome first, so everyone learns their own fate at once.
	outcomes := map[uint]VoteOutcome{}
	for _, vote := range votes {
		if _, done := outcomes[vote.VoterID]; done {
			continue
		}
		outcome := VoteOutcome{
			IsCorrect: vote.AnswerID == correctID,
			Text:      vote.Answer.AnswerText,
		}
		if !outcome.IsCorrect && vote.Answer.Player != nil {
			name := vote.Answer.Player.Username
			outcome.FooledBy = &name
		}
		outcomes[vote.VoterID] = outcome
	}
	s.broadcast(ctx, roomCode, "all_vote_results", gin.H{"results": outcomes})

	time.Sleep(s.RevealDelay)

	answers, err := s.store.AnswersForQuestion(questionID)
	if err != nil {
		logger.Errorf("list answers for question %d: %v", questionID, err)
		s.abortTransition(ctx, roomCode, marker, "Something went wrong finishing the round.")
		return
	}

	deltas := ScoreRound(answers, correctID, votes)

	results := make([]AnswerResult, 0, len(answers))
	for _, answer := range answers {
		voters := []string{}
		for _, vote := range votes {
			if vote.AnswerID == answer.ID {
				voters = append(voters, vote.Voter.Username)
			}
		}

		result := AnswerResult{AnswerText: answer.AnswerText, Voters: voters}
		switch {
		case answer.ID == correctID:
			result.Author = "Bazinga!"
		case answer.Player != nil:
			result.Author = answer.Player.Username
			result.Points = len(voters)
		default:
			result.Author = "Unknown"
			result.Points = len(voters)
		}
		results = append(results, result)
	}

	if len(deltas) > 0 {
		if err := s.store.AddScores(state.GameID, deltas); err != nil {
			logger.Errorf("apply scores for game %d: %v", state.GameID, err)
			s.abortTransition(ctx, roomCode, marker, "Something went wrong applying the scores.")
			return
		}
		s.BroadcastPlayerUpdate(ctx, roomCode)
	}

	logger.Infof("room %s: round over for question %d", roomCode, questionID)
	s.broadcast(ctx, roomCode, "round_over", gin.H{"results": results})
	// The host advances manually from here.
}

// Advance moves the room to the next question, or ends the game with the
// final leaderboard when none remain. Owner-only.
func (s *GameService) Advance(ctx context.Context, roomCode string, userID uint) error {
	room, err := s.store.GetRoomByCode(roomCode)
	if err != nil {
		return err
	}
	if room.OwnerID != userID {
		return ErrForbidden
	}

	lock := s.roomLock(roomCode)
	lock.Lock()
	defer lock.Unlock()

	state, game := s.currentGame(ctx, roomCode)
	if game == nil {
		return store.ErrNotFound
	}

	state.QuestionIndex++
	if err := s.sessions.Save(ctx, roomCode, state); err != nil {
		logger.Errorf("save state for room %s: %v", roomCode, err)
		return err
	}

	if state.QuestionIndex < len(game.Questions) {
		next := game.Questions[state.QuestionIndex]
		if err := s.store.SetCurrentQuestion(game.ID, next.ID); err != nil {
			logger.Errorf("set current question for game %d: %v", game.ID, err)
			return err
		}
		s.broadcast(ctx, roomCode, "new_question", gin.H{"question": next})
		return nil
	}

	leaderboard, err := s.leaderboard(game.ID)
	if err != nil {
		logger.Errorf("build leaderboard for game %d: %v", game.ID, err)
		return err
	}
	logger.Infof("room %s: game %d over", roomCode, game.ID)
	s.broadcast(ctx, roomCode, "game_over", gin.H{"leaderboard": leaderboard})
	return nil
}

// HandleDisconnect runs after a player's presence is removed. The remaining
// players may now all have answered, so the completion check reruns before
// the shrunken member list goes out.
func (s *GameService) HandleDisconnect(ctx context.Context, roomCode string, userID uint) {
	logger.Infof("player %d left room %s", userID, roomCode)
	s.CheckAnswerCompletion(ctx, roomCode)
	s.BroadcastPlayerUpdate(ctx, roomCode)
}

// BroadcastPlayerUpdate pushes the current member list with live scores, or
// zero scores when no game is running.
func (s *GameService) BroadcastPlayerUpdate(ctx context.Context, roomCode string) {
	room, err := s.store.GetRoomByCode(roomCode)
	if err != nil {
		return
	}

	var players []PlayerView
	state, err := s.sessions.Load(ctx, roomCode)
	if err == nil && state != nil && state.GameID > 0 {
		scores, err := s.store.ScoresForGame(state.GameID)
		if err != nil {
			logger.Errorf("list scores for game %d: %v", state.GameID, err)
			return
		}
		for _, entry := range scores {
			players = append(players, PlayerView{ID: entry.PlayerID, Username: entry.Player.Username, Score: entry.Score})
		}
	} else {
		for _, player := range room.Players {
			players = append(players, PlayerView{ID: player.ID, Username: player.Username, Score: 0})
		}
	}

	s.broadcast(ctx, roomCode, "player_update", gin.H{"players": players})
}

// ReplaySnapshot returns the game_started and new_question payloads for a
// late joiner when a round is in progress, or nil when the room is idle.
func (s *GameService) ReplaySnapshot(ctx context.Context, roomCode string) ([][]byte, error) {
	state, game := s.currentGame(ctx, roomCode)
	if state == nil || game == nil || game.CurrentQuestionID == nil {
		return nil, nil
	}

	question, err := s.store.GetQuestion(*game.CurrentQuestionID)
	if err != nil {
		return nil, err
	}

	started, err := encodeEvent("game_started", gin.H{"game": game})
	if err != nil {
		return nil, err
	}
	current, err := encodeEvent("new_question", gin.H{"question": question})
	if err != nil {
		return nil, err
	}
	return [][]byte{started, current}, nil
}

// currentGame resolves the room's live game from session state. Either
// return value may be nil when the room has no round in flight.
func (s *GameService) currentGame(ctx context.Context, roomCode string) (*RoundState, *models.Game) {
	state, err := s.sessions.Load(ctx, roomCode)
	if err != nil {
		logger.Errorf("load state for room %s: %v", roomCode, err)
		return nil, nil
	}
	if state == nil || state.GameID == 0 {
		return nil, nil
	}

	game, err := s.store.GetGame(state.GameID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.Errorf("load game %d: %v", state.GameID, err)
		}
		return state, nil
	}
	return state, game
}

func (s *GameService) leaderboard(gameID uint) ([]PlayerView, error) {
	scores, err := s.store.ScoresForGame(gameID)
	if err != nil {
		return nil, err
	}

	leaderboard := make([]PlayerView, 0, len(scores))
	for _, entry := range scores {
		leaderboard = append(leaderboard, PlayerView{ID: entry.PlayerID, Username: entry.Player.Username, Score: entry.Score})
	}
	sort.SliceStable(leaderboard, func(i, j int) bool {
		return leaderboard[i].Score > leaderboard[j].Score
	})
	return leaderboard, nil
}
