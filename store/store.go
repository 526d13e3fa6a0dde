package store

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"bazinga/models"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a referenced row no longer exists.
	ErrNotFound = errors.New("not found")
	// ErrRoomFull is returned when a join would exceed the room's max players.
	ErrRoomFull = errors.New("room is full")
	// ErrStorageUnavailable wraps any other database failure.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// QuestionSeed is one question+answer pair used to build a new game.
type QuestionSeed struct {
	QuestionText      string
	CorrectAnswerText string
}

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}

func (s *Store) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, wrap(err)
	}
	return &user, nil
}

// GetOrCreateUser implements the idempotent create-or-fetch semantics: two
// requests with the same username reuse one user.
func (s *Store) GetOrCreateUser(username, password string) (*models.User, error) {
	user, err := s.GetUserByUsername(username)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	created := models.User{
		Username: username,
		// Not real hashing; identity is a trusted opaque id in this game.
		HashedPassword: password + "notreallyhashed",
	}
	if err := s.db.Create(&created).Error; err != nil {
		return nil, wrap(err)
	}
	return &created, nil
}

func (s *Store) CreateRoom(name string, maxPlayers int, owner *models.User) (*models.Room, error) {
	room := models.Room{
		RoomCode:   generateRoomCode(),
		Name:       name,
		MaxPlayers: maxPlayers,
		OwnerID:    owner.ID,
		Players:    []models.User{*owner},
	}
	if err := s.db.Create(&room).Error; err != nil {
		return nil, wrap(err)
	}
	return &room, nil
}

func (s *Store) GetRoomByCode(code string) (*models.Room, error) {
	var room models.Room
	err := s.db.Where("room_code = ?", code).
		Preload("Players").
		First(&room).Error
	if err != nil {
		return nil, wrap(err)
	}
	return &room, nil
}

func (s *Store) JoinRoom(code string, user *models.User) (*models.Room, error) {
	room, err := s.GetRoomByCode(code)
	if err != nil {
		return nil, err
	}

	for _, p := range room.Players {
		if p.ID == user.ID {
			return room, nil
		}
	}

	if len(room.Players) >= room.MaxPlayers {
		return nil, ErrRoomFull
	}

	if err := s.db.Model(room).Association("Players").Append(user); err != nil {
		return nil, wrap(err)
	}
	room.Players = append(room.Players, *user)
	return room, nil
}

func (s *Store) GetGame(gameID uint) (*models.Game, error) {
	var game models.Game
	err := s.db.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("questions.id")
	}).First(&game, gameID).Error
	if err != nil {
		return nil, wrap(err)
	}
	return &game, nil
}

// CreateGameWithQuestions persists a new game, its ordered question list and
// a zero score row for every current room member.
func (s *Store) CreateGameWithQuestions(roomID uint, theme string, seeds []QuestionSeed) (*models.Game, error) {
	var room models.Room
	if err := s.db.Preload("Players").First(&room, roomID).Error; err != nil {
		return nil, wrap(err)
	}

	game := models.Game{RoomID: roomID, Theme: theme}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&game).Error; err != nil {
			return err
		}
		for _, player := range room.Players {
			entry := models.PlayerGameScore{PlayerID: player.ID, GameID: game.ID, Score: 0}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
		}
		for _, seed := range seeds {
			question := models.Question{
				GameID:            game.ID,
				QuestionText:      seed.QuestionText,
				CorrectAnswerText: seed.CorrectAnswerText,
			}
			if err := tx.Create(&question).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrap(err)
	}

	return s.GetGame(game.ID)
}

func (s *Store) SetCurrentQuestion(gameID, questionID uint) error {
	return wrap(s.db.Model(&models.Game{}).Where("id = ?", gameID).
		Update("current_question_id", questionID).Error)
}

func (s *Store) GetQuestion(questionID uint) (*models.Question, error) {
	var question models.Question
	if err := s.db.First(&question, questionID).Error; err != nil {
		return nil, wrap(err)
	}
	return &question, nil
}

// CreateAnswer records an answer; playerID is nil for the system-injected
// correct answer.
func (s *Store) CreateAnswer(questionID uint, playerID *uint, text string) (*models.Answer, error) {
	answer := models.Answer{QuestionID: questionID, PlayerID: playerID, AnswerText: text}
	if err := s.db.Create(&answer).Error; err != nil {
		return nil, wrap(err)
	}
	return &answer, nil
}

func (s *Store) AnswersForQuestion(questionID uint) ([]models.Answer, error) {
	var answers []models.Answer
	err := s.db.Where("question_id = ?", questionID).
		Preload("Player").
		Order("answers.id").
		Find(&answers).Error
	if err != nil {
		return nil, wrap(err)
	}
	return answers, nil
}

func (s *Store) SetCorrectAnswer(questionID, answerID uint) error {
	return wrap(s.db.Model(&models.Question{}).Where("id = ?", questionID).
		Update("correct_answer_id", answerID).Error)
}

func (s *Store) CreateVote(answerID, voterID uint) (*models.Vote, error) {
	vote := models.Vote{AnswerID: answerID, VoterID: voterID}
	if err := s.db.Create(&vote).Error; err != nil {
		return nil, wrap(err)
	}
	return &vote, nil
}

func (s *Store) VotesForQuestion(questionID uint) ([]models.Vote, error) {
	var votes []models.Vote
	err := s.db.Joins("JOIN answers ON answers.id = votes.answer_id").
		Where("answers.question_id = ?", questionID).
		Preload("Answer").
		Preload("Answer.Player").
		Preload("Voter").
		Find(&votes).Error
	if err != nil {
		return nil, wrap(err)
	}
	return votes, nil
}

// AddScores bulk-increments the per-game score rows.
func (s *Store) AddScores(gameID uint, deltas map[uint]int) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for playerID, points := range deltas {
			err := tx.Model(&models.PlayerGameScore{}).
				Where("player_id = ? AND game_id = ?", playerID, gameID).
				Update("score", gorm.Expr("score + ?", points)).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	return wrap(err)
}

func (s *Store) ScoresForGame(gameID uint) ([]models.PlayerGameScore, error) {
	var scores []models.PlayerGameScore
	err := s.db.Where("game_id = ?", gameID).
		Preload("Player").
		Order("player_game_scores.id").
		Find(&scores).Error
	if err != nil {
		return nil, wrap(err)
	}
	return scores, nil
}

// ClearAll wipes every table on startup. Sessions are ephemeral by design;
// circular foreign keys are nulled first so the deletes can proceed.
func (s *Store) ClearAll() error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Game{}).Where("1 = 1").
			Update("current_question_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Question{}).Where("1 = 1").
			Update("correct_answer_id", nil).Error; err != nil {
			return err
		}

		for _, stmt := range []string{
			"DELETE FROM votes",
			"DELETE FROM answers",
			"DELETE FROM questions",
			"DELETE FROM player_game_scores",
			"DELETE FROM games",
			"DELETE FROM room_players",
			"DELETE FROM rooms",
			"DELETE FROM users",
		} {
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return wrap(err)
}

func generateRoomCode() string {
	bytes := make([]byte, 3)
	rand.Read(bytes)
	return strings.ToUpper(hex.EncodeToString(bytes))
}
