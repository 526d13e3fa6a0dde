package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RoundState is the ephemeral per-room session state: which game is live,
// which question the room is on, and every question text the room has
// already seen (so restarts within the room never repeat content).
type RoundState struct {
	GameID        uint
	QuestionIndex int
	Seen          map[string]bool
}

func NewRoundState() *RoundState {
	return &RoundState{Seen: map[string]bool{}}
}

// Sessions is the session state store boundary. Load returns (nil, nil)
// when no round state exists for the room.
type Sessions interface {
	Load(ctx context.Context, roomCode string) (*RoundState, error)
	Save(ctx context.Context, roomCode string, state *RoundState) error
}

// RedisSessions keeps round state in a Redis hash under game_state:<code>,
// with the seen set JSON-encoded into a single field.
type RedisSessions struct {
	redis *redis.Client
}

func NewRedisSessions(redisClient *redis.Client) *RedisSessions {
	return &RedisSessions{redis: redisClient}
}

func sessionKey(roomCode string) string {
	return "game_state:" + roomCode
}

func (s *RedisSessions) Load(ctx context.Context, roomCode string) (*RoundState, error) {
	fields, err := s.redis.HGetAll(ctx, sessionKey(roomCode)).Result()
	if err != nil {
		return nil, fmt.Errorf("load round state for %s: %w", roomCode, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return decodeRoundState(fields)
}

func (s *RedisSessions) Save(ctx context.Context, roomCode string, state *RoundState) error {
	fields, err := encodeRoundState(state)
	if err != nil {
		return err
	}
	if err := s.redis.HSet(ctx, sessionKey(roomCode), fields).Err(); err != nil {
		return fmt.Errorf("save round state for %s: %w", roomCode, err)
	}
	return nil
}

func decodeRoundState(fields map[string]string) (*RoundState, error) {
	state := NewRoundState()
	if v, ok := fields["game_id"]; ok {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("round state has bad game_id %q", v)
		}
		state.GameID = uint(id)
	}
	if v, ok := fields["current_question_index"]; ok {
		index, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("round state has bad question index %q", v)
		}
		state.QuestionIndex = index
	}
	if v, ok := fields["seen_question_texts"]; ok {
		var texts []string
		if err := json.Unmarshal([]byte(v), &texts); err != nil {
			return nil, fmt.Errorf("round state has bad seen set: %w", err)
		}
		for _, text := range texts {
			state.Seen[text] = true
		}
	}
	return state, nil
}

func encodeRoundState(state *RoundState) (map[string]interface{}, error) {
	texts := make([]string, 0, len(state.Seen))
	for text := range state.Seen {
		texts = append(texts, text)
	}
	encoded, err := json.Marshal(texts)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"game_id":                state.GameID,
		"current_question_index": state.QuestionIndex,
		"seen_question_texts":    encoded,
	}, nil
}
