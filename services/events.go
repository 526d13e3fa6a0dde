package services

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
)

// Client-bound events are flat JSON objects with an "event" discriminator,
// e.g. {"event":"player_answered","user_id":7}.

// PlayerView is the player shape used by player_update and game_over.
type PlayerView struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}

// AnswerOption is one voting option. Author identity is deliberately absent.
type AnswerOption struct {
	ID   uint   `json:"id"`
	Text string `json:"text"`
}

// VoteOutcome is one voter's row in all_vote_results.
type VoteOutcome struct {
	IsCorrect bool    `json:"is_correct"`
	FooledBy  *string `json:"fooled_by"`
	Text      string  `json:"text"`
}

// AnswerResult is one answer's row in round_over.
type AnswerResult struct {
	AnswerText string   `json:"answer_text"`
	Author     string   `json:"author"`
	Voters     []string `json:"voters"`
	Points     int      `json:"points"`
}

func encodeEvent(event string, fields gin.H) ([]byte, error) {
	payload := gin.H{"event": event}
	for key, value := range fields {
		payload[key] = value
	}
	return json.Marshal(payload)
}
