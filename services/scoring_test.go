package services

import (
	"testing"

	"bazinga/models"

	"github.com/stretchr/testify/assert"
)

func ptr(id uint) *uint {
	return &id
}

func TestScoreRoundCorrectVotersAndDecoyAuthors(t *testing.T) {
	answers := []models.Answer{
		{ID: 10, PlayerID: ptr(1), AnswerText: "mars"},
		{ID: 11, PlayerID: ptr(2), AnswerText: "venus"},
		{ID: 12, PlayerID: nil, AnswerText: "jupiter"}, // injected correct
	}
	votes := []models.Vote{
		{AnswerID: 12, VoterID: 1},
		{AnswerID: 12, VoterID: 2},
		{AnswerID: 10, VoterID: 3}, // fooled by player 1's decoy
	}

	deltas := ScoreRound(answers, 12, votes)

	assert.Equal(t, map[uint]int{1: 2, 2: 1}, deltas)
}

func TestScoreRoundNoCreditForInjectedAnswerAuthor(t *testing.T) {
	answers := []models.Answer{
		{ID: 20, PlayerID: nil, AnswerText: "the real one"},
		{ID: 21, PlayerID: ptr(5), AnswerText: "a decoy"},
	}
	votes := []models.Vote{
		{AnswerID: 21, VoterID: 6},
		{AnswerID: 21, VoterID: 7},
	}

	deltas := ScoreRound(answers, 20, votes)

	// Two votes on player 5's decoy, no correct votes at all.
	assert.Equal(t, map[uint]int{5: 2}, deltas)
}

func TestScoreRoundIgnoresVotesForUnknownAnswers(t *testing.T) {
	answers := []models.Answer{
		{ID: 30, PlayerID: nil, AnswerText: "right"},
	}
	votes := []models.Vote{
		{AnswerID: 99, VoterID: 1},
	}

	deltas := ScoreRound(answers, 30, votes)

	assert.Empty(t, deltas)
}

func TestScoreRoundIsIdempotent(t *testing.T) {
	answers := []models.Answer{
		{ID: 40, PlayerID: ptr(1), AnswerText: "foo"},
		{ID: 41, PlayerID: nil, AnswerText: "bar"},
	}
	votes := []models.Vote{
		{AnswerID: 41, VoterID: 1},
		{AnswerID: 40, VoterID: 2},
	}

	first := ScoreRound(answers, 41, votes)
	second := ScoreRound(answers, 41, votes)

	assert.Equal(t, first, second)
}
