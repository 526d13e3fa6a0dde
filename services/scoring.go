package services

import (
	"bazinga/models"
)

// ScoreRound computes the per-player point deltas for one question. Every
// voter who picked the correct answer earns one point; every decoy author
// earns one point per vote their decoy drew. The injected correct answer has
// no author, so nobody is credited for votes it receives beyond the voters
// themselves. Pure and deterministic.
func ScoreRound(answers []models.Answer, correctAnswerID uint, votes []models.Vote) map[uint]int {
	byID := make(map[uint]models.Answer, len(answers))
	for _, answer := range answers {
		byID[answer.ID] = answer
	}

	deltas := map[uint]int{}
	for _, vote := range votes {
		if vote.AnswerID == correctAnswerID {
			deltas[vote.VoterID]++
			continue
		}
		answer, ok := byID[vote.AnswerID]
		if !ok || answer.PlayerID == nil {
			continue
		}
		deltas[*answer.PlayerID]++
	}
	return deltas
}
