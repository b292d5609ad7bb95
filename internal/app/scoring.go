package app

import (
	"math"
	"sort"

	"live-quiz-service/internal/domain"
)

// ScorePoints is the time-weighted scoring rule shared by live rooms and
// solo play: a correct answer earns basePoints scaled by 1 + remaining/allowed,
// so an instant answer is worth double. Untimed questions award basePoints.
func ScorePoints(basePoints int, remaining, allowed float64, correct bool) int {
	if !correct {
		return 0
	}
	if allowed <= 0 {
		return basePoints
	}
	ratio := remaining / allowed
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return int(math.Round(float64(basePoints) * (1 + ratio)))
}

// roundOutcome is the scored result of one question.
type roundOutcome struct {
	counts []int
	gains  map[string]int
}

// scoreRound tallies the last attempt of every answering participant and
// marks each attempt's correctness in place.
func scoreRound(q domain.Question, answers map[string][]domain.Attempt) roundOutcome {
	out := roundOutcome{
		counts: make([]int, len(q.Options)),
		gains:  make(map[string]int, len(answers)),
	}
	correctIdx := q.CorrectIndex()
	for userID, attempts := range answers {
		if len(attempts) == 0 {
			continue
		}
		for i := range attempts {
			attempts[i].Correct = attempts[i].OptionIndex == correctIdx
		}
		last := attempts[len(attempts)-1]
		if last.OptionIndex >= 0 && last.OptionIndex < len(out.counts) {
			out.counts[last.OptionIndex]++
		}
		out.gains[userID] = ScorePoints(q.BasePoints(), last.RemainingTime, float64(q.TimeLimit), last.Correct)
	}
	return out
}

// RankParticipants orders players (never the host) by score, highest first.
// Ties keep join order and still get distinct consecutive ranks.
func RankParticipants(participants []domain.Participant) []domain.FinalResult {
	players := make([]domain.Participant, 0, len(participants))
	for _, p := range participants {
		if p.Role != domain.RoleHost {
			players = append(players, p)
		}
	}
	sort.SliceStable(players, func(i, j int) bool {
		return players[i].Score > players[j].Score
	})

	results := make([]domain.FinalResult, 0, len(players))
	for i, p := range players {
		results = append(results, domain.FinalResult{
			Rank:        i + 1,
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			Score:       p.Score,
		})
	}
	return results
}
