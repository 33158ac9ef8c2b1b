package app

import (
	"math"
	"sort"
	"time"

	"live-quiz-service/internal/domain"
)

const (
	basePoints    = 1000
	timeBonusPool = 1000
)

// ScoreAnswer returns the points for an answer given after elapsed out of limit.
// Incorrect answers score zero; elapsed below zero counts as instant.
func ScoreAnswer(correct bool, elapsed, limit time.Duration) int {
	if !correct || limit <= 0 {
		return 0
	}
	if elapsed < 0 {
		elapsed = 0
	}
	ratio := 1 - elapsed.Seconds()/limit.Seconds()
	if ratio < 0 {
		ratio = 0
	}
	return int(math.Round(basePoints + timeBonusPool*ratio))
}

// BuildLeaderboard ranks players by score, ties kept in join order.
func BuildLeaderboard(players []domain.Player) []domain.LeaderboardEntry {
	sorted := append([]domain.Player(nil), players...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].JoinOrder < sorted[j].JoinOrder
	})
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	entries := make([]domain.LeaderboardEntry, 0, len(sorted))
	for i, p := range sorted {
		entries = append(entries, domain.LeaderboardEntry{
			Rank:     i + 1,
			PlayerID: p.ConnectionID,
			Nickname: p.Nickname,
			Score:    p.Score,
		})
	}
	return entries
}
