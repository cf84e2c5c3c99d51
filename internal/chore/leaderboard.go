package chore

import (
	"sort"

	"github.com/dukerupert/chorewheel/internal/model"
)

// BonusMultiplier scales the points of a chore completed by someone other than its assignee.
const BonusMultiplier = 2

// Leaderboard folds completed assignments into per-user totals. Points are
// credited to the completer. A completion whose template is missing still
// counts but scores nothing. Entries are ordered by points, then completions,
// then user id.
func Leaderboard(assignments []model.Assignment, templates []model.ChoreTemplate) []model.LeaderboardEntry {
	points := make(map[int64]int, len(templates))
	for _, t := range templates {
		points[t.ID] = t.Points
	}

	byUser := make(map[int64]*model.LeaderboardEntry)
	for _, a := range assignments {
		if !a.Completed() {
			continue
		}
		completer := a.AssignedTo
		if a.CompletedBy != nil {
			completer = *a.CompletedBy
		}

		e, ok := byUser[completer]
		if !ok {
			e = &model.LeaderboardEntry{UserID: completer}
			byUser[completer] = e
		}
		e.Completions++
		p := points[a.ChoreID]
		if completer != a.AssignedTo {
			e.BonusCompletions++
			p *= BonusMultiplier
		}
		e.Points += p
	}

	entries := make([]model.LeaderboardEntry, 0, len(byUser))
	for _, e := range byUser {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		if entries[i].Completions != entries[j].Completions {
			return entries[i].Completions > entries[j].Completions
		}
		return entries[i].UserID < entries[j].UserID
	})
	return entries
}
