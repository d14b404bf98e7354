package stats

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lutefd/tabletop-api/internal/domain/sessions"
)

// Leaderboard folds every registered participant into one row. Sessions played
// before dateFrom are skipped; guests never get a row.
func Leaderboard(items []sessions.Session, dateFrom *time.Time) []LeaderboardEntry {
	type row struct {
		tally
		userID  uuid.UUID
		profile latest[sessions.Profile]
	}
	index := make(map[uuid.UUID]*row)
	order := make([]*row, 0)

	eachParticipant(items, dateFrom, func(s sessions.Session, p sessions.Participant) {
		if p.UserID == nil {
			return
		}
		r, ok := index[*p.UserID]
		if !ok {
			r = &row{userID: *p.UserID}
			index[*p.UserID] = r
			order = append(order, r)
		}
		r.add(p)
		r.profile.observe(p.Profile, s.PlayedAt)
	})

	out := make([]LeaderboardEntry, 0, len(order))
	for _, r := range order {
		out = append(out, LeaderboardEntry{
			UserID:      r.userID,
			Profile:     r.profile.get(),
			GamesPlayed: r.played,
			GamesWon:    r.won,
			TotalVP:     r.vp,
			WinRate:     r.winRate(),
			VPPerGame:   r.average(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.TotalVP != b.TotalVP {
			return a.TotalVP > b.TotalVP
		}
		if a.WinRate != b.WinRate {
			return a.WinRate > b.WinRate
		}
		return a.GamesPlayed > b.GamesPlayed
	})
	return out
}
