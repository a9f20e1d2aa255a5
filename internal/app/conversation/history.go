package conversation

import (
	"context"
	"sort"
	"time"

	"github.com/PabloGalante/assistant-chat/internal/domain"
)

// DayHistory is every message the owner exchanged on one calendar day.
type DayHistory struct {
	Day     time.Time // midnight, in the clock's location
	Entries []HistoryEntry
}

type HistoryEntry struct {
	SessionID    domain.SessionID
	SessionTitle string
	Message      *domain.Message
}

// History returns the owner's stored messages grouped by day, newest day
// first and oldest message first within a day. Anonymous owners have none.
func (s *Service) History(ctx context.Context, owner domain.OwnerIdentity) ([]DayHistory, error) {
	if owner.IsAnonymous() {
		return []DayHistory{}, nil
	}

	byDay := make(map[time.Time][]HistoryEntry)
	for _, sess := range s.sessions.ListSessions(ctx, owner) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, msg := range s.sessions.ListMessages(ctx, sess.ID) {
			day := truncateDay(msg.CreatedAt)
			byDay[day] = append(byDay[day], HistoryEntry{
				SessionID:    sess.ID,
				SessionTitle: sess.Title,
				Message:      msg,
			})
		}
	}

	out := make([]DayHistory, 0, len(byDay))
	for day, entries := range byDay {
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Message.CreatedAt.Before(entries[j].Message.CreatedAt)
		})
		out = append(out, DayHistory{Day: day, Entries: entries})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Day.After(out[j].Day)
	})

	s.logger(ctx).Debug("history loaded", "owner", owner.Key(), "days", len(out))
	return out, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
