package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"daily-trivia-service/internal/domain"
)

// IdentityProvider resolves a user id to a display name. It is supplied
// by the hosting environment; failures fall back to a shortened id.
type IdentityProvider interface {
	ResolveDisplayName(ctx context.Context, userID string) (string, error)
}

// weeklyTTL is the expiry applied to weekly records on every write.
const weeklyTTL = 14 * 24 * time.Hour

// defaultTopN is the leaderboard size when the caller does not ask for one.
const defaultTopN = 10

// boardSummary is the compact per-user view mirrored into the shared
// weekly leaderboard key, so ranking does not require loading every
// user's full record.
type boardSummary struct {
	WeeklyScore int    `json:"weeklyScore"`
	GamesPlayed int    `json:"gamesPlayed"`
	LastPlayed  string `json:"lastPlayed"`
}

// LeaderboardAggregator accumulates per-day scores into weekly totals
// and answers ranked-leaderboard and personal-history queries. Watchers
// receive a fresh leaderboard snapshot whenever a day is finalized.
type LeaderboardAggregator struct {
	store    KVStore
	identity IdentityProvider
	now      func() time.Time

	mu       sync.Mutex
	watchers map[chan domain.WeeklyLeaderboard]struct{}
}

func NewLeaderboardAggregator(store KVStore, identity IdentityProvider) *LeaderboardAggregator {
	return NewLeaderboardAggregatorWithClock(store, identity, time.Now)
}

// NewLeaderboardAggregatorWithClock allows deterministic week keys in tests.
func NewLeaderboardAggregatorWithClock(store KVStore, identity IdentityProvider, now func() time.Time) *LeaderboardAggregator {
	return &LeaderboardAggregator{
		store:    store,
		identity: identity,
		now:      now,
		watchers: make(map[chan domain.WeeklyLeaderboard]struct{}),
	}
}

// WeekKey groups calendar dates into "YYYY-Www" identifiers, computed
// from the day of year and the weekday of January 1st. It is not strict
// ISO-8601 but is internally consistent and stable for a given date.
func WeekKey(t time.Time) string {
	year := t.Year()
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, t.Location())
	pastDays := t.YearDay() - 1
	week := (pastDays + int(jan1.Weekday()) + 1 + 6) / 7
	if week < 1 {
		week = 1
	}
	return fmt.Sprintf("%d-W%02d", year, week)
}

func userWeeklyKey(userID, weekKey string) string {
	return "user:weekly:" + userID + ":" + weekKey
}

func weeklyBoardKey(weekKey string) string {
	return "leaderboard:weekly:" + weekKey
}

// RecordDay sets (replaces) the user's score for dayKey in the current
// week and recomputes the weekly totals. Re-submitting the same day
// replaces that day's contribution rather than adding to it.
func (a *LeaderboardAggregator) RecordDay(ctx context.Context, userID, dayKey string, dayScore, dayStreak int) error {
	weekKey := WeekKey(a.now())

	var record domain.WeeklyUserRecord
	_, err := a.store.Update(ctx, userWeeklyKey(userID, weekKey), weeklyTTL, func(current string, found bool) (string, error) {
		record = domain.WeeklyUserRecord{UserID: userID, DailyScores: make(map[string]domain.DayScore)}
		if found {
			if err := json.Unmarshal([]byte(current), &record); err != nil {
				return "", fmt.Errorf("decode weekly record: %w", err)
			}
			if record.DailyScores == nil {
				record.DailyScores = make(map[string]domain.DayScore)
			}
		}
		record.DailyScores[dayKey] = domain.DayScore{Score: dayScore, Streak: dayStreak}
		record.LastPlayed = dayKey
		record.WeeklyScore = 0
		for _, day := range record.DailyScores {
			record.WeeklyScore += day.Score
		}
		record.GamesPlayed = len(record.DailyScores)

		data, err := json.Marshal(record)
		if err != nil {
			return "", fmt.Errorf("encode weekly record: %w", err)
		}
		return string(data), nil
	})
	if err != nil {
		return fmt.Errorf("update weekly record: %w", err)
	}

	_, err = a.store.Update(ctx, weeklyBoardKey(weekKey), weeklyTTL, func(current string, found bool) (string, error) {
		board := make(map[string]boardSummary)
		if found {
			if err := json.Unmarshal([]byte(current), &board); err != nil {
				return "", fmt.Errorf("decode weekly board: %w", err)
			}
		}
		board[userID] = boardSummary{
			WeeklyScore: record.WeeklyScore,
			GamesPlayed: record.GamesPlayed,
			LastPlayed:  record.LastPlayed,
		}
		data, err := json.Marshal(board)
		if err != nil {
			return "", fmt.Errorf("encode weekly board: %w", err)
		}
		return string(data), nil
	})
	if err != nil {
		return fmt.Errorf("update weekly board: %w", err)
	}

	log.Printf("[leaderboard] %s weekly score now %d (%d games)", userID, record.WeeklyScore, record.GamesPlayed)
	a.broadcast(ctx)
	return nil
}

// WeeklyLeaderboard returns the current week's top N with dense 1-based
// ranks; when the requesting user is outside the top N their own ranked
// entry is attached. Ties on weekly score break by earlier last-played
// day, then user id.
func (a *LeaderboardAggregator) WeeklyLeaderboard(ctx context.Context, userID string, topN int) (domain.WeeklyLeaderboard, error) {
	if topN <= 0 {
		topN = defaultTopN
	}
	weekKey := WeekKey(a.now())

	board, err := a.loadBoard(ctx, weekKey)
	if err != nil {
		return domain.WeeklyLeaderboard{}, err
	}

	ranked := make([]domain.LeaderboardEntry, 0, len(board))
	for id, summary := range board {
		average := 0
		if summary.GamesPlayed > 0 {
			average = roundHalfUp(float64(summary.WeeklyScore) / float64(summary.GamesPlayed))
		}
		ranked = append(ranked, domain.LeaderboardEntry{
			UserID:       id,
			WeeklyScore:  summary.WeeklyScore,
			GamesPlayed:  summary.GamesPlayed,
			AverageScore: average,
			LastPlayed:   summary.LastPlayed,
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].WeeklyScore != ranked[j].WeeklyScore {
			return ranked[i].WeeklyScore > ranked[j].WeeklyScore
		}
		if ranked[i].LastPlayed != ranked[j].LastPlayed {
			return ranked[i].LastPlayed < ranked[j].LastPlayed
		}
		return ranked[i].UserID < ranked[j].UserID
	})

	rank := 0
	prevScore := -1
	for i := range ranked {
		if i == 0 || ranked[i].WeeklyScore != prevScore {
			rank++
			prevScore = ranked[i].WeeklyScore
		}
		ranked[i].Rank = rank
	}

	result := domain.WeeklyLeaderboard{WeekKey: weekKey, TotalPlayers: len(ranked)}
	top := topN
	if top > len(ranked) {
		top = len(ranked)
	}
	result.Entries = make([]domain.LeaderboardEntry, 0, top)
	userSeen := false
	for i := 0; i < top; i++ {
		entry := ranked[i]
		entry.DisplayName = a.displayName(ctx, entry.UserID)
		result.Entries = append(result.Entries, entry)
		if entry.UserID == userID {
			userSeen = true
		}
	}
	if !userSeen {
		for i := top; i < len(ranked); i++ {
			if ranked[i].UserID != userID {
				continue
			}
			entry := ranked[i]
			entry.DisplayName = a.displayName(ctx, entry.UserID)
			result.UserEntry = &entry
			break
		}
	}
	return result, nil
}

// UserDailyStats returns the user's per-day results for the current
// week, most recent first, with the per-difficulty breakdown rebuilt
// from the recorded round results.
func (a *LeaderboardAggregator) UserDailyStats(ctx context.Context, userID string) ([]domain.DailyStats, error) {
	weekKey := WeekKey(a.now())
	raw, found, err := a.store.Get(ctx, userWeeklyKey(userID, weekKey))
	if err != nil {
		return nil, fmt.Errorf("get weekly record: %w", err)
	}
	if !found {
		return []domain.DailyStats{}, nil
	}
	var record domain.WeeklyUserRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("decode weekly record: %w", err)
	}

	stats := make([]domain.DailyStats, 0, len(record.DailyScores))
	for dayKey, day := range record.DailyScores {
		entry := domain.DailyStats{DayKey: dayKey, Score: day.Score, Streak: day.Streak}
		if progress := a.dailyProgress(ctx, userID, dayKey); progress != nil {
			entry.Completed = progress.Completed
			entry.CompletedAt = progress.CompletedAt
			for index, round := range progress.Rounds {
				tier := &entry.Easy
				if DifficultyForRound(index) == domain.DifficultyHard {
					tier = &entry.Hard
				}
				tier.Total++
				if round.Correct {
					tier.Correct++
				}
			}
		}
		stats = append(stats, entry)
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].DayKey > stats[j].DayKey
	})
	return stats, nil
}

// Watch subscribes to leaderboard snapshots. The first snapshot is sent
// immediately; callers must invoke cancel to avoid leaks.
func (a *LeaderboardAggregator) Watch(ctx context.Context) (<-chan domain.WeeklyLeaderboard, func(), error) {
	initial, err := a.WeeklyLeaderboard(ctx, "", defaultTopN)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan domain.WeeklyLeaderboard, 8)
	a.mu.Lock()
	a.watchers[ch] = struct{}{}
	a.mu.Unlock()

	ch <- initial

	cancel := func() {
		a.mu.Lock()
		if _, ok := a.watchers[ch]; ok {
			delete(a.watchers, ch)
			close(ch)
		}
		a.mu.Unlock()
	}
	return ch, cancel, nil
}

func (a *LeaderboardAggregator) broadcast(ctx context.Context) {
	a.mu.Lock()
	idle := len(a.watchers) == 0
	a.mu.Unlock()
	if idle {
		return
	}

	snapshot, err := a.WeeklyLeaderboard(ctx, "", defaultTopN)
	if err != nil {
		log.Printf("[leaderboard] broadcast snapshot failed: %v", err)
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for ch := range a.watchers {
		select {
		case ch <- snapshot:
		default:
			// Drop the stale update so a slow watcher cannot block the rest.
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}

func (a *LeaderboardAggregator) loadBoard(ctx context.Context, weekKey string) (map[string]boardSummary, error) {
	raw, found, err := a.store.Get(ctx, weeklyBoardKey(weekKey))
	if err != nil {
		return nil, fmt.Errorf("get weekly board: %w", err)
	}
	board := make(map[string]boardSummary)
	if !found {
		return board, nil
	}
	if err := json.Unmarshal([]byte(raw), &board); err != nil {
		return nil, fmt.Errorf("decode weekly board: %w", err)
	}
	return board, nil
}

func (a *LeaderboardAggregator) dailyProgress(ctx context.Context, userID, dayKey string) *domain.SessionProgress {
	raw, found, err := a.store.Get(ctx, dailyStateKey(userID, dayKey))
	if err != nil || !found {
		return nil
	}
	var progress domain.SessionProgress
	if err := json.Unmarshal([]byte(raw), &progress); err != nil {
		return nil
	}
	return &progress
}

func (a *LeaderboardAggregator) displayName(ctx context.Context, userID string) string {
	name, err := a.identity.ResolveDisplayName(ctx, userID)
	if err != nil || name == "" {
		return fallbackDisplayName(userID)
	}
	return name
}

// fallbackDisplayName shortens opaque platform ids into something
// presentable when the identity provider cannot resolve them.
func fallbackDisplayName(userID string) string {
	if len(userID) > 10 {
		return "Player " + userID[len(userID)-6:]
	}
	return userID
}
