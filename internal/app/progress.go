package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"daily-trivia-service/internal/domain"
)

// DayRecorder receives a user's finalized score for a day. Implemented
// by the leaderboard aggregator.
type DayRecorder interface {
	RecordDay(ctx context.Context, userID, dayKey string, dayScore, dayStreak int) error
}

// ProgressStateMachine owns the per-(user, day) session records:
// Absent -> InProgress -> Completed. It enforces sequential play and the
// once-per-day limit, and rebuilds the cumulative score from the
// recorded round results rather than trusting any client-reported
// running total. All mutations go through the store's per-key
// compare-and-swap so overlapping guess requests cannot drop progress.
type ProgressStateMachine struct {
	store    KVStore
	recorder DayRecorder
	bypass   bool
	now      func() time.Time
}

func NewProgressStateMachine(store KVStore, recorder DayRecorder, bypass bool) *ProgressStateMachine {
	return NewProgressStateMachineWithClock(store, recorder, bypass, time.Now)
}

// NewProgressStateMachineWithClock allows deterministic timestamps in tests.
func NewProgressStateMachineWithClock(store KVStore, recorder DayRecorder, bypass bool, now func() time.Time) *ProgressStateMachine {
	return &ProgressStateMachine{store: store, recorder: recorder, bypass: bypass, now: now}
}

func dailyStateKey(userID, dayKey string) string {
	return "daily:" + dayKey + ":" + userID
}

// getDaily returns the session record, or nil when absent.
func (m *ProgressStateMachine) getDaily(ctx context.Context, userID, dayKey string) (*domain.SessionProgress, error) {
	raw, found, err := m.store.Get(ctx, dailyStateKey(userID, dayKey))
	if err != nil {
		return nil, fmt.Errorf("get daily state: %w", err)
	}
	if !found {
		return nil, nil
	}
	var progress domain.SessionProgress
	if err := json.Unmarshal([]byte(raw), &progress); err != nil {
		return nil, fmt.Errorf("decode daily state: %w", err)
	}
	return &progress, nil
}

// CanPlay reports whether the user may play today. A store read failure
// degrades to "allow" so transient outages never lock players out.
func (m *ProgressStateMachine) CanPlay(ctx context.Context, userID, dayKey string) domain.PlayCheck {
	progress, err := m.getDaily(ctx, userID, dayKey)
	if err != nil {
		log.Printf("[daily] canPlay degraded to allow: %v", err)
		return domain.PlayCheck{Allowed: true}
	}
	if progress == nil {
		return domain.PlayCheck{Allowed: true}
	}
	if progress.Completed && !m.bypass {
		return domain.PlayCheck{
			Allowed:  false,
			Reason:   "Daily challenge already completed. Come back tomorrow!",
			Progress: progress,
		}
	}
	return domain.PlayCheck{Allowed: true, Progress: progress}
}

// Start initializes or resumes the day's session. It is idempotent: an
// existing in-progress record is returned unchanged. A completed record
// is returned unchanged too, unless bypass mode is on, in which case it
// is reset to round 0 / score 0 / streak 0.
func (m *ProgressStateMachine) Start(ctx context.Context, userID, dayKey string) (domain.SessionProgress, error) {
	stored, err := m.store.Update(ctx, dailyStateKey(userID, dayKey), 0, func(current string, found bool) (string, error) {
		if found {
			var existing domain.SessionProgress
			if err := json.Unmarshal([]byte(current), &existing); err != nil {
				return "", fmt.Errorf("decode daily state: %w", err)
			}
			if existing.Completed && m.bypass {
				log.Printf("[daily] bypass: resetting completed session for %s on %s", userID, dayKey)
				reset := domain.SessionProgress{DayKey: dayKey, UserID: userID}
				return encodeProgress(reset)
			}
			return current, nil
		}
		log.Printf("[daily] new session for %s on %s", userID, dayKey)
		return encodeProgress(domain.SessionProgress{DayKey: dayKey, UserID: userID})
	})
	if err != nil {
		return domain.SessionProgress{}, fmt.Errorf("start daily session: %w", err)
	}
	var progress domain.SessionProgress
	if err := json.Unmarshal([]byte(stored), &progress); err != nil {
		return domain.SessionProgress{}, fmt.Errorf("decode daily state: %w", err)
	}
	return progress, nil
}

// AuthorizeRound permits replaying any already-seen round but rejects
// skipping ahead of the round the session considers current.
func (m *ProgressStateMachine) AuthorizeRound(progress domain.SessionProgress, roundIndex int) error {
	if roundIndex > progress.CurrentRound {
		return domain.ErrRoundNotUnlocked
	}
	return nil
}

// Advance records a scored round and moves the session forward. The
// cumulative score is the sum of all recorded round results, so
// replaying the same round with the same result is idempotent. Round
// index 9 completes the session and pushes the final score to the day
// recorder exactly once.
func (m *ProgressStateMachine) Advance(ctx context.Context, userID, dayKey string, roundIndex int, result domain.RoundResult, newStreak int) (domain.SessionProgress, error) {
	var finalized bool
	stored, err := m.store.Update(ctx, dailyStateKey(userID, dayKey), 0, func(current string, found bool) (string, error) {
		finalized = false
		if !found {
			return "", domain.ErrSessionNotStarted
		}
		var progress domain.SessionProgress
		if err := json.Unmarshal([]byte(current), &progress); err != nil {
			return "", fmt.Errorf("decode daily state: %w", err)
		}
		if progress.Completed && !m.bypass {
			return "", domain.ErrSessionAlreadyCompleted
		}

		if progress.Rounds == nil {
			progress.Rounds = make(map[int]domain.RoundResult)
		}
		progress.Rounds[roundIndex] = result
		if next := roundIndex + 1; next > progress.CurrentRound {
			progress.CurrentRound = next
		}
		progress.Score = sumPoints(progress.Rounds)
		progress.Streak = newStreak

		if roundIndex >= domain.TotalRounds-1 {
			if !progress.Completed {
				progress.Completed = true
				progress.CompletedAt = m.now().UnixMilli()
			}
			finalized = true
		}
		return encodeProgress(progress)
	})
	if err != nil {
		return domain.SessionProgress{}, err
	}

	var progress domain.SessionProgress
	if err := json.Unmarshal([]byte(stored), &progress); err != nil {
		return domain.SessionProgress{}, fmt.Errorf("decode daily state: %w", err)
	}

	if finalized {
		log.Printf("[daily] %s completed %s with score %d", userID, dayKey, progress.Score)
		if err := m.recorder.RecordDay(ctx, userID, dayKey, progress.Score, progress.Streak); err != nil {
			// Session state is the source of truth; a leaderboard push
			// failure must not fail the guess.
			log.Printf("[daily] record day failed for %s: %v", userID, err)
		}
	}
	return progress, nil
}

// NextRoundAvailable reports whether the scored guess unlocked the next
// round: only when it targeted the round that was current before the
// update, so stale or duplicate guesses are not told a round unlocked.
func NextRoundAvailable(roundIndex, priorCurrentRound int) bool {
	return roundIndex < domain.TotalRounds-1 && priorCurrentRound == roundIndex
}

func sumPoints(rounds map[int]domain.RoundResult) int {
	total := 0
	for _, r := range rounds {
		total += r.Points
	}
	return total
}

func encodeProgress(progress domain.SessionProgress) (string, error) {
	data, err := json.Marshal(progress)
	if err != nil {
		return "", fmt.Errorf("encode daily state: %w", err)
	}
	return string(data), nil
}
