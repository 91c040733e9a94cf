package app

import (
	"context"
	"strconv"
	"strings"
	"time"

	"daily-trivia-service/internal/domain"
)

// CatalogRepository loads the active catalog snapshot (from cache or the
// backing store).
type CatalogRepository interface {
	GetCatalog(ctx context.Context) (domain.Catalog, error)
}

// ChallengeService wires the daily challenge use cases together: round
// delivery, guess scoring, daily status and the weekly views.
type ChallengeService struct {
	catalog  CatalogRepository
	progress *ProgressStateMachine
	board    *LeaderboardAggregator
	now      func() time.Time
}

func NewChallengeService(catalog CatalogRepository, progress *ProgressStateMachine, board *LeaderboardAggregator) *ChallengeService {
	return NewChallengeServiceWithClock(catalog, progress, board, time.Now)
}

// NewChallengeServiceWithClock allows a fixed "today" in tests.
func NewChallengeServiceWithClock(catalog CatalogRepository, progress *ProgressStateMachine, board *LeaderboardAggregator, now func() time.Time) *ChallengeService {
	return &ChallengeService{catalog: catalog, progress: progress, board: board, now: now}
}

// TodayKey is the calendar-date key identifying today's challenge.
func (s *ChallengeService) TodayKey() string {
	return s.now().Format("2006-01-02")
}

// RoundID formats the public id of one round within a day.
func RoundID(dayKey string, roundIndex int) string {
	return dayKey + ":" + strconv.Itoa(roundIndex)
}

// parseRoundID validates a client round id against the server's current
// day and splits out the round index.
func parseRoundID(roundID, dayKey string) (int, error) {
	prefix := dayKey + ":"
	if !strings.HasPrefix(roundID, prefix) {
		return 0, domain.ErrInvalidRoundID
	}
	index, err := strconv.Atoi(strings.TrimPrefix(roundID, prefix))
	if err != nil || index < 0 || index >= domain.TotalRounds {
		return 0, domain.ErrInvalidRoundIndex
	}
	return index, nil
}

// GetRound returns the payload for one round of today's challenge with
// the answer withheld. Replaying already-seen rounds is allowed;
// skipping ahead is not.
func (s *ChallengeService) GetRound(ctx context.Context, userID string, roundIndex int) (domain.RoundPayload, error) {
	if roundIndex < 0 || roundIndex >= domain.TotalRounds {
		return domain.RoundPayload{}, domain.ErrInvalidRoundIndex
	}
	dayKey := s.TodayKey()

	check := s.progress.CanPlay(ctx, userID, dayKey)
	if !check.Allowed {
		return domain.RoundPayload{}, domain.ErrSessionAlreadyCompleted
	}
	progress, err := s.progress.Start(ctx, userID, dayKey)
	if err != nil {
		return domain.RoundPayload{}, err
	}
	if err := s.progress.AuthorizeRound(progress, roundIndex); err != nil {
		return domain.RoundPayload{}, err
	}

	catalog, err := s.catalog.GetCatalog(ctx)
	if err != nil {
		return domain.RoundPayload{}, err
	}
	sequence, err := DaySequence(dayKey, catalog)
	if err != nil {
		return domain.RoundPayload{}, err
	}
	item := sequence[roundIndex]

	return domain.RoundPayload{
		RoundID:     RoundID(dayKey, roundIndex),
		Title:       item.Title,
		Media:       item.Media,
		Options:     BuildOptions(item, catalog, DefaultOptionCount),
		RoundIndex:  roundIndex,
		TotalRounds: domain.TotalRounds,
		Difficulty:  DifficultyForRound(roundIndex),
	}, nil
}

// PostGuess scores a guess for today's challenge and advances the
// session. The streak and cumulative score are taken from the
// server-held session; client-reported values are ignored.
func (s *ChallengeService) PostGuess(ctx context.Context, userID string, req domain.GuessRequest) (domain.GuessResult, error) {
	dayKey := s.TodayKey()
	roundIndex, err := parseRoundID(req.RoundID, dayKey)
	if err != nil {
		return domain.GuessResult{}, err
	}

	check := s.progress.CanPlay(ctx, userID, dayKey)
	if !check.Allowed {
		return domain.GuessResult{}, domain.ErrSessionAlreadyCompleted
	}
	progress := check.Progress
	if progress == nil {
		// Session can be missing after a process restart mid-game.
		started, err := s.progress.Start(ctx, userID, dayKey)
		if err != nil {
			return domain.GuessResult{}, err
		}
		progress = &started
	}
	if roundIndex > progress.CurrentRound {
		return domain.GuessResult{}, domain.ErrRoundNotUnlocked
	}

	catalog, err := s.catalog.GetCatalog(ctx)
	if err != nil {
		return domain.GuessResult{}, err
	}
	sequence, err := DaySequence(dayKey, catalog)
	if err != nil {
		return domain.GuessResult{}, err
	}
	item := sequence[roundIndex]

	guess := strings.TrimSpace(req.Category)
	if DifficultyForRound(roundIndex) == domain.DifficultyHard {
		if _, ok := catalog.Lookup(guess); !ok {
			return domain.GuessResult{}, domain.ErrCategoryNotWhitelisted
		}
	}

	result := Score(item, guess, catalog, progress.Streak)
	reveal := domain.Reveal{Category: item.Category, SourceURL: item.SourceURL}
	priorCurrent := progress.CurrentRound

	if roundIndex < priorCurrent {
		// Duplicate guess for an already-scored round: reveal the outcome
		// without touching the recorded progress.
		return domain.GuessResult{
			Correct:         result.Correct,
			Points:          result.FinalPoints,
			BasePoints:      result.BasePoints,
			Multiplier:      result.Multiplier,
			Partial:         result.Partial,
			Reveal:          reveal,
			CumulativeScore: progress.Score,
			Streak:          progress.Streak,
		}, nil
	}

	advanced, err := s.progress.Advance(ctx, userID, dayKey, roundIndex, domain.RoundResult{
		Points:  result.FinalPoints,
		Correct: result.Correct,
	}, result.NewStreak)
	if err != nil {
		return domain.GuessResult{}, err
	}

	return domain.GuessResult{
		Correct:            result.Correct,
		Points:             result.FinalPoints,
		BasePoints:         result.BasePoints,
		Multiplier:         result.Multiplier,
		Partial:            result.Partial,
		Reveal:             reveal,
		CumulativeScore:    advanced.Score,
		Streak:             advanced.Streak,
		NextRoundAvailable: NextRoundAvailable(roundIndex, priorCurrent),
	}, nil
}

// GetDailyStatus reports whether the user may play today, with current
// progress when a session exists.
func (s *ChallengeService) GetDailyStatus(ctx context.Context, userID string) domain.PlayCheck {
	return s.progress.CanPlay(ctx, userID, s.TodayKey())
}

// GetWeeklyLeaderboard returns the current week's ranked view.
func (s *ChallengeService) GetWeeklyLeaderboard(ctx context.Context, userID string, topN int) (domain.WeeklyLeaderboard, error) {
	return s.board.WeeklyLeaderboard(ctx, userID, topN)
}

// GetUserDailyStats returns the user's per-day history for the current week.
func (s *ChallengeService) GetUserDailyStats(ctx context.Context, userID string) ([]domain.DailyStats, error) {
	return s.board.UserDailyStats(ctx, userID)
}
