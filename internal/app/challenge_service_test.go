package app_test

import (
	"context"
	"errors"
	"testing"

	"daily-trivia-service/internal/app"
	"daily-trivia-service/internal/domain"
	"daily-trivia-service/internal/infra/memory"
)

func newService(t *testing.T) (*app.ChallengeService, domain.Catalog, string) {
	t.Helper()
	catalog := testCatalog(12)
	store := memory.NewKVStore()
	repo := memory.NewCatalogRepository(memory.NewStaticCatalogLoader(catalog), 0)
	board := app.NewLeaderboardAggregatorWithClock(store, memory.NewStaticIdentityProvider(nil), fixedClock())
	progress := app.NewProgressStateMachineWithClock(store, board, false, fixedClock())
	service := app.NewChallengeServiceWithClock(repo, progress, board, fixedClock())
	return service, catalog, service.TodayKey()
}

func TestFullGameAllCorrect(t *testing.T) {
	ctx := context.Background()
	service, catalog, dayKey := newService(t)

	answers, err := app.DaySequence(dayKey, catalog)
	if err != nil {
		t.Fatalf("derive answers: %v", err)
	}

	var last domain.GuessResult
	for index := 0; index < domain.TotalRounds; index++ {
		payload, err := service.GetRound(ctx, "u1", index)
		if err != nil {
			t.Fatalf("round %d: %v", index, err)
		}
		if payload.RoundID != app.RoundID(dayKey, index) {
			t.Fatalf("round %d: unexpected id %q", index, payload.RoundID)
		}
		found := false
		for _, option := range payload.Options {
			if option == answers[index].Category {
				found = true
			}
		}
		if !found {
			t.Fatalf("round %d: options %v miss the answer", index, payload.Options)
		}

		last, err = service.PostGuess(ctx, "u1", domain.GuessRequest{
			RoundID:  payload.RoundID,
			Category: answers[index].Category,
		})
		if err != nil {
			t.Fatalf("guess %d: %v", index, err)
		}
		if !last.Correct {
			t.Fatalf("guess %d: expected correct", index)
		}
		// Streak multiplier grows by 0.1 per prior correct round.
		if want := 10 + index; last.Points != want {
			t.Fatalf("guess %d: expected %d points, got %d", index, want, last.Points)
		}
		if last.Reveal.Category != answers[index].Category {
			t.Fatalf("guess %d: reveal %q", index, last.Reveal.Category)
		}
		wantNext := index < domain.TotalRounds-1
		if last.NextRoundAvailable != wantNext {
			t.Fatalf("guess %d: nextRoundAvailable = %v", index, last.NextRoundAvailable)
		}
	}

	if last.CumulativeScore != 145 {
		t.Fatalf("expected cumulative 145, got %d", last.CumulativeScore)
	}
	if last.Streak != 10 {
		t.Fatalf("expected streak 10, got %d", last.Streak)
	}

	status := service.GetDailyStatus(ctx, "u1")
	if status.Allowed {
		t.Fatalf("expected play blocked after completion")
	}

	lb, err := service.GetWeeklyLeaderboard(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(lb.Entries) != 1 || lb.Entries[0].WeeklyScore != 145 {
		t.Fatalf("expected finalized score on the leaderboard, got %+v", lb.Entries)
	}

	stats, err := service.GetUserDailyStats(ctx, "u1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(stats) != 1 || !stats[0].Completed || stats[0].Score != 145 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestGetRoundRejectsOutOfRangeIndex(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newService(t)

	if _, err := service.GetRound(ctx, "u1", -1); !errors.Is(err, domain.ErrInvalidRoundIndex) {
		t.Fatalf("expected ErrInvalidRoundIndex, got %v", err)
	}
	if _, err := service.GetRound(ctx, "u1", domain.TotalRounds); !errors.Is(err, domain.ErrInvalidRoundIndex) {
		t.Fatalf("expected ErrInvalidRoundIndex, got %v", err)
	}
}

func TestGetRoundRejectsSkippingAhead(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newService(t)

	if _, err := service.GetRound(ctx, "u1", 3); !errors.Is(err, domain.ErrRoundNotUnlocked) {
		t.Fatalf("expected ErrRoundNotUnlocked, got %v", err)
	}
}

func TestPostGuessValidatesRoundID(t *testing.T) {
	ctx := context.Background()
	service, _, dayKey := newService(t)

	_, err := service.PostGuess(ctx, "u1", domain.GuessRequest{RoundID: "2020-01-01:0", Category: "Wildlife"})
	if !errors.Is(err, domain.ErrInvalidRoundID) {
		t.Fatalf("expected ErrInvalidRoundID for stale day, got %v", err)
	}

	_, err = service.PostGuess(ctx, "u1", domain.GuessRequest{RoundID: dayKey + ":12", Category: "Wildlife"})
	if !errors.Is(err, domain.ErrInvalidRoundIndex) {
		t.Fatalf("expected ErrInvalidRoundIndex for bad index, got %v", err)
	}

	_, err = service.PostGuess(ctx, "u1", domain.GuessRequest{RoundID: dayKey + ":x", Category: "Wildlife"})
	if !errors.Is(err, domain.ErrInvalidRoundIndex) {
		t.Fatalf("expected ErrInvalidRoundIndex for non-numeric index, got %v", err)
	}
}

func TestPostGuessRejectsLockedRound(t *testing.T) {
	ctx := context.Background()
	service, _, dayKey := newService(t)

	_, err := service.PostGuess(ctx, "u1", domain.GuessRequest{RoundID: app.RoundID(dayKey, 2), Category: "Wildlife"})
	if !errors.Is(err, domain.ErrRoundNotUnlocked) {
		t.Fatalf("expected ErrRoundNotUnlocked, got %v", err)
	}
}

func TestHardRoundsRequireWhitelistedCategory(t *testing.T) {
	ctx := context.Background()
	service, _, dayKey := newService(t)

	// Miss the first five rounds with a made-up category; easy rounds
	// accept free-form guesses and just score zero.
	for index := 0; index < 5; index++ {
		result, err := service.PostGuess(ctx, "u1", domain.GuessRequest{
			RoundID:  app.RoundID(dayKey, index),
			Category: "Totally Made Up",
		})
		if err != nil {
			t.Fatalf("easy round %d: %v", index, err)
		}
		if result.Correct || result.Points != 0 {
			t.Fatalf("easy round %d: expected scored miss, got %+v", index, result)
		}
	}

	_, err := service.PostGuess(ctx, "u1", domain.GuessRequest{
		RoundID:  app.RoundID(dayKey, 5),
		Category: "Totally Made Up",
	})
	if !errors.Is(err, domain.ErrCategoryNotWhitelisted) {
		t.Fatalf("expected ErrCategoryNotWhitelisted on hard round, got %v", err)
	}
}

func TestClientReportedScoreAndStreakIgnored(t *testing.T) {
	ctx := context.Background()
	service, catalog, dayKey := newService(t)

	answers, err := app.DaySequence(dayKey, catalog)
	if err != nil {
		t.Fatalf("derive answers: %v", err)
	}

	result, err := service.PostGuess(ctx, "u1", domain.GuessRequest{
		RoundID:      app.RoundID(dayKey, 0),
		Category:     answers[0].Category,
		ClientStreak: 50,
		ClientScore:  9999,
	})
	if err != nil {
		t.Fatalf("guess: %v", err)
	}
	if result.Points != 10 {
		t.Fatalf("expected base 10 points regardless of claimed streak, got %d", result.Points)
	}
	if result.CumulativeScore != 10 || result.Streak != 1 {
		t.Fatalf("expected server-derived totals, got %+v", result)
	}
}

func TestDuplicateGuessDoesNotDoubleCount(t *testing.T) {
	ctx := context.Background()
	service, catalog, dayKey := newService(t)

	answers, err := app.DaySequence(dayKey, catalog)
	if err != nil {
		t.Fatalf("derive answers: %v", err)
	}

	first, err := service.PostGuess(ctx, "u1", domain.GuessRequest{
		RoundID:  app.RoundID(dayKey, 0),
		Category: answers[0].Category,
	})
	if err != nil {
		t.Fatalf("first guess: %v", err)
	}
	replay, err := service.PostGuess(ctx, "u1", domain.GuessRequest{
		RoundID:  app.RoundID(dayKey, 0),
		Category: answers[0].Category,
	})
	if err != nil {
		t.Fatalf("replay guess: %v", err)
	}
	if replay.CumulativeScore != first.CumulativeScore {
		t.Fatalf("replay changed the score: %d vs %d", replay.CumulativeScore, first.CumulativeScore)
	}
	if replay.NextRoundAvailable {
		t.Fatalf("replay should not advance the session")
	}
}
