package app

import (
	"fmt"
	"math"
	"strings"

	"daily-trivia-service/internal/domain"
)

const (
	fullScore       = 10
	groupMultiplier = 0.6
	tagMultiplier   = 0.3
)

func streakMultiplier(streak int) float64 {
	return 1.0 + float64(streak)*0.1
}

// Score computes the outcome of a single guess. It is pure: callers
// persist the returned streak and points. The streak multiplier uses the
// streak as it stood before this guess; partial-credit guesses freeze
// the streak, no-credit misses reset it. Difficulty never enters the
// calculation.
func Score(item domain.ContentItem, guessedCategory string, catalog domain.Catalog, currentStreak int) domain.ScoreResult {
	if domain.NormalizeCategory(guessedCategory) == domain.NormalizeCategory(item.Category) {
		multiplier := streakMultiplier(currentStreak)
		return domain.ScoreResult{
			Correct:     true,
			BasePoints:  fullScore,
			FinalPoints: roundHalfUp(fullScore * multiplier),
			Multiplier:  multiplier,
			NewStreak:   currentStreak + 1,
		}
	}

	correctEntry, okCorrect := catalog.Lookup(item.Category)
	guessedEntry, okGuessed := catalog.Lookup(guessedCategory)
	if !okCorrect || !okGuessed {
		return missedResult()
	}

	if correctEntry.Group != "" && guessedEntry.Group != "" && correctEntry.Group == guessedEntry.Group {
		awarded := roundHalfUp(fullScore * groupMultiplier)
		return domain.ScoreResult{
			BasePoints:  awarded,
			FinalPoints: awarded,
			Multiplier:  1.0,
			NewStreak:   currentStreak,
			Partial: &domain.PartialCredit{
				Awarded: awarded,
				Reason:  "Same group: " + correctEntry.Group,
			},
		}
	}

	if shared := sharedTags(correctEntry.Tags, guessedEntry.Tags); len(shared) > 0 {
		awarded := roundHalfUp(fullScore * tagMultiplier)
		plural := ""
		if len(shared) > 1 {
			plural = "s"
		}
		return domain.ScoreResult{
			BasePoints:  awarded,
			FinalPoints: awarded,
			Multiplier:  1.0,
			NewStreak:   currentStreak,
			Partial: &domain.PartialCredit{
				Awarded: awarded,
				Reason:  fmt.Sprintf("Shared tag%s: %s", plural, strings.Join(shared, ", ")),
			},
		}
	}

	return missedResult()
}

func missedResult() domain.ScoreResult {
	return domain.ScoreResult{Multiplier: 1.0, NewStreak: 0}
}

func sharedTags(correct, guessed []string) []string {
	guessedSet := make(map[string]struct{}, len(guessed))
	for _, tag := range guessed {
		guessedSet[tag] = struct{}{}
	}
	var shared []string
	for _, tag := range correct {
		if _, ok := guessedSet[tag]; ok {
			shared = append(shared, tag)
		}
	}
	return shared
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
