package app

import (
	"math/rand"

	"daily-trivia-service/internal/domain"
)

// DefaultOptionCount is the number of choices offered on easy rounds.
const DefaultOptionCount = 4

// DaySequence deterministically derives the day's ordered ten items from
// the catalog snapshot. The day key seeds an LCG that drives a
// Fisher-Yates walk of the entire active set, so the result is stable
// for a given (day key, catalog) pair regardless of catalog size. Any
// change to the catalog contents changes the sequence for all days.
func DaySequence(dayKey string, catalog domain.Catalog) ([]domain.ContentItem, error) {
	if len(catalog.Items) < domain.TotalRounds {
		return nil, domain.ErrInsufficientContent
	}

	seed := daySeed(dayKey)
	shuffled := make([]domain.ContentItem, len(catalog.Items))
	copy(shuffled, catalog.Items)
	for i := len(shuffled) - 1; i > 0; i-- {
		seed = seed*1103515245 + 12345
		j := int(seed % uint32(i+1))
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	return shuffled[:domain.TotalRounds], nil
}

// daySeed folds the UTF-8 bytes of the day key into a 32-bit seed with a
// polynomial rolling hash.
func daySeed(dayKey string) uint32 {
	var h uint32
	for _, b := range []byte(dayKey) {
		h = h*31 + uint32(b)
	}
	return h
}

// BuildOptions assembles the multiple-choice set for an item: the
// correct category exactly once plus distractors, preferring the item's
// pre-assigned ones and falling back to the category directory. The
// shuffle is plain math/rand on purpose; option order is presentation
// only and may differ between fetches of the same round.
func BuildOptions(item domain.ContentItem, catalog domain.Catalog, count int) []string {
	if count <= 0 {
		count = DefaultOptionCount
	}

	correct := domain.NormalizeCategory(item.Category)
	options := []string{item.Category}
	seen := map[string]struct{}{correct: {}}

	pool := item.Distractors
	if len(pool) == 0 {
		pool = make([]string, 0, len(catalog.Directory))
		for _, entry := range catalog.Directory {
			pool = append(pool, entry.Name)
		}
	}
	for _, name := range pool {
		if len(options) >= count {
			break
		}
		key := domain.NormalizeCategory(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		options = append(options, name)
	}

	rand.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	return options
}

// DifficultyForRound classifies rounds 0-4 as easy (closed multiple
// choice) and 5-9 as hard (open-ended guess validated against the
// directory). The tier never affects point values.
func DifficultyForRound(roundIndex int) domain.Difficulty {
	if roundIndex < domain.TotalRounds/2 {
		return domain.DifficultyEasy
	}
	return domain.DifficultyHard
}
