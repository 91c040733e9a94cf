package app_test

import (
	"fmt"
	"testing"

	"daily-trivia-service/internal/app"
	"daily-trivia-service/internal/domain"
)

func testDirectory() []domain.CategoryEntry {
	return []domain.CategoryEntry{
		{Name: "Wildlife", Group: "Nature", Tags: []string{"animals", "outdoors"}, SFW: true},
		{Name: "Landscapes", Group: "Nature", Tags: []string{"outdoors", "travel"}, SFW: true},
		{Name: "Astronomy", Group: "Science", Tags: []string{"space"}, SFW: true},
		{Name: "Street Food", Group: "Food", Tags: []string{"food", "travel"}, SFW: true},
		{Name: "Fine Dining", Group: "Food", Tags: []string{"food"}, SFW: true},
		{Name: "Jazz", Group: "Music", Tags: []string{"music"}, SFW: true},
		{Name: "Synthwave", Group: "Music", Tags: []string{"music"}, SFW: true},
		{Name: "Architecture", Tags: []string{"travel"}, SFW: true},
		{Name: "Retro Gaming", Group: "Gaming", Tags: []string{"games"}, SFW: true},
		{Name: "Speedruns", Group: "Gaming", Tags: []string{"games"}, SFW: true},
		{Name: "Microscopy", Group: "Science", Tags: []string{"photos"}, SFW: true},
		{Name: "Urban Sketching", Group: "Art", Tags: []string{"art"}, SFW: true},
	}
}

// testCatalog builds n active items cycling through the directory's
// category names.
func testCatalog(n int) domain.Catalog {
	directory := testDirectory()
	items := make([]domain.ContentItem, 0, n)
	for i := 0; i < n; i++ {
		category := directory[i%len(directory)].Name
		items = append(items, domain.ContentItem{
			ID:        fmt.Sprintf("item-%02d", i),
			Title:     fmt.Sprintf("Item %02d", i),
			SourceURL: fmt.Sprintf("https://example.com/%02d", i),
			Category:  category,
			Media:     domain.Media{Type: "image", ThumbURL: "https://example.com/t.jpg"},
			Active:    true,
		})
	}
	return domain.NewCatalog(items, directory)
}

func TestDaySequenceDeterministic(t *testing.T) {
	catalog := testCatalog(12)

	first, err := app.DaySequence("2025-09-16", catalog)
	if err != nil {
		t.Fatalf("derive sequence: %v", err)
	}
	if len(first) != 10 {
		t.Fatalf("expected 10 items, got %d", len(first))
	}

	for call := 0; call < 5; call++ {
		again, err := app.DaySequence("2025-09-16", catalog)
		if err != nil {
			t.Fatalf("derive sequence: %v", err)
		}
		for i := range first {
			if again[i].ID != first[i].ID {
				t.Fatalf("call %d diverged at index %d: %s != %s", call, i, again[i].ID, first[i].ID)
			}
		}
	}
}

func TestDaySequenceUniqueActiveItems(t *testing.T) {
	catalog := testCatalog(12)
	sequence, err := app.DaySequence("2025-09-16", catalog)
	if err != nil {
		t.Fatalf("derive sequence: %v", err)
	}

	active := make(map[string]bool, len(catalog.Items))
	for _, item := range catalog.Items {
		active[item.ID] = true
	}
	seen := make(map[string]bool, len(sequence))
	for _, item := range sequence {
		if !active[item.ID] {
			t.Fatalf("item %s not in active set", item.ID)
		}
		if seen[item.ID] {
			t.Fatalf("duplicate item %s in sequence", item.ID)
		}
		seen[item.ID] = true
	}
}

func TestDaySequenceInsufficientContent(t *testing.T) {
	if _, err := app.DaySequence("2025-09-16", testCatalog(9)); err != domain.ErrInsufficientContent {
		t.Fatalf("expected insufficient content error, got %v", err)
	}
}

func TestDaySequenceIgnoresInactiveItems(t *testing.T) {
	directory := testDirectory()
	items := testCatalog(12).Items
	items = append(items, domain.ContentItem{ID: "inactive", Category: "Jazz", Active: false})
	catalog := domain.NewCatalog(items, directory)

	sequence, err := app.DaySequence("2025-09-16", catalog)
	if err != nil {
		t.Fatalf("derive sequence: %v", err)
	}
	for _, item := range sequence {
		if item.ID == "inactive" {
			t.Fatalf("inactive item selected")
		}
	}
}

func TestBuildOptionsIncludesCorrectOnce(t *testing.T) {
	catalog := testCatalog(12)
	item := catalog.Items[0]

	options := app.BuildOptions(item, catalog, 4)
	if len(options) != 4 {
		t.Fatalf("expected 4 options, got %d", len(options))
	}
	correct := 0
	for _, option := range options {
		if domain.NormalizeCategory(option) == domain.NormalizeCategory(item.Category) {
			correct++
		}
	}
	if correct != 1 {
		t.Fatalf("expected correct category exactly once, got %d", correct)
	}
}

func TestBuildOptionsPrefersDistractors(t *testing.T) {
	catalog := testCatalog(12)
	item := catalog.Items[0]
	item.Distractors = []string{"Jazz", "Astronomy", "Speedruns"}

	options := app.BuildOptions(item, catalog, 4)
	allowed := map[string]bool{
		domain.NormalizeCategory(item.Category): true,
		"jazz":                                  true,
		"astronomy":                             true,
		"speedruns":                             true,
	}
	for _, option := range options {
		if !allowed[domain.NormalizeCategory(option)] {
			t.Fatalf("unexpected option %q outside distractor set", option)
		}
	}
}

func TestDifficultyTiers(t *testing.T) {
	for i := 0; i < 5; i++ {
		if got := app.DifficultyForRound(i); got != domain.DifficultyEasy {
			t.Fatalf("round %d: expected easy, got %s", i, got)
		}
	}
	for i := 5; i < 10; i++ {
		if got := app.DifficultyForRound(i); got != domain.DifficultyHard {
			t.Fatalf("round %d: expected hard, got %s", i, got)
		}
	}
}
