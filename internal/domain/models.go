package domain

import "strings"

// Difficulty selects the presentation/validation mode for a round.
// It has no effect on scoring.
type Difficulty string

const (
	DifficultyEasy Difficulty = "easy"
	DifficultyHard Difficulty = "hard"
)

// TotalRounds is the fixed length of a daily challenge.
const TotalRounds = 10

// Media references the content shown for a round.
type Media struct {
	Type     string `json:"type"`
	ThumbURL string `json:"thumbUrl"`
	URL      string `json:"url,omitempty"`
	HLSURL   string `json:"hlsUrl,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

// ContentItem is an immutable catalog entry produced by the curation
// pipeline. It is never mutated at request time.
type ContentItem struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	SourceURL   string   `json:"sourceUrl"`
	Category    string   `json:"category"`
	Group       string   `json:"group,omitempty"`
	Tags        []string `json:"tags"`
	Media       Media    `json:"media"`
	Distractors []string `json:"distractors,omitempty"`
	Active      bool     `json:"active"`
}

// CategoryEntry describes one guessable category in the directory.
type CategoryEntry struct {
	Name  string   `json:"name"`
	Group string   `json:"group"`
	Tags  []string `json:"tags"`
	SFW   bool     `json:"sfw"`
}

// Catalog is an immutable snapshot of the active content set and the
// category directory, constructed at load time and passed explicitly to
// the selection and scoring paths.
type Catalog struct {
	Items     []ContentItem
	Directory []CategoryEntry

	byName map[string]*CategoryEntry
}

// NewCatalog filters out inactive or id-less items and non-SFW directory
// entries, and indexes the directory for case-insensitive lookup.
func NewCatalog(items []ContentItem, directory []CategoryEntry) Catalog {
	active := make([]ContentItem, 0, len(items))
	for _, item := range items {
		if item.ID == "" || !item.Active {
			continue
		}
		active = append(active, item)
	}

	safe := make([]CategoryEntry, 0, len(directory))
	for _, entry := range directory {
		if !entry.SFW {
			continue
		}
		safe = append(safe, entry)
	}

	byName := make(map[string]*CategoryEntry, len(safe))
	for i := range safe {
		byName[NormalizeCategory(safe[i].Name)] = &safe[i]
	}

	return Catalog{Items: active, Directory: safe, byName: byName}
}

// Lookup returns the directory entry for a category name, matched
// case-insensitively on the trimmed name.
func (c Catalog) Lookup(name string) (CategoryEntry, bool) {
	entry, ok := c.byName[NormalizeCategory(name)]
	if !ok {
		return CategoryEntry{}, false
	}
	return *entry, true
}

// NormalizeCategory trims and case-folds a category name for comparison.
func NormalizeCategory(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// RoundPayload is what the routing layer hands to the client for one
// round; the correct category is withheld.
type RoundPayload struct {
	RoundID     string     `json:"roundId"`
	Title       string     `json:"title"`
	Media       Media      `json:"media"`
	Options     []string   `json:"options"`
	RoundIndex  int        `json:"roundIndex"`
	TotalRounds int        `json:"totalRounds"`
	Difficulty  Difficulty `json:"difficulty"`
}

// GuessRequest is the client's answer for one round. The reported
// streak and score are display hints only; the server recomputes both
// from its own session history.
type GuessRequest struct {
	RoundID      string `json:"roundId"`
	Category     string `json:"category"`
	ClientStreak int    `json:"currentStreak,omitempty"`
	ClientScore  int    `json:"currentScore,omitempty"`
}

// PartialCredit details a reduced award for a near-miss guess.
type PartialCredit struct {
	Awarded int    `json:"awarded"`
	Reason  string `json:"reason"`
}

// ScoreResult is the outcome of scoring a single guess.
type ScoreResult struct {
	Correct     bool
	BasePoints  int
	FinalPoints int
	Multiplier  float64
	NewStreak   int
	Partial     *PartialCredit
}

// Reveal exposes the withheld answer after a guess has been scored.
type Reveal struct {
	Category  string `json:"category"`
	SourceURL string `json:"sourceUrl"`
}

// GuessResult is the full response to a scored guess.
type GuessResult struct {
	Correct            bool           `json:"correct"`
	Points             int            `json:"points"`
	BasePoints         int            `json:"basePoints"`
	Multiplier         float64        `json:"multiplier"`
	Partial            *PartialCredit `json:"partial,omitempty"`
	Reveal             Reveal         `json:"reveal"`
	CumulativeScore    int            `json:"cumulativeScore"`
	Streak             int            `json:"streak"`
	NextRoundAvailable bool           `json:"nextRoundAvailable"`
}

// RoundResult is one recorded round inside a session. The session keeps
// every result so the cumulative score can be rebuilt server-side.
type RoundResult struct {
	Points  int  `json:"points"`
	Correct bool `json:"correct"`
}

// SessionProgress is the per-(user, day) session record. It doubles as
// the completion record and the leaderboard day-score source, so it is
// never deleted.
type SessionProgress struct {
	DayKey       string              `json:"dayKey"`
	UserID       string              `json:"userId"`
	CurrentRound int                 `json:"currentRound"`
	Score        int                 `json:"score"`
	Streak       int                 `json:"streak"`
	Completed    bool                `json:"completed"`
	CompletedAt  int64               `json:"completedAt,omitempty"`
	Rounds       map[int]RoundResult `json:"rounds,omitempty"`
}

// PlayCheck reports whether a user may play today.
type PlayCheck struct {
	Allowed  bool             `json:"canPlay"`
	Reason   string           `json:"reason,omitempty"`
	Progress *SessionProgress `json:"progress,omitempty"`
}

// DayScore is one day's contribution to a weekly record.
type DayScore struct {
	Score  int `json:"score"`
	Streak int `json:"streak"`
}

// WeeklyUserRecord accumulates one user's daily scores for a week.
// A later write for the same day replaces that day's contribution.
type WeeklyUserRecord struct {
	UserID      string              `json:"userId"`
	DailyScores map[string]DayScore `json:"dailyScores"`
	WeeklyScore int                 `json:"weeklyScore"`
	GamesPlayed int                 `json:"gamesPlayed"`
	LastPlayed  string              `json:"lastPlayed"`
}

// LeaderboardEntry is the ranked read view of one player.
type LeaderboardEntry struct {
	UserID       string `json:"userId"`
	DisplayName  string `json:"displayName"`
	WeeklyScore  int    `json:"weeklyScore"`
	GamesPlayed  int    `json:"gamesPlayed"`
	AverageScore int    `json:"averageScore"`
	LastPlayed   string `json:"lastPlayed"`
	Rank         int    `json:"rank"`
}

// WeeklyLeaderboard is the ranked view for the current week.
type WeeklyLeaderboard struct {
	WeekKey      string             `json:"weekKey"`
	Entries      []LeaderboardEntry `json:"entries"`
	TotalPlayers int                `json:"totalPlayers"`
	UserEntry    *LeaderboardEntry  `json:"userEntry,omitempty"`
}

// DifficultyBreakdown counts correct guesses per tier.
type DifficultyBreakdown struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// DailyStats summarizes one played day for the history view.
type DailyStats struct {
	DayKey      string              `json:"dayKey"`
	Score       int                 `json:"score"`
	Streak      int                 `json:"streak"`
	Completed   bool                `json:"completed"`
	CompletedAt int64               `json:"completedAt,omitempty"`
	Easy        DifficultyBreakdown `json:"easy"`
	Hard        DifficultyBreakdown `json:"hard"`
}
