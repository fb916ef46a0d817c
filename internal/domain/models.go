package domain

import "time"

// QuestionType discriminates single-choice true/false questions from
// multi-select ones.
type QuestionType string

const (
	// QuestionTypeQCM allows selecting one or more options.
	QuestionTypeQCM QuestionType = "QCM"
	// QuestionTypeTrueFalse allows exactly one selection.
	QuestionTypeTrueFalse QuestionType = "VRAI_FAUX"
)

// AllocationStatus tracks the lifecycle of an awarded gift.
type AllocationStatus string

const (
	AllocationPending  AllocationStatus = "PENDING"
	AllocationRedeemed AllocationStatus = "REDEEMED"
)

// AnswerStatus is a progress history marker for one question.
type AnswerStatus string

const (
	AnswerCorrect AnswerStatus = "correct"
	AnswerWrong   AnswerStatus = "wrong"
	AnswerSkipped AnswerStatus = "skipped"
)

// Player holds per-user game state. Points move by +5/-10 per answer;
// LastMilestone is a monotonic watermark over crossed 100-point thresholds.
type Player struct {
	ID            string
	UserID        string
	Email         string
	DisplayName   string
	Zone          string
	LevelID       string
	Points        int
	LastMilestone int
	CreatedAt     time.Time
}

// User is an authentication principal. Capabilities gate admin routes.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Capabilities []string
	CreatedAt    time.Time
}

// Option represents a possible answer for a question.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question models a quiz question. QCM questions may have several correct
// options; true/false questions have exactly one.
type Question struct {
	ID          string       `json:"id"`
	Text        string       `json:"text"`
	Type        QuestionType `json:"type"`
	Options     []Option     `json:"options"`
	Explanation string       `json:"explanation,omitempty"`
}

// Quiz is an ordered sequence of questions within a theme and level.
type Quiz struct {
	ID        string     `json:"id"`
	ThemeID   string     `json:"themeId"`
	LevelID   string     `json:"levelId"`
	Position  int        `json:"position"`
	Questions []Question `json:"questions"`
}

// Theme groups quizzes by topic (e.g. "Recycling").
type Theme struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Level is a difficulty tier. Rank orders levels; MinPoints is the score
// needed to enter the level, used for progression percentages.
type Level struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Rank      int    `json:"rank"`
	MinPoints int    `json:"minPoints"`
}

// Gift is a physical reward with finite stock and optional eligibility
// filters. Invariant: RemainingCount + WonCount == TotalQuantity.
type Gift struct {
	ID             string
	Name           string
	Company        string
	Description    string
	TotalQuantity  int
	WonCount       int
	RemainingCount int
	ValidFrom      *time.Time
	ValidUntil     *time.Time
	Zone           string // empty means any zone
	LevelID        string // empty means any level
}

// EligibleFor reports whether the gift can be drawn for a player in the
// given zone and level at the given instant.
func (g Gift) EligibleFor(now time.Time, zone, levelID string) bool {
	if g.RemainingCount <= 0 {
		return false
	}
	if g.ValidFrom != nil && now.Before(*g.ValidFrom) {
		return false
	}
	if g.ValidUntil != nil && now.After(*g.ValidUntil) {
		return false
	}
	if g.Zone != "" && g.Zone != zone {
		return false
	}
	if g.LevelID != "" && g.LevelID != levelID {
		return false
	}
	return true
}

// Allocation records one gift awarded to one player for one milestone.
// At most one allocation exists per (player, milestone) pair.
type Allocation struct {
	ID          string
	PlayerID    string
	GiftID      string
	Milestone   int
	Status      AllocationStatus
	AllocatedAt time.Time
	RedeemedAt  *time.Time
}

// AnswerEvent is one entry of a player's progress history. Exactly one
// event exists per (player, question); resubmissions are rejected.
type AnswerEvent struct {
	ID         string
	PlayerID   string
	QuizID     string
	QuestionID string
	Status     AnswerStatus
	OptionIDs  []string
	Points     int
	AnsweredAt time.Time
}

// AnswerSubmission carries the selected option ids for one question.
type AnswerSubmission struct {
	QuestionID string
	OptionIDs  []string
}

// GiftWin is the client-facing shape of a fresh allocation.
type GiftWin struct {
	AllocationID string `json:"allocationId"`
	GiftID       string `json:"giftId"`
	Name         string `json:"name"`
	Company      string `json:"company"`
	Description  string `json:"description,omitempty"`
	Milestone    int    `json:"milestone"`
}

// LeaderboardEntry is a snapshot-friendly view of a player's standing.
type LeaderboardEntry struct {
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
	Points      int    `json:"points"`
}

// Leaderboard captures the ordered top players at one instant.
type Leaderboard struct {
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}
