package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// ScoringMode controls how wrong answers are scored.
type ScoringMode string

const (
	// ScoringPositiveOnly awards the question weight for a correct answer and 0 otherwise.
	ScoringPositiveOnly ScoringMode = "positive_only"
	// ScoringNegative awards the weight for a correct answer and -weight for a wrong one.
	ScoringNegative ScoringMode = "negative"
)

// Valid reports whether the mode is one of the two known values.
func (m ScoringMode) Valid() bool {
	return m == ScoringPositiveOnly || m == ScoringNegative
}

// BookmarkSentinel is the answer value of placeholder rows that record a
// bookmark on a question the user has not answered yet. Placeholder rows are
// excluded from scoring and answered counts.
const BookmarkSentinel = "__bookmark__"

// Question models an MCQ question as stored in a questions_*.json file.
// The question text starts with its stable number ("7. ...").
type Question struct {
	Text         string          `json:"frage"`
	Options      []string        `json:"optionen"`
	CorrectIndex int             `json:"loesung"`
	Weight       int             `json:"gewichtung,omitempty"`
	Topic        string          `json:"thema,omitempty"`
	Explanation  json.RawMessage `json:"erklaerung,omitempty"`
}

// Number extracts the stable question number from the leading "N." of the
// question text. Returns 0 if the text carries no number.
func (q Question) Number() int {
	head, _, ok := strings.Cut(q.Text, ".")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil {
		return 0
	}
	return n
}

// WeightOrDefault returns the question weight, defaulting to 1.
func (q Question) WeightOrDefault() int {
	if q.Weight < 1 {
		return 1
	}
	return q.Weight
}

// CorrectOption returns the text of the correct option.
func (q Question) CorrectOption() (string, bool) {
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return "", false
	}
	return q.Options[q.CorrectIndex], true
}

// QuestionSet is a named collection of questions; the file name tags every
// answer row and partitions the answer log.
type QuestionSet struct {
	File      string
	Questions []Question
}

// AnswerEvent is one row of the answer log.
type AnswerEvent struct {
	UserHash      string
	UserDisplay   string
	UserPlain     string
	QuestionNr    int
	QuestionText  string
	Answer        string
	Points        int
	Time          time.Time
	Bookmarked    bool
	QuestionsFile string
}

// IsBookmarkPlaceholder reports whether the event only records a bookmark.
func (e AnswerEvent) IsBookmarkPlaceholder() bool {
	return e.Answer == BookmarkSentinel
}

// ItemStats holds the psychometric aggregates for one question.
type ItemStats struct {
	QuestionNr          int      `json:"questionNr"`
	QuestionText        string   `json:"question"`
	Answers             int      `json:"answers"`
	Correct             int      `json:"correct"`
	DifficultyPct       float64  `json:"difficultyPct"`
	DifficultyLabel     string   `json:"difficultyLabel"`
	Discrimination      *float64 `json:"discrimination"`
	DiscriminationLabel string   `json:"discriminationLabel"`
	TopDistractor       string   `json:"topDistractor"`
	TopDistractorShare  float64  `json:"topDistractorShare"`
}

// LeaderboardEntry is one user's aggregate over the answer log.
type LeaderboardEntry struct {
	Pseudonym string `json:"pseudonym"`
	Points    int    `json:"points"`
	Answers   int    `json:"answers"`
}

// Leaderboard captures the ordered scoreboard for one question set.
type Leaderboard struct {
	QuestionsFile string             `json:"questionsFile"`
	Entries       []LeaderboardEntry `json:"entries"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}
