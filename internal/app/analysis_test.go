package app

import (
	"math"
	"testing"
	"time"

	"mc-test-service/internal/domain"
)

func TestDifficultyLabelBoundaries(t *testing.T) {
	cases := []struct {
		pct  float64
		want string
	}{
		{29.9, "schwierig"},
		{30.0, "mittel"},
		{70.0, "mittel"},
		{70.1, "leicht"},
	}
	for _, c := range cases {
		if got := DifficultyLabel(c.pct); got != c.want {
			t.Fatalf("DifficultyLabel(%.1f) = %q, want %q", c.pct, got, c.want)
		}
	}
}

func TestDiscriminationLabels(t *testing.T) {
	cases := []struct {
		r    float64
		want string
	}{
		{0.45, "sehr gut"},
		{0.35, "gut"},
		{0.25, "mittel"},
		{0.10, "schwach"},
	}
	for _, c := range cases {
		if got := DiscriminationLabel(c.r); got != c.want {
			t.Fatalf("DiscriminationLabel(%.2f) = %q, want %q", c.r, got, c.want)
		}
	}
}

func analysisQuestions() []domain.Question {
	return []domain.Question{
		{Text: "1. one", Options: []string{"A", "B", "C"}, CorrectIndex: 1},
		{Text: "2. two", Options: []string{"A", "B"}, CorrectIndex: 0},
	}
}

func TestBuildItemStatsPointBiserial(t *testing.T) {
	// Three users: a answers both correctly, b gets only question 1,
	// c gets neither. For question 1 the indicator correlates 0.5 with
	// the rest-score.
	events := []domain.AnswerEvent{
		{UserHash: "a", UserPlain: "a", QuestionNr: 1, Answer: "B", Points: 1},
		{UserHash: "a", UserPlain: "a", QuestionNr: 2, Answer: "A", Points: 1},
		{UserHash: "b", UserPlain: "b", QuestionNr: 1, Answer: "B", Points: 1},
		{UserHash: "b", UserPlain: "b", QuestionNr: 2, Answer: "B", Points: 0},
		{UserHash: "c", UserPlain: "c", QuestionNr: 1, Answer: "A", Points: 0},
		{UserHash: "c", UserPlain: "c", QuestionNr: 2, Answer: "B", Points: 0},
	}

	stats := BuildItemStats(events, analysisQuestions())
	if len(stats) != 2 {
		t.Fatalf("expected stats for 2 questions, got %d", len(stats))
	}

	q1 := stats[0]
	if q1.Answers != 3 || q1.Correct != 2 {
		t.Fatalf("q1: expected 3 answers / 2 correct, got %d/%d", q1.Answers, q1.Correct)
	}
	if q1.DifficultyLabel != "mittel" {
		t.Fatalf("q1: expected mittel at %.1f%%, got %q", q1.DifficultyPct, q1.DifficultyLabel)
	}
	if q1.Discrimination == nil {
		t.Fatalf("q1: expected discrimination value")
	}
	if math.Abs(*q1.Discrimination-0.5) > 1e-9 {
		t.Fatalf("q1: expected r=0.5, got %f", *q1.Discrimination)
	}
	if q1.TopDistractor != "A" {
		t.Fatalf("q1: expected dominant distractor A, got %q", q1.TopDistractor)
	}
}

func TestBuildItemStatsZeroVariance(t *testing.T) {
	// Everyone answers question 1 correctly: the indicator has zero
	// variance and the statistic is undefined.
	events := []domain.AnswerEvent{
		{UserHash: "a", QuestionNr: 1, Answer: "B", Points: 1},
		{UserHash: "b", QuestionNr: 1, Answer: "B", Points: 1},
	}
	stats := BuildItemStats(events, analysisQuestions())
	if len(stats) != 1 {
		t.Fatalf("expected one item, got %d", len(stats))
	}
	if stats[0].Discrimination != nil {
		t.Fatalf("expected missing discrimination, got %f", *stats[0].Discrimination)
	}
	if stats[0].DiscriminationLabel != "n/a" {
		t.Fatalf("expected n/a label, got %q", stats[0].DiscriminationLabel)
	}
}

func TestBuildItemStatsIgnoresPlaceholders(t *testing.T) {
	events := []domain.AnswerEvent{
		{UserHash: "a", QuestionNr: 1, Answer: domain.BookmarkSentinel, Points: 0, Bookmarked: true},
		{UserHash: "b", QuestionNr: 1, Answer: "B", Points: 1},
	}
	stats := BuildItemStats(events, analysisQuestions())
	if len(stats) != 1 || stats[0].Answers != 1 {
		t.Fatalf("placeholder must not count as an answer, got %+v", stats)
	}
}

func TestBuildLeaderboardOrdersByPoints(t *testing.T) {
	events := []domain.AnswerEvent{
		{UserHash: "a", UserPlain: "alice", QuestionNr: 1, Answer: "B", Points: 1},
		{UserHash: "b", UserPlain: "bob", QuestionNr: 1, Answer: "B", Points: 1},
		{UserHash: "b", UserPlain: "bob", QuestionNr: 2, Answer: "A", Points: 1},
		{UserHash: "a", UserPlain: "alice", QuestionNr: 1, Answer: domain.BookmarkSentinel, Points: 0},
	}
	lb := BuildLeaderboard(events, "questions_test.json", time.Now())
	if len(lb.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(lb.Entries))
	}
	if lb.Entries[0].Pseudonym != "bob" || lb.Entries[0].Points != 2 {
		t.Fatalf("expected bob leading with 2, got %+v", lb.Entries[0])
	}
	if lb.Entries[1].Answers != 1 {
		t.Fatalf("placeholder must not raise the answer count, got %+v", lb.Entries[1])
	}
}

func TestTopCompletedFiltersUnfinished(t *testing.T) {
	events := []domain.AnswerEvent{
		{UserHash: "a", UserPlain: "alice", QuestionNr: 1, Points: 1},
		{UserHash: "a", UserPlain: "alice", QuestionNr: 2, Points: 1},
		{UserHash: "b", UserPlain: "bob", QuestionNr: 1, Points: 1},
	}
	top := TopCompleted(events, 2, 5)
	if len(top) != 1 || top[0].Pseudonym != "alice" {
		t.Fatalf("expected only alice completed, got %+v", top)
	}
	if got := TopCompleted(events, 0, 5); got != nil {
		t.Fatalf("non-positive question count: expected nil, got %+v", got)
	}
}
