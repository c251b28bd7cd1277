package app

import (
	"testing"

	"mc-test-service/internal/domain"
)

func TestPointsForAnswer(t *testing.T) {
	if got := PointsForAnswer(true, 2, domain.ScoringPositiveOnly); got != 2 {
		t.Fatalf("correct answer: expected 2 points, got %d", got)
	}
	if got := PointsForAnswer(false, 2, domain.ScoringPositiveOnly); got != 0 {
		t.Fatalf("wrong answer positive_only: expected 0, got %d", got)
	}
	if got := PointsForAnswer(false, 2, domain.ScoringNegative); got != -2 {
		t.Fatalf("wrong answer negative: expected -2, got %d", got)
	}
	if got := PointsForAnswer(true, 0, domain.ScoringNegative); got != 1 {
		t.Fatalf("zero weight defaults to 1, got %d", got)
	}
}

func TestCurrentScoreModes(t *testing.T) {
	questions := []domain.Question{
		{Text: "1. a", Options: []string{"x", "y"}, Weight: 1},
		{Text: "2. b", Options: []string{"x", "y"}, Weight: 2},
		{Text: "3. c", Options: []string{"x", "y"}, Weight: 1},
	}
	one, minusTwo := 1, -2
	answered := []*int{&one, &minusTwo, nil}

	if got := CurrentScore(answered, questions, domain.ScoringPositiveOnly); got != 1 {
		t.Fatalf("positive_only: only stored value == weight counts, expected 1, got %d", got)
	}
	if got := CurrentScore(answered, questions, domain.ScoringNegative); got != -1 {
		t.Fatalf("negative: signed values sum directly, expected -1, got %d", got)
	}
	if got := MaxScore(questions); got != 4 {
		t.Fatalf("max score: expected 4, got %d", got)
	}
}

func TestScoreBounds(t *testing.T) {
	questions := []domain.Question{
		{Text: "1. a", Options: []string{"x", "y"}, Weight: 3},
		{Text: "2. b", Options: []string{"x", "y"}, Weight: 2},
	}
	max := MaxScore(questions)

	masks := [][]*int{
		{nil, nil},
		{intPtr(3), nil},
		{intPtr(3), intPtr(2)},
		{intPtr(0), intPtr(0)},
		{intPtr(-3), intPtr(-2)},
	}
	for _, answered := range masks {
		pos := CurrentScore(answered, questions, domain.ScoringPositiveOnly)
		if pos < 0 || pos > max {
			t.Fatalf("positive_only score %d out of [0,%d] for %v", pos, max, answered)
		}
		neg := CurrentScore(answered, questions, domain.ScoringNegative)
		if neg < -max || neg > max {
			t.Fatalf("negative score %d out of [-%d,%d]", neg, max, max)
		}
	}
}

func TestPercentageEmptySet(t *testing.T) {
	if got := Percentage(nil, nil, domain.ScoringPositiveOnly); got != 0.0 {
		t.Fatalf("empty set: expected 0.0, got %f", got)
	}
}

func intPtr(v int) *int { return &v }
