package app

import "mc-test-service/internal/domain"

// PointsForAnswer computes the stored point value for a single answer.
// A correct answer is always worth the question weight; a wrong one is worth
// 0 in positive_only mode and -weight in negative mode.
func PointsForAnswer(correct bool, weight int, mode domain.ScoringMode) int {
	if weight < 1 {
		weight = 1
	}
	if correct {
		return weight
	}
	if mode == domain.ScoringNegative {
		return -weight
	}
	return 0
}

// MaxScore is the sum of all question weights, independent of the mode.
func MaxScore(questions []domain.Question) int {
	total := 0
	for _, q := range questions {
		total += q.WeightOrDefault()
	}
	return total
}

// CurrentScore sums the score over the answered mask. Entries are nil for
// unanswered questions or hold the stored point value.
//
// In positive_only mode only answers whose stored value equals the question
// weight (i.e. correct ones) count. In negative mode the stored values are
// already signed and are summed directly.
func CurrentScore(answered []*int, questions []domain.Question, mode domain.ScoringMode) int {
	total := 0
	for i, p := range answered {
		if p == nil || i >= len(questions) {
			continue
		}
		if mode == domain.ScoringPositiveOnly {
			if w := questions[i].WeightOrDefault(); *p == w {
				total += w
			}
			continue
		}
		total += *p
	}
	return total
}

// Percentage returns current/max in [0,1], or 0 for an empty question set.
func Percentage(answered []*int, questions []domain.Question, mode domain.ScoringMode) float64 {
	max := MaxScore(questions)
	if max <= 0 {
		return 0.0
	}
	return float64(CurrentScore(answered, questions, mode)) / float64(max)
}
