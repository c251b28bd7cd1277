package app

import (
	"math"
	"sort"
	"time"

	"mc-test-service/internal/domain"
)

// DifficultyLabel buckets the percentage of correct answers. Thresholds are
// fixed: below 30 is hard, up to 70 medium, above that easy.
func DifficultyLabel(pct float64) string {
	switch {
	case pct < 30:
		return "schwierig"
	case pct <= 70:
		return "mittel"
	default:
		return "leicht"
	}
}

// DiscriminationLabel buckets the point-biserial coefficient.
func DiscriminationLabel(r float64) string {
	switch {
	case r >= 0.40:
		return "sehr gut"
	case r >= 0.30:
		return "gut"
	case r >= 0.20:
		return "mittel"
	default:
		return "schwach"
	}
}

// BuildItemStats aggregates the answer log into per-question psychometrics:
// difficulty (share of correct answers), discrimination (correlation of the
// per-row correctness indicator with the responder's total correct count on
// the other items), and the dominant distractor. Bookmark placeholders are
// excluded throughout. The log is never mutated.
func BuildItemStats(events []domain.AnswerEvent, questions []domain.Question) []domain.ItemStats {
	answers := make([]domain.AnswerEvent, 0, len(events))
	totalCorrectByUser := make(map[string]int)
	for _, ev := range events {
		if ev.IsBookmarkPlaceholder() {
			continue
		}
		answers = append(answers, ev)
		if ev.Points > 0 {
			totalCorrectByUser[ev.UserHash]++
		}
	}

	stats := make([]domain.ItemStats, 0, len(questions))
	for _, q := range questions {
		nr := q.Number()
		if nr <= 0 {
			continue
		}
		correctOption, _ := q.CorrectOption()

		var (
			n, nCorrect     int
			indicator       []float64
			restScore       []float64
			distractorCount = map[string]int{}
		)
		for _, ev := range answers {
			if ev.QuestionNr != nr {
				continue
			}
			n++
			x := 0.0
			if ev.Points > 0 {
				x = 1.0
				nCorrect++
			} else if ev.Answer != correctOption {
				distractorCount[ev.Answer]++
			}
			indicator = append(indicator, x)
			restScore = append(restScore, float64(totalCorrectByUser[ev.UserHash])-x)
		}
		if n == 0 {
			continue
		}

		st := domain.ItemStats{
			QuestionNr:    nr,
			QuestionText:  q.Text,
			Answers:       n,
			Correct:       nCorrect,
			DifficultyPct: float64(nCorrect) / float64(n) * 100,
		}
		st.DifficultyLabel = DifficultyLabel(st.DifficultyPct)

		if r, ok := pearson(indicator, restScore); ok {
			v := r
			st.Discrimination = &v
			st.DiscriminationLabel = DiscriminationLabel(r)
		} else {
			st.DiscriminationLabel = "n/a"
		}

		if opt, count := dominant(distractorCount); count > 0 {
			st.TopDistractor = opt
			st.TopDistractorShare = float64(count) / float64(n)
		}

		stats = append(stats, st)
	}

	sort.Slice(stats, func(i, j int) bool { return stats[i].QuestionNr < stats[j].QuestionNr })
	return stats
}

// pearson returns the correlation of two equal-length series, or ok=false
// when either series has zero variance (the statistic is undefined then).
func pearson(xs, ys []float64) (float64, bool) {
	n := float64(len(xs))
	if len(xs) != len(ys) || len(xs) < 2 {
		return 0, false
	}
	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX, meanY := sumX/n, sumY/n

	var cov, varX, varY float64
	for i := range xs {
		dx, dy := xs[i]-meanX, ys[i]-meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0, false
	}
	r := cov / math.Sqrt(varX*varY)
	return r, true
}

func dominant(counts map[string]int) (string, int) {
	best, bestCount := "", 0
	for opt, c := range counts {
		if c > bestCount || (c == bestCount && opt < best) {
			best, bestCount = opt, c
		}
	}
	return best, bestCount
}

// BuildLeaderboard aggregates per-user totals over one question set:
// summed points, distinct answered questions, first-seen pseudonym.
func BuildLeaderboard(events []domain.AnswerEvent, questionsFile string, now time.Time) domain.Leaderboard {
	type agg struct {
		pseudonym string
		points    int
		answered  map[int]bool
		order     int
	}
	byUser := make(map[string]*agg)
	seq := 0
	for _, ev := range events {
		if ev.IsBookmarkPlaceholder() {
			continue
		}
		a, ok := byUser[ev.UserHash]
		if !ok {
			a = &agg{pseudonym: ev.UserPlain, answered: make(map[int]bool), order: seq}
			byUser[ev.UserHash] = a
			seq++
		}
		a.points += ev.Points
		a.answered[ev.QuestionNr] = true
	}

	entries := make([]domain.LeaderboardEntry, 0, len(byUser))
	orders := make(map[string]int, len(byUser))
	for _, a := range byUser {
		entries = append(entries, domain.LeaderboardEntry{
			Pseudonym: a.pseudonym,
			Points:    a.points,
			Answers:   len(a.answered),
		})
		orders[a.pseudonym] = a.order
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return orders[entries[i].Pseudonym] < orders[entries[j].Pseudonym]
	})

	return domain.Leaderboard{QuestionsFile: questionsFile, Entries: entries, UpdatedAt: now}
}

// TopCompleted filters the leaderboard to users who answered the whole set
// and caps it at limit entries.
func TopCompleted(events []domain.AnswerEvent, numQuestions, limit int) []domain.LeaderboardEntry {
	if numQuestions <= 0 {
		return nil
	}
	lb := BuildLeaderboard(events, "", time.Time{})
	out := make([]domain.LeaderboardEntry, 0, limit)
	for _, e := range lb.Entries {
		if e.Answers >= numQuestions {
			out = append(out, e)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}
