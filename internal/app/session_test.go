package app

import (
	"testing"
	"time"

	"mc-test-service/internal/domain"
)

func testSet() domain.QuestionSet {
	return domain.QuestionSet{
		File: "questions_test.json",
		Questions: []domain.Question{
			{Text: "1. first", Options: []string{"a", "b"}, CorrectIndex: 0},
			{Text: "2. second", Options: []string{"a", "b"}, CorrectIndex: 1},
			{Text: "3. third", Options: []string{"a", "b"}, CorrectIndex: 0, Weight: 2},
		},
	}
}

func testSession(now func() time.Time) *Session {
	return NewSessionWithClock("hash", "alice", testSet(), DefaultTimeLimit, now, 42)
}

func TestNextQuestionPriority(t *testing.T) {
	s := testSession(time.Now)

	first, ok := s.NextQuestionIndex()
	if !ok {
		t.Fatalf("expected an unanswered question")
	}

	// A jump target wins over the shuffled order and is consumed once.
	target := (first + 1) % 3
	s.SetJumpTarget(target)
	if idx, _ := s.NextQuestionIndex(); idx != target {
		t.Fatalf("expected jump target %d, got %d", target, idx)
	}
	if idx, _ := s.NextQuestionIndex(); idx != first {
		t.Fatalf("jump target should be consumed, expected %d, got %d", first, idx)
	}

	// A just-answered question stays current until its feedback is dismissed.
	s.markAnswered(first, 1, "a")
	if idx, _ := s.NextQuestionIndex(); idx != first {
		t.Fatalf("expected explanation mode to pin question %d, got %d", first, idx)
	}
	s.DismissExplanation(first)
	if idx, _ := s.NextQuestionIndex(); idx == first {
		t.Fatalf("answered question should not come up again")
	}
}

func TestCompletionMonotonic(t *testing.T) {
	s := testSession(time.Now)
	for i := 0; i < 3; i++ {
		s.markAnswered(i, 1, "a")
		s.DismissExplanation(i)
	}
	if !s.IsComplete() {
		t.Fatalf("expected complete session")
	}
	if _, ok := s.NextQuestionIndex(); ok {
		t.Fatalf("expected no next question when complete")
	}

	before := s.Answered()
	s.markAnswered(0, 99, "b") // terminal: no take-backs
	after := s.Answered()
	for i := range before {
		if *before[i] != *after[i] {
			t.Fatalf("answered mask changed after completion at %d", i)
		}
	}
}

func TestRemainingTimeLazyStart(t *testing.T) {
	current := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }
	s := NewSessionWithClock("hash", "alice", testSet(), time.Minute, now, 1)

	if got := s.RemainingTime(); got != 60 {
		t.Fatalf("timer must not run before the first answer, got %d", got)
	}

	s.markAnswered(0, 1, "a")
	current = current.Add(45 * time.Second)
	if got := s.RemainingTime(); got != 15 {
		t.Fatalf("expected 15s remaining, got %d", got)
	}

	current = current.Add(30 * time.Second)
	if got := s.RemainingTime(); got > 0 {
		t.Fatalf("expected expiry, got %d", got)
	}
	if !s.TimeExpired() {
		t.Fatalf("expected expired flag to latch")
	}
}

func TestRehydrateMatchesByQuestionNumber(t *testing.T) {
	s := testSession(time.Now)
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	s.rehydrate([]domain.AnswerEvent{
		{UserHash: "hash", QuestionNr: 2, Answer: "b", Points: 1, Time: base.Add(time.Minute), QuestionsFile: "questions_test.json"},
		{UserHash: "hash", QuestionNr: 3, Answer: domain.BookmarkSentinel, Points: 0, Bookmarked: true, Time: base.Add(2 * time.Minute), QuestionsFile: "questions_test.json"},
		{UserHash: "hash", QuestionNr: 99, Answer: "a", Points: 1, Time: base, QuestionsFile: "questions_test.json"},
	})

	answered := s.Answered()
	if answered[1] == nil || *answered[1] != 1 {
		t.Fatalf("expected question 2 restored with 1 point, got %v", answered[1])
	}
	if answered[0] != nil || answered[2] != nil {
		t.Fatalf("expected other questions unanswered")
	}
	if bm := s.Bookmarks(); len(bm) != 1 || bm[0] != 2 {
		t.Fatalf("expected placeholder to restore bookmark on index 2, got %v", bm)
	}
	if got := s.Outcomes(); len(got) != 1 || !got[0] {
		t.Fatalf("expected one correct outcome, got %v", got)
	}
}

func TestBookmarkInsertionOrder(t *testing.T) {
	s := testSession(time.Now)
	s.toggleBookmark(2)
	s.toggleBookmark(0)
	if bm := s.Bookmarks(); len(bm) != 2 || bm[0] != 2 || bm[1] != 0 {
		t.Fatalf("expected insertion order [2 0], got %v", bm)
	}
	s.toggleBookmark(2)
	if bm := s.Bookmarks(); len(bm) != 1 || bm[0] != 0 {
		t.Fatalf("expected [0] after untoggle, got %v", bm)
	}
}
