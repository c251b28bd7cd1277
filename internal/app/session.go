package app

import (
	"math/rand"
	"sync"
	"time"

	"mc-test-service/internal/domain"
)

// DefaultTimeLimit bounds a test run; expiry forces the session into review mode.
const DefaultTimeLimit = 60 * time.Minute

// Session is the in-memory state of one user working through one question set.
// It is rehydrated from the answer log on resume; the shuffled question and
// option orders are per-session and never persisted.
type Session struct {
	mu sync.Mutex

	userHash      string
	pseudonym     string
	questionsFile string
	questions     []domain.Question

	answered    []*int   // index -> stored points, nil while unanswered
	answers     []string // index -> chosen option text
	order       []int    // shuffled question indices
	optionOrder [][]string
	bookmarked  []int // insertion order
	outcomes    []bool

	startTime   time.Time // zero until the first answer
	timeLimit   time.Duration
	timeExpired bool

	jumpTo      *int // one-shot jump target set by clicking a bookmark
	explainIdx  *int // question waiting for its feedback to be dismissed
	now         func() time.Time
}

func newSession(userHash, pseudonym string, set domain.QuestionSet, limit time.Duration, now func() time.Time, rnd *rand.Rand) *Session {
	n := len(set.Questions)
	s := &Session{
		userHash:      userHash,
		pseudonym:     pseudonym,
		questionsFile: set.File,
		questions:     set.Questions,
		answered:      make([]*int, n),
		answers:       make([]string, n),
		order:         rnd.Perm(n),
		optionOrder:   make([][]string, n),
		timeLimit:     limit,
		now:           now,
	}
	for i, q := range set.Questions {
		opts := make([]string, len(q.Options))
		copy(opts, q.Options)
		rnd.Shuffle(len(opts), func(a, b int) { opts[a], opts[b] = opts[b], opts[a] })
		s.optionOrder[i] = opts
	}
	return s
}

// NewSessionWithClock builds a session with an injected clock and RNG seed,
// for deterministic tests.
func NewSessionWithClock(userHash, pseudonym string, set domain.QuestionSet, limit time.Duration, now func() time.Time, seed int64) *Session {
	return newSession(userHash, pseudonym, set, limit, now, rand.New(rand.NewSource(seed)))
}

// UserHash returns the storage key of the session owner.
func (s *Session) UserHash() string { return s.userHash }

// Pseudonym returns the plain display name the user entered.
func (s *Session) Pseudonym() string { return s.pseudonym }

// QuestionsFile returns the question-set tag this session is bound to.
func (s *Session) QuestionsFile() string { return s.questionsFile }

// Questions returns the loaded question set in original order.
func (s *Session) Questions() []domain.Question { return s.questions }

// Order returns the session's shuffled question order.
func (s *Session) Order() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.order))
	copy(out, s.order)
	return out
}

// ShuffledOptions returns the per-session option order for a question.
func (s *Session) ShuffledOptions(idx int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx < 0 || idx >= len(s.optionOrder) {
		return nil
	}
	out := make([]string, len(s.optionOrder[idx]))
	copy(out, s.optionOrder[idx])
	return out
}

// Answered returns a copy of the answered mask.
func (s *Session) Answered() []*int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*int, len(s.answered))
	copy(out, s.answered)
	return out
}

// AnswerFor returns the chosen option for a question, or "" if unanswered.
func (s *Session) AnswerFor(idx int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx < 0 || idx >= len(s.answers) {
		return ""
	}
	return s.answers[idx]
}

// Outcomes returns the chronological correct/wrong history, for streaks.
func (s *Session) Outcomes() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]bool, len(s.outcomes))
	copy(out, s.outcomes)
	return out
}

func (s *Session) isAnswered(idx int) bool {
	return idx >= 0 && idx < len(s.answered) && s.answered[idx] != nil
}

// IsAnswered reports whether the question at idx has a recorded answer.
func (s *Session) IsAnswered(idx int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isAnswered(idx)
}

// markAnswered records points and the chosen option; answering is terminal.
func (s *Session) markAnswered(idx, points int, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isAnswered(idx) {
		return
	}
	p := points
	s.answered[idx] = &p
	s.answers[idx] = answer
	s.outcomes = append(s.outcomes, points > 0)
	s.explainIdx = &idx
	if s.startTime.IsZero() {
		s.startTime = s.now()
	}
}

// rollbackAnswer undoes markAnswered after a failed persist so the session
// does not run ahead of the store.
func (s *Session) rollbackAnswer(idx int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isAnswered(idx) {
		return
	}
	s.answered[idx] = nil
	s.answers[idx] = ""
	if len(s.outcomes) > 0 {
		s.outcomes = s.outcomes[:len(s.outcomes)-1]
	}
	if s.explainIdx != nil && *s.explainIdx == idx {
		s.explainIdx = nil
	}
}

// DismissExplanation clears the post-answer feedback state for a question.
func (s *Session) DismissExplanation(idx int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.explainIdx != nil && *s.explainIdx == idx {
		s.explainIdx = nil
	}
}

// SetJumpTarget requests that idx be shown next; consumed once.
func (s *Session) SetJumpTarget(idx int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx >= 0 && idx < len(s.questions) {
		t := idx
		s.jumpTo = &t
	}
}

// NextQuestionIndex picks the question to show, by priority: a question in
// explanation mode, then a pending jump target (consumed), then the first
// unanswered question in the shuffled order. Returns (0, false) when the
// test is complete.
func (s *Session) NextQuestionIndex() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.explainIdx != nil {
		return *s.explainIdx, true
	}
	if s.jumpTo != nil {
		idx := *s.jumpTo
		s.jumpTo = nil
		return idx, true
	}
	for _, idx := range s.order {
		if !s.isAnswered(idx) {
			return idx, true
		}
	}
	return 0, false
}

// IsComplete reports whether every question has been answered.
func (s *Session) IsComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.answered {
		if p == nil {
			return false
		}
	}
	return true
}

// RemainingTime returns the seconds left on the clock. Before the first
// answer the full limit applies. A non-positive result latches the expired
// flag; expired sessions only allow review.
func (s *Session) RemainingTime() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startTime.IsZero() {
		return int(s.timeLimit.Seconds())
	}
	remaining := int(s.timeLimit.Seconds() - s.now().Sub(s.startTime).Seconds())
	if remaining <= 0 {
		s.timeExpired = true
	}
	return remaining
}

// TimeExpired reports whether the session ran out of time.
func (s *Session) TimeExpired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeExpired
}

// Bookmarks returns the bookmarked question indices in insertion order.
func (s *Session) Bookmarks() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.bookmarked))
	copy(out, s.bookmarked)
	return out
}

// IsBookmarked reports whether idx is in the bookmark set.
func (s *Session) IsBookmarked(idx int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return bookmarkPos(s.bookmarked, idx) >= 0
}

// toggleBookmark flips the in-session flag and returns the new set.
func (s *Session) toggleBookmark(idx int) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pos := bookmarkPos(s.bookmarked, idx); pos >= 0 {
		s.bookmarked = append(s.bookmarked[:pos], s.bookmarked[pos+1:]...)
	} else if idx >= 0 && idx < len(s.questions) {
		s.bookmarked = append(s.bookmarked, idx)
	}
	out := make([]int, len(s.bookmarked))
	copy(out, s.bookmarked)
	return out
}

func (s *Session) clearBookmarks() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookmarked = nil
}

func bookmarkPos(list []int, idx int) int {
	for i, v := range list {
		if v == idx {
			return i
		}
	}
	return -1
}

// rehydrate replays persisted events into the session. Events are matched to
// questions by their stable leading number; numbers that no longer exist in
// the loaded set are dropped. The timer resumes from the earliest event.
func (s *Session) rehydrate(events []domain.AnswerEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nrToIdx := make(map[int]int, len(s.questions))
	for i, q := range s.questions {
		if nr := q.Number(); nr > 0 {
			nrToIdx[nr] = i
		}
	}

	for _, ev := range events {
		idx, ok := nrToIdx[ev.QuestionNr]
		if !ok {
			continue
		}
		if ev.Bookmarked && bookmarkPos(s.bookmarked, idx) < 0 {
			s.bookmarked = append(s.bookmarked, idx)
		}
		if ev.IsBookmarkPlaceholder() {
			continue
		}
		if s.answered[idx] == nil {
			p := ev.Points
			s.answered[idx] = &p
			s.answers[idx] = ev.Answer
			s.outcomes = append(s.outcomes, ev.Points > 0)
		}
		if !ev.Time.IsZero() && (s.startTime.IsZero() || ev.Time.Before(s.startTime)) {
			s.startTime = ev.Time
		}
	}
}
