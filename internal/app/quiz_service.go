package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"time"

	"mc-test-service/internal/domain"
	"mc-test-service/internal/identity"
)

// SessionRepository abstracts how live sessions are held (in-memory, Redis-marked, etc).
type SessionRepository interface {
	Get(key string) (*Session, bool)
	Put(key string, session *Session)
	Delete(key string)
	Clear()
}

// QuestionRepository loads question sets (from cache/backing store).
type QuestionRepository interface {
	GetQuestionSet(ctx context.Context, file string) (domain.QuestionSet, error)
}

// AnswerStore is the append-only answer log.
type AnswerStore interface {
	Append(ctx context.Context, event domain.AnswerEvent) error
	LoadAll(ctx context.Context) ([]domain.AnswerEvent, error)
	ResetAll(ctx context.Context) error
	Rewrite(ctx context.Context, events []domain.AnswerEvent) error
}

// SettingsProvider exposes the admin-tunable runtime settings.
type SettingsProvider interface {
	ScoringMode() domain.ScoringMode
	ShowTopFivePublic() bool
	SetScoringMode(mode domain.ScoringMode) error
}

// SubmitResult summarizes the outcome of one answer submission.
type SubmitResult struct {
	Points    int     `json:"points"`
	Correct   bool    `json:"correct"`
	Duplicate bool    `json:"duplicate"`
	Score     int     `json:"score"`
	MaxScore  int     `json:"maxScore"`
	Percent   float64 `json:"percent"`
	Complete  bool    `json:"complete"`
}

// QuizService contains the quiz use cases: session lifecycle, answer
// recording, bookmarks, and the admin aggregations.
type QuizService struct {
	sessions  SessionRepository
	questions QuestionRepository
	store     AnswerStore
	settings  SettingsProvider
	hub       *LeaderboardHub

	timeLimit     time.Duration
	appendRetries int
	retryBackoff  time.Duration
	now           func() time.Time
	seed          func() int64
}

func NewQuizService(sessions SessionRepository, questions QuestionRepository, store AnswerStore, settings SettingsProvider, hub *LeaderboardHub) *QuizService {
	return &QuizService{
		sessions:      sessions,
		questions:     questions,
		store:         store,
		settings:      settings,
		hub:           hub,
		timeLimit:     DefaultTimeLimit,
		appendRetries: 3,
		retryBackoff:  100 * time.Millisecond,
		now:           time.Now,
		seed:          func() int64 { return time.Now().UnixNano() },
	}
}

// WithTimeLimit overrides the per-session time limit.
func (s *QuizService) WithTimeLimit(limit time.Duration) *QuizService {
	if limit > 0 {
		s.timeLimit = limit
	}
	return s
}

// WithClock injects a deterministic clock and RNG seed for tests.
func (s *QuizService) WithClock(now func() time.Time, seed int64) *QuizService {
	s.now = now
	s.seed = func() int64 { return seed }
	return s
}

// WithRetryPolicy tunes the append retry count and backoff.
func (s *QuizService) WithRetryPolicy(retries int, backoff time.Duration) *QuizService {
	if retries > 0 {
		s.appendRetries = retries
	}
	s.retryBackoff = backoff
	return s
}

func sessionKey(userHash, questionsFile string) string {
	return userHash + "|" + questionsFile
}

// StartOrResume creates a session for the pseudonym, rehydrating progress and
// bookmarks from the answer log when prior events exist for the same
// (user, question set). A stale session bound to a different question set is
// replaced rather than reused.
func (s *QuizService) StartOrResume(ctx context.Context, pseudonym, questionsFile string) (*Session, error) {
	set, err := s.questions.GetQuestionSet(ctx, questionsFile)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}

	userHash := identity.HashPseudonym(pseudonym)
	key := sessionKey(userHash, questionsFile)

	if session, ok := s.sessions.Get(key); ok {
		if len(session.Questions()) == len(set.Questions) {
			return session, nil
		}
		// Question pool changed underneath the session: reinitialize.
		s.sessions.Delete(key)
	}

	session := newSession(userHash, pseudonym, set, s.timeLimit, s.now, rand.New(rand.NewSource(s.seed())))

	events, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	session.rehydrate(userEvents(events, userHash, questionsFile))

	s.sessions.Put(key, session)
	return session, nil
}

// Get returns the live session for a user and question set.
func (s *QuizService) Get(pseudonym, questionsFile string) (*Session, bool) {
	return s.sessions.Get(sessionKey(identity.HashPseudonym(pseudonym), questionsFile))
}

// EndSession drops the in-memory session. Persisted answers remain, so the
// same pseudonym resumes its progress later.
func (s *QuizService) EndSession(pseudonym, questionsFile string) {
	s.sessions.Delete(sessionKey(identity.HashPseudonym(pseudonym), questionsFile))
}

// SubmitAnswer records a single answer. Resubmitting an answered question is
// a no-op (Duplicate=true), tolerating double clicks and reload races. When
// the append fails after retries the in-memory state is rolled back and
// ErrNotPersisted is returned, so session and store stay in agreement.
func (s *QuizService) SubmitAnswer(ctx context.Context, pseudonym, questionsFile string, questionIdx int, chosen string) (SubmitResult, error) {
	session, ok := s.Get(pseudonym, questionsFile)
	if !ok {
		return SubmitResult{}, domain.ErrSessionNotFound
	}
	questions := session.Questions()
	if questionIdx < 0 || questionIdx >= len(questions) {
		return SubmitResult{}, domain.ErrQuestionNotFound
	}
	if session.TimeExpired() || session.RemainingTime() <= 0 {
		return SubmitResult{}, domain.ErrTimeExpired
	}

	mode := s.settings.ScoringMode()
	if session.IsAnswered(questionIdx) {
		return s.result(session, SubmitResult{Duplicate: true}, mode), nil
	}

	question := questions[questionIdx]
	correctOption, ok := question.CorrectOption()
	if !ok {
		return SubmitResult{}, domain.ErrOptionNotFound
	}
	if !optionExists(question.Options, chosen) {
		return SubmitResult{}, domain.ErrOptionNotFound
	}

	correct := chosen == correctOption
	points := PointsForAnswer(correct, question.WeightOrDefault(), mode)
	session.markAnswered(questionIdx, points, chosen)

	event := domain.AnswerEvent{
		UserHash:      session.UserHash(),
		UserDisplay:   identity.DisplayHash(session.UserHash()),
		UserPlain:     session.Pseudonym(),
		QuestionNr:    question.Number(),
		QuestionText:  question.Text,
		Answer:        chosen,
		Points:        points,
		Time:          s.now(),
		Bookmarked:    session.IsBookmarked(questionIdx),
		QuestionsFile: questionsFile,
	}

	if err := s.appendWithRetry(ctx, event); err != nil {
		if errors.Is(err, domain.ErrDuplicateAnswer) {
			// Another process beat us to it; keep the session state, which the
			// same deterministic computation already produced.
			return s.result(session, SubmitResult{Duplicate: true}, mode), nil
		}
		session.rollbackAnswer(questionIdx)
		log.Printf("answer for %s q%d not persisted: %v", event.UserDisplay, event.QuestionNr, err)
		return SubmitResult{}, fmt.Errorf("%w: %v", domain.ErrNotPersisted, err)
	}

	s.broadcastLeaderboard(ctx, questionsFile)
	return s.result(session, SubmitResult{Points: points, Correct: correct}, mode), nil
}

func (s *QuizService) appendWithRetry(ctx context.Context, event domain.AnswerEvent) error {
	var err error
	for attempt := 0; attempt < s.appendRetries; attempt++ {
		if err = s.store.Append(ctx, event); err == nil || errors.Is(err, domain.ErrDuplicateAnswer) {
			return err
		}
		if s.retryBackoff > 0 {
			time.Sleep(s.retryBackoff)
		}
	}
	return err
}

func (s *QuizService) result(session *Session, res SubmitResult, mode domain.ScoringMode) SubmitResult {
	answered := session.Answered()
	questions := session.Questions()
	res.Score = CurrentScore(answered, questions, mode)
	res.MaxScore = MaxScore(questions)
	res.Percent = Percentage(answered, questions, mode)
	res.Complete = session.IsComplete()
	return res
}

// Summary computes the score snapshot for a session under the active mode.
func (s *QuizService) Summary(session *Session) SubmitResult {
	return s.result(session, SubmitResult{}, s.settings.ScoringMode())
}

// ToggleBookmark flips a bookmark and synchronously persists the whole
// bookmark state for the user: flags on answered rows, placeholder rows for
// unanswered bookmarks, and garbage collection of stale placeholders.
func (s *QuizService) ToggleBookmark(ctx context.Context, pseudonym, questionsFile string, questionIdx int) ([]int, error) {
	session, ok := s.Get(pseudonym, questionsFile)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if questionIdx < 0 || questionIdx >= len(session.Questions()) {
		return nil, domain.ErrQuestionNotFound
	}
	bookmarks := session.toggleBookmark(questionIdx)
	if err := s.persistBookmarks(ctx, session, bookmarks); err != nil {
		return bookmarks, err
	}
	return bookmarks, nil
}

// ClearBookmarks empties the set and purges all placeholders for the user.
func (s *QuizService) ClearBookmarks(ctx context.Context, pseudonym, questionsFile string) error {
	session, ok := s.Get(pseudonym, questionsFile)
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.clearBookmarks()
	return s.persistBookmarks(ctx, session, nil)
}

func (s *QuizService) persistBookmarks(ctx context.Context, session *Session, bookmarks []int) error {
	events, err := s.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load log: %w", err)
	}

	questions := session.Questions()
	bookmarkedNrs := make(map[int]bool, len(bookmarks))
	for _, idx := range bookmarks {
		if nr := questions[idx].Number(); nr > 0 {
			bookmarkedNrs[nr] = true
		}
	}

	userHash := session.UserHash()
	file := session.QuestionsFile()
	answeredNrs := make(map[int]bool)
	kept := events[:0]
	for _, ev := range events {
		mine := ev.UserHash == userHash && ev.QuestionsFile == file
		if mine {
			if ev.IsBookmarkPlaceholder() && !bookmarkedNrs[ev.QuestionNr] {
				continue // purge stale placeholder
			}
			ev.Bookmarked = bookmarkedNrs[ev.QuestionNr]
			answeredNrs[ev.QuestionNr] = true
		}
		kept = append(kept, ev)
	}

	// Placeholders keep bookmarks on unanswered questions alive across reloads.
	for _, idx := range bookmarks {
		nr := questions[idx].Number()
		if nr <= 0 || answeredNrs[nr] {
			continue
		}
		kept = append(kept, domain.AnswerEvent{
			UserHash:      userHash,
			UserDisplay:   identity.DisplayHash(userHash),
			UserPlain:     session.Pseudonym(),
			QuestionNr:    nr,
			QuestionText:  questions[idx].Text,
			Answer:        domain.BookmarkSentinel,
			Points:        0,
			Time:          s.now(),
			Bookmarked:    true,
			QuestionsFile: file,
		})
	}

	if err := s.store.Rewrite(ctx, kept); err != nil {
		return fmt.Errorf("persist bookmarks: %w", err)
	}
	return nil
}

// Analysis computes the item statistics over the whole log, filtered to one
// question set.
func (s *QuizService) Analysis(ctx context.Context, questionsFile string) ([]domain.ItemStats, error) {
	events, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load log: %w", err)
	}
	set, err := s.questions.GetQuestionSet(ctx, questionsFile)
	if err != nil {
		return nil, err
	}
	return BuildItemStats(filterFile(events, questionsFile), set.Questions), nil
}

// Leaderboard aggregates all participants of a question set, best first.
func (s *QuizService) Leaderboard(ctx context.Context, questionsFile string) (domain.Leaderboard, error) {
	events, err := s.store.LoadAll(ctx)
	if err != nil {
		return domain.Leaderboard{}, fmt.Errorf("load log: %w", err)
	}
	return BuildLeaderboard(filterFile(events, questionsFile), questionsFile, s.now()), nil
}

// TopFiveCompleted returns the public top-5 of users who finished the whole
// set, or nil when the public leaderboard is disabled.
func (s *QuizService) TopFiveCompleted(ctx context.Context, questionsFile string) ([]domain.LeaderboardEntry, error) {
	if !s.settings.ShowTopFivePublic() {
		return nil, nil
	}
	events, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load log: %w", err)
	}
	set, err := s.questions.GetQuestionSet(ctx, questionsFile)
	if err != nil {
		return nil, err
	}
	return TopCompleted(filterFile(events, questionsFile), len(set.Questions), 5), nil
}

// ResetAllAnswers truncates the log and drops every live session.
func (s *QuizService) ResetAllAnswers(ctx context.Context) error {
	if err := s.store.ResetAll(ctx); err != nil {
		return fmt.Errorf("reset answers: %w", err)
	}
	s.sessions.Clear()
	return nil
}

// Export returns every stored event, for the admin CSV download.
func (s *QuizService) Export(ctx context.Context) ([]domain.AnswerEvent, error) {
	return s.store.LoadAll(ctx)
}

// SetScoringMode validates and persists the scoring mode.
func (s *QuizService) SetScoringMode(mode domain.ScoringMode) error {
	if !mode.Valid() {
		return fmt.Errorf("unknown scoring mode %q", mode)
	}
	return s.settings.SetScoringMode(mode)
}

func (s *QuizService) broadcastLeaderboard(ctx context.Context, questionsFile string) {
	if s.hub == nil {
		return
	}
	events, err := s.store.LoadAll(ctx)
	if err != nil {
		log.Printf("leaderboard refresh failed: %v", err)
		return
	}
	s.hub.Broadcast(BuildLeaderboard(filterFile(events, questionsFile), questionsFile, s.now()))
}

func userEvents(events []domain.AnswerEvent, userHash, questionsFile string) []domain.AnswerEvent {
	out := make([]domain.AnswerEvent, 0, len(events))
	for _, ev := range events {
		if ev.UserHash == userHash && ev.QuestionsFile == questionsFile {
			out = append(out, ev)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

func filterFile(events []domain.AnswerEvent, questionsFile string) []domain.AnswerEvent {
	out := make([]domain.AnswerEvent, 0, len(events))
	for _, ev := range events {
		if ev.QuestionsFile == questionsFile {
			out = append(out, ev)
		}
	}
	return out
}

func optionExists(options []string, chosen string) bool {
	for _, opt := range options {
		if opt == chosen {
			return true
		}
	}
	return false
}
