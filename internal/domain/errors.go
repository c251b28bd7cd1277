package domain

import "errors"

var (
	// ErrQuestionSetNotFound indicates the requested questions file could not be loaded.
	ErrQuestionSetNotFound = errors.New("question set not found")
	// ErrSessionNotFound is returned when a user acts without an active session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrQuestionNotFound indicates a question index outside the loaded set.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a submitted option that is not part of the question.
	ErrOptionNotFound = errors.New("option not found")
	// ErrDuplicateAnswer marks an answer that is already recorded in the log.
	ErrDuplicateAnswer = errors.New("answer already recorded")
	// ErrNotPersisted is returned when an answer could not be written after retries.
	ErrNotPersisted = errors.New("answer not persisted")
	// ErrTimeExpired indicates the session's time limit has run out.
	ErrTimeExpired = errors.New("test time expired")
	// ErrLockTimeout indicates the store lock could not be acquired in time.
	ErrLockTimeout = errors.New("store lock timeout")
)
