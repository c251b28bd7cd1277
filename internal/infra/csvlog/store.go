// Package csvlog persists answer events to a flat CSV file, the external
// contract shared with older deployments of the test app. Writes take an
// exclusive cross-process file lock with a bounded wait; reads are lock-free
// and tolerate rows written mid-append.
package csvlog

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"mc-test-service/internal/domain"
)

// fieldnames is the fixed CSV header. Order matters: files written here must
// stay readable by older schema versions and vice versa.
var fieldnames = []string{
	"user_id_hash",
	"user_id_display",
	"user_id_plain",
	"frage_nr",
	"frage",
	"antwort",
	"richtig",
	"zeit",
	"markiert",
	"questions_file",
}

const (
	timeLayout       = "2006-01-02T15:04:05"
	lockPollInterval = 50 * time.Millisecond
)

// Store is a file-backed answer log.
type Store struct {
	path        string
	lockTimeout time.Duration
}

// New creates a store for the given CSV path. lockTimeout bounds how long a
// single write waits for the cross-process lock.
func New(path string, lockTimeout time.Duration) *Store {
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}
	return &Store{path: path, lockTimeout: lockTimeout}
}

// Path returns the backing file location.
func (s *Store) Path() string { return s.path }

func (s *Store) lock(ctx context.Context) (*flock.Flock, error) {
	fl := flock.New(s.path + ".lock")
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()
	ok, err := fl.TryLockContext(lockCtx, lockPollInterval)
	if err != nil || !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrLockTimeout, s.path)
	}
	return fl, nil
}

// Append writes one event under the lock. The duplicate check runs inside
// the same critical section as the write, so two processes racing on the
// same (user, question, set) cannot both record an answer. Bookmark
// placeholders are not subject to the duplicate check.
func (s *Store) Append(ctx context.Context, event domain.AnswerEvent) error {
	fl, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer fl.Unlock()

	if !event.IsBookmarkPlaceholder() {
		existing, err := s.readAll()
		if err == nil {
			for _, ev := range existing {
				if ev.UserHash == event.UserHash &&
					ev.QuestionNr == event.QuestionNr &&
					ev.QuestionsFile == event.QuestionsFile &&
					!ev.IsBookmarkPlaceholder() {
					return domain.ErrDuplicateAnswer
				}
			}
		}
	}

	if err := s.ensureHeader(); err != nil {
		return err
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(record(event)); err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush row: %w", err)
	}
	return nil
}

// LoadAll reads the whole log without locking. Malformed rows are skipped,
// missing columns are synthesized as empty, and an absent or empty file
// yields an empty result rather than an error.
func (s *Store) LoadAll(_ context.Context) ([]domain.AnswerEvent, error) {
	return s.readAll()
}

// ResetAll truncates the store to header-only via a full atomic replacement.
func (s *Store) ResetAll(ctx context.Context) error {
	fl, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer fl.Unlock()
	return s.replaceWith(nil)
}

// Rewrite replaces the whole file contents with the given events, used by
// bookmark persistence and per-user cleanup. Same locking discipline as
// Append; the replacement is written to a temp file and renamed in.
func (s *Store) Rewrite(ctx context.Context, events []domain.AnswerEvent) error {
	fl, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer fl.Unlock()
	return s.replaceWith(events)
}

func (s *Store) ensureHeader() error {
	info, err := os.Stat(s.path)
	if err == nil && info.Size() > 0 {
		return nil
	}
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("stat log: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create log: %w", err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(fieldnames); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	w.Flush()
	return w.Error()
}

func (s *Store) replaceWith(events []domain.AnswerEvent) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".answers-*.csv")
	if err != nil {
		return fmt.Errorf("create temp log: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := csv.NewWriter(tmp)
	if err := w.Write(fieldnames); err != nil {
		tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	for _, ev := range events {
		if err := w.Write(record(ev)); err != nil {
			tmp.Close()
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp log: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace log: %w", err)
	}
	return nil
}

func (s *Store) readAll() ([]domain.AnswerEvent, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil, nil // empty or unreadable file: self-corrects on next write
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return "" // older schema version: synthesize missing columns
		}
		return row[i]
	}

	var events []domain.AnswerEvent
	for {
		row, err := r.Read()
		if err != nil {
			break
		}

		nr, err := strconv.Atoi(strings.TrimSpace(field(row, "frage_nr")))
		if err != nil {
			continue
		}
		points, err := strconv.Atoi(strings.TrimSpace(field(row, "richtig")))
		if err != nil {
			continue
		}
		hash := field(row, "user_id_hash")
		if hash == "" {
			continue
		}

		ev := domain.AnswerEvent{
			UserHash:      hash,
			UserDisplay:   field(row, "user_id_display"),
			UserPlain:     field(row, "user_id_plain"),
			QuestionNr:    nr,
			QuestionText:  field(row, "frage"),
			Answer:        field(row, "antwort"),
			Points:        points,
			QuestionsFile: field(row, "questions_file"),
		}
		if ts, err := parseTime(field(row, "zeit")); err == nil {
			ev.Time = ts
		}
		if b, err := strconv.ParseBool(strings.TrimSpace(field(row, "markiert"))); err == nil {
			ev.Bookmarked = b
		}
		events = append(events, ev)
	}
	return events, nil
}

func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(timeLayout, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func record(ev domain.AnswerEvent) []string {
	zeit := ""
	if !ev.Time.IsZero() {
		zeit = ev.Time.Format(timeLayout)
	}
	return []string{
		ev.UserHash,
		ev.UserDisplay,
		ev.UserPlain,
		strconv.Itoa(ev.QuestionNr),
		ev.QuestionText,
		ev.Answer,
		strconv.Itoa(ev.Points),
		zeit,
		strconv.FormatBool(ev.Bookmarked),
		ev.QuestionsFile,
	}
}
