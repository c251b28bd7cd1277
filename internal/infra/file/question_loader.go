// Package file loads question sets from questions_*.json files in a data
// directory, the format the test app has always shipped its content in.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mc-test-service/internal/domain"
)

type QuestionLoader struct {
	dir string
}

func NewQuestionLoader(dir string) *QuestionLoader {
	return &QuestionLoader{dir: dir}
}

// LoadQuestionSet reads and parses one questions file. The name is treated
// as an opaque tag but must not escape the data directory.
func (l *QuestionLoader) LoadQuestionSet(_ context.Context, file string) (domain.QuestionSet, error) {
	if file == "" || file != filepath.Base(file) {
		return domain.QuestionSet{}, domain.ErrQuestionSetNotFound
	}
	data, err := os.ReadFile(filepath.Join(l.dir, file))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.QuestionSet{}, domain.ErrQuestionSetNotFound
		}
		return domain.QuestionSet{}, fmt.Errorf("read question set: %w", err)
	}
	var questions []domain.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return domain.QuestionSet{}, fmt.Errorf("parse question set %s: %w", file, err)
	}
	return domain.QuestionSet{File: file, Questions: questions}, nil
}

// ListQuestionFiles enumerates the available questions_*.json files, sorted.
func (l *QuestionLoader) ListQuestionFiles() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("list question sets: %w", err)
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, "questions_") && strings.HasSuffix(name, ".json") {
			files = append(files, name)
		}
	}
	sort.Strings(files)
	return files, nil
}
