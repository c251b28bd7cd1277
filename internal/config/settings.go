package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"mc-test-service/internal/domain"
)

// Settings are the admin-tunable runtime settings, persisted to a small JSON
// file (mc_test_config.json) so they survive restarts.
type Settings struct {
	mu   sync.RWMutex
	path string

	scoringMode   domain.ScoringMode
	showTopFive   bool
}

type settingsFile struct {
	ScoringMode    domain.ScoringMode `json:"scoring_mode"`
	ShowTop5Public bool               `json:"show_top5_public"`
}

// LoadSettings reads the settings file. A missing or unparsable file keeps
// the defaults (positive_only scoring, public top-5 enabled).
func LoadSettings(path string) *Settings {
	s := &Settings{
		path:        path,
		scoringMode: domain.ScoringPositiveOnly,
		showTopFive: true,
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	var f settingsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return s
	}
	if f.ScoringMode.Valid() {
		s.scoringMode = f.ScoringMode
	}
	s.showTopFive = f.ShowTop5Public
	return s
}

// ScoringMode returns the active mode.
func (s *Settings) ScoringMode() domain.ScoringMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scoringMode
}

// ShowTopFivePublic reports whether the public leaderboard is enabled.
func (s *Settings) ShowTopFivePublic() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.showTopFive
}

// SetScoringMode switches the mode and persists the change.
func (s *Settings) SetScoringMode(mode domain.ScoringMode) error {
	if !mode.Valid() {
		return fmt.Errorf("unknown scoring mode %q", mode)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scoringMode = mode
	return s.saveLocked()
}

// SetShowTopFivePublic toggles the public leaderboard and persists the change.
func (s *Settings) SetShowTopFivePublic(show bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showTopFive = show
	return s.saveLocked()
}

func (s *Settings) saveLocked() error {
	data, err := json.MarshalIndent(settingsFile{
		ScoringMode:    s.scoringMode,
		ShowTop5Public: s.showTopFive,
	}, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return fmt.Errorf("create temp settings: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, s.path)
}
