package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Store struct {
		AnswersPath  string `yaml:"answers_path"`
		LockTimeout  string `yaml:"lock_timeout"`
		Retries      int    `yaml:"retries"`
		RetryBackoff string `yaml:"retry_backoff"`
	} `yaml:"store"`
	Settings struct {
		Path string `yaml:"path"`
	} `yaml:"settings"`
	Questions struct {
		Dir string `yaml:"dir"`
		TTL string `yaml:"ttl"`
	} `yaml:"questions"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TimeLimit string `yaml:"time_limit"`
	} `yaml:"quiz"`
	Admin struct {
		User string `yaml:"user"`
		Key  string `yaml:"key"`
	} `yaml:"admin"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyEnv()
	return cfg, nil
}

// Default returns a config with built-in fallbacks for running without a file.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Store.AnswersPath = "data/mc_test_answers.csv"
	cfg.Settings.Path = "data/mc_test_config.json"
	cfg.Questions.Dir = "data"
	cfg.applyEnv()
	return cfg
}

// applyEnv lets the admin credentials come from the environment, taking
// precedence over the YAML file.
func (c *Config) applyEnv() {
	if v := os.Getenv("MC_TEST_ADMIN_USER"); v != "" {
		c.Admin.User = v
	}
	if v := os.Getenv("MC_TEST_ADMIN_KEY"); v != "" {
		c.Admin.Key = v
	}
}

// TTLDuration parses a duration string or returns the fallback if empty or invalid.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
