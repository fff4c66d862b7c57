package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stemsi/prepwise-backend/internal/model"
)

const defaultQuestionCacheTTL = time.Hour

// QuestionMix is how many questions of one category a session draws.
type QuestionMix struct {
	Category model.QuestionCategory `yaml:"category"`
	Count    int                    `yaml:"count"`
}

// KindConfig tunes one interview kind.
type KindConfig struct {
	QuestionSeconds  int           `yaml:"question_seconds"`
	IntegrityEnabled bool          `yaml:"integrity_enabled"`
	StrikeThreshold  int           `yaml:"strike_threshold"`
	ScoreAnswers     bool          `yaml:"score_answers"`
	Mix              []QuestionMix `yaml:"mix"`
}

// TotalQuestions is the session length for this kind.
func (k KindConfig) TotalQuestions() int {
	total := 0
	for _, m := range k.Mix {
		total += m.Count
	}
	return total
}

// InterviewConfig is the YAML interview tuning file.
type InterviewConfig struct {
	// FillerWords overrides the scorer vocabulary. Empty means built-in default.
	FillerWords      []string                           `yaml:"filler_words"`
	QuestionCacheTTL time.Duration                      `yaml:"question_cache_ttl"`
	Kinds            map[model.InterviewKind]KindConfig `yaml:"kinds"`
}

// DefaultInterview returns the built-in tuning: a ten question mock interview
// (five technical, five HR) at 180 seconds each with three strikes, and an
// untimed five question HR practice round scored per answer.
func DefaultInterview() *InterviewConfig {
	return &InterviewConfig{
		QuestionCacheTTL: defaultQuestionCacheTTL,
		Kinds: map[model.InterviewKind]KindConfig{
			model.InterviewKindMock: {
				QuestionSeconds:  180,
				IntegrityEnabled: true,
				StrikeThreshold:  3,
				Mix: []QuestionMix{
					{Category: model.QuestionCategoryTechnical, Count: 5},
					{Category: model.QuestionCategoryHR, Count: 5},
				},
			},
			model.InterviewKindHR: {
				ScoreAnswers: true,
				Mix: []QuestionMix{
					{Category: model.QuestionCategoryHR, Count: 5},
				},
			},
		},
	}
}

// LoadInterview reads the interview tuning file at path. A missing file
// yields DefaultInterview; kinds absent from the file keep their defaults.
func LoadInterview(path string) (*InterviewConfig, error) {
	defaults := DefaultInterview()
	if path == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return defaults, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read interview config %s: %w", path, err)
	}

	var cfg InterviewConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse interview config %s: %w", path, err)
	}

	if cfg.QuestionCacheTTL <= 0 {
		cfg.QuestionCacheTTL = defaults.QuestionCacheTTL
	}
	if cfg.Kinds == nil {
		cfg.Kinds = make(map[model.InterviewKind]KindConfig)
	}
	for kind, kc := range defaults.Kinds {
		if _, ok := cfg.Kinds[kind]; !ok {
			cfg.Kinds[kind] = kc
		}
	}

	if err := validateInterview(&cfg); err != nil {
		return nil, fmt.Errorf("validate interview config %s: %w", path, err)
	}
	return &cfg, nil
}

func validateInterview(cfg *InterviewConfig) error {
	for kind, kc := range cfg.Kinds {
		if !kind.Valid() {
			return fmt.Errorf("unknown interview kind %q", kind)
		}
		if kc.QuestionSeconds < 0 {
			return fmt.Errorf("%s: question_seconds cannot be negative", kind)
		}
		if kc.StrikeThreshold < 0 {
			return fmt.Errorf("%s: strike_threshold cannot be negative", kind)
		}
		if kc.TotalQuestions() <= 0 {
			return fmt.Errorf("%s: mix must draw at least one question", kind)
		}
		for _, m := range kc.Mix {
			if m.Category != model.QuestionCategoryTechnical && m.Category != model.QuestionCategoryHR {
				return fmt.Errorf("%s: unknown question category %q", kind, m.Category)
			}
			if m.Count < 0 {
				return fmt.Errorf("%s: count for %s cannot be negative", kind, m.Category)
			}
		}
	}
	return nil
}
