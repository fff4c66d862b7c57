package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/stemsi/prepwise-backend/internal/model"
)

// QuestionBank is the seed file format for interview questions.
type QuestionBank struct {
	Questions []model.InterviewQuestion `yaml:"questions"`
}

// LoadQuestionBank reads and validates a question bank file. Duplicate
// prompts within a category are rejected so a typo does not silently
// shrink the seed.
func LoadQuestionBank(path string) (*QuestionBank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question bank: %w", err)
	}

	var bank QuestionBank
	if err := yaml.Unmarshal(data, &bank); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}

	seen := make(map[string]int)
	for i := range bank.Questions {
		q := &bank.Questions[i]
		q.QuestionText = strings.TrimSpace(q.QuestionText)

		switch q.Category {
		case model.QuestionCategoryTechnical, model.QuestionCategoryHR:
		default:
			return nil, fmt.Errorf("question %d: unknown category %q", i+1, q.Category)
		}
		if q.QuestionText == "" {
			return nil, fmt.Errorf("question %d: question_text is required", i+1)
		}

		key := string(q.Category) + "\x00" + strings.ToLower(q.QuestionText)
		if prev, dup := seen[key]; dup {
			return nil, fmt.Errorf("question %d duplicates question %d", i+1, prev)
		}
		seen[key] = i + 1
	}
	return &bank, nil
}

// Counts returns how many questions the bank holds per category.
func (b *QuestionBank) Counts() map[model.QuestionCategory]int {
	counts := make(map[model.QuestionCategory]int)
	for _, q := range b.Questions {
		counts[q.Category]++
	}
	return counts
}
