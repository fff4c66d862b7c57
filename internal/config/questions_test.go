package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/prepwise-backend/internal/model"
)

func writeBank(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "questions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadQuestionBank(t *testing.T) {
	path := writeBank(t, `
questions:
  - category: technical
    question_text: "  What is a goroutine?  "
    correct_answer: A lightweight thread managed by the Go runtime.
  - category: hr
    question_text: Tell me about yourself.
    ideal_answer: A short story linking your experience to the role.
`)

	bank, err := LoadQuestionBank(path)
	require.NoError(t, err)
	require.Len(t, bank.Questions, 2)
	assert.Equal(t, "What is a goroutine?", bank.Questions[0].QuestionText)
	assert.Equal(t, "A short story linking your experience to the role.", bank.Questions[1].IdealAnswer)
	assert.Equal(t, map[model.QuestionCategory]int{"technical": 1, "hr": 1}, bank.Counts())
}

func TestLoadQuestionBankInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown category", "questions:\n  - category: aptitude\n    question_text: 2+2?\n"},
		{"blank text", "questions:\n  - category: hr\n    question_text: '  '\n"},
		{"duplicate", "questions:\n  - category: hr\n    question_text: Why us?\n  - category: hr\n    question_text: why us?\n"},
		{"not yaml", "questions: [unterminated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadQuestionBank(writeBank(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestRepoQuestionBankIsValid(t *testing.T) {
	bank, err := LoadQuestionBank(filepath.Join("..", "..", "config", "questions.yaml"))
	require.NoError(t, err)

	counts := bank.Counts()
	for kind, kc := range DefaultInterview().Kinds {
		for _, mix := range kc.Mix {
			assert.GreaterOrEqual(t, counts[mix.Category], mix.Count, "%s needs %d %s questions", kind, mix.Count, mix.Category)
		}
	}
}
