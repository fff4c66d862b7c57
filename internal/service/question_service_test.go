package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/prepwise-backend/internal/config"
	"github.com/stemsi/prepwise-backend/internal/interview"
	"github.com/stemsi/prepwise-backend/internal/model"
)

type memoryStore struct {
	pools map[model.QuestionCategory][]model.InterviewQuestion
	err   error
	calls int
}

func (m *memoryStore) ListByCategory(_ context.Context, c model.QuestionCategory) ([]model.InterviewQuestion, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.pools[c], nil
}

func bank(c model.QuestionCategory, n int) []model.InterviewQuestion {
	qs := make([]model.InterviewQuestion, n)
	for i := range qs {
		qs[i] = model.InterviewQuestion{ID: uuid.New(), Category: c, QuestionText: fmt.Sprintf("%s %d", c, i)}
	}
	return qs
}

// unreachableRedis points at a closed port so every call fails fast and the
// service falls back to the store.
func unreachableRedis(t *testing.T) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func newQuestionService(t *testing.T, store QuestionStore) *QuestionService {
	svc := NewQuestionService(store, unreachableRedis(t), config.DefaultInterview(), zerolog.Nop())
	svc.shuffle = func(int, func(i, j int)) {}
	return svc
}

func TestFetchQuestionsMockMix(t *testing.T) {
	store := &memoryStore{pools: map[model.QuestionCategory][]model.InterviewQuestion{
		model.QuestionCategoryTechnical: bank(model.QuestionCategoryTechnical, 8),
		model.QuestionCategoryHR:        bank(model.QuestionCategoryHR, 7),
	}}
	svc := newQuestionService(t, store)

	qs, err := svc.FetchQuestions(context.Background(), model.InterviewKindMock)
	require.NoError(t, err)
	require.Len(t, qs, 10)
	for i, q := range qs {
		want := model.QuestionCategoryTechnical
		if i >= 5 {
			want = model.QuestionCategoryHR
		}
		assert.Equal(t, want, q.Category, "question %d", i)
	}
}

func TestFetchQuestionsShortPool(t *testing.T) {
	store := &memoryStore{pools: map[model.QuestionCategory][]model.InterviewQuestion{
		model.QuestionCategoryHR: bank(model.QuestionCategoryHR, 2),
	}}
	svc := newQuestionService(t, store)

	qs, err := svc.FetchQuestions(context.Background(), model.InterviewKindHR)
	require.NoError(t, err)
	assert.Len(t, qs, 2)
}

func TestFetchQuestionsEmpty(t *testing.T) {
	svc := newQuestionService(t, &memoryStore{})

	_, err := svc.FetchQuestions(context.Background(), model.InterviewKindHR)
	assert.ErrorIs(t, err, interview.ErrNoQuestions)
}

func TestFetchQuestionsStoreError(t *testing.T) {
	boom := errors.New("db down")
	svc := newQuestionService(t, &memoryStore{err: boom})

	_, err := svc.FetchQuestions(context.Background(), model.InterviewKindMock)
	assert.ErrorIs(t, err, boom)
}

func TestFetchQuestionsUnknownKind(t *testing.T) {
	svc := newQuestionService(t, &memoryStore{})

	_, err := svc.FetchQuestions(context.Background(), model.InterviewKind("aptitude"))
	assert.Error(t, err)
}

func TestSampleDoesNotMutatePool(t *testing.T) {
	svc := NewQuestionService(&memoryStore{}, unreachableRedis(t), config.DefaultInterview(), zerolog.Nop())
	pool := bank(model.QuestionCategoryHR, 6)
	original := append([]model.InterviewQuestion(nil), pool...)

	picked := svc.sample(pool, 3)

	assert.Len(t, picked, 3)
	assert.Equal(t, original, pool)
	seen := map[uuid.UUID]bool{}
	for _, q := range picked {
		assert.False(t, seen[q.ID], "duplicate question")
		seen[q.ID] = true
	}
}
