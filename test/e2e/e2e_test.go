//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/prepwise-backend/internal/config"
	"github.com/stemsi/prepwise-backend/internal/model"
	"github.com/stemsi/prepwise-backend/internal/service"
)

const (
	defaultBaseURL = "http://localhost:8080"
	e2eUserID      = 990001
	eventTimeout   = 15 * time.Second
)

var (
	baseURL   string
	userToken string
)

func TestMain(m *testing.M) {
	// Load .env if present (ignore error)
	_ = godotenv.Load("../../.env")

	baseURL = os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	cfg := config.Load()
	if err := resetUser(cfg.DatabaseURL); err != nil {
		fmt.Printf("Setup failed: %v\n", err)
		os.Exit(1)
	}

	token, err := service.NewAuthService(cfg).GenerateToken(e2eUserID, "E2E Candidate")
	if err != nil {
		fmt.Printf("Token failed: %v\n", err)
		os.Exit(1)
	}
	userToken = token

	os.Exit(m.Run())
}

// resetUser removes data left by earlier runs and makes sure the HR pool
// has questions. Seeded rows are shared with the running server.
func resetUser(dbURL string) error {
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer conn.Close(ctx)

	for _, table := range []string{"interview_submissions", "practice_attempts", "integrity_strikes", "user_progress"} {
		if _, err := conn.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE user_id = $1", table), e2eUserID); err != nil {
			return fmt.Errorf("cleanup %s: %w", table, err)
		}
	}

	for i := 1; i <= 5; i++ {
		_, err := conn.Exec(ctx,
			`INSERT INTO interview_questions (category, question_text, ideal_answer)
			 VALUES ('hr', $1, 'Answer with a concrete example.')
			 ON CONFLICT (category, question_text) DO NOTHING`,
			fmt.Sprintf("E2E practice question %d", i))
		if err != nil {
			return fmt.Errorf("seed question: %w", err)
		}
	}
	return nil
}

func TestHealth(t *testing.T) {
	resp, err := http.Get(baseURL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode, readBody(resp))
}

func TestScoreTranscript(t *testing.T) {
	resp, err := post("/api/v1/hr/score", map[string]string{"transcript": "um so I think uh I know this"}, userToken)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data struct {
			Score int `json:"score"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 91, body.Data.Score)
}

func TestRequiresToken(t *testing.T) {
	resp, err := http.Get(baseURL + "/api/v1/me/progress")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

type event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func TestHRPracticeFlow(t *testing.T) {
	conn := dial(t, model.InterviewKindHR)
	defer conn.Close()

	// A second stream for the same kind is refused while this one is open.
	t.Run("SingleSession", func(t *testing.T) {
		u := wsURL(model.InterviewKindHR)
		_, resp, err := websocket.DefaultDialer.Dial(u, nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	send(t, conn, map[string]any{"action": "start"})

	var q struct {
		Index int `json:"index"`
		Total int `json:"total"`
	}
	decode(t, await(t, conn, "question"), &q)
	require.Equal(t, 0, q.Index)
	total := q.Total

	for i := 0; i < total; i++ {
		send(t, conn, map[string]any{"action": "answer", "index": i, "text": "I led the rollout and measured the result carefully every week"})
		await(t, conn, "answer_recorded")
	}

	var finished struct {
		Reason  string             `json:"reason"`
		Summary model.ScoreSummary `json:"summary"`
	}
	decode(t, await(t, conn, "finished"), &finished)
	assert.Equal(t, "completed", finished.Reason)
	assert.Equal(t, total, finished.Summary.Answered)
	require.NotNil(t, finished.Summary.AverageConfidence)
	assert.Equal(t, 100, *finished.Summary.AverageConfidence)

	var submitted struct {
		SubmissionID string `json:"submission_id"`
	}
	decode(t, await(t, conn, "submitted"), &submitted)
	assert.NotEmpty(t, submitted.SubmissionID)

	t.Run("History", func(t *testing.T) {
		resp, err := get("/api/v1/me/submissions?kind=hr", userToken)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Data []model.SubmissionRecord `json:"data"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.NotEmpty(t, body.Data)
		assert.Equal(t, submitted.SubmissionID, body.Data[0].ID.String())
	})

	t.Run("ProgressEventuallyUpdated", func(t *testing.T) {
		require.Eventually(t, func() bool {
			resp, err := get("/api/v1/me/progress", userToken)
			if err != nil {
				return false
			}
			defer resp.Body.Close()
			var body struct {
				Data model.Progress `json:"data"`
			}
			if json.NewDecoder(resp.Body).Decode(&body) != nil {
				return false
			}
			return body.Data.HRAttempts >= total
		}, 20*time.Second, 500*time.Millisecond)
	})
}

func TestMockIntegrityBreach(t *testing.T) {
	conn := dial(t, model.InterviewKindMock)
	defer conn.Close()

	send(t, conn, map[string]any{"action": "start"})
	first := await(t, conn, "question", "error")
	if first.Event == "error" {
		t.Skipf("mock pools not seeded: %s", first.Data)
	}

	for i := 0; i < 2; i++ {
		send(t, conn, map[string]any{"action": "focus_lost"})
		await(t, conn, "warning")
	}
	send(t, conn, map[string]any{"action": "focus_lost"})

	var finished struct {
		Reason      string `json:"reason"`
		StrikeCount int    `json:"strike_count"`
	}
	decode(t, await(t, conn, "finished"), &finished)
	assert.Equal(t, "integrity_breach", finished.Reason)
	assert.Equal(t, 3, finished.StrikeCount)
	await(t, conn, "submitted")
}

// ─── Helpers ─────────────────────────────────────────────────────────

func wsURL(kind model.InterviewKind) string {
	u := strings.Replace(baseURL, "http", "ws", 1)
	return fmt.Sprintf("%s/ws/v1/interviews/%s/stream?token=%s", u, kind, url.QueryEscape(userToken))
}

func dial(t *testing.T, kind model.InterviewKind) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(kind), nil)
	if err != nil && resp != nil {
		t.Fatalf("dial: %v (status %d: %s)", err, resp.StatusCode, readBody(resp))
	}
	require.NoError(t, err)
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

// await reads events until one of the wanted types arrives, skipping ticks
// and other interleaved events.
func await(t *testing.T, conn *websocket.Conn, want ...string) event {
	t.Helper()
	deadline := time.Now().Add(eventTimeout)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		var ev event
		require.NoError(t, conn.ReadJSON(&ev), "waiting for %v", want)
		for _, w := range want {
			if ev.Event == w {
				return ev
			}
		}
		if ev.Event == "error" || ev.Event == "submit_failed" {
			t.Fatalf("unexpected %s: %s", ev.Event, ev.Data)
		}
	}
}

func decode(t *testing.T, ev event, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(ev.Data, v))
}

func post(path string, body any, token string) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return http.DefaultClient.Do(req)
}

func get(path, token string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return http.DefaultClient.Do(req)
}

func readBody(resp *http.Response) string {
	b, _ := io.ReadAll(resp.Body)
	return string(b)
}
