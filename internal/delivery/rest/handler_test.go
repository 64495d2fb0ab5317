package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aliskhannn/exam-prep/internal/chat"
	"github.com/aliskhannn/exam-prep/internal/domain/entities"
	"github.com/aliskhannn/exam-prep/internal/service"
)

type stubProvider struct {
	mu      sync.Mutex
	batches [][]entities.Question
}

func (p *stubProvider) Generate(context.Context, entities.QuestionRequest) []entities.Question {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.batches) == 0 {
		return nil
	}
	b := p.batches[0]
	p.batches = p.batches[1:]
	return b
}

type nopTracker struct{}

func (nopTracker) Track(string, string, map[string]any) {}

type memAsked struct {
	mu  sync.Mutex
	ids map[string][]string
}

func (m *memAsked) Load(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ids[userID], nil
}

func (m *memAsked) Save(_ context.Context, userID string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids[userID] = ids
	return nil
}

type stubNews struct {
	articles []entities.Article
	err      error
}

func (s stubNews) Latest(context.Context) ([]entities.Article, error) {
	return s.articles, s.err
}

type stubActivity struct {
	gotUser  string
	gotLimit int
}

func (s *stubActivity) ListRecent(_ context.Context, userID string, limit int) ([]*entities.Activity, error) {
	s.gotUser = userID
	s.gotLimit = limit
	return []*entities.Activity{{ID: 1, UserID: userID, Action: entities.ActionAnswerSubmitted}}, nil
}

type testEnv struct {
	router   http.Handler
	provider *stubProvider
	activity *stubActivity
	hub      *chat.Hub
}

func newTestEnv(t *testing.T, news stubNews) *testEnv {
	t.Helper()

	provider := &stubProvider{}
	activity := &stubActivity{}
	hub := chat.NewHub(8, 0, zap.NewNop())
	t.Cleanup(hub.Close)

	flows := service.NewFlowRegistry(provider, nopTracker{}, &memAsked{ids: map[string][]string{}}, zap.NewNop(), 10, 100)
	h := NewHandler(flows, news, activity, hub, zap.NewNop(), []string{"*"})

	return &testEnv{
		router:   h.Router([]string{"*"}),
		provider: provider,
		activity: activity,
		hub:      hub,
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(userHeader, "user-1")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func oneQuestion() []entities.Question {
	return []entities.Question{{
		ID:            "q1",
		Question:      "Which article abolishes untouchability?",
		Options:       []string{"14", "15", "17", "21"},
		CorrectOption: 2,
		Explanation:   "Article 17.",
		Category:      "Polity",
		Difficulty:    entities.DifficultyMedium,
	}}
}

func TestQuizLifecycle(t *testing.T) {
	env := newTestEnv(t, stubNews{})
	env.provider.batches = [][]entities.Question{oneQuestion()}

	rec := env.do(t, http.MethodPost, "/api/v1/quiz/generate", `{"examType":"UPSC","difficulty":"medium","count":5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	gen := decode[generateResponse](t, rec)
	assert.Equal(t, service.StateAwaitingSelection, gen.State)
	assert.Empty(t, gen.Notice)
	require.NotNil(t, gen.Question)
	assert.Nil(t, gen.Question.CorrectOption)

	rec = env.do(t, http.MethodPost, "/api/v1/quiz/submit", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/quiz/select", `{"option":7}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/quiz/select", `{"option":2}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/quiz/submit", "")
	require.Equal(t, http.StatusOK, rec.Code)
	sub := decode[submitResponse](t, rec)
	assert.True(t, sub.Answer.IsCorrect)
	assert.Equal(t, "Article 17.", sub.View.Question.Explanation)

	rec = env.do(t, http.MethodPost, "/api/v1/quiz/next", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.StateNoQuestion, decode[service.QuizView](t, rec).State)

	rec = env.do(t, http.MethodGet, "/api/v1/quiz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[service.QuizView](t, rec).AskedCount)

	rec = env.do(t, http.MethodDelete, "/api/v1/quiz/asked", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[service.QuizView](t, rec).AskedCount)
}

func TestQuizActionsOnOldQuestion(t *testing.T) {
	env := newTestEnv(t, stubNews{})
	env.provider.batches = [][]entities.Question{oneQuestion()}

	rec := env.do(t, http.MethodPost, "/api/v1/quiz/generate", `{"examType":"UPSC","difficulty":"medium","count":5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	gen := decode[generateResponse](t, rec)
	require.NotNil(t, gen.Question)
	assert.Equal(t, "q1", gen.Question.ID)

	rec = env.do(t, http.MethodPost, "/api/v1/quiz/select", `{"option":2,"questionId":"q0"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/quiz/select", `{"option":2,"questionId":"q1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/quiz/submit?question=q0", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/quiz/submit?question=q1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/quiz/next?question=q0", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/quiz/next?question=q1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.StateNoQuestion, decode[service.QuizView](t, rec).State)
}

func TestGenerateNoQuestionsIsNotice(t *testing.T) {
	env := newTestEnv(t, stubNews{})

	rec := env.do(t, http.MethodPost, "/api/v1/quiz/generate", `{"examType":"SSC","difficulty":"easy","count":3}`)
	require.Equal(t, http.StatusOK, rec.Code)

	gen := decode[generateResponse](t, rec)
	assert.Equal(t, msgNoQuestions, gen.Notice)
	assert.Equal(t, service.StateNoQuestion, gen.State)
}

func TestGenerateValidation(t *testing.T) {
	env := newTestEnv(t, stubNews{})

	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{`},
		{"unknown exam", `{"examType":"GRE","difficulty":"easy","count":3}`},
		{"count too large", `{"examType":"SSC","difficulty":"easy","count":99}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/quiz/generate", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRequireUser(t *testing.T) {
	env := newTestEnv(t, stubNews{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quiz", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewsAndActivity(t *testing.T) {
	env := newTestEnv(t, stubNews{articles: []entities.Article{{Title: "Exam dates announced", URL: "https://example.com"}}})

	rec := env.do(t, http.MethodGet, "/api/v1/news", "")
	require.Equal(t, http.StatusOK, rec.Code)
	articles := decode[[]entities.Article](t, rec)
	require.Len(t, articles, 1)
	assert.Equal(t, "Exam dates announced", articles[0].Title)

	rec = env.do(t, http.MethodGet, "/api/v1/activity?limit=1000", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", env.activity.gotUser)
	assert.Equal(t, maxActivityPage, env.activity.gotLimit)

	rec = env.do(t, http.MethodGet, "/api/v1/activity?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNewsUnavailable(t *testing.T) {
	env := newTestEnv(t, stubNews{err: errors.New("upstream down")})

	rec := env.do(t, http.MethodGet, "/api/v1/news", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestChatWebsocket(t *testing.T) {
	env := newTestEnv(t, stubNews{})
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/chat/general?user=asha"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.Eventually(t, func() bool { return env.hub.Subscribers("general") == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(chatInput{Text: "hello"}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg entities.ChatMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "asha", msg.Sender)
	assert.Equal(t, "general", msg.Room)
	assert.Equal(t, "hello", msg.Text)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(service.ErrGenerationInProgress))
	assert.Equal(t, http.StatusConflict, statusFor(service.ErrStaleQuestion))
	assert.Equal(t, http.StatusBadRequest, statusFor(entities.ErrUnknownDifficulty))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}
