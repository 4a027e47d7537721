package generatesocialposts

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"marketing-workers/internal/common/agent"
	"marketing-workers/internal/common/cache"
	"marketing-workers/internal/common/camunda/camundatest"
	"marketing-workers/internal/common/gemini"
	"marketing-workers/internal/common/logger"
	"marketing-workers/internal/models"
	"marketing-workers/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestConfig() *Config {
	cfg := LoadConfig()
	cfg.Timeout = 5 * time.Second
	return cfg
}

func createTestStore(t *testing.T) *cache.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return cache.NewStore(rdb, "test:", 0, logger.NewTestLogger(t))
}

func createAgent(t *testing.T, status int, posts []models.SocialMediaPost) *agent.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/content/generate", r.URL.Path)
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		var req agent.GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Artisan bakery", req.BusinessSummary)
		json.NewEncoder(w).Encode(agent.GenerateResponse{Posts: posts})
	}))
	t.Cleanup(srv.Close)
	return agent.New(agent.Config{AgentBaseURL: srv.URL, AgentTimeout: 2 * time.Second})
}

func seededStore(t *testing.T) *cache.Store {
	store := createTestStore(t)
	require.NoError(t, store.SaveBusinessSummary(context.Background(), "ws1", "Artisan bakery"))
	return store
}

func TestHandler_Execute_Agent(t *testing.T) {
	backendPosts := []models.SocialMediaPost{
		{Platform: "LinkedIn", Content: "Fresh sourdough every morning", Hashtags: []string{"#bread"}},
		{Platform: "tiktok", Content: "   "},
		{Platform: "tiktok", Content: "Watch us shape 100 loaves", EngagementPrediction: &models.EngagementPrediction{Score: 91}},
	}

	tests := []struct {
		name  string
		count int
	}{
		{"tops up", 4},
		{"truncates", 1},
		{"exact", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(createTestConfig(), createAgent(t, http.StatusOK, backendPosts), nil, seededStore(t), nil, logger.NewTestLogger(t))
			out, err := h.Execute(context.Background(), &Input{WorkspaceID: "ws1", Count: tt.count, Topic: "bread"})
			require.NoError(t, err)

			assert.Equal(t, SourceAgent, out.Source)
			assert.False(t, out.FallbackUsed)
			require.Len(t, out.Posts, tt.count)
			assert.Equal(t, tt.count, out.Count)

			first := out.Posts[0]
			assert.Equal(t, "linkedin", first.Platform)
			assert.Equal(t, "Fresh sourdough every morning", first.Content)
			assert.Equal(t, []string{"bread"}, first.Hashtags)
			if tt.count >= 2 {
				assert.Equal(t, 91.0, out.Posts[1].EngagementPrediction.Score)
			}
			for _, p := range out.Posts {
				assert.NotEmpty(t, p.ID)
				assert.Equal(t, models.PostStatusDraft, p.Status)
				assert.NotNil(t, p.EngagementPrediction)
			}
		})
	}
}

func TestHandler_Execute_BackendDownUsesTemplates(t *testing.T) {
	store := seededStore(t)
	h := NewHandler(createTestConfig(), createAgent(t, http.StatusInternalServerError, nil), nil, store, nil, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{WorkspaceID: "ws1", Count: 5, Topic: "Sourdough"})
	require.NoError(t, err)

	assert.True(t, out.FallbackUsed)
	assert.Equal(t, SourceTemplate, out.Source)
	assert.Equal(t, "POST_GENERATION_FAILED", out.ErrorCode)
	require.Len(t, out.Posts, 5)
	assert.Equal(t, "linkedin", out.Posts[0].Platform)
	assert.Equal(t, "tiktok", out.Posts[1].Platform)
	for _, p := range out.Posts {
		assert.Contains(t, p.Content, "Sourdough")
		assert.Contains(t, p.Hashtags, "sourdough")
	}

	cached, ok := store.LoadPosts(context.Background(), "ws1")
	require.True(t, ok)
	assert.Len(t, cached, 5)
}

func TestHandler_Execute_GeminiPerPlatform(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		platform := "tiktok"
		if strings.Contains(string(body), "linkedin posts") {
			platform = "linkedin"
		}
		text := `{"posts":[{"platform":"` + platform + `","content":"gemini ` + platform + `","hashtags":["ai"]}]}`
		json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{{
				"content": map[string]interface{}{"role": "model", "parts": []map[string]interface{}{{"text": text}}},
			}},
		})
	}))
	defer srv.Close()

	gc, err := gemini.New(context.Background(), gemini.Config{APIKey: "k", Timeout: 2 * time.Second, BaseURL: srv.URL})
	require.NoError(t, err)

	h := NewHandler(createTestConfig(), agent.New(agent.Config{}), gc, createTestStore(t), nil, logger.NewTestLogger(t))
	out, err := h.Execute(context.Background(), &Input{WorkspaceID: "ws1", Count: 3, UseGemini: true})
	require.NoError(t, err)

	assert.Equal(t, SourceGemini, out.Source)
	assert.False(t, out.FallbackUsed)
	require.Len(t, out.Posts, 3)
	assert.Equal(t, "gemini linkedin", out.Posts[0].Content)
	assert.Equal(t, "gemini tiktok", out.Posts[1].Content)
	assert.Equal(t, "linkedin", out.Posts[2].Platform, "shortfall topped up round-robin")
}

func TestHandler_Execute_GeminiNotConfigured(t *testing.T) {
	h := NewHandler(createTestConfig(), agent.New(agent.Config{}), nil, createTestStore(t), nil, logger.NewTestLogger(t))
	out, err := h.Execute(context.Background(), &Input{WorkspaceID: "ws1", Count: 2, UseGemini: true})
	require.NoError(t, err)
	assert.True(t, out.FallbackUsed)
	assert.Len(t, out.Posts, 2)
}

func TestHandler_Execute_PersistsToPostgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectExec("INSERT INTO social_posts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO social_posts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM social_posts").WithArgs("ws1").WillReturnRows(sqlmock.NewRows(postRowColumns))

	h := NewHandler(createTestConfig(), createAgent(t, http.StatusBadGateway, nil), nil, createTestStore(t),
		repository.NewPostRepository(db), logger.NewTestLogger(t))
	_, err = h.Execute(context.Background(), &Input{WorkspaceID: "ws1", Count: 2})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var postRowColumns = []string{"id", "platform", "content", "hashtags", "image_url", "scheduled_date",
	"scheduled_time", "status", "engagement", "custom", "created_at", "updated_at"}

func TestHandler_Execute_CacheMissKeepsDurablePosts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	earlier := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO social_posts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO social_posts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM social_posts").WithArgs("ws1").WillReturnRows(sqlmock.NewRows(postRowColumns).
		AddRow("durable-1", "linkedin", "Scheduled last week", []byte(`[]`), nil, "2026-05-02", "10:00",
			"scheduled", nil, true, earlier, earlier))

	store := createTestStore(t)
	h := NewHandler(createTestConfig(), createAgent(t, http.StatusBadGateway, nil), nil, store,
		repository.NewPostRepository(db), logger.NewTestLogger(t))
	out, err := h.Execute(context.Background(), &Input{WorkspaceID: "ws1", Count: 2})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	cached, ok := store.LoadPosts(context.Background(), "ws1")
	require.True(t, ok)
	require.Len(t, cached, 3)
	assert.Equal(t, "durable-1", cached[0].ID)
	assert.Equal(t, out.Posts[0].ID, cached[1].ID)
}

func TestHandler_Execute_CapsCount(t *testing.T) {
	h := NewHandler(createTestConfig(), createAgent(t, http.StatusInternalServerError, nil), nil, seededStore(t), nil, logger.NewTestLogger(t))
	out, err := h.Execute(context.Background(), &Input{WorkspaceID: "ws1", Count: 25})
	require.NoError(t, err)

	assert.True(t, out.Capped)
	assert.Equal(t, 25, out.RequestedCount)
	assert.Len(t, out.Posts, 20)

	out, err = h.Execute(context.Background(), &Input{WorkspaceID: "ws1", Count: 2})
	require.NoError(t, err)
	assert.False(t, out.Capped)
	assert.Zero(t, out.RequestedCount)
}

func TestHandler_Execute_UnsupportedPlatforms(t *testing.T) {
	h := NewHandler(createTestConfig(), agent.New(agent.Config{}), nil, createTestStore(t), nil, logger.NewTestLogger(t))
	_, err := h.Execute(context.Background(), &Input{Platforms: []string{"myspace"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_INPUT")
}

func TestNormalize_ExactCount(t *testing.T) {
	platforms := []string{"linkedin", "tiktok", "instagram"}
	for n := 1; n <= 10; n++ {
		posts := Normalize(nil, platforms, n, "coffee", "")
		assert.Len(t, posts, n)
	}
}

func TestNormalize_DropsUnrequestedPlatforms(t *testing.T) {
	posts := []models.SocialMediaPost{
		{Platform: "snapchat", Content: "streak time"},
		{Platform: "instagram", Content: "carousel"},
		{Platform: "TikTok", Content: "duet this"},
		{Content: "no platform"},
	}
	out := Normalize(posts, []string{"linkedin", "tiktok"}, 3, "coffee", "")
	require.Len(t, out, 3)
	assert.Equal(t, "duet this", out[0].Content)
	assert.Equal(t, "tiktok", out[1].Platform)
	assert.Equal(t, "no platform", out[1].Content)
	for _, p := range out {
		assert.Contains(t, []string{"linkedin", "tiktok"}, p.Platform)
	}
}

func TestSplitCount(t *testing.T) {
	assert.Equal(t, []int{3, 2}, SplitCount(5, 2))
	assert.Equal(t, []int{1, 0, 0}, SplitCount(1, 3))
	assert.Equal(t, []int{2, 2}, SplitCount(4, 2))
}

func TestHandler_Handle(t *testing.T) {
	h := NewHandler(createTestConfig(), createAgent(t, http.StatusInternalServerError, nil), nil, createTestStore(t), nil, logger.NewTestLogger(t))

	client := camundatest.NewJobClient()
	h.Handle(client, camundatest.Job(TaskType, `{"count": "three"}`))
	require.Len(t, client.Failed(), 1)

	client = camundatest.NewJobClient()
	h.Handle(client, camundatest.Job(TaskType, Input{WorkspaceID: "ws1", Count: 2}))
	var out Output
	require.True(t, client.Completed(0, &out))
	assert.Len(t, out.Posts, 2)
}
