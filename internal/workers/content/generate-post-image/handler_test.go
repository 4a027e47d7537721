package generatepostimage

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketing-workers/internal/common/agent"
	"marketing-workers/internal/common/cache"
	"marketing-workers/internal/common/camunda/camundatest"
	"marketing-workers/internal/common/logger"
	"marketing-workers/internal/models"
	"marketing-workers/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestStore(t *testing.T) *cache.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return cache.NewStore(rdb, "test:", 0, logger.NewTestLogger(t))
}

func createImageAPI(t *testing.T, status int) (*agent.Client, *agent.ImageRequest) {
	t.Helper()
	var got agent.ImageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/generate", r.URL.Path)
		assert.Equal(t, "Bearer img-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"url": "https://cdn.example.com/img/1.png"})
	}))
	t.Cleanup(srv.Close)
	return agent.New(agent.Config{ImageBaseURL: srv.URL, ImageAPIKey: "img-key", ImageTimeout: 2 * time.Second}), &got
}

func createTestConfig() *Config {
	return &Config{Timeout: 5 * time.Second, PlaceholderURL: "https://placehold.co/"}
}

func TestHandler_Execute_Success(t *testing.T) {
	tests := []struct {
		platform string
		want     Dimensions
	}{
		{"linkedin", Dimensions{1200, 627}},
		{"TikTok", Dimensions{1080, 1920}},
		{"instagram", Dimensions{1080, 1080}},
		{"", Dimensions{1024, 1024}},
	}
	for _, tt := range tests {
		t.Run(tt.platform, func(t *testing.T) {
			client, got := createImageAPI(t, http.StatusOK)
			h := NewHandler(createTestConfig(), client, nil, nil, logger.NewTestLogger(t))

			out, err := h.Execute(context.Background(), &Input{Prompt: "a loaf of bread", Platform: tt.platform})
			require.NoError(t, err)
			assert.Equal(t, "https://cdn.example.com/img/1.png", out.ImageURL)
			assert.False(t, out.FallbackUsed)
			assert.Equal(t, tt.want.Width, got.Width)
			assert.Equal(t, tt.want.Height, got.Height)
			assert.Equal(t, tt.want.Width, out.Width)
		})
	}
}

func TestHandler_Execute_Placeholder(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		client, _ := createImageAPI(t, http.StatusBadRequest)
		h := NewHandler(createTestConfig(), client, nil, nil, logger.NewTestLogger(t))

		out, err := h.Execute(context.Background(), &Input{Prompt: "a loaf   of bread", Platform: "linkedin"})
		require.NoError(t, err)
		assert.True(t, out.FallbackUsed)
		assert.True(t, out.Placeholder)
		assert.Equal(t, "IMAGE_GENERATION_FAILED", out.ErrorCode)
		assert.Equal(t, "https://placehold.co/1200x627?text=a+loaf+of+bread", out.ImageURL)
	})

	t.Run("not configured", func(t *testing.T) {
		h := NewHandler(createTestConfig(), agent.New(agent.Config{}), nil, nil, logger.NewTestLogger(t))
		first, err := h.Execute(context.Background(), &Input{Prompt: "coffee", Platform: "tiktok"})
		require.NoError(t, err)
		second, err := h.Execute(context.Background(), &Input{Prompt: "coffee", Platform: "tiktok"})
		require.NoError(t, err)

		assert.Equal(t, "https://placehold.co/1080x1920?text=coffee", first.ImageURL)
		assert.Equal(t, first.ImageURL, second.ImageURL)
		assert.Contains(t, first.ErrorMessage, "IMAGE_API_NOT_CONFIGURED")
	})
}

func TestHandler_Execute_AttachesToCachedPost(t *testing.T) {
	store := createTestStore(t)
	require.NoError(t, store.SavePosts(context.Background(), "ws1", []models.SocialMediaPost{
		{ID: "p1", Platform: "linkedin", Content: "Hello"},
		{ID: "p2", Platform: "tiktok", Content: "Hi"},
	}))
	client, _ := createImageAPI(t, http.StatusOK)
	h := NewHandler(createTestConfig(), client, store, nil, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{WorkspaceID: "ws1", Prompt: "logo", PostID: "p2"})
	require.NoError(t, err)
	assert.True(t, out.Attached)

	posts, _ := store.LoadPosts(context.Background(), "ws1")
	assert.Empty(t, posts[0].ImageURL)
	assert.Equal(t, "https://cdn.example.com/img/1.png", posts[1].ImageURL)

	out, err = h.Execute(context.Background(), &Input{WorkspaceID: "ws1", Prompt: "logo", PostID: "nope"})
	require.NoError(t, err)
	assert.False(t, out.Attached)
}

func TestHandler_Execute_AttachIsScopedToWorkspace(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery("FROM social_posts WHERE workspace_id").WithArgs("ws2", "p1").WillReturnError(sql.ErrNoRows)

	store := createTestStore(t)
	require.NoError(t, store.SavePosts(context.Background(), "ws1", []models.SocialMediaPost{{ID: "p1", Platform: "linkedin"}}))
	client, _ := createImageAPI(t, http.StatusOK)
	h := NewHandler(createTestConfig(), client, store, repository.NewPostRepository(db), logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{WorkspaceID: "ws2", Prompt: "logo", PostID: "p1"})
	require.NoError(t, err)
	assert.False(t, out.Attached)
	assert.NoError(t, mock.ExpectationsWereMet())

	posts, _ := store.LoadPosts(context.Background(), "ws1")
	assert.Empty(t, posts[0].ImageURL)
}

func TestPlaceholderURL_Truncates(t *testing.T) {
	long := "An extremely detailed photograph of a rustic sourdough loaf on a wooden table"
	u := PlaceholderURL("https://placehold.co", long, defaultDimensions)
	assert.Equal(t, "https://placehold.co/1024x1024?text=An+extremely+detailed+photograph+of+a+ru", u)
}

func TestHandler_Handle(t *testing.T) {
	h := NewHandler(createTestConfig(), agent.New(agent.Config{}), nil, nil, logger.NewTestLogger(t))

	client := camundatest.NewJobClient()
	h.Handle(client, camundatest.Job(TaskType, Input{}))
	require.Len(t, client.Failed(), 1)

	client = camundatest.NewJobClient()
	h.Handle(client, camundatest.Job(TaskType, Input{Prompt: "bread"}))
	var out Output
	require.True(t, client.Completed(0, &out))
	assert.True(t, out.Placeholder)
}
