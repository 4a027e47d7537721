package managecompetitors

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"marketing-workers/internal/common/cache"
	"marketing-workers/internal/common/camunda/camundatest"
	apperrors "marketing-workers/internal/common/errors"
	"marketing-workers/internal/common/logger"
	"marketing-workers/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestConfig() *Config {
	return &Config{Timeout: 5 * time.Second, MetadataTimeout: 2 * time.Second, FetchMetadata: true}
}

func createTestHandler(t *testing.T, cfg *Config) (*Handler, *cache.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	store := cache.NewStore(rdb, "test:", 0, logger.NewTestLogger(t))
	return NewHandler(cfg, store, nil, logger.NewTestLogger(t)), store
}

func seed(t *testing.T, store *cache.Store) []models.Competitor {
	t.Helper()
	list := []models.Competitor{
		{ID: "c1", URL: "https://www.linkedin.com/company/acme", Platform: "linkedin", Name: "Acme"},
		{ID: "c2", URL: "https://www.tiktok.com/@globex", Platform: "tiktok", Name: "Globex"},
	}
	require.NoError(t, store.SaveCompetitors(context.Background(), "ws1", list))
	return list
}

func ids(list []models.Competitor) []string {
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, c.ID)
	}
	return out
}

func TestHandler_Execute_AddThenRemoveRestoresList(t *testing.T) {
	cfg := createTestConfig()
	cfg.FetchMetadata = false
	h, store := createTestHandler(t, cfg)
	original := seed(t, store)
	ctx := context.Background()

	out, err := h.Execute(ctx, &Input{
		WorkspaceID: "ws1",
		Action:      ActionAdd,
		Competitor:  &CompetitorInput{URL: "https://www.tiktok.com/@initech", Platform: "TikTok"},
	})
	require.NoError(t, err)
	require.NotNil(t, out.Added)
	assert.Equal(t, "initech", out.Added.Name)
	assert.Equal(t, "tiktok", out.Added.Platform)
	assert.Equal(t, 3, out.Count)

	out, err = h.Execute(ctx, &Input{WorkspaceID: "ws1", Action: ActionRemove, CompetitorID: out.Added.ID})
	require.NoError(t, err)
	assert.True(t, out.Removed)
	assert.Equal(t, ids(original), ids(out.Competitors))

	entry, ok := store.LoadCompetitors(ctx, "ws1")
	require.True(t, ok)
	assert.Equal(t, ids(original), ids(entry.Competitors))
}

func TestHandler_Execute_AddUsesPageMetadata(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>ignored</title>
			<meta property="og:site_name" content="LinkedIn">
			<meta property="og:title" content="Hooli | LinkedIn">
			<meta property="og:description" content="Making the world a better place"></head></html>`))
	}))
	defer page.Close()

	h, _ := createTestHandler(t, createTestConfig())
	out, err := h.Execute(context.Background(), &Input{
		WorkspaceID: "ws1",
		Action:      ActionAdd,
		Competitor:  &CompetitorInput{URL: page.URL + "/about", Platform: "linkedin"},
	})
	require.NoError(t, err)
	require.NotNil(t, out.Added)
	assert.Equal(t, "Hooli", out.Added.Name)
	assert.Equal(t, "Making the world a better place", out.Added.Metadata.Description)
	assert.Equal(t, "manual", out.Added.Metadata.DiscoveryMethod)
}

func TestHandler_Execute_ConcurrentAddsAllKept(t *testing.T) {
	cfg := createTestConfig()
	cfg.FetchMetadata = false
	h, store := createTestHandler(t, cfg)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := h.Execute(ctx, &Input{
				WorkspaceID: "ws1",
				Action:      ActionAdd,
				Competitor:  &CompetitorInput{URL: fmt.Sprintf("https://www.tiktok.com/@brand%d", i), Platform: "tiktok"},
			})
			assert.NoError(t, err)
			assert.Empty(t, out.ErrorCode)
		}(i)
	}
	wg.Wait()

	entry, ok := store.LoadCompetitors(ctx, "ws1")
	require.True(t, ok)
	assert.Len(t, entry.Competitors, 10)
}

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    *Input
		wantCode string
	}{
		{
			name:     "remove unknown id",
			input:    &Input{WorkspaceID: "ws1", Action: ActionRemove, CompetitorID: "nope"},
			wantCode: "COMPETITOR_NOT_FOUND",
		},
		{
			name:     "invalid url",
			input:    &Input{WorkspaceID: "ws1", Action: ActionAdd, Competitor: &CompetitorInput{URL: "ftp://x", Platform: "linkedin"}},
			wantCode: "INVALID_INPUT",
		},
		{
			name:     "unsupported platform",
			input:    &Input{WorkspaceID: "ws1", Action: ActionAdd, Competitor: &CompetitorInput{URL: "https://youtube.com/@x", Platform: "youtube"}},
			wantCode: "INVALID_INPUT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, store := createTestHandler(t, createTestConfig())
			original := seed(t, store)

			out, err := h.Execute(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, out.ErrorCode)
			assert.False(t, out.Removed)
			assert.Nil(t, out.Added)
			assert.Equal(t, ids(original), ids(out.Competitors))
		})
	}
}

func TestHandler_Execute_DuplicateURL(t *testing.T) {
	h, store := createTestHandler(t, createTestConfig())
	seed(t, store)

	out, err := h.Execute(context.Background(), &Input{
		WorkspaceID: "ws1",
		Action:      ActionAdd,
		Competitor:  &CompetitorInput{URL: "https://www.linkedin.com/company/ACME/", Platform: "linkedin"},
	})
	require.NoError(t, err)
	assert.True(t, out.Duplicate)
	assert.Equal(t, "c1", out.Added.ID)
	assert.Equal(t, 2, out.Count)
}

func TestHandler_Execute_InvalidAction(t *testing.T) {
	h, _ := createTestHandler(t, createTestConfig())
	_, err := h.Execute(context.Background(), &Input{WorkspaceID: "ws1", Action: "rename"})
	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, stdErr.Code)
}

func TestHandler_Handle_List(t *testing.T) {
	h, store := createTestHandler(t, createTestConfig())
	seed(t, store)

	client := camundatest.NewJobClient()
	h.Handle(client, camundatest.Job(TaskType, Input{WorkspaceID: "ws1", Action: "list"}))

	var out Output
	require.True(t, client.Completed(0, &out))
	assert.Equal(t, 2, out.Count)
}

func TestParsePageMetadata(t *testing.T) {
	tests := []struct {
		name string
		html string
		want PageMetadata
	}{
		{"title only", `<html><head><title> Acme Inc </title></head></html>`, PageMetadata{Title: "Acme Inc"}},
		{"meta description", `<title>A</title><meta name="description" content="desc">`, PageMetadata{Title: "A", Description: "desc"}},
		{"og title wins", `<title>A</title><meta property="og:title" content="B">`, PageMetadata{Title: "B"}},
		{
			"linkedin company page",
			`<head><title>HubSpot | LinkedIn</title>
			<meta property="og:site_name" content="LinkedIn">
			<meta property="og:title" content="HubSpot | LinkedIn">
			<meta property="og:description" content="HubSpot | 1,042,318 followers on LinkedIn."></head>`,
			PageMetadata{Title: "HubSpot", Description: "HubSpot | 1,042,318 followers on LinkedIn."},
		},
		{
			"tiktok profile",
			`<head><meta property="og:site_name" content="TikTok"><title>Duolingo (@duolingo) Official | TikTok</title></head>`,
			PageMetadata{Title: "Duolingo (@duolingo) Official"},
		},
		{"site name as last resort", `<meta property="og:site_name" content="Hooli">`, PageMetadata{Title: "Hooli"}},
		{"garbage", `<<<>>>`, PageMetadata{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePageMetadata(strings.NewReader(tt.html))
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestNameFromURL(t *testing.T) {
	assert.Equal(t, "globex", NameFromURL("https://www.tiktok.com/@globex"))
	assert.Equal(t, "acme", NameFromURL("https://www.linkedin.com/company/acme/"))
	assert.Equal(t, "example.com", NameFromURL("https://www.example.com/pricing"))
	assert.Equal(t, "not a url", NameFromURL("not a url"))
}
