package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketing-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(agentURL, socialURL, imageURL string) *Client {
	return New(Config{
		AgentBaseURL:    agentURL,
		AgentTimeout:    2 * time.Second,
		AgentMaxRetries: 1,
		SocialBaseURL:   socialURL,
		SocialTimeout:   2 * time.Second,
		ImageBaseURL:    imageURL,
		ImageAPIKey:     "img-key",
		ImageTimeout:    2 * time.Second,
	})
}

func TestClient_AgentEndpoints(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/competitors/discover", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var req DiscoverRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"linkedin"}, req.Platforms)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"competitors": []map[string]interface{}{{"url": "https://linkedin.com/company/a", "platform": "linkedin", "name": "A"}},
		})
	})
	mux.HandleFunc("/api/marketing/analyze", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"status": "running"})
	})
	mux.HandleFunc("/api/marketing/status/an-1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tiktok", r.URL.Query().Get("platform"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"analysisId": "an-1",
			"status":     "running",
			"platforms":  map[string]interface{}{"tiktok": map[string]interface{}{"status": "running", "progress": 40}},
		})
	})
	mux.HandleFunc("/api/marketing/insights/an-1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"analysisId": "an-1", "summary": "ok"})
	})
	mux.HandleFunc("/api/agents/outputs/viability", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"output": "Startup costs: $50,000"}`))
	})
	mux.HandleFunc("/api/agents/outputs/financial", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"output": {"startupCosts": 1000}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(srv.URL+"/", "", "")
	ctx := context.Background()

	disc, err := c.DiscoverCompetitors(ctx, DiscoverRequest{Platforms: []string{"linkedin"}})
	require.NoError(t, err)
	require.Len(t, disc.Competitors, 1)
	assert.Equal(t, "A", disc.Competitors[0].Name)

	status, err := c.StartAnalysis(ctx, AnalyzeRequest{AnalysisID: "an-1"})
	require.NoError(t, err)
	assert.Equal(t, "an-1", status.AnalysisID, "request id is kept when the backend omits it")

	ps, err := c.AnalysisStatus(ctx, "an-1", "tiktok")
	require.NoError(t, err)
	assert.Equal(t, 40, ps.Platforms["tiktok"].Progress)

	ins, err := c.Insights(ctx, "an-1")
	require.NoError(t, err)
	assert.Equal(t, "ok", ins.Summary)

	text, err := c.AgentOutput(ctx, "viability")
	require.NoError(t, err)
	assert.Equal(t, "Startup costs: $50,000", text)

	obj, err := c.AgentOutput(ctx, "financial")
	require.NoError(t, err)
	assert.JSONEq(t, `{"startupCosts": 1000}`, obj)
}

func TestClient_SocialAndImage(t *testing.T) {
	social := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/social/publish":
			w.Write([]byte(`{"platformPostId": "urn:li:1", "url": "https://linkedin.com/feed/1"}`))
		case "/api/social/schedule":
			w.WriteHeader(http.StatusNoContent)
		case "/api/platforms/config":
			var body struct {
				Config models.PlatformConfig `json:"config"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "linkedin", body.Config.Platform)
			w.Write([]byte(`{"saved": true}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer social.Close()

	image := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer img-key", r.Header.Get("Authorization"))
		var req ImageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 1200, req.Width)
		w.Write([]byte(`{"url": "https://img.example/1.png"}`))
	}))
	defer image.Close()

	c := newTestClient("", social.URL, image.URL)
	ctx := context.Background()

	res, err := c.PublishPost(ctx, models.SocialMediaPost{ID: "p1", Platform: "linkedin"})
	require.NoError(t, err)
	assert.Equal(t, "urn:li:1", res.PlatformPostID)

	require.NoError(t, c.SchedulePost(ctx, models.SocialMediaPost{ID: "p1"}))

	saved, err := c.SavePlatformConfig(ctx, models.PlatformConfig{Platform: "linkedin"})
	require.NoError(t, err)
	assert.True(t, saved)

	u, err := c.GenerateImage(ctx, ImageRequest{Prompt: "bread", Width: 1200, Height: 627})
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/1.png", u)
}

func TestClient_GenerateImageWithoutBaseURL(t *testing.T) {
	c := newTestClient("", "", "")
	assert.False(t, c.ImageConfigured())
	_, err := c.GenerateImage(context.Background(), ImageRequest{Prompt: "x"})
	assert.Error(t, err)
}

func TestClient_BackendDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	srv.Close()

	c := newTestClient(srv.URL, srv.URL, "")
	_, err := c.DiscoverCompetitors(context.Background(), DiscoverRequest{})
	assert.Error(t, err)
	_, err = c.PublishPost(context.Background(), models.SocialMediaPost{})
	assert.Error(t, err)
}
