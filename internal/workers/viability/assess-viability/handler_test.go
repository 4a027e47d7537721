package assessviability

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketing-workers/internal/common/agent"
	"marketing-workers/internal/common/cache"
	"marketing-workers/internal/common/camunda/camundatest"
	"marketing-workers/internal/common/gemini"
	"marketing-workers/internal/common/logger"
	"marketing-workers/internal/models"
	"marketing-workers/internal/parsers"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const assessmentDoc = `{"financial": {"startupCosts": 20000, "breakEvenMonths": 40, "profitMargin": -5},
 "market": {"growthRate": -2, "competition": "high"},
 "legal": {"riskLevel": "high", "regulations": ["a", "b", "c", "d", "e"]},
 "strengths": ["Strong founder"], "risks": ["Cash burn"]}`

func createTestStore(t *testing.T) *cache.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return cache.NewStore(rdb, "test:", 0, logger.NewTestLogger(t))
}

// createAgent serves output for the viability_assessment agent; status other
// than 200 makes the endpoint fail.
func createAgent(t *testing.T, status int, output interface{}) *agent.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/agents/outputs/viability_assessment", r.URL.Path)
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"output": output})
	}))
	t.Cleanup(srv.Close)
	return agent.New(agent.Config{AgentBaseURL: srv.URL, AgentTimeout: 2 * time.Second})
}

func createTestConfig() *Config {
	cfg := LoadConfig()
	cfg.Timeout = 5 * time.Second
	return cfg
}

func TestHandler_Execute_FromInput(t *testing.T) {
	store := createTestStore(t)
	h := NewHandler(createTestConfig(), createAgent(t, http.StatusInternalServerError, nil), nil, store, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{WorkspaceID: "ws1", RawText: assessmentDoc})
	require.NoError(t, err)
	assert.Equal(t, SourceInput, out.Source)
	assert.False(t, out.FallbackUsed)
	assert.Equal(t, parsers.MethodJSON, out.Report.Financial)
	assert.Equal(t, 15.0, out.Viability.Financial.Score)
	assert.Equal(t, models.VerdictNotViable, out.Viability.Verdict)

	entry, ok := store.LoadViability(context.Background(), "ws1")
	require.True(t, ok)
	assert.Equal(t, assessmentDoc, entry.RawText)
	assert.Equal(t, out.Viability.OverallScore, entry.Data.OverallScore)
}

func TestHandler_Execute_SourceChain(t *testing.T) {
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(assessmentDoc), &doc))

	tests := []struct {
		name        string
		status      int
		output      interface{}
		cachedText  string
		wantSource  string
		wantCode    string
		wantDefault bool
	}{
		{name: "agent object output", status: http.StatusOK, output: doc, wantSource: SourceAgent},
		{name: "agent text output", status: http.StatusOK, output: assessmentDoc, wantSource: SourceAgent},
		{name: "agent down uses cache", status: http.StatusBadGateway, cachedText: assessmentDoc, wantSource: SourceCache},
		{name: "agent empty uses cache", status: http.StatusOK, output: "", cachedText: assessmentDoc, wantSource: SourceCache},
		{name: "agent down no cache", status: http.StatusBadGateway, wantSource: SourceDefault, wantCode: "EXTERNAL_SERVICE_ERROR", wantDefault: true},
		{name: "nothing anywhere", status: http.StatusOK, output: nil, wantSource: SourceDefault, wantCode: "PARSE_FAILED", wantDefault: true},
		{name: "unparseable agent text", status: http.StatusOK, output: "lorem ipsum", wantSource: SourceDefault, wantCode: "PARSE_FAILED", wantDefault: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := createTestStore(t)
			if tt.cachedText != "" {
				require.NoError(t, store.SaveViability(context.Background(), "ws1", models.ViabilityData{}, tt.cachedText))
			}
			h := NewHandler(createTestConfig(), createAgent(t, tt.status, tt.output), nil, store, logger.NewTestLogger(t))

			out, err := h.Execute(context.Background(), &Input{WorkspaceID: "ws1"})
			require.NoError(t, err)
			assert.Equal(t, tt.wantSource, out.Source)
			assert.Equal(t, tt.wantCode, out.ErrorCode)
			assert.Equal(t, tt.wantDefault, out.FallbackUsed)
			assert.Equal(t, tt.wantDefault, out.Viability.Simulated)
			require.NotNil(t, out.Viability.Financial)
		})
	}
}

func TestHandler_Execute_DefaultIsNotCached(t *testing.T) {
	store := createTestStore(t)
	h := NewHandler(createTestConfig(), createAgent(t, http.StatusOK, nil), nil, store, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{WorkspaceID: "ws1", RawText: "no numbers here"})
	require.NoError(t, err)
	assert.True(t, out.Viability.Simulated)

	_, ok := store.LoadViability(context.Background(), "ws1")
	assert.False(t, ok)
}

func TestHandler_Execute_Gemini(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{{
				"content": map[string]interface{}{"role": "model", "parts": []map[string]interface{}{{"text": assessmentDoc}}},
			}},
		})
	}))
	defer srv.Close()
	gc, err := gemini.New(context.Background(), gemini.Config{APIKey: "k", Timeout: 2 * time.Second, BaseURL: srv.URL})
	require.NoError(t, err)

	h := NewHandler(createTestConfig(), createAgent(t, http.StatusInternalServerError, nil), gc, createTestStore(t), logger.NewTestLogger(t))
	out, err := h.Execute(context.Background(), &Input{WorkspaceID: "ws1", BusinessIdea: "Mobile coffee cart", UseGemini: true})
	require.NoError(t, err)

	assert.Equal(t, SourceGemini, out.Source)
	assert.Equal(t, parsers.MethodGemini, out.Report.Financial)
	assert.Equal(t, parsers.MethodGemini, out.Report.Legal)
	assert.Equal(t, []string{"Cash burn"}, out.Viability.Risks)
}

func TestHandler_Execute_GeminiUnavailableFallsBackToText(t *testing.T) {
	h := NewHandler(createTestConfig(), createAgent(t, http.StatusInternalServerError, nil), nil, createTestStore(t), logger.NewTestLogger(t))
	out, err := h.Execute(context.Background(), &Input{WorkspaceID: "ws1", RawText: assessmentDoc, UseGemini: true})
	require.NoError(t, err)
	assert.Equal(t, SourceInput, out.Source)
	assert.Equal(t, parsers.MethodJSON, out.Report.Market)
}

func TestHandler_Handle(t *testing.T) {
	h := NewHandler(createTestConfig(), createAgent(t, http.StatusOK, nil), nil, createTestStore(t), logger.NewTestLogger(t))

	client := camundatest.NewJobClient()
	h.Handle(client, camundatest.Job(TaskType, `not json`))
	require.Len(t, client.Failed(), 1)

	client = camundatest.NewJobClient()
	h.Handle(client, camundatest.Job(TaskType, Input{WorkspaceID: "ws1", RawText: assessmentDoc}))
	var out Output
	require.True(t, client.Completed(0, &out))
	assert.Equal(t, SourceInput, out.Source)
}
