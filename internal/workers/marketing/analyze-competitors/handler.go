package analyzecompetitors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"marketing-workers/internal/common/agent"
	"marketing-workers/internal/common/cache"
	apperrors "marketing-workers/internal/common/errors"
	"marketing-workers/internal/common/logger"
	"marketing-workers/internal/common/metrics"
	"marketing-workers/internal/models"
	"marketing-workers/internal/repository"
)

const (
	TaskType = "analyze-competitors"

	persistTimeout = 5 * time.Second
)

var (
	ErrNoCompetitors = errors.New("NO_COMPETITORS")
)

type Handler struct {
	config      *Config
	agent       *agent.Client
	cache       *cache.Store
	competitors *repository.CompetitorRepository
	index       *repository.InsightsIndex
	errHandler  *apperrors.ErrorHandler
	logger      logger.Logger
}

// NewHandler wires the analysis worker. repo and index may be nil.
func NewHandler(config *Config, agentClient *agent.Client, store *cache.Store, repo *repository.CompetitorRepository, index *repository.InsightsIndex, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:      config,
		agent:       agentClient,
		cache:       store,
		competitors: repo,
		index:       index,
		errHandler:  apperrors.NewErrorHandler(l),
		logger:      l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errHandler.HandleJobError(context.Background(), client, job,
			apperrors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, apperrors.NewInvalidInputError("input cannot be nil")
	}

	competitors := h.resolveCompetitors(ctx, input)

	if input.UseCache {
		if entry, ok := h.cache.LoadAnalysis(ctx, input.WorkspaceID); ok && entry.Insights != nil &&
			entry.CompetitorCount == len(competitors) {
			return &Output{
				AnalysisID:      entry.AnalysisID,
				Status:          models.AnalysisCompleted,
				Insights:        entry.Insights,
				CompetitorCount: entry.CompetitorCount,
				Source:          SourceCache,
				Simulated:       entry.Insights.Simulated,
			}, nil
		}
	}

	analysisID := input.AnalysisID
	if analysisID == "" {
		analysisID = uuid.NewString()
	}

	output := &Output{
		AnalysisID:      analysisID,
		CompetitorCount: len(competitors),
		Source:          SourceBackend,
	}

	status, insights, err := h.analyze(ctx, input, analysisID, competitors)
	if err != nil {
		reason := h.degrade(output, err)
		h.logger.Warn("analysis degraded to synthesized insights", map[string]interface{}{
			"error":      err.Error(),
			"analysisId": analysisID,
			"reason":     reason,
		})
		metrics.RecordFallback(TaskType, reason)
		insights = SynthesizeInsights(analysisID, competitors)
		output.Status = models.AnalysisCompleted
		output.Source = SourceSimulated
		output.FallbackUsed = true
	} else {
		output.Status = status.Status
		output.PlatformStatus = status.Platforms
	}

	if insights.AnalysisID == "" {
		insights.AnalysisID = analysisID
	}
	if insights.GeneratedAt.IsZero() {
		insights.GeneratedAt = time.Now().UTC()
	}
	output.Insights = insights
	output.Simulated = insights.Simulated

	// the job deadline may already be gone on the timeout path
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := h.cache.SaveAnalysis(storeCtx, input.WorkspaceID, cache.AnalysisEntry{
		AnalysisID:      analysisID,
		Status:          status,
		Insights:        insights,
		CompetitorCount: len(competitors),
	}); err != nil {
		h.logger.Warn("cache analysis failed", map[string]interface{}{"error": err.Error()})
	}
	output.Indexed = h.indexInsights(storeCtx, input.WorkspaceID, insights, competitors)
	return output, nil
}

func (h *Handler) resolveCompetitors(ctx context.Context, input *Input) []models.Competitor {
	if len(input.Competitors) > 0 {
		return input.Competitors
	}
	if entry, ok := h.cache.LoadCompetitors(ctx, input.WorkspaceID); ok && len(entry.Competitors) > 0 {
		return entry.Competitors
	}
	if h.competitors != nil {
		if list, err := h.competitors.List(ctx, input.WorkspaceID); err == nil {
			return list
		}
	}
	return nil
}

// analyze runs the backend flow: start, wait, per-platform status, insights.
func (h *Handler) analyze(ctx context.Context, input *Input, analysisID string, competitors []models.Competitor) (*models.AnalysisStatus, *models.MarketingInsights, error) {
	if len(competitors) == 0 {
		return nil, nil, ErrNoCompetitors
	}

	summary := input.BusinessSummary
	if summary == "" {
		summary, _ = h.cache.LoadBusinessSummary(ctx, input.WorkspaceID)
	}
	brand := input.BrandIdentity
	if brand == nil {
		brand, _ = h.cache.LoadBrandIdentity(ctx, input.WorkspaceID)
	}

	targets := make([]agent.AnalysisTarget, 0, len(competitors))
	for _, c := range competitors {
		targets = append(targets, agent.AnalysisTarget{URL: c.URL, Platform: c.Platform, Name: c.Name})
	}

	started, err := h.agent.StartAnalysis(ctx, agent.AnalyzeRequest{
		AnalysisID:      analysisID,
		Competitors:     targets,
		BusinessSummary: summary,
		BrandIdentity:   brand,
	})
	if err != nil {
		return nil, nil, apperrors.NewAnalysisFailedError(err)
	}
	if started.Status == models.AnalysisFailed {
		return nil, nil, apperrors.NewAnalysisFailedError(fmt.Errorf("backend rejected analysis %s", analysisID))
	}

	select {
	case <-time.After(h.config.InsightsWait):
	case <-ctx.Done():
		return nil, nil, apperrors.NewAnalysisTimeoutError(analysisID)
	}

	status, err := h.platformStatus(ctx, analysisID, competitors)
	if err != nil {
		return nil, nil, apperrors.NewAnalysisFailedError(err)
	}
	if status.Status == models.AnalysisFailed {
		return nil, nil, apperrors.NewAnalysisFailedError(fmt.Errorf("analysis %s failed", analysisID))
	}

	insights, err := h.agent.Insights(ctx, analysisID)
	if err != nil {
		return nil, nil, apperrors.NewInsightsUnavailableError(analysisID, err)
	}
	return status, insights, nil
}

// platformStatus fetches the status of every platform concurrently.
func (h *Handler) platformStatus(ctx context.Context, analysisID string, competitors []models.Competitor) (*models.AnalysisStatus, error) {
	seen := map[string]bool{}
	var platforms []string
	for _, c := range competitors {
		if !seen[c.Platform] {
			seen[c.Platform] = true
			platforms = append(platforms, c.Platform)
		}
	}
	sort.Strings(platforms)

	var mu sync.Mutex
	merged := &models.AnalysisStatus{
		AnalysisID: analysisID,
		Status:     models.AnalysisCompleted,
		Platforms:  make(map[string]models.PlatformStatus, len(platforms)),
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, platform := range platforms {
		platform := platform
		g.Go(func() error {
			st, err := h.agent.AnalysisStatus(gctx, analysisID, platform)
			if err != nil {
				return fmt.Errorf("%s status: %w", platform, err)
			}
			ps, ok := st.Platforms[platform]
			if !ok {
				ps = models.PlatformStatus{Status: st.Status}
			}

			mu.Lock()
			defer mu.Unlock()
			merged.Platforms[platform] = ps
			switch {
			case ps.Status == models.AnalysisFailed:
				merged.Status = models.AnalysisFailed
			case ps.Status != models.AnalysisCompleted && merged.Status == models.AnalysisCompleted:
				merged.Status = models.AnalysisRunning
			}
			if st.StartedAt != nil && merged.StartedAt == nil {
				merged.StartedAt = st.StartedAt
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return merged, nil
}

// degrade records the failure on the output and returns the metrics reason.
func (h *Handler) degrade(output *Output, err error) string {
	if errors.Is(err, ErrNoCompetitors) {
		return "no_competitors"
	}
	stdErr := apperrors.Normalize(err)
	output.ErrorCode = string(stdErr.Code)
	output.ErrorMessage = stdErr.Details
	switch stdErr.Code {
	case apperrors.ErrCodeAnalysisTimeout:
		return "timeout"
	case apperrors.ErrCodeInsightsUnavailable:
		return "insights_unavailable"
	}
	return "backend_error"
}

func (h *Handler) indexInsights(ctx context.Context, workspaceID string, insights *models.MarketingInsights, competitors []models.Competitor) bool {
	if h.index == nil {
		return false
	}
	names := make([]string, 0, len(competitors))
	for _, c := range competitors {
		names = append(names, c.Name)
	}
	if err := h.index.Index(ctx, insights.Documents(workspaceID, names)); err != nil {
		h.logger.Warn("index insights failed", map[string]interface{}{"error": err.Error()})
		return false
	}
	return true
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
