package discovercompetitors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	"marketing-workers/internal/common/agent"
	"marketing-workers/internal/common/cache"
	apperrors "marketing-workers/internal/common/errors"
	"marketing-workers/internal/common/logger"
	"marketing-workers/internal/common/metrics"
	"marketing-workers/internal/models"
	"marketing-workers/internal/repository"
)

const (
	TaskType = "discover-competitors"

	persistTimeout = 5 * time.Second
)

var (
	ErrDiscoveryEmpty = errors.New("DISCOVERY_EMPTY")
)

type Handler struct {
	config      *Config
	agent       *agent.Client
	cache       *cache.Store
	competitors *repository.CompetitorRepository
	errHandler  *apperrors.ErrorHandler
	logger      logger.Logger
}

// NewHandler wires the discovery worker. repo may be nil when Postgres is not configured.
func NewHandler(config *Config, agentClient *agent.Client, store *cache.Store, repo *repository.CompetitorRepository, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:      config,
		agent:       agentClient,
		cache:       store,
		competitors: repo,
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
	platforms := normalizePlatforms(input.Platforms)
	limit := input.Limit
	if limit <= 0 {
		limit = h.config.DefaultLimit
	}
	if limit > h.config.MaxLimit {
		limit = h.config.MaxLimit
	}

	if input.UseCache {
		if entry, ok := h.cache.LoadCompetitors(ctx, input.WorkspaceID); ok && len(entry.Competitors) > 0 {
			return &Output{
				Competitors:   entry.Competitors,
				Count:         len(entry.Competitors),
				Source:        SourceCache,
				StartAnalysis: true,
			}, nil
		}
	}

	summary := input.BusinessSummary
	if summary == "" {
		summary, _ = h.cache.LoadBusinessSummary(ctx, input.WorkspaceID)
	}

	output := &Output{Source: SourceDiscovery, StartAnalysis: true}
	competitors, err := h.discover(ctx, summary, platforms, input.Location, limit)
	if err != nil {
		h.logger.Warn("discovery degraded to fallback list", map[string]interface{}{
			"error":       err.Error(),
			"workspaceId": input.WorkspaceID,
		})
		reason := "empty"
		if !errors.Is(err, ErrDiscoveryEmpty) {
			reason = "backend_error"
			stdErr := apperrors.NewDiscoveryFailedError(err)
			output.ErrorCode, output.ErrorMessage = string(stdErr.Code), stdErr.Details
		}
		metrics.RecordFallback(TaskType, reason)

		competitors = FallbackCompetitors(platforms)
		output.Source = SourceFallback
		output.FallbackUsed = true
	}

	output.Competitors = competitors
	output.Count = len(competitors)
	h.persist(ctx, input.WorkspaceID, competitors)
	return output, nil
}

func (h *Handler) discover(ctx context.Context, summary string, platforms []string, location string, limit int) ([]models.Competitor, error) {
	resp, err := h.agent.DiscoverCompetitors(ctx, agent.DiscoverRequest{
		BusinessSummary: summary,
		Platforms:       platforms,
		Location:        location,
		Limit:           limit,
	})
	if err != nil {
		return nil, err
	}

	found := MapDiscovered(resp.Competitors)
	if len(found) == 0 {
		return nil, ErrDiscoveryEmpty
	}
	return found, nil
}

// MapDiscovered normalizes backend results: ids are assigned when missing,
// unsupported platforms and duplicate URLs are dropped.
func MapDiscovered(raw []models.Competitor) []models.Competitor {
	now := time.Now().UTC()
	seen := make(map[string]bool, len(raw))
	out := make([]models.Competitor, 0, len(raw))

	for _, c := range raw {
		c.Platform = models.NormalizePlatform(c.Platform)
		c.URL = strings.TrimSpace(c.URL)
		if !models.ValidPlatform(c.Platform) || c.URL == "" {
			continue
		}
		key := strings.ToLower(strings.TrimRight(c.URL, "/"))
		if seen[key] {
			continue
		}
		seen[key] = true

		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if c.Name == "" {
			c.Name = c.URL
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		out = append(out, c)
	}
	return out
}

func normalizePlatforms(in []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, p := range in {
		p = models.NormalizePlatform(p)
		if models.ValidPlatform(p) && !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), models.CompetitorPlatforms...)
	}
	return out
}

// persist writes the hot and durable copies; failures are logged only. It
// runs detached from the job deadline so a fallback list is still stored.
func (h *Handler) persist(ctx context.Context, workspaceID string, competitors []models.Competitor) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if err := h.cache.SaveCompetitors(ctx, workspaceID, competitors); err != nil {
		h.logger.Warn("cache competitors failed", map[string]interface{}{"error": err.Error()})
	}
	if h.competitors == nil {
		return
	}
	if err := h.competitors.ReplaceAll(ctx, workspaceID, competitors); err != nil {
		h.logger.Warn("persist competitors failed", map[string]interface{}{"error": err.Error()})
	}
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
