package managecompetitors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	"marketing-workers/internal/common/cache"
	apperrors "marketing-workers/internal/common/errors"
	httpc "marketing-workers/internal/common/http"
	"marketing-workers/internal/common/logger"
	"marketing-workers/internal/common/metrics"
	"marketing-workers/internal/models"
	"marketing-workers/internal/repository"
)

const (
	TaskType = "manage-competitors"
)

type Handler struct {
	config      *Config
	cache       *cache.Store
	competitors *repository.CompetitorRepository
	pages       *httpc.Client
	errHandler  *apperrors.ErrorHandler
	logger      logger.Logger
}

func NewHandler(config *Config, store *cache.Store, repo *repository.CompetitorRepository, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:      config,
		cache:       store,
		competitors: repo,
		pages:       httpc.NewClient(config.MetadataTimeout, 0),
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
	action := strings.ToLower(strings.TrimSpace(input.Action))
	output := &Output{Action: action}

	var (
		list []models.Competitor
		err  error
	)
	switch action {
	case ActionList:
		list = h.load(ctx, input.WorkspaceID)
	case ActionAdd:
		if input.Competitor == nil {
			return nil, apperrors.NewInvalidInputError("competitor is required for add")
		}
		list, err = h.add(ctx, input.WorkspaceID, *input.Competitor, output)
	case ActionRemove:
		if input.CompetitorID == "" {
			return nil, apperrors.NewInvalidInputError("competitorId is required for remove")
		}
		list, err = h.remove(ctx, input.WorkspaceID, input.CompetitorID)
		output.Removed = err == nil
	default:
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unknown action %q", input.Action))
	}
	if err != nil {
		setError(output, err)
		list = h.load(ctx, input.WorkspaceID)
	}

	output.Competitors = list
	output.Count = len(list)
	return output, nil
}

// load prefers the hot copy and falls back to Postgres.
func (h *Handler) load(ctx context.Context, workspaceID string) []models.Competitor {
	if entry, ok := h.cache.LoadCompetitors(ctx, workspaceID); ok {
		return entry.Competitors
	}
	return h.loadDurable(ctx, workspaceID)
}

func (h *Handler) loadDurable(ctx context.Context, workspaceID string) []models.Competitor {
	if h.competitors != nil {
		list, err := h.competitors.List(ctx, workspaceID)
		if err == nil {
			return list
		}
		h.logger.Warn("load competitors from postgres failed", map[string]interface{}{"error": err.Error()})
	}
	return []models.Competitor{}
}

// mutate applies fn to the workspace list in one cache transaction, seeding a
// missing entry from Postgres. With Redis down fn runs on the durable copy and
// the cache is left alone.
func (h *Handler) mutate(ctx context.Context, workspaceID string, fn func([]models.Competitor) ([]models.Competitor, error)) ([]models.Competitor, error) {
	list, err := h.cache.UpdateCompetitors(ctx, workspaceID, func(cur []models.Competitor, found bool) ([]models.Competitor, error) {
		if !found {
			cur = h.loadDurable(ctx, workspaceID)
		}
		return fn(append([]models.Competitor(nil), cur...))
	})
	if err == nil {
		return list, nil
	}
	if _, ok := apperrors.AsStandardError(err); ok {
		return nil, err
	}
	h.logger.Warn("cache competitors failed", map[string]interface{}{"error": err.Error()})
	return fn(h.loadDurable(ctx, workspaceID))
}

func (h *Handler) add(ctx context.Context, workspaceID string, in CompetitorInput, output *Output) ([]models.Competitor, error) {
	rawURL := strings.TrimSpace(in.URL)
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("invalid competitor url %q", in.URL))
	}
	platform := models.NormalizePlatform(in.Platform)
	if !models.ValidPlatform(platform) {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unsupported platform %q", in.Platform))
	}

	key := urlKey(rawURL)
	c := models.Competitor{
		ID:        uuid.NewString(),
		URL:       rawURL,
		Platform:  platform,
		Name:      strings.TrimSpace(in.Name),
		Metadata:  &models.DiscoveryMetadata{DiscoveryMethod: "manual"},
		CreatedAt: time.Now().UTC(),
	}
	if c.Name == "" && findURL(h.load(ctx, workspaceID), key) < 0 {
		c.Name = h.resolveName(ctx, rawURL, c.Metadata)
	}

	var added models.Competitor
	duplicate := false
	list, err := h.mutate(ctx, workspaceID, func(cur []models.Competitor) ([]models.Competitor, error) {
		if i := findURL(cur, key); i >= 0 {
			added, duplicate = cur[i], true
			return cur, nil
		}
		if c.Name == "" {
			c.Name = NameFromURL(rawURL)
		}
		added, duplicate = c, false
		return append(cur, c), nil
	})
	if err != nil {
		return nil, err
	}

	output.Added, output.Duplicate = &added, duplicate
	if !duplicate && h.competitors != nil {
		if err := h.competitors.Upsert(ctx, workspaceID, added); err != nil {
			h.logger.Warn("persist competitor failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return list, nil
}

func (h *Handler) resolveName(ctx context.Context, rawURL string, meta *models.DiscoveryMetadata) string {
	if h.config.FetchMetadata {
		fetchCtx, cancel := context.WithTimeout(ctx, h.config.MetadataTimeout)
		defer cancel()
		page, err := FetchPageMetadata(fetchCtx, h.pages, rawURL)
		if err == nil && page.Title != "" {
			meta.Description = page.Description
			return page.Title
		}
		if err != nil {
			h.logger.Debug("page metadata unavailable", map[string]interface{}{"url": rawURL, "error": err.Error()})
		}
	}
	return NameFromURL(rawURL)
}

func (h *Handler) remove(ctx context.Context, workspaceID, id string) ([]models.Competitor, error) {
	list, err := h.mutate(ctx, workspaceID, func(cur []models.Competitor) ([]models.Competitor, error) {
		for i, c := range cur {
			if c.ID == id {
				return append(cur[:i:i], cur[i+1:]...), nil
			}
		}
		return nil, apperrors.NewCompetitorNotFoundError(id)
	})
	if err != nil {
		return nil, err
	}

	if h.competitors != nil {
		if _, err := h.competitors.Delete(ctx, workspaceID, id); err != nil {
			h.logger.Warn("delete competitor failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return list, nil
}

func findURL(list []models.Competitor, key string) int {
	for i := range list {
		if urlKey(list[i].URL) == key {
			return i
		}
	}
	return -1
}

func urlKey(raw string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(raw), "/"))
}

func setError(output *Output, err error) {
	stdErr := apperrors.Normalize(err)
	output.ErrorCode = string(stdErr.Code)
	output.ErrorMessage = stdErr.Details
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
