package searchinsights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"marketing-workers/internal/common/cache"
	apperrors "marketing-workers/internal/common/errors"
	"marketing-workers/internal/common/logger"
	"marketing-workers/internal/common/metrics"
	"marketing-workers/internal/models"
	"marketing-workers/internal/repository"
)

const (
	TaskType = "search-insights"
)

var (
	ErrIndexUnavailable = errors.New("INDEX_UNAVAILABLE")
)

type Handler struct {
	config     *Config
	index      *repository.InsightsIndex
	cache      *cache.Store
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, index *repository.InsightsIndex, store *cache.Store, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		index:      index,
		cache:      store,
		errHandler: apperrors.NewErrorHandler(l),
		logger:     l,
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
	q := repository.InsightQuery{
		WorkspaceID: input.WorkspaceID,
		Query:       strings.TrimSpace(input.Query),
		Platform:    models.NormalizePlatform(input.Platform),
		Limit:       input.Limit,
	}
	if q.Limit <= 0 {
		q.Limit = h.config.DefaultLimit
	}

	res, err := h.search(ctx, q)
	if err == nil {
		return &Output{Hits: res.Hits, Total: res.Total, Took: res.Took, Source: SourceElasticsearch}, nil
	}

	h.logger.Warn("insights search degraded to cache", map[string]interface{}{"error": err.Error()})
	metrics.RecordFallback(TaskType, "index_unavailable")

	start := time.Now()
	hits := h.searchCached(ctx, q)
	stdErr := apperrors.NewSearchFailedError(err)
	return &Output{
		Hits:         hits,
		Total:        int64(len(hits)),
		Took:         time.Since(start).Milliseconds(),
		Source:       SourceCache,
		FallbackUsed: true,
		ErrorCode:    string(stdErr.Code),
		ErrorMessage: stdErr.Details,
	}, nil
}

func (h *Handler) search(ctx context.Context, q repository.InsightQuery) (*repository.InsightResult, error) {
	if h.index == nil {
		return nil, ErrIndexUnavailable
	}
	return h.index.Search(ctx, q)
}

// searchCached filters the last cached analysis in memory. A document scores
// one point per query term its text or competitor names contain.
func (h *Handler) searchCached(ctx context.Context, q repository.InsightQuery) []repository.InsightHit {
	hits := []repository.InsightHit{}
	entry, ok := h.cache.LoadAnalysis(ctx, q.WorkspaceID)
	if !ok || entry.Insights == nil {
		return hits
	}

	terms := strings.Fields(strings.ToLower(q.Query))
	for _, doc := range entry.Insights.Documents(q.WorkspaceID, nil) {
		if q.Platform != "" && doc.Platform != q.Platform {
			continue
		}
		score := 1.0
		if len(terms) > 0 {
			score = matchScore(strings.ToLower(doc.Text), terms)
			if score == 0 {
				continue
			}
		}
		hits = append(hits, repository.InsightHit{InsightDocument: doc, Score: score})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	return hits
}

func matchScore(text string, terms []string) float64 {
	var n float64
	for _, term := range terms {
		if strings.Contains(text, term) {
			n++
		}
	}
	return n
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
