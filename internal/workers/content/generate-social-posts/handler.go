package generatesocialposts

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
	"golang.org/x/sync/errgroup"

	"marketing-workers/internal/common/agent"
	"marketing-workers/internal/common/cache"
	apperrors "marketing-workers/internal/common/errors"
	"marketing-workers/internal/common/gemini"
	"marketing-workers/internal/common/logger"
	"marketing-workers/internal/common/metrics"
	"marketing-workers/internal/content"
	"marketing-workers/internal/models"
	"marketing-workers/internal/repository"
)

const (
	TaskType = "generate-social-posts"
)

var (
	ErrNoPostsGenerated   = errors.New("NO_POSTS_GENERATED")
	ErrGeminiNotAvailable = errors.New("GEMINI_NOT_AVAILABLE")
)

const persistTimeout = 5 * time.Second

const geminiSystemPrompt = "You write short, on-brand social media posts. " +
	"Return only posts for the requested platform, without hashtags inside the content."

type Handler struct {
	config     *Config
	agent      *agent.Client
	gemini     *gemini.Client
	cache      *cache.Store
	posts      *repository.PostRepository
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

// NewHandler wires the post generator. geminiClient and repo may be nil.
func NewHandler(config *Config, agentClient *agent.Client, geminiClient *gemini.Client, store *cache.Store, repo *repository.PostRepository, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		agent:      agentClient,
		gemini:     geminiClient,
		cache:      store,
		posts:      repo,
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
	platforms := h.platforms(input.Platforms)
	if len(platforms) == 0 {
		return nil, apperrors.NewInvalidInputError("no supported platform requested")
	}
	count := input.Count
	if count <= 0 {
		count = h.config.DefaultCount
	}
	capped := count > h.config.MaxCount
	if capped {
		h.logger.Warn("requested post count capped", map[string]interface{}{
			"requested": count,
			"max":       h.config.MaxCount,
		})
		count = h.config.MaxCount
	}

	var (
		generated []models.SocialMediaPost
		source    string
		err       error
	)
	if input.UseGemini {
		source = SourceGemini
		generated, err = h.generateWithGemini(ctx, input, platforms, count)
	} else {
		source = SourceAgent
		generated, err = h.generateWithAgent(ctx, input, platforms, count)
	}
	if err == nil && len(generated) == 0 {
		err = ErrNoPostsGenerated
	}

	output := &Output{Source: source, Capped: capped}
	if capped {
		output.RequestedCount = input.Count
	}
	if err != nil {
		h.logger.Warn("post generation degraded to templates", map[string]interface{}{
			"source": source,
			"error":  err.Error(),
		})
		metrics.RecordFallback(TaskType, "generation_failed")
		stdErr := apperrors.NewPostGenerationFailedError(err)
		output.Source = SourceTemplate
		output.FallbackUsed = true
		output.ErrorCode = string(stdErr.Code)
		output.ErrorMessage = stdErr.Details
		generated = nil
	}

	output.Posts = Normalize(generated, platforms, count, input.Topic, input.Tone)
	output.Count = len(output.Posts)

	h.persist(ctx, input.WorkspaceID, output.Posts)
	return output, nil
}

func (h *Handler) platforms(requested []string) []string {
	if len(requested) == 0 {
		requested = h.config.DefaultPlatforms
	}
	seen := map[string]bool{}
	out := []string{}
	for _, p := range requested {
		p = models.NormalizePlatform(p)
		if p == "" || seen[p] {
			continue
		}
		if _, ok := models.RequiredCredentials[p]; !ok {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func (h *Handler) generateWithAgent(ctx context.Context, input *Input, platforms []string, count int) ([]models.SocialMediaPost, error) {
	req := agent.GenerateRequest{
		Platforms: platforms,
		Count:     count,
		Topic:     input.Topic,
		Tone:      input.Tone,
	}
	if summary, ok := h.cache.LoadBusinessSummary(ctx, input.WorkspaceID); ok {
		req.BusinessSummary = summary
	}
	if identity, ok := h.cache.LoadBrandIdentity(ctx, input.WorkspaceID); ok {
		req.BrandIdentity = identity
	}
	if entry, ok := h.cache.LoadAnalysis(ctx, input.WorkspaceID); ok {
		req.Insights = entry.Insights
	}

	resp, err := h.agent.GeneratePosts(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Posts, nil
}

// generateWithGemini asks for each platform's share of count concurrently.
func (h *Handler) generateWithGemini(ctx context.Context, input *Input, platforms []string, count int) ([]models.SocialMediaPost, error) {
	if h.gemini == nil {
		return nil, ErrGeminiNotAvailable
	}

	shares := SplitCount(count, len(platforms))
	results := make([][]models.SocialMediaPost, len(platforms))

	g, gctx := errgroup.WithContext(ctx)
	for i, platform := range platforms {
		if shares[i] == 0 {
			continue
		}
		i, platform := i, platform
		g.Go(func() error {
			var out geminiPosts
			prompt := geminiPrompt(platform, shares[i], input.Topic, input.Tone)
			if err := h.gemini.GenerateJSON(gctx, geminiSystemPrompt, prompt, gemini.PostsSchema(), &out); err != nil {
				return fmt.Errorf("%s: %w", platform, err)
			}
			for _, p := range out.Posts {
				results[i] = append(results[i], models.SocialMediaPost{
					Platform: platform,
					Content:  p.Content,
					Hashtags: p.Hashtags,
				})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var posts []models.SocialMediaPost
	for _, r := range results {
		posts = append(posts, r...)
	}
	return posts, nil
}

func geminiPrompt(platform string, n int, topic, tone string) string {
	if topic == "" {
		topic = "our business"
	}
	if tone == "" {
		tone = "friendly"
	}
	return fmt.Sprintf("Write %d %s posts about %s in a %s tone.", n, platform, topic, tone)
}

// SplitCount spreads count across n platforms, earlier platforms taking the remainder.
func SplitCount(count, n int) []int {
	shares := make([]int, n)
	for i := 0; i < count; i++ {
		shares[i%n]++
	}
	return shares
}

// Normalize returns exactly count posts: blanks and posts for platforms that
// were not requested are dropped, extras truncated and the shortfall topped up
// with templated posts across platforms.
func Normalize(posts []models.SocialMediaPost, platforms []string, count int, topic, tone string) []models.SocialMediaPost {
	now := time.Now().UTC()
	out := make([]models.SocialMediaPost, 0, count)
	requested := make(map[string]bool, len(platforms))
	for _, p := range platforms {
		requested[p] = true
	}

	for _, p := range posts {
		if len(out) == count {
			break
		}
		if strings.TrimSpace(p.Content) == "" {
			continue
		}
		p.Platform = models.NormalizePlatform(p.Platform)
		if p.Platform == "" {
			p.Platform = platforms[len(out)%len(platforms)]
		}
		if !requested[p.Platform] {
			continue
		}
		out = append(out, p)
	}

	for n := 0; len(out) < count; n++ {
		platform := platforms[len(out)%len(platforms)]
		out = append(out, content.TemplatePost(platform, topic, tone, n/len(platforms)))
	}

	for i := range out {
		p := &out[i]
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		p.Status = models.PostStatusDraft
		p.Hashtags = trimHashtags(p.Hashtags)
		if p.EngagementPrediction == nil {
			p.EngagementPrediction = content.PredictEngagement(*p)
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		p.UpdatedAt = now
	}
	return out
}

func trimHashtags(tags []string) []string {
	out := []string{}
	for _, t := range tags {
		t = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t), "#"))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// persist inserts the new posts in Postgres and appends them to the cached
// list. A missing list is rebuilt from Postgres first; an unreadable one is left
// alone. It runs detached from the job deadline so a slow generation still
// stores its posts.
func (h *Handler) persist(ctx context.Context, workspaceID string, posts []models.SocialMediaPost) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if h.posts != nil {
		for _, p := range posts {
			if err := h.posts.Insert(ctx, workspaceID, p); err != nil {
				h.logger.Warn("failed to store post", map[string]interface{}{
					"postId": p.ID,
					"error":  err.Error(),
				})
			}
		}
	}

	_, err := h.cache.UpdatePosts(ctx, workspaceID, func(existing []models.SocialMediaPost, found bool) ([]models.SocialMediaPost, error) {
		if !found && h.posts != nil {
			durable, err := h.posts.ListByWorkspace(ctx, workspaceID)
			if err != nil {
				return nil, fmt.Errorf("seed posts from postgres: %w", err)
			}
			existing = durable
		}
		return appendNew(existing, posts), nil
	})
	if err != nil {
		h.logger.Warn("failed to cache posts", map[string]interface{}{"error": err.Error()})
	}
}

// appendNew appends the posts whose ids are not in list yet.
func appendNew(list, posts []models.SocialMediaPost) []models.SocialMediaPost {
	seen := make(map[string]bool, len(list))
	out := make([]models.SocialMediaPost, 0, len(list)+len(posts))
	for _, p := range list {
		seen[p.ID] = true
		out = append(out, p)
	}
	for _, p := range posts {
		if !seen[p.ID] {
			out = append(out, p)
		}
	}
	return out
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
