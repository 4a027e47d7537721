package managesocialpost

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
	"marketing-workers/internal/content"
	"marketing-workers/internal/models"
	"marketing-workers/internal/repository"
)

const (
	TaskType = "manage-social-post"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

type Handler struct {
	config     *Config
	agent      *agent.Client
	cache      *cache.Store
	posts      *repository.PostRepository
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, agentClient *agent.Client, store *cache.Store, repo *repository.PostRepository, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		agent:      agentClient,
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
	action := strings.ToLower(strings.TrimSpace(input.Action))
	switch action {
	case ActionCompose:
		if input.Post == nil {
			return nil, apperrors.NewInvalidInputError("post is required for compose")
		}
	case ActionRegenerate, ActionReschedule, ActionCancel, ActionPublish:
		if input.PostID == "" {
			return nil, apperrors.NewInvalidInputError(fmt.Sprintf("postId is required for %s", action))
		}
	default:
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unknown action %q", input.Action))
	}

	output := &Output{Action: action}

	if action == ActionCompose {
		post, list, err := h.compose(ctx, input)
		if err != nil {
			setError(output, err)
			list = h.load(ctx, input.WorkspaceID)
		}
		output.Post = post
		return finish(output, list), nil
	}

	snapshot := h.load(ctx, input.WorkspaceID)
	idx := indexOf(snapshot, input.PostID)
	if idx < 0 {
		setError(output, apperrors.NewPostNotFoundError(input.PostID))
		return finish(output, snapshot), nil
	}
	post := snapshot[idx]

	switch action {
	case ActionRegenerate:
		post = h.regenerate(ctx, post, input.Instructions, output)
	case ActionReschedule:
		if err := validateSchedule(input.ScheduledDate, input.ScheduledTime); err != nil {
			setError(output, err)
			output.Post = &post
			return finish(output, snapshot), nil
		}
		post.ScheduledDate, post.ScheduledTime = input.ScheduledDate, input.ScheduledTime
		post.Status = models.PostStatusScheduled
		post.UpdatedAt = time.Now().UTC()
		output.RemoteScheduled = h.schedule(ctx, post)
	case ActionCancel:
		list, err := h.mutate(ctx, input.WorkspaceID, func(cur []models.SocialMediaPost) ([]models.SocialMediaPost, error) {
			i := indexOf(cur, post.ID)
			if i < 0 {
				return nil, apperrors.NewPostNotFoundError(post.ID)
			}
			return append(cur[:i:i], cur[i+1:]...), nil
		})
		if err != nil {
			setError(output, err)
			return finish(output, h.load(ctx, input.WorkspaceID)), nil
		}
		h.cancelStored(ctx, input.WorkspaceID, post.ID)
		post.Status = models.PostStatusCancelled
		output.Post = &post
		output.Removed = true
		return finish(output, list), nil
	case ActionPublish:
		post = h.publish(ctx, post, output)
	}

	output.Post = &post
	list, err := h.mutate(ctx, input.WorkspaceID, func(cur []models.SocialMediaPost) ([]models.SocialMediaPost, error) {
		i := indexOf(cur, post.ID)
		if i < 0 {
			return nil, apperrors.NewPostNotFoundError(post.ID)
		}
		cur[i] = post
		return cur, nil
	})
	if err != nil {
		setError(output, err)
		return finish(output, h.load(ctx, input.WorkspaceID)), nil
	}
	h.store(ctx, input.WorkspaceID, post)
	return finish(output, list), nil
}

func finish(output *Output, list []models.SocialMediaPost) *Output {
	output.Posts = list
	output.Count = len(list)
	return output
}

func (h *Handler) compose(ctx context.Context, input *Input) (*models.SocialMediaPost, []models.SocialMediaPost, error) {
	post := *input.Post
	post.Content = strings.TrimSpace(post.Content)
	if post.Content == "" {
		return nil, nil, apperrors.NewInvalidInputError("post content is empty")
	}
	post.Platform = models.NormalizePlatform(post.Platform)
	if !models.KnownPublishingPlatform(post.Platform) {
		return nil, nil, apperrors.NewInvalidInputError(fmt.Sprintf("unsupported platform %q", input.Post.Platform))
	}
	if post.ScheduledDate != "" || post.ScheduledTime != "" {
		if err := validateSchedule(post.ScheduledDate, post.ScheduledTime); err != nil {
			return nil, nil, err
		}
		post.Status = models.PostStatusScheduled
	} else {
		post.Status = models.PostStatusDraft
	}

	now := time.Now().UTC()
	post.ID = uuid.NewString()
	post.Custom = true
	post.CreatedAt, post.UpdatedAt = now, now
	if post.Hashtags == nil {
		post.Hashtags = []string{}
	}
	if post.EngagementPrediction == nil {
		post.EngagementPrediction = content.PredictEngagement(post)
	}

	list, err := h.mutate(ctx, input.WorkspaceID, func(cur []models.SocialMediaPost) ([]models.SocialMediaPost, error) {
		return append(cur, post), nil
	})
	if err != nil {
		return nil, nil, err
	}
	h.store(ctx, input.WorkspaceID, post)
	return &post, list, nil
}

// regenerate keeps id, platform and schedule; only the text changes. A
// backend failure appends a canned variation instead.
func (h *Handler) regenerate(ctx context.Context, post models.SocialMediaPost, instructions string, output *Output) models.SocialMediaPost {
	fresh, err := h.agent.RegeneratePost(ctx, post, instructions)
	if err == nil && strings.TrimSpace(fresh.Content) != "" {
		post.Content = fresh.Content
		if fresh.Hashtags != nil {
			post.Hashtags = fresh.Hashtags
		}
		if fresh.EngagementPrediction != nil {
			post.EngagementPrediction = fresh.EngagementPrediction
		}
		post.UpdatedAt = time.Now().UTC()
		return post
	}
	if err == nil {
		err = errors.New("backend returned empty content")
	}

	h.logger.Warn("regenerate degraded to variation", map[string]interface{}{
		"postId": post.ID,
		"error":  err.Error(),
	})
	metrics.RecordFallback(TaskType, "regenerate_failed")
	setError(output, apperrors.NewPostGenerationFailedError(err))
	output.FallbackUsed = true

	post = content.Variation(post, strings.Count(post.Content, "\n\n"))
	post.UpdatedAt = time.Now().UTC()
	return post
}

// schedule forwards the slot to the social backend. The local schedule stands
// either way.
func (h *Handler) schedule(ctx context.Context, post models.SocialMediaPost) bool {
	if err := h.agent.SchedulePost(ctx, post); err != nil {
		h.logger.Warn("remote schedule failed", map[string]interface{}{
			"postId": post.ID,
			"error":  err.Error(),
		})
		return false
	}
	return true
}

// publish leaves the status untouched when the backend rejects the post.
func (h *Handler) publish(ctx context.Context, post models.SocialMediaPost, output *Output) models.SocialMediaPost {
	res, err := h.agent.PublishPost(ctx, post)
	if err != nil {
		h.logger.Warn("publish failed", map[string]interface{}{
			"postId":   post.ID,
			"platform": post.Platform,
			"error":    err.Error(),
		})
		setError(output, apperrors.NewPublishFailedError(post.Platform, err))
		return post
	}

	post.Status = models.PostStatusPublished
	post.UpdatedAt = time.Now().UTC()
	output.Published = true
	output.PublishResult = res
	return post
}

func validateSchedule(date, clock string) error {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return apperrors.NewInvalidInputError(fmt.Sprintf("scheduledDate %q is not YYYY-MM-DD", date))
	}
	if _, err := time.Parse(timeLayout, clock); err != nil {
		return apperrors.NewInvalidInputError(fmt.Sprintf("scheduledTime %q is not HH:MM", clock))
	}
	return nil
}

// load prefers the hot copy and falls back to Postgres.
func (h *Handler) load(ctx context.Context, workspaceID string) []models.SocialMediaPost {
	if posts, ok := h.cache.LoadPosts(ctx, workspaceID); ok && posts != nil {
		return posts
	}
	return h.loadDurable(ctx, workspaceID)
}

func (h *Handler) loadDurable(ctx context.Context, workspaceID string) []models.SocialMediaPost {
	if h.posts != nil {
		posts, err := h.posts.ListByWorkspace(ctx, workspaceID)
		if err == nil {
			return posts
		}
		h.logger.Warn("load posts from postgres failed", map[string]interface{}{"error": err.Error()})
	}
	return []models.SocialMediaPost{}
}

// mutate applies fn to the workspace list in one cache transaction, seeding a
// missing entry from Postgres. With Redis down fn runs on the durable copy and
// the cache is left alone.
func (h *Handler) mutate(ctx context.Context, workspaceID string, fn func([]models.SocialMediaPost) ([]models.SocialMediaPost, error)) ([]models.SocialMediaPost, error) {
	list, err := h.cache.UpdatePosts(ctx, workspaceID, func(cur []models.SocialMediaPost, found bool) ([]models.SocialMediaPost, error) {
		if !found || cur == nil {
			cur = h.loadDurable(ctx, workspaceID)
		}
		return fn(append([]models.SocialMediaPost(nil), cur...))
	})
	if err == nil {
		return list, nil
	}
	if _, ok := apperrors.AsStandardError(err); ok {
		return nil, err
	}
	h.logger.Warn("cache posts failed", map[string]interface{}{"error": err.Error()})
	return fn(h.loadDurable(ctx, workspaceID))
}

// store updates the durable row, inserting it when Postgres has not seen the post.
func (h *Handler) store(ctx context.Context, workspaceID string, post models.SocialMediaPost) {
	if h.posts == nil {
		return
	}
	err := h.posts.Update(ctx, workspaceID, post)
	if errors.Is(err, repository.ErrNotFound) {
		err = h.posts.Insert(ctx, workspaceID, post)
	}
	if err != nil {
		h.logger.Warn("persist post failed", map[string]interface{}{
			"postId": post.ID,
			"error":  err.Error(),
		})
	}
}

func (h *Handler) cancelStored(ctx context.Context, workspaceID, id string) {
	if h.posts == nil {
		return
	}
	err := h.posts.UpdateStatus(ctx, workspaceID, id, models.PostStatusCancelled)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		h.logger.Warn("cancel post in postgres failed", map[string]interface{}{
			"postId": id,
			"error":  err.Error(),
		})
	}
}

func indexOf(list []models.SocialMediaPost, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
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
