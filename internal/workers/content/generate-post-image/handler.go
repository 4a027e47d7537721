package generatepostimage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"marketing-workers/internal/common/agent"
	"marketing-workers/internal/common/cache"
	apperrors "marketing-workers/internal/common/errors"
	"marketing-workers/internal/common/logger"
	"marketing-workers/internal/common/metrics"
	"marketing-workers/internal/models"
	"marketing-workers/internal/repository"
)

const (
	TaskType = "generate-post-image"
)

var (
	ErrImageAPINotConfigured = errors.New("IMAGE_API_NOT_CONFIGURED")
)

const maxPlaceholderText = 40

type Handler struct {
	config     *Config
	agent      *agent.Client
	cache      *cache.Store
	posts      *repository.PostRepository
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

// NewHandler wires the image worker. store and repo are only used to attach
// the image to postId and may be nil.
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
	prompt := strings.TrimSpace(input.Prompt)
	if prompt == "" {
		return nil, apperrors.NewInvalidInputError("prompt is required")
	}

	dims := DimensionsFor(input.Platform)
	output := &Output{Width: dims.Width, Height: dims.Height, PostID: input.PostID}

	imageURL, err := h.generate(ctx, prompt, dims)
	if err != nil {
		h.logger.Warn("image generation degraded to placeholder", map[string]interface{}{
			"platform": input.Platform,
			"error":    err.Error(),
		})
		metrics.RecordFallback(TaskType, "image_unavailable")
		stdErr := apperrors.NewImageGenerationFailedError(err)
		imageURL = PlaceholderURL(h.config.PlaceholderURL, prompt, dims)
		output.Placeholder = true
		output.FallbackUsed = true
		output.ErrorCode = string(stdErr.Code)
		output.ErrorMessage = stdErr.Details
	}
	output.ImageURL = imageURL

	if input.PostID != "" {
		output.Attached = h.attach(ctx, input.WorkspaceID, input.PostID, imageURL)
	}
	return output, nil
}

func (h *Handler) generate(ctx context.Context, prompt string, dims Dimensions) (string, error) {
	if !h.agent.ImageConfigured() {
		return "", ErrImageAPINotConfigured
	}
	return h.agent.GenerateImage(ctx, agent.ImageRequest{
		Prompt: prompt,
		Width:  dims.Width,
		Height: dims.Height,
	})
}

var errPostNotCached = errors.New("post not in cached list")

// attach sets the image on the cached post and its Postgres row. The cached
// list is patched in one transaction; a missing list is left for the next
// reader to rebuild from Postgres.
func (h *Handler) attach(ctx context.Context, workspaceID, postID, imageURL string) bool {
	attached := false
	if h.cache != nil {
		_, err := h.cache.UpdatePosts(ctx, workspaceID, func(posts []models.SocialMediaPost, found bool) ([]models.SocialMediaPost, error) {
			for i := range posts {
				if posts[i].ID == postID {
					posts[i].ImageURL = imageURL
					posts[i].UpdatedAt = time.Now().UTC()
					return posts, nil
				}
			}
			return nil, errPostNotCached
		})
		switch {
		case err == nil:
			attached = true
		case !errors.Is(err, errPostNotCached):
			h.logger.Warn("cache posts failed", map[string]interface{}{"error": err.Error()})
		}
	}

	if h.posts != nil {
		post, err := h.posts.Get(ctx, workspaceID, postID)
		if err == nil {
			post.ImageURL = imageURL
			err = h.posts.Update(ctx, workspaceID, *post)
		}
		if err == nil {
			attached = true
		} else if !errors.Is(err, repository.ErrNotFound) {
			h.logger.Warn("attach image in postgres failed", map[string]interface{}{
				"postId": postID,
				"error":  err.Error(),
			})
		}
	}
	return attached
}

// DimensionsFor returns the recommended image size for a platform.
func DimensionsFor(platform string) Dimensions {
	if d, ok := platformDimensions[models.NormalizePlatform(platform)]; ok {
		return d
	}
	return defaultDimensions
}

// PlaceholderURL is deterministic in base, prompt and dims.
func PlaceholderURL(base, prompt string, dims Dimensions) string {
	text := strings.Join(strings.Fields(prompt), " ")
	if r := []rune(text); len(r) > maxPlaceholderText {
		text = strings.TrimSpace(string(r[:maxPlaceholderText]))
	}
	return fmt.Sprintf("%s/%dx%d?text=%s",
		strings.TrimRight(base, "/"), dims.Width, dims.Height, url.QueryEscape(text))
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
