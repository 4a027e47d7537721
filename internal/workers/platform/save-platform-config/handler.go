package saveplatformconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"marketing-workers/internal/common/agent"
	apperrors "marketing-workers/internal/common/errors"
	"marketing-workers/internal/common/logger"
	"marketing-workers/internal/common/metrics"
	"marketing-workers/internal/models"
	"marketing-workers/internal/repository"
)

const (
	TaskType = "save-platform-config"
)

var (
	ErrRemoteNotSaved = errors.New("REMOTE_NOT_SAVED")
)

type Handler struct {
	config     *Config
	agent      *agent.Client
	configs    *repository.PlatformConfigRepository
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, agentClient *agent.Client, repo *repository.PlatformConfigRepository, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		agent:      agentClient,
		configs:    repo,
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
	platform := models.NormalizePlatform(input.Platform)
	output := &Output{Platform: platform, Missing: []string{}}

	if !models.KnownPublishingPlatform(platform) {
		stdErr := apperrors.NewPlatformConfigInvalidError(fmt.Sprintf("unknown platform %q", input.Platform))
		output.ErrorCode = string(stdErr.Code)
		output.ErrorMessage = stdErr.Details
		return output, nil
	}

	cfg := models.PlatformConfig{
		Platform:    platform,
		Credentials: cleanCredentials(input.Credentials),
		Settings:    input.Settings,
		UpdatedAt:   time.Now().UTC(),
	}
	if input.Merge {
		h.mergeStored(ctx, input.WorkspaceID, &cfg)
	}
	cfg.Missing = models.MissingCredentials(platform, cfg.Credentials)
	cfg.Configured = len(cfg.Missing) == 0

	output.Configured = cfg.Configured
	output.Missing = cfg.Missing
	output.Credentials = MaskCredentials(cfg.Credentials)

	output.LocalSaved = h.saveLocal(ctx, input.WorkspaceID, cfg)

	saved, err := h.agent.SavePlatformConfig(ctx, cfg)
	if err == nil && !saved {
		err = ErrRemoteNotSaved
	}
	if err != nil {
		h.logger.Warn("remote platform config save failed", map[string]interface{}{
			"platform": platform,
			"error":    err.Error(),
		})
		metrics.RecordFallback(TaskType, "remote_save_failed")
		stdErr := apperrors.NewExternalServiceError("social", err)
		output.ErrorCode = string(stdErr.Code)
		output.ErrorMessage = stdErr.Details
	}
	output.RemoteSaved = err == nil

	return output, nil
}

// mergeStored fills credentials and settings the input left out from the stored row.
func (h *Handler) mergeStored(ctx context.Context, workspaceID string, cfg *models.PlatformConfig) {
	if h.configs == nil {
		return
	}
	stored, err := h.configs.Get(ctx, workspaceID, cfg.Platform)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			h.logger.Warn("load stored platform config failed", map[string]interface{}{"error": err.Error()})
		}
		return
	}
	for k, v := range stored.Credentials {
		if _, ok := cfg.Credentials[k]; !ok {
			cfg.Credentials[k] = v
		}
	}
	if cfg.Settings == nil {
		cfg.Settings = stored.Settings
	}
}

func (h *Handler) saveLocal(ctx context.Context, workspaceID string, cfg models.PlatformConfig) bool {
	if h.configs == nil {
		return false
	}
	if err := h.configs.Save(ctx, workspaceID, cfg); err != nil {
		h.logger.Warn("store platform config failed", map[string]interface{}{
			"platform": cfg.Platform,
			"error":    err.Error(),
		})
		return false
	}
	return true
}

// cleanCredentials trims values and drops blank ones.
func cleanCredentials(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}

// MaskCredentials keeps the last four characters of values longer than eight.
func MaskCredentials(creds map[string]string) map[string]string {
	if len(creds) == 0 {
		return nil
	}
	out := make(map[string]string, len(creds))
	for k, v := range creds {
		if r := []rune(v); len(r) > 8 {
			out[k] = "****" + string(r[len(r)-4:])
		} else {
			out[k] = "****"
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
