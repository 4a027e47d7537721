package assessviability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"marketing-workers/internal/common/agent"
	"marketing-workers/internal/common/cache"
	apperrors "marketing-workers/internal/common/errors"
	"marketing-workers/internal/common/gemini"
	"marketing-workers/internal/common/logger"
	"marketing-workers/internal/common/metrics"
	"marketing-workers/internal/parsers"
)

const (
	TaskType = "assess-viability"
)

var (
	ErrNoSourceText       = errors.New("NO_SOURCE_TEXT")
	ErrGeminiNotAvailable = errors.New("GEMINI_NOT_AVAILABLE")
)

const geminiSystemPrompt = "You are a business analyst. Assess the financial, market and legal " +
	"viability of the business idea. Use USD amounts and percentages as plain numbers."

type Handler struct {
	config     *Config
	agent      *agent.Client
	gemini     *gemini.Client
	cache      *cache.Store
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

// NewHandler wires the viability worker. geminiClient may be nil.
func NewHandler(config *Config, agentClient *agent.Client, geminiClient *gemini.Client, store *cache.Store, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		agent:      agentClient,
		gemini:     geminiClient,
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

	var (
		text   string
		source string
		err    error
	)

	if input.UseGemini {
		text, err = h.askGemini(ctx, input)
		if err == nil {
			source = SourceGemini
		} else {
			h.logger.Warn("gemini assessment unavailable, using text sources", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	if source == "" {
		text, source, err = h.sourceText(ctx, input)
	}

	output := &Output{Source: source}
	vd, report := parsers.ParseViability(text)
	if source == SourceGemini {
		report = geminiReport(report)
	}

	if vd.Simulated {
		if err == nil {
			err = apperrors.NewParseFailedError("viability", errors.New(strings.Join(report.Errors, "; ")))
		}
		h.logger.Warn("viability degraded to default assessment", map[string]interface{}{
			"source": source,
			"error":  err.Error(),
		})
		metrics.RecordFallback(TaskType, "unparseable")
		stdErr := apperrors.Normalize(err)
		output.Source = SourceDefault
		output.FallbackUsed = true
		output.ErrorCode = string(stdErr.Code)
		output.ErrorMessage = stdErr.Details
	}
	output.Viability = vd
	output.Report = report

	if !vd.Simulated {
		if err := h.cache.SaveViability(ctx, input.WorkspaceID, vd, text); err != nil {
			h.logger.Warn("failed to cache viability", map[string]interface{}{"error": err.Error()})
		}
	}
	return output, nil
}

// sourceText resolves the assessment text: input, then the agent's latest
// output, then the cached raw text.
func (h *Handler) sourceText(ctx context.Context, input *Input) (string, string, error) {
	if strings.TrimSpace(input.RawText) != "" {
		return input.RawText, SourceInput, nil
	}

	agentName := input.Agent
	if agentName == "" {
		agentName = h.config.DefaultAgent
	}
	text, agentErr := h.agent.AgentOutput(ctx, agentName)
	if agentErr == nil && strings.TrimSpace(text) != "" {
		return text, SourceAgent, nil
	}
	if agentErr != nil {
		h.logger.Warn("agent output unavailable", map[string]interface{}{
			"agent": agentName,
			"error": agentErr.Error(),
		})
	}

	if entry, ok := h.cache.LoadViability(ctx, input.WorkspaceID); ok && strings.TrimSpace(entry.RawText) != "" {
		return entry.RawText, SourceCache, nil
	}

	if agentErr != nil {
		return "", "", apperrors.NewExternalServiceError("agent", agentErr)
	}
	return "", "", apperrors.NewParseFailedError("viability", ErrNoSourceText)
}

// askGemini returns the model's JSON document as text so it goes through the
// same schema validation as any other source.
func (h *Handler) askGemini(ctx context.Context, input *Input) (string, error) {
	if h.gemini == nil {
		return "", ErrGeminiNotAvailable
	}
	idea := strings.TrimSpace(input.BusinessIdea)
	if idea == "" {
		if summary, ok := h.cache.LoadBusinessSummary(ctx, input.WorkspaceID); ok {
			idea = summary
		}
	}
	if idea == "" && strings.TrimSpace(input.RawText) == "" {
		return "", fmt.Errorf("%w: no business idea", ErrNoSourceText)
	}

	prompt := "Business idea: " + idea
	if input.RawText != "" {
		prompt += "\n\nExisting analysis:\n" + input.RawText
	}

	var doc json.RawMessage
	if err := h.gemini.GenerateJSON(ctx, geminiSystemPrompt, prompt, gemini.ViabilitySchema(), &doc); err != nil {
		return "", err
	}
	return string(doc), nil
}

func geminiReport(r parsers.Report) parsers.Report {
	relabel := func(m parsers.Method) parsers.Method {
		if m == parsers.MethodJSON {
			return parsers.MethodGemini
		}
		return m
	}
	r.Financial, r.Market, r.Legal = relabel(r.Financial), relabel(r.Market), relabel(r.Legal)
	return r
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
