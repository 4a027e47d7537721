package sendnotification

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

	apperrors "marketing-workers/internal/common/errors"
	"marketing-workers/internal/common/logger"
	"marketing-workers/internal/common/metrics"
	"marketing-workers/internal/models"
)

const (
	TaskType = "send-notification"
)

var (
	ErrNotificationSendFailed = errors.New("NOTIFICATION_SEND_FAILED")
)

// EmailSender is satisfied by *aws.SESClient.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, text, html string) (string, error)
}

// SMSSender is satisfied by *aws.SNSClient.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) (string, error)
}

type Handler struct {
	config     *Config
	email      EmailSender
	sms        SMSSender
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

// NewHandler wires the notifier. A nil sender disables its channel.
func NewHandler(config *Config, email EmailSender, sms SMSSender, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		email:      email,
		sms:        sms,
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
	tmpl, ok := templates[input.NotificationType]
	if !ok {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("no template for notification type %q", input.NotificationType))
	}
	severity := strings.ToLower(strings.TrimSpace(input.Severity))
	switch severity {
	case "":
		severity = SeverityInfo
	case SeverityInfo, SeverityWarning, SeverityError:
	default:
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unknown severity %q", input.Severity))
	}

	data := map[string]interface{}{
		"notificationType": input.NotificationType,
		"severity":         severity,
		"workspaceId":      input.WorkspaceID,
	}
	for k, v := range input.Metadata {
		data[k] = v
	}
	subject := renderTemplate(tmpl.Subject, data)
	body := renderTemplate(tmpl.Body, data)
	htmlBody := renderHTML(subject, body)
	if tmpl.HTMLBody != "" {
		htmlBody = renderTemplate(tmpl.HTMLBody, data)
	}

	notificationID := uuid.New().String()
	sentAt := time.Now().UTC().Format(time.RFC3339)
	base := models.Notification{
		ID:       notificationID,
		Type:     input.NotificationType,
		Severity: severity,
		Payload:  input.Metadata,
	}

	var deliveries []models.Notification
	if input.RecipientEmail != "" {
		d := base
		d.Channel, d.RecipientEmail = ChannelEmail, input.RecipientEmail
		d.Status = h.deliver(ChannelEmail, h.config.EmailEnabled && h.email != nil, func() (string, error) {
			return h.email.SendEmail(ctx, input.RecipientEmail, subject, body, htmlBody)
		})
		deliveries = append(deliveries, stamp(d, sentAt))
	}
	// SMS is reserved for errors.
	if input.RecipientPhone != "" {
		d := base
		d.Channel, d.RecipientPhone = ChannelSMS, input.RecipientPhone
		if severity != SeverityError {
			d.Status = StatusSkipped
		} else {
			d.Status = h.deliver(ChannelSMS, h.config.SMSEnabled && h.sms != nil, func() (string, error) {
				return h.sms.SendSMS(ctx, input.RecipientPhone, subject+": "+body)
			})
		}
		deliveries = append(deliveries, stamp(d, sentAt))
	}

	output := &Output{
		NotificationID: notificationID,
		Status:         overallStatus(deliveries),
		Subject:        subject,
		Deliveries:     deliveries,
		SentAt:         sentAt,
	}
	if output.Deliveries == nil {
		output.Deliveries = []models.Notification{}
	}
	if output.Status == StatusFailed {
		stdErr := apperrors.NewNotificationSendFailedError(failedChannels(deliveries), ErrNotificationSendFailed)
		output.ErrorCode = string(stdErr.Code)
		output.ErrorMessage = stdErr.Details
	}
	return output, nil
}

func (h *Handler) deliver(channel string, enabled bool, send func() (string, error)) string {
	if !enabled {
		return StatusDisabled
	}
	messageID, err := send()
	if err != nil {
		h.logger.Error("notification send failed", map[string]interface{}{
			"channel": channel,
			"error":   err.Error(),
		})
		metrics.RecordFallback(TaskType, channel+"_failed")
		return StatusFailed
	}
	h.logger.Info("notification sent", map[string]interface{}{
		"channel":   channel,
		"messageId": messageID,
	})
	return StatusSent
}

func stamp(d models.Notification, sentAt string) models.Notification {
	if d.Status == StatusSent {
		d.SentAt = sentAt
	}
	return d
}

// overallStatus is sent when any channel delivered, failed when one was
// attempted and none delivered, disabled otherwise.
func overallStatus(deliveries []models.Notification) string {
	status := StatusDisabled
	for _, d := range deliveries {
		switch d.Status {
		case StatusSent:
			return StatusSent
		case StatusFailed:
			status = StatusFailed
		}
	}
	return status
}

func failedChannels(deliveries []models.Notification) string {
	var out []string
	for _, d := range deliveries {
		if d.Status == StatusFailed {
			out = append(out, d.Channel)
		}
	}
	return strings.Join(out, ",")
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
