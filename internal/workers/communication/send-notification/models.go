package sendnotification

import "marketing-workers/internal/models"

type Input struct {
	WorkspaceID      string                 `json:"workspaceId,omitempty"`
	RecipientEmail   string                 `json:"recipientEmail,omitempty"`
	RecipientPhone   string                 `json:"recipientPhone,omitempty"`
	NotificationType string                 `json:"notificationType"`
	Severity         string                 `json:"severity,omitempty"` // info, warning, error
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

type Output struct {
	NotificationID string                `json:"notificationId"`
	Status         string                `json:"status"`
	Subject        string                `json:"subject"`
	Deliveries     []models.Notification `json:"deliveries"`
	SentAt         string                `json:"sentAt"` // ISO 8601
	ErrorCode      string                `json:"errorCode,omitempty"`
	ErrorMessage   string                `json:"errorMessage,omitempty"`
}

// Notification types
const (
	TypeAnalysisCompleted = "analysis_completed"
	TypeAnalysisDegraded  = "analysis_degraded"
	TypePostsGenerated    = "posts_generated"
	TypePublishFailed     = "publish_failed"
)

// Statuses
const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
	StatusSkipped  = "skipped"
)

const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)
