// internal/models/notification.go
package models

type Notification struct {
	ID             string                 `json:"id"`
	RecipientEmail string                 `json:"recipientEmail,omitempty"`
	RecipientPhone string                 `json:"recipientPhone,omitempty"`
	Type           string                 `json:"type"`     // "analysis_completed", "analysis_degraded", "posts_generated", "publish_failed"
	Severity       string                 `json:"severity"` // "info", "warning", "error"
	Channel        string                 `json:"channel"`  // "email", "sms"
	Status         string                 `json:"status"`   // "sent", "failed", "disabled", "skipped"
	Payload        map[string]interface{} `json:"payload,omitempty"`
	SentAt         string                 `json:"sentAt,omitempty"`
}

type NotificationTemplate struct {
	Type     string `json:"type"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	HTMLBody string `json:"htmlBody,omitempty"`
}
