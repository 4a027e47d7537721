package managesocialpost

import (
	"marketing-workers/internal/common/agent"
	"marketing-workers/internal/models"
)

const (
	ActionCompose    = "compose"
	ActionRegenerate = "regenerate"
	ActionReschedule = "reschedule"
	ActionCancel     = "cancel"
	ActionPublish    = "publish"
)

type Input struct {
	WorkspaceID   string                  `json:"workspaceId"`
	Action        string                  `json:"action"`
	PostID        string                  `json:"postId,omitempty"`
	Post          *models.SocialMediaPost `json:"post,omitempty"`
	ScheduledDate string                  `json:"scheduledDate,omitempty"` // YYYY-MM-DD
	ScheduledTime string                  `json:"scheduledTime,omitempty"` // HH:MM
	Instructions  string                  `json:"instructions,omitempty"`
}

type Output struct {
	Action          string                   `json:"action"`
	Post            *models.SocialMediaPost  `json:"post,omitempty"`
	Posts           []models.SocialMediaPost `json:"posts"`
	Count           int                      `json:"count"`
	Removed         bool                     `json:"removed,omitempty"`
	Published       bool                     `json:"published,omitempty"`
	PublishResult   *agent.PublishResult     `json:"publishResult,omitempty"`
	RemoteScheduled bool                     `json:"remoteScheduled,omitempty"`
	FallbackUsed    bool                     `json:"fallbackUsed"`
	ErrorCode       string                   `json:"errorCode,omitempty"`
	ErrorMessage    string                   `json:"errorMessage,omitempty"`
}
