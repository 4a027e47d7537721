// internal/models/post.go
package models

import "time"

const (
	PostStatusDraft     = "draft"
	PostStatusScheduled = "scheduled"
	PostStatusPublished = "published"
	PostStatusCancelled = "cancelled"
)

type SocialMediaPost struct {
	ID                   string                `json:"id"`
	Platform             string                `json:"platform"`
	Content              string                `json:"content"`
	Hashtags             []string              `json:"hashtags"`
	ImageURL             string                `json:"imageUrl,omitempty"`
	ScheduledDate        string                `json:"scheduledDate,omitempty"` // YYYY-MM-DD
	ScheduledTime        string                `json:"scheduledTime,omitempty"` // HH:MM
	Status               string                `json:"status"`
	EngagementPrediction *EngagementPrediction `json:"engagementPrediction,omitempty"`
	Custom               bool                  `json:"custom"`
	CreatedAt            time.Time             `json:"createdAt"`
	UpdatedAt            time.Time             `json:"updatedAt"`
}

type EngagementPrediction struct {
	Score    float64 `json:"score"`
	Likes    int     `json:"likes"`
	Comments int     `json:"comments"`
	Shares   int     `json:"shares"`
}
