package searchinsights

import "marketing-workers/internal/repository"

type Input struct {
	WorkspaceID string `json:"workspaceId"`
	Query       string `json:"query,omitempty"`
	Platform    string `json:"platform,omitempty"`
	Limit       int    `json:"limit,omitempty"`
}

type Output struct {
	Hits         []repository.InsightHit `json:"hits"`
	Total        int64                   `json:"total"`
	Took         int64                   `json:"took"` // milliseconds
	Source       string                  `json:"source"`
	FallbackUsed bool                    `json:"fallbackUsed"`
	ErrorCode    string                  `json:"errorCode,omitempty"`
	ErrorMessage string                  `json:"errorMessage,omitempty"`
}

const (
	SourceElasticsearch = "elasticsearch"
	SourceCache         = "cache"
)
