package managecompetitors

import "marketing-workers/internal/models"

const (
	ActionAdd    = "add"
	ActionRemove = "remove"
	ActionList   = "list"
)

type Input struct {
	WorkspaceID  string           `json:"workspaceId"`
	Action       string           `json:"action"`
	Competitor   *CompetitorInput `json:"competitor,omitempty"`
	CompetitorID string           `json:"competitorId,omitempty"`
}

type CompetitorInput struct {
	URL      string `json:"url"`
	Platform string `json:"platform"`
	Name     string `json:"name,omitempty"`
}

type Output struct {
	Action       string              `json:"action"`
	Competitors  []models.Competitor `json:"competitors"`
	Count        int                 `json:"count"`
	Added        *models.Competitor  `json:"added,omitempty"`
	Duplicate    bool                `json:"duplicate,omitempty"`
	Removed      bool                `json:"removed"`
	ErrorCode    string              `json:"errorCode,omitempty"`
	ErrorMessage string              `json:"errorMessage,omitempty"`
}
