package analyzecompetitors

import "marketing-workers/internal/models"

type Input struct {
	WorkspaceID     string                 `json:"workspaceId"`
	AnalysisID      string                 `json:"analysisId,omitempty"`
	Competitors     []models.Competitor    `json:"competitors,omitempty"`
	BusinessSummary string                 `json:"businessSummary,omitempty"`
	BrandIdentity   map[string]interface{} `json:"brandIdentity,omitempty"`
	UseCache        bool                   `json:"useCache,omitempty"`
}

type Output struct {
	AnalysisID      string                           `json:"analysisId"`
	Status          string                           `json:"status"`
	PlatformStatus  map[string]models.PlatformStatus `json:"platformStatus,omitempty"`
	Insights        *models.MarketingInsights        `json:"insights"`
	CompetitorCount int                              `json:"competitorCount"`
	Source          string                           `json:"source"`
	Simulated       bool                             `json:"simulated"`
	FallbackUsed    bool                             `json:"fallbackUsed"`
	Indexed         bool                             `json:"indexed"`
	ErrorCode       string                           `json:"errorCode,omitempty"`
	ErrorMessage    string                           `json:"errorMessage,omitempty"`
}

const (
	SourceCache     = "cache"
	SourceBackend   = "backend"
	SourceSimulated = "simulated"
)
