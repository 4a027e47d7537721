package discovercompetitors

import "marketing-workers/internal/models"

type Input struct {
	WorkspaceID     string   `json:"workspaceId"`
	BusinessSummary string   `json:"businessSummary,omitempty"`
	Platforms       []string `json:"platforms,omitempty"`
	Location        string   `json:"location,omitempty"`
	Limit           int      `json:"limit,omitempty"`
	UseCache        bool     `json:"useCache,omitempty"`
}

type Output struct {
	Competitors   []models.Competitor `json:"competitors"`
	Count         int                 `json:"count"`
	Source        string              `json:"source"`
	FallbackUsed  bool                `json:"fallbackUsed"`
	StartAnalysis bool                `json:"startAnalysis"`
	ErrorCode     string              `json:"errorCode,omitempty"`
	ErrorMessage  string              `json:"errorMessage,omitempty"`
}

const (
	SourceCache     = "cache"
	SourceDiscovery = "discovery"
	SourceFallback  = "fallback"
)
