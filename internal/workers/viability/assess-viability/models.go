package assessviability

import (
	"marketing-workers/internal/models"
	"marketing-workers/internal/parsers"
)

type Input struct {
	WorkspaceID  string `json:"workspaceId"`
	RawText      string `json:"rawText,omitempty"`
	Agent        string `json:"agent,omitempty"`
	BusinessIdea string `json:"businessIdea,omitempty"`
	UseGemini    bool   `json:"useGemini,omitempty"`
}

type Output struct {
	Viability    models.ViabilityData `json:"viability"`
	Report       parsers.Report       `json:"report"`
	Source       string               `json:"source"`
	FallbackUsed bool                 `json:"fallbackUsed"`
	ErrorCode    string               `json:"errorCode,omitempty"`
	ErrorMessage string               `json:"errorMessage,omitempty"`
}

const (
	SourceInput   = "input"
	SourceAgent   = "agent"
	SourceCache   = "cache"
	SourceGemini  = "gemini"
	SourceDefault = "default"
)
