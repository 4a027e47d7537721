package generatesocialposts

import "marketing-workers/internal/models"

type Input struct {
	WorkspaceID string   `json:"workspaceId"`
	Platforms   []string `json:"platforms,omitempty"`
	Count       int      `json:"count,omitempty"`
	Topic       string   `json:"topic,omitempty"`
	Tone        string   `json:"tone,omitempty"`
	UseGemini   bool     `json:"useGemini,omitempty"`
}

type Output struct {
	Posts          []models.SocialMediaPost `json:"posts"`
	Count          int                      `json:"count"`
	Capped         bool                     `json:"capped,omitempty"`
	RequestedCount int                      `json:"requestedCount,omitempty"`
	Source         string                   `json:"source"`
	FallbackUsed   bool                     `json:"fallbackUsed"`
	ErrorCode      string                   `json:"errorCode,omitempty"`
	ErrorMessage   string                   `json:"errorMessage,omitempty"`
}

const (
	SourceAgent    = "agent"
	SourceGemini   = "gemini"
	SourceTemplate = "template"
)

// geminiPosts mirrors gemini.PostsSchema.
type geminiPosts struct {
	Posts []struct {
		Platform string   `json:"platform"`
		Content  string   `json:"content"`
		Hashtags []string `json:"hashtags"`
	} `json:"posts"`
}
