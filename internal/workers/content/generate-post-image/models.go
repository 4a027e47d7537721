package generatepostimage

type Input struct {
	WorkspaceID string `json:"workspaceId,omitempty"`
	Prompt      string `json:"prompt"`
	Platform    string `json:"platform,omitempty"`
	PostID      string `json:"postId,omitempty"`
}

type Output struct {
	ImageURL     string `json:"imageUrl"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	PostID       string `json:"postId,omitempty"`
	Attached     bool   `json:"attached"`
	Placeholder  bool   `json:"placeholder"`
	FallbackUsed bool   `json:"fallbackUsed"`
	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

type Dimensions struct {
	Width  int
	Height int
}

var platformDimensions = map[string]Dimensions{
	"linkedin":  {1200, 627},
	"tiktok":    {1080, 1920},
	"instagram": {1080, 1080},
}

var defaultDimensions = Dimensions{1024, 1024}
