package saveplatformconfig

type Input struct {
	WorkspaceID string                 `json:"workspaceId"`
	Platform    string                 `json:"platform"`
	Credentials map[string]string      `json:"credentials,omitempty"`
	Settings    map[string]interface{} `json:"settings,omitempty"`
	// Merge keeps stored credentials for keys sent blank or omitted.
	Merge bool `json:"merge,omitempty"`
}

// Output never carries raw credentials; values are masked.
type Output struct {
	Platform     string            `json:"platform"`
	Configured   bool              `json:"configured"`
	Missing      []string          `json:"missing"`
	Credentials  map[string]string `json:"credentials,omitempty"`
	RemoteSaved  bool              `json:"remoteSaved"`
	LocalSaved   bool              `json:"localSaved"`
	ErrorCode    string            `json:"errorCode,omitempty"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
}
