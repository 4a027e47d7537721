// internal/models/platform.go
package models

import (
	"sort"
	"strings"
	"time"
)

type PlatformConfig struct {
	Platform    string                 `json:"platform"`
	Credentials map[string]string      `json:"credentials,omitempty"`
	Settings    map[string]interface{} `json:"settings,omitempty"`
	Configured  bool                   `json:"configured"`
	Missing     []string               `json:"missing"`
	UpdatedAt   time.Time              `json:"updatedAt"`
}

// RequiredCredentials lists the credential keys each publishing platform needs.
var RequiredCredentials = map[string][]string{
	PlatformLinkedIn:  {"access_token", "organization_id"},
	PlatformTikTok:    {"access_token", "open_id"},
	PlatformInstagram: {"access_token", "business_account_id"},
	PlatformFacebook:  {"page_access_token", "page_id"},
	PlatformTwitter:   {"api_key", "api_secret", "access_token", "access_token_secret"},
}

// KnownPublishingPlatform reports whether credentials can be configured for p.
func KnownPublishingPlatform(p string) bool {
	_, ok := RequiredCredentials[NormalizePlatform(p)]
	return ok
}

// MissingCredentials returns the required keys that are absent or blank, sorted.
func MissingCredentials(platform string, creds map[string]string) []string {
	missing := []string{}
	for _, key := range RequiredCredentials[NormalizePlatform(platform)] {
		if strings.TrimSpace(creds[key]) == "" {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	return missing
}
