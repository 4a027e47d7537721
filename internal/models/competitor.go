// internal/models/competitor.go
package models

import (
	"strings"
	"time"
)

const (
	PlatformLinkedIn  = "linkedin"
	PlatformTikTok    = "tiktok"
	PlatformInstagram = "instagram"
	PlatformFacebook  = "facebook"
	PlatformTwitter   = "twitter"
)

// CompetitorPlatforms are the platforms competitors can be tracked on.
var CompetitorPlatforms = []string{PlatformLinkedIn, PlatformTikTok}

type Competitor struct {
	ID        string             `json:"id"`
	URL       string             `json:"url"`
	Platform  string             `json:"platform"`
	Name      string             `json:"name"`
	Metadata  *DiscoveryMetadata `json:"metadata,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
}

type DiscoveryMetadata struct {
	ConfidenceScore float64         `json:"confidenceScore,omitempty"`
	DiscoveryMethod string          `json:"discoveryMethod,omitempty"` // "search", "google_maps", "manual", "fallback"
	Description     string          `json:"description,omitempty"`
	GoogleMaps      *GoogleMapsInfo `json:"googleMaps,omitempty"`
}

type GoogleMapsInfo struct {
	PlaceID     string  `json:"placeId,omitempty"`
	Address     string  `json:"address,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
	ReviewCount int     `json:"reviewCount,omitempty"`
	Category    string  `json:"category,omitempty"`
}

// NormalizePlatform lowercases and trims a platform tag.
func NormalizePlatform(p string) string {
	return strings.ToLower(strings.TrimSpace(p))
}

// ValidPlatform reports whether p is a platform competitors can be tracked on.
func ValidPlatform(p string) bool {
	p = NormalizePlatform(p)
	for _, known := range CompetitorPlatforms {
		if p == known {
			return true
		}
	}
	return false
}
