package discovercompetitors

import (
	"time"

	"marketing-workers/internal/models"

	"github.com/google/uuid"
)

var fallbackCatalog = map[string][]models.Competitor{
	models.PlatformLinkedIn: {
		{Name: "HubSpot", URL: "https://www.linkedin.com/company/hubspot"},
		{Name: "Hootsuite", URL: "https://www.linkedin.com/company/hootsuite"},
	},
	models.PlatformTikTok: {
		{Name: "Duolingo", URL: "https://www.tiktok.com/@duolingo"},
		{Name: "Canva", URL: "https://www.tiktok.com/@canva"},
	},
}

// FallbackCompetitors returns well-known accounts for every requested platform
// so analysis always has at least one target per platform.
func FallbackCompetitors(platforms []string) []models.Competitor {
	now := time.Now().UTC()
	var out []models.Competitor
	for _, platform := range platforms {
		for _, c := range fallbackCatalog[platform] {
			c.ID = uuid.NewString()
			c.Platform = platform
			c.CreatedAt = now
			c.Metadata = &models.DiscoveryMetadata{DiscoveryMethod: "fallback"}
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return FallbackCompetitors(models.CompetitorPlatforms)
	}
	return out
}
