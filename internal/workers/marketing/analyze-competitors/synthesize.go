package analyzecompetitors

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"marketing-workers/internal/models"
)

var platformTemplates = map[string]models.PlatformInsights{
	models.PlatformLinkedIn: {
		Strengths:        []string{"%s publishes consistent thought-leadership posts", "%s uses employee advocacy to widen reach"},
		Weaknesses:       []string{"%s rarely replies to comments", "%s relies on text-only updates"},
		ContentThemes:    []string{"industry reports", "customer case studies", "hiring and culture"},
		PostingFrequency: "3-5 posts per week",
		EngagementNotes:  "Carousel documents from %s outperform single-image posts.",
	},
	models.PlatformTikTok: {
		Strengths:        []string{"%s jumps on trending sounds quickly", "%s keeps videos under 30 seconds"},
		Weaknesses:       []string{"%s has no clear series format", "%s posts irregularly"},
		ContentThemes:    []string{"behind the scenes", "product demos", "duets with customers"},
		PostingFrequency: "daily",
		EngagementNotes:  "Hooks in the first two seconds drive most of %s's watch time.",
	},
}

// SynthesizeInsights builds template insights that name every competitor. It
// is used whenever the analysis backend cannot produce real insights.
func SynthesizeInsights(analysisID string, competitors []models.Competitor) *models.MarketingInsights {
	byPlatform := map[string][]string{}
	var names []string
	for _, c := range competitors {
		name := c.Name
		if name == "" {
			name = c.URL
		}
		names = append(names, name)
		byPlatform[c.Platform] = append(byPlatform[c.Platform], name)
	}

	insights := &models.MarketingInsights{
		AnalysisID:  analysisID,
		Platforms:   map[string]models.PlatformInsights{},
		GeneratedAt: time.Now().UTC(),
		Simulated:   true,
	}

	if len(names) == 0 {
		insights.Summary = "No competitors were available to analyze; add competitors to get tailored insights."
		insights.Recommendations = []string{"Add at least one competitor per platform"}
		return insights
	}

	insights.Summary = fmt.Sprintf("Estimated analysis of %d competitors: %s.", len(names), joinNames(names))

	platforms := make([]string, 0, len(byPlatform))
	for p := range byPlatform {
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)

	for _, platform := range platforms {
		tmpl, ok := platformTemplates[platform]
		if !ok {
			continue
		}
		group := joinNames(byPlatform[platform])
		insights.Platforms[platform] = models.PlatformInsights{
			Strengths:        fill(tmpl.Strengths, group),
			Weaknesses:       fill(tmpl.Weaknesses, group),
			ContentThemes:    append([]string(nil), tmpl.ContentThemes...),
			PostingFrequency: tmpl.PostingFrequency,
			EngagementNotes:  fmt.Sprintf(tmpl.EngagementNotes, group),
		}
		insights.Recommendations = append(insights.Recommendations,
			fmt.Sprintf("Match the %s cadence of %s (%s)", platform, group, tmpl.PostingFrequency))
	}
	insights.Recommendations = append(insights.Recommendations,
		fmt.Sprintf("Differentiate from %s with a recurring content series", joinNames(names)))
	return insights
}

func fill(templates []string, name string) []string {
	out := make([]string, len(templates))
	for i, t := range templates {
		out[i] = fmt.Sprintf(t, name)
	}
	return out
}

func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
}
