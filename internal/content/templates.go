// Package content holds the canned post templates and the engagement heuristic
// used when the content backend is unavailable.
package content

import (
	"fmt"
	"strings"

	"marketing-workers/internal/models"
)

var postTemplates = map[string][]string{
	models.PlatformLinkedIn: {
		"What we learned this quarter about %s, and what it means for teams like yours.",
		"Three lessons from building around %s. Which one matches your experience?",
		"Behind every result is a process. Here is how we approach %s.",
	},
	models.PlatformTikTok: {
		"POV: you finally figured out %s 👀",
		"60 seconds on %s. Save this for later!",
		"Things nobody tells you about %s. Part 1",
	},
	models.PlatformInstagram: {
		"A closer look at %s ✨",
		"Swipe to see how %s comes together.",
	},
}

var genericTemplates = []string{
	"Let's talk about %s.",
	"Here is our take on %s.",
}

var baseHashtags = map[string][]string{
	models.PlatformLinkedIn:  {"leadership", "growth"},
	models.PlatformTikTok:    {"fyp", "tips"},
	models.PlatformInstagram: {"instadaily"},
}

// TemplatePost builds the n-th canned post for platform. The same arguments
// always produce the same content.
func TemplatePost(platform, topic, tone string, n int) models.SocialMediaPost {
	if topic == "" {
		topic = "our business"
	}
	templates, ok := postTemplates[platform]
	if !ok {
		templates = genericTemplates
	}
	content := fmt.Sprintf(templates[n%len(templates)], topic)
	if strings.EqualFold(tone, "professional") && platform == models.PlatformTikTok {
		content = strings.TrimSuffix(content, " 👀")
	}

	hashtags := append([]string{}, baseHashtags[platform]...)
	if tag := hashtagFor(topic); tag != "" {
		hashtags = append([]string{tag}, hashtags...)
	}

	return models.SocialMediaPost{
		Platform: platform,
		Content:  content,
		Hashtags: hashtags,
		Status:   models.PostStatusDraft,
	}
}

func hashtagFor(topic string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(topic) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() > 30 {
		return ""
	}
	return b.String()
}

var platformBaseScore = map[string]float64{
	models.PlatformLinkedIn:  62,
	models.PlatformTikTok:    70,
	models.PlatformInstagram: 66,
}

// PredictEngagement is a heuristic estimate used when the backend sends none.
func PredictEngagement(post models.SocialMediaPost) *models.EngagementPrediction {
	score, ok := platformBaseScore[post.Platform]
	if !ok {
		score = 60
	}

	tags := len(post.Hashtags)
	if tags > 5 {
		tags = 5
	}
	score += float64(tags) * 2
	if strings.Contains(post.Content, "?") {
		score += 3
	}
	if n := len(post.Content); n > 600 {
		score -= 8
	} else if n < 20 {
		score -= 5
	}
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	return &models.EngagementPrediction{
		Score:    score,
		Likes:    int(score * 4),
		Comments: int(score / 4),
		Shares:   int(score / 8),
	}
}

var variationLines = []string{
	"What would you add?",
	"Tell us in the comments.",
	"Share this with someone who needs it.",
	"Follow for more like this.",
}

// Variation appends a closing line to the post content. Successive n pick
// different lines so repeated regenerations do not stack the same text.
func Variation(post models.SocialMediaPost, n int) models.SocialMediaPost {
	line := variationLines[n%len(variationLines)]
	content := strings.TrimSpace(post.Content)
	for strings.HasSuffix(content, line) {
		line = variationLines[(n+1)%len(variationLines)]
		n++
	}
	post.Content = content + "\n\n" + line
	return post
}
