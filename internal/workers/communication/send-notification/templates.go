package sendnotification

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"marketing-workers/internal/models"
)

var templates = map[string]models.NotificationTemplate{
	TypeAnalysisCompleted: {
		Type:    TypeAnalysisCompleted,
		Subject: "Competitor analysis ready",
		Body:    "Your analysis of {{competitorCount}} competitors is complete. {{summary}}",
	},
	TypeAnalysisDegraded: {
		Type:    TypeAnalysisDegraded,
		Subject: "Competitor analysis used estimated insights",
		Body: "The analysis service was unavailable ({{errorCode}}), so the insights for " +
			"{{competitorCount}} competitors are estimated. Re-run the analysis later for live data.",
	},
	TypePostsGenerated: {
		Type:    TypePostsGenerated,
		Subject: "{{count}} new social posts drafted",
		Body:    "{{count}} draft posts for {{platforms}} are waiting for review.",
	},
	TypePublishFailed: {
		Type:    TypePublishFailed,
		Subject: "Publishing to {{platform}} failed",
		Body:    "Post {{postId}} could not be published to {{platform}}: {{errorMessage}}. It is still saved as {{status}}.",
	},
}

var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// renderTemplate substitutes {{key}} placeholders from data. Unknown keys
// render as empty and the surrounding whitespace is collapsed.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	out := placeholderRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := placeholderRe.FindStringSubmatch(m)[1]
		return formatValue(data[key])
	})
	return strings.Join(strings.Fields(out), " ")
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%.2f", val)
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, p := range val {
			parts = append(parts, formatValue(p))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprintf("%v", val)
	}
}

func renderHTML(subject, body string) string {
	return "<html><body><h2>" + html.EscapeString(subject) + "</h2><p>" + html.EscapeString(body) + "</p></body></html>"
}
