// internal/models/analysis.go
package models

import "time"

const (
	AnalysisPending   = "pending"
	AnalysisRunning   = "running"
	AnalysisCompleted = "completed"
	AnalysisFailed    = "failed"
)

type AnalysisStatus struct {
	AnalysisID  string                    `json:"analysisId"`
	Status      string                    `json:"status"`
	Platforms   map[string]PlatformStatus `json:"platforms,omitempty"`
	StartedAt   *time.Time                `json:"startedAt,omitempty"`
	CompletedAt *time.Time                `json:"completedAt,omitempty"`
}

type PlatformStatus struct {
	Status   string `json:"status"`
	Progress int    `json:"progress"` // 0-100
	Message  string `json:"message,omitempty"`
}

type MarketingInsights struct {
	AnalysisID      string                      `json:"analysisId"`
	Summary         string                      `json:"summary"`
	Platforms       map[string]PlatformInsights `json:"platforms"`
	Recommendations []string                    `json:"recommendations"`
	GeneratedAt     time.Time                   `json:"generatedAt"`
	Simulated       bool                        `json:"simulated"`
}

type PlatformInsights struct {
	Strengths        []string `json:"strengths"`
	Weaknesses       []string `json:"weaknesses"`
	ContentThemes    []string `json:"contentThemes"`
	PostingFrequency string   `json:"postingFrequency,omitempty"`
	EngagementNotes  string   `json:"engagementNotes,omitempty"`
}

// InsightDocument is one searchable insight line as indexed in Elasticsearch.
type InsightDocument struct {
	WorkspaceID string    `json:"workspaceId"`
	AnalysisID  string    `json:"analysisId"`
	Platform    string    `json:"platform,omitempty"`
	Competitors []string  `json:"competitors,omitempty"`
	Kind        string    `json:"kind"` // summary, strength, weakness, theme, recommendation
	Text        string    `json:"text"`
	Simulated   bool      `json:"simulated"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// Documents flattens insights into one searchable line per finding.
func (m MarketingInsights) Documents(workspaceID string, competitors []string) []InsightDocument {
	base := InsightDocument{
		WorkspaceID: workspaceID,
		AnalysisID:  m.AnalysisID,
		Competitors: competitors,
		Simulated:   m.Simulated,
		GeneratedAt: m.GeneratedAt,
	}
	add := func(docs []InsightDocument, platform, kind string, lines ...string) []InsightDocument {
		for _, line := range lines {
			if line == "" {
				continue
			}
			d := base
			d.Platform, d.Kind, d.Text = platform, kind, line
			docs = append(docs, d)
		}
		return docs
	}

	docs := add(nil, "", "summary", m.Summary)
	for platform, p := range m.Platforms {
		docs = add(docs, platform, "strength", p.Strengths...)
		docs = add(docs, platform, "weakness", p.Weaknesses...)
		docs = add(docs, platform, "theme", p.ContentThemes...)
		docs = add(docs, platform, "engagement", p.EngagementNotes)
	}
	return add(docs, "", "recommendation", m.Recommendations...)
}
