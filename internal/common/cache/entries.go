package cache

import (
	"context"
	"encoding/json"
	"time"

	"marketing-workers/internal/models"
)

type CompetitorsEntry struct {
	Competitors []models.Competitor `json:"competitors"`
	SavedAt     time.Time           `json:"savedAt"`
}

type AnalysisEntry struct {
	AnalysisID      string                    `json:"analysisId"`
	Status          *models.AnalysisStatus    `json:"status,omitempty"`
	Insights        *models.MarketingInsights `json:"insights"`
	CompetitorCount int                       `json:"competitorCount"`
	Timestamp       time.Time                 `json:"timestamp"`
}

type ViabilityEntry struct {
	Data    models.ViabilityData `json:"data"`
	RawText string               `json:"rawText,omitempty"`
	SavedAt time.Time            `json:"savedAt"`
}

type PostsEntry struct {
	Posts   []models.SocialMediaPost `json:"posts"`
	SavedAt time.Time                `json:"savedAt"`
}

func (s *Store) SaveCompetitors(ctx context.Context, workspaceID string, competitors []models.Competitor) error {
	return s.SetJSON(ctx, workspaceID, KeyCompetitors, CompetitorsEntry{
		Competitors: competitors,
		SavedAt:     time.Now().UTC(),
	})
}

func (s *Store) LoadCompetitors(ctx context.Context, workspaceID string) (*CompetitorsEntry, bool) {
	var entry CompetitorsEntry
	if !s.load(ctx, workspaceID, KeyCompetitors, &entry) {
		return nil, false
	}
	return &entry, true
}

// UpdateCompetitors applies fn to the cached list atomically and returns the
// list it stored. fn sees found=false on a miss or a corrupt entry and may seed
// the list itself. fn can run more than once and must not have side effects.
func (s *Store) UpdateCompetitors(ctx context.Context, workspaceID string, fn func(list []models.Competitor, found bool) ([]models.Competitor, error)) ([]models.Competitor, error) {
	var stored []models.Competitor
	err := s.update(ctx, workspaceID, KeyCompetitors, func(data []byte, found bool) (interface{}, error) {
		var entry CompetitorsEntry
		if found && !s.decode(workspaceID, KeyCompetitors, data, &entry) {
			entry, found = CompetitorsEntry{}, false
		}
		list, err := fn(entry.Competitors, found)
		if err != nil {
			return nil, err
		}
		stored = list
		return CompetitorsEntry{Competitors: list, SavedAt: time.Now().UTC()}, nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// SaveAnalysis stamps the entry with the current time when Timestamp is zero.
func (s *Store) SaveAnalysis(ctx context.Context, workspaceID string, entry AnalysisEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	return s.SetJSON(ctx, workspaceID, KeyAnalysis, entry)
}

func (s *Store) LoadAnalysis(ctx context.Context, workspaceID string) (*AnalysisEntry, bool) {
	var entry AnalysisEntry
	if !s.load(ctx, workspaceID, KeyAnalysis, &entry) {
		return nil, false
	}
	return &entry, true
}

func (s *Store) SaveBusinessSummary(ctx context.Context, workspaceID, summary string) error {
	return s.SetJSON(ctx, workspaceID, KeyBusinessSummary, summary)
}

func (s *Store) LoadBusinessSummary(ctx context.Context, workspaceID string) (string, bool) {
	var summary string
	if !s.load(ctx, workspaceID, KeyBusinessSummary, &summary) {
		return "", false
	}
	return summary, summary != ""
}

func (s *Store) SaveBrandIdentity(ctx context.Context, workspaceID string, identity map[string]interface{}) error {
	return s.SetJSON(ctx, workspaceID, KeyBrandIdentity, identity)
}

func (s *Store) LoadBrandIdentity(ctx context.Context, workspaceID string) (map[string]interface{}, bool) {
	var identity map[string]interface{}
	if !s.load(ctx, workspaceID, KeyBrandIdentity, &identity) {
		return nil, false
	}
	return identity, len(identity) > 0
}

func (s *Store) SaveViability(ctx context.Context, workspaceID string, data models.ViabilityData, rawText string) error {
	return s.SetJSON(ctx, workspaceID, KeyViability, ViabilityEntry{
		Data:    data,
		RawText: rawText,
		SavedAt: time.Now().UTC(),
	})
}

func (s *Store) LoadViability(ctx context.Context, workspaceID string) (*ViabilityEntry, bool) {
	var entry ViabilityEntry
	if !s.load(ctx, workspaceID, KeyViability, &entry) {
		return nil, false
	}
	return &entry, true
}

func (s *Store) SavePosts(ctx context.Context, workspaceID string, posts []models.SocialMediaPost) error {
	return s.SetJSON(ctx, workspaceID, KeyPosts, PostsEntry{
		Posts:   posts,
		SavedAt: time.Now().UTC(),
	})
}

// UpdatePosts is UpdateCompetitors for the social_posts list.
func (s *Store) UpdatePosts(ctx context.Context, workspaceID string, fn func(posts []models.SocialMediaPost, found bool) ([]models.SocialMediaPost, error)) ([]models.SocialMediaPost, error) {
	var stored []models.SocialMediaPost
	err := s.update(ctx, workspaceID, KeyPosts, func(data []byte, found bool) (interface{}, error) {
		var entry PostsEntry
		if found && !s.decode(workspaceID, KeyPosts, data, &entry) {
			entry, found = PostsEntry{}, false
		}
		posts, err := fn(entry.Posts, found)
		if err != nil {
			return nil, err
		}
		stored = posts
		return PostsEntry{Posts: posts, SavedAt: time.Now().UTC()}, nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (s *Store) decode(workspaceID, key string, data []byte, dst interface{}) bool {
	if err := json.Unmarshal(data, dst); err != nil {
		s.logger.Warn("corrupt cache entry replaced", map[string]interface{}{
			"workspaceId": workspaceID,
			"key":         key,
			"error":       err.Error(),
		})
		return false
	}
	return true
}

func (s *Store) LoadPosts(ctx context.Context, workspaceID string) ([]models.SocialMediaPost, bool) {
	var entry PostsEntry
	if !s.load(ctx, workspaceID, KeyPosts, &entry) {
		return nil, false
	}
	return entry.Posts, true
}
