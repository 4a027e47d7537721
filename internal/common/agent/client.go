// Package agent talks to the AI agent backend, the social publishing backend
// and the image generation API.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	httpc "marketing-workers/internal/common/http"
	"marketing-workers/internal/models"
)

type Config struct {
	AgentBaseURL     string
	AgentTimeout     time.Duration
	AgentMaxRetries  int
	SocialBaseURL    string
	SocialTimeout    time.Duration
	SocialMaxRetries int
	ImageBaseURL     string
	ImageAPIKey      string
	ImageTimeout     time.Duration
}

type Client struct {
	agent     *httpc.Client
	social    *httpc.Client
	image     *httpc.Client
	agentURL  string
	socialURL string
	imageURL  string
}

func New(cfg Config) *Client {
	image := httpc.NewClient(cfg.ImageTimeout, 1)
	if cfg.ImageAPIKey != "" {
		image = image.WithHeader("Authorization", "Bearer "+cfg.ImageAPIKey)
	}
	return &Client{
		agent:     httpc.NewClient(cfg.AgentTimeout, cfg.AgentMaxRetries),
		social:    httpc.NewClient(cfg.SocialTimeout, cfg.SocialMaxRetries),
		image:     image,
		agentURL:  strings.TrimRight(cfg.AgentBaseURL, "/"),
		socialURL: strings.TrimRight(cfg.SocialBaseURL, "/"),
		imageURL:  strings.TrimRight(cfg.ImageBaseURL, "/"),
	}
}

// ImageConfigured reports whether an image API base URL is set.
func (c *Client) ImageConfigured() bool {
	return c.imageURL != ""
}

type DiscoverRequest struct {
	BusinessSummary string   `json:"businessSummary"`
	Platforms       []string `json:"platforms"`
	Location        string   `json:"location,omitempty"`
	Limit           int      `json:"limit,omitempty"`
}

type DiscoverResponse struct {
	Competitors []models.Competitor `json:"competitors"`
}

func (c *Client) DiscoverCompetitors(ctx context.Context, req DiscoverRequest) (*DiscoverResponse, error) {
	var resp DiscoverResponse
	if err := c.agent.DoJSON(ctx, http.MethodPost, c.agentURL+"/api/competitors/discover", req, &resp); err != nil {
		return nil, fmt.Errorf("discover competitors: %w", err)
	}
	return &resp, nil
}

type AnalysisTarget struct {
	URL      string `json:"url"`
	Platform string `json:"platform"`
	Name     string `json:"name"`
}

type AnalyzeRequest struct {
	AnalysisID      string                 `json:"analysisId"`
	Competitors     []AnalysisTarget       `json:"competitors"`
	BusinessSummary string                 `json:"businessSummary,omitempty"`
	BrandIdentity   map[string]interface{} `json:"brandIdentity,omitempty"`
}

func (c *Client) StartAnalysis(ctx context.Context, req AnalyzeRequest) (*models.AnalysisStatus, error) {
	var status models.AnalysisStatus
	if err := c.agent.DoJSON(ctx, http.MethodPost, c.agentURL+"/api/marketing/analyze", req, &status); err != nil {
		return nil, fmt.Errorf("start analysis: %w", err)
	}
	if status.AnalysisID == "" {
		status.AnalysisID = req.AnalysisID
	}
	return &status, nil
}

// AnalysisStatus fetches progress. platform narrows the status to one platform when non-empty.
func (c *Client) AnalysisStatus(ctx context.Context, analysisID, platform string) (*models.AnalysisStatus, error) {
	u := c.agentURL + "/api/marketing/status/" + url.PathEscape(analysisID)
	if platform != "" {
		u += "?platform=" + url.QueryEscape(platform)
	}
	var status models.AnalysisStatus
	if err := c.agent.DoJSON(ctx, http.MethodGet, u, nil, &status); err != nil {
		return nil, fmt.Errorf("analysis status: %w", err)
	}
	return &status, nil
}

func (c *Client) Insights(ctx context.Context, analysisID string) (*models.MarketingInsights, error) {
	var insights models.MarketingInsights
	u := c.agentURL + "/api/marketing/insights/" + url.PathEscape(analysisID)
	if err := c.agent.DoJSON(ctx, http.MethodGet, u, nil, &insights); err != nil {
		return nil, fmt.Errorf("fetch insights: %w", err)
	}
	return &insights, nil
}

type GenerateRequest struct {
	Platforms       []string                  `json:"platforms"`
	Count           int                       `json:"count"`
	Topic           string                    `json:"topic,omitempty"`
	Tone            string                    `json:"tone,omitempty"`
	BusinessSummary string                    `json:"businessSummary,omitempty"`
	BrandIdentity   map[string]interface{}    `json:"brandIdentity,omitempty"`
	Insights        *models.MarketingInsights `json:"insights,omitempty"`
}

type GenerateResponse struct {
	Posts []models.SocialMediaPost `json:"posts"`
}

func (c *Client) GeneratePosts(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	var resp GenerateResponse
	if err := c.agent.DoJSON(ctx, http.MethodPost, c.agentURL+"/api/content/generate", req, &resp); err != nil {
		return nil, fmt.Errorf("generate posts: %w", err)
	}
	return &resp, nil
}

func (c *Client) RegeneratePost(ctx context.Context, post models.SocialMediaPost, instructions string) (*models.SocialMediaPost, error) {
	body := map[string]interface{}{"post": post, "instructions": instructions}
	var resp struct {
		Post *models.SocialMediaPost `json:"post"`
	}
	if err := c.agent.DoJSON(ctx, http.MethodPost, c.agentURL+"/api/content/regenerate", body, &resp); err != nil {
		return nil, fmt.Errorf("regenerate post: %w", err)
	}
	if resp.Post == nil {
		return nil, fmt.Errorf("regenerate post: empty response")
	}
	return resp.Post, nil
}

// AgentOutput returns the latest output of a named agent as text. Object
// outputs are returned as their JSON encoding.
func (c *Client) AgentOutput(ctx context.Context, agentName string) (string, error) {
	var resp struct {
		Output json.RawMessage `json:"output"`
	}
	u := c.agentURL + "/api/agents/outputs/" + url.PathEscape(agentName)
	if err := c.agent.DoJSON(ctx, http.MethodGet, u, nil, &resp); err != nil {
		return "", fmt.Errorf("agent output %s: %w", agentName, err)
	}
	if len(resp.Output) == 0 || string(resp.Output) == "null" {
		return "", nil
	}

	var text string
	if err := json.Unmarshal(resp.Output, &text); err == nil {
		return text, nil
	}
	return string(resp.Output), nil
}

type PublishResult struct {
	PlatformPostID string `json:"platformPostId"`
	URL            string `json:"url"`
}

func (c *Client) PublishPost(ctx context.Context, post models.SocialMediaPost) (*PublishResult, error) {
	var resp PublishResult
	body := map[string]interface{}{"post": post}
	if err := c.social.DoJSON(ctx, http.MethodPost, c.socialURL+"/api/social/publish", body, &resp); err != nil {
		return nil, fmt.Errorf("publish post: %w", err)
	}
	return &resp, nil
}

func (c *Client) SchedulePost(ctx context.Context, post models.SocialMediaPost) error {
	body := map[string]interface{}{"post": post}
	if err := c.social.DoJSON(ctx, http.MethodPost, c.socialURL+"/api/social/schedule", body, nil); err != nil {
		return fmt.Errorf("schedule post: %w", err)
	}
	return nil
}

func (c *Client) SavePlatformConfig(ctx context.Context, cfg models.PlatformConfig) (bool, error) {
	var resp struct {
		Saved bool `json:"saved"`
	}
	body := map[string]interface{}{"config": cfg}
	if err := c.social.DoJSON(ctx, http.MethodPost, c.socialURL+"/api/platforms/config", body, &resp); err != nil {
		return false, fmt.Errorf("save platform config: %w", err)
	}
	return resp.Saved, nil
}

type ImageRequest struct {
	Prompt string `json:"prompt"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (string, error) {
	if c.imageURL == "" {
		return "", fmt.Errorf("generate image: no image api configured")
	}
	var resp struct {
		URL string `json:"url"`
	}
	if err := c.image.DoJSON(ctx, http.MethodPost, c.imageURL+"/generate", req, &resp); err != nil {
		return "", fmt.Errorf("generate image: %w", err)
	}
	if resp.URL == "" {
		return "", fmt.Errorf("generate image: empty url")
	}
	return resp.URL, nil
}
