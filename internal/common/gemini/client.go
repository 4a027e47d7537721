// Package gemini wraps the Gemini API for schema-constrained JSON generation.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
	BaseURL string // overrides the Gemini endpoint; used by tests
}

type Client struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &Client{client: client, model: model, timeout: cfg.Timeout}, nil
}

// GenerateJSON asks the model for output matching schema and decodes it into out.
func (c *Client) GenerateJSON(ctx context.Context, system, prompt string, schema *genai.Schema, out interface{}) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	contents := []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: prompt}}},
	}

	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return fmt.Errorf("gemini API call failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return fmt.Errorf("gemini returned no text")
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("failed to unmarshal gemini JSON response: %w", err)
	}
	return nil
}

func stringArray(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}, Description: desc}
}

func number(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeNumber, Description: desc}
}

func enum(values ...string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Enum: values}
}

// ViabilitySchema matches models.ViabilityData minus the computed scores.
func ViabilitySchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"financial": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"startupCosts":    number("One-off cost to launch, in USD."),
					"monthlyExpenses": number("Recurring monthly operating cost, in USD."),
					"revenueProjection": {
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"year1": number(""), "year2": number(""), "year3": number(""),
						},
					},
					"breakEvenMonths": {Type: genai.TypeInteger},
					"profitMargin":    number("Percent."),
					"fundingRequired": number("USD."),
				},
			},
			"market": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"marketSize":     number("Total addressable market, in USD."),
					"growthRate":     number("Annual growth, percent."),
					"targetAudience": {Type: genai.TypeString},
					"competition":    enum("low", "medium", "high"),
					"trends":         stringArray(""),
					"opportunities":  stringArray(""),
				},
			},
			"legal": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"businessStructure": {Type: genai.TypeString},
					"licenses":          stringArray(""),
					"permits":           stringArray(""),
					"regulations":       stringArray(""),
					"riskLevel":         enum("low", "medium", "high"),
				},
			},
			"strengths": stringArray("Key strengths of the idea."),
			"risks":     stringArray("Key risks of the idea."),
		},
		Required: []string{"financial", "market", "legal"},
	}
}

// PostsSchema is an array of generated posts.
func PostsSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"posts": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"platform": {Type: genai.TypeString},
						"content":  {Type: genai.TypeString},
						"hashtags": stringArray("Without the leading #."),
					},
					Required: []string{"platform", "content"},
				},
			},
		},
		Required: []string{"posts"},
	}
}
