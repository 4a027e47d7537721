package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"marketing-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// InsightsIndex stores flattened marketing insights in Elasticsearch.
type InsightsIndex struct {
	client *elasticsearch.Client
	index  string
}

func NewInsightsIndex(client *elasticsearch.Client, index string) *InsightsIndex {
	return &InsightsIndex{client: client, index: index}
}

type InsightQuery struct {
	WorkspaceID string
	Query       string
	Platform    string
	Limit       int
}

type InsightHit struct {
	models.InsightDocument
	Score float64 `json:"score"`
}

type InsightResult struct {
	Hits  []InsightHit
	Total int64
	Took  int64
}

// Index bulk-writes docs. Document ids are derived from analysis, kind and
// position so re-indexing one analysis overwrites instead of duplicating.
func (x *InsightsIndex) Index(ctx context.Context, docs []models.InsightDocument) error {
	if len(docs) == 0 {
		return nil
	}

	var body bytes.Buffer
	for i, doc := range docs {
		meta := map[string]interface{}{
			"index": map[string]interface{}{
				"_index": x.index,
				"_id":    fmt.Sprintf("%s:%s:%s:%d", doc.AnalysisID, doc.Platform, doc.Kind, i),
			},
		}
		if err := json.NewEncoder(&body).Encode(meta); err != nil {
			return err
		}
		if err := json.NewEncoder(&body).Encode(doc); err != nil {
			return err
		}
	}

	req := esapi.BulkRequest{Body: &body}
	res, err := req.Do(ctx, x.client)
	if err != nil {
		return fmt.Errorf("bulk index insights: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("bulk index insights: %s", res.String())
	}

	var r struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return fmt.Errorf("decode bulk response: %w", err)
	}
	if r.Errors {
		return fmt.Errorf("bulk index insights: some documents were rejected")
	}
	return nil
}

func buildInsightQuery(q InsightQuery) map[string]interface{} {
	filters := []interface{}{
		map[string]interface{}{"term": map[string]interface{}{"workspaceId": q.WorkspaceID}},
	}
	if q.Platform != "" {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{"platform": q.Platform},
		})
	}

	boolQuery := map[string]interface{}{"filter": filters}
	if strings.TrimSpace(q.Query) != "" {
		boolQuery["must"] = []interface{}{
			map[string]interface{}{
				"multi_match": map[string]interface{}{
					"query":  q.Query,
					"fields": []string{"text^2", "competitors", "kind"},
					"type":   "best_fields",
				},
			},
		}
	}

	return map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
		"sort": []interface{}{
			"_score",
			map[string]interface{}{"generatedAt": map[string]interface{}{"order": "desc"}},
		},
	}
}

func (x *InsightsIndex) Search(ctx context.Context, q InsightQuery) (*InsightResult, error) {
	size := q.Limit
	if size <= 0 || size > 100 {
		size = 20
	}
	body, err := json.Marshal(buildInsightQuery(q))
	if err != nil {
		return nil, err
	}

	req := esapi.SearchRequest{
		Index:          []string{x.index},
		Body:           bytes.NewReader(body),
		Size:           &size,
		TrackTotalHits: true,
	}
	res, err := req.Do(ctx, x.client)
	if err != nil {
		return nil, fmt.Errorf("search insights: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search insights: %s", res.String())
	}

	var r struct {
		Took int64 `json:"took"`
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Score  float64                `json:"_score"`
				Source models.InsightDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := &InsightResult{Total: r.Hits.Total.Value, Took: r.Took, Hits: []InsightHit{}}
	for _, h := range r.Hits.Hits {
		out.Hits = append(out.Hits, InsightHit{InsightDocument: h.Source, Score: h.Score})
	}
	return out, nil
}
