package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"parkly/internal/config"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// SessionDocument is the archive form of a closed session, indexed for staff
// history search. Both regular and guest sessions end up here.
type SessionDocument struct {
	SessionID   int64     `json:"session_id"`
	Guest       bool      `json:"guest"`
	LotID       int64     `json:"lot_id"`
	Plate       string    `json:"plate"`
	VehicleType string    `json:"vehicle_type"`
	EntryTime   time.Time `json:"entry_time"`
	ExitTime    time.Time `json:"exit_time"`
	Cost        int64     `json:"cost"`
	Forced      bool      `json:"forced"`
}

// ElasticsearchClient indexes finished sessions and serves history queries
type ElasticsearchClient struct {
	client *elasticsearch.Client
	config config.ElasticsearchConfig
}

func NewElasticsearchClient(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     []string{cfg.URL},
		Username:      cfg.Username,
		Password:      cfg.Password,
		RetryOnStatus: []int{502, 503, 504, 429},
		MaxRetries:    cfg.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	client := &ElasticsearchClient{
		client: es,
		config: cfg,
	}

	if err := client.ensureIndex(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ensure index exists: %w", err)
	}

	return client, nil
}

func (c *ElasticsearchClient) ensureIndex(ctx context.Context) error {
	req := esapi.IndicesExistsRequest{
		Index: []string{c.config.Index},
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 200 {
		slog.Info("Elasticsearch index already exists", "index", c.config.Index)
		return nil
	}

	mapping := map[string]interface{}{
		"settings": map[string]interface{}{
			"number_of_shards":   1,
			"number_of_replicas": 0,
		},
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"session_id":   map[string]interface{}{"type": "long"},
				"guest":        map[string]interface{}{"type": "boolean"},
				"lot_id":       map[string]interface{}{"type": "long"},
				"plate":        map[string]interface{}{"type": "keyword"},
				"vehicle_type": map[string]interface{}{"type": "keyword"},
				"entry_time":   map[string]interface{}{"type": "date"},
				"exit_time":    map[string]interface{}{"type": "date"},
				"cost":         map[string]interface{}{"type": "long"},
				"forced":       map[string]interface{}{"type": "boolean"},
			},
		},
	}

	mappingJSON, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal index mapping: %w", err)
	}

	createReq := esapi.IndicesCreateRequest{
		Index: c.config.Index,
		Body:  bytes.NewReader(mappingJSON),
	}

	createRes, err := createReq.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		return fmt.Errorf("index creation failed: %s", createRes.String())
	}

	slog.Info("Created Elasticsearch index", "index", c.config.Index)
	return nil
}

// Index stores one closed-session document. The document id distinguishes
// guest and regular sessions so the two id sequences cannot collide.
func (c *ElasticsearchClient) Index(ctx context.Context, doc SessionDocument) error {
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal session document: %w", err)
	}

	docID := fmt.Sprintf("s-%d", doc.SessionID)
	if doc.Guest {
		docID = fmt.Sprintf("g-%d", doc.SessionID)
	}

	req := esapi.IndexRequest{
		Index:      c.config.Index,
		DocumentID: docID,
		Body:       bytes.NewReader(docJSON),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to index session document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("indexing failed: %s", res.String())
	}
	return nil
}

// Search runs a filtered history query. Zero values disable a filter.
func (c *ElasticsearchClient) Search(ctx context.Context, plate string, lotID int64, from, to time.Time, limit int) ([]SessionDocument, error) {
	if limit <= 0 {
		limit = 20
	}

	var filters []map[string]interface{}
	if plate != "" {
		filters = append(filters, map[string]interface{}{
			"wildcard": map[string]interface{}{
				"plate": map[string]interface{}{"value": "*" + plate + "*"},
			},
		})
	}
	if lotID != 0 {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{"lot_id": lotID},
		})
	}
	if !from.IsZero() || !to.IsZero() {
		rangeFilter := map[string]interface{}{}
		if !from.IsZero() {
			rangeFilter["gte"] = from.Format(time.RFC3339)
		}
		if !to.IsZero() {
			rangeFilter["lte"] = to.Format(time.RFC3339)
		}
		filters = append(filters, map[string]interface{}{
			"range": map[string]interface{}{"exit_time": rangeFilter},
		})
	}

	query := map[string]interface{}{
		"size": limit,
		"sort": []map[string]interface{}{
			{"exit_time": map[string]interface{}{"order": "desc"}},
		},
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"filter": filters},
		},
	}

	queryJSON, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	res, err := c.client.Search(
		c.client.Search.WithContext(ctx),
		c.client.Search.WithIndex(c.config.Index),
		c.client.Search.WithBody(bytes.NewReader(queryJSON)),
	)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search failed: %s", res.String())
	}

	var result struct {
		Hits struct {
			Hits []struct {
				Source SessionDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	docs := make([]SessionDocument, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		docs = append(docs, hit.Source)
	}
	return docs, nil
}
