package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.mongodb.org/mongo-driver/v2/bson"

	"citypulse/internal/config"
	"citypulse/internal/models"
)

// maxHits bounds the ids returned for one search term
const maxHits = 1000

// ErrTruncated is returned with the first maxHits ids when the index has
// more matches than one response carries
var ErrTruncated = errors.New("search: more matches than returned")

// ElasticsearchClient представляет клиент для работы с Elasticsearch
type ElasticsearchClient struct {
	client *elasticsearch.Client
	config config.ElasticsearchConfig
}

// Document is the indexed projection of an event
type Document struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	City        string    `json:"city"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	IsActive    bool      `json:"is_active"`
	Dates       []string  `json:"dates"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewDocument(e *models.Event) Document {
	dates := make([]string, len(e.Dates))
	for i, w := range e.Dates {
		dates[i] = w.Date
	}
	return Document{
		ID:          e.ID.Hex(),
		Title:       e.Title,
		Description: e.Description,
		City:        e.City.Hex(),
		Type:        string(e.Type),
		Status:      string(e.Status),
		IsActive:    e.IsActive,
		Dates:       dates,
		UpdatedAt:   e.UpdatedAt,
	}
}

// NewElasticsearchClient создает новый клиент Elasticsearch
func NewElasticsearchClient(ctx context.Context, cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
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

	if err := client.ensureIndex(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure index exists: %w", err)
	}

	return client, nil
}

// indexMapping - русский анализатор для title/description, остальное keyword
func indexMapping() map[string]any {
	return map[string]any{
		"settings": map[string]any{
			"number_of_shards":   1,
			"number_of_replicas": 0,
			"analysis": map[string]any{
				"analyzer": map[string]any{
					"russian_analyzer": map[string]any{
						"type":      "custom",
						"tokenizer": "standard",
						"filter":    []string{"lowercase", "russian_stop", "russian_stemmer"},
					},
				},
				"filter": map[string]any{
					"russian_stop": map[string]any{
						"type":      "stop",
						"stopwords": "_russian_",
					},
					"russian_stemmer": map[string]any{
						"type":     "stemmer",
						"language": "russian",
					},
				},
			},
		},
		"mappings": map[string]any{
			"properties": map[string]any{
				"id": map[string]any{"type": "keyword"},
				"title": map[string]any{
					"type":     "text",
					"analyzer": "russian_analyzer",
					"fields": map[string]any{
						"keyword": map[string]any{
							"type":         "keyword",
							"ignore_above": 256,
						},
					},
				},
				"description": map[string]any{
					"type":     "text",
					"analyzer": "russian_analyzer",
				},
				"city":       map[string]any{"type": "keyword"},
				"type":       map[string]any{"type": "keyword"},
				"status":     map[string]any{"type": "keyword"},
				"is_active":  map[string]any{"type": "boolean"},
				"dates":      map[string]any{"type": "keyword"},
				"updated_at": map[string]any{"type": "date"},
			},
		},
	}
}

// ensureIndex создает индекс если он не существует
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

	mappingJSON, err := json.Marshal(indexMapping())
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	createReq := esapi.IndicesCreateRequest{
		Index: c.config.Index,
		Body:  strings.NewReader(string(mappingJSON)),
	}

	createRes, err := createReq.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		return fmt.Errorf("failed to create index: %s", createRes.String())
	}

	slog.Info("Created Elasticsearch index", "index", c.config.Index)
	return nil
}

// buildSearchQuery строит поисковый запрос по тексту среди опубликованных
// событий города. Нулевой город - все города.
func buildSearchQuery(term string, city bson.ObjectID) map[string]any {
	filters := []map[string]any{
		{"term": map[string]any{"status": string(models.StatusApproved)}},
		{"term": map[string]any{"is_active": true}},
	}
	if !city.IsZero() {
		filters = append(filters, map[string]any{"term": map[string]any{"city": city.Hex()}})
	}
	return map[string]any{
		"bool": map[string]any{
			"must": []map[string]any{{
				"multi_match": map[string]any{
					"query":     term,
					"fields":    []string{"title^2", "description"},
					"analyzer":  "russian_analyzer",
					"fuzziness": "AUTO",
				},
			}},
			"filter": filters,
		},
	}
}

// SearchIDs returns ids of published events matching term, best match
// first. A zero city searches every city. More than maxHits matches return
// the first page together with ErrTruncated.
func (c *ElasticsearchClient) SearchIDs(ctx context.Context, term string, city bson.ObjectID) ([]bson.ObjectID, error) {
	searchRequest := map[string]any{
		"query":   buildSearchQuery(term, city),
		"_source": []string{"id"},
		"sort": []map[string]any{
			{"_score": map[string]any{"order": "desc"}},
			{"id": map[string]any{"order": "asc"}},
		},
		"size":             maxHits,
		"track_total_hits": maxHits + 1,
	}

	searchJSON, err := json.Marshal(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{c.config.Index},
		Body:  strings.NewReader(string(searchJSON)),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.String())
	}

	var response struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	ids := make([]bson.ObjectID, 0, len(response.Hits.Hits))
	for _, hit := range response.Hits.Hits {
		id, err := bson.ObjectIDFromHex(hit.Source.ID)
		if err != nil {
			slog.Warn("Skipping search hit with bad id", "id", hit.Source.ID)
			continue
		}
		ids = append(ids, id)
	}
	if response.Hits.Total.Value > len(response.Hits.Hits) {
		return ids, ErrTruncated
	}
	return ids, nil
}

// IndexEvent индексирует событие
func (c *ElasticsearchClient) IndexEvent(ctx context.Context, event *models.Event) error {
	eventJSON, err := json.Marshal(NewDocument(event))
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      c.config.Index,
		DocumentID: event.ID.Hex(),
		Body:       strings.NewReader(string(eventJSON)),
		Refresh:    "wait_for",
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to index event: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("indexing error: %s", res.String())
	}

	return nil
}

// DeleteEvent удаляет событие
func (c *ElasticsearchClient) DeleteEvent(ctx context.Context, id bson.ObjectID) error {
	req := esapi.DeleteRequest{
		Index:      c.config.Index,
		DocumentID: id.Hex(),
		Refresh:    "wait_for",
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete error: %s", res.String())
	}

	return nil
}

// HealthCheck проверяет состояние Elasticsearch
func (c *ElasticsearchClient) HealthCheck(ctx context.Context) error {
	req := esapi.ClusterHealthRequest{
		WaitForStatus: "yellow",
		Timeout:       10 * time.Second,
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("health check error: %s", res.String())
	}

	return nil
}
