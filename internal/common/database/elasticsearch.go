// internal/common/database/elasticsearch.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"swedana-forms/internal/common/config"

	"github.com/elastic/go-elasticsearch/v8"
)

// ElasticsearchClient wraps the client used by the search mirror.
type ElasticsearchClient struct {
	Client *elasticsearch.Client
}

// NewElasticsearch builds a client that retries throttled and gateway
// responses a few times before the mirror sees the failure.
func NewElasticsearch(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	esCfg := elasticsearch.Config{
		Addresses:     cfg.Addresses,
		MaxRetries:    3,
		RetryOnStatus: []int{http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout},
	}
	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return &ElasticsearchClient{Client: es}, nil
}

// Ping asks for cluster health. A red cluster cannot take mirror writes,
// so it counts as unavailable.
func (c *ElasticsearchClient) Ping(ctx context.Context) error {
	res, err := c.Client.Cluster.Health(c.Client.Cluster.Health.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping error: %s", res.Status())
	}

	var health struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(res.Body).Decode(&health); err != nil {
		return fmt.Errorf("decode cluster health: %w", err)
	}
	if health.Status == "red" {
		return fmt.Errorf("elasticsearch cluster status is red")
	}
	return nil
}
