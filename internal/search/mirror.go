// Package search mirrors submissions into Elasticsearch so the admin screen
// can run relevance search. The submission store stays the source of truth;
// the mirror only ever answers with ids.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	commonerrors "swedana-forms/internal/common/errors"
	"swedana-forms/internal/common/logger"
	"swedana-forms/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const (
	DefaultIndex   = "form-submissions"
	defaultTimeout = 5 * time.Second

	// maxResults bounds how many hits rank a search. Matches past it are
	// still listed by the store, after the ranked ones.
	maxResults = 1000
)

var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

const indexMapping = `{
	"mappings": {
		"properties": {
			"id":        {"type": "keyword"},
			"type":      {"type": "keyword"},
			"status":    {"type": "keyword"},
			"timestamp": {"type": "date", "format": "epoch_millis"},
			"text":      {"type": "text", "fields": {"raw": {"type": "keyword", "ignore_above": 8191}}},
			"data":      {"type": "object", "enabled": false}
		}
	}
}`

type document struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Status    string            `json:"status"`
	Timestamp int64             `json:"timestamp"`
	Text      string            `json:"text"`
	Data      map[string]string `json:"data"`
}

// Mirror implements formstore.Observer.
type Mirror struct {
	client  *elasticsearch.Client
	index   string
	timeout time.Duration
	logger  logger.Logger
}

func NewMirror(client *elasticsearch.Client, index string, log logger.Logger) *Mirror {
	if index == "" {
		index = DefaultIndex
	}
	return &Mirror{
		client:  client,
		index:   index,
		timeout: defaultTimeout,
		logger:  log.WithFields(map[string]interface{}{"index": index}),
	}
}

// EnsureIndex creates the index with its mapping when it does not exist.
func (m *Mirror) EnsureIndex(ctx context.Context) error {
	res, err := m.client.Indices.Exists([]string{m.index}, m.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", m.index, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = m.client.Indices.Create(
		m.index,
		m.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
		m.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", m.index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("create index", res)
	}
	m.logger.Info("search index created", nil)
	return nil
}

// Index upserts one submission.
func (m *Mirror) Index(ctx context.Context, sub models.Submission) error {
	body, err := json.Marshal(toDocument(sub))
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	res, err := m.client.Index(
		m.index,
		bytes.NewReader(body),
		m.client.Index.WithDocumentID(sub.ID),
		m.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index %s: %w", sub.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index", res)
	}
	return nil
}

// Remove deletes one document. A missing document is not an error.
func (m *Mirror) Remove(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	res, err := m.client.Delete(m.index, id, m.client.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("delete", res)
	}
	return nil
}

// Clear removes every document but keeps the index.
func (m *Mirror) Clear(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	res, err := m.client.DeleteByQuery(
		[]string{m.index},
		strings.NewReader(`{"query":{"match_all":{}}}`),
		m.client.DeleteByQuery.WithContext(ctx),
		m.client.DeleteByQuery.WithConflicts("proceed"),
	)
	if err != nil {
		return fmt.Errorf("clear %s: %w", m.index, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("clear", res)
	}
	return nil
}

// Reindex pushes every submission into the mirror and returns how many
// were indexed before the first failure.
func (m *Mirror) Reindex(ctx context.Context, subs []models.Submission) (int, error) {
	if err := m.Clear(ctx); err != nil {
		return 0, err
	}
	for i, sub := range subs {
		if err := m.Index(ctx, sub); err != nil {
			return i, err
		}
	}
	return len(subs), nil
}

// Search returns the ids of submissions whose text contains the given text,
// best match first and newest first among equals. Empty arguments do not
// constrain the result.
func (m *Mirror) Search(ctx context.Context, text string, t models.SubmissionType, status models.SubmissionStatus) ([]string, error) {
	body, err := json.Marshal(buildQuery(text, t, status))
	if err != nil {
		return nil, commonerrors.NewSearchQueryFailedError(err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	res, err := m.client.Search(
		m.client.Search.WithContext(ctx),
		m.client.Search.WithIndex(m.index),
		m.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, commonerrors.NewSearchQueryFailedError(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, commonerrors.NewSearchQueryFailedError(responseError("search", res))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, commonerrors.NewSearchQueryFailedError(fmt.Errorf("decode response: %w", err))
	}

	ids := make([]string, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}

func buildQuery(text string, t models.SubmissionType, status models.SubmissionStatus) map[string]interface{} {
	var filters []interface{}
	if t != "" {
		filters = append(filters, map[string]interface{}{"term": map[string]interface{}{"type": string(t)}})
	}
	if status != "" {
		filters = append(filters, map[string]interface{}{"term": map[string]interface{}{"status": string(status)}})
	}

	boolQuery := map[string]interface{}{}
	if len(filters) > 0 {
		boolQuery["filter"] = filters
	}
	if strings.TrimSpace(text) != "" {
		boolQuery["must"] = []interface{}{
			map[string]interface{}{
				"wildcard": map[string]interface{}{
					"text.raw": map[string]interface{}{
						"value":            "*" + wildcardEscaper.Replace(text) + "*",
						"case_insensitive": true,
					},
				},
			},
		}
		boolQuery["should"] = []interface{}{
			map[string]interface{}{
				"match": map[string]interface{}{
					"text": map[string]interface{}{
						"query":     text,
						"fuzziness": "AUTO",
					},
				},
			},
		}
	}

	return map[string]interface{}{
		"size":    maxResults,
		"_source": false,
		"query":   map[string]interface{}{"bool": boolQuery},
		"sort": []interface{}{
			map[string]interface{}{"_score": map[string]interface{}{"order": "desc"}},
			map[string]interface{}{"timestamp": map[string]interface{}{"order": "desc"}},
		},
	}
}

func toDocument(sub models.Submission) document {
	keys := sub.FieldOrder()
	values := make([]string, 0, len(keys))
	for _, k := range keys {
		values = append(values, sub.Data[k])
	}

	return document{
		ID:        sub.ID,
		Type:      string(sub.Type),
		Status:    string(sub.Status),
		Timestamp: sub.Timestamp,
		Text:      strings.Join(values, " "),
		Data:      sub.Data,
	}
}

func responseError(op string, res *esapi.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return fmt.Errorf("elasticsearch %s: %s: %s", op, res.Status(), strings.TrimSpace(string(raw)))
}

// SubmissionSaved, SubmissionDeleted and SubmissionsCleared keep the mirror
// in step with the store. Failures are logged and never reach the caller.
func (m *Mirror) SubmissionSaved(ctx context.Context, sub models.Submission) {
	if err := m.Index(ctx, sub); err != nil {
		m.logger.Warn("failed to mirror submission", map[string]interface{}{"submissionId": sub.ID, "error": err})
	}
}

func (m *Mirror) SubmissionDeleted(ctx context.Context, id string) {
	if err := m.Remove(ctx, id); err != nil {
		m.logger.Warn("failed to remove mirrored submission", map[string]interface{}{"submissionId": id, "error": err})
	}
}

func (m *Mirror) SubmissionsCleared(ctx context.Context) {
	if err := m.Clear(ctx); err != nil {
		m.logger.Warn("failed to clear search mirror", map[string]interface{}{"error": err})
	}
}
