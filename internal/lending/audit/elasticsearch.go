// internal/lending/audit/elasticsearch.go
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"lending-workers/internal/models"
)

const (
	DefaultIndex    = "lender-responses"
	maxHistoryHits  = 500
	indexMappingDoc = `{
	"mappings": {
		"properties": {
			"recordId":      {"type": "keyword"},
			"applicationId": {"type": "keyword"},
			"lenderId":      {"type": "keyword"},
			"status":        {"type": "keyword"},
			"retryCount":    {"type": "integer"},
			"rawResponse":   {"type": "object", "enabled": false},
			"recordedAt":    {"type": "date"}
		}
	}
}`
)

var ErrAuditIndexFailed = errors.New("AUDIT_INDEX_FAILED")

// Entry is one observed lender outcome. Every decision, failure, retry result
// and webhook push is appended so the live record can be overwritten freely.
type Entry struct {
	RecordID        string              `json:"recordId"`
	ApplicationID   string              `json:"applicationId"`
	LenderID        string              `json:"lenderId"`
	Status          models.LenderStatus `json:"status"`
	RejectionReason string              `json:"rejectionReason,omitempty"`
	RetryCount      int                 `json:"retryCount"`
	RawResponse     json.RawMessage     `json:"rawResponse,omitempty"`
	RecordedAt      time.Time           `json:"recordedAt"`
}

type ElasticsearchSink struct {
	client *elasticsearch.Client
	index  string
	now    func() time.Time
}

func NewElasticsearchSink(client *elasticsearch.Client, index string) *ElasticsearchSink {
	if index == "" {
		index = DefaultIndex
	}
	return &ElasticsearchSink{client: client, index: index, now: time.Now}
}

func (s *ElasticsearchSink) Index() string {
	return s.index
}

// EnsureIndex creates the audit index with its mapping when it does not exist.
func (s *ElasticsearchSink) EnsureIndex(ctx context.Context) error {
	res, err := s.client.Indices.Exists([]string{s.index}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: check index %s: %w", ErrAuditIndexFailed, s.index, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("%w: check index %s: %s", ErrAuditIndexFailed, s.index, res.Status())
	}

	res, err = s.client.Indices.Create(s.index,
		s.client.Indices.Create.WithContext(ctx),
		s.client.Indices.Create.WithBody(strings.NewReader(indexMappingDoc)),
	)
	if err != nil {
		return fmt.Errorf("%w: create index %s: %w", ErrAuditIndexFailed, s.index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%w: create index %s: %s", ErrAuditIndexFailed, s.index, responseError(res))
	}
	return nil
}

func (s *ElasticsearchSink) Record(ctx context.Context, rec *models.LenderApplication) error {
	if rec == nil {
		return errors.New("audit record: nil record")
	}
	entry := Entry{
		RecordID:        rec.ID,
		ApplicationID:   rec.ApplicationID,
		LenderID:        rec.LenderID,
		Status:          rec.Status,
		RejectionReason: rec.RejectionReason,
		RetryCount:      rec.RetryCount,
		RawResponse:     rec.RawResponse,
		RecordedAt:      s.now().UTC(),
	}
	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}

	res, err := s.client.Index(s.index, bytes.NewReader(body), s.client.Index.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: index %s: %w", ErrAuditIndexFailed, rec.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%w: index %s: %s", ErrAuditIndexFailed, rec.ID, responseError(res))
	}
	return nil
}

// History returns the audit trail of an application, oldest first.
func (s *ElasticsearchSink) History(ctx context.Context, applicationID string) ([]Entry, error) {
	query := map[string]interface{}{
		"size": maxHistoryHits,
		"query": map[string]interface{}{
			"term": map[string]interface{}{"applicationId": applicationID},
		},
		"sort": []interface{}{
			map[string]interface{}{"recordedAt": map[string]interface{}{"order": "asc"}},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, fmt.Errorf("encode history query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: search %s: %w", ErrAuditIndexFailed, s.index, err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return []Entry{}, nil
	}
	if res.IsError() {
		return nil, fmt.Errorf("%w: search %s: %s", ErrAuditIndexFailed, s.index, responseError(res))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source Entry `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]Entry, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		out = append(out, hit.Source)
	}
	return out, nil
}

func responseError(res *esapi.Response) string {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
	if len(body) == 0 {
		return res.Status()
	}
	return res.Status() + ": " + string(body)
}
