// internal/lending/audit/elasticsearch_test.go
package audit

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lending-workers/internal/models"
)

// ==========================
// Fake Elasticsearch
// ==========================

type fakeES struct {
	mu          sync.Mutex
	indexExists bool
	created     string
	docs        []string
	failIndex   bool
	searchBody  string
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	body, _ := io.ReadAll(r.Body)

	switch {
	case r.Method == http.MethodHead:
		if f.indexExists {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	case r.Method == http.MethodPut:
		f.created = string(body)
		f.indexExists = true
		w.Write([]byte(`{"acknowledged":true}`))
	case strings.HasSuffix(r.URL.Path, "/_doc"):
		if f.failIndex {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"mapper_parsing_exception"}`))
			return
		}
		f.docs = append(f.docs, string(body))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"result":"created"}`))
	case strings.HasSuffix(r.URL.Path, "/_search"):
		f.searchBody = string(body)
		if !f.indexExists {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"index_not_found_exception"}`))
			return
		}
		hits := make([]string, 0, len(f.docs))
		for _, doc := range f.docs {
			hits = append(hits, `{"_source":`+doc+`}`)
		}
		w.Write([]byte(`{"hits":{"hits":[` + strings.Join(hits, ",") + `]}}`))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func setupSink(t *testing.T, fake *fakeES) *ElasticsearchSink {
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)

	sink := NewElasticsearchSink(client, "")
	sink.now = func() time.Time { return time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC) }
	return sink
}

func rejectedRecord() *models.LenderApplication {
	return &models.LenderApplication{
		ID:              "APP-1_sbi",
		ApplicationID:   "APP-1",
		LenderID:        "sbi",
		Status:          models.StatusRejected,
		RejectionReason: "Credit score below minimum",
		RawResponse:     json.RawMessage(`{"status":"REJECTED","reasons":["Credit score below minimum"]}`),
	}
}

// ==========================
// Tests
// ==========================

func TestElasticsearchSink_EnsureIndex(t *testing.T) {
	fake := &fakeES{}
	sink := setupSink(t, fake)

	require.NoError(t, sink.EnsureIndex(context.Background()))
	assert.Contains(t, fake.created, `"applicationId"`)
	assert.Equal(t, DefaultIndex, sink.Index())

	fake.created = ""
	require.NoError(t, sink.EnsureIndex(context.Background()))
	assert.Empty(t, fake.created, "existing index is left alone")
}

func TestElasticsearchSink_RecordAndHistory(t *testing.T) {
	fake := &fakeES{indexExists: true}
	sink := setupSink(t, fake)
	ctx := context.Background()

	require.NoError(t, sink.Record(ctx, rejectedRecord()))
	retried := rejectedRecord()
	retried.Status = models.StatusApproved
	retried.RetryCount = 1
	require.NoError(t, sink.Record(ctx, retried))
	require.Len(t, fake.docs, 2)

	history, err := sink.History(ctx, "APP-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.StatusRejected, history[0].Status)
	assert.Equal(t, "Credit score below minimum", history[0].RejectionReason)
	assert.JSONEq(t, `{"status":"REJECTED","reasons":["Credit score below minimum"]}`, string(history[0].RawResponse))
	assert.Equal(t, 1, history[1].RetryCount)
	assert.Contains(t, fake.searchBody, `"applicationId":"APP-1"`)
}

func TestElasticsearchSink_Errors(t *testing.T) {
	fake := &fakeES{failIndex: true}
	sink := setupSink(t, fake)
	ctx := context.Background()

	err := sink.Record(ctx, rejectedRecord())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuditIndexFailed)
	assert.Contains(t, err.Error(), "mapper_parsing_exception")

	assert.Error(t, sink.Record(ctx, nil))

	history, err := sink.History(ctx, "APP-1")
	require.NoError(t, err, "missing index reads as empty history")
	assert.Empty(t, history)
}
