package es

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prima-facie-go/internal/config"
)

type fakeES struct {
	mu     sync.Mutex
	bodies []string
	paths  []string
	reply  string
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.bodies = append(f.bodies, string(b))
	f.paths = append(f.paths, r.Method+" "+r.URL.Path)
	f.mu.Unlock()
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, f.reply)
}

func newSearcher(t *testing.T, f *fakeES) *Searcher {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	s, err := NewSearcher(config.ElasticsearchConfig{Addresses: srv.URL, IndexName: "documents"})
	require.NoError(t, err)
	return s
}

func TestSearchDocumentsFiltersByTenant(t *testing.T) {
	f := &fakeES{reply: `{"hits":{"hits":[
		{"_score":3.2,"_source":{"document_id":"d1","law_firm_id":"firm-1","matter_id":"m1","name":"contrato.pdf"},"highlight":{"content":["cláusula de <em>rescisão</em>"]}},
		{"_score":1.0,"_source":{"document_id":"d9","law_firm_id":"firm-2","name":"outro.pdf"}}
	]}}`}
	s := newSearcher(t, f)

	hits, err := s.SearchDocuments(context.Background(), "firm-1", "rescisão", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "d1", hits[0].DocumentID)
	assert.Equal(t, "m1", hits[0].MatterID)
	assert.Equal(t, "cláusula de <em>rescisão</em>", hits[0].Snippet)
	assert.InDelta(t, 3.2, hits[0].Score, 0.001)

	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.bodies)
	last := f.bodies[len(f.bodies)-1]
	assert.Equal(t, "POST /documents/_search", f.paths[len(f.paths)-1])

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(last), &body))
	assert.EqualValues(t, 5, body["size"])
	assert.True(t, strings.Contains(last, `"term":{"law_firm_id":"firm-1"}`), last)
}

func TestSearchDocumentsRequiresTenant(t *testing.T) {
	s := newSearcher(t, &fakeES{reply: `{}`})
	_, err := s.SearchDocuments(context.Background(), "", "x", 5)
	assert.Error(t, err)
}

func TestIndexDocumentRequiresTenant(t *testing.T) {
	s := newSearcher(t, &fakeES{reply: `{"result":"created"}`})
	assert.Error(t, s.IndexDocument(context.Background(), IndexedDocument{DocumentID: "d1"}))
	assert.NoError(t, s.IndexDocument(context.Background(), IndexedDocument{DocumentID: "d1", LawFirmID: "f"}))
}
