package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeES struct {
	mu    sync.Mutex
	calls []string
	last  map[string]any
	hitID string
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
	if body, _ := io.ReadAll(r.Body); len(body) > 0 {
		f.last = map[string]any{}
		_ = json.Unmarshal(body, &f.last)
	}
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.URL.Path == "/":
		_, _ = io.WriteString(w, `{"version":{"number":"9.0.0"},"tagline":"You Know, for Search"}`)
	case r.URL.Path == "/products/_search":
		_, _ = io.WriteString(w, `{"hits":{"total":{"value":1},"hits":[{"_id":"`+f.hitID+`"},{"_id":"not-a-uuid"}]}}`)
	case r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"result":"not_found"}`)
	default:
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"result":"created"}`)
	}
}

func newIndex(t *testing.T) (*Index, *fakeES) {
	t.Helper()
	fake := &fakeES{hitID: uuid.NewString()}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), srv.URL, "", "")
	require.NoError(t, err)
	return &Index{ES: client, Name: "products"}, fake
}

func TestIndex_IndexAndDelete(t *testing.T) {
	t.Parallel()

	ix, fake := newIndex(t)
	id := uuid.New()

	require.NoError(t, ix.IndexProduct(context.Background(), ProductDoc{ID: id.String(), Name: "Túi cói", NameNormalized: "tui coi"}))
	require.NoError(t, ix.DeleteProduct(context.Background(), id))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Contains(t, fake.calls, "PUT /products/_doc/"+id.String())
	assert.Contains(t, fake.calls, "DELETE /products/_doc/"+id.String())
}

func TestIndex_Search(t *testing.T) {
	t.Parallel()

	ix, fake := newIndex(t)

	total, ids, err := ix.Search(context.Background(), "tui coi", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, ids, 1)
	assert.Equal(t, fake.hitID, ids[0].String())

	fake.mu.Lock()
	defer fake.mu.Unlock()
	q := fake.last["query"].(map[string]any)["multi_match"].(map[string]any)
	assert.Equal(t, "tui coi", q["query"])
	assert.Equal(t, "AUTO", q["fuzziness"])
}
