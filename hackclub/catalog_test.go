package hackclub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modelListJSON = `{"data":[
	{"id":"google/gemini-2.5-flash","name":"Google: Gemini 2.5 Flash","description":"fast","context_length":1048576,
	 "architecture":{"modality":"text+image->text","input_modalities":["text","image"],"output_modalities":["text"]}},
	{"id":"qwen/qwen3-32b","name":"Qwen: Qwen3 32B","description":"open","context_length":32768,
	 "architecture":{"modality":"text->text","input_modalities":["text"],"output_modalities":["text"]}}
]}`

func TestCatalogRefreshDerivesChefFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(modelListJSON))
	}))
	defer srv.Close()

	catalog := NewCatalog(NewClient(srv.URL, nil), nil)
	require.NoError(t, catalog.Refresh(context.Background()))

	list := catalog.Models()
	require.Len(t, list, 2)
	assert.Equal(t, "Google", list[0].Chef)
	assert.Equal(t, "google", list[0].ChefSlug)
	assert.Equal(t, "Qwen", list[1].Chef)
	assert.Equal(t, "qwen", list[1].ChefSlug)
	assert.Equal(t, []string{"text", "image"}, list[0].Architecture.InputModalities)
}

func TestCatalogRefreshFailureKeepsPreviousList(t *testing.T) {
	fail := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		w.Write([]byte(modelListJSON))
	}))
	defer srv.Close()

	catalog := NewCatalog(NewClient(srv.URL, nil), nil)
	require.NoError(t, catalog.Refresh(context.Background()))

	fail = true
	require.Error(t, catalog.Refresh(context.Background()))
	assert.Len(t, catalog.Models(), 2)
}

func TestCatalogLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(modelListJSON))
	}))
	defer srv.Close()

	catalog := NewCatalog(NewClient(srv.URL, nil), nil)
	require.NoError(t, catalog.Refresh(context.Background()))

	m, ok := catalog.Lookup("qwen/qwen3-32b")
	require.True(t, ok)
	assert.Equal(t, 32768, m.ContextLength)

	_, ok = catalog.Lookup("missing/model")
	assert.False(t, ok)
}

func TestGetUsageMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stats", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		w.Write([]byte(`{"totalRequests":12,"totalTokens":3400,"totalPromptTokens":3000,"totalCompletionTokens":400}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	metrics, err := client.GetUsageMetrics(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, 12, metrics.TotalRequests)
	assert.Equal(t, 3400, metrics.TotalTokens)
}

func TestGetUsageMetricsPlainTextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("rate limited"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	_, err := client.GetUsageMetrics(context.Background(), "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}
