package newsapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopHeadlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/everything", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "upsc", r.URL.Query().Get("q"))
		assert.Equal(t, "5", r.URL.Query().Get("pageSize"))

		_, _ = w.Write([]byte(`{"status":"ok","articles":[
			{"source":{"name":"The Hindu"},"title":"UPSC calendar out","url":"https://example.com/1","publishedAt":"2026-10-01T10:00:00Z"},
			{"source":{"name":"X"},"title":"[Removed]","url":"https://example.com/2"},
			{"source":{"name":"Y"},"title":"","url":"https://example.com/3"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/v2", "key", "upsc", 5)
	got, err := c.TopHeadlines(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "UPSC calendar out", got[0].Title)
	assert.Equal(t, "The Hindu", got[0].Source)
	assert.Equal(t, 2026, got[0].PublishedAt.Year())
}

func TestTopHeadlinesErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":"error","code":"apiKeyInvalid","message":"bad key"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "key", "q", 0).TopHeadlines(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apiKeyInvalid")

	_, err = NewClient(srv.URL, "", "q", 0).TopHeadlines(context.Background())
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
