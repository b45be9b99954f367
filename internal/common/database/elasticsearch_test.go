package database

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"swedana-forms/internal/common/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/_cluster/health", r.URL.Path)
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestElasticsearchPing(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"green", http.StatusOK, `{"status":"green"}`, ""},
		{"yellow single node", http.StatusOK, `{"status":"yellow"}`, ""},
		{"red", http.StatusOK, `{"status":"red"}`, "status is red"},
		{"unauthorized", http.StatusUnauthorized, `{"error":"nope"}`, "ping error"},
		{"garbage body", http.StatusOK, `not json`, "decode cluster health"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := healthServer(t, tt.status, tt.body)
			es, err := NewElasticsearch(config.ElasticsearchConfig{Addresses: []string{srv.URL}})
			require.NoError(t, err)

			err = es.Ping(context.Background())
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
