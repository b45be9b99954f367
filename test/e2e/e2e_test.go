// Package e2e drives the HTTP service against the backends named in the
// loaded configuration. It is skipped unless SWEDANA_E2E is set, e.g.
//
//	SWEDANA_E2E=1 go test ./test/e2e/...
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"swedana-forms/internal/api"
	"swedana-forms/internal/common/config"
	"swedana-forms/internal/common/database"
	"swedana-forms/internal/common/logger"
	"swedana-forms/internal/common/validation"
	"swedana-forms/internal/formstore"
	"swedana-forms/internal/models"
	"swedana-forms/internal/search"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if os.Getenv("SWEDANA_E2E") == "" {
		fmt.Println("SWEDANA_E2E not set, skipping end-to-end tests")
		os.Exit(0)
	}
	os.Exit(m.Run())
}

type env struct {
	server *httptest.Server
	store  *formstore.Store
	mirror *search.Mirror
}

func setup(t *testing.T) *env {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := config.Load()
	require.NoError(t, err)
	t.Logf("🔧 storage backend: %s", cfg.Storage.Backend)

	log := logger.NewTestLogger(t)
	// Every run writes under its own key so a shared backend is left intact.
	opts := []formstore.Option{formstore.WithKey(fmt.Sprintf("e2e_%d", time.Now().UnixNano()))}

	e := &env{}
	if cfg.Search.Enabled {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		require.NoError(t, err, "❌ Elasticsearch client creation failed")
		require.NoError(t, es.Ping(ctx), "❌ Elasticsearch ping failed")

		e.mirror = search.NewMirror(es.Client, cfg.Search.Index+"-e2e", log)
		require.NoError(t, e.mirror.EnsureIndex(ctx))
		require.NoError(t, e.mirror.Clear(ctx))
		opts = append(opts, formstore.WithObserver(e.mirror))
		t.Log("✅ Elasticsearch connected")
	}

	store, closeFn, err := formstore.NewFromConfig(ctx, cfg, log, opts...)
	require.NoError(t, err, "❌ storage backend unavailable")
	t.Cleanup(func() {
		store.ClearAll(context.Background())
		closeFn()
	})
	e.store = store
	t.Log("✅ storage backend connected")

	v, err := validation.NewValidator()
	require.NoError(t, err)

	apiOpts := api.Options{
		Store:          store,
		Validator:      v,
		Logger:         log,
		ExportLocation: cfg.Export.ExportLocation(),
	}
	if e.mirror != nil {
		apiOpts.Search = e.mirror
	}
	e.server = httptest.NewServer(api.NewRouter(apiOpts))
	t.Cleanup(e.server.Close)
	return e
}

func (e *env) call(t *testing.T, method, path string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.server.URL+path, r)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	res, err := e.server.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, raw
}

func TestSubmissionLifecycle(t *testing.T) {
	e := setup(t)
	t.Log("🚀 Starting submission lifecycle against real backends...")

	// 1. Intake
	forms := []map[string]interface{}{
		{"type": "order", "data": map[string]string{"name": "Priya Sharma", "email": "priya@example.com", "product": "Sanctuary 2"}},
		{"interest": "consultation", "data": map[string]string{"name": "Erik Lind", "phone": "+46 70 123 45 67"}},
		{"data": map[string]string{"name": "Anna Berg", "email": "anna@example.se", "message": "Leveranstid till Malmö?"}},
	}
	ids := make([]string, 0, len(forms))
	for _, f := range forms {
		res, raw := e.call(t, http.MethodPost, "/api/submissions", f)
		require.Equal(t, http.StatusCreated, res.StatusCode, string(raw))
		var sub models.Submission
		require.NoError(t, json.Unmarshal(raw, &sub))
		assert.Equal(t, models.StatusNew, sub.Status)
		ids = append(ids, sub.ID)
	}
	t.Logf("✅ created %d submissions", len(ids))

	res, raw := e.call(t, http.MethodPost, "/api/submissions", map[string]interface{}{
		"type": "order", "data": map[string]string{"name": "No Product", "email": "x@example.com"},
	})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode, string(raw))

	// 2. Read back
	res, raw = e.call(t, http.MethodGet, "/api/admin/submissions", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var all []models.Submission
	require.NoError(t, json.Unmarshal(raw, &all))
	require.Len(t, all, 3)
	// newest first
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, models.SubmissionTypeContact, all[0].Type)
	assert.Equal(t, models.SubmissionTypeConsultation, all[1].Type)

	res, raw = e.call(t, http.MethodGet, "/api/admin/submissions/"+ids[0], nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var viewed models.Submission
	require.NoError(t, json.Unmarshal(raw, &viewed))
	assert.Equal(t, models.StatusViewed, viewed.Status)

	// 3. Search, through the mirror when one is configured
	if e.mirror != nil {
		require.Eventually(t, func() bool {
			res, raw := e.call(t, http.MethodGet, "/api/admin/submissions?q=malm%C3%B6", nil)
			var found []models.Submission
			return res.StatusCode == http.StatusOK &&
				json.Unmarshal(raw, &found) == nil &&
				len(found) == 1 && found[0].ID == ids[2]
		}, 10*time.Second, 250*time.Millisecond, "mirror never returned the contact")
		t.Log("✅ Elasticsearch search matched")
	}

	// 4. Status, stats and export
	res, raw = e.call(t, http.MethodPut, "/api/admin/submissions/"+ids[1]+"/status", map[string]string{"status": "responded"})
	require.Equal(t, http.StatusOK, res.StatusCode, string(raw))

	res, raw = e.call(t, http.MethodGet, "/api/admin/stats", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var stats models.Stats
	require.NoError(t, json.Unmarshal(raw, &stats))
	assert.Equal(t, models.Stats{
		Total: 3, New: 1, Viewed: 1, Responded: 1,
		Orders: 1, Contacts: 1, Consultations: 1,
	}, stats)

	res, raw = e.call(t, http.MethodGet, "/api/admin/export.csv", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	lines := strings.Split(string(raw), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "ID,Type,Date,Status,"))

	// 5. Removal
	res, raw = e.call(t, http.MethodDelete, "/api/admin/submissions/"+ids[0], nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"deleted":true}`, string(raw))
	_, ok := e.store.Get(context.Background(), ids[0])
	assert.False(t, ok)

	res, _ = e.call(t, http.MethodDelete, "/api/admin/submissions", nil)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	assert.Empty(t, e.store.ReadAll(context.Background()))

	t.Log("✅ submission lifecycle passed")
}
