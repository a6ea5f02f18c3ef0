package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whiterabbit/internal/config"
)

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "atlantis", r.URL.Query().Get("q"))
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"query":"atlantis","total":2,"results":[
			{"id":"l-atlantic","type":"Location","text":"Atlantic Ocean","score":0.4},
			{"id":"m-atlantis","type":"Mystery","text":"Atlantis","score":1}]}`))
	})
	mux.HandleFunc("GET /api/mysteries/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "m-atlantis" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"NotFoundError","message":"Mystery m-nope not found","status_code":404}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"m-atlantis","title":"Atlantis","status":"unresolved","locations":[],"time_periods":[],"categories":[],"similar_mysteries":[]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// run executes the root command against a config pointing at baseURL
func run(t *testing.T, baseURL string, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvAPIURL, "")
	t.Setenv(config.EnvAPIKey, "")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	cfg := config.DefaultConfig()
	cfg.API.BaseURL = baseURL
	cfg.Log.Level = "error"
	cfg.Log.File = filepath.Join(dir, "whiterabbit.log")
	require.NoError(t, config.NewConfigService(path, nil).Save(cfg))

	var out, errOut bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&errOut)
	RootCmd.SetArgs(append([]string{"--config", path}, args...))
	t.Cleanup(func() {
		RootCmd.SetOut(nil)
		RootCmd.SetErr(nil)
		RootCmd.SetArgs(nil)
	})

	err := RootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSearchCommandPrintsGroups(t *testing.T) {
	srv := newBackend(t)

	out, err := run(t, srv.URL, "search", "  atlantis ", "--limit", "3")
	require.NoError(t, err)

	var got searchOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "atlantis", got.Query)
	assert.Equal(t, 2, got.Total)
	require.Len(t, got.Groups, 2)
	assert.Equal(t, "Mystery", string(got.Groups[0].Category))
	assert.Equal(t, "m-atlantis", got.Groups[0].Items[0].ID)
	assert.Equal(t, "Location", string(got.Groups[1].Category))
}

func TestSearchCommandRejectsBlankQuery(t *testing.T) {
	_, err := run(t, "http://127.0.0.1:1", "search", "   ")
	assert.EqualError(t, err, "query must not be blank")
}

func TestMysteryCommand(t *testing.T) {
	srv := newBackend(t)

	out, err := run(t, srv.URL, "mystery", "m-atlantis")
	require.NoError(t, err)
	assert.Contains(t, out, `"title": "Atlantis"`)

	_, err = run(t, srv.URL, "mystery", "m-nope")
	assert.EqualError(t, err, "Mystery not found")
}

func TestConfigCommandWrites(t *testing.T) {
	out, err := run(t, "http://backend.test", "config")
	require.NoError(t, err)
	assert.Contains(t, out, "[api]")
	assert.Contains(t, out, "http://backend.test")

	t.Setenv(config.EnvAPIURL, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")
	RootCmd.SetArgs([]string{"--config", path, "config", "--write"})
	RootCmd.SetErr(&bytes.Buffer{})
	t.Cleanup(func() { RootCmd.SetArgs(nil); RootCmd.SetErr(nil) })
	require.NoError(t, RootCmd.ExecuteContext(context.Background()))

	_, err = os.Stat(path)
	require.NoError(t, err)
}
