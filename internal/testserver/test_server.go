// Package testserver runs the full HTTP surface over a temporary database
// for end-to-end tests.
package testserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/traceback/internal/app"
	"github.com/rpggio/traceback/internal/config"
	"github.com/rpggio/traceback/internal/transport"
)

type TestServer struct {
	Server *httptest.Server
	App    *app.App
	Token  string
	// Dir holds the database and any fixture files.
	Dir string
}

// Option adjusts the configuration before the app is built.
type Option func(cfg *config.Config, dir string)

// WithICS writes body to a fixture file and configures it as the only
// calendar source.
func WithICS(body string) Option {
	return func(cfg *config.Config, dir string) {
		path := filepath.Join(dir, "calendar.ics")
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			panic(err)
		}
		cfg.Calendar.Provider = config.CalendarICS
		cfg.Calendar.ICSSources = []string{path}
	}
}

func New(t *testing.T, token string, opts ...Option) *TestServer {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Transport.Mode = "http"
	cfg.Server.Token = token
	cfg.DB.Path = filepath.Join(dir, "traceback.db")
	cfg.Calendar.Provider = config.CalendarNone
	cfg.Paths.RepositoryRoot = filepath.Join(dir, "src")
	cfg.Paths.BrowserProfile = filepath.Join(dir, "profile")
	for _, opt := range opts {
		opt(&cfg, dir)
	}

	a, err := app.New(context.Background(), cfg, nil)
	require.NoError(t, err)

	server := httptest.NewServer(a.Router())
	t.Cleanup(func() {
		server.Close()
		_ = a.Close()
	})

	return &TestServer{Server: server, App: a, Token: token, Dir: dir}
}

// Do sends an authenticated request.
func (ts *TestServer) Do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.Server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if ts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+ts.Token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// RPC calls a tool through the JSON-RPC endpoint.
func (ts *TestServer) RPC(t *testing.T, method string, params any) transport.Response {
	t.Helper()
	payload := map[string]any{"jsonrpc": "2.0", "method": method, "id": 1}
	if params != nil {
		payload["params"] = params
	}
	resp := ts.Do(t, http.MethodPost, "/rpc", payload)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out transport.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// Call calls a tool and decodes its result into out, failing on an RPC error.
func (ts *TestServer) Call(t *testing.T, method string, params, out any) {
	t.Helper()
	resp := ts.RPC(t, method, params)
	require.Nil(t, resp.Error, "rpc error: %+v", resp.Error)
	if out == nil {
		return
	}
	data, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, out))
}
