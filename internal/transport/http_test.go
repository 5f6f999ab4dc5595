package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/rpggio/traceback/internal/domain/event"
	"github.com/rpggio/traceback/internal/domain/settings"
	"github.com/rpggio/traceback/internal/ingest"
	"github.com/rpggio/traceback/internal/sqlite"
)

type testHandler struct {
	method string
	err    error
}

func (h *testHandler) Handle(_ context.Context, method string, _ json.RawMessage) (any, error) {
	h.method = method
	if h.err != nil {
		return nil, h.err
	}
	return map[string]string{"method": method}, nil
}

type testCodedError struct {
	code string
}

func (e testCodedError) Error() string             { return e.code + ": failed" }
func (e testCodedError) CodeValue() string         { return e.code }
func (e testCodedError) MessageValue() string      { return "failed" }
func (e testCodedError) DetailsValue() any         { return nil }
func (e testCodedError) RecoveryHintValue() string { return "try again" }

func newOrchestrator(t *testing.T) *ingest.Orchestrator {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations())

	return ingest.NewOrchestrator(ingest.Sources{}, ingest.Stores{
		Events:   event.NewService(sqlite.NewEventRepository(db), nil),
		Contacts: sqlite.NewContactRepository(db),
		State:    sqlite.NewSyncStateRepository(db),
		Orgs:     settings.NewService(sqlite.NewSettingsRepository(db), sqlite.NewWorkDomainRepository(db), nil),
	}, ingest.Options{})
}

func postRPC(t *testing.T, url, token, body string) Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url+"/rpc", bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHTTPServer_RPC(t *testing.T) {
	handler := &testHandler{}
	server := httptest.NewServer(NewServer(Options{Handler: handler, Token: "secret"}))
	t.Cleanup(server.Close)

	resp := postRPC(t, server.URL, "secret", `{"jsonrpc":"2.0","method":"list_projects","id":1}`)
	require.Nil(t, resp.Error)
	require.Equal(t, "list_projects", handler.method)

	handler.err = testCodedError{code: "VALIDATION_ERROR"}
	resp = postRPC(t, server.URL, "secret", `{"jsonrpc":"2.0","method":"list_events","id":2}`)
	require.NotNil(t, resp.Error)
	require.Equal(t, ErrInvalidParams, resp.Error.Code)

	handler.err = testCodedError{code: "METHOD_NOT_FOUND"}
	resp = postRPC(t, server.URL, "secret", `{"jsonrpc":"2.0","method":"nope","id":3}`)
	require.Equal(t, ErrMethodNotFound, resp.Error.Code)

	resp = postRPC(t, server.URL, "secret", `not json`)
	require.Equal(t, ErrParseCode, resp.Error.Code)

	req, err := http.NewRequest(http.MethodPost, server.URL+"/rpc", strings.NewReader(`{}`))
	require.NoError(t, err)
	unauth, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	unauth.Body.Close()
	require.Equal(t, http.StatusUnauthorized, unauth.StatusCode)
}

func TestHTTPServer_Health(t *testing.T) {
	server := httptest.NewServer(NewServer(Options{Handler: &testHandler{}, Token: "secret"}))
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHTTPServer_SyncRoutes(t *testing.T) {
	orch := newOrchestrator(t)
	server := httptest.NewServer(NewServer(Options{Sync: orch}))
	t.Cleanup(server.Close)

	resp, err := http.Post(server.URL+"/sync", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool {
		report, err := orch.Status(context.Background())
		return err == nil && !report.Running && report.LastResult != nil
	}, 5*time.Second, 10*time.Millisecond)

	resp, err = http.Get(server.URL + "/sync/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report ingest.Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	require.NotNil(t, report.LastSyncTime)
	require.Equal(t, ingest.PhaseCompleted, report.LastResult.State)

	cancel, err := http.Post(server.URL+"/sync/cancel", "application/json", nil)
	require.NoError(t, err)
	defer cancel.Body.Close()
	var cancelled map[string]bool
	require.NoError(t, json.NewDecoder(cancel.Body).Decode(&cancelled))
	require.False(t, cancelled["cancelled"])
}

func TestHTTPServer_SyncEventsStream(t *testing.T) {
	orch := newOrchestrator(t)
	server := httptest.NewServer(NewServer(Options{Sync: orch, Token: "secret"}))
	t.Cleanup(server.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	url := fmt.Sprintf("ws%s/sync/events?token=secret", strings.TrimPrefix(server.URL, "http"))
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	require.Eventually(t, func() bool { return orch.Bus().Subscribers() == 1 }, 5*time.Second, 10*time.Millisecond)

	_, err = orch.Start(ctx)
	require.NoError(t, err)

	var kinds []ingest.Kind
	for {
		var msg ingest.Message
		require.NoError(t, wsjson.Read(ctx, conn, &msg))
		kinds = append(kinds, msg.Kind)
		if msg.Kind == ingest.KindCompleted || msg.Kind == ingest.KindFailed {
			break
		}
	}
	require.Equal(t, ingest.KindStarted, kinds[0])
	require.Equal(t, ingest.KindCompleted, kinds[len(kinds)-1])

	conn.Close(websocket.StatusNormalClosure, "")
	require.Eventually(t, func() bool { return orch.Bus().Subscribers() == 0 }, 5*time.Second, 10*time.Millisecond)
}
