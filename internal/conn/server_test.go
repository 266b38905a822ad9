package conn_test

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tobsdb/sqlanalyzer/pkg/protocol"
	"google.golang.org/grpc/codes"
	"gotest.tools/assert"
)

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ws_url := "ws" + strings.TrimPrefix(url, "http") + "/"
	c, _, err := websocket.DefaultDialer.Dial(ws_url, nil)
	assert.NilError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func roundTrip(t *testing.T, c *websocket.Conn, req map[string]any) protocol.RawResponse {
	t.Helper()
	assert.NilError(t, c.WriteJSON(req))
	var res protocol.RawResponse
	assert.NilError(t, c.ReadJSON(&res))
	return res
}

func TestHealth(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Handler())
	defer ts.Close()

	res, err := http.Get(ts.URL + "/health")
	assert.NilError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	assert.NilError(t, err)
	assert.Equal(t, res.StatusCode, http.StatusOK)
	assert.Equal(t, string(body), "ok")
}

func TestWebsocketSession(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Handler())
	defer ts.Close()
	c := dial(t, ts.URL)

	res := roundTrip(t, c, map[string]any{"action": protocol.ActionTestConnection, "__sqlanalyzer_req_id__": 7})
	assert.Equal(t, res.Code, codes.OK)
	assert.Equal(t, res.ReqID, 7)

	res = roundTrip(t, c, map[string]any{
		"action":                 protocol.ActionRegisterCatalog,
		"catalog":                sampleCatalog(t),
		"__sqlanalyzer_req_id__": 8,
	})
	assert.Equal(t, res.Code, codes.OK, res.Message)
	assert.Equal(t, res.ReqID, 8)
	var registered protocol.RegisterCatalogResponse
	assert.NilError(t, json.Unmarshal(res.Data, &registered))
	assert.Equal(t, registered.RegisteredID, int64(1))

	res = roundTrip(t, c, map[string]any{
		"action":              protocol.ActionAnalyze,
		"sqlStatement":        valid_sql,
		"registeredCatalogId": registered.RegisteredID,
	})
	assert.Equal(t, res.Code, codes.OK, res.Message)
	var analyzed protocol.AnalyzeResponse
	assert.NilError(t, json.Unmarshal(res.Data, &analyzed))
	assert.Equal(t, len(analyzed.OutputColumns), 3)
}

func TestWebsocketMalformedRequest(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Handler())
	defer ts.Close()
	c := dial(t, ts.URL)

	assert.NilError(t, c.WriteMessage(websocket.TextMessage, []byte("not json")))
	var res protocol.RawResponse
	assert.NilError(t, c.ReadJSON(&res))
	assert.Equal(t, res.Code, codes.InvalidArgument)

	// the connection stays usable
	res = roundTrip(t, c, map[string]any{"action": protocol.ActionListCatalogs})
	assert.Equal(t, res.Code, codes.OK)
}

func TestServeShutdown(t *testing.T) {
	s := newTestServer(t)
	l, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NilError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, l) }()

	url := "http://" + l.Addr().String()
	c := dial(t, url)
	res := roundTrip(t, c, map[string]any{"action": protocol.ActionTestConnection})
	assert.Equal(t, res.Code, codes.OK)
	assert.Equal(t, s.ConnCount(), 1)

	cancel()
	select {
	case err := <-done:
		assert.NilError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}

	_, _, err = c.ReadMessage()
	assert.Assert(t, err != nil)
}
