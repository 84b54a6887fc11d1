package api

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StrathCole/medianizer-go/pkg/logging"
	"github.com/StrathCole/medianizer-go/pkg/pricefeed"
)

func readJSON(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

func TestWebSocketServer_SubscribedFeedsOnly(t *testing.T) {
	ws := NewWebSocketServer(":0", logging.NewNoopLogger())
	go ws.broadcastUpdates()
	defer ws.Stop()

	server := httptest.NewServer(ws.Handler())
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(WebSocketMessage{Type: "subscribe", Feeds: []string{"LUNC/USD"}}))
	var ack map[string]string
	readJSON(t, conn, &ack)
	assert.Equal(t, "subscribed", ack["type"])

	ws.Publish([]pricefeed.Snapshot{
		{Name: "BTC/USD", Lookback: 3600},
		{Name: "LUNC/USD", Lookback: 1800},
	})

	var msg FeedUpdateMessage
	readJSON(t, conn, &msg)
	assert.Equal(t, "feed_update", msg.Type)
	require.Len(t, msg.Feeds, 1)
	assert.Equal(t, "LUNC/USD", msg.Feeds[0].Name)
	assert.Equal(t, int64(1800), msg.Feeds[0].Lookback)
}

func dialAndSubscribe(t *testing.T, url, feed string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.NoError(t, conn.WriteJSON(WebSocketMessage{Type: "subscribe", Feeds: []string{feed}}))
	var ack map[string]string
	readJSON(t, conn, &ack)
	require.Equal(t, "subscribed", ack["type"])
	return conn
}

func TestWebSocketServer_MarshalFailureSkipsOnlyThatClient(t *testing.T) {
	ws := NewWebSocketServer(":0", logging.NewNoopLogger())
	server := httptest.NewServer(ws.Handler())
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	bad := dialAndSubscribe(t, url, "bad")
	defer bad.Close()
	good := dialAndSubscribe(t, url, "good")
	defer good.Close()

	// Years past 9999 cannot be encoded as RFC 3339.
	ws.broadcast([]pricefeed.Snapshot{
		{Name: "bad", Timestamp: time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Name: "good", Lookback: 60},
	})

	var msg FeedUpdateMessage
	readJSON(t, good, &msg)
	require.Len(t, msg.Feeds, 1)
	assert.Equal(t, "good", msg.Feeds[0].Name)
}

func TestWebSocketServer_Ping(t *testing.T) {
	ws := NewWebSocketServer(":0", logging.NewNoopLogger())
	server := httptest.NewServer(ws.Handler())
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(WebSocketMessage{Type: "ping"}))
	var pong map[string]string
	readJSON(t, conn, &pong)
	assert.Equal(t, "pong", pong["type"])
}
