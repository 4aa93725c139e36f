package websockets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startManager(t *testing.T) (*WebSocketManager, string) {
	t.Helper()

	manager := NewWebSocketManager()
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(manager.HandleConnections))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return manager, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string, key ...string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, conn.WriteJSON(Message{Type: MsgTypeSubscribe, Key: key}))
	var ack Message
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&ack))
	assert.Equal(t, MsgTypeSubscribed, ack.Type)
	return conn
}

func TestNotifyInvalidated(t *testing.T) {
	manager, url := startManager(t)

	all := dial(t, url)
	detail := dial(t, url, "recruitDetail")
	assert.Equal(t, 2, manager.Len())

	manager.NotifyInvalidated([]string{"bestGroup"})
	manager.NotifyInvalidated([]string{"recruitDetail", "7"})

	var got Message
	require.NoError(t, all.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, all.ReadJSON(&got))
	assert.Equal(t, Message{Type: MsgTypeInvalidate, Key: []string{"bestGroup"}}, got)
	require.NoError(t, all.ReadJSON(&got))
	assert.Equal(t, []string{"recruitDetail", "7"}, got.Key)

	// the filtered client skips bestGroup
	require.NoError(t, detail.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, detail.ReadJSON(&got))
	assert.Equal(t, Message{Type: MsgTypeInvalidate, Key: []string{"recruitDetail", "7"}}, got)
}

func TestClientWants(t *testing.T) {
	c := &Client{}
	assert.True(t, c.wants([]string{"anything"}))

	c.Prefixes = [][]string{{"group", "search"}}
	assert.True(t, c.wants([]string{"group", "search", "result"}))
	assert.False(t, c.wants([]string{"group"}))
	assert.False(t, c.wants([]string{"book", "search"}))
}

func TestNotifyAfterStopDoesNotBlock(t *testing.T) {
	manager := NewWebSocketManager()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		manager.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	for i := 0; i < 100; i++ {
		manager.NotifyInvalidated([]string{"bestGroup"})
	}
}
