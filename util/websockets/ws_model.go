package websockets

import (
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// Message types
const (
	MsgTypeSubscribe  = "subscribe"
	MsgTypeSubscribed = "subscribed"
	MsgTypeInvalidate = "invalidate"
)

// Client is one connected browser tab. A client without prefixes receives
// every invalidation notice.
type Client struct {
	Conn      *websocket.Conn
	SessionID string
	Prefixes  [][]string
}

func (c *Client) wants(key []string) bool {
	if len(c.Prefixes) == 0 {
		return true
	}
	for _, p := range c.Prefixes {
		if hasPrefix(key, p) {
			return true
		}
	}
	return false
}

type WebSocketManager struct {
	clients    map[*websocket.Conn]*Client
	broadcast  chan Message
	register   chan *Client
	unregister chan *websocket.Conn
	done       chan struct{}
	mu         sync.Mutex
}

// Message is both the subscribe request sent by clients and the notice sent
// to them.
type Message struct {
	Type string   `json:"type"`
	Key  []string `json:"key,omitempty"`
}

func hasPrefix(key, prefix []string) bool {
	if len(prefix) > len(key) {
		return false
	}
	return strings.Join(key[:len(prefix)], "\x00") == strings.Join(prefix, "\x00")
}
