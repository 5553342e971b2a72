// SPDX-License-Identifier: MIT
package transport

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	applog "analyzer/internal/log"
)

// WebSocketTransport implements Transport by broadcasting each payload as
// JSON to every connected client. Slow consumers are handled by dropping:
// when the broadcast queue is full the payload is discarded, the analysis
// side never blocks on a presentation socket.
type WebSocketTransport struct {
	addr      string
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan any
	done      chan struct{}
	server    *http.Server
	closeOnce sync.Once
}

// NewWebSocketTransport creates and starts a WebSocket server on addr,
// serving clients at /ws.
func NewWebSocketTransport(addr string) *WebSocketTransport {
	t := &WebSocketTransport{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Local visualization clients connect from file:// pages.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan any, 256),
		done:      make(chan struct{}),
	}
	t.start()
	return t
}

func (t *WebSocketTransport) start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", t.handleWebSocket)
	t.server = &http.Server{Addr: t.addr, Handler: mux}

	go func() {
		applog.Infof("Transport: WebSocket server listening on %s", t.addr)
		if err := t.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			applog.Errorf("Transport: WebSocket server error: %v", err)
		}
	}()

	go t.handleBroadcasts()
}

func (t *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("Transport: WebSocket upgrade error: %v", err)
		return
	}

	t.clientsMu.Lock()
	t.clients[conn] = true
	total := len(t.clients)
	t.clientsMu.Unlock()
	applog.Infof("Transport: Client connected (total %d)", total)

	// The read loop exists only to detect disconnects; clients never send.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		t.clientsMu.Lock()
		delete(t.clients, conn)
		total := len(t.clients)
		t.clientsMu.Unlock()
		conn.Close()
		applog.Infof("Transport: Client disconnected (total %d)", total)
	}()
}

func (t *WebSocketTransport) handleBroadcasts() {
	for {
		var data any
		select {
		case <-t.done:
			return
		case data = <-t.broadcast:
		}

		t.clientsMu.Lock()
		for client := range t.clients {
			if err := client.WriteJSON(data); err != nil {
				applog.Warnf("Transport: Dropping client after write error: %v", err)
				client.Close()
				delete(t.clients, client)
			}
		}
		t.clientsMu.Unlock()
	}
}

// Send queues the payload for broadcast. A full queue drops the payload; the
// next tick carries fresher data anyway. Send after Close is a no-op.
func (t *WebSocketTransport) Send(data any) error {
	select {
	case <-t.done:
		return nil
	default:
	}
	select {
	case t.broadcast <- data:
	default:
	}
	return nil
}

// Close disconnects all clients and shuts the server down. Idempotent.
func (t *WebSocketTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		applog.Infof("Transport: Closing WebSocket server")
		close(t.done)

		t.clientsMu.Lock()
		for client := range t.clients {
			client.Close()
		}
		t.clients = make(map[*websocket.Conn]bool)
		t.clientsMu.Unlock()

		if t.server != nil {
			err = t.server.Close()
		}
	})
	return err
}

var _ Transport = (*WebSocketTransport)(nil)
