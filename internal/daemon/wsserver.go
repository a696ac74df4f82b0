package daemon

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSRegistry tracks connected WebSocket clients by agent ID, mirroring
// ClientRegistry's role for the Unix socket transport. An agent may hold
// more than one open WebSocket at a time (e.g. a dashboard tab plus a
// CLI integration), so each agent ID maps to a slice of connections.
type WSRegistry struct {
	mu      sync.RWMutex
	clients map[string][]*websocket.Conn
}

// NewWSRegistry creates an empty WebSocket client registry.
func NewWSRegistry() *WSRegistry {
	return &WSRegistry{clients: make(map[string][]*websocket.Conn)}
}

// Register adds a connected WebSocket client for an agent.
func (r *WSRegistry) Register(agentID string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[agentID] = append(r.clients[agentID], conn)
}

// Unregister removes a WebSocket client from an agent's connection set.
func (r *WSRegistry) Unregister(agentID string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conns := r.clients[agentID]
	for i, c := range conns {
		if c == conn {
			r.clients[agentID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(r.clients[agentID]) == 0 {
		delete(r.clients, agentID)
	}
}

// Notify pushes a mail-arrival notification to every WebSocket connection
// registered for an agent. A missing agent is not an error: the message
// is already durable in the inbox and will be seen on the next poll.
func (r *WSRegistry) Notify(agentID string, notification *Notification) error {
	r.mu.RLock()
	conns := append([]*websocket.Conn(nil), r.clients[agentID]...)
	r.mu.RUnlock()

	if len(conns) == 0 {
		return nil
	}

	payload := map[string]any{
		"jsonrpc": "2.0",
		"method":  notification.Method,
		"params":  notification.Params,
	}

	var firstErr error
	for _, conn := range conns {
		if err := conn.WriteJSON(payload); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("write websocket notification: %w", err)
		}
	}
	return firstErr
}

// WSServer is a secondary, push-only transport for mail-arrival
// notifications, alongside the primary Unix socket RPC server. It never
// carries a request/response round trip: agents still call send_message,
// get_inbox, and the rest over the Unix socket. A connected WebSocket
// client exists purely to be told the moment new mail lands, without
// polling, e.g. for a future web dashboard.
type WSServer struct {
	registry *WSRegistry
	upgrader websocket.Upgrader

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
	port     int
}

// NewWSServer creates a WebSocket push server. Pass its registry to
// Broadcaster so mail notifications reach both transports.
func NewWSServer(registry *WSRegistry) *WSServer {
	return &WSServer{
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Agents connect from the same machine over localhost; there
			// is no browser-origin boundary to enforce here.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Start binds an OS-assigned localhost port and begins serving /ws.
func (w *WSServer) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("listen for websocket push server: %w", err)
	}

	w.mu.Lock()
	w.listener = listener
	w.port = listener.Addr().(*net.TCPAddr).Port

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", w.handleWS)
	w.server = &http.Server{Handler: mux}
	w.mu.Unlock()

	go func() {
		_ = w.server.Serve(listener)
	}()
	return nil
}

// Stop shuts the push server down, closing any open connections.
func (w *WSServer) Stop() error {
	w.mu.Lock()
	server := w.server
	w.mu.Unlock()

	if server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

// Port returns the bound TCP port, valid once Start has returned.
func (w *WSServer) Port() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.port
}

// handleWS upgrades a single connection and keeps it registered until it
// closes. The ?agent= query parameter identifies which agent's
// notifications this connection should receive.
func (w *WSServer) handleWS(rw http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agent")
	if agentID == "" {
		http.Error(rw, "missing agent query parameter", http.StatusBadRequest)
		return
	}

	conn, err := w.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		return
	}

	w.registry.Register(agentID, conn)
	defer w.registry.Unregister(agentID, conn)

	// Push-only from the daemon's side; drain whatever the client sends
	// so control frames (ping/pong, close) keep flowing until it
	// disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			_ = conn.Close()
			return
		}
	}
}
