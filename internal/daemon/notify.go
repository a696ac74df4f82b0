package daemon

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"
)

// ClientRegistry tracks connected CLI/MCP clients by agent ID so the daemon
// can push a notification the moment a new message lands in their inbox.
type ClientRegistry struct {
	mu      sync.RWMutex
	clients map[string]*ConnectedClient
}

// ConnectedClient represents a connected client bound to an agent ID.
type ConnectedClient struct {
	agentID string
	conn    net.Conn
}

// NewClientRegistry creates a new client registry.
func NewClientRegistry() *ClientRegistry {
	return &ClientRegistry{
		clients: make(map[string]*ConnectedClient),
	}
}

// Register adds a client to the registry.
func (r *ClientRegistry) Register(agentID string, conn net.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clients[agentID] = &ConnectedClient{
		agentID: agentID,
		conn:    conn,
	}
}

// Unregister removes a client from the registry.
func (r *ClientRegistry) Unregister(agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.clients, agentID)
}

// Notify sends a mail-arrived notification to a specific agent's client.
func (r *ClientRegistry) Notify(agentID string, notification *Notification) error {
	r.mu.RLock()
	client, exists := r.clients[agentID]
	r.mu.RUnlock()

	if !exists {
		// Client not connected - fine, the message is already durably in the inbox.
		return nil
	}

	payload := map[string]any{
		"jsonrpc": "2.0",
		"method":  notification.Method,
		"params":  notification.Params,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	data = append(data, '\n')

	_, err = client.conn.Write(data)
	if err != nil {
		r.Unregister(agentID)
		return fmt.Errorf("write notification: %w", err)
	}

	return nil
}

// Notification is the push payload sent to clients when mail arrives.
type Notification struct {
	Method string        `json:"method"` // "notification.mail"
	Params NotifyParams  `json:"params"`
}

// NotifyParams contains the notification parameters.
type NotifyParams struct {
	MessageID string `json:"message_id"`
	ThreadID  string `json:"thread_id,omitempty"`
	From      string `json:"from"`
	Subject   string `json:"subject,omitempty"`
	Timestamp string `json:"timestamp"`
}
