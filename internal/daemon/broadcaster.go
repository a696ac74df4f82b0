package daemon

import (
	"sync"
)

// ClientNotifier is the interface for anything that can push a notification
// to a connected agent.
type ClientNotifier interface {
	Notify(agentID string, notification any) error
}

// Broadcaster delivers mail-arrival notifications to connected clients over
// both the primary Unix socket transport and the secondary WebSocket push
// transport. It is a thin wrapper so callers in the RPC layer don't need to
// know about either registry directly.
type Broadcaster struct {
	unixClients *ClientRegistry
	wsClients   *WSRegistry
	mu          sync.RWMutex
}

// NewBroadcaster creates a broadcaster backed by a Unix socket client
// registry. WithWebSocket attaches the optional secondary transport.
func NewBroadcaster(unixClients *ClientRegistry) *Broadcaster {
	return &Broadcaster{
		unixClients: unixClients,
	}
}

// WithWebSocket attaches a WebSocket client registry so Notify also
// reaches agents connected over the push-only secondary transport.
func (b *Broadcaster) WithWebSocket(wsClients *WSRegistry) *Broadcaster {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.wsClients = wsClients
	return b
}

// Notify pushes a mail-arrival notification to a specific agent over every
// transport it's connected on. Returning nil when the agent isn't connected
// anywhere is expected: the message is already durable in the inbox and
// will be seen on the next poll.
func (b *Broadcaster) Notify(agentID string, notification *Notification) error {
	b.mu.RLock()
	unixClients, wsClients := b.unixClients, b.wsClients
	b.mu.RUnlock()

	var firstErr error
	if unixClients != nil {
		if err := unixClients.Notify(agentID, notification); err != nil {
			firstErr = err
		}
	}
	if wsClients != nil {
		if err := wsClients.Notify(agentID, notification); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
