package daemon_test

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/hivemail/hivemail/internal/daemon"
)

func TestClientRegistry_RegisterUnregister(t *testing.T) {
	registry := daemon.NewClientRegistry()

	server, client := net.Pipe()
	defer func() { _ = server.Close() }()
	defer func() { _ = client.Close() }()

	registry.Register("willow_otter", server)

	notification := &daemon.Notification{
		Method: "notification.mail",
		Params: daemon.NotifyParams{
			MessageID: "msg_001",
			Timestamp: "2026-01-01T00:00:00Z",
		},
	}

	type readResult struct {
		data []byte
		n    int
		err  error
	}
	resultCh := make(chan readResult, 1)
	go func() {
		buf := make([]byte, 1024)
		if err := client.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
			resultCh <- readResult{data: buf, n: 0, err: err}
			return
		}
		n, err := client.Read(buf)
		resultCh <- readResult{data: buf, n: n, err: err}
	}()

	if err := registry.Notify("willow_otter", notification); err != nil {
		t.Fatalf("Notify() failed: %v", err)
	}

	result := <-resultCh
	if result.err != nil {
		t.Fatalf("Read() failed: %v", result.err)
	}

	var payload map[string]any
	if err := json.Unmarshal(result.data[:result.n], &payload); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}
	if payload["jsonrpc"] != "2.0" {
		t.Errorf("Expected jsonrpc='2.0', got %v", payload["jsonrpc"])
	}
	if payload["method"] != "notification.mail" {
		t.Errorf("Expected method='notification.mail', got %v", payload["method"])
	}

	registry.Unregister("willow_otter")

	if err := registry.Notify("willow_otter", notification); err != nil {
		t.Errorf("Notify() after unregister should succeed, got error: %v", err)
	}
}

func TestClientRegistry_NotifyNonExistent(t *testing.T) {
	registry := daemon.NewClientRegistry()

	notification := &daemon.Notification{
		Method: "notification.mail",
		Params: daemon.NotifyParams{MessageID: "msg_001", Timestamp: "2026-01-01T00:00:00Z"},
	}

	if err := registry.Notify("ghost_agent", notification); err != nil {
		t.Errorf("Notify() for non-existent agent should succeed, got error: %v", err)
	}
}

func TestClientRegistry_NotifyDisconnected(t *testing.T) {
	registry := daemon.NewClientRegistry()

	server, client := net.Pipe()
	registry.Register("willow_otter", server)

	_ = client.Close()
	_ = server.Close()

	notification := &daemon.Notification{
		Method: "notification.mail",
		Params: daemon.NotifyParams{MessageID: "msg_001", Timestamp: "2026-01-01T00:00:00Z"},
	}

	if err := registry.Notify("willow_otter", notification); err == nil {
		t.Error("Notify() should fail for a disconnected client")
	}

	if err := registry.Notify("willow_otter", notification); err != nil {
		t.Errorf("second Notify() should succeed after auto-unregister, got error: %v", err)
	}
}

func TestNotification_Format(t *testing.T) {
	registry := daemon.NewClientRegistry()

	server, client := net.Pipe()
	defer func() { _ = server.Close() }()
	defer func() { _ = client.Close() }()

	registry.Register("willow_otter", server)

	notification := &daemon.Notification{
		Method: "notification.mail",
		Params: daemon.NotifyParams{
			MessageID: "msg_123",
			ThreadID:  "thread_456",
			From:      "cedar_badger",
			Subject:   "build is red",
			Timestamp: "2026-01-01T12:00:00Z",
		},
	}

	type readResult struct {
		data []byte
		n    int
		err  error
	}
	resultCh := make(chan readResult, 1)
	go func() {
		buf := make([]byte, 2048)
		if err := client.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
			resultCh <- readResult{data: buf, n: 0, err: err}
			return
		}
		n, err := client.Read(buf)
		resultCh <- readResult{data: buf, n: n, err: err}
	}()

	if err := registry.Notify("willow_otter", notification); err != nil {
		t.Fatalf("Notify() failed: %v", err)
	}

	result := <-resultCh
	if result.err != nil {
		t.Fatalf("Read() failed: %v", result.err)
	}

	var payload struct {
		JSONRPC string `json:"jsonrpc"`
		Method  string `json:"method"`
		Params  struct {
			MessageID string `json:"message_id"`
			ThreadID  string `json:"thread_id"`
			From      string `json:"from"`
			Subject   string `json:"subject"`
			Timestamp string `json:"timestamp"`
		} `json:"params"`
	}

	if err := json.Unmarshal(result.data[:result.n], &payload); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}
	if payload.Params.MessageID != "msg_123" {
		t.Errorf("Expected message_id='msg_123', got '%s'", payload.Params.MessageID)
	}
	if payload.Params.From != "cedar_badger" {
		t.Errorf("Expected from='cedar_badger', got '%s'", payload.Params.From)
	}
	if payload.Params.Subject != "build is red" {
		t.Errorf("Expected subject='build is red', got '%s'", payload.Params.Subject)
	}
}
