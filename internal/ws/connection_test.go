package ws

import (
	"alumconnect/internal/models"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"
)

type mockWS struct {
	readCh      chan any
	writeCh     chan any
	closeCh     chan struct{}
	closeOnce   sync.Once
	errToReturn error
}

func newMockWS() *mockWS {
	return &mockWS{
		readCh:  make(chan any, 10),
		writeCh: make(chan any, 10),
		closeCh: make(chan struct{}),
	}
}

func (m *mockWS) Close() error {
	m.closeOnce.Do(func() { close(m.closeCh) })
	return nil
}

func (m *mockWS) Closed() bool {
	select {
	case <-m.closeCh:
		return true
	default:
		return false
	}
}

func (m *mockWS) WriteJSON(v any) error {
	if m.errToReturn != nil {
		return m.errToReturn
	}
	m.writeCh <- v
	return nil
}

// ReadJSON delivers queued items: a models.ClientEvent is copied into v, an
// error is returned as is.
func (m *mockWS) ReadJSON(v any) error {
	if m.errToReturn != nil {
		return m.errToReturn
	}
	select {
	case item, ok := <-m.readCh:
		if !ok {
			return errors.New("closed")
		}
		if err, isErr := item.(error); isErr {
			return err
		}
		if ptr, ok := v.(*models.ClientEvent); ok {
			*ptr = item.(models.ClientEvent)
		}
		return nil
	case <-m.closeCh:
		return errors.New("connection closed")
	}
}

type mockHub struct {
	registerCh   chan string
	disconnectCh chan string
	joinCh       chan models.ClientEvent
	messageCh    chan models.ClientEvent
	out          chan models.ServerEvent
}

func newMockHub() *mockHub {
	return &mockHub{
		registerCh:   make(chan string, 10),
		disconnectCh: make(chan string, 10),
		joinCh:       make(chan models.ClientEvent, 10),
		messageCh:    make(chan models.ClientEvent, 10),
		out:          make(chan models.ServerEvent, 10),
	}
}

func (m *mockHub) Register(connectionID string, _ closer) chan models.ServerEvent {
	m.registerCh <- connectionID
	return m.out
}

func (m *mockHub) Join(_ string, event models.ClientEvent) {
	m.joinCh <- event
}

func (m *mockHub) Message(_ string, event models.ClientEvent) {
	m.messageCh <- event
}

func (m *mockHub) Disconnect(connectionID string) {
	m.disconnectCh <- connectionID
}

func TestConnection_Lifecycle(t *testing.T) {
	hub := newMockHub()
	ws := newMockWS()
	connectionID := "conn1"

	conn := NewConnection(hub, ws, connectionID, nil)
	if conn == nil {
		t.Fatal("NewConnection returned nil")
	}

	select {
	case id := <-hub.registerCh:
		if id != connectionID {
			t.Errorf("Expected Register with %s, got %s", connectionID, id)
		}
	default:
		t.Error("Register not called on NewConnection")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error)
	go func() {
		done <- conn.Handle(ctx)
	}()

	// 1. Client -> Hub
	ws.readCh <- models.ClientEvent{Type: models.ClientEventJoin, DisplayName: "Ada", Channel: "general"}
	select {
	case received := <-hub.joinCh:
		if received.DisplayName != "Ada" {
			t.Errorf("Hub received wrong join: %+v", received)
		}
	case <-time.After(1 * time.Second):
		t.Error("Hub did not receive join")
	}

	ws.readCh <- models.ClientEvent{Type: models.ClientEventMessage, Text: "hello"}
	select {
	case received := <-hub.messageCh:
		if received.Text != "hello" {
			t.Errorf("Hub received wrong content: %+v", received)
		}
	case <-time.After(1 * time.Second):
		t.Error("Hub did not receive message")
	}

	// 2. Hub -> Client
	hub.out <- models.ServerEvent{Type: models.ServerEventMessage, Channel: "general", Text: "hi back"}
	select {
	case received := <-ws.writeCh:
		event, ok := received.(models.ServerEvent)
		if !ok {
			t.Fatalf("WS received wrong type: %T", received)
		}
		if event.Text != "hi back" {
			t.Errorf("WS received wrong content: %+v", event)
		}
	case <-time.After(1 * time.Second):
		t.Error("WS did not receive server event")
	}

	// 3. Stop
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Handle returned error: %v", err)
		}
	case <-time.After(1 * time.Second):
		t.Error("Handle did not return after cancel")
	}

	select {
	case id := <-hub.disconnectCh:
		if id != connectionID {
			t.Errorf("Expected Disconnect with %s, got %s", connectionID, id)
		}
	default:
		t.Error("Disconnect not called")
	}

	if !ws.Closed() {
		t.Error("WS Close not called")
	}
}

func TestConnection_DropsBadFrames(t *testing.T) {
	hub := newMockHub()
	ws := newMockWS()
	conn := NewConnection(hub, ws, "conn2", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error)
	go func() {
		done <- conn.Handle(ctx)
	}()

	ws.readCh <- &json.SyntaxError{Offset: 1}
	ws.readCh <- io.ErrUnexpectedEOF
	ws.readCh <- models.ClientEvent{Type: "typing"}
	ws.readCh <- models.ClientEvent{Type: models.ClientEventMessage, Text: "after"}

	select {
	case received := <-hub.messageCh:
		if received.Text != "after" {
			t.Errorf("Hub received wrong content: %+v", received)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("connection stopped after a bad frame")
	}

	select {
	case e := <-hub.joinCh:
		t.Errorf("unknown frame dispatched as join: %+v", e)
	default:
	}

	cancel()
	<-done
}

func TestConnection_WSError(t *testing.T) {
	hub := newMockHub()
	ws := newMockWS()

	conn := NewConnection(hub, ws, "conn3", nil)

	// Simulate ReadJSON error immediately
	ws.errToReturn = errors.New("read error")

	done := make(chan error)
	go func() {
		done <- conn.Handle(context.Background())
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Error("Expected error from Handle, got nil")
		}
	case <-time.After(1 * time.Second):
		t.Error("Handle did not return on error")
	}

	if !ws.Closed() {
		t.Error("WS Close not called")
	}
}

func TestConnection_HubClosesQueue(t *testing.T) {
	hub := newMockHub()
	ws := newMockWS()
	conn := NewConnection(hub, ws, "conn4", nil)

	done := make(chan error)
	go func() {
		done <- conn.Handle(context.Background())
	}()

	close(hub.out)

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Handle returned error: %v", err)
		}
	case <-time.After(1 * time.Second):
		t.Error("Handle did not return after queue closed")
	}
}
