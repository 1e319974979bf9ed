package ws

import (
	"alumconnect/internal/models"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
)

type wsConnection interface {
	Close() error
	WriteJSON(v interface{}) error
	ReadJSON(v interface{}) error
}

type messageHub interface {
	Register(connectionID string, conn closer) chan models.ServerEvent
	Join(connectionID string, event models.ClientEvent)
	Message(connectionID string, event models.ClientEvent)
	Disconnect(connectionID string)
}

// Connection is one client session: it pumps frames from the socket into the
// hub and hub events back out to the socket.
type Connection struct {
	ws           wsConnection
	hub          messageHub
	connectionID string
	log          *slog.Logger
	fromClient   chan models.ClientEvent
	fromServer   chan models.ServerEvent
	errorCh      chan error
}

func NewConnection(
	hub messageHub,
	ws wsConnection,
	connectionID string,
	log *slog.Logger,
) *Connection {
	if log == nil {
		log = slog.Default()
	}
	return &Connection{
		ws:           ws,
		hub:          hub,
		connectionID: connectionID,
		log:          log.With("connection_id", connectionID),
		fromClient:   make(chan models.ClientEvent),
		fromServer:   hub.Register(connectionID, ws),
		errorCh:      make(chan error, 2),
	}
}

func (c *Connection) Handle(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		close(c.fromClient)
		close(c.errorCh)
		c.hub.Disconnect(c.connectionID)
	}()

	var wg sync.WaitGroup
	wg.Go(func() {
		c.errorCh <- c.pumpMessages(ctx)
		cancel()
	})

	wg.Go(func() {
		c.errorCh <- c.mainLoop(ctx)
		cancel()
	})

	var err error
	select {
	case err = <-c.errorCh:
	case <-ctx.Done():
	}
	c.ws.Close()
	wg.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

func (c *Connection) pumpMessages(ctx context.Context) error {
	for {
		var event models.ClientEvent
		if err := c.ws.ReadJSON(&event); err != nil {
			if isMalformed(err) {
				c.log.Debug("dropping malformed frame", "error", err)
				continue
			}
			return err
		}
		select {
		case c.fromClient <- event:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Connection) mainLoop(ctx context.Context) error {
	for {
		select {
		case event := <-c.fromClient:
			c.processClientEvent(event)
		case event, ok := <-c.fromServer:
			if !ok {
				return nil
			}
			if err := c.ws.WriteJSON(event); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Connection) processClientEvent(event models.ClientEvent) {
	switch event.Type {
	case models.ClientEventJoin:
		c.hub.Join(c.connectionID, event)
	case models.ClientEventMessage:
		c.hub.Message(c.connectionID, event)
	default:
		c.log.Debug("dropping unknown event", "type", event.Type)
	}
}

// isMalformed reports whether a read failed on the frame's content rather than
// on the transport. ReadJSON turns an empty or truncated frame into
// io.ErrUnexpectedEOF; a broken connection surfaces as a *websocket.CloseError.
func isMalformed(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) ||
		errors.As(err, &typeErr) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}
