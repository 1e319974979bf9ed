package ws

import (
	"alumconnect/internal/models"
	"alumconnect/internal/presence"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultSendBuffer = 100

// Persister receives every relayed chat message after it has been broadcast.
// It must not block on the message store.
type Persister interface {
	Enqueue(msg models.ChatMessage) error
}

type closer interface {
	Close() error
}

type HubConfig struct {
	// StrictChannels drops joins to channels missing from the registry.
	StrictChannels bool
	// SendBuffer is the per-connection outbound queue length.
	SendBuffer int
}

type session struct {
	out  chan models.ServerEvent
	conn closer
}

// Hub is the message relay. It owns the presence table, fans events out to
// the members of a channel and hands chat messages to the persister.
//
// Events are processed one at a time under mu, so members of a channel see
// that channel's events in the order the hub received them.
type Hub struct {
	cfg      HubConfig
	presence *presence.Table
	channels *presence.Registry
	persist  Persister
	log      *slog.Logger
	now      func() time.Time

	// Map of connectionID -> outbound queue
	sessions map[string]*session

	mu sync.Mutex
}

func NewHub(cfg HubConfig, table *presence.Table, channels *presence.Registry, persist Persister, log *slog.Logger) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaultSendBuffer
	}
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		cfg:      cfg,
		presence: table,
		channels: channels,
		persist:  persist,
		log:      log.With("component", "relay"),
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// Register opens the outbound queue of a new connection. conn is closed if the
// connection is kicked.
func (h *Hub) Register(connectionID string, conn closer) chan models.ServerEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan models.ServerEvent, h.cfg.SendBuffer)
	h.sessions[connectionID] = &session{out: ch, conn: conn}
	return ch
}

// Join places the connection in event.Channel, moving it out of its previous
// channel if it had one.
func (h *Hub) Join(connectionID string, event models.ClientEvent) {
	name := strings.TrimSpace(event.DisplayName)
	channel := strings.TrimSpace(event.Channel)
	if name == "" || channel == "" {
		h.log.Debug("dropping join without name or channel", "connection_id", connectionID)
		return
	}

	if h.cfg.StrictChannels && !h.channels.Has(channel) {
		h.log.Warn("dropping join to unknown channel", "connection_id", connectionID, "channel", channel)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[connectionID]; !ok {
		return
	}

	prev, existed := h.presence.Join(models.PresenceEntry{
		ConnectionID: connectionID,
		DisplayName:  name,
		UserID:       strings.TrimSpace(event.UserID),
		Channel:      channel,
	})
	if existed && prev.Channel != channel {
		h.announce(prev.Channel, fmt.Sprintf("%s left #%s", prev.DisplayName, prev.Channel))
	}
	h.announce(channel, fmt.Sprintf("%s joined #%s", name, channel))
}

// Message relays a chat message from a joined connection to its channel.
// Messages from connections that have not joined are dropped.
func (h *Hub) Message(connectionID string, event models.ClientEvent) {
	if strings.TrimSpace(event.Text) == "" {
		h.log.Debug("dropping empty message", "connection_id", connectionID)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	sender, ok := h.presence.Get(connectionID)
	if !ok {
		h.log.Debug("dropping message from connection that has not joined", "connection_id", connectionID)
		return
	}
	if event.Channel != "" && event.Channel != sender.Channel {
		h.log.Debug("dropping message addressed to another channel",
			"connection_id", connectionID,
			"channel", sender.Channel,
			"target", event.Channel,
		)
		return
	}

	msg := models.ChatMessage{
		ID:         uuid.NewString(),
		SenderName: sender.DisplayName,
		SenderID:   sender.UserID,
		Text:       event.Text,
		Channel:    sender.Channel,
		CreatedAt:  h.now().UTC(),
	}
	h.broadcast(msg.Channel, models.ServerEvent{
		Type:      models.ServerEventMessage,
		Channel:   msg.Channel,
		User:      msg.SenderName,
		UserID:    msg.SenderID,
		Text:      msg.Text,
		CreatedAt: &msg.CreatedAt,
	})

	if h.persist == nil {
		return
	}
	// Enqueue runs under mu so the outbox receives a channel's messages in
	// the order they were broadcast. Enqueue appends to the local buffer only,
	// it never waits on the message store.
	if err := h.persist.Enqueue(msg); err != nil {
		h.log.Error("failed to queue message for storage",
			"channel", msg.Channel,
			"message_id", msg.ID,
			"error", err,
		)
	}
}

// Disconnect removes the connection. If it had joined a channel, the remaining
// members are told it left.
func (h *Hub) Disconnect(connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s, ok := h.sessions[connectionID]; ok {
		close(s.out)
		delete(h.sessions, connectionID)
	}

	if prev, existed := h.presence.Leave(connectionID); existed {
		h.announce(prev.Channel, fmt.Sprintf("%s left #%s", prev.DisplayName, prev.Channel))
	}
}

// Kick closes the transport of a live connection. The connection's own
// shutdown then calls Disconnect.
func (h *Hub) Kick(connectionID string) bool {
	h.mu.Lock()
	s, ok := h.sessions[connectionID]
	h.mu.Unlock()

	if !ok {
		return false
	}
	if err := s.conn.Close(); err != nil {
		h.log.Warn("failed to close kicked connection", "connection_id", connectionID, "error", err)
	}
	return true
}

// KickAll closes every live connection. It is used on shutdown, since hijacked
// websocket connections outlive http.Server.Shutdown.
func (h *Hub) KickAll() {
	h.mu.Lock()
	ids := make([]string, 0, len(h.sessions))
	for id := range h.sessions {
		ids = append(ids, id)
	}
	h.mu.Unlock()

	for _, id := range ids {
		h.Kick(id)
	}
}

// Presence returns the members of every channel that has any, in join order.
func (h *Hub) Presence() map[string][]models.PresenceEntry {
	result := make(map[string][]models.PresenceEntry)
	for _, ch := range h.presence.Channels() {
		result[ch] = h.presence.Members(ch)
	}
	return result
}

// Channels lists registered channels with their current member counts.
// Unregistered channels with members follow the registered ones.
func (h *Hub) Channels() []models.ChannelInfo {
	names := h.channels.Names()
	for _, ch := range h.presence.Channels() {
		if !h.channels.Has(ch) {
			names = append(names, ch)
		}
	}

	infos := make([]models.ChannelInfo, 0, len(names))
	for _, n := range names {
		infos = append(infos, models.ChannelInfo{
			Name:    n,
			Members: len(h.presence.Members(n)),
		})
	}
	return infos
}

// announce sends the channel roster followed by a system message. Callers hold mu.
func (h *Hub) announce(channel, text string) {
	h.broadcast(channel, models.ServerEvent{
		Type:    models.ServerEventRoster,
		Channel: channel,
		Members: h.presence.RosterFor(channel),
	})

	now := h.now().UTC()
	h.broadcast(channel, models.ServerEvent{
		Type:      models.ServerEventMessage,
		Channel:   channel,
		User:      models.SystemUser,
		Text:      text,
		CreatedAt: &now,
	})
}

// broadcast queues event for every member of channel. A member whose queue is
// full misses the event. Callers hold mu.
func (h *Hub) broadcast(channel string, event models.ServerEvent) {
	for _, m := range h.presence.Members(channel) {
		s, ok := h.sessions[m.ConnectionID]
		if !ok {
			continue
		}
		select {
		case s.out <- event:
		default:
			h.log.Warn("dropping event for slow connection",
				"connection_id", m.ConnectionID,
				"channel", channel,
				"type", event.Type,
			)
		}
	}
}
