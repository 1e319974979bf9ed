package models

import "time"

type Role string

const (
	RoleStudent Role = "student"
	RoleAlumni  Role = "alumni"
	RoleAdmin   Role = "admin"
)

// Profile is a directory user.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	City      string    `json:"city,omitempty"`
	Country   string    `json:"country,omitempty"`
	Role      Role      `json:"role,omitempty"`
	GradYear  int       `json:"gradYear,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProfileSummary is the subset of profile fields joined into connection edges.
type ProfileSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
}

func (p Profile) Summary() ProfileSummary {
	return ProfileSummary{
		ID:      p.ID,
		Name:    p.Name,
		City:    p.City,
		Country: p.Country,
	}
}

// PresenceEntry is the live state of one chat connection.
type PresenceEntry struct {
	ConnectionID string `json:"connectionId"`
	DisplayName  string `json:"displayName"`
	UserID       string `json:"userId"`
	Channel      string `json:"channel"`
}

// ChatMessage is a message relayed to a channel and persisted append-only.
type ChatMessage struct {
	ID         string    `json:"id"`
	SenderName string    `json:"userName"`
	SenderID   string    `json:"userId"`
	Text       string    `json:"content"`
	Channel    string    `json:"channel"`
	CreatedAt  time.Time `json:"createdAt"`
}

type ChannelInfo struct {
	Name    string `json:"name"`
	Members int    `json:"members"`
}

type ConnectionStatus string

const (
	ConnectionStatusPending  ConnectionStatus = "pending"
	ConnectionStatusAccepted ConnectionStatus = "accepted"
	ConnectionStatusRejected ConnectionStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s ConnectionStatus) Valid() bool {
	switch s {
	case ConnectionStatusPending, ConnectionStatusAccepted, ConnectionStatusRejected:
		return true
	}
	return false
}

// ConnectionRequest is a directed edge between two profiles.
type ConnectionRequest struct {
	ID          string           `json:"id"`
	RequesterID string           `json:"requesterId"`
	ReceiverID  string           `json:"receiverId"`
	Status      ConnectionStatus `json:"status"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// Other returns the endpoint of the edge that is not userID.
func (c ConnectionRequest) Other(userID string) string {
	if c.RequesterID == userID {
		return c.ReceiverID
	}
	return c.RequesterID
}

// Connection is a ConnectionRequest joined with both endpoints' directory fields.
type Connection struct {
	ID        string           `json:"id"`
	Status    ConnectionStatus `json:"status"`
	CreatedAt time.Time        `json:"createdAt"`
	Requester ProfileSummary   `json:"requester"`
	Receiver  ProfileSummary   `json:"receiver"`
}

type Relation string

const (
	RelationNone      Relation = "none"
	RelationOutgoing  Relation = "outgoing"
	RelationIncoming  Relation = "incoming"
	RelationConnected Relation = "connected"
	RelationRejected  Relation = "rejected"
)

// Candidate is a directory profile annotated with its relation to the viewer.
type Candidate struct {
	Profile
	Relation     Relation `json:"relation"`
	ConnectionID string   `json:"connectionId,omitempty"`
}

type Post struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	ContentHTML string    `json:"contentHtml"`
	Author      string    `json:"author"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Members     int       `json:"members"`
	CreatedAt   time.Time `json:"createdAt"`
}

type JobPoster struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
	GradYear int    `json:"gradYear,omitempty"`
}

type Job struct {
	ID           string    `json:"id"`
	PosterID     string    `json:"-"`
	Title        string    `json:"title"`
	Company      string    `json:"company"`
	Location     string    `json:"location,omitempty"`
	Type         string    `json:"type,omitempty"`
	Industry     string    `json:"industry,omitempty"`
	Experience   string    `json:"experience,omitempty"`
	SalaryMin    int       `json:"salaryMin,omitempty"`
	SalaryMax    int       `json:"salaryMax,omitempty"`
	Description  string    `json:"description,omitempty"`
	Requirements string    `json:"requirements,omitempty"`
	Benefits     string    `json:"benefits,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	Poster       JobPoster `json:"poster"`
}

type ClientEventType string

const (
	ClientEventJoin    ClientEventType = "join"
	ClientEventMessage ClientEventType = "chatMessage"
)

// ClientEvent is a frame sent from a chat client to the server.
type ClientEvent struct {
	Type        ClientEventType `json:"type"`
	DisplayName string          `json:"displayName,omitempty"`
	UserID      string          `json:"userId,omitempty"`
	Channel     string          `json:"channel,omitempty"`
	Text        string          `json:"text,omitempty"`
}

type ServerEventType string

const (
	ServerEventRoster  ServerEventType = "roster"
	ServerEventMessage ServerEventType = "chatMessage"
)

// SystemUser is the sender name of join/leave notices.
const SystemUser = "System"

// ServerEvent is a frame sent from the server to chat clients.
type ServerEvent struct {
	Type      ServerEventType `json:"type"`
	Channel   string          `json:"channel"`
	Members   []string        `json:"members,omitempty"`
	User      string          `json:"user,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	Text      string          `json:"text,omitempty"`
	CreatedAt *time.Time      `json:"createdAt,omitempty"`
}

// APIError is the body of every failed API response.
type APIError struct {
	Error string `json:"error"`
}
