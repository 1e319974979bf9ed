package storage

import (
	"encoding"
	"encoding/binary"
	"time"

	"alumconnect/internal/models"

	"github.com/vmihailenco/msgpack/v5"
)

type Storeable interface {
	Key() []byte
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

type DBProfile struct {
	ID           string `msgpack:"id"`
	Name         string `msgpack:"name"`
	Email        string `msgpack:"email"`
	City         string `msgpack:"city"`
	Country      string `msgpack:"country"`
	Role         string `msgpack:"role"`
	GradYear     int    `msgpack:"gradYear"`
	PasswordHash string `msgpack:"passwordHash"`
	CreatedAt    int64  `msgpack:"createdAt"`
}

func (p *DBProfile) Key() []byte {
	return []byte(p.ID)
}

func (p *DBProfile) MarshalBinary() (data []byte, err error) {
	type alias DBProfile
	return msgpack.Marshal((*alias)(p))
}

func (p *DBProfile) UnmarshalBinary(data []byte) error {
	type alias DBProfile
	return msgpack.Unmarshal(data, (*alias)(p))
}

func (p *DBProfile) toModel() models.Profile {
	return models.Profile{
		ID:        p.ID,
		Name:      p.Name,
		Email:     p.Email,
		City:      p.City,
		Country:   p.Country,
		Role:      models.Role(p.Role),
		GradYear:  p.GradYear,
		CreatedAt: time.UnixMilli(p.CreatedAt).UTC(),
	}
}

// DBMessage is a persisted chat message. Seq is the per-channel insertion
// sequence assigned by the store.
type DBMessage struct {
	Seq       uint64 `msgpack:"seq"`
	ID        string `msgpack:"id"`
	UserID    string `msgpack:"userId"`
	UserName  string `msgpack:"userName"`
	Content   string `msgpack:"content"`
	Channel   string `msgpack:"channel"`
	CreatedAt int64  `msgpack:"createdAt"`
}

func (m *DBMessage) Key() []byte {
	return seqKey(m.Seq)
}

func (m *DBMessage) MarshalBinary() (data []byte, err error) {
	type alias DBMessage
	return msgpack.Marshal((*alias)(m))
}

func (m *DBMessage) UnmarshalBinary(data []byte) error {
	type alias DBMessage
	return msgpack.Unmarshal(data, (*alias)(m))
}

func newDBMessage(msg models.ChatMessage) DBMessage {
	return DBMessage{
		ID:        msg.ID,
		UserID:    msg.SenderID,
		UserName:  msg.SenderName,
		Content:   msg.Text,
		Channel:   msg.Channel,
		CreatedAt: msg.CreatedAt.UnixMilli(),
	}
}

func (m *DBMessage) toModel() models.ChatMessage {
	return models.ChatMessage{
		ID:         m.ID,
		SenderID:   m.UserID,
		SenderName: m.UserName,
		Text:       m.Content,
		Channel:    m.Channel,
		CreatedAt:  time.UnixMilli(m.CreatedAt).UTC(),
	}
}

type DBConnection struct {
	ID          string `msgpack:"id"`
	RequesterID string `msgpack:"requesterId"`
	ReceiverID  string `msgpack:"receiverId"`
	Status      string `msgpack:"status"`
	CreatedAt   int64  `msgpack:"createdAt"`
}

func (c *DBConnection) Key() []byte {
	return []byte(c.ID)
}

func (c *DBConnection) MarshalBinary() (data []byte, err error) {
	type alias DBConnection
	return msgpack.Marshal((*alias)(c))
}

func (c *DBConnection) UnmarshalBinary(data []byte) error {
	type alias DBConnection
	return msgpack.Unmarshal(data, (*alias)(c))
}

func (c *DBConnection) toModel() models.ConnectionRequest {
	return models.ConnectionRequest{
		ID:          c.ID,
		RequesterID: c.RequesterID,
		ReceiverID:  c.ReceiverID,
		Status:      models.ConnectionStatus(c.Status),
		CreatedAt:   time.UnixMilli(c.CreatedAt).UTC(),
	}
}

// pairKey identifies the unordered pair {a, b}.
func pairKey(a, b string) []byte {
	if b < a {
		a, b = b, a
	}
	return []byte(a + "\x00" + b)
}

type DBPost struct {
	ID        string `msgpack:"id"`
	Title     string `msgpack:"title"`
	Content   string `msgpack:"content"`
	HTML      string `msgpack:"html"`
	Author    string `msgpack:"author"`
	Category  string `msgpack:"category"`
	CreatedAt int64  `msgpack:"createdAt"`
}

func (p *DBPost) MarshalBinary() (data []byte, err error) {
	type alias DBPost
	return msgpack.Marshal((*alias)(p))
}

func (p *DBPost) UnmarshalBinary(data []byte) error {
	type alias DBPost
	return msgpack.Unmarshal(data, (*alias)(p))
}

type DBGroup struct {
	ID          string `msgpack:"id"`
	Name        string `msgpack:"name"`
	Description string `msgpack:"description"`
	Members     int    `msgpack:"members"`
	CreatedAt   int64  `msgpack:"createdAt"`
}

func (g *DBGroup) MarshalBinary() (data []byte, err error) {
	type alias DBGroup
	return msgpack.Marshal((*alias)(g))
}

func (g *DBGroup) UnmarshalBinary(data []byte) error {
	type alias DBGroup
	return msgpack.Unmarshal(data, (*alias)(g))
}

type DBJob struct {
	ID           string `msgpack:"id"`
	PosterID     string `msgpack:"posterId"`
	Title        string `msgpack:"title"`
	Company      string `msgpack:"company"`
	Location     string `msgpack:"location"`
	Type         string `msgpack:"type"`
	Industry     string `msgpack:"industry"`
	Experience   string `msgpack:"experience"`
	SalaryMin    int    `msgpack:"salaryMin"`
	SalaryMax    int    `msgpack:"salaryMax"`
	Description  string `msgpack:"description"`
	Requirements string `msgpack:"requirements"`
	Benefits     string `msgpack:"benefits"`
	CreatedAt    int64  `msgpack:"createdAt"`
}

func (j *DBJob) MarshalBinary() (data []byte, err error) {
	type alias DBJob
	return msgpack.Marshal((*alias)(j))
}

func (j *DBJob) UnmarshalBinary(data []byte) error {
	type alias DBJob
	return msgpack.Unmarshal(data, (*alias)(j))
}

func seqFromKey(key []byte) uint64 {
	return binary.BigEndian.Uint64(key)
}
