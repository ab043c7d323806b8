package redis

import (
	"time"

	"github.com/edgeee/chat-backend/api"
)

// A message represents a cached chat message.
type message struct {
	ID        string    `redis:"id"`
	Sender    string    `redis:"sender"`
	Receiver  string    `redis:"receiver"`
	Text      string    `redis:"text"`
	Seen      bool      `redis:"seen"`
	CreatedAt time.Time `redis:"created_at"`
}

func (m message) APIMessage() api.Message {
	return api.Message{
		ID:        m.ID,
		Sender:    m.Sender,
		Receiver:  m.Receiver,
		Text:      m.Text,
		Seen:      m.Seen,
		CreatedAt: m.CreatedAt,
	}
}
