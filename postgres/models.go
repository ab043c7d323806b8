package postgres

import (
	"time"

	"github.com/edgeee/chat-backend/api"
)

// A message represents a chat message in the database.
type message struct {
	ID          string    `bun:",pk,type:uuid,default:uuid_generate_v4()"`
	Sender      string    `bun:",notnull"`
	Receiver    string    `bun:",notnull"`
	MessageText string    `bun:"message_text,notnull"`
	Seen        bool      `bun:",notnull,default:false"`
	CreatedAt   time.Time `bun:",nullzero,default:now()"`
}

func (m message) APIMessage() api.Message {
	return api.Message{
		ID:        m.ID,
		Sender:    m.Sender,
		Receiver:  m.Receiver,
		Text:      m.MessageText,
		Seen:      m.Seen,
		CreatedAt: m.CreatedAt,
	}
}
