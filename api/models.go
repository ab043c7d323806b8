package api

import "time"

// A Message represents one directed text message between two participants.
// Sender and Receiver are opaque identity strings owned by the identity
// service; the chat core never inspects their shape beyond non-emptiness.
type Message struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver"`
	Text      string    `json:"text"`
	Seen      bool      `json:"seen"`
	CreatedAt time.Time `json:"created_at"`
}
