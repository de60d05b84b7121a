package model

import "time"

// Message is one chat message. MessageNumber is assigned by the owning
// message log on insertion (never by the sender); 0 means unassigned.
// Messages compare equal by sender + instant + text, not by identity,
// which is what the duplicate checks key on.
type Message struct {
	FromUsername  string    `json:"from_username"`
	Text          string    `json:"text"`
	SentAt        time.Time `json:"sent_at"`
	MessageNumber int64     `json:"message_number,omitempty"`
}

func NewMessage(from, text string, sentAt time.Time) *Message {
	return &Message{FromUsername: from, Text: text, SentAt: sentAt}
}

// SentDate is the calendar day the message belongs to; it selects the
// message log inside a conversation.
func (m *Message) SentDate() Date {
	return DateOf(m.SentAt)
}

// ContentEqual is the duplicate-detection equality:
// (sender, date+time, text).
func (m *Message) ContentEqual(o *Message) bool {
	if m == nil || o == nil {
		return m == o
	}
	return m.FromUsername == o.FromUsername &&
		m.SentAt.Equal(o.SentAt) &&
		m.Text == o.Text
}

// Numbered reports whether the message already went through log
// assignment once.
func (m *Message) Numbered() bool {
	return m.MessageNumber != 0
}
