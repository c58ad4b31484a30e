package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

const MaxMessageLen = 4000

// Attachment carries either a URL to a stored file or inline data.
// Inline data makes the whole message ephemeral.
type Attachment struct {
	Name     string `json:"name" bson:"name"`
	MimeType string `json:"mimeType" bson:"mimeType"`
	URL      string `json:"url,omitempty" bson:"url,omitempty"`
	Data     string `json:"data,omitempty" bson:"-"`
}

func (a *Attachment) Empty() bool {
	return a == nil || (a.URL == "" && a.Data == "")
}

func (a *Attachment) Inline() bool { return a != nil && a.Data != "" }

type ChatMessage struct {
	ID         string      `json:"id" bson:"_id"`
	RoomID     RoomID      `json:"roomId" bson:"roomId"`
	SenderID   UserID      `json:"senderId" bson:"senderId"`
	Body       string      `json:"message" bson:"message"`
	Attachment *Attachment `json:"attachment,omitempty" bson:"attachment,omitempty"`
	CreatedAt  time.Time   `json:"createdAt" bson:"createdAt"`
	Ephemeral  bool        `json:"ephemeral,omitempty" bson:"-"`
}

// Validate trims the body and checks that something is being sent.
func (m *ChatMessage) Validate() error {
	m.Body = strings.TrimSpace(m.Body)
	if m.Body == "" && m.Attachment.Empty() {
		return ErrEmptyMessage
	}
	m.Body = Truncate(m.Body, MaxMessageLen)
	return nil
}

// Truncate cuts s to at most n bytes without splitting a character.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
