package chat

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"
)

// DefaultHistoryLimit is the number of room messages kept in memory.
const DefaultHistoryLimit = 200

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrNotJoined  = errors.New("connection has not joined a room")

	ErrEmptyDisplayName = fmt.Errorf("%w: display name is empty", ErrValidation)
	ErrEmptyMessage     = fmt.Errorf("%w: message needs text or media", ErrValidation)
	ErrEmptyEmoji       = fmt.Errorf("%w: emoji is empty", ErrValidation)
)

// Participant is a joined connection.
type Participant struct {
	ConnectionID string `json:"connectionId"`
	DisplayName  string `json:"displayName"`
	RoomID       string `json:"roomId"`
}

// Message is a chat message. Room messages live in the MessageStore and are
// mutated in place by reactions and seen receipts; private messages are
// routed once and forgotten.
type Message struct {
	ID                    uint64         `json:"id"`
	SenderConnectionID    string         `json:"senderConnectionId"`
	SenderDisplayName     string         `json:"senderDisplayName"`
	RoomID                string         `json:"roomId,omitempty"`
	CreatedAt             time.Time      `json:"createdAt"`
	Text                  string         `json:"text,omitempty"`
	MediaURL              string         `json:"mediaUrl,omitempty"`
	Reactions             map[string]int `json:"reactions"`
	SeenBy                []string       `json:"seenBy"`
	IsPrivate             bool           `json:"isPrivate"`
	RecipientConnectionID string         `json:"recipientConnectionId,omitempty"`
}

// Clone returns a deep copy that shares no maps or slices with m.
func (m Message) Clone() Message {
	c := m
	c.Reactions = maps.Clone(m.Reactions)
	if c.Reactions == nil {
		c.Reactions = map[string]int{}
	}
	c.SeenBy = slices.Clone(m.SeenBy)
	return c
}

// RoomSnapshot is the derived view of a room at one instant.
type RoomSnapshot struct {
	RoomID       string        `json:"roomId"`
	Participants []Participant `json:"participants"`
	Typing       []string      `json:"typing"`
}
