package chat

import (
	"fmt"
	"iter"
)

// MessageStore is the bounded room history. IDs come from a monotonic
// counter so two appends within one clock tick never collide. Not safe for
// concurrent use; Engine serializes access.
type MessageStore struct {
	capacity int
	lastID   uint64
	log      []*Message
	byID     map[uint64]*Message
}

func NewMessageStore(capacity int) *MessageStore {
	if capacity <= 0 {
		capacity = DefaultHistoryLimit
	}
	return &MessageStore{
		capacity: capacity,
		log:      make([]*Message, 0, capacity),
		byID:     make(map[uint64]*Message, capacity),
	}
}

// NextID reserves an ID without storing anything.
func (s *MessageStore) NextID() uint64 {
	s.lastID++
	return s.lastID
}

// Append assigns the next ID to msg, stores it and evicts the oldest entry
// once the store is over capacity. It returns a copy of the stored message.
func (s *MessageStore) Append(msg Message) Message {
	stored := msg.Clone()
	stored.ID = s.NextID()
	s.log = append(s.log, &stored)
	s.byID[stored.ID] = &stored

	if len(s.log) > s.capacity {
		oldest := s.log[0]
		s.log[0] = nil
		s.log = s.log[1:]
		delete(s.byID, oldest.ID)
	}
	return stored.Clone()
}

// Get returns a copy of the message. Evicted IDs report ErrNotFound.
func (s *MessageStore) Get(id uint64) (Message, error) {
	m, err := s.lookup(id)
	if err != nil {
		return Message{}, err
	}
	return m.Clone(), nil
}

func (s *MessageStore) lookup(id uint64) (*Message, error) {
	m, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("message %d: %w", id, ErrNotFound)
	}
	return m, nil
}

// ListByRoom snapshots the room's messages, oldest first. The returned
// sequence can be ranged over any number of times and never observes later
// appends or mutations.
func (s *MessageStore) ListByRoom(roomID string) iter.Seq[Message] {
	snapshot := make([]Message, 0)
	for _, m := range s.log {
		if m.RoomID == roomID {
			snapshot = append(snapshot, m.Clone())
		}
	}
	return func(yield func(Message) bool) {
		for _, m := range snapshot {
			if !yield(m.Clone()) {
				return
			}
		}
	}
}

func (s *MessageStore) Len() int { return len(s.log) }
