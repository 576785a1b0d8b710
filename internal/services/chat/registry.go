package chat

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Registry maps live connections to their participant identity.
// It is not safe for concurrent use; Engine serializes access.
type Registry struct {
	seq    uint64
	byConn map[string]registryEntry
}

type registryEntry struct {
	participant Participant
	seq         uint64
}

func NewRegistry() *Registry {
	return &Registry{byConn: make(map[string]registryEntry)}
}

// Join inserts or replaces the participant for connectionID. A replaced
// participant moves to the end of its room's listing.
func (r *Registry) Join(connectionID, displayName, roomID string) (Participant, error) {
	name := strings.TrimSpace(displayName)
	if name == "" {
		return Participant{}, ErrEmptyDisplayName
	}
	r.seq++
	p := Participant{ConnectionID: connectionID, DisplayName: name, RoomID: roomID}
	r.byConn[connectionID] = registryEntry{participant: p, seq: r.seq}
	return p, nil
}

// Leave removes the participant. Typing state is cleaned up by the caller.
func (r *Registry) Leave(connectionID string) (Participant, error) {
	e, ok := r.byConn[connectionID]
	if !ok {
		return Participant{}, fmt.Errorf("connection %q: %w", connectionID, ErrNotFound)
	}
	delete(r.byConn, connectionID)
	return e.participant, nil
}

func (r *Registry) Get(connectionID string) (Participant, error) {
	e, ok := r.byConn[connectionID]
	if !ok {
		return Participant{}, fmt.Errorf("connection %q: %w", connectionID, ErrNotFound)
	}
	return e.participant, nil
}

// ListByRoom returns the room's participants in join order.
func (r *Registry) ListByRoom(roomID string) []Participant {
	entries := make([]registryEntry, 0)
	for _, e := range r.byConn {
		if e.participant.RoomID == roomID {
			entries = append(entries, e)
		}
	}
	slices.SortFunc(entries, func(a, b registryEntry) int {
		return cmp.Compare(a.seq, b.seq)
	})

	out := make([]Participant, len(entries))
	for i, e := range entries {
		out[i] = e.participant
	}
	return out
}

func (r *Registry) Len() int { return len(r.byConn) }
