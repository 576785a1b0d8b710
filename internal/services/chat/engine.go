package chat

import (
	"fmt"
	"iter"
	"slices"
	"strings"
	"sync"
	"time"
)

const DefaultRoom = "General"

type Options struct {
	HistoryLimit int
	// DefaultRoom is used when a join names no room.
	DefaultRoom string
	Emitter     Emitter
	Now         func() time.Time
}

// Engine owns all relay state and is the only producer of outbound events.
// Every call to Handle is one critical section: the mutation, the audience
// snapshot (taken after the mutation) and the hand-off to the Emitter.
type Engine struct {
	mu sync.Mutex

	registry *Registry
	typing   TypingState
	rooms    *RoomIndex
	store    *MessageStore
	tracker  *DeliveryTracker

	emitter     Emitter
	defaultRoom string
	now         func() time.Time
}

func NewEngine(opts Options) *Engine {
	if opts.DefaultRoom == "" {
		opts.DefaultRoom = DefaultRoom
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	registry := NewRegistry()
	typing := TypingState{}
	store := NewMessageStore(opts.HistoryLimit)
	return &Engine{
		registry:    registry,
		typing:      typing,
		rooms:       NewRoomIndex(registry, typing),
		store:       store,
		tracker:     NewDeliveryTracker(store),
		emitter:     opts.Emitter,
		defaultRoom: opts.DefaultRoom,
		now:         opts.Now,
	}
}

// Handle applies ev on behalf of connectionID and returns the outbound
// events it emitted. A non-nil error means nothing changed and nothing was
// emitted: ErrValidation for malformed input, ErrNotJoined for events from
// connections that have not joined, ErrNotFound for unknown messages or
// recipients.
func (e *Engine) Handle(connectionID string, ev Event) ([]Outbound, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var (
		outs []Outbound
		err  error
	)
	switch ev := ev.(type) {
	case Join:
		outs, err = e.join(connectionID, ev)
	case Send:
		outs, err = e.send(connectionID, ev)
	case SendPrivate:
		outs, err = e.sendPrivate(connectionID, ev)
	case SetTyping:
		outs, err = e.setTyping(connectionID, ev)
	case React:
		outs, err = e.react(connectionID, ev)
	case MarkSeen:
		outs, err = e.markSeen(connectionID, ev)
	case Disconnect:
		outs = e.disconnect(connectionID)
	default:
		err = fmt.Errorf("%w: unsupported event %T", ErrValidation, ev)
	}
	if err != nil {
		return nil, err
	}

	if e.emitter != nil {
		for _, out := range outs {
			e.emitter.Emit(out)
		}
	}
	return outs, nil
}

// History is the read-only backfill query: the room's stored messages,
// oldest first, as a snapshot.
func (e *Engine) History(roomID string) iter.Seq[Message] {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.ListByRoom(roomID)
}

func (e *Engine) Room(roomID string) RoomSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return RoomSnapshot{
		RoomID:       roomID,
		Participants: e.rooms.Participants(roomID),
		Typing:       e.rooms.TypingDisplayNames(roomID),
	}
}

func (e *Engine) join(connectionID string, ev Join) ([]Outbound, error) {
	roomID := strings.TrimSpace(ev.RoomID)
	if roomID == "" {
		roomID = e.defaultRoom
	}

	prev, prevErr := e.registry.Get(connectionID)
	p, err := e.registry.Join(connectionID, ev.DisplayName, roomID)
	if err != nil {
		return nil, err
	}
	wasTyping := e.typing.Clear(connectionID)

	var outs []Outbound
	if prevErr == nil && prev.RoomID != roomID {
		outs = append(outs,
			e.toRoom(prev.RoomID, e.userList(prev.RoomID)),
			e.toRoom(prev.RoomID, UserLeft{RoomID: prev.RoomID, ConnectionID: connectionID, DisplayName: prev.DisplayName}),
		)
	}
	if wasTyping && prevErr == nil {
		outs = append(outs, e.toRoom(prev.RoomID, e.typingUsers(prev.RoomID)))
	}
	outs = append(outs,
		e.toRoom(roomID, e.userList(roomID)),
		e.toRoom(roomID, UserJoined{RoomID: roomID, ConnectionID: connectionID, DisplayName: p.DisplayName}),
		e.toConnection(connectionID, History{RoomID: roomID, Messages: slices.Collect(e.store.ListByRoom(roomID))}),
	)
	return outs, nil
}

func (e *Engine) send(connectionID string, ev Send) ([]Outbound, error) {
	p, err := e.participant(connectionID)
	if err != nil {
		return nil, err
	}
	if isBlank(ev.Text) && isBlank(ev.MediaURL) {
		return nil, ErrEmptyMessage
	}

	msg := e.store.Append(Message{
		SenderConnectionID: connectionID,
		SenderDisplayName:  p.DisplayName,
		RoomID:             p.RoomID,
		CreatedAt:          e.now(),
		Text:               ev.Text,
		MediaURL:           strings.TrimSpace(ev.MediaURL),
		Reactions:          map[string]int{},
		SeenBy:             []string{p.DisplayName},
	})
	return []Outbound{e.toRoom(p.RoomID, NewMessage{Message: msg})}, nil
}

func (e *Engine) sendPrivate(connectionID string, ev SendPrivate) ([]Outbound, error) {
	p, err := e.participant(connectionID)
	if err != nil {
		return nil, err
	}
	if isBlank(ev.Text) && isBlank(ev.MediaURL) {
		return nil, ErrEmptyMessage
	}
	if _, err := e.registry.Get(ev.To); err != nil {
		return nil, fmt.Errorf("private recipient: %w", err)
	}

	msg := Message{
		ID:                    e.store.NextID(),
		SenderConnectionID:    connectionID,
		SenderDisplayName:     p.DisplayName,
		CreatedAt:             e.now(),
		Text:                  ev.Text,
		MediaURL:              strings.TrimSpace(ev.MediaURL),
		Reactions:             map[string]int{},
		SeenBy:                []string{p.DisplayName},
		IsPrivate:             true,
		RecipientConnectionID: ev.To,
	}
	outs := []Outbound{e.toConnection(ev.To, PrivateMessage{Message: msg})}
	if ev.To != connectionID {
		outs = append(outs, e.toConnection(connectionID, PrivateMessage{Message: msg.Clone()}))
	}
	return outs, nil
}

func (e *Engine) setTyping(connectionID string, ev SetTyping) ([]Outbound, error) {
	p, err := e.participant(connectionID)
	if err != nil {
		return nil, err
	}
	if ev.IsTyping {
		e.typing.Set(connectionID, p.DisplayName)
	} else {
		e.typing.Clear(connectionID)
	}
	return []Outbound{e.toRoom(p.RoomID, e.typingUsers(p.RoomID))}, nil
}

func (e *Engine) react(connectionID string, ev React) ([]Outbound, error) {
	if _, err := e.participant(connectionID); err != nil {
		return nil, err
	}
	if _, err := e.tracker.AddReaction(ev.MessageID, ev.Emoji); err != nil {
		return nil, err
	}
	msg, err := e.store.Get(ev.MessageID)
	if err != nil {
		return nil, err
	}
	return []Outbound{e.toRoom(msg.RoomID, MessageUpdated{Message: msg})}, nil
}

func (e *Engine) markSeen(connectionID string, ev MarkSeen) ([]Outbound, error) {
	p, err := e.participant(connectionID)
	if err != nil {
		return nil, err
	}
	seenBy, changed, err := e.tracker.MarkSeen(ev.MessageID, p.DisplayName)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, nil
	}
	msg, err := e.store.Get(ev.MessageID)
	if err != nil {
		return nil, err
	}
	return []Outbound{e.toRoom(msg.RoomID, SeenUpdate{RoomID: msg.RoomID, MessageID: msg.ID, SeenBy: seenBy})}, nil
}

func (e *Engine) disconnect(connectionID string) []Outbound {
	wasTyping := e.typing.Clear(connectionID)
	p, err := e.registry.Leave(connectionID)
	if err != nil {
		return nil
	}

	outs := []Outbound{
		e.toRoom(p.RoomID, e.userList(p.RoomID)),
		e.toRoom(p.RoomID, UserLeft{RoomID: p.RoomID, ConnectionID: connectionID, DisplayName: p.DisplayName}),
	}
	if wasTyping {
		outs = append(outs, e.toRoom(p.RoomID, e.typingUsers(p.RoomID)))
	}
	return outs
}

func (e *Engine) participant(connectionID string) (Participant, error) {
	p, err := e.registry.Get(connectionID)
	if err != nil {
		return Participant{}, ErrNotJoined
	}
	return p, nil
}

func (e *Engine) userList(roomID string) UserList {
	return UserList{RoomID: roomID, Participants: e.rooms.Participants(roomID)}
}

func (e *Engine) typingUsers(roomID string) TypingUsers {
	return TypingUsers{RoomID: roomID, DisplayNames: e.rooms.TypingDisplayNames(roomID)}
}

func (e *Engine) toRoom(roomID string, p Payload) Outbound {
	return Outbound{
		Audience:   Audience{Kind: AudienceRoom, RoomID: roomID},
		Recipients: e.rooms.ConnectionIDs(roomID),
		Payload:    p,
	}
}

func (e *Engine) toConnection(connectionID string, p Payload) Outbound {
	return Outbound{
		Audience:   Audience{Kind: AudienceConnection, ConnectionID: connectionID},
		Recipients: []string{connectionID},
		Payload:    p,
	}
}

func isBlank(s string) bool { return strings.TrimSpace(s) == "" }
