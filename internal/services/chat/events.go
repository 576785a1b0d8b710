package chat

// Event is an inbound event from one connection.
type Event interface {
	Name() string
	isEvent()
}

type Join struct {
	DisplayName string
	RoomID      string
}

type Send struct {
	Text     string
	MediaURL string
}

type SendPrivate struct {
	To       string
	Text     string
	MediaURL string
}

type SetTyping struct {
	IsTyping bool
}

type React struct {
	MessageID uint64
	Emoji     string
}

type MarkSeen struct {
	MessageID uint64
}

// Disconnect is generated by the transport when a connection is lost.
type Disconnect struct{}

func (Join) Name() string        { return "join" }
func (Send) Name() string        { return "send" }
func (SendPrivate) Name() string { return "send_private" }
func (SetTyping) Name() string   { return "typing" }
func (React) Name() string       { return "react" }
func (MarkSeen) Name() string    { return "seen" }
func (Disconnect) Name() string  { return "disconnect" }

func (Join) isEvent()        {}
func (Send) isEvent()        {}
func (SendPrivate) isEvent() {}
func (SetTyping) isEvent()   {}
func (React) isEvent()       {}
func (MarkSeen) isEvent()    {}
func (Disconnect) isEvent()  {}

// Payload is the body of an outbound event. EventName is its wire name.
type Payload interface {
	EventName() string
}

type UserList struct {
	RoomID       string        `json:"roomId"`
	Participants []Participant `json:"participants"`
}

type UserJoined struct {
	RoomID       string `json:"roomId"`
	ConnectionID string `json:"connectionId"`
	DisplayName  string `json:"displayName"`
}

type UserLeft struct {
	RoomID       string `json:"roomId"`
	ConnectionID string `json:"connectionId"`
	DisplayName  string `json:"displayName"`
}

type NewMessage struct {
	Message Message `json:"message"`
}

// MessageUpdated carries a stored message after a reaction.
type MessageUpdated struct {
	Message Message `json:"message"`
}

type TypingUsers struct {
	RoomID       string   `json:"roomId"`
	DisplayNames []string `json:"displayNames"`
}

type SeenUpdate struct {
	RoomID    string   `json:"roomId"`
	MessageID uint64   `json:"messageId"`
	SeenBy    []string `json:"seenBy"`
}

type PrivateMessage struct {
	Message Message `json:"message"`
}

// History is the room backfill sent to a connection right after it joins.
type History struct {
	RoomID   string    `json:"roomId"`
	Messages []Message `json:"messages"`
}

func (UserList) EventName() string       { return "chat/userList" }
func (UserJoined) EventName() string     { return "chat/userJoined" }
func (UserLeft) EventName() string       { return "chat/userLeft" }
func (NewMessage) EventName() string     { return "chat/newMessage" }
func (MessageUpdated) EventName() string { return "chat/messageUpdated" }
func (TypingUsers) EventName() string    { return "chat/typingUsers" }
func (SeenUpdate) EventName() string     { return "chat/seenUpdate" }
func (PrivateMessage) EventName() string { return "chat/privateMessage" }
func (History) EventName() string        { return "chat/history" }

type AudienceKind int

const (
	AudienceRoom AudienceKind = iota + 1
	AudienceConnection
)

func (k AudienceKind) String() string {
	switch k {
	case AudienceRoom:
		return "room"
	case AudienceConnection:
		return "connection"
	}
	return "unknown"
}

// Audience is the addressing of an outbound event: a whole room or a single
// connection.
type Audience struct {
	Kind         AudienceKind
	RoomID       string
	ConnectionID string
}

// Outbound is an event plus the connections it must reach. Recipients is
// resolved in the same critical section as the mutation that produced it.
type Outbound struct {
	Audience   Audience
	Recipients []string
	Payload    Payload
}

// Emitter receives outbound events while the engine lock is held, so it must
// not block.
type Emitter interface {
	Emit(out Outbound)
}

type EmitterFunc func(out Outbound)

func (f EmitterFunc) Emit(out Outbound) { f(out) }
