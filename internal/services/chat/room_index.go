package chat

// RoomIndex derives room membership and typing names from the registry on
// every call. It holds no state of its own.
type RoomIndex struct {
	registry *Registry
	typing   TypingState
}

func NewRoomIndex(registry *Registry, typing TypingState) *RoomIndex {
	return &RoomIndex{registry: registry, typing: typing}
}

func (ri *RoomIndex) Participants(roomID string) []Participant {
	return ri.registry.ListByRoom(roomID)
}

// TypingDisplayNames lists typing participants of roomID in join order.
func (ri *RoomIndex) TypingDisplayNames(roomID string) []string {
	names := make([]string, 0)
	for _, p := range ri.registry.ListByRoom(roomID) {
		if name, ok := ri.typing[p.ConnectionID]; ok {
			names = append(names, name)
		}
	}
	return names
}

// ConnectionIDs is the broadcast audience for roomID.
func (ri *RoomIndex) ConnectionIDs(roomID string) []string {
	ps := ri.registry.ListByRoom(roomID)
	ids := make([]string, len(ps))
	for i, p := range ps {
		ids[i] = p.ConnectionID
	}
	return ids
}
