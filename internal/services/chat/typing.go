package chat

// TypingState holds connectionID -> display name for connections that are
// currently typing.
type TypingState map[string]string

func (t TypingState) Set(connectionID, displayName string) {
	t[connectionID] = displayName
}

// Clear removes the entry and reports whether one existed.
func (t TypingState) Clear(connectionID string) bool {
	_, ok := t[connectionID]
	delete(t, connectionID)
	return ok
}
