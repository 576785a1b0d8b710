package chat

import (
	"slices"
	"strings"
)

// DeliveryTracker mutates seen-by sets and reaction counts of stored
// messages in place.
type DeliveryTracker struct {
	store *MessageStore
}

func NewDeliveryTracker(store *MessageStore) *DeliveryTracker {
	return &DeliveryTracker{store: store}
}

// MarkSeen adds displayName to the message's seen-by set. It is idempotent;
// changed reports whether the set grew.
func (dt *DeliveryTracker) MarkSeen(messageID uint64, displayName string) (seenBy []string, changed bool, err error) {
	m, err := dt.store.lookup(messageID)
	if err != nil {
		return nil, false, err
	}
	if !slices.Contains(m.SeenBy, displayName) {
		m.SeenBy = append(m.SeenBy, displayName)
		changed = true
	}
	return slices.Clone(m.SeenBy), changed, nil
}

// AddReaction counts one vote for emoji. Every call is a vote; there is no
// per-user dedup.
func (dt *DeliveryTracker) AddReaction(messageID uint64, emoji string) (int, error) {
	if strings.TrimSpace(emoji) == "" {
		return 0, ErrEmptyEmoji
	}
	m, err := dt.store.lookup(messageID)
	if err != nil {
		return 0, err
	}
	if m.Reactions == nil {
		m.Reactions = map[string]int{}
	}
	m.Reactions[emoji]++
	return m.Reactions[emoji], nil
}
