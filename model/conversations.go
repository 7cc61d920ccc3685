package model

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"companion/config"
)

// Placement decides where Create inserts a new conversation.
type Placement string

const (
	// PlacementPrepend puts new conversations first, matching the gateway's
	// newest-first listing.
	PlacementPrepend Placement = "prepend"
	// PlacementAppend puts new conversations at the end of the list.
	PlacementAppend Placement = "append"
)

// ParsePlacement converts a config value into a Placement.
func ParsePlacement(value string) (Placement, error) {
	switch Placement(strings.ToLower(strings.TrimSpace(value))) {
	case PlacementPrepend, "":
		return PlacementPrepend, nil
	case PlacementAppend:
		return PlacementAppend, nil
	default:
		return "", fmt.Errorf("unknown conversation placement: %q", value)
	}
}

// ConversationsSnapshot is an immutable copy of the store state.
type ConversationsSnapshot struct {
	Conversations []Conversation
	Selected      ConversationID
}

// IndexOf returns the position of id, or -1.
func (s ConversationsSnapshot) IndexOf(id ConversationID) int {
	return indexOfConversation(s.Conversations, id)
}

// SelectedConversation returns the selected conversation, if any.
func (s ConversationsSnapshot) SelectedConversation() (Conversation, bool) {
	idx := s.IndexOf(s.Selected)
	if idx < 0 {
		return Conversation{}, false
	}
	return s.Conversations[idx], true
}

// StoreOption configures a ConversationStore.
type StoreOption func(*ConversationStore)

// WithPlacement sets the Create placement policy.
func WithPlacement(p Placement) StoreOption {
	return func(s *ConversationStore) {
		s.placement = p
	}
}

// WithInitialConversations seeds the store. A selection that is not part of
// conversations is dropped.
func WithInitialConversations(conversations []Conversation, selected ConversationID) StoreOption {
	return func(s *ConversationStore) {
		s.conversations = uniqueConversations(conversations)
		if indexOfConversation(s.conversations, selected) >= 0 {
			s.selected = selected
		}
	}
}

// ConversationStore owns the ordered conversation collection and the selection.
// The gateway is the source of truth: every mutation except Select is committed
// only after the gateway confirmed it.
type ConversationStore struct {
	gateway   Gateway
	placement Placement

	mu            sync.Mutex
	conversations []Conversation
	selected      ConversationID

	changes broadcaster[ConversationsSnapshot]
}

// NewConversationStore creates an empty store backed by gw.
func NewConversationStore(gw Gateway, opts ...StoreOption) *ConversationStore {
	s := &ConversationStore{
		gateway:   gw,
		placement: PlacementPrepend,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Placement returns the configured Create placement policy.
func (s *ConversationStore) Placement() Placement {
	return s.placement
}

// Snapshot returns a copy of the current collection and selection.
func (s *ConversationStore) Snapshot() ConversationsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to receive a snapshot after every change. Snapshots
// arrive in commit order; one overtaken by a newer snapshot is skipped. fn runs
// on the committing goroutine and must not modify the same owner.
func (s *ConversationStore) Subscribe(fn func(ConversationsSnapshot)) (unsubscribe func()) {
	return s.changes.subscribe(fn)
}

// Load replaces the collection with the gateway's list. When nothing is selected
// the first conversation becomes the selection. On failure the local state is
// left as it was.
func (s *ConversationStore) Load(ctx context.Context) error {
	conversations, err := s.gateway.ListConversations(ctx)
	if err != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Conversations] Load failed: %v", err)
		}
		return err
	}

	s.mu.Lock()
	s.conversations = uniqueConversations(conversations)
	if indexOfConversation(s.conversations, s.selected) < 0 {
		s.selected = NoConversation
	}
	if s.selected == NoConversation && len(s.conversations) > 0 {
		s.selected = s.conversations[0].ID
	}
	snap, seq := s.commitLocked()
	s.mu.Unlock()

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Conversations] Loaded %d conversations, selected=%s", len(snap.Conversations), snap.Selected)
	}

	s.changes.publish(seq, snap)
	return nil
}

// Create asks the gateway for a new conversation, inserts it according to the
// placement policy and selects it.
func (s *ConversationStore) Create(ctx context.Context) (Conversation, error) {
	created, err := s.gateway.CreateConversation(ctx)
	if err != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Conversations] Create failed: %v", err)
		}
		return Conversation{}, err
	}

	s.mu.Lock()
	s.conversations = removeConversation(s.conversations, created.ID)
	switch s.placement {
	case PlacementAppend:
		s.conversations = append(s.conversations, created)
	default:
		s.conversations = append([]Conversation{created}, s.conversations...)
	}
	s.selected = created.ID
	snap, seq := s.commitLocked()
	s.mu.Unlock()

	s.changes.publish(seq, snap)
	return created, nil
}

// Rename persists newName (trimmed) and replaces the entry in place.
func (s *ConversationStore) Rename(ctx context.Context, id ConversationID, newName string) (Conversation, error) {
	name := strings.TrimSpace(newName)
	if name == "" {
		return Conversation{}, newValidationError("rename", "name must not be empty")
	}
	if !s.contains(id) {
		return Conversation{}, newValidationError("rename", fmt.Sprintf("conversation %s not found", id))
	}

	updated, err := s.gateway.RenameConversation(ctx, id, name)
	if err != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Conversations] Rename %s failed: %v", id, err)
		}
		return Conversation{}, err
	}
	if updated.ID != id {
		return Conversation{}, &TransportError{
			Op:   "rename conversation",
			Kind: KindDecode,
			Err:  fmt.Errorf("gateway returned conversation %s for rename of %s", updated.ID, id),
		}
	}

	s.mu.Lock()
	idx := indexOfConversation(s.conversations, id)
	if idx < 0 {
		s.mu.Unlock()
		// Deleted while the rename was in flight; don't bring it back.
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Conversations] Dropping rename response for removed conversation %s", id)
		}
		return updated, nil
	}
	s.conversations[idx] = updated
	snap, seq := s.commitLocked()
	s.mu.Unlock()

	s.changes.publish(seq, snap)
	return updated, nil
}

// Delete removes the conversation on the gateway, then locally. A deleted
// selection moves to the first remaining conversation, or to none.
func (s *ConversationStore) Delete(ctx context.Context, id ConversationID) error {
	if !s.contains(id) {
		return newValidationError("delete", fmt.Sprintf("conversation %s not found", id))
	}

	if err := s.gateway.DeleteConversation(ctx, id); err != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Conversations] Delete %s failed: %v", id, err)
		}
		return err
	}

	s.mu.Lock()
	s.conversations = removeConversation(s.conversations, id)
	if s.selected == id || indexOfConversation(s.conversations, s.selected) < 0 {
		s.selected = NoConversation
		if len(s.conversations) > 0 {
			s.selected = s.conversations[0].ID
		}
	}
	snap, seq := s.commitLocked()
	s.mu.Unlock()

	s.changes.publish(seq, snap)
	return nil
}

// Select changes the selection locally. NoConversation clears it; an unknown id
// is rejected and the previous selection is kept.
func (s *ConversationStore) Select(id ConversationID) error {
	s.mu.Lock()
	if id != NoConversation && indexOfConversation(s.conversations, id) < 0 {
		s.mu.Unlock()
		return newValidationError("select", fmt.Sprintf("conversation %s not found", id))
	}
	if s.selected == id {
		s.mu.Unlock()
		return nil
	}
	s.selected = id
	snap, seq := s.commitLocked()
	s.mu.Unlock()

	s.changes.publish(seq, snap)
	return nil
}

func (s *ConversationStore) contains(id ConversationID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return indexOfConversation(s.conversations, id) >= 0
}

// commitLocked snapshots the store and stamps it for ordered delivery.
func (s *ConversationStore) commitLocked() (ConversationsSnapshot, uint64) {
	return s.snapshotLocked(), s.changes.stamp()
}

func (s *ConversationStore) snapshotLocked() ConversationsSnapshot {
	conversations := make([]Conversation, len(s.conversations))
	copy(conversations, s.conversations)
	return ConversationsSnapshot{
		Conversations: conversations,
		Selected:      s.selected,
	}
}

func indexOfConversation(conversations []Conversation, id ConversationID) int {
	if id == NoConversation {
		return -1
	}
	for i, c := range conversations {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func removeConversation(conversations []Conversation, id ConversationID) []Conversation {
	filtered := make([]Conversation, 0, len(conversations))
	for _, c := range conversations {
		if c.ID != id {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

// uniqueConversations copies conversations keeping the first entry per id.
func uniqueConversations(conversations []Conversation) []Conversation {
	seen := make(map[ConversationID]bool, len(conversations))
	unique := make([]Conversation, 0, len(conversations))
	for _, c := range conversations {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		unique = append(unique, c)
	}
	return unique
}
