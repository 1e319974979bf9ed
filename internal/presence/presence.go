package presence

import (
	"alumconnect/internal/models"
	"sort"
	"sync"
)

type entry struct {
	models.PresenceEntry
	seq uint64
}

// Table tracks which live connection sits in which channel. A connection holds
// at most one entry; joining again replaces it.
type Table struct {
	entries map[string]entry
	nextSeq uint64

	mu sync.RWMutex
}

func NewTable() *Table {
	return &Table{
		entries: make(map[string]entry),
	}
}

// Join inserts or replaces the entry for e.ConnectionID and returns the entry it
// replaced, if any. Joining the channel the connection is already in keeps its
// place in the roster.
func (t *Table) Join(e models.PresenceEntry) (models.PresenceEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev, existed := t.entries[e.ConnectionID]
	seq := prev.seq
	if !existed || prev.Channel != e.Channel {
		t.nextSeq++
		seq = t.nextSeq
	}
	t.entries[e.ConnectionID] = entry{PresenceEntry: e, seq: seq}

	return prev.PresenceEntry, existed
}

// Leave removes the entry for connectionID. Leaving an unknown connection is a no-op.
func (t *Table) Leave(connectionID string) (models.PresenceEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[connectionID]
	if !ok {
		return models.PresenceEntry{}, false
	}
	delete(t.entries, connectionID)

	return e.PresenceEntry, true
}

func (t *Table) Get(connectionID string) (models.PresenceEntry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.entries[connectionID]
	return e.PresenceEntry, ok
}

// Members returns the entries in channel in the order they joined it.
func (t *Table) Members(channel string) []models.PresenceEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var members []entry
	for _, e := range t.entries {
		if e.Channel == channel {
			members = append(members, e)
		}
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].seq < members[j].seq
	})

	result := make([]models.PresenceEntry, len(members))
	for i, e := range members {
		result[i] = e.PresenceEntry
	}
	return result
}

// RosterFor returns display names of channel members in join order.
func (t *Table) RosterFor(channel string) []string {
	members := t.Members(channel)
	roster := make([]string, len(members))
	for i, m := range members {
		roster[i] = m.DisplayName
	}
	return roster
}

// Channels returns the names of all channels with at least one member.
func (t *Table) Channels() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	seen := make(map[string]bool)
	var channels []string
	for _, e := range t.entries {
		if !seen[e.Channel] {
			seen[e.Channel] = true
			channels = append(channels, e.Channel)
		}
	}
	sort.Strings(channels)
	return channels
}
