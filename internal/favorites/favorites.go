// Package favorites keeps the bounded shortlist of levels being practiced.
package favorites

import "errors"

// MaxEntries is the shortcut capacity. The overview pins favorites on
// top, and three keeps that section scannable at a glance.
const MaxEntries = 3

// ErrCapacityExceeded is returned by Toggle when adding a new entry
// would grow the shortlist beyond MaxEntries.
var ErrCapacityExceeded = errors.New("favorites: shortlist is full")

// Entry is one shortlisted (subject, level) pair.
type Entry struct {
	Subject string
	Level   string
}

// Manager is an ordered set of at most MaxEntries entries. Insertion
// order is preserved and significant for display.
type Manager struct {
	entries []Entry
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{}
}

// Toggle flips membership of (subject, level). Removing always
// succeeds. Adding succeeds only while the shortlist has room;
// otherwise ErrCapacityExceeded is returned and nothing changes.
// added reports whether the pair is a member after the call.
func (m *Manager) Toggle(subject, level string) (added bool, err error) {
	for i, e := range m.entries {
		if e.Subject == subject && e.Level == level {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return false, nil
		}
	}
	if len(m.entries) >= MaxEntries {
		return false, ErrCapacityExceeded
	}
	m.entries = append(m.entries, Entry{Subject: subject, Level: level})
	return true, nil
}

// List returns the current entries in insertion order.
func (m *Manager) List() []Entry {
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// IsFavorite reports membership of (subject, level).
func (m *Manager) IsFavorite(subject, level string) bool {
	for _, e := range m.entries {
		if e.Subject == subject && e.Level == level {
			return true
		}
	}
	return false
}

// Len returns the number of shortlisted entries.
func (m *Manager) Len() int {
	return len(m.entries)
}
