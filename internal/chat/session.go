package chat

import (
	"slices"
	"time"
)

// Session is one conversation: ordered message items plus metadata. Its JSON
// form is the snapshot shape exchanged with the persistence collaborator.
type Session struct {
	ID           string    `json:"id"`
	Title        string    `json:"title,omitempty"`
	SystemPrompt string    `json:"system_prompt,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Tags         []string  `json:"tags,omitempty"`
	Items        []*Item   `json:"items"`
}

// NewSession creates an empty session.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// touch advances UpdatedAt. Only content-affecting operations call it; the
// persistence collaborator uses UpdatedAt to decide whether a session is dirty.
func (s *Session) touch(now time.Time) {
	if now.After(s.UpdatedAt) {
		s.UpdatedAt = now
	}
}

// AddTag inserts a tag with set semantics, keeping Tags sorted.
// Returns true if the tag was not already present.
func (s *Session) AddTag(tag string, now time.Time) bool {
	if slices.Contains(s.Tags, tag) {
		return false
	}
	s.Tags = append(s.Tags, tag)
	slices.Sort(s.Tags)
	s.touch(now)
	return true
}

// RemoveTag deletes a tag. Returns true if it was present.
func (s *Session) RemoveTag(tag string, now time.Time) bool {
	i := slices.Index(s.Tags, tag)
	if i < 0 {
		return false
	}
	s.Tags = slices.Delete(s.Tags, i, i+1)
	s.touch(now)
	return true
}

// ItemIndex returns the position of the item with the given id, or -1.
func (s *Session) ItemIndex(id string) int {
	for i, it := range s.Items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// Item returns the item with the given id, or nil.
func (s *Session) Item(id string) *Item {
	if i := s.ItemIndex(id); i >= 0 {
		return s.Items[i]
	}
	return nil
}

// Clone returns a deep copy of the session. Apply and Snapshot go through
// Clone so callers never alias live engine state.
func (s *Session) Clone() *Session {
	out := *s
	out.Tags = slices.Clone(s.Tags)
	out.Items = make([]*Item, len(s.Items))
	for i, it := range s.Items {
		cp := *it
		cp.Contexts = slices.Clone(it.Contexts)
		cp.Attachments = slices.Clone(it.Attachments)
		if it.Versions != nil {
			cp.Versions = make(map[VersionKey]VersionSnapshot, len(it.Versions))
			for k, v := range it.Versions {
				cp.Versions[k] = v
			}
		}
		out.Items[i] = &cp
	}
	return &out
}
