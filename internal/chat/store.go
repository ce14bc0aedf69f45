package chat

import (
	"fmt"
	"strings"
	"time"
)

// Structural mutation of the ordered item sequence. These methods never talk
// to the completion service; timestamps and ids are supplied by the caller so
// the store stays deterministic under test.

// AppendUserMessage builds a user message from text, attachments, and
// provided-context blocks and appends it. Context blocks are rendered ahead
// of the user text and the [start,end) slice of the original text inside the
// merged content is recorded so it can be recovered later. The new item's
// current version key equals its own timestamp.
func (s *Session) AppendUserMessage(id string, now time.Time, text string, atts []Attachment, ctxs []ProvidedContext) *Item {
	content := text
	start, end := 0, len(text)
	if len(ctxs) > 0 {
		var b strings.Builder
		for _, pc := range ctxs {
			if pc.Title != "" {
				fmt.Fprintf(&b, "[%s]\n", pc.Title)
			}
			b.WriteString(pc.Content)
			b.WriteString("\n\n")
		}
		start = b.Len()
		b.WriteString(text)
		end = b.Len()
		content = b.String()
	}

	it := &Item{
		ID:             id,
		Kind:           KindMessage,
		Timestamp:      now,
		Role:           RoleUser,
		Content:        content,
		CurrentVersion: versionKeyAt(now),
		Contexts:       ctxs,
		Attachments:    atts,
		UserTextStart:  start,
		UserTextEnd:    end,
	}
	s.Items = append(s.Items, it)
	return it
}

// InsertAt places an item at the given position, preserving order.
// Out-of-range positions clamp to the ends of the sequence.
func (s *Session) InsertAt(index int, it *Item) {
	if index < 0 {
		index = 0
	}
	if index > len(s.Items) {
		index = len(s.Items)
	}
	s.Items = append(s.Items, nil)
	copy(s.Items[index+1:], s.Items[index:])
	s.Items[index] = it
}

// RemoveAt deletes the item at the given position, preserving order.
// Returns the removed item, or nil if the index is out of range.
func (s *Session) RemoveAt(index int) *Item {
	if index < 0 || index >= len(s.Items) {
		return nil
	}
	it := s.Items[index]
	s.Items = append(s.Items[:index], s.Items[index+1:]...)
	return it
}

// ToggleSeparatorAt inserts a separator immediately after index, or removes
// the one already there. The toggle is idempotent in pairs: two calls with
// the same index restore the original sequence. Returns true when a
// separator was inserted.
func (s *Session) ToggleSeparatorAt(id string, index int) bool {
	if index+1 < len(s.Items) && s.Items[index+1].Kind == KindSeparator {
		s.RemoveAt(index + 1)
		return false
	}
	s.InsertAt(index+1, &Item{ID: id, Kind: KindSeparator})
	return true
}

// ToggleSeparator toggles a separator at the end of the sequence.
func (s *Session) ToggleSeparator(id string) bool {
	if n := len(s.Items); n > 0 && s.Items[n-1].Kind == KindSeparator {
		s.RemoveAt(n - 1)
		return false
	}
	s.Items = append(s.Items, &Item{ID: id, Kind: KindSeparator})
	return true
}

// ToggleHidden flips the hidden flag of the message at index, or sets it to
// *value when value is non-nil. Separators have no hidden flag; toggling one
// is a no-op. Returns true if the item changed.
func (s *Session) ToggleHidden(index int, value *bool) bool {
	if index < 0 || index >= len(s.Items) {
		return false
	}
	it := s.Items[index]
	if it.Kind != KindMessage {
		return false
	}
	next := !it.Hidden
	if value != nil {
		next = *value
	}
	if it.Hidden == next {
		return false
	}
	it.Hidden = next
	return true
}
