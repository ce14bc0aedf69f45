package chat

import (
	"fmt"
	"slices"
	"time"
)

// Version bookkeeping. A message item with an empty version map has never
// been staged; single-version messages may omit bookkeeping entirely. For all
// items with a non-empty map, CurrentVersion is a key of that map.

// StageVersion records the item's live content under its current version key
// and assigns a fresh current key. It must run before the content is
// overwritten by a new completion result, so the previous content is never
// lost. Staging the same content twice is a no-op apart from the key change.
func (s *Session) StageVersion(it *Item, now time.Time) {
	if it.Kind != KindMessage {
		return
	}
	if it.CurrentVersion == "" {
		it.CurrentVersion = versionKeyAt(it.Timestamp)
	}
	if it.Versions == nil {
		it.Versions = make(map[VersionKey]VersionSnapshot)
	}
	if cur, ok := it.Versions[it.CurrentVersion]; !ok || cur.Content != it.Content {
		it.Versions[it.CurrentVersion] = VersionSnapshot{
			Content:          it.Content,
			ReasoningContent: it.ReasoningContent,
			Author:           it.Author,
		}
	}
	it.CurrentVersion = newVersionKey(now, it.Versions)
}

// ApplyVersion replaces the item's live content with the stored snapshot
// under key and makes key current. The entry is not removed. Returns false
// if the key is absent.
func (s *Session) ApplyVersion(it *Item, key VersionKey) bool {
	snap, ok := it.Versions[key]
	if !ok {
		return false
	}
	it.Content = snap.Content
	it.ReasoningContent = snap.ReasoningContent
	if snap.Author != "" {
		it.Author = snap.Author
	}
	it.CurrentVersion = key
	return true
}

// SwitchVersion makes key the current version of the identified item.
// No-op (returning false) when the key is already current, the item has at
// most one version, or the key is absent. On success UpdatedAt advances.
func (s *Session) SwitchVersion(itemID string, key VersionKey, now time.Time) bool {
	it := s.Item(itemID)
	if it == nil || key == it.CurrentVersion || len(it.Versions) <= 1 {
		return false
	}
	if !s.ApplyVersion(it, key) {
		return false
	}
	s.touch(now)
	return true
}

// DeleteVersion removes the stored version under key. Deleting the active
// version requires autoSwitch and at least one other version: the engine
// first switches to the version immediately before key in insertion order,
// wrapping to the last when key is first, then deletes the entry.
func (s *Session) DeleteVersion(itemID string, key VersionKey, autoSwitch bool, now time.Time) error {
	it := s.Item(itemID)
	if it == nil {
		return fmt.Errorf("%w: no item %s", ErrVersionNotFound, itemID)
	}
	if _, ok := it.Versions[key]; !ok {
		return fmt.Errorf("%w: item %s has no version %s", ErrVersionNotFound, itemID, key)
	}
	if key == it.CurrentVersion {
		if len(it.Versions) <= 1 {
			return fmt.Errorf("%w: item %s", ErrCannotDeleteSoleVersion, itemID)
		}
		if !autoSwitch {
			return fmt.Errorf("%w: deleting the active version requires auto-switch", ErrInvalidInput)
		}
		keys := it.VersionKeys()
		pos := slices.Index(keys, key)
		prev := keys[len(keys)-1]
		if pos > 0 {
			prev = keys[pos-1]
		}
		s.ApplyVersion(it, prev)
	}
	delete(it.Versions, key)
	s.touch(now)
	return nil
}

// VersionKeys returns the item's version keys in insertion order.
// Keys are time-ordered strings, so lexicographic sort reproduces it.
func (it *Item) VersionKeys() []VersionKey {
	keys := make([]VersionKey, 0, len(it.Versions))
	for k := range it.Versions {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
