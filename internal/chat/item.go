package chat

import (
	"fmt"
	"strconv"
	"time"
)

// Role identifies the author side of a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ItemKind discriminates the two item variants held by a session.
type ItemKind string

const (
	KindMessage   ItemKind = "message"
	KindSeparator ItemKind = "separator"
)

// VersionKey identifies one stored content version of a message item.
// Keys are derived from timestamps, so sorting keys yields insertion order.
type VersionKey string

// VersionSnapshot is the content of a message item at the time it was staged.
type VersionSnapshot struct {
	Content          string `json:"content"`
	ReasoningContent string `json:"reasoning_content,omitempty"`
	Author           string `json:"author,omitempty"`
}

// ProvidedContext is an opaque content block supplied by an external
// collaborator (selected note text, a file drop). The engine stores and
// echoes it; it never interprets the content beyond length accounting.
type ProvidedContext struct {
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`
}

// Attachment is a content part carried alongside the text of a user message.
type Attachment struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type,omitempty"`
	Content  string `json:"content"`
}

// Item is one entry in a session: either a chat turn (KindMessage) or a
// context-window boundary (KindSeparator). Separator items carry only an ID.
type Item struct {
	ID        string    `json:"id"`
	Kind      ItemKind  `json:"kind"`
	Timestamp time.Time `json:"timestamp,omitempty"`
	Author    string    `json:"author,omitempty"`
	Role      Role      `json:"role,omitempty"`

	Content          string `json:"content,omitempty"`
	ReasoningContent string `json:"reasoning_content,omitempty"`
	Hidden           bool   `json:"hidden,omitempty"`

	CurrentVersion VersionKey                      `json:"current_version,omitempty"`
	Versions       map[VersionKey]VersionSnapshot `json:"versions,omitempty"`

	// Token accounting: completion tokens on assistant items, prompt tokens
	// on the user item that triggered the request.
	TokenCount    int `json:"token_count,omitempty"`
	AttachedItems int `json:"attached_items,omitempty"`
	AttachedChars int `json:"attached_chars,omitempty"`

	Contexts    []ProvidedContext `json:"contexts,omitempty"`
	Attachments []Attachment      `json:"attachments,omitempty"`

	// [UserTextStart, UserTextEnd) locates the raw user text inside Content
	// after provided-context blocks have been merged in.
	UserTextStart int `json:"user_text_start,omitempty"`
	UserTextEnd   int `json:"user_text_end,omitempty"`

	Loading bool `json:"loading,omitempty"`
}

// IsMessage reports whether the item is a chat turn (as opposed to a separator).
func (it *Item) IsMessage() bool {
	return it.Kind == KindMessage
}

// Attachable reports whether the item may be included in an attached-history
// window: message items that are not hidden.
func (it *Item) Attachable() bool {
	return it.Kind == KindMessage && !it.Hidden
}

// Message converts the item to its wire form for a completion request.
// Attachments render as fenced blocks after the text so the service sees
// the full prompt the user composed.
func (it *Item) Message() Message {
	content := it.Content
	for _, a := range it.Attachments {
		content += fmt.Sprintf("\n\n[%s]\n%s", a.Name, a.Content)
	}
	return Message{Role: it.Role, Content: content}
}

// UserText recovers the original user text from a message whose content was
// merged with provided-context blocks. Falls back to the full content when
// no range was recorded.
func (it *Item) UserText() string {
	if it.UserTextEnd > it.UserTextStart && it.UserTextEnd <= len(it.Content) {
		return it.Content[it.UserTextStart:it.UserTextEnd]
	}
	return it.Content
}

// versionKeyAt derives a version key from a timestamp.
func versionKeyAt(t time.Time) VersionKey {
	return VersionKey(strconv.FormatInt(t.UnixMilli(), 10))
}

// newVersionKey derives a key from t that is not already present in the
// item's version map, bumping by a millisecond on collision so keys stay
// time-ordered.
func newVersionKey(t time.Time, versions map[VersionKey]VersionSnapshot) VersionKey {
	key := versionKeyAt(t)
	for {
		if _, exists := versions[key]; !exists {
			return key
		}
		t = t.Add(time.Millisecond)
		key = versionKeyAt(t)
	}
}
