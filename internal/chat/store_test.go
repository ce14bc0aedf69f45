package chat

import (
	"strings"
	"testing"
)

func TestAppendUserMessagePlainText(t *testing.T) {
	clk := newFakeClock()
	s := NewSession("sess", clk.Now())
	now := clk.Now()

	it := s.AppendUserMessage("m1", now, "hello", nil, nil)
	if it.Content != "hello" {
		t.Errorf("expected plain content, got %q", it.Content)
	}
	if it.UserText() != "hello" {
		t.Errorf("expected user text recovered, got %q", it.UserText())
	}
	if it.CurrentVersion != versionKeyAt(now) {
		t.Errorf("expected version key equal to own timestamp, got %s", it.CurrentVersion)
	}
	if len(it.Versions) != 0 {
		t.Error("a fresh message must not carry version bookkeeping")
	}
	if len(s.Items) != 1 || s.Items[0] != it {
		t.Error("message not appended in order")
	}
}

func TestAppendUserMessageMergesContexts(t *testing.T) {
	clk := newFakeClock()
	s := NewSession("sess", clk.Now())
	ctxs := []ProvidedContext{
		{Title: "note.md", Content: "selected text"},
		{Content: "a second block"},
	}

	it := s.AppendUserMessage("m1", clk.Now(), "summarize this", nil, ctxs)
	if !strings.Contains(it.Content, "selected text") || !strings.Contains(it.Content, "a second block") {
		t.Fatalf("context blocks missing from merged content: %q", it.Content)
	}
	if !strings.HasSuffix(it.Content, "summarize this") {
		t.Errorf("user text should follow context blocks: %q", it.Content)
	}
	if got := it.UserText(); got != "summarize this" {
		t.Errorf("expected original user text recovered, got %q", got)
	}
	if len(it.Contexts) != 2 {
		t.Errorf("expected contexts echoed on the item, got %d", len(it.Contexts))
	}
}

func TestAppendUserMessageWithAttachments(t *testing.T) {
	clk := newFakeClock()
	s := NewSession("sess", clk.Now())
	atts := []Attachment{{Name: "todo.md", Content: "- [ ] ship it"}}

	it := s.AppendUserMessage("m1", clk.Now(), "what is left?", atts, nil)
	wire := it.Message()
	if !strings.Contains(wire.Content, "what is left?") || !strings.Contains(wire.Content, "- [ ] ship it") {
		t.Errorf("attachment missing from wire content: %q", wire.Content)
	}
	if it.Content != "what is left?" {
		t.Errorf("attachments must not leak into the stored text: %q", it.Content)
	}
}

func TestToggleSeparatorAtEnd(t *testing.T) {
	clk := newFakeClock()
	s := NewSession("sess", clk.Now())
	s.AppendUserMessage("m1", clk.Now(), "hello", nil, nil)

	if !s.ToggleSeparator("s1") {
		t.Fatal("expected insertion")
	}
	if len(s.Items) != 2 || s.Items[1].Kind != KindSeparator {
		t.Fatal("separator not appended")
	}
	if s.ToggleSeparator("s2") {
		t.Fatal("expected removal on second toggle")
	}
	if len(s.Items) != 1 {
		t.Fatal("separator not removed")
	}
}

func TestToggleSeparatorAtIndexIsIdempotentInPairs(t *testing.T) {
	clk := newFakeClock()
	s := NewSession("sess", clk.Now())
	s.AppendUserMessage("m1", clk.Now(), "one", nil, nil)
	s.AppendUserMessage("m2", clk.Now(), "two", nil, nil)

	if !s.ToggleSeparatorAt("s1", 0) {
		t.Fatal("expected insertion after index 0")
	}
	if s.Items[1].Kind != KindSeparator || s.Items[2].ID != "m2" {
		t.Fatalf("unexpected order after insert: %v", itemIDs(s))
	}
	if s.ToggleSeparatorAt("s2", 0) {
		t.Fatal("expected removal of adjacent separator")
	}
	if len(s.Items) != 2 || s.Items[1].ID != "m2" {
		t.Fatalf("original order not restored: %v", itemIDs(s))
	}
}

func TestToggleHidden(t *testing.T) {
	clk := newFakeClock()
	s := NewSession("sess", clk.Now())
	s.AppendUserMessage("m1", clk.Now(), "hello", nil, nil)
	s.ToggleSeparator("s1")

	if !s.ToggleHidden(0, nil) {
		t.Fatal("expected flip to hidden")
	}
	if !s.Items[0].Hidden {
		t.Error("message not hidden")
	}
	on := true
	if s.ToggleHidden(0, &on) {
		t.Error("setting the same value should report no change")
	}
	off := false
	if !s.ToggleHidden(0, &off) || s.Items[0].Hidden {
		t.Error("explicit unhide failed")
	}
	if s.ToggleHidden(1, nil) {
		t.Error("toggling a separator must be a no-op")
	}
	if s.ToggleHidden(9, nil) {
		t.Error("out-of-range toggle must be a no-op")
	}
}

func TestInsertRemovePreserveOrder(t *testing.T) {
	clk := newFakeClock()
	s := NewSession("sess", clk.Now())
	s.AppendUserMessage("m1", clk.Now(), "one", nil, nil)
	s.AppendUserMessage("m3", clk.Now(), "three", nil, nil)

	s.InsertAt(1, msg("m2", RoleAssistant, "two"))
	want := []string{"m1", "m2", "m3"}
	for i, id := range want {
		if s.Items[i].ID != id {
			t.Fatalf("unexpected order: %v", itemIDs(s))
		}
	}

	removed := s.RemoveAt(1)
	if removed == nil || removed.ID != "m2" {
		t.Fatalf("expected m2 removed, got %v", removed)
	}
	if len(s.Items) != 2 || s.Items[1].ID != "m3" {
		t.Fatalf("order broken after removal: %v", itemIDs(s))
	}
	if s.RemoveAt(17) != nil {
		t.Error("out-of-range removal must return nil")
	}
}

func itemIDs(s *Session) []string {
	out := make([]string, len(s.Items))
	for i, it := range s.Items {
		out[i] = it.ID
	}
	return out
}
