package search

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/notelab/sidechat/internal/chat"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := NewIndex(filepath.Join(t.TempDir(), "search"))
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func buildSession(id, title string, contents ...string) *chat.Session {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	sess := chat.NewSession(id, base)
	sess.Title = title
	role := chat.RoleUser
	for i, content := range contents {
		sess.Items = append(sess.Items, &chat.Item{
			ID:        id + "-m" + string(rune('1'+i)),
			Kind:      chat.KindMessage,
			Role:      role,
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Content:   content,
		})
		if role == chat.RoleUser {
			role = chat.RoleAssistant
		} else {
			role = chat.RoleUser
		}
	}
	return sess
}

func TestSearchAcrossSessions(t *testing.T) {
	idx := newTestIndex(t)

	if err := idx.IndexSession(buildSession("s1", "deploy notes", "how do we deploy the scheduler", "use the release pipeline")); err != nil {
		t.Fatalf("IndexSession: %v", err)
	}
	if err := idx.IndexSession(buildSession("s2", "cooking", "risotto recipe please", "stir constantly")); err != nil {
		t.Fatalf("IndexSession: %v", err)
	}

	results, err := idx.Search("scheduler", "", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Search returned %d hits, want 1", len(results))
	}
	if results[0].SessionID != "s1" || results[0].ItemID != "s1-m1" || results[0].Role != "user" {
		t.Errorf("hit = %+v", results[0])
	}
	if results[0].Title != "deploy notes" {
		t.Errorf("Title = %q", results[0].Title)
	}
}

func TestSearchSessionFilter(t *testing.T) {
	idx := newTestIndex(t)

	idx.IndexSession(buildSession("s1", "", "the deploy failed"))
	idx.IndexSession(buildSession("s2", "", "the deploy worked"))

	results, err := idx.Search("deploy", "s2", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].SessionID != "s2" {
		t.Errorf("filtered results = %+v", results)
	}
}

func TestIndexSessionSkipsHiddenAndSeparators(t *testing.T) {
	idx := newTestIndex(t)

	sess := buildSession("s1", "", "visible zebra message")
	sess.Items = append(sess.Items, &chat.Item{
		ID: "s1-hidden", Kind: chat.KindMessage, Role: chat.RoleUser,
		Content: "hidden zebra message", Hidden: true,
	})
	sess.ToggleSeparator("s1-sep")
	if err := idx.IndexSession(sess); err != nil {
		t.Fatalf("IndexSession: %v", err)
	}

	results, err := idx.Search("zebra", "", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ItemID != "s1-m1" {
		t.Errorf("results = %+v", results)
	}
}

func TestReindexReplacesStaleDocuments(t *testing.T) {
	idx := newTestIndex(t)

	idx.IndexSession(buildSession("s1", "", "original kumquat content"))
	idx.IndexSession(buildSession("s1", "", "revised content"))

	stale, err := idx.Search("kumquat", "", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(stale) != 0 {
		t.Errorf("stale documents survive reindex: %+v", stale)
	}

	fresh, err := idx.Search("revised", "", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(fresh) != 1 {
		t.Errorf("fresh results = %+v", fresh)
	}
}

func TestDeleteSession(t *testing.T) {
	idx := newTestIndex(t)

	idx.IndexSession(buildSession("s1", "", "aardvark facts"))
	idx.IndexSession(buildSession("s2", "", "aardvark opinions"))

	if err := idx.DeleteSession("s1"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}

	results, err := idx.Search("aardvark", "", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].SessionID != "s2" {
		t.Errorf("results = %+v", results)
	}
}
