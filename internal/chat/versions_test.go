package chat

import (
	"errors"
	"testing"
	"time"
)

// sessionWithVersions builds a message whose content passed through the
// stage-then-overwrite cycle once per extra content, with the live content
// recorded under the current key the way the orchestrator finalizes it.
func sessionWithVersions(t *testing.T, clk *fakeClock, contents ...string) (*Session, *Item) {
	t.Helper()
	s := NewSession("sess", clk.Now())
	it := s.AppendUserMessage("item", clk.Now(), contents[0], nil, nil)
	for _, c := range contents[1:] {
		s.StageVersion(it, clk.Now())
		it.Content = c
	}
	if len(it.Versions) > 0 {
		it.Versions[it.CurrentVersion] = VersionSnapshot{Content: it.Content}
	}
	return s, it
}

func TestStageVersionRoundTrip(t *testing.T) {
	clk := newFakeClock()
	s := NewSession("sess", clk.Now())
	it := s.AppendUserMessage("item", clk.Now(), "original", nil, nil)
	it.ReasoningContent = "thinking"
	prevKey := it.CurrentVersion

	s.StageVersion(it, clk.Now())
	it.Content = "overwritten"
	it.ReasoningContent = "new thinking"

	if !s.ApplyVersion(it, prevKey) {
		t.Fatalf("ApplyVersion(%s) failed", prevKey)
	}
	if it.Content != "original" {
		t.Errorf("expected content restored to %q, got %q", "original", it.Content)
	}
	if it.ReasoningContent != "thinking" {
		t.Errorf("expected reasoning restored, got %q", it.ReasoningContent)
	}
	if it.CurrentVersion != prevKey {
		t.Errorf("expected current version %s, got %s", prevKey, it.CurrentVersion)
	}
}

func TestVersionInvariant(t *testing.T) {
	clk := newFakeClock()
	_, it := sessionWithVersions(t, clk, "v1", "v2", "v3")
	if len(it.Versions) != 3 {
		t.Fatalf("expected 3 versions, got %d", len(it.Versions))
	}
	if _, ok := it.Versions[it.CurrentVersion]; !ok {
		t.Errorf("current version %s not in version map %v", it.CurrentVersion, it.VersionKeys())
	}
}

func TestSwitchVersionNoOps(t *testing.T) {
	clk := newFakeClock()
	s, it := sessionWithVersions(t, clk, "v1", "v2")
	before := s.UpdatedAt

	if s.SwitchVersion("missing-item", "123", clk.Now()) {
		t.Error("switch on missing item should be a no-op")
	}
	if s.SwitchVersion(it.ID, it.CurrentVersion, clk.Now()) {
		t.Error("switch to the current key should be a no-op")
	}
	if s.SwitchVersion(it.ID, "no-such-key", clk.Now()) {
		t.Error("switch to an absent key should be a no-op")
	}
	if s.UpdatedAt != before {
		t.Error("no-op switches must not advance UpdatedAt")
	}

	single := s.AppendUserMessage("single", clk.Now(), "only", nil, nil)
	if s.SwitchVersion(single.ID, single.CurrentVersion, clk.Now()) {
		t.Error("switch on a never-staged item should be a no-op")
	}
}

func TestSwitchVersionAppliesAndTouches(t *testing.T) {
	clk := newFakeClock()
	s, it := sessionWithVersions(t, clk, "v1", "v2")
	before := s.UpdatedAt

	keys := it.VersionKeys()
	if !s.SwitchVersion(it.ID, keys[0], clk.Now()) {
		t.Fatal("expected switch to succeed")
	}
	if it.Content != "v1" {
		t.Errorf("expected content v1, got %q", it.Content)
	}
	if !s.UpdatedAt.After(before) {
		t.Error("expected UpdatedAt to advance on switch")
	}
}

func TestDeleteVersionSoleVersionProtected(t *testing.T) {
	clk := newFakeClock()
	s := NewSession("sess", clk.Now())
	it := s.AppendUserMessage("item", clk.Now(), "only", nil, nil)
	it.Versions = map[VersionKey]VersionSnapshot{
		it.CurrentVersion: {Content: it.Content},
	}

	key := it.CurrentVersion
	err := s.DeleteVersion(it.ID, key, true, clk.Now())
	if !errors.Is(err, ErrCannotDeleteSoleVersion) {
		t.Fatalf("expected ErrCannotDeleteSoleVersion, got %v", err)
	}
	if _, ok := it.Versions[key]; !ok {
		t.Error("failed delete must not mutate the version map")
	}
	if it.CurrentVersion != key {
		t.Error("failed delete must not move the current version")
	}
}

func TestDeleteVersionAbsentKey(t *testing.T) {
	clk := newFakeClock()
	s, it := sessionWithVersions(t, clk, "v1", "v2")
	if err := s.DeleteVersion(it.ID, "no-such-key", true, clk.Now()); !errors.Is(err, ErrVersionNotFound) {
		t.Fatalf("expected ErrVersionNotFound, got %v", err)
	}
	if err := s.DeleteVersion("no-such-item", "123", true, clk.Now()); !errors.Is(err, ErrVersionNotFound) {
		t.Fatalf("expected ErrVersionNotFound for missing item, got %v", err)
	}
}

func TestDeleteActiveVersionAutoSwitches(t *testing.T) {
	clk := newFakeClock()
	s, it := sessionWithVersions(t, clk, "v1", "v2", "v3")
	keys := it.VersionKeys()
	s.ApplyVersion(it, keys[1])

	if err := s.DeleteVersion(it.ID, keys[1], true, clk.Now()); err != nil {
		t.Fatalf("DeleteVersion failed: %v", err)
	}
	if it.CurrentVersion != keys[0] {
		t.Errorf("expected auto-switch to previous key %s, got %s", keys[0], it.CurrentVersion)
	}
	if it.Content != "v1" {
		t.Errorf("expected content v1 after auto-switch, got %q", it.Content)
	}
	if _, ok := it.Versions[keys[1]]; ok {
		t.Error("deleted version still present")
	}
}

func TestDeleteFirstActiveVersionWrapsToLast(t *testing.T) {
	clk := newFakeClock()
	s, it := sessionWithVersions(t, clk, "v1", "v2", "v3")
	keys := it.VersionKeys()
	s.ApplyVersion(it, keys[0])

	if err := s.DeleteVersion(it.ID, keys[0], true, clk.Now()); err != nil {
		t.Fatalf("DeleteVersion failed: %v", err)
	}
	if it.CurrentVersion != keys[len(keys)-1] {
		t.Errorf("expected wrap to last key %s, got %s", keys[len(keys)-1], it.CurrentVersion)
	}
	if it.Content != "v3" {
		t.Errorf("expected content v3 after wrap, got %q", it.Content)
	}
}

func TestDeleteActiveVersionWithoutAutoSwitch(t *testing.T) {
	clk := newFakeClock()
	s, it := sessionWithVersions(t, clk, "v1", "v2")
	keys := it.VersionKeys()
	s.ApplyVersion(it, keys[0])

	if err := s.DeleteVersion(it.ID, keys[0], false, clk.Now()); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if len(it.Versions) != len(keys) {
		t.Error("rejected delete must not mutate the version map")
	}
}

func TestDeleteInactiveVersionKeepsCurrent(t *testing.T) {
	clk := newFakeClock()
	s, it := sessionWithVersions(t, clk, "v1", "v2", "v3")
	keys := it.VersionKeys()
	s.ApplyVersion(it, keys[2])

	if err := s.DeleteVersion(it.ID, keys[0], true, clk.Now()); err != nil {
		t.Fatalf("DeleteVersion failed: %v", err)
	}
	if it.CurrentVersion != keys[2] {
		t.Errorf("deleting an inactive version must not move current (got %s)", it.CurrentVersion)
	}
}

func TestVersionKeysAreTimeOrdered(t *testing.T) {
	versions := map[VersionKey]VersionSnapshot{}
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	k1 := newVersionKey(base, versions)
	versions[k1] = VersionSnapshot{}
	k2 := newVersionKey(base, versions) // same instant collides, must bump
	if k2 <= k1 {
		t.Errorf("expected %s > %s", k2, k1)
	}
}
