package chat

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Config carries the knobs a host wires into a controller.
type Config struct {
	Model        string
	SystemPrompt string

	// WindowSize bounds how many prior visible messages attach as context.
	// Zero attaches nothing but the triggering message; any negative value
	// disables bounding entirely.
	WindowSize int

	Stream   bool
	Options  ChatOptions
	Progress func() // optional UI progress callback
}

// Controller is the façade over one session: it composes the message store,
// version bookkeeping, windowing, and the completion orchestrator. A
// controller owns its session exclusively; independent sessions get
// independent controllers and never share state.
type Controller struct {
	sess *Session
	ids  IDGenerator
	now  func() time.Time
	orch *Orchestrator
}

// NewController builds a controller with a fresh empty session.
func NewController(client CompletionClient, ids IDGenerator, cfg Config) *Controller {
	c := &Controller{
		ids: ids,
		now: time.Now,
	}
	c.orch = &Orchestrator{
		client:     client,
		model:      cfg.Model,
		windowSize: cfg.WindowSize,
		stream:     cfg.Stream,
		chatOpts:   cfg.Options,
		progress:   cfg.Progress,
		newID:      ids.NewID,
		now:        func() time.Time { return c.now() },
	}
	c.sess = NewSession(ids.NewID(), c.now())
	c.sess.SystemPrompt = cfg.SystemPrompt
	return c
}

// Session exposes the live session for read access (rendering, export).
func (c *Controller) Session() *Session {
	return c.sess
}

// Busy reports whether a completion request is in flight.
func (c *Controller) Busy() bool {
	return c.orch.Active()
}

// Send appends a user message built from text, attachments, and provided
// contexts, then issues a completion request for it. A blank send with no
// attachments or contexts is rejected before any mutation.
func (c *Controller) Send(ctx context.Context, text string, atts []Attachment, ctxs []ProvidedContext) error {
	if strings.TrimSpace(text) == "" && len(atts) == 0 && len(ctxs) == 0 {
		return fmt.Errorf("%w: nothing to send", ErrInvalidInput)
	}
	if c.orch.Active() {
		return fmt.Errorf("%w: a completion request is already in flight", ErrInvalidInput)
	}
	now := c.now()
	c.sess.AppendUserMessage(c.ids.NewID(), now, text, atts, ctxs)
	c.sess.touch(now)
	return c.orch.Send(ctx, c.sess)
}

// ReRun repeats the completion pivoting on the item at index.
func (c *Controller) ReRun(ctx context.Context, index int) error {
	return c.orch.ReRun(ctx, c.sess, index)
}

// Abort cancels the in-flight request, if any. Idempotent.
func (c *Controller) Abort() {
	c.orch.Abort()
}

// ToggleHidden flips (or sets, when value is non-nil) the hidden flag of the
// message at index.
func (c *Controller) ToggleHidden(index int, value *bool) error {
	if index < 0 || index >= len(c.sess.Items) {
		return fmt.Errorf("%w: item index %d out of range", ErrInvalidInput, index)
	}
	if c.sess.ToggleHidden(index, value) {
		c.sess.touch(c.now())
	}
	return nil
}

// ToggleSeparator toggles a context boundary at the end of the session.
func (c *Controller) ToggleSeparator() {
	c.sess.ToggleSeparator(c.ids.NewID())
	c.sess.touch(c.now())
}

// ToggleSeparatorAt toggles a context boundary immediately after index.
func (c *Controller) ToggleSeparatorAt(index int) error {
	if index < 0 || index >= len(c.sess.Items) {
		return fmt.Errorf("%w: item index %d out of range", ErrInvalidInput, index)
	}
	c.sess.ToggleSeparatorAt(c.ids.NewID(), index)
	c.sess.touch(c.now())
	return nil
}

// SwitchVersion makes key the current version of the identified item.
func (c *Controller) SwitchVersion(itemID string, key VersionKey) bool {
	return c.sess.SwitchVersion(itemID, key, c.now())
}

// DeleteVersion removes a stored version, auto-switching off the active one.
func (c *Controller) DeleteVersion(itemID string, key VersionKey, autoSwitch bool) error {
	return c.sess.DeleteVersion(itemID, key, autoSwitch, c.now())
}

// NewSession discards the current session and starts an empty one. The
// configured system prompt carries over. Rejected while a request is in
// flight; abort first.
func (c *Controller) NewSession() error {
	if c.orch.Active() {
		return fmt.Errorf("%w: abort the in-flight request first", ErrInvalidInput)
	}
	prompt := c.sess.SystemPrompt
	c.sess = NewSession(c.ids.NewID(), c.now())
	c.sess.SystemPrompt = prompt
	return nil
}

// Snapshot hands the session off wholesale to the persistence collaborator.
// The returned copy never aliases live engine state.
func (c *Controller) Snapshot() *Session {
	return c.sess.Clone()
}

// Apply rehydrates the controller from a snapshot, replacing all fields.
func (c *Controller) Apply(snapshot *Session) error {
	if snapshot == nil || snapshot.ID == "" {
		return fmt.Errorf("%w: snapshot missing id", ErrInvalidInput)
	}
	if c.orch.Active() {
		return fmt.Errorf("%w: abort the in-flight request first", ErrInvalidInput)
	}
	c.sess = snapshot.Clone()
	return nil
}

// AddTag and RemoveTag manage the session's tag set.
func (c *Controller) AddTag(tag string) bool    { return c.sess.AddTag(tag, c.now()) }
func (c *Controller) RemoveTag(tag string) bool { return c.sess.RemoveTag(tag, c.now()) }
