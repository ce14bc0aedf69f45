package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// Orchestrator drives at most one outstanding completion request per session.
// It builds the request from the item sequence and the attached-history
// window, streams partial output into the target assistant item, and commits
// version and usage bookkeeping when the stream settles.
//
// All item mutation happens on the calling goroutine; only the cancellation
// handle is shared with other goroutines (Abort), so only it is mutex-guarded.
type Orchestrator struct {
	client     CompletionClient
	model      string
	windowSize int
	stream     bool
	chatOpts   ChatOptions
	newID      func() string
	now        func() time.Time

	// progress is the optional UI callback, invoked fire-and-forget after
	// each streamed chunk and after the final commit.
	progress func()

	mu     sync.Mutex
	cancel context.CancelFunc
}

// Active reports whether a completion request is outstanding.
func (o *Orchestrator) Active() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cancel != nil
}

// Abort signals the in-flight request, if any. The streaming call settles
// on its own and runs its cleanup; partial content already written to the
// target item is retained. Calling Abort with nothing outstanding is a no-op.
func (o *Orchestrator) Abort() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
	}
}

// begin creates the per-request cancellation handle. A handle is never
// reused: each request gets a fresh one and end clears it on every path.
func (o *Orchestrator) begin(ctx context.Context) (context.Context, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		return nil, fmt.Errorf("%w: a completion request is already in flight", ErrInvalidInput)
	}
	cctx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	return cctx, nil
}

func (o *Orchestrator) end() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}

// Send issues a completion request for the user message at the tail of the
// session. The caller has already appended that message (append-then-send);
// the orchestrator only appends the placeholder assistant item.
func (o *Orchestrator) Send(ctx context.Context, sess *Session) error {
	userIdx := len(sess.Items) - 1
	if userIdx < 0 || !sess.Items[userIdx].Attachable() || sess.Items[userIdx].Role != RoleUser {
		return fmt.Errorf("%w: send requires a trailing user message", ErrInvalidInput)
	}

	cctx, err := o.begin(ctx)
	if err != nil {
		return err
	}
	defer o.end()

	window := AttachedHistoryAt(sess.Items, o.windowSize, userIdx)

	target := &Item{
		ID:        o.newID(),
		Kind:      KindMessage,
		Timestamp: o.now(),
		Role:      RoleAssistant,
		Author:    o.model,
		Loading:   true,
	}
	sess.Items = append(sess.Items, target)

	return o.execute(cctx, sess, userIdx, target, window)
}

// ReRun repeats the completion pivoting on the user message at atIndex.
// An assistant target redirects to its immediately preceding user message;
// if that predecessor is hidden or itself an assistant message the re-run is
// rejected with no mutation. The assistant reply immediately after the pivot
// is reused in place (its current content staged as a version first);
// otherwise a fresh placeholder is inserted.
func (o *Orchestrator) ReRun(ctx context.Context, sess *Session, atIndex int) error {
	if atIndex < 0 || atIndex >= len(sess.Items) {
		return fmt.Errorf("%w: item index %d out of range", ErrInvalidInput, atIndex)
	}
	it := sess.Items[atIndex]
	if it.Kind != KindMessage || it.Hidden {
		return fmt.Errorf("%w: item %d is not a visible message", ErrInvalidInput, atIndex)
	}
	if it.Role == RoleAssistant {
		if atIndex == 0 {
			return fmt.Errorf("%w: item %d", ErrNoUserPredecessor, atIndex)
		}
		prev := sess.Items[atIndex-1]
		if prev.Kind != KindMessage || prev.Hidden || prev.Role != RoleUser {
			return fmt.Errorf("%w: item %d", ErrNoUserPredecessor, atIndex)
		}
		atIndex--
	}

	cctx, err := o.begin(ctx)
	if err != nil {
		return err
	}
	defer o.end()

	window := AttachedHistoryAt(sess.Items, o.windowSize, atIndex)

	var target *Item
	if next := atIndex + 1; next < len(sess.Items) &&
		sess.Items[next].Kind == KindMessage &&
		sess.Items[next].Role == RoleAssistant &&
		!sess.Items[next].Hidden {
		target = sess.Items[next]
		sess.StageVersion(target, o.now())
		target.Content = ""
		target.ReasoningContent = ""
		target.Author = o.model
		target.Loading = true
	} else {
		target = &Item{
			ID:        o.newID(),
			Kind:      KindMessage,
			Timestamp: o.now(),
			Role:      RoleAssistant,
			Author:    o.model,
			Loading:   true,
		}
		sess.InsertAt(atIndex+1, target)
	}

	return o.execute(cctx, sess, atIndex, target, window)
}

// execute runs the request and streams into target. On success the final
// content, version key, usage split, and attachment accounting are committed
// as one batch before any observer is notified, so no caller ever sees only
// one of the two token counts updated.
func (o *Orchestrator) execute(ctx context.Context, sess *Session, promptIdx int, target *Item, window []Message) error {
	req := CompletionRequest{
		Model:        o.model,
		Messages:     window,
		SystemPrompt: sess.SystemPrompt,
		Stream:       o.stream,
		Options:      o.chatOpts,
	}

	onChunk := func(chunk string) {
		target.Content += chunk
		if o.progress != nil {
			o.progress()
		}
	}

	res, err := o.client.Complete(ctx, req, onChunk)
	if err != nil {
		// Partial streamed content stays; the user is invited to re-run.
		target.Loading = false
		if len(target.Versions) > 0 {
			// A reused reply was staged before the stream started. Record
			// the partial content under the already-assigned current key so
			// the key stays a member of the map and switching back to the
			// staged previous answer keeps working.
			target.Versions[target.CurrentVersion] = VersionSnapshot{
				Content:          target.Content,
				ReasoningContent: target.ReasoningContent,
				Author:           target.Author,
			}
		}
		sess.touch(o.now())
		if o.progress != nil {
			o.progress()
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, ErrCancelled) {
			log.Printf("completion cancelled [session=%s item=%s]", sess.ID, target.ID)
			return fmt.Errorf("%w [session=%s item=%s]", ErrCancelled, sess.ID, target.ID)
		}
		log.Printf("completion failed [session=%s item=%s]: %v", sess.ID, target.ID, err)
		return &RequestError{SessionID: sess.ID, ItemID: target.ID, Err: err}
	}

	now := o.now()
	if res.Content != "" {
		target.Content = res.Content
	}
	target.ReasoningContent = res.ReasoningContent
	target.Loading = false
	target.CurrentVersion = newVersionKey(now, target.Versions)
	if len(target.Versions) > 0 {
		// A reused reply already has staged versions; record the fresh
		// content under the new key so the current version stays a member
		// of the map and switching back remains possible.
		target.Versions[target.CurrentVersion] = VersionSnapshot{
			Content:          target.Content,
			ReasoningContent: target.ReasoningContent,
			Author:           target.Author,
		}
	}
	if res.Usage != nil {
		target.TokenCount = res.Usage.Completion
		if promptIdx >= 0 && promptIdx < len(sess.Items) {
			sess.Items[promptIdx].TokenCount = res.Usage.Prompt
		}
	}
	target.AttachedItems = len(window)
	chars := 0
	for _, m := range window {
		chars += len(m.Content)
	}
	target.AttachedChars = chars
	sess.touch(now)

	if o.progress != nil {
		o.progress()
	}
	return nil
}
