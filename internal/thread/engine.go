// Package thread keeps one open conversation in sync with the server.
//
// An Engine loads a thread's metadata and history, appends server-confirmed
// messages, and emits a scroll anchor whenever the visible tail changes.
// Lifecycle: Idle -> Loading -> Ready -> (Sending -> Ready)* until Close.
package thread

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"client_go/internal/api"
	"client_go/internal/domain"
)

// DefaultGroupTitle is shown when group metadata is missing or unnamed.
const DefaultGroupTitle = "Group Chat"

// ErrNotReady is returned by Append before the history has been loaded.
var ErrNotReady = errors.New("thread is not ready")

type State int

const (
	Idle State = iota
	Loading
	Ready
	Sending
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Sending:
		return "sending"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Anchor tells the presentation layer which message to keep visible.
// Index is -1 for an empty thread.
type Anchor struct {
	Index     int
	MessageID int64
}

// Sessions supplies the current user's identity.
type Sessions interface {
	Current(ctx context.Context) (*domain.Session, error)
}

type Option func(*Engine)

// WithAnchor registers the scroll-anchor callback. It runs without the
// engine lock held and may call back into the engine.
func WithAnchor(fn func(Anchor)) Option {
	return func(e *Engine) { e.onAnchor = fn }
}

// WithClock overrides the clock used for provisional timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

type Engine struct {
	backend  Backend
	sessions Sessions
	onAnchor func(Anchor)
	now      func() time.Time
	newKey   func() string

	mu       sync.Mutex
	ref      domain.ThreadRef
	adapter  adapter
	state    State
	gen      uint64
	identity string
	messages []domain.Message
	meta     *domain.ThreadMetadata
	pending  *domain.Message
	lastErr  error
}

func NewEngine(backend Backend, sessions Sessions, opts ...Option) *Engine {
	e := &Engine{
		backend:  backend,
		sessions: sessions,
		now:      time.Now,
		newKey:   uuid.NewString,
		state:    Idle,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Open starts syncing ref, replacing whatever the engine held before.
// Metadata and history are fetched concurrently and applied in that order.
// Any failure leaves the engine Ready with an empty history; the error is
// returned and kept in Err.
func (e *Engine) Open(ctx context.Context, ref domain.ThreadRef) error {
	if !ref.Valid() {
		return fmt.Errorf("open %s: %w", ref, domain.ErrInvalidInput)
	}

	e.mu.Lock()
	if e.state == Closed {
		e.mu.Unlock()
		return domain.ErrEngineClosed
	}
	e.ref = ref
	e.adapter = adapterFor(e.backend, ref)
	e.mu.Unlock()

	return e.load(ctx)
}

// Refresh re-fetches the open thread. It is the manual retry after a failed Open.
func (e *Engine) Refresh(ctx context.Context) error {
	e.mu.Lock()
	if e.state == Closed {
		e.mu.Unlock()
		return domain.ErrEngineClosed
	}
	if e.adapter == nil {
		e.mu.Unlock()
		return ErrNotReady
	}
	e.mu.Unlock()

	return e.load(ctx)
}

func (e *Engine) load(ctx context.Context) error {
	e.mu.Lock()
	e.gen++
	gen := e.gen
	ad := e.adapter
	ref := e.ref
	e.state = Loading
	e.messages = nil
	e.meta = nil
	e.pending = nil
	e.lastErr = nil
	e.mu.Unlock()

	sess, err := e.sessions.Current(ctx)
	if err != nil {
		return e.finishLoad(gen, ref, nil, nil, fmt.Errorf("open %s: %w", ref, err))
	}

	var (
		meta     *domain.ThreadMetadata
		msgs     []domain.Message
		metaErr  error
		fetchErr error
		g        errgroup.Group
	)
	g.Go(func() error {
		meta, metaErr = ad.fetchMetadata(ctx)
		return metaErr
	})
	g.Go(func() error {
		msgs, fetchErr = ad.fetchMessages(ctx)
		return fetchErr
	})
	if err := g.Wait(); err != nil {
		// Report in request order, not completion order.
		if metaErr != nil {
			err = metaErr
		} else {
			err = fetchErr
		}
		return e.finishLoad(gen, ref, meta, nil, fmt.Errorf("open %s: %w", ref, err))
	}

	e.mu.Lock()
	if e.gen == gen {
		e.identity = sess.UserIdentity
	}
	e.mu.Unlock()
	return e.finishLoad(gen, ref, meta, msgs, nil)
}

func (e *Engine) finishLoad(gen uint64, ref domain.ThreadRef, meta *domain.ThreadMetadata, msgs []domain.Message, loadErr error) error {
	e.mu.Lock()
	if e.gen != gen || e.state == Closed {
		// Superseded by a newer Open/Refresh or the screen went away.
		e.mu.Unlock()
		return nil
	}
	e.state = Ready
	e.meta = meta
	e.messages = append([]domain.Message{}, msgs...)
	e.lastErr = loadErr
	anchor := e.anchorLocked()
	e.mu.Unlock()

	if loadErr != nil {
		log.Printf("thread: degraded open of %s: %v", ref, loadErr)
		return loadErr
	}
	e.fire(anchor)
	return nil
}

// Append sends content and, once the server confirms, adds its record of the
// message to the tail. On failure the history is unchanged; the caller keeps
// the input for a manual retry. At most one Append should be in flight.
func (e *Engine) Append(ctx context.Context, content string) (*domain.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, domain.ErrEmptyMessage
	}

	e.mu.Lock()
	switch e.state {
	case Closed:
		e.mu.Unlock()
		return nil, domain.ErrEngineClosed
	case Idle, Loading:
		e.mu.Unlock()
		return nil, ErrNotReady
	}
	gen := e.gen
	ad := e.adapter
	ref := e.ref
	now := e.now()
	provisional := &domain.Message{
		SenderEmail: e.identity,
		Content:     content,
		SentAt:      &domain.Timestamp{Time: now},
	}
	if ref.Kind == domain.ThreadGroup {
		provisional.GroupID = domain.ID(ref.GroupID)
	} else {
		provisional.ReceiverEmail = ref.PeerIdentity
	}
	e.state = Sending
	e.pending = provisional
	e.mu.Unlock()

	msg, err := ad.send(ctx, content, api.SendOptions{
		IdempotencyKey: e.newKey(),
		SentAt:         now,
	})

	e.mu.Lock()
	if e.gen != gen || e.state == Closed {
		e.mu.Unlock()
		if err != nil {
			return nil, err
		}
		return msg, nil
	}
	e.pending = nil
	e.state = Ready
	if err != nil {
		e.mu.Unlock()
		log.Printf("thread: send to %s failed: %v", ref, err)
		return nil, err
	}
	e.messages = append(e.messages, *msg)
	anchor := e.anchorLocked()
	e.mu.Unlock()

	e.fire(anchor)
	return msg, nil
}

// Close ends the engine. Responses still in flight are discarded.
func (e *Engine) Close() {
	e.mu.Lock()
	e.state = Closed
	e.gen++
	e.pending = nil
	e.mu.Unlock()
}

func (e *Engine) anchorLocked() Anchor {
	idx := len(e.messages) - 1
	a := Anchor{Index: idx}
	if idx >= 0 {
		a.MessageID = e.messages[idx].ID
	}
	return a
}

func (e *Engine) fire(a Anchor) {
	if e.onAnchor != nil {
		e.onAnchor(a)
	}
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Messages returns a copy of the history in server order.
func (e *Engine) Messages() []domain.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.Message{}, e.messages...)
}

// Pending returns the message being sent, if any. It is never part of Messages.
func (e *Engine) Pending() *domain.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pending == nil {
		return nil
	}
	cp := *e.pending
	return &cp
}

func (e *Engine) Metadata() *domain.ThreadMetadata {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.meta == nil {
		return nil
	}
	cp := *e.meta
	return &cp
}

// Err returns the error from the last Open/Refresh, if it degraded.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

func (e *Engine) Ref() domain.ThreadRef {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ref
}

// Title is the header text: the peer for direct threads, the group name
// (or DefaultGroupTitle) for group threads.
func (e *Engine) Title() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ref.Kind == domain.ThreadGroup {
		if e.meta != nil && strings.TrimSpace(e.meta.Name) != "" {
			return e.meta.Name
		}
		return DefaultGroupTitle
	}
	return e.ref.PeerIdentity
}

// IsOwn reports whether m was sent by the session user.
func (e *Engine) IsOwn(m domain.Message) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.identity != "" && m.SenderEmail == e.identity
}
