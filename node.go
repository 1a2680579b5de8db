package slotx

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/eggybyte-technology/slotx/internal/nodetable"
)

// Node is a typed configuration slot bound to one backing-store key.
// Declare it once, at package or process initialization, and attach it from
// the task that owns the value. A node holds no resources until attached
// and allocates nothing per attach cycle beyond its wake channel.
type Node[T any] struct {
	key   string
	codec Codec[T]
	def   T

	// linked serializes attach cycles across registries: only the goroutine
	// that flips it false→true may link the node anywhere.
	linked atomic.Bool

	// gen identifies the current attach cycle. It is bumped when a cycle
	// starts and again when it ends, and is atomic so a stale handle can
	// recognize the end of its cycle without touching fields guarded by
	// whichever registry the node belongs to now.
	gen atomic.Uint64

	// The fields below are guarded by the owning registry's mutex while
	// the node is linked.
	reg    *Registry
	tok    nodetable.Token
	cached T
	dirty  bool
	done   bool
	wake   chan struct{}
}

// NodeOption configures a Node at construction.
type NodeOption[T any] func(*Node[T])

// WithDefault declares the node's default value, substituted whenever the
// stored bytes are absent or fail to decode. Without this option the
// default is the zero value of T.
//
// The default is copied by assignment at servicing time; pointer fields
// inside it are shared across cycles.
func WithDefault[T any](v T) NodeOption[T] {
	return func(n *Node[T]) { n.def = v }
}

// WithCodec overrides the node's codec. The default is NewCBORCodec[T]().
func WithCodec[T any](c Codec[T]) NodeOption[T] {
	return func(n *Node[T]) { n.codec = c }
}

// NewNode creates an unattached node bound to key.
func NewNode[T any](key string, opts ...NodeOption[T]) *Node[T] {
	n := &Node[T]{key: key}
	for _, fn := range opts {
		fn(n)
	}
	if n.codec == nil {
		n.codec = NewCBORCodec[T]()
	}
	return n
}

// Key returns the backing-store key the node is bound to.
func (n *Node[T]) Key() string { return n.key }

// Default returns the node's declared default value.
func (n *Node[T]) Default() T { return n.def }

// Attach links the node into r and blocks until the next ProcessReads pass
// services it, then returns a handle to the populated slot.
//
// Errors: ErrAlreadyAttached if the node is currently linked anywhere;
// ErrDuplicateKey if another linked node holds the same key; the context
// error if ctx is done first, in which case the node is unlinked again
// before returning.
//
// Attach never resolves unless the registry owner eventually calls
// ProcessReads; bound the wait with ctx if that is not guaranteed.
func (n *Node[T]) Attach(ctx context.Context, r *Registry) (*Handle[T], error) {
	if !n.linked.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("attach %q: %w", n.key, ErrAlreadyAttached)
	}

	r.mu.Lock()
	tok, ok := r.table.Link(n)
	if !ok {
		r.mu.Unlock()
		n.linked.Store(false)
		return nil, fmt.Errorf("attach %q: %w", n.key, ErrDuplicateKey)
	}
	n.reg = r
	n.tok = tok
	n.done = false
	n.dirty = false
	gen := n.gen.Add(1)
	wake := make(chan struct{})
	n.wake = wake
	r.mu.Unlock()

	r.metrics.attached()
	r.logger.Debug("slot attached", "key", n.key)

	select {
	case <-wake:
		return &Handle[T]{node: n, reg: r, gen: gen}, nil
	case <-ctx.Done():
		n.detach(r, gen)
		return nil, fmt.Errorf("attach %q: %w", n.key, ctx.Err())
	}
}

// detach unlinks the node from r if it is still in the gen attach cycle.
// A matching cycle implies the node is linked into r, so the mutex-guarded
// fields are only touched once the cycle check passes.
func (n *Node[T]) detach(r *Registry, gen uint64) bool {
	r.mu.Lock()
	if n.gen.Load() != gen {
		r.mu.Unlock()
		return false
	}
	r.table.Unlink(n.tok)
	n.reg = nil
	n.gen.Add(1)
	r.mu.Unlock()

	n.linked.Store(false)
	r.metrics.detached()
	r.logger.Debug("slot detached", "key", n.key)
	return true
}

// service populates the cached value from stored bytes or the declared
// default, marks the node serviced, and wakes the attacher.
// Called with the registry mutex held, at most once per attach cycle.
func (n *Node[T]) service(data []byte, found bool) serviceOutcome {
	outcome := outcomeDecoded
	switch {
	case !found:
		n.cached = n.def
		outcome = outcomeMissing
	default:
		v := n.def
		if err := n.codec.Decode(data, &v); err != nil {
			n.cached = n.def
			outcome = outcomeFallback
		} else {
			n.cached = v
		}
	}
	n.done = true
	close(n.wake)
	return outcome
}

// serviced reports whether the current attach cycle has been serviced.
// Called with the registry mutex held.
func (n *Node[T]) serviced() bool { return n.done }

// drain encodes the cached value and clears the dirty flag, both inside the
// caller's critical section. Returns dirty=false for clean nodes. On encode
// failure the node stays dirty.
func (n *Node[T]) drain() ([]byte, bool, error) {
	if !n.dirty {
		return nil, false, nil
	}
	data, err := n.codec.Encode(n.cached)
	if err != nil {
		return nil, true, err
	}
	n.dirty = false
	return data, true, nil
}

// Handle is the capability returned by a resolved Attach. It references
// exactly one linked node and stays valid until that node is detached.
// Once its attach cycle ends, every operation on the handle fails with
// ErrDetached, even if the node has since been attached again — to the
// same registry or a different one.
type Handle[T any] struct {
	node *Node[T]
	reg  *Registry
	gen  uint64
}

// Key returns the key of the underlying node.
func (h *Handle[T]) Key() string { return h.node.key }

// Load returns a copy of the cached value. It never blocks beyond lock
// acquisition and is always defined once Attach has resolved.
// Returns ErrDetached if the node has been unlinked.
func (h *Handle[T]) Load() (T, error) {
	h.reg.mu.Lock()
	defer h.reg.mu.Unlock()
	if h.stale() {
		var zero T
		return zero, fmt.Errorf("load %q: %w", h.node.key, ErrDetached)
	}
	return h.node.cached, nil
}

// Write replaces the cached value and marks the node dirty so the next
// ProcessWrites pass drains it. Executed under the registry mutex: a Write
// racing a drain lands entirely before or entirely after it.
// Returns ErrDetached if the node has been unlinked.
func (h *Handle[T]) Write(v T) error {
	h.reg.mu.Lock()
	defer h.reg.mu.Unlock()
	if h.stale() {
		return fmt.Errorf("write %q: %w", h.node.key, ErrDetached)
	}
	h.node.cached = v
	h.node.dirty = true
	return nil
}

// Detach unlinks the node, ending the attach cycle. Subsequent Load and
// Write calls through this handle fail with ErrDetached; the node itself
// may be attached again. Returns ErrDetached if the handle is already
// stale.
func (h *Handle[T]) Detach() error {
	if !h.node.detach(h.reg, h.gen) {
		return fmt.Errorf("detach %q: %w", h.node.key, ErrDetached)
	}
	return nil
}

// stale reports whether the handle's attach cycle has ended. The check
// reads only the node's atomic generation: while it still matches, the
// cycle is alive and the node is linked into h.reg, so the caller (holding
// h.reg's mutex) may touch the mutex-guarded fields; once it differs, no
// guarded field is read, even if the node has moved to another registry.
func (h *Handle[T]) stale() bool {
	return h.node.gen.Load() != h.gen
}
