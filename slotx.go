package slotx

import (
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/eggybyte-technology/slotx/internal/nodetable"
)

var (
	// ErrAlreadyAttached indicates an Attach on a node that is already
	// linked into a registry. The caller must detach first.
	ErrAlreadyAttached = errors.New("slotx: node already attached")

	// ErrDuplicateKey indicates an Attach whose key is already held by
	// another linked node. Rejected at attach time.
	ErrDuplicateKey = errors.New("slotx: key already attached")

	// ErrDetached indicates a Load or Write through a handle whose node has
	// been unlinked. The caller must re-attach.
	ErrDetached = errors.New("slotx: node detached")
)

// Store is the read side of the backing store.
// Lookups must be synchronous and non-blocking; they run inside the
// registry's critical section during a read pass.
type Store interface {
	// Get returns the stored bytes for key and whether the key exists.
	Get(key string) ([]byte, bool)
}

// WriteBatch receives drained (key, bytes) pairs during a write pass.
type WriteBatch interface {
	Set(key string, value []byte)
}

// MapBatch is a map-backed WriteBatch.
type MapBatch map[string][]byte

// Set records a drained pair.
func (b MapBatch) Set(key string, value []byte) { b[key] = value }

// entry is the registry-side view of a linked node. Every method is called
// with the registry mutex held.
type entry interface {
	nodetable.Entry
	serviced() bool
	service(data []byte, found bool) serviceOutcome
	drain() (data []byte, dirty bool, err error)
}

// serviceOutcome reports how a node's cached value was populated.
type serviceOutcome int

const (
	outcomeDecoded  serviceOutcome = iota // stored bytes decoded cleanly
	outcomeMissing                        // key absent, default substituted
	outcomeFallback                       // bytes undecodable, default substituted
)

func (o serviceOutcome) String() string {
	switch o {
	case outcomeDecoded:
		return "decoded"
	case outcomeMissing:
		return "missing"
	case outcomeFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Options holds registry configuration.
type Options struct {
	Logger  *slog.Logger // logger for pass and lifecycle events
	Metrics *Metrics     // optional pass counters
}

// Option modifies Options.
type Option func(*Options)

// WithLogger sets the registry logger. The default discards all output.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// WithMetrics attaches pass counters to the registry.
func WithMetrics(m *Metrics) Option {
	return func(o *Options) { o.Metrics = m }
}

// Registry is the mutex-guarded collection of attached nodes and the owner
// of the batch protocol. One mutex covers table membership and every linked
// node's cached value, dirty flag, and serviced flag.
//
// A Registry must be created before any dependent task runs and accessed
// only through its methods.
type Registry struct {
	mu      sync.Mutex
	table   *nodetable.Table
	logger  *slog.Logger
	metrics *Metrics
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	var o Options
	for _, fn := range opts {
		fn(&o)
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Registry{
		table:   nodetable.New(),
		logger:  o.Logger,
		metrics: o.Metrics,
	}
}

// ProcessReads services every linked, not-yet-serviced node: the node's key
// is looked up in store, the bytes decode into the cached value (or the
// declared default substitutes on a miss or a decode failure), the node is
// marked serviced, and its attacher is woken.
//
// Nodes attached after the pass starts wait for the next pass. Calling
// again with no newly attached nodes is a no-op. Returns the number of
// nodes serviced.
func (r *Registry) ProcessReads(store Store) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	r.table.Range(func(_ nodetable.Token, e nodetable.Entry) bool {
		n := e.(entry)
		if n.serviced() {
			return true
		}
		data, found := store.Get(n.Key())
		outcome := n.service(data, found)
		count++
		r.metrics.serviced(outcome)
		r.logger.Debug("slot serviced",
			"key", n.Key(), "outcome", outcome.String())
		return true
	})

	if count > 0 {
		r.logger.Info("read pass complete", "serviced", count)
	}
	return count
}

// ProcessWrites drains every dirty node: the cached value is encoded, the
// (key, bytes) pair is inserted into out, and the dirty flag is cleared.
// Encode and clear happen inside the same critical section, so a concurrent
// Write lands entirely before or entirely after a given drain and is never
// lost between encode and clear.
//
// A node whose value fails to encode stays dirty and is retried on the next
// pass; the failure is logged, not returned. Returns the number of nodes
// drained.
func (r *Registry) ProcessWrites(out WriteBatch) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	r.table.Range(func(_ nodetable.Token, e nodetable.Entry) bool {
		n := e.(entry)
		data, dirty, err := n.drain()
		if err != nil {
			r.metrics.encodeFailed()
			r.logger.Warn("slot value failed to encode, staying dirty",
				"key", n.Key(), "error", err)
			return true
		}
		if !dirty {
			return true
		}
		out.Set(n.Key(), data)
		count++
		r.metrics.drained()
		r.logger.Debug("slot drained", "key", n.Key(), "bytes", len(data))
		return true
	})

	if count > 0 {
		r.logger.Info("write pass complete", "drained", count)
	}
	return count
}

// Len returns the number of currently linked nodes.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.table.Len()
}

// Keys returns the keys of all linked nodes in attach order.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.table.Keys()
}
