// Package refs tracks which tables and views currently expose each buffer, so
// that a writer can tell whether it is the sole owner of the storage it is about
// to modify.
package refs

import (
	"sync"
	"sync/atomic"

	"github.com/go-sif/colframe/buffer"
	"github.com/go-sif/colframe/logging"
	"go.uber.org/zap"
)

// OwnerID is a handle identifying one live table or view
type OwnerID uint64

type entry struct {
	buf    *buffer.Buffer
	owners map[OwnerID]struct{}
}

// Tracker is a registry from buffer identity to the set of owners exposing that
// buffer. The Tracker holds the only strong reference from the registry to each
// buffer, and drops it when the last owner unregisters.
type Tracker struct {
	mu        sync.Mutex
	entries   map[buffer.ID]*entry
	byOwner   map[OwnerID]map[buffer.ID]struct{}
	nextOwner atomic.Uint64
	logger    *zap.Logger
	stats     counters
}

// Option configures a Tracker
type Option func(*Tracker)

// WithLogger sets the logger a Tracker reports forks to
func WithLogger(logger *zap.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// New creates an empty Tracker
func New(opts ...Option) *Tracker {
	t := &Tracker{
		entries: make(map[buffer.ID]*entry),
		byOwner: make(map[OwnerID]map[buffer.ID]struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = logging.Named("refs")
	}
	return t
}

var (
	defaultOnce    sync.Once
	defaultTracker *Tracker
)

// Default returns the process-wide Tracker
func Default() *Tracker {
	defaultOnce.Do(func() {
		defaultTracker = New()
	})
	return defaultTracker
}

// NewOwner allocates a fresh owner handle
func (t *Tracker) NewOwner() OwnerID {
	return OwnerID(t.nextOwner.Add(1))
}

// Register records that owner exposes buf. Registering twice is a no-op.
func (t *Tracker) Register(buf *buffer.Buffer, owner OwnerID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.register(buf, owner)
}

func (t *Tracker) register(buf *buffer.Buffer, owner OwnerID) {
	e, ok := t.entries[buf.ID()]
	if !ok {
		e = &entry{buf: buf, owners: make(map[OwnerID]struct{})}
		t.entries[buf.ID()] = e
	}
	e.owners[owner] = struct{}{}
	ids, ok := t.byOwner[owner]
	if !ok {
		ids = make(map[buffer.ID]struct{})
		t.byOwner[owner] = ids
	}
	ids[buf.ID()] = struct{}{}
}

// Unregister records that owner no longer exposes the buffer with the given id.
// The entry is dropped once no owners remain.
func (t *Tracker) Unregister(id buffer.ID, owner OwnerID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.unregister(id, owner)
}

func (t *Tracker) unregister(id buffer.ID, owner OwnerID) {
	if ids, ok := t.byOwner[owner]; ok {
		delete(ids, id)
		if len(ids) == 0 {
			delete(t.byOwner, owner)
		}
	}
	e, ok := t.entries[id]
	if !ok {
		return
	}
	delete(e.owners, owner)
	if len(e.owners) == 0 {
		delete(t.entries, id)
	}
}

// ReleaseOwner unregisters owner from every buffer it exposes, returning the
// number of buffers it was registered on
func (t *Tracker) ReleaseOwner(owner OwnerID) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := t.byOwner[owner]
	released := len(ids)
	for id := range ids {
		t.unregister(id, owner)
	}
	if released > 0 {
		t.stats.releasedOwners.Add(1)
	}
	return released
}

// HasUniqueOwner returns true iff exactly one owner exposes the buffer with the given id
func (t *Tracker) HasUniqueOwner(id buffer.ID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	return ok && len(e.owners) == 1
}

// Owners returns the number of owners exposing the buffer with the given id
func (t *Tracker) Owners(id buffer.ID) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[id]; ok {
		return len(e.owners)
	}
	return 0
}

// Len returns the number of tracked buffers
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// EnsureMutable returns a buffer which requester may write to in place. If
// requester is the only owner of the buffer with the given id, that buffer is
// returned and forked is false. Otherwise the buffer is forked (with fork, or
// ForkCopy if fork is nil), requester is moved from the old buffer onto the
// fork, and the fork is returned. EnsureMutable returns nil if id is not
// tracked or requester does not own it.
func (t *Tracker) EnsureMutable(id buffer.ID, requester OwnerID, fork func(*buffer.Buffer) *buffer.Buffer) (buf *buffer.Buffer, forked bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok {
		return nil, false
	}
	if _, owned := e.owners[requester]; !owned {
		return nil, false
	}
	if len(e.owners) == 1 {
		t.stats.inPlace.Add(1)
		return e.buf, false
	}
	if fork == nil {
		fork = (*buffer.Buffer).ForkCopy
	}
	copied := fork(e.buf)
	t.register(copied, requester)
	t.unregister(id, requester)
	t.stats.forks.Add(1)
	t.stats.forkedElements.Add(int64(copied.Len()))
	t.stats.forkedBytes.Add(int64(copied.NBytes()))
	t.logger.Debug("forked shared buffer",
		zap.Stringer("buffer", id),
		zap.Stringer("fork", copied.ID()),
		zap.Int("owners", len(e.owners)),
		zap.Uint64("requester", uint64(requester)))
	return copied, true
}
