// Package presence tracks remote peers seen by a collaboration session:
// their cursor, selection, and last activity time, with time-based eviction
// for peers whose leave message never arrived.
package presence

import (
	"log/slog"
	"sync"
	"time"

	"github.com/liveboard-dev/liveboard/pkg/protocol"
)

const (
	// DefaultStaleAfter is how long a peer may stay silent before the
	// sweeper evicts it.
	DefaultStaleAfter = 30 * time.Second

	// DefaultSweepInterval is the cadence of the staleness sweep.
	DefaultSweepInterval = 5 * time.Second
)

// Cursor is a peer's pointer position on the canvas.
type Cursor struct {
	X float64
	Y float64
}

// Peer is the tracked state of one remote collaborator. Cursor is nil until
// the peer first moves; SelectedBlockID is empty while nothing is selected.
type Peer struct {
	ID              string
	Name            string
	Color           string
	Cursor          *Cursor
	SelectedBlockID string
	LastActivity    time.Time
}

// Registry is the client-side table of remote peers. The staleness sweeper
// is a background goroutine owned by the registry instance and stopped by
// Close, so concurrent registries never interfere.
type Registry struct {
	staleAfter    time.Duration
	sweepInterval time.Duration
	now           func() time.Time
	logger        *slog.Logger

	mu    sync.Mutex
	peers map[string]*Peer

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
}

// Option configures a Registry.
type Option func(*Registry)

// WithStaleAfter overrides the staleness threshold.
func WithStaleAfter(d time.Duration) Option {
	return func(r *Registry) { r.staleAfter = d }
}

// WithSweepInterval overrides the sweep cadence.
func WithSweepInterval(d time.Duration) Option {
	return func(r *Registry) { r.sweepInterval = d }
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger.With("component", "presence") }
}

// NewRegistry returns a registry with default thresholds. The sweeper does
// not run until Start is called.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		staleAfter:    DefaultStaleAfter,
		sweepInterval: DefaultSweepInterval,
		now:           time.Now,
		logger:        slog.Default().With("component", "presence"),
		peers:         make(map[string]*Peer),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start launches the staleness sweeper. Safe to call once per registry;
// subsequent calls are no-ops.
func (r *Registry) Start() {
	r.startOnce.Do(func() {
		go r.sweepLoop()
	})
}

// Close stops the sweeper. The registry remains readable afterwards.
func (r *Registry) Close() {
	r.stopOnce.Do(func() {
		close(r.done)
	})
}

func (r *Registry) sweepLoop() {
	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := r.SweepStale(r.now()); n > 0 {
				r.logger.Debug("evicted stale peers", "count", n)
			}
		case <-r.done:
			return
		}
	}
}

// Apply folds a collaboration message into the peer table. join creates or
// refreshes an entry; cursor implicitly joins an unseen peer, compensating
// for a dropped join; select and block mutations only update peers already
// known; leave removes the peer. Control and reserved messages are ignored.
// The caller is responsible for filtering the local session's own messages.
func (r *Registry) Apply(msg protocol.Message) {
	if msg.UserID == "" {
		return
	}
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	switch msg.Type {
	case protocol.TypeJoin:
		p := r.upsertLocked(msg)
		p.LastActivity = now

	case protocol.TypeCursor:
		p := r.upsertLocked(msg)
		if c, err := msg.Cursor(); err == nil {
			p.Cursor = &Cursor{X: c.X, Y: c.Y}
		}
		p.LastActivity = now

	case protocol.TypeSelect:
		p, ok := r.peers[msg.UserID]
		if !ok {
			return
		}
		if sel, err := msg.Selection(); err == nil {
			if sel.BlockID != nil {
				p.SelectedBlockID = *sel.BlockID
			} else {
				p.SelectedBlockID = ""
			}
		}
		p.LastActivity = now

	case protocol.TypeBlockMove, protocol.TypeBlockResize, protocol.TypeBlockUpdate:
		if p, ok := r.peers[msg.UserID]; ok {
			p.LastActivity = now
		}

	case protocol.TypeLeave:
		delete(r.peers, msg.UserID)

	case protocol.TypePing, protocol.TypePong,
		protocol.TypeSyncRequest, protocol.TypeSyncResponse:
		// Control frames and reserved types carry no presence.
	}
}

// upsertLocked returns the peer for msg.UserID, creating it on first sight.
func (r *Registry) upsertLocked(msg protocol.Message) *Peer {
	p, ok := r.peers[msg.UserID]
	if !ok {
		p = &Peer{ID: msg.UserID}
		r.peers[msg.UserID] = p
	}
	if msg.UserName != "" {
		p.Name = msg.UserName
	}
	if msg.UserColor != "" {
		p.Color = msg.UserColor
	}
	return p
}

// Remove deletes a peer by id.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.peers, id)
	r.mu.Unlock()
}

// SweepStale evicts peers whose last activity predates now minus the
// staleness threshold and returns the number evicted. It runs independently
// of explicit leave handling, guarding against leave messages lost to
// abrupt partitions.
func (r *Registry) SweepStale(now time.Time) int {
	cutoff := now.Add(-r.staleAfter)

	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, p := range r.peers {
		if p.LastActivity.Before(cutoff) {
			delete(r.peers, id)
			evicted++
		}
	}
	return evicted
}

// Peer returns a snapshot of the peer with the given id.
func (r *Registry) Peer(id string) (Peer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.peers[id]
	if !ok {
		return Peer{}, false
	}
	return snapshot(p), true
}

// Peers returns a snapshot of all tracked peers.
func (r *Registry) Peers() []Peer {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Peer, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, snapshot(p))
	}
	return out
}

// Len returns the number of tracked peers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.peers)
}

func snapshot(p *Peer) Peer {
	out := *p
	if p.Cursor != nil {
		c := *p.Cursor
		out.Cursor = &c
	}
	return out
}
