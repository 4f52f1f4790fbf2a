package workflow

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Machine owns one Session and runs the commands Reduce emits on background
// goroutines. It is safe for concurrent use; the session is only ever touched
// under the mutex.
type Machine struct {
	mu       sync.Mutex
	session  Session
	dispatch *Dispatcher
	logger   *zap.Logger
	onChange func(Session)
	inflight sync.WaitGroup

	// seq orders transitions; notifyMu and delivered keep the hook from
	// seeing an older snapshot after a newer one
	seq       uint64
	notifyMu  sync.Mutex
	delivered uint64
}

// MachineOption configures a Machine
type MachineOption func(*Machine)

// WithOnChange registers a hook called with a snapshot after transitions.
// Snapshots arrive in transition order; one overtaken by a newer transition is
// skipped. The hook must not call Dispatch.
func WithOnChange(fn func(Session)) MachineOption {
	return func(m *Machine) {
		m.onChange = fn
	}
}

// WithMachineLogger sets the logger for transitions
func WithMachineLogger(logger *zap.Logger) MachineOption {
	return func(m *Machine) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMachine creates a machine with a fresh idle session
func NewMachine(dispatcher *Dispatcher, opts ...MachineOption) *Machine {
	m := &Machine{
		session:  NewSession(uuid.NewString()),
		dispatch: dispatcher,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Dispatch reduces ev into the session and starts any resulting gateway call.
// It returns the session as it stands right after the transition.
func (m *Machine) Dispatch(ctx context.Context, ev Event) Session {
	m.mu.Lock()
	prev := m.session.Phase
	next, cmd := Reduce(m.session, ev)
	m.session = next
	snapshot := next.Clone()
	if cmd != nil {
		m.inflight.Add(1)
	}
	m.seq++
	seq := m.seq
	m.mu.Unlock()

	if prev != snapshot.Phase {
		m.logger.Debug("phase changed",
			zap.String("session", snapshot.ID),
			zap.Stringer("from", prev),
			zap.Stringer("to", snapshot.Phase),
		)
	}
	m.notify(seq, snapshot)

	if cmd != nil {
		go func() {
			defer m.inflight.Done()
			m.Dispatch(ctx, m.dispatch.Run(ctx, cmd))
		}()
	}
	return snapshot
}

func (m *Machine) notify(seq uint64, s Session) {
	if m.onChange == nil {
		return
	}
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	if seq <= m.delivered {
		return
	}
	m.delivered = seq
	m.onChange(s)
}

// Wait blocks until every started gateway call has been reduced back in
func (m *Machine) Wait() {
	m.inflight.Wait()
}

// Snapshot returns a copy of the current session
func (m *Machine) Snapshot() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Clone()
}
