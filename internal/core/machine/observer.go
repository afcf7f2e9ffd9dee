package machine

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/modstate/modstate/internal/core/observability/log"
)

// TraceEvent describes one lifecycle transition inside a machine.
type TraceEvent struct {
	ID      string    `json:"id"`
	Machine string    `json:"machine"`
	State   string    `json:"state,omitempty"`
	Kind    string    `json:"kind,omitempty"`
	Op      string    `json:"op"`
	Tick    uint64    `json:"tick"`
	Time    time.Time `json:"time"`
}

// Trace operations.
const (
	OpEnter = "enter"
	OpExit  = "exit"
	OpIdle  = "idle"
)

// Observer receives diagnostic callbacks for every state entered or exited
// anywhere in the tree, plus idle notifications from the root scheduler. It
// is injected at construction, never a process-wide ambient hook, and must
// not call back into the machine.
type Observer interface {
	StateEntered(e TraceEvent)
	StateExited(e TraceEvent)
	MachineIdle(e TraceEvent)
}

// notifyEnter/notifyExit/notifyIdle are nil-receiver safe so nodes built
// without a machine (unit tests driving a composite directly) skip
// observation transparently.

func (m *Machine) notifyEnter(s State) {
	if m == nil || m.obs == nil {
		return
	}
	m.obs.StateEntered(m.event(OpEnter, s))
}

func (m *Machine) notifyExit(s State) {
	if m == nil || m.obs == nil {
		return
	}
	m.obs.StateExited(m.event(OpExit, s))
}

func (m *Machine) notifyIdle() {
	if m == nil || m.obs == nil {
		return
	}
	m.obs.MachineIdle(m.event(OpIdle, nil))
}

func (m *Machine) event(op string, s State) TraceEvent {
	e := TraceEvent{
		ID:      uuid.NewString(),
		Machine: m.name,
		Op:      op,
		Tick:    m.tick,
		Time:    time.Now(),
	}
	if s != nil {
		e.State = s.Name()
		e.Kind = KindOf(s)
	}
	return e
}

// LogObserver writes every trace event to a structured logger.
type LogObserver struct {
	L *log.Logger
}

func (o LogObserver) StateEntered(e TraceEvent) { o.write("state entered", e) }
func (o LogObserver) StateExited(e TraceEvent)  { o.write("state exited", e) }
func (o LogObserver) MachineIdle(e TraceEvent)  { o.write("machine idle", e) }

func (o LogObserver) write(msg string, e TraceEvent) {
	if o.L == nil {
		return
	}
	o.L.Debug(msg,
		log.String("machine", e.Machine),
		log.String("state", e.State),
		log.String("kind", e.Kind),
		log.String("op", e.Op),
		log.Uint64("tick", e.Tick),
	)
}

// Recorder is an in-memory observer for tests and offline inspection.
type Recorder struct {
	mu     sync.Mutex
	events []TraceEvent
}

func (r *Recorder) StateEntered(e TraceEvent) { r.append(e) }
func (r *Recorder) StateExited(e TraceEvent)  { r.append(e) }
func (r *Recorder) MachineIdle(e TraceEvent)  { r.append(e) }

func (r *Recorder) append(e TraceEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a snapshot of everything recorded so far.
func (r *Recorder) Events() []TraceEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TraceEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Ops returns the recorded "op state" pairs in order, a compact form for
// asserting transition sequences.
func (r *Recorder) Ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		if e.State == "" {
			out = append(out, e.Op)
			continue
		}
		out = append(out, e.Op+" "+e.State)
	}
	return out
}

// Reset discards recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// MultiObserver fans events out to several observers in order.
type MultiObserver []Observer

func (m MultiObserver) StateEntered(e TraceEvent) {
	for _, o := range m {
		o.StateEntered(e)
	}
}

func (m MultiObserver) StateExited(e TraceEvent) {
	for _, o := range m {
		o.StateExited(e)
	}
}

func (m MultiObserver) MachineIdle(e TraceEvent) {
	for _, o := range m {
		o.MachineIdle(e)
	}
}
