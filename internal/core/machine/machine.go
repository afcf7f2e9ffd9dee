package machine

import "fmt"

// ReturnPolicy selects the control-return rule for nested composite chains.
type ReturnPolicy int

const (
	// ReturnCollapse is the reference behavior: completion inside nested
	// Sequence/Selector chains propagates synchronously so the chain
	// collapses into one logical unit of work per tick, while Decision
	// boundaries always yield to the root scheduler.
	ReturnCollapse ReturnPolicy = iota

	// ReturnYield makes every composite boundary cost a tick: no synchronous
	// parent re-entry, each advance waits for the next external tick.
	ReturnYield
)

// Machine is the root scheduler. It owns the ordered top-level state list
// (priority order, scanned start to end), drives one step per external tick
// and transitions between top-level states by validity.
//
// The whole tree executes synchronously inside one Update call on the
// caller's goroutine; the Machine is not safe for concurrent use.
type Machine struct {
	name    string
	states  []State
	current State
	policy  ReturnPolicy
	obs     Observer
	tick    uint64
	depth   int
}

// Option configures a Machine at construction.
type Option func(*Machine)

// WithReturnPolicy overrides the default ReturnCollapse rule.
func WithReturnPolicy(p ReturnPolicy) Option {
	return func(m *Machine) { m.policy = p }
}

// WithObserver injects diagnostic enter/exit/idle callbacks. Observation is
// strictly optional; the engine never depends on it.
func WithObserver(o Observer) Option {
	return func(m *Machine) { m.obs = o }
}

// New builds an empty machine.
func New(name string, opts ...Option) *Machine {
	m := &Machine{name: name}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the machine's identifier.
func (m *Machine) Name() string { return m.name }

// Policy returns the configured control-return rule.
func (m *Machine) Policy() ReturnPolicy { return m.policy }

// Tick returns the number of external Update calls so far.
func (m *Machine) Tick() uint64 { return m.tick }

// AddState registers a top-level state. Order is priority order. Leaves,
// sequences and decisions qualify; a selector must live inside a sequence
// and is rejected here, at setup time.
func (m *Machine) AddState(st State) error {
	if st == nil {
		return fmt.Errorf("machine %q: %w", m.name, ErrNilState)
	}
	switch st.(type) {
	case SequenceKind, DecisionKind, ActionKind:
	case SelectorKind:
		return fmt.Errorf("machine %q: %w: selector %q must live inside a sequence",
			m.name, ErrInvalidChild, st.Name())
	default:
		return fmt.Errorf("machine %q: %w: %T", m.name, ErrUnknownKind, st)
	}
	m.states = append(m.states, st)
	return nil
}

// Start scans for the first valid top-level state and enters it. Calling
// Update first is equivalent.
func (m *Machine) Start() {
	if m.current == nil {
		m.transition()
	}
}

// Update is the single external tick entry point. If an active state exists
// and is incomplete, one step is delegated to it; otherwise the old state is
// exited and the top-level list re-scanned for the first currently valid
// one. Finding none leaves the machine idle, which is not an error and is
// retried on the next tick. Update is safe to call repeatedly while idle.
//
// Update is also re-entered synchronously when a sequence completes at a
// decision boundary under ReturnCollapse; re-validation of the top-level
// list still happens at most once per external tick, because the re-entry
// only ever reaches the delegation branch.
func (m *Machine) Update() {
	m.depth++
	if m.depth == 1 {
		m.tick++
	}
	defer func() { m.depth-- }()

	if m.current != nil && !m.current.IsComplete() {
		m.current.Execute()
		return
	}
	m.transition()
}

// IsRunning reports whether any top-level states are registered at all. It
// signals "work is configured", not "work is currently runnable".
func (m *Machine) IsRunning() bool { return len(m.states) > 0 }

// Active returns the currently active top-level state, or nil when idle.
func (m *Machine) Active() State { return m.current }

// transition exits the active state, then enters the first top-level state
// that is currently valid. Leaves without a validity capability are always
// eligible.
func (m *Machine) transition() {
	if m.current != nil {
		m.current.Exit()
		m.notifyExit(m.current)
		m.current = nil
	}
	for _, st := range m.states {
		if v, ok := st.(ValidatableState); ok && !v.IsValid() {
			continue
		}
		m.current = st
		m.notifyEnter(st)
		st.Enter()
		return
	}
	m.notifyIdle()
}
