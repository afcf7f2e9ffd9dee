package machine

import "fmt"

// SequenceState runs its children strictly in insertion order, advancing only
// when the current child completes. The sequence's own validity predicate is
// the only validity check for the whole subtree: children are never
// individually gated, and the predicate is not re-evaluated between children.
//
// Children may be leaves or any composite kind. An empty sequence marks
// itself complete on Enter and returns control immediately.
type SequenceState struct {
	name     string
	m        *Machine
	parent   State
	children []State
	index    int
	current  State
	complete bool
	valid    func() bool

	// EnterHook and ExitHook run at the start of Enter and the end of Exit.
	// They replace subclass enter/exit overrides for authors who compose a
	// SequenceState directly instead of embedding it.
	EnterHook func()
	ExitHook  func()
}

// NewSequenceState builds a sequence owned by m. The valid predicate gates
// selection of the sequence by its parent; nil means always valid. Types
// embedding *SequenceState may shadow IsValid instead.
func NewSequenceState(m *Machine, name string, valid func() bool) *SequenceState {
	return &SequenceState{m: m, name: name, valid: valid}
}

// Name returns the sequence's identifier.
func (s *SequenceState) Name() string { return s.name }

// IsComplete reports whether every child has completed this activation.
func (s *SequenceState) IsComplete() bool { return s.complete }

// IsValid evaluates the sequence's validity predicate. Defaults to true.
func (s *SequenceState) IsValid() bool {
	if s.valid != nil {
		return s.valid()
	}
	return true
}

func (s *SequenceState) sequenceCore() *SequenceState { return s }

func (s *SequenceState) setParent(p State) { s.parent = p }

// AddSubState registers the next child. Call order defines execution order.
// Registration is setup-time only: the child must be a leaf, sequence,
// selector or decision, and the error is raised here, never at runtime.
func (s *SequenceState) AddSubState(child State) error {
	if child == nil {
		return fmt.Errorf("sequence %q: %w", s.name, ErrNilState)
	}
	switch c := child.(type) {
	case SequenceKind:
		c.sequenceCore().setParent(s)
	case SelectorKind:
		c.selectorCore().setParent(s)
	case DecisionKind, ActionKind:
		// Decisions route their own completion to the root; leaves never
		// return control. Neither needs a parent link.
	default:
		return fmt.Errorf("sequence %q: %w: %T", s.name, ErrUnknownKind, child)
	}
	s.children = append(s.children, child)
	return nil
}

// Children returns the registered children in execution order.
func (s *SequenceState) Children() []State { return s.children }

// Enter activates the sequence: completion is cleared and the first child is
// entered. An empty sequence completes immediately and hands control back
// without consuming a tick.
func (s *SequenceState) Enter() {
	if s.EnterHook != nil {
		s.EnterHook()
	}
	s.complete = false
	s.index = 0
	s.current = nil
	if len(s.children) == 0 {
		s.complete = true
		s.returnControl()
		return
	}
	s.current = s.children[0]
	s.enterChild(s.current)
}

// Execute delegates one step of work to the current child. A child found
// complete is exited and the next one entered; under the collapse policy the
// advance happens in the same tick the child completed, while the newly
// entered child always waits for the next tick to execute.
func (s *SequenceState) Execute() {
	if s.complete || s.current == nil {
		return
	}
	cur := s.current
	if cur.IsComplete() {
		s.advance()
		return
	}
	cur.Execute()
	if s.yields() {
		return
	}
	if s.current != cur {
		// A synchronous control return already advanced us.
		return
	}
	if cur.IsComplete() {
		s.advance()
	}
}

// Exit deactivates the sequence, exiting a still-running child first so that
// no residual active marker survives in the subtree.
func (s *SequenceState) Exit() {
	if s.current != nil && !s.current.IsComplete() {
		s.exitChild(s.current)
	}
	s.current = nil
	if s.ExitHook != nil {
		s.ExitHook()
	}
}

// advance exits the completed child and enters the next one, or marks the
// sequence complete and returns control when none remain. Entering a child
// may complete it on the spot (an empty nested composite), which re-enters
// Execute synchronously; advance therefore touches no state after enterChild.
func (s *SequenceState) advance() {
	s.exitChild(s.current)
	s.index++
	if s.index < len(s.children) {
		s.current = s.children[s.index]
		s.enterChild(s.current)
		return
	}
	s.current = nil
	s.complete = true
	s.returnControl()
}

// returnControl routes completion per the machine's return policy: parent
// sequences and selectors are re-executed synchronously so nested chains
// collapse into one tick; a decision boundary hands control back to the root
// scheduler's update; a top-level sequence simply returns to the caller and
// the root re-scans on its next tick.
func (s *SequenceState) returnControl() {
	if s.yields() {
		return
	}
	switch p := s.parent.(type) {
	case nil:
	case SequenceKind:
		p.Execute()
	case SelectorKind:
		p.Execute()
	case DecisionKind:
		if s.m != nil {
			s.m.Update()
		}
	}
}

func (s *SequenceState) yields() bool {
	return s.m != nil && s.m.policy == ReturnYield
}

func (s *SequenceState) enterChild(c State) {
	s.m.notifyEnter(c)
	c.Enter()
}

func (s *SequenceState) exitChild(c State) {
	c.Exit()
	s.m.notifyExit(c)
}
