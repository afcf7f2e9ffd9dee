package machine

// SelectorState scans its children in insertion order on Enter and activates
// the first one whose validity predicate holds. Validity is a one-shot gate:
// once a child is chosen, later children are not considered and the choice is
// never revisited, even if the chosen child turns invalid mid-execution.
//
// Only sequences qualify as selector children, which the AddSubState
// signature enforces at compile time, and a selector itself may only live
// inside a sequence, which the registration APIs enforce. A selector carries
// no validity predicate of its own.
type SelectorState struct {
	name     string
	m        *Machine
	parent   State
	children []SequenceKind
	current  SequenceKind
	complete bool

	EnterHook func()
	ExitHook  func()
}

// NewSelectorState builds a selector owned by m.
func NewSelectorState(m *Machine, name string) *SelectorState {
	return &SelectorState{m: m, name: name}
}

// Name returns the selector's identifier.
func (s *SelectorState) Name() string { return s.name }

// IsComplete reports whether the selected child completed or no child was
// valid on entry.
func (s *SelectorState) IsComplete() bool { return s.complete }

func (s *SelectorState) selectorCore() *SelectorState { return s }

func (s *SelectorState) setParent(p State) { s.parent = p }

// AddSubState registers a candidate child. The SequenceKind parameter makes
// the allowed-child rule a compile-time property, so no error is possible
// here.
func (s *SelectorState) AddSubState(child SequenceKind) {
	child.sequenceCore().setParent(s)
	s.children = append(s.children, child)
}

// Children returns the candidates in scan order.
func (s *SelectorState) Children() []SequenceKind { return s.children }

// Enter activates the selector and performs the selection scan. With no
// valid child the selector completes immediately and propagates control
// upward without consuming a tick.
func (s *SelectorState) Enter() {
	if s.EnterHook != nil {
		s.EnterHook()
	}
	s.complete = false
	s.current = nil
	for _, c := range s.children {
		if c.IsValid() {
			s.current = c
			s.enterChild(c)
			return
		}
	}
	s.complete = true
	s.returnControl()
}

// Execute delegates to the active child while it runs; once the child
// completes, the selector exits it, marks itself complete and propagates
// control to its owning sequence.
func (s *SelectorState) Execute() {
	if s.complete {
		return
	}
	if s.current == nil {
		s.complete = true
		s.returnControl()
		return
	}
	cur := s.current
	if !cur.IsComplete() {
		cur.Execute()
		if s.yields() || s.complete {
			return
		}
		if !cur.IsComplete() {
			return
		}
	}
	s.exitChild(cur)
	s.current = nil
	s.complete = true
	s.returnControl()
}

// Exit deactivates the selector, cascading to a still-active child.
func (s *SelectorState) Exit() {
	if s.current != nil {
		s.exitChild(s.current)
		s.current = nil
	}
	if s.ExitHook != nil {
		s.ExitHook()
	}
}

func (s *SelectorState) returnControl() {
	if s.yields() {
		return
	}
	if p, ok := s.parent.(SequenceKind); ok {
		p.Execute()
	}
}

func (s *SelectorState) yields() bool {
	return s.m != nil && s.m.policy == ReturnYield
}

func (s *SelectorState) enterChild(c State) {
	s.m.notifyEnter(c)
	c.Enter()
}

func (s *SelectorState) exitChild(c State) {
	c.Exit()
	s.m.notifyExit(c)
}
