package machine

import "fmt"

// DecisionState picks the first valid of its children on Enter, exactly like
// a selector, but accepts Sequence and Decision children and may appear
// anywhere in the tree, including the machine's top level. A decision never
// hands control to a parent synchronously: its boundary always yields to the
// root scheduler, so top-level re-validation happens exactly once per tick.
type DecisionState struct {
	name     string
	m        *Machine
	children []ValidatableState
	current  ValidatableState
	complete bool
	valid    func() bool

	EnterHook func()
	ExitHook  func()
}

// NewDecisionState builds a decision owned by m. The valid predicate gates
// selection of the decision itself; nil means always valid.
func NewDecisionState(m *Machine, name string, valid func() bool) *DecisionState {
	return &DecisionState{m: m, name: name, valid: valid}
}

// Name returns the decision's identifier.
func (d *DecisionState) Name() string { return d.name }

// IsComplete reports whether the selected child completed or no child was
// valid on entry.
func (d *DecisionState) IsComplete() bool { return d.complete }

// IsValid evaluates the decision's validity predicate. Defaults to true.
func (d *DecisionState) IsValid() bool {
	if d.valid != nil {
		return d.valid()
	}
	return true
}

func (d *DecisionState) decisionCore() *DecisionState { return d }

// AddSubState registers a candidate child. Only sequences and nested
// decisions qualify; a leaf must be wrapped in a sequence first. The check
// runs here, at configuration time, never during execution.
func (d *DecisionState) AddSubState(child State) error {
	if child == nil {
		return fmt.Errorf("decision %q: %w", d.name, ErrNilState)
	}
	switch c := child.(type) {
	case SequenceKind:
		c.sequenceCore().setParent(d)
		d.children = append(d.children, c)
	case DecisionKind:
		d.children = append(d.children, c)
	case SelectorKind, ActionKind:
		return fmt.Errorf("decision %q: %w: %s %q must be wrapped in a sequence",
			d.name, ErrInvalidChild, KindOf(child), child.Name())
	default:
		return fmt.Errorf("decision %q: %w: %T", d.name, ErrUnknownKind, child)
	}
	return nil
}

// Children returns the candidates in scan order.
func (d *DecisionState) Children() []ValidatableState { return d.children }

// Enter activates the decision and performs the selection scan. With no
// valid child the decision completes immediately; the root notices on its
// next tick.
func (d *DecisionState) Enter() {
	if d.EnterHook != nil {
		d.EnterHook()
	}
	d.complete = false
	d.current = nil
	for _, c := range d.children {
		if c.IsValid() {
			d.current = c
			d.enterChild(c)
			return
		}
	}
	d.complete = true
}

// Execute delegates to the active child while it runs. Once the child is
// complete the decision exits it and marks itself complete, then returns;
// the root scheduler exits the decision and re-scans on a later tick.
func (d *DecisionState) Execute() {
	if d.complete {
		return
	}
	if d.current != nil {
		if !d.current.IsComplete() {
			d.current.Execute()
			return
		}
		d.exitChild(d.current)
		d.current = nil
	}
	d.complete = true
}

// Exit deactivates the decision, cascading to a still-active child.
func (d *DecisionState) Exit() {
	if d.current != nil {
		d.exitChild(d.current)
		d.current = nil
	}
	if d.ExitHook != nil {
		d.ExitHook()
	}
}

func (d *DecisionState) enterChild(c State) {
	d.m.notifyEnter(c)
	c.Enter()
}

func (d *DecisionState) exitChild(c State) {
	c.Exit()
	d.m.notifyExit(c)
}
