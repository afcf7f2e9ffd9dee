package machine

// State is the lifecycle contract every control node implements.
// Enter performs setup and resets the completion flag, Execute performs one
// unit of work, Exit performs cleanup, IsComplete reports whether the node's
// work has finished for the current activation.
//
// The required call order is Enter, zero or more Execute, Exit. The engine
// always respects it; hand-driven nodes in tests must too.
type State interface {
	// Name returns a human-readable identifier for tracing and debugging.
	Name() string

	// Enter is called when the node becomes active. It resets completion.
	Enter()

	// Execute performs one step of work. For leaves, at most one Execute
	// reaches a leaf per external tick.
	Execute()

	// Exit is called when the node is deactivated, whether it completed or
	// was preempted by a higher-level re-scan.
	Exit()

	// IsComplete reports whether the node finished its current activation.
	IsComplete() bool
}

// ValidatableState is a State with an eligibility predicate. Validity is
// evaluated exactly once, when a parent selects the node; it is never
// re-checked mid-execution.
type ValidatableState interface {
	State

	// IsValid reports whether the state may be entered right now.
	IsValid() bool
}

// The node kinds form a closed set: Action (leaf), Sequence, Selector and
// Decision. Each kind interface is satisfied only by types embedding the
// corresponding base struct from this package, which lets registration APIs
// verify the allowed-child-type rules and lets control-return routing
// dispatch exhaustively.

// ActionKind identifies leaf nodes: units of concrete work with no children.
type ActionKind interface {
	State
	actionCore() *ActionState
}

// SequenceKind identifies ordered composites that run children strictly in
// order. Sequences carry the only validity predicate for their whole subtree.
type SequenceKind interface {
	ValidatableState
	sequenceCore() *SequenceState
}

// SelectorKind identifies first-valid-child composites restricted to
// Sequence children. A selector may only live inside a Sequence.
type SelectorKind interface {
	State
	selectorCore() *SelectorState
}

// DecisionKind identifies first-valid-child composites over Sequence or
// Decision children. Decisions may appear anywhere, including the root, and
// always yield to the root scheduler when they complete.
type DecisionKind interface {
	ValidatableState
	decisionCore() *DecisionState
}

// KindOf names the kind of a state for traces and error messages.
func KindOf(s State) string {
	switch s.(type) {
	case SequenceKind:
		return "sequence"
	case SelectorKind:
		return "selector"
	case DecisionKind:
		return "decision"
	case ActionKind:
		return "action"
	default:
		return "unknown"
	}
}
