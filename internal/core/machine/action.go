package machine

// ActionState is the embeddable base for leaf nodes. It carries the
// completion flag and deliberately does not provide Execute: a leaf author
// embeds ActionState and implements Execute, calling MarkComplete when the
// task is done, immediately or after several ticks. State persists across
// ticks, so multi-tick tasks resume exactly where they left off.
//
//	type ChopTree struct {
//		machine.ActionState
//	}
//
//	func (c *ChopTree) Execute() {
//		if swing() {
//			c.MarkComplete()
//		}
//	}
//
// A leaf has no validity predicate; its eligibility is governed entirely by
// the owning Sequence.
type ActionState struct {
	name     string
	complete bool
}

// NewActionState returns a base for embedding into a leaf type.
func NewActionState(name string) ActionState {
	return ActionState{name: name}
}

// Name returns the leaf's identifier.
func (a *ActionState) Name() string { return a.name }

// Enter resets the completion flag. Leaf types that need setup should shadow
// Enter and call ResetCompletion themselves.
func (a *ActionState) Enter() { a.complete = false }

// Exit is a no-op by default.
func (a *ActionState) Exit() {}

// IsComplete reports the completion flag.
func (a *ActionState) IsComplete() bool { return a.complete }

// MarkComplete flags the task as done, letting the owning composite advance.
func (a *ActionState) MarkComplete() { a.complete = true }

// ResetCompletion clears the completion flag.
func (a *ActionState) ResetCompletion() { a.complete = false }

func (a *ActionState) actionCore() *ActionState { return a }

// ActionFunc wraps a function as a leaf node. Fn is called once per tick and
// returns true when the task is done.
type ActionFunc struct {
	ActionState
	Fn func() bool
}

// NewActionFunc builds a functional leaf.
func NewActionFunc(name string, fn func() bool) *ActionFunc {
	return &ActionFunc{ActionState: NewActionState(name), Fn: fn}
}

// Execute runs Fn and marks the leaf complete when it reports done.
func (a *ActionFunc) Execute() {
	if a.Fn == nil || a.Fn() {
		a.MarkComplete()
	}
}
