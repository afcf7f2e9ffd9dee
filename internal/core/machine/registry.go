package machine

import "fmt"

// ActionFactory builds a leaf from config parameters.
type ActionFactory func(params map[string]any) (State, error)

// ConditionFactory builds a validity predicate from config parameters.
// Predicates gate sequences and decisions at selection time.
type ConditionFactory func(params map[string]any) (func() bool, error)

// Registry maps factory names to implementations so tree configs stay
// decoupled from concrete leaf and predicate code. Register everything
// during setup; Registry is not synchronized.
type Registry struct {
	actions    map[string]ActionFactory
	conditions map[string]ConditionFactory
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		actions:    make(map[string]ActionFactory),
		conditions: make(map[string]ConditionFactory),
	}
}

// RegisterAction binds a leaf factory to a name.
func (r *Registry) RegisterAction(name string, f ActionFactory) error {
	if _, ok := r.actions[name]; ok {
		return fmt.Errorf("%w: action %q", ErrDuplicateFactory, name)
	}
	r.actions[name] = f
	return nil
}

// RegisterCondition binds a predicate factory to a name.
func (r *Registry) RegisterCondition(name string, f ConditionFactory) error {
	if _, ok := r.conditions[name]; ok {
		return fmt.Errorf("%w: condition %q", ErrDuplicateFactory, name)
	}
	r.conditions[name] = f
	return nil
}

// NewAction instantiates a registered leaf.
func (r *Registry) NewAction(name string, params map[string]any) (State, error) {
	f, ok := r.actions[name]
	if !ok {
		return nil, fmt.Errorf("%w: action %q", ErrUnknownFactory, name)
	}
	return f(params)
}

// NewCondition instantiates a registered predicate.
func (r *Registry) NewCondition(name string, params map[string]any) (func() bool, error) {
	f, ok := r.conditions[name]
	if !ok {
		return nil, fmt.Errorf("%w: condition %q", ErrUnknownFactory, name)
	}
	return f(params)
}
