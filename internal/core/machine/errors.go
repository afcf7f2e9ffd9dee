package machine

import "errors"

// Configuration errors fail fast at registration or build time; they are
// never deferred to execution. "No valid state" is not an error anywhere in
// this package: idling is a normal condition that resolves on a later tick.
var (
	// ErrNilState is returned when nil is registered as a child or root.
	ErrNilState = errors.New("nil state")

	// ErrInvalidChild is returned when a state of a disallowed kind is
	// registered under a composite or at the machine's top level.
	ErrInvalidChild = errors.New("invalid child state")

	// ErrUnknownKind is returned for State implementations that do not embed
	// one of the four node bases.
	ErrUnknownKind = errors.New("unknown state kind")

	// ErrDuplicateFactory is returned when a registry name is taken.
	ErrDuplicateFactory = errors.New("duplicate factory")

	// ErrUnknownFactory is returned when a config references an unregistered
	// action or condition name.
	ErrUnknownFactory = errors.New("unknown factory")

	// ErrUnknownNode is returned when a config references an undefined node.
	ErrUnknownNode = errors.New("unknown node in config")

	// ErrNodeCycle is returned when config nodes reference each other
	// cyclically.
	ErrNodeCycle = errors.New("node cycle in config")
)
