// Package runtime hosts machines: it supplies the external tick loop the
// engine itself deliberately does not own, refreshing world state between
// ticks and driving Update once per iteration.
package runtime

import (
	"context"

	"github.com/modstate/modstate/internal/core/blackboard"
)

// Sensor pulls data from the outside world into the blackboard before each
// tick, so validity predicates and leaves read a consistent snapshot.
type Sensor interface {
	Name() string
	Update(ctx context.Context, bb *blackboard.Blackboard) error
}

// SensorFunc adapts a function to the Sensor interface.
type SensorFunc struct {
	SensorName string
	Fn         func(ctx context.Context, bb *blackboard.Blackboard) error
}

func (s SensorFunc) Name() string { return s.SensorName }

func (s SensorFunc) Update(ctx context.Context, bb *blackboard.Blackboard) error {
	if s.Fn == nil {
		return nil
	}
	return s.Fn(ctx, bb)
}
