package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modstate/modstate/internal/core/machine"
)

func TestManagerAddGetRemove(t *testing.T) {
	mg := NewManager(nil)
	r := NewRunner(oneTickMachine(t, "bot"))

	require.NoError(t, mg.Add("bot-1", r))
	assert.Error(t, mg.Add("bot-1", r), "duplicate id rejected")
	assert.Equal(t, 1, mg.Len())

	got, ok := mg.Get("bot-1")
	require.True(t, ok)
	assert.Same(t, r, got)

	assert.True(t, mg.Remove("bot-1"))
	assert.False(t, mg.Remove("bot-1"))
	assert.Zero(t, mg.Len())
}

func TestManagerRunsAllUntilCanceled(t *testing.T) {
	mg := NewManager(nil)
	m1 := oneTickMachine(t, "one")
	m2 := oneTickMachine(t, "two")
	require.NoError(t, mg.Add("one", NewRunner(m1, WithInterval(time.Millisecond))))
	require.NoError(t, mg.Add("two", NewRunner(m2, WithInterval(time.Millisecond))))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := mg.Run(ctx)
	assert.NoError(t, err, "cancellation is a clean shutdown")
	assert.Greater(t, m1.Tick(), uint64(0))
	assert.Greater(t, m2.Tick(), uint64(0))
}

func TestManagerPropagatesRunnerError(t *testing.T) {
	mg := NewManager(nil)
	require.NoError(t, mg.Add("ok", NewRunner(oneTickMachine(t, "ok"), WithInterval(time.Millisecond))))
	// An empty machine makes its runner fail fast with ErrNoStates, which
	// must cancel the healthy one too.
	require.NoError(t, mg.Add("empty", NewRunner(machine.New("empty"))))

	done := make(chan error, 1)
	go func() { done <- mg.Run(context.Background()) }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNoStates)
		assert.Contains(t, err.Error(), `"empty"`)
	case <-time.After(2 * time.Second):
		t.Fatal("manager did not stop after a runner error")
	}
}

func TestManagerRunWithNoRunners(t *testing.T) {
	mg := NewManager(nil)
	assert.NoError(t, mg.Run(context.Background()))
}
