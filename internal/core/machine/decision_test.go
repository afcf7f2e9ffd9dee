package machine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecisionRejectsLeafAndSelectorChildren(t *testing.T) {
	d := NewDecisionState(nil, "d", nil)

	err := d.AddSubState(newStub("leaf", 1))
	require.ErrorIs(t, err, ErrInvalidChild)

	err = d.AddSubState(NewSelectorState(nil, "pick"))
	require.ErrorIs(t, err, ErrInvalidChild)

	assert.ErrorIs(t, d.AddSubState(nil), ErrNilState)
	assert.ErrorIs(t, d.AddSubState(alienState{}), ErrUnknownKind)
}

func TestDecisionAcceptsSequenceAndDecisionChildren(t *testing.T) {
	d := NewDecisionState(nil, "d", nil)
	require.NoError(t, d.AddSubState(NewSequenceState(nil, "seq", nil)))
	require.NoError(t, d.AddSubState(NewDecisionState(nil, "nested", nil)))
	assert.Len(t, d.Children(), 2)
}

func TestDecisionActivatesFirstValidChild(t *testing.T) {
	d := NewDecisionState(nil, "d", nil)
	g1 := &counter{value: false}
	g2 := &counter{value: true}
	g3 := &counter{value: true}
	b1, t1 := buildBranch(t, nil, "one", g1, 1)
	b2, t2 := buildBranch(t, nil, "two", g2, 1)
	b3, t3 := buildBranch(t, nil, "three", g3, 1)
	require.NoError(t, d.AddSubState(b1))
	require.NoError(t, d.AddSubState(b2))
	require.NoError(t, d.AddSubState(b3))

	d.Enter()
	assert.Equal(t, 1, g1.calls)
	assert.Equal(t, 1, g2.calls)
	assert.Equal(t, 0, g3.calls)
	assert.Equal(t, 0, t1.enters)
	assert.Equal(t, 1, t2.enters)
	assert.Equal(t, 0, t3.enters)
}

func TestDecisionNoValidChildCompletesOnEnter(t *testing.T) {
	d := NewDecisionState(nil, "d", nil)
	gate := &counter{value: false}
	branch, _ := buildBranch(t, nil, "never", gate, 1)
	require.NoError(t, d.AddSubState(branch))

	d.Enter()
	assert.True(t, d.IsComplete(), "no valid child is not an error, just done")
}

// A decision boundary always yields to the root: a nested decision's
// completion is observed by its parent on the next tick, not synchronously.
func TestDecisionNestedBoundaryCostsATick(t *testing.T) {
	m := New("bot")
	outer := NewDecisionState(m, "outer", nil)
	inner := NewDecisionState(m, "inner", nil)
	seq := NewSequenceState(m, "seq", nil)
	task := newStub("task", 1)
	require.NoError(t, seq.AddSubState(task))
	require.NoError(t, inner.AddSubState(seq))
	require.NoError(t, outer.AddSubState(inner))
	require.NoError(t, m.AddState(outer))

	m.Update() // tick 1: enter outer -> inner -> seq -> task
	require.Equal(t, 1, task.enters)

	m.Update() // tick 2: task runs, seq collapses, inner completes
	assert.Equal(t, 1, task.runs)
	assert.True(t, inner.IsComplete())
	assert.False(t, outer.IsComplete())

	m.Update() // tick 3: outer observes inner's completion
	assert.True(t, outer.IsComplete())
}

func TestDecisionExitCascades(t *testing.T) {
	d := NewDecisionState(nil, "d", nil)
	gate := &counter{value: true}
	branch, task := buildBranch(t, nil, "job", gate, 5)
	require.NoError(t, d.AddSubState(branch))

	d.Enter()
	d.Execute()
	require.True(t, task.active)

	d.Exit()
	assert.False(t, task.active)
	assert.Equal(t, 1, task.exits)
}

func TestDecisionValidityGatesTheDecisionItself(t *testing.T) {
	m := New("bot")
	gate := &counter{value: false}
	d := NewDecisionState(m, "d", gate.fn())
	branch, task := buildBranch(t, m, "job", &counter{value: true}, 1)
	require.NoError(t, d.AddSubState(branch))
	require.NoError(t, m.AddState(d))

	m.Update()
	assert.Nil(t, m.Active())
	assert.Equal(t, 0, task.enters)

	gate.value = true
	m.Update()
	assert.Equal(t, 1, task.enters)
}

// At every point during an update, at most one leaf in the whole tree is
// active.
func TestAtMostOneActiveLeaf(t *testing.T) {
	m := New("bot")
	leaves := []*stubTask{
		newStub("a", 2), newStub("b", 1), newStub("c", 3), newStub("d", 1),
	}

	d := NewDecisionState(m, "root", nil)
	seq := NewSequenceState(m, "main", nil)
	require.NoError(t, seq.AddSubState(leaves[0]))

	sel := NewSelectorState(m, "pick")
	g1 := &counter{value: false}
	b1 := NewSequenceState(m, "skip", g1.fn())
	require.NoError(t, b1.AddSubState(leaves[1]))
	sel.AddSubState(b1)
	b2 := NewSequenceState(m, "take", nil)
	require.NoError(t, b2.AddSubState(leaves[2]))
	sel.AddSubState(b2)
	require.NoError(t, seq.AddSubState(sel))

	require.NoError(t, seq.AddSubState(leaves[3]))
	require.NoError(t, d.AddSubState(seq))
	require.NoError(t, m.AddState(d))

	countActive := func() int {
		n := 0
		for _, l := range leaves {
			if l.active {
				n++
			}
		}
		return n
	}

	for i := 0; i < 20; i++ {
		m.Update()
		assert.LessOrEqual(t, countActive(), 1, "tick %d", i)
	}
	totalRuns := 0
	for _, l := range leaves {
		totalRuns += l.runs
	}
	assert.Greater(t, totalRuns, 3, "tree made progress")
}
