package shell

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadyGate(t *testing.T) {
	t.Run("fires pending listeners once", func(t *testing.T) {
		g := NewReadyGate()
		fired := 0
		g.OnReady(func() { fired++ })

		g.SetReady()
		g.SetReady()

		assert.Equal(t, 1, fired)
		assert.True(t, g.Ready())
	})

	t.Run("late listener runs immediately", func(t *testing.T) {
		g := NewReadyGate()
		g.SetReady()

		fired := false
		g.OnReady(func() { fired = true })
		assert.True(t, fired)
	})

	t.Run("unsubscribe before ready", func(t *testing.T) {
		g := NewReadyGate()
		fired := false
		unsub := g.OnReady(func() { fired = true })
		unsub()

		g.SetReady()
		assert.False(t, fired)
	})

	t.Run("error channel is independent", func(t *testing.T) {
		g := NewReadyGate()
		var readyFired, errorFired bool
		g.OnReady(func() { readyFired = true })
		g.OnError(func() { errorFired = true })

		g.SetError()

		assert.True(t, errorFired)
		assert.False(t, readyFired)
		assert.True(t, g.Failed())
		assert.False(t, g.Ready())
	})

	t.Run("reset drops state and listeners", func(t *testing.T) {
		g := NewReadyGate()
		g.SetReady()
		g.SetError()

		stale := false
		g.OnError(func() { stale = true }) // runs immediately, failed already set
		assert.True(t, stale)

		g.Reset()
		assert.False(t, g.Ready())
		assert.False(t, g.Failed())

		fired := 0
		g.OnReady(func() { fired++ })
		g.SetReady()
		assert.Equal(t, 1, fired)
	})
}
