package shell

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stridefit/stride/internal/auth"
	"github.com/stridefit/stride/internal/tabroute"
)

type deadView struct{ fakeView }

func (*deadView) Live() bool { return false }

func TestSessionInjector(t *testing.T) {
	inj := NewSessionInjector(testLogger())

	t.Run("session carries both tokens", func(t *testing.T) {
		v := &fakeView{}
		inj.InjectSession(tabroute.TabDashboard, v, testSession())

		assert.Equal(t, 1, v.evalsContaining(`"AUTH_SESSION"`))
		assert.Equal(t, 1, v.evalsContaining(`"access-1"`))
		assert.Equal(t, 1, v.evalsContaining(`"refresh-1"`))
	})

	t.Run("nil or empty session skipped", func(t *testing.T) {
		v := &fakeView{}
		inj.InjectSession(tabroute.TabDashboard, v, nil)
		inj.InjectSession(tabroute.TabDashboard, v, &auth.Session{UserID: "u"})
		assert.Empty(t, v.evaled)
	})

	t.Run("dead view skipped", func(t *testing.T) {
		v := &deadView{}
		inj.InjectSession(tabroute.TabDashboard, v, testSession())
		assert.Empty(t, v.evaled)
	})

	t.Run("logout delivered even to never-authenticated views", func(t *testing.T) {
		v := &fakeView{}
		inj.InjectLogout(tabroute.TabProfile, v)
		assert.Equal(t, 1, v.evalsContaining(`"AUTH_LOGOUT"`))
	})

	t.Run("empty theme skipped", func(t *testing.T) {
		v := &fakeView{}
		inj.InjectTheme(tabroute.TabProfile, v, "")
		assert.Empty(t, v.evaled)

		inj.InjectTheme(tabroute.TabProfile, v, "dark")
		assert.Equal(t, 1, v.evalsContaining(`"THEME_CHANGE"`))
	})
}
