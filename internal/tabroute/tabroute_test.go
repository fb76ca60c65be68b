package tabroute

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	table := Default()

	t.Run("prefix claims", func(t *testing.T) {
		cases := []struct {
			path string
			tab  Tab
		}{
			{"/training", TabWorkout},
			{"/training/week/2", TabWorkout},
			{"/nutrition", TabNutrition},
			{"/nutrition/log/today", TabNutrition},
			{"/profile", TabProfile},
			{"/profile/settings", TabProfile},
			{"/billing", TabProfile},
			{"/billing/invoices", TabProfile},
		}
		for _, tc := range cases {
			tab, ok := table.Resolve(tc.path)
			require.True(t, ok, tc.path)
			assert.Equal(t, tc.tab, tab, tc.path)
		}
	})

	t.Run("segment boundaries", func(t *testing.T) {
		_, ok := table.Resolve("/nutritionist")
		assert.False(t, ok, "prefix must not match mid-segment")

		_, ok = table.Resolve("/trainingcamp")
		assert.False(t, ok)

		tab, ok := table.Resolve("/training/")
		require.True(t, ok)
		assert.Equal(t, TabWorkout, tab)
	})

	t.Run("query and fragment ignored", func(t *testing.T) {
		tab, ok := table.Resolve("/training/week/2?day=3#warmup")
		require.True(t, ok)
		assert.Equal(t, TabWorkout, tab)
	})

	t.Run("unclaimed paths", func(t *testing.T) {
		for _, path := range []string{"/", "/settings", "/login", ""} {
			_, ok := table.Resolve(path)
			assert.False(t, ok, path)
			assert.Equal(t, TabDashboard, table.ResolveOr(path), path)
		}
	})

	t.Run("deterministic across repeats", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			tab, ok := table.Resolve("/billing/invoices")
			require.True(t, ok)
			assert.Equal(t, TabProfile, tab)
		}
	})
}

func TestRootPath(t *testing.T) {
	table := Default()

	assert.Equal(t, "/", table.RootPath(TabDashboard))
	assert.Equal(t, "/training", table.RootPath(TabWorkout))
	assert.Equal(t, "/nutrition", table.RootPath(TabNutrition))
	assert.Equal(t, "/profile", table.RootPath(TabProfile))
}

func TestNew(t *testing.T) {
	t.Run("rejects relative prefix", func(t *testing.T) {
		_, err := New(
			map[string]Tab{"training": TabWorkout},
			map[Tab]string{TabDashboard: "/", TabWorkout: "/training", TabNutrition: "/nutrition", TabProfile: "/profile"},
		)
		require.Error(t, err)
	})

	t.Run("rejects missing root", func(t *testing.T) {
		_, err := New(map[string]Tab{}, map[Tab]string{TabDashboard: "/"})
		require.Error(t, err)
	})
}

func TestIsLogin(t *testing.T) {
	assert.True(t, IsLogin("/login"))
	assert.True(t, IsLogin("/login/"))
	assert.True(t, IsLogin("/login/reset"))
	assert.True(t, IsLogin("/login?next=/training"))
	assert.False(t, IsLogin("/loginhelp"))
	assert.False(t, IsLogin("/training"))
}

func TestParseTab(t *testing.T) {
	for _, tab := range Tabs() {
		got, ok := ParseTab(string(tab))
		require.True(t, ok)
		assert.Equal(t, tab, got)
	}

	_, ok := ParseTab("settings")
	assert.False(t, ok)
	_, ok = ParseTab("")
	assert.False(t, ok)
}
