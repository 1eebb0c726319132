package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_UnmountStopsInReverseOrder(t *testing.T) {
	g := NewGuard("zones")

	var order []string
	g.TrackFunc(func() { order = append(order, "first") })
	g.TrackFunc(func() { order = append(order, "second") })
	g.TrackFunc(func() { order = append(order, "third") })

	require.True(t, g.Mounted())
	g.Unmount()

	assert.False(t, g.Mounted())
	assert.Equal(t, []string{"third", "second", "first"}, order)
}

func TestGuard_UnmountIsIdempotent(t *testing.T) {
	g := NewGuard("zones")

	stops := 0
	g.TrackFunc(func() { stops++ })

	g.Unmount()
	g.Unmount()
	assert.Equal(t, 1, stops)
}

func TestGuard_TrackAfterUnmountStopsImmediately(t *testing.T) {
	g := NewGuard("zones")
	g.Unmount()

	stopped := false
	g.TrackFunc(func() { stopped = true })
	assert.True(t, stopped, "late registration must not leak a resource")
}

func TestGuard_DirtyFlags(t *testing.T) {
	g := NewGuard("settings")

	assert.True(t, g.ConfirmLeave(), "clean page leaves freely")

	g.MarkDirty("wifi")
	g.MarkDirty("settings")
	assert.False(t, g.ConfirmLeave())
	assert.ElementsMatch(t, []string{"wifi", "settings"}, g.DirtyGroups())

	g.ClearDirty("wifi")
	assert.False(t, g.ConfirmLeave(), "one dirty group still blocks")

	g.ClearDirty("settings")
	assert.True(t, g.ConfirmLeave())
}

func TestGuard_UnmountClearsDirty(t *testing.T) {
	g := NewGuard("settings")
	g.MarkDirty("settings")

	g.Unmount()
	assert.False(t, g.Dirty())
}
