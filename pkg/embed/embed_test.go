package embed

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/OCAP2/mapkit/internal/widget/memory"
	"github.com/OCAP2/mapkit/pkg/binding"
	"github.com/OCAP2/mapkit/pkg/core"
	"github.com/OCAP2/mapkit/pkg/mapkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type element string

func (e element) ID() string { return string(e) }

func newHost() StaticHost {
	return StaticHost{Element: element("map"), Data: binding.NewContext(map[string]any{"site": "HQ"})}
}

func newWidget(t *testing.T) *memory.Widget {
	t.Helper()
	w, err := memory.New(nil)
	require.NoError(t, err)
	return w
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestMount_Automatic(t *testing.T) {
	a := Mount(newHost(), Options{Widget: newWidget(t), Map: []mapkit.Option{mapkit.WithZoom(5)}})

	require.NotNil(t, a.MapView())
	assert.True(t, isClosed(a.Ready()))
	assert.False(t, a.Manual())
	assert.NoError(t, a.Err())
	assert.Equal(t, 5, a.MapView().CurrentZoom())
}

func TestMount_ManualWaitsForInit(t *testing.T) {
	a := Mount(newHost(), Options{Widget: newWidget(t), Manual: true})

	assert.Nil(t, a.MapView())
	assert.False(t, isClosed(a.Ready()))

	var got *mapkit.MapView
	a.OnReady(func(v *mapkit.MapView) { got = v })
	assert.Nil(t, got)

	v, err := a.Init()
	require.NoError(t, err)
	assert.Same(t, v, got)
	assert.True(t, isClosed(a.Ready()))
}

func TestInit_Idempotent(t *testing.T) {
	w := newWidget(t)
	a := Mount(newHost(), Options{Widget: w, Manual: true})

	calls := 0
	a.OnReady(func(*mapkit.MapView) { calls++ })

	first, err := a.Init()
	require.NoError(t, err)
	second, err := a.Init()
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
	assert.Len(t, w.Maps(), 1)
}

func TestOnReady_AfterReadyRunsImmediately(t *testing.T) {
	a := Mount(newHost(), Options{Widget: newWidget(t)})

	var got *mapkit.MapView
	a.OnReady(func(v *mapkit.MapView) { got = v })
	assert.Same(t, a.MapView(), got)

	a.OnReady(nil)
}

func TestMount_FailureIsKept(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	a := Mount(newHost(), Options{Logger: logger})

	assert.Nil(t, a.MapView())
	assert.ErrorIs(t, a.Err(), core.ErrMissingDependency)
	assert.False(t, isClosed(a.Ready()))
	assert.Contains(t, logs.String(), "map init failed")
}

func TestInit_MissingHost(t *testing.T) {
	a := Mount(nil, Options{Widget: newWidget(t), Manual: true})

	v, err := a.Init()
	assert.Nil(t, v)
	assert.ErrorIs(t, err, core.ErrInvalidContainer)
}

func TestInit_MissingScope(t *testing.T) {
	a := Mount(StaticHost{Element: element("map")}, Options{Widget: newWidget(t), Manual: true})

	_, err := a.Init()
	assert.ErrorIs(t, err, core.ErrMissingBindingContext)
}

func TestDefaultRenderer_CompilesAgainstHostScope(t *testing.T) {
	a := Mount(newHost(), Options{Widget: newWidget(t)})
	require.NotNil(t, a.MapView())

	node, err := a.MapView().Compile("<b>{{.site}}</b>", nil)
	require.NoError(t, err)
	assert.Equal(t, "<b>HQ</b>", node.HTML())
}

func TestUnmount(t *testing.T) {
	w := newWidget(t)
	a := Mount(newHost(), Options{Widget: w, Manual: true})
	a.OnReady(func(*mapkit.MapView) { t.Fatal("ready after unmount") })

	a.Unmount()

	v, err := a.Init()
	assert.Nil(t, v)
	assert.ErrorIs(t, err, ErrUnmounted)
	assert.Nil(t, a.MapView())
}

func TestUnmount_ReleasesViewListeners(t *testing.T) {
	w := newWidget(t)
	a := Mount(newHost(), Options{Widget: w})
	require.NotNil(t, a.MapView())
	require.Positive(t, w.Listeners())

	a.Unmount()
	assert.Zero(t, w.Listeners())
}
