package mapkit

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/OCAP2/mapkit/internal/schedule"
	"github.com/OCAP2/mapkit/internal/widget/memory"
	"github.com/OCAP2/mapkit/pkg/binding"
	"github.com/OCAP2/mapkit/pkg/core"
	"github.com/stretchr/testify/require"
)

type element string

func (e element) ID() string { return string(e) }

// syncBuffer is a goroutine-safe log sink
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fixture struct {
	view   *MapView
	widget *memory.Widget
	clock  *schedule.Manual
	scope  *binding.Context
	logs   *syncBuffer
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	w, err := memory.New(nil)
	require.NoError(t, err)

	f := &fixture{
		widget: w,
		clock:  schedule.NewManual(time.Unix(0, 0)),
		scope:  binding.NewContext(map[string]any{"site": "HQ"}),
		logs:   &syncBuffer{},
	}
	logger := slog.New(slog.NewTextHandler(f.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	base := []Option{WithScheduler(f.clock), WithLogger(logger)}
	v, err := New(w, element("map"), f.scope, binding.NewTemplateRenderer(nil), append(base, opts...)...)
	require.NoError(t, err)
	f.view = v
	return f
}

func (f *fixture) marker(t *testing.T, lat, lng float64, opts ...func(*MarkerOptions)) *Marker {
	t.Helper()
	p := core.NewPoint(lat, lng)
	mo := MarkerOptions{Position: &p}
	for _, o := range opts {
		o(&mo)
	}
	m, err := NewMarker(f.widget, mo)
	require.NoError(t, err)
	return m
}

func onMap(v *MapView) func(*MarkerOptions) {
	return func(o *MarkerOptions) { o.Map = v }
}

func withLabel(label string) func(*MarkerOptions) {
	return func(o *MarkerOptions) { o.Label = label }
}

func withData(data any) func(*MarkerOptions) {
	return func(o *MarkerOptions) { o.Data = data }
}
