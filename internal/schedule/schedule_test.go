package schedule

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestManual_FiresInDeadlineOrder(t *testing.T) {
	m := NewManual(epoch)
	var order []string

	m.AfterFunc(30*time.Millisecond, func() { order = append(order, "c") })
	m.AfterFunc(10*time.Millisecond, func() { order = append(order, "a") })
	m.AfterFunc(10*time.Millisecond, func() { order = append(order, "b") })

	assert.Equal(t, 0, m.Advance(5*time.Millisecond))
	assert.Equal(t, 2, m.Advance(10*time.Millisecond))
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, 1, m.Pending())

	m.Advance(time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, epoch.Add(15*time.Millisecond+time.Second), m.Now())
}

func TestManual_Stop(t *testing.T) {
	m := NewManual(epoch)
	fired := false
	timer := m.AfterFunc(time.Millisecond, func() { fired = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())
	m.Advance(time.Second)
	assert.False(t, fired)
	assert.Equal(t, 0, m.Pending())
}

func TestManual_CallbackSchedulesInsideWindow(t *testing.T) {
	m := NewManual(epoch)
	count := 0
	m.AfterFunc(10*time.Millisecond, func() {
		count++
		m.AfterFunc(10*time.Millisecond, func() { count++ })
	})

	assert.Equal(t, 2, m.Advance(25*time.Millisecond))
	assert.Equal(t, 2, count)
}

func TestDebounce_Trailing(t *testing.T) {
	m := NewManual(epoch)
	calls := 0
	d := Debounce(m, 150*time.Millisecond, false, func() { calls++ })

	d()
	m.Advance(100 * time.Millisecond)
	d()
	m.Advance(100 * time.Millisecond)
	d()
	assert.Equal(t, 0, calls, "no call while triggers keep arriving")

	m.Advance(149 * time.Millisecond)
	assert.Equal(t, 0, calls)
	m.Advance(time.Millisecond)
	assert.Equal(t, 1, calls)

	m.Advance(time.Second)
	assert.Equal(t, 1, calls)
}

func TestDebounce_Immediate(t *testing.T) {
	m := NewManual(epoch)
	calls := 0
	d := Debounce(m, 150*time.Millisecond, true, func() { calls++ })

	d()
	assert.Equal(t, 1, calls, "leading call fires synchronously")
	d()
	d()
	m.Advance(time.Second)
	assert.Equal(t, 1, calls, "trailing call is suppressed")

	d()
	assert.Equal(t, 2, calls, "new quiet period fires again")
}

func TestLoop_RunPendingOrder(t *testing.T) {
	l := NewLoop()
	var order []int
	l.Post(func() {
		order = append(order, 1)
		l.Post(func() { order = append(order, 3) })
	})
	l.Post(func() { order = append(order, 2) })

	assert.Equal(t, 2, l.Len())
	assert.Equal(t, 3, l.RunPending())
	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Equal(t, 0, l.Len())
}

func TestLoop_RunUntilCancel(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	l.AfterFunc(time.Millisecond, func() {
		wg.Done()
	})

	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()

	wg.Wait()
	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)
}

func TestLoop_Close(t *testing.T) {
	l := NewLoop()
	l.Post(func() {})
	l.Close()

	assert.False(t, l.Post(func() {}))
	assert.Equal(t, 0, l.Len())
	assert.ErrorIs(t, l.Run(context.Background()), ErrLoopClosed)
}

func TestDebounce_ThroughLoop(t *testing.T) {
	l := NewLoop()
	done := make(chan struct{})
	d := Debounce(l, 5*time.Millisecond, false, func() { close(done) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Run(ctx) }()

	d()
	d()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced call did not fire")
	}
}
