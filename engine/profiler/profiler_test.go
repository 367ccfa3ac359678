package profiler

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestTickReportsOncePerInterval(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	var buf bytes.Buffer
	p := NewProfiler(
		WithClock(clock.now),
		WithUpdateInterval(time.Second),
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
	)

	for range 24 {
		clock.advance(40 * time.Millisecond)
		assert.False(t, p.Tick())
	}
	assert.Zero(t, p.FPS())
	assert.Empty(t, buf.String())

	clock.advance(40 * time.Millisecond)
	require.True(t, p.Tick())
	assert.InDelta(t, 25, p.FPS(), 0.01)
	assert.Contains(t, buf.String(), "fps=")
	assert.Contains(t, buf.String(), "heap_mb=")

	// The counter restarts after a report.
	clock.advance(time.Second / 2)
	assert.False(t, p.Tick())
}

func TestUpdateIntervalIgnoresNonPositive(t *testing.T) {
	p := NewProfiler(WithUpdateInterval(0))
	assert.Equal(t, time.Second, p.updateInterval)

	p = NewProfiler(WithUpdateInterval(250 * time.Millisecond))
	assert.Equal(t, 250*time.Millisecond, p.updateInterval)
}
