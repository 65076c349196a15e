package presence

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeScheduler struct {
	mu        sync.Mutex
	fn        func()
	scheduled int
	cancelled int
}

func (s *fakeScheduler) Schedule(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fn = fn
	s.scheduled++
}

func (s *fakeScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fn = nil
	s.cancelled++
}

func (s *fakeScheduler) fire() {
	s.mu.Lock()
	fn := s.fn
	s.fn = nil
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (s *fakeScheduler) pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fn != nil
}

// trackerFixture models a vertically scrollable list of fixed-height
// messages inside a fixed viewport.
type trackerFixture struct {
	tracker *Tracker
	clock   *fakeClock
	sched   *fakeScheduler
	reports []Report
	offset  float64 // scroll offset in px
}

const (
	fixtureViewportHeight = 600
	fixtureMessageHeight  = 100
)

func newTrackerFixture(t *testing.T, messageCount int) *trackerFixture {
	t.Helper()
	f := &trackerFixture{
		clock: &fakeClock{now: time.Unix(1000, 0)},
		sched: &fakeScheduler{},
	}

	cfg := DefaultConfig()
	cfg.ThrottleInterval = time.Second
	cfg.SettleDelay = 200 * time.Millisecond

	viewport := func() (Rect, error) {
		return Rect{Top: 0, Bottom: fixtureViewportHeight}, nil
	}
	f.tracker = NewTracker(cfg, viewport, func(rep Report) {
		f.reports = append(f.reports, rep)
	})
	f.tracker.throttle.clock = f.clock
	f.tracker.sched = f.sched

	for i := 0; i < messageCount; i++ {
		f.register(i)
	}
	return f
}

func (f *trackerFixture) register(i int) {
	id := msgID(i)
	f.tracker.Register(id, i, func() (Rect, error) {
		top := float64(i*fixtureMessageHeight) - f.offset
		return Rect{Top: top, Bottom: top + fixtureMessageHeight}, nil
	})
}

// scrollTo positions message i's midpoint at the viewport center.
func (f *trackerFixture) scrollTo(i int) {
	f.offset = float64(i*fixtureMessageHeight) + fixtureMessageHeight/2 - fixtureViewportHeight/2
	f.tracker.OnScroll()
}

func msgID(i int) string {
	return "m" + string(rune('0'+i))
}

func TestTrackerReportsCenteredMessage(t *testing.T) {
	f := newTrackerFixture(t, 8)

	f.scrollTo(5)
	require.Empty(t, f.reports, "report must wait for the settle timer")

	cur, ok := f.tracker.Current()
	require.True(t, ok)
	assert.Equal(t, msgID(5), cur)

	f.sched.fire()
	require.Len(t, f.reports, 1)
	assert.Equal(t, msgID(5), f.reports[0].MessageID)
	assert.Equal(t, 5, f.reports[0].MessageIndex)
}

func TestTrackerTieBreaksOnSmallerIndex(t *testing.T) {
	reports := []Report{}
	cfg := DefaultConfig()
	viewport := func() (Rect, error) { return Rect{Top: 0, Bottom: 100}, nil }
	tr := NewTracker(cfg, viewport, func(rep Report) { reports = append(reports, rep) })
	sched := &fakeScheduler{}
	tr.sched = sched

	// Both midpoints are 30px from the viewport center.
	tr.Register("a", 0, func() (Rect, error) { return Rect{Top: 0, Bottom: 40}, nil })
	tr.Register("b", 1, func() (Rect, error) { return Rect{Top: 60, Bottom: 100}, nil })

	tr.OnScroll()
	cur, ok := tr.Current()
	require.True(t, ok)
	assert.Equal(t, "a", cur)
}

func TestTrackerThrottlesScrollBursts(t *testing.T) {
	f := newTrackerFixture(t, 8)

	// 50 scroll events within one throttle window.
	for i := 0; i < 50; i++ {
		f.scrollTo(i % 8)
		f.clock.advance(10 * time.Millisecond)
	}
	require.Empty(t, f.reports)

	f.sched.fire()
	require.Len(t, f.reports, 1, "exactly one report for the whole burst")
	assert.Equal(t, msgID(49%8), f.reports[0].MessageID, "the settled position wins")
}

func TestTrackerRefreshesUnchangedPositionAfterThrottle(t *testing.T) {
	f := newTrackerFixture(t, 8)

	f.scrollTo(3)
	f.sched.fire()
	require.Len(t, f.reports, 1)

	// Same position inside the throttle window: suppressed.
	f.scrollTo(3)
	require.Len(t, f.reports, 1)

	// Same position after the window: refreshed immediately.
	f.clock.advance(2 * time.Second)
	f.scrollTo(3)
	require.Len(t, f.reports, 2)
	assert.Equal(t, msgID(3), f.reports[1].MessageID)
}

func TestTrackerScrollBackCancelsPendingChange(t *testing.T) {
	f := newTrackerFixture(t, 8)

	f.scrollTo(2)
	f.sched.fire()
	require.Len(t, f.reports, 1)

	f.scrollTo(4)
	require.True(t, f.sched.pending())

	// Back at the already-reported position before the timer fires.
	f.scrollTo(2)
	assert.False(t, f.sched.pending())
	f.sched.fire()
	assert.Len(t, f.reports, 1)
}

func TestTrackerSelectBypassesThrottle(t *testing.T) {
	f := newTrackerFixture(t, 8)

	f.scrollTo(1)
	f.sched.fire()
	require.Len(t, f.reports, 1)

	// Explicit selection inside the throttle window reports immediately.
	f.tracker.Select(msgID(6))
	require.Len(t, f.reports, 2)
	assert.Equal(t, msgID(6), f.reports[1].MessageID)
	assert.Equal(t, 6, f.reports[1].MessageIndex)

	cur, ok := f.tracker.Current()
	require.True(t, ok)
	assert.Equal(t, msgID(6), cur)
}

func TestTrackerSelectUnknownMessageIgnored(t *testing.T) {
	f := newTrackerFixture(t, 2)
	f.tracker.Select("nope")
	assert.Empty(t, f.reports)
}

func TestTrackerEmptyList(t *testing.T) {
	f := newTrackerFixture(t, 0)

	f.tracker.OnScroll()
	_, ok := f.tracker.Current()
	assert.False(t, ok)
	assert.Empty(t, f.reports)
}

func TestTrackerMeasureFailureSkipsElement(t *testing.T) {
	reports := []Report{}
	cfg := DefaultConfig()
	viewport := func() (Rect, error) { return Rect{Top: 0, Bottom: 100}, nil }
	tr := NewTracker(cfg, viewport, func(rep Report) { reports = append(reports, rep) })
	sched := &fakeScheduler{}
	tr.sched = sched

	tr.Register("broken", 0, func() (Rect, error) { return Rect{}, errors.New("not laid out") })
	tr.Register("ok", 1, func() (Rect, error) { return Rect{Top: 40, Bottom: 60}, nil })

	tr.OnScroll()
	cur, ok := tr.Current()
	require.True(t, ok)
	assert.Equal(t, "ok", cur)
}

func TestTrackerViewportFailureSkipsTick(t *testing.T) {
	fail := true
	reports := []Report{}
	cfg := DefaultConfig()
	viewport := func() (Rect, error) {
		if fail {
			return Rect{}, errors.New("not laid out")
		}
		return Rect{Top: 0, Bottom: 100}, nil
	}
	tr := NewTracker(cfg, viewport, func(rep Report) { reports = append(reports, rep) })
	sched := &fakeScheduler{}
	tr.sched = sched
	tr.Register("m1", 0, func() (Rect, error) { return Rect{Top: 40, Bottom: 60}, nil })

	tr.OnScroll()
	_, ok := tr.Current()
	assert.False(t, ok)

	// Retried on the next event once layout succeeds.
	fail = false
	tr.OnScroll()
	cur, ok := tr.Current()
	require.True(t, ok)
	assert.Equal(t, "m1", cur)
}

func TestTrackerDeregisterCurrent(t *testing.T) {
	f := newTrackerFixture(t, 3)
	f.scrollTo(1)
	f.tracker.Deregister(msgID(1))
	_, ok := f.tracker.Current()
	assert.False(t, ok)
}

func TestTrackerDeregisterCancelsPendingReport(t *testing.T) {
	f := newTrackerFixture(t, 3)

	f.scrollTo(2)
	require.True(t, f.sched.pending())

	// Unmounted before the settle timer fires: its position must not leak out.
	f.tracker.Deregister(msgID(2))
	assert.False(t, f.sched.pending())
	f.sched.fire()
	f.tracker.flush()
	assert.Empty(t, f.reports)
}

func TestTrackerCloseCancelsPendingReport(t *testing.T) {
	f := newTrackerFixture(t, 3)

	f.scrollTo(2)
	require.True(t, f.sched.pending())

	f.tracker.Close()
	assert.GreaterOrEqual(t, f.sched.cancelled, 1)

	// A timer callback racing with teardown must not fire into a torn-down
	// scope.
	f.tracker.flush()
	assert.Empty(t, f.reports)

	f.tracker.OnScroll()
	_, ok := f.tracker.Current()
	assert.False(t, ok)
}
