package presence

import (
	"sync"
	"time"
)

// Rect is the vertical extent of an element in viewport coordinates.
type Rect struct {
	Top    float64
	Bottom float64
}

func (r Rect) mid() float64 { return (r.Top + r.Bottom) / 2 }

// MeasureFunc returns the current geometry of an element. It may fail when
// the element is not laid out yet; the tracker skips that element for the
// tick and retries on the next scroll or resize.
type MeasureFunc func() (Rect, error)

// Report is an outgoing "I am viewing this message" signal.
type Report struct {
	MessageID    string
	MessageIndex int
}

// ReportFunc receives settled reports from the tracker.
type ReportFunc func(Report)

type trackedElement struct {
	id      string
	index   int
	measure MeasureFunc
}

// Tracker determines which message is centered in the scrollable message
// list and reports it without flooding the transport.
//
// Rapid scroll bursts are debounced: a report is emitted once scrolling
// settles for SettleDelay, or once ThrottleInterval has elapsed since the
// burst began, whichever comes first. An unchanged position is re-reported
// at most once per ThrottleInterval. Explicit selection bypasses both.
type Tracker struct {
	mu       sync.Mutex
	viewport MeasureFunc
	elements map[string]*trackedElement

	throttle clockedThrottle

	report ReportFunc
	sched  Scheduler
	logger Logger
	closed bool

	// current is the message presently judged in view, "" when none.
	current      string
	currentIndex int
}

// clockedThrottle holds the report rate-limiting state.
type clockedThrottle struct {
	cfg          Config
	clock        Clock
	lastReported string
	lastReportAt time.Time
	pending      bool
	pendingID    string
	pendingIndex int
	burstStart   time.Time
}

// NewTracker creates a tracker for one conversation view. viewport measures
// the scroll container; report receives settled positions.
func NewTracker(cfg Config, viewport MeasureFunc, report ReportFunc) *Tracker {
	return &Tracker{
		viewport: viewport,
		elements: make(map[string]*trackedElement),
		throttle: clockedThrottle{cfg: cfg, clock: systemClock{}},
		report:   report,
		sched:    newTimerScheduler(),
		logger:   noopLogger{},
	}
}

// SetLogger overrides logger (optional).
func (t *Tracker) SetLogger(l Logger) {
	if l == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.logger = l
}

// Register associates a rendered message with the tracker. Re-registering an
// id replaces the prior association.
func (t *Tracker) Register(messageID string, index int, measure MeasureFunc) {
	if messageID == "" || measure == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.elements[messageID] = &trackedElement{id: messageID, index: index, measure: measure}
}

// Deregister removes a message on unmount.
func (t *Tracker) Deregister(messageID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.elements, messageID)
	if t.current == messageID {
		t.current = ""
		t.currentIndex = 0
	}
	if t.throttle.pending && t.throttle.pendingID == messageID {
		// The settle timer must not report a message that no longer exists.
		t.throttle.pending = false
		t.sched.Cancel()
	}
}

// Current returns the message presently judged in view, or false when the
// list is empty or nothing has been measured yet.
func (t *Tracker) Current() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current, t.current != ""
}

// OnScroll recomputes the viewed message after a scroll event.
func (t *Tracker) OnScroll() { t.recompute() }

// OnResize recomputes the viewed message after a resize event.
func (t *Tracker) OnResize() { t.recompute() }

// Select immediately reports a message chosen by explicit click/tap,
// bypassing the throttle. Unregistered ids are ignored.
func (t *Tracker) Select(messageID string) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	el, ok := t.elements[messageID]
	if !ok {
		t.mu.Unlock()
		return
	}
	t.current = el.id
	t.currentIndex = el.index
	t.throttle.pending = false
	t.sched.Cancel()
	rep, fn := t.emitLocked(el.id, el.index)
	t.mu.Unlock()
	if fn != nil {
		fn(rep)
	}
}

// Close cancels any pending report and drops all registered elements. No
// callback fires after Close returns.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	t.sched.Cancel()
	t.elements = make(map[string]*trackedElement)
	t.current = ""
	t.currentIndex = 0
}

func (t *Tracker) recompute() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	if len(t.elements) == 0 {
		t.current = ""
		t.currentIndex = 0
		t.throttle.pending = false
		t.sched.Cancel()
		t.mu.Unlock()
		return
	}

	vp, err := t.viewport()
	if err != nil {
		// Viewport not measurable this tick; retry on the next event.
		t.logger.Debug("viewport measure failed", map[string]any{"error": err.Error()})
		t.mu.Unlock()
		return
	}
	center := vp.mid()

	var (
		best     *trackedElement
		bestDist float64
	)
	for _, el := range t.elements {
		rect, err := el.measure()
		if err != nil {
			continue
		}
		dist := rect.mid() - center
		if dist < 0 {
			dist = -dist
		}
		switch {
		case best == nil, dist < bestDist:
			best, bestDist = el, dist
		case dist == bestDist && el.index < best.index:
			// Tie: the earlier message wins.
			best = el
		}
	}
	if best == nil {
		t.mu.Unlock()
		return
	}

	t.current = best.id
	t.currentIndex = best.index
	rep, fn := t.scheduleLocked(best.id, best.index)
	t.mu.Unlock()
	if fn != nil {
		fn(rep)
	}
}

// scheduleLocked decides whether the newly computed position is reported now,
// deferred behind the settle timer, or suppressed. Returns a non-nil callback
// when a report must fire immediately (invoked by the caller after unlock).
func (t *Tracker) scheduleLocked(id string, index int) (Report, ReportFunc) {
	th := &t.throttle
	now := th.clock.Now()

	if id == th.lastReported {
		// Scrolled back to the reported position: drop any pending change.
		if th.pending {
			th.pending = false
			t.sched.Cancel()
		}
		if now.Sub(th.lastReportAt) >= th.cfg.ThrottleInterval {
			return t.emitLocked(id, index)
		}
		return Report{}, nil
	}

	if !th.pending {
		th.burstStart = now
	}
	th.pending = true
	th.pendingID = id
	th.pendingIndex = index

	delay := th.cfg.SettleDelay
	if deadline := th.burstStart.Add(th.cfg.ThrottleInterval); now.Add(delay).After(deadline) {
		delay = deadline.Sub(now)
		if delay < 0 {
			delay = 0
		}
	}
	t.sched.Schedule(delay, t.flush)
	return Report{}, nil
}

// flush fires when a scroll burst settles or the throttle window elapses.
func (t *Tracker) flush() {
	t.mu.Lock()
	if t.closed || !t.throttle.pending {
		t.mu.Unlock()
		return
	}
	t.throttle.pending = false
	rep, fn := t.emitLocked(t.throttle.pendingID, t.throttle.pendingIndex)
	t.mu.Unlock()
	if fn != nil {
		fn(rep)
	}
}

func (t *Tracker) emitLocked(id string, index int) (Report, ReportFunc) {
	t.throttle.lastReported = id
	t.throttle.lastReportAt = t.throttle.clock.Now()
	if t.report == nil {
		return Report{}, nil
	}
	return Report{MessageID: id, MessageIndex: index}, t.report
}
