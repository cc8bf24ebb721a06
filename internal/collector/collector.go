// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package collector

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/tomtom215/sitelens/internal/clientstate"
	"github.com/tomtom215/sitelens/internal/logging"
	"github.com/tomtom215/sitelens/internal/models"
)

// ErrAlreadyStarted is returned when Start is called twice.
var ErrAlreadyStarted = errors.New("collector already started")

// Config configures a Collector for one page load.
type Config struct {
	Page     string // path of the page being observed
	Referrer string
	Client   string // user agent

	RingCapacity int           // pointer samples kept
	ScrollStep   int           // scroll threshold step, in percent
	SettleDelay  time.Duration // quiet period before the settle emission
	TickInterval time.Duration
	TickEvery    int // time_on_page fires every TickEvery seconds
	TextLimit    int // runes kept from click text and copy samples
}

// DefaultConfig returns the standard collector settings for page.
func DefaultConfig(page string) Config {
	return Config{
		Page:         page,
		RingCapacity: 100,
		ScrollStep:   10,
		SettleDelay:  500 * time.Millisecond,
		TickInterval: time.Second,
		TickEvery:    30,
		TextLimit:    100,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig(c.Page)
	if c.Page == "" {
		c.Page = "/"
	}
	if c.RingCapacity <= 0 {
		c.RingCapacity = d.RingCapacity
	}
	if c.ScrollStep <= 0 || c.ScrollStep > 100 {
		c.ScrollStep = d.ScrollStep
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = d.SettleDelay
	}
	if c.TickInterval <= 0 {
		c.TickInterval = d.TickInterval
	}
	if c.TickEvery <= 0 {
		c.TickEvery = d.TickEvery
	}
	if c.TextLimit <= 0 {
		c.TextLimit = d.TextLimit
	}
	return c
}

type pointerSample struct {
	X, Y int
	At   time.Time
}

// Collector observes one page load and turns UI events into telemetry.
type Collector struct {
	cfg   Config
	sink  Sink
	clock Clock

	mu         sync.Mutex
	ctx        context.Context
	state      clientstate.State
	dispatcher *Dispatcher
	subs       []*Subscription
	started    bool
	done       bool
	start      time.Time

	ticks       int
	tickTimer   Timer
	settleTimer Timer

	maxDepth     int // highest threshold crossed
	emittedDepth int // highest threshold emitted

	// token is the visitor's fingerprint, kept while analytics consent holds.
	token string

	clicks int
	moves  *Ring[pointerSample]
}

// New returns a Collector for a page load by the visitor described by state.
// A nil clock uses the system clock.
func New(cfg Config, state clientstate.State, sink Sink, clock Clock) *Collector {
	if clock == nil {
		clock = SystemClock{}
	}
	cfg = cfg.withDefaults()
	return &Collector{
		cfg:   cfg,
		sink:  sink,
		clock: clock,
		state: state,
		token: state.Fingerprint,
		moves: NewRing[pointerSample](cfg.RingCapacity),
	}
}

// Start registers the collector's subscriptions on d, emits the page view
// and starts the time-on-page tick.
func (c *Collector) Start(ctx context.Context, d *Dispatcher) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.ctx = ctx
	c.dispatcher = d
	c.start = c.clock.Now()

	c.subs = []*Subscription{
		{Type: Scroll, Handler: c.onScroll},
		{Type: PointerMove, Handler: c.onPointerMove},
		{Type: Click, Handler: c.onClick},
		{Type: Copy, Handler: c.onCopy},
		{Type: Focus, Handler: c.onForm(models.FormFocus)},
		{Type: Blur, Handler: c.onForm(models.FormBlur)},
		{Type: Change, Handler: c.onForm(models.FormChange)},
		{Type: Unload, Handler: func(DOMEvent) { c.Teardown() }},
	}
	for _, s := range c.subs {
		d.Subscribe(s)
	}

	pending := c.collectLocked(nil, c.newEventLocked(models.EventPageView))
	c.scheduleTickLocked()
	c.mu.Unlock()

	c.send(pending)
	return nil
}

// Teardown emits the page-exit summary, stops all timers and removes every
// subscription. Calls after the first are no-ops.
func (c *Collector) Teardown() {
	c.mu.Lock()
	if !c.started || c.done {
		c.mu.Unlock()
		return
	}
	c.done = true

	exit := c.newEventLocked(models.EventPageExit)
	exit.Exit = &models.ExitPayload{
		ElapsedMs:      c.clock.Now().Sub(c.start).Milliseconds(),
		MaxScrollDepth: c.maxDepth,
		ClickCount:     c.clicks,
		Movement:       ClassifyMovement(c.moves.Len()),
		Samples:        c.moves.Len(),
	}
	pending := c.collectLocked(nil, exit)

	if c.tickTimer != nil {
		c.tickTimer.Stop()
		c.tickTimer = nil
	}
	if c.settleTimer != nil {
		c.settleTimer.Stop()
		c.settleTimer = nil
	}
	subs := c.subs
	c.subs = nil
	d := c.dispatcher
	c.mu.Unlock()

	for _, s := range subs {
		d.Unsubscribe(s)
	}
	c.send(pending)

	logging.Debug().
		Str("page", c.cfg.Page).
		Int("clicks", exit.Exit.ClickCount).
		Int("max_scroll_depth", exit.Exit.MaxScrollDepth).
		Msg("Page load collector torn down")
}

// SetConsent applies a consent change for the rest of the page load.
// Withdrawing analytics consent stops all further emission and forgets the
// fingerprint. Granting it resumes emission with token, or with the
// fingerprint already held when token is empty.
func (c *Collector) SetConsent(consent clientstate.Consent, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = clientstate.WithConsent(c.state, consent)
	if !consent.Analytics {
		c.token = ""
		return
	}
	if token != "" {
		c.token = token
	}
	c.state = clientstate.WithFingerprint(c.state, c.token)
}

// Samples returns the number of retained pointer samples.
func (c *Collector) Samples() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.moves.Len()
}

// ClassifyMovement maps a pointer sample count to a density class.
func ClassifyMovement(samples int) models.MovementClass {
	switch {
	case samples < 20:
		return models.MovementMinimal
	case samples < 60:
		return models.MovementModerate
	default:
		return models.MovementExtensive
	}
}

// ScrollDepth returns the scrolled percentage of the page, clamped to [0,100].
// A page that does not scroll counts as fully read.
func ScrollDepth(scrollTop, scrollHeight, viewportHeight float64) int {
	scrollable := scrollHeight - viewportHeight
	if scrollable <= 0 {
		return 100
	}
	depth := int(math.Floor(scrollTop / scrollable * 100))
	switch {
	case depth < 0:
		return 0
	case depth > 100:
		return 100
	}
	return depth
}

func (c *Collector) onScroll(ev DOMEvent) {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return
	}
	depth := ScrollDepth(ev.ScrollTop, ev.ScrollHeight, ev.ViewportHeight)
	threshold := depth / c.cfg.ScrollStep * c.cfg.ScrollStep
	if threshold > c.maxDepth {
		c.maxDepth = threshold
	}

	// Every crossing is reported as it happens; a fast scroll that skips
	// several thresholds in one event reports only the highest.
	pending := c.scrollLocked(false)

	if c.settleTimer != nil {
		c.settleTimer.Stop()
	}
	c.settleTimer = c.clock.AfterFunc(c.cfg.SettleDelay, c.onSettle)
	c.mu.Unlock()

	c.send(pending)
}

func (c *Collector) onSettle() {
	c.mu.Lock()
	c.settleTimer = nil
	if c.done {
		c.mu.Unlock()
		return
	}
	pending := c.scrollLocked(true)
	c.mu.Unlock()

	c.send(pending)
}

// scrollLocked reports the maximum depth if it has not been reported yet.
// A depth reached while emission is suppressed stays unreported, so the
// settle emission can still deliver it once consent is granted.
func (c *Collector) scrollLocked(settled bool) []models.Event {
	if c.maxDepth <= c.emittedDepth {
		return nil
	}
	ev := c.newEventLocked(models.EventScrollDepth)
	ev.Scroll = &models.ScrollPayload{Depth: c.maxDepth, Settled: settled}
	pending := c.collectLocked(nil, ev)
	if len(pending) > 0 {
		c.emittedDepth = c.maxDepth
	}
	return pending
}

func (c *Collector) onPointerMove(ev DOMEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return
	}
	c.moves.Push(pointerSample{X: ev.X, Y: ev.Y, At: c.clock.Now()})
}

func (c *Collector) onClick(ev DOMEvent) {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return
	}
	c.clicks++
	out := c.newEventLocked(models.EventClick)
	out.Click = &models.ClickPayload{
		Tag:   ev.Target.Tag,
		ID:    ev.Target.ID,
		Class: ev.Target.Class,
		Text:  truncateRunes(ev.Target.Text, c.cfg.TextLimit),
		X:     ev.X,
		Y:     ev.Y,
	}
	pending := c.collectLocked(nil, out)
	c.mu.Unlock()

	c.send(pending)
}

func (c *Collector) onCopy(ev DOMEvent) {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return
	}
	out := c.newEventLocked(models.EventCopy)
	out.Copy = &models.CopyPayload{
		Length: utf8.RuneCountInString(ev.Selection),
		Sample: truncateRunes(ev.Selection, c.cfg.TextLimit),
	}
	pending := c.collectLocked(nil, out)
	c.mu.Unlock()

	c.send(pending)
}

func (c *Collector) onForm(kind models.FormInteraction) Handler {
	return func(ev DOMEvent) {
		c.mu.Lock()
		if c.done {
			c.mu.Unlock()
			return
		}
		out := c.newEventLocked(models.EventFormInteraction)
		out.Form = &models.FormPayload{
			FieldType: ev.Target.FieldType,
			FieldName: ev.Target.FieldName,
			Kind:      kind,
		}
		pending := c.collectLocked(nil, out)
		c.mu.Unlock()

		c.send(pending)
	}
}

// scheduleTickLocked arms the next tick against the page start so that
// callback latency does not accumulate.
func (c *Collector) scheduleTickLocked() {
	next := c.start.Add(time.Duration(c.ticks+1) * c.cfg.TickInterval)
	c.tickTimer = c.clock.AfterFunc(next.Sub(c.clock.Now()), c.onTick)
}

func (c *Collector) onTick() {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return
	}
	c.ticks++
	elapsed := int(c.clock.Now().Sub(c.start) / time.Second)

	var pending []models.Event
	if elapsed > 0 && elapsed%c.cfg.TickEvery == 0 {
		out := c.newEventLocked(models.EventTimeOnPage)
		out.Tick = &models.TickPayload{ElapsedSeconds: elapsed}
		pending = c.collectLocked(pending, out)
	}
	c.scheduleTickLocked()
	c.mu.Unlock()

	c.send(pending)
}

func (c *Collector) newEventLocked(t models.EventType) models.Event {
	return models.Event{
		ID:          uuid.NewString(),
		Type:        t,
		SessionID:   c.state.SessionID,
		Fingerprint: c.state.Fingerprint,
		Page:        c.cfg.Page,
		Timestamp:   c.clock.Now().UTC(),
		Referrer:    c.cfg.Referrer,
		Client:      c.cfg.Client,
	}
}

// collectLocked appends ev to pending when the visitor allows analytics.
// Events without a fingerprint cannot be attributed and are dropped too.
func (c *Collector) collectLocked(pending []models.Event, ev models.Event) []models.Event {
	if !clientstate.AnalyticsAllowed(c.state) || c.state.Fingerprint == "" {
		return pending
	}
	return append(pending, ev)
}

func (c *Collector) send(pending []models.Event) {
	if c.sink == nil {
		return
	}
	ctx := c.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	for _, ev := range pending {
		c.sink.Send(ctx, ev)
	}
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit])
}
