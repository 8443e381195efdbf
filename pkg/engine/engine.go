package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/srodi/faultstat/pkg/collector/memory"
	"github.com/srodi/faultstat/pkg/display"
	"github.com/srodi/faultstat/pkg/metrics"
	"github.com/srodi/faultstat/pkg/pool"
	"github.com/srodi/faultstat/pkg/report"
	"github.com/srodi/faultstat/pkg/types"
)

// ErrInterrupted is returned when the inter-tick wait ends for a reason
// other than a stop signal, a resize or its deadline.
var ErrInterrupted = errors.New("wait interrupted")

// now allows tests to control the clock used for tick deadlines.
var now = time.Now

const preamble = "Change in page faults (average per second):\n"

// Sampler produces one SampleSet per tick.
type Sampler interface {
	Prime() (types.SampleSet, error)
	ScanAll(dst types.SampleSet) (types.SampleSet, error)
	Pool() *pool.Pool
	SwapUsage() (used, total uint64, err error)
}

// Tracer counts fault events between ticks.
type Tracer interface {
	Snapshot(limit int) (memory.Summary, error)
	Reset() error
	Close() error
}

// Options configures an Engine.
type Options struct {
	Interval time.Duration
	// Ticks bounds the number of ticks; 0 runs until stopped.
	Ticks  int
	Sort   types.SortKey
	Arrows bool
	// Totals shows every process instead of only those that changed.
	Totals bool
	JSON   bool
	// StatusLine adds a summary row above the table.
	StatusLine bool
	PIDWidth   int

	// Display receives human-readable output. Out receives JSON, and
	// backs the plain display used when Display cannot be set up.
	Display display.Display
	Out     io.Writer

	// Keys polls for one keystroke; nil disables keyboard control.
	Keys    func() (byte, bool)
	Metrics *metrics.Recorder
	Tracer  Tracer
}

// Engine runs the sampling loop.
type Engine struct {
	opts    Options
	sampler Sampler
	display display.Display
	builder report.Builder
	dumper  report.Dumper

	stop   atomic.Bool
	resize atomic.Bool
	wake   chan struct{}

	spare  types.SampleSet
	traced memory.Summary
}

// New returns an Engine drawing samples from s.
func New(s Sampler, opts Options) *Engine {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Display == nil {
		opts.Display = display.NewPlain(opts.Out, int(os.Stdout.Fd()))
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	e := &Engine{
		opts:    opts,
		sampler: s,
		display: opts.Display,
		wake:    make(chan struct{}, 1),
	}
	e.dumper = report.Dumper{Display: opts.Display, PIDWidth: opts.PIDWidth, Arrows: opts.Arrows}
	return e
}

// Stop asks the loop to finish the current tick and return.
func (e *Engine) Stop() {
	e.stop.Store(true)
	e.notify()
}

func (e *Engine) notify() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// Snapshot prints one table of cumulative counters without waiting.
func (e *Engine) Snapshot() error {
	cur, err := e.sampler.ScanAll(nil)
	if err != nil {
		return err
	}
	e.display.Resize(true)
	e.dumper.Snapshot(e.builder.Build(nil, cur, e.opts.Sort, report.ModeFull))
	e.display.Refresh()
	e.sampler.Pool().ReleaseAll(cur)
	return nil
}

// Run samples every interval until the tick budget is spent, a stop signal
// or quit key arrives, or ctx is cancelled. The display is torn down before
// Run returns.
func (e *Engine) Run(ctx context.Context) (err error) {
	prev, err := e.sampler.Prime()
	if err != nil {
		return err
	}
	defer func() { e.sampler.Pool().ReleaseAll(prev) }()

	done := make(chan struct{})
	defer close(done)
	e.watchSignals(done)

	if err := e.setupDisplay(); err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, e.display.Teardown())
	}()
	if _, plain := e.display.(*display.Plain); plain && !e.opts.JSON {
		e.display.Printf("%s", preamble)
	}
	e.display.Resize(true)

	start := now()
	var n int64 = 1
	for tick := 0; !e.stop.Load() && (e.opts.Ticks == 0 || tick < e.opts.Ticks); tick++ {
		e.display.Clear()

		var wait time.Duration
		wait, n = nextWait(start, now(), n, e.opts.Interval)
		if err := e.wait(ctx, wait); err != nil {
			return err
		}
		e.pollKey()

		began := now()
		cur, err := e.sampler.ScanAll(e.spare)
		if err != nil {
			return err
		}
		e.traceTick()
		e.display.Resize(false)
		t, err := e.render(prev, cur)
		if err != nil {
			return err
		}
		e.display.Refresh()
		e.record(t, now().Sub(began))

		e.sampler.Pool().ReleaseAll(prev)
		e.spare = prev[:0]
		prev = cur
	}
	return nil
}

func (e *Engine) setupDisplay() error {
	err := e.display.Setup()
	if err == nil {
		return nil
	}
	if !errors.Is(err, display.ErrNotTerminal) {
		return fmt.Errorf("setting up display: %w", err)
	}
	logrus.WithError(err).Warn("falling back to plain output")
	e.display = display.NewPlain(e.opts.Out, -1)
	e.dumper.Display = e.display
	e.opts.StatusLine = false
	return nil
}

// watchSignals turns stop and resize signals into flags until done closes.
func (e *Engine) watchSignals(done <-chan struct{}) {
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, stopSignals...)
	winch := make(chan os.Signal, 1)
	if len(resizeSignals) > 0 {
		signal.Notify(winch, resizeSignals...)
	}
	go func() {
		defer signal.Stop(stopCh)
		defer signal.Stop(winch)
		for {
			select {
			case sig := <-stopCh:
				logrus.WithField("signal", sig).Debug("stop requested")
				e.Stop()
			case <-winch:
				e.resize.Store(true)
				e.notify()
			case <-done:
				return
			}
		}
	}()
}

// wait sleeps for d. A resize re-reads the terminal size and keeps waiting
// for the remaining time; a stop request ends the wait early.
func (e *Engine) wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
			return nil
		case <-e.wake:
			if e.resize.Swap(false) {
				e.display.Resize(true)
			}
			if e.stop.Load() {
				return nil
			}
		case <-ctx.Done():
			if e.stop.Load() {
				return nil
			}
			logrus.WithError(ctx.Err()).Error("wait between ticks interrupted")
			return fmt.Errorf("%w: %v", ErrInterrupted, ctx.Err())
		}
	}
}

// nextWait returns the time left until deadline n, measured from start so
// that ticks do not drift, and the deadline index to use next time. When
// the deadline has already passed it skips ahead to the next one, adding a
// full interval if less than half of one would remain.
func nextWait(start, at time.Time, n int64, interval time.Duration) (time.Duration, int64) {
	wait := start.Add(time.Duration(n) * interval).Sub(at)
	if wait >= 0 {
		return wait, n + 1
	}
	n = int64(math.Ceil(float64(at.Sub(start)) / float64(interval)))
	wait = start.Add(time.Duration(n) * interval).Sub(at)
	if wait < interval/2 {
		wait += interval
		n++
	}
	return wait, n + 1
}

func (e *Engine) pollKey() {
	if e.opts.Keys == nil {
		return
	}
	if key, ok := e.opts.Keys(); ok {
		e.handleKey(key)
	}
}

func (e *Engine) handleKey(key byte) {
	switch key {
	case 'q', 'Q', 27:
		e.stop.Store(true)
	case 'a':
		e.opts.Arrows = !e.opts.Arrows
		e.dumper.Arrows = e.opts.Arrows
	case 't':
		e.opts.Totals = !e.opts.Totals
	case 's':
		e.opts.Sort = e.opts.Sort.Next()
	}
}

func (e *Engine) render(prev, cur types.SampleSet) (report.Tick, error) {
	if e.opts.JSON {
		t := e.builder.Build(prev, cur, e.opts.Sort, report.ModeJSON)
		return t, report.WriteJSON(e.opts.Out, t, now())
	}
	mode := report.ModeDiff
	if e.opts.Totals {
		mode = report.ModeFull
	}
	t := e.builder.Build(prev, cur, e.opts.Sort, mode)
	if e.opts.StatusLine {
		e.statusLine(t)
	}
	e.dumper.Changes(t, e.opts.Sort)
	return t, nil
}

func (e *Engine) statusLine(t report.Tick) {
	view := "changes"
	if e.opts.Totals {
		view = "totals"
	}
	line := fmt.Sprintf(" every %s  sort %s  view %s  processes %s",
		e.opts.Interval, e.opts.Sort, view, humanize.Comma(int64(t.Sampled)))
	if used, total, err := e.sampler.SwapUsage(); err == nil && total > 0 {
		line += fmt.Sprintf("  swap %s/%s", humanize.IBytes(used), humanize.IBytes(total))
	}
	if e.opts.Tracer != nil {
		line += fmt.Sprintf("  traced %s", humanize.Comma(int64(e.traced.Total)))
		if len(e.traced.Top) > 0 {
			top := e.traced.Top[0]
			line += fmt.Sprintf(" (top %d %s %s)", top.PID, types.Printable(top.Comm), humanize.Comma(int64(top.Faults)))
		}
	}
	if hot := report.Hottest(t.Rows); hot != nil {
		line += fmt.Sprintf("  hottest %d %s (+%s)", hot.PID, hot.Command(), humanize.Comma(hot.Delta()))
	}
	e.display.SetAttr(display.AttrReverse)
	e.display.Printf("%s", line)
	e.display.SetAttr(display.AttrNormal)
	e.display.Printf("\n")
}

func (e *Engine) traceTick() {
	e.traced = memory.Summary{}
	if e.opts.Tracer == nil {
		return
	}
	sum, err := e.opts.Tracer.Snapshot(1)
	if err != nil {
		logrus.WithError(err).Warn("reading traced faults")
		return
	}
	e.traced = sum
	if err := e.opts.Tracer.Reset(); err != nil {
		logrus.WithError(err).Warn("resetting traced faults")
	}
}

func (e *Engine) record(t report.Tick, took time.Duration) {
	if e.opts.Metrics == nil {
		return
	}
	st := e.sampler.Pool().Stats()
	e.opts.Metrics.Observe(metrics.TickStats{
		Sampled:    t.Sampled,
		Died:       t.Died,
		Major:      t.Totals.Major,
		Minor:      t.Totals.Minor,
		DeltaMajor: t.Totals.DeltaMajor,
		DeltaMinor: t.Totals.DeltaMinor,
		SwapKB:     t.Totals.Swap,
		PoolSize:   st.Size,
		PoolFree:   st.Free,
		PoolFresh:  st.Fresh,
		Traced:     e.traced.Total,
		Duration:   took,
	})
	if err := e.opts.Metrics.Flush(); err != nil {
		logrus.WithError(err).Warn("flushing metrics")
	}
}
