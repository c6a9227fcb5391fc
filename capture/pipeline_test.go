package capture_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/rangeclip/capture"
	"github.com/user/rangeclip/capture/capturetest"
	"github.com/user/rangeclip/media"
	"github.com/user/rangeclip/media/mediatest"
	"github.com/user/rangeclip/selection"
)

type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) NewTicker(time.Duration) capture.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{c: make(chan time.Time, 1)}
	c.tickers = append(c.tickers, t)
	return t
}

// Advance moves time forward and fires every live ticker once.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	tickers := append([]*fakeTicker(nil), c.tickers...)
	c.mu.Unlock()
	for _, t := range tickers {
		if t.stopped.Load() {
			continue
		}
		select {
		case t.c <- now:
		default:
		}
	}
}

func (c *fakeClock) ticker(i int) *fakeTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i >= len(c.tickers) {
		return nil
	}
	return c.tickers[i]
}

type fakeTicker struct {
	c       chan time.Time
	stopped atomic.Bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.c }
func (t *fakeTicker) Stop()               { t.stopped.Store(true) }

type harness struct {
	src      *mediatest.Source
	rec      *capturetest.Recorder
	clk      *fakeClock
	pipeline *capture.Pipeline
	rng      selection.Range

	mu       sync.Mutex
	cleanups map[string]int
}

func newHarness(t *testing.T, recorder *capturetest.Recorder) *harness {
	t.Helper()
	h := &harness{
		src:      mediatest.New(100),
		rec:      recorder,
		clk:      newFakeClock(),
		rng:      selection.NewRange(100, selection.DefaultMaxSpan, selection.DefaultMinSpan).WithBounds(10, 40),
		cleanups: map[string]int{},
	}
	var rec capture.Recorder
	if recorder != nil {
		rec = recorder
	}
	h.pipeline = capture.New(capture.Options{
		Recorder:     rec,
		SeekTimeout:  50 * time.Millisecond,
		FlushTimeout: 200 * time.Millisecond,
		Clock:        h.clk,
		OnCleanup: func(id string) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.cleanups[id]++
		},
	})
	return h
}

func (h *harness) cleanupCount(id string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cleanups[id]
}

// waitRecording blocks until the job is in its recording loop.
func (h *harness) waitRecording(t *testing.T, n int) *capturetest.Recording {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(h.rec.Recordings()) >= n && h.clk.ticker(n-1) != nil
	}, time.Second, time.Millisecond)
	return h.rec.Recordings()[n-1]
}

func (h *harness) assertRestored(t *testing.T) {
	t.Helper()
	assert.False(t, h.src.Playing(), "source left playing")
	muted, err := h.src.Muted()
	require.NoError(t, err)
	assert.False(t, muted, "source left muted")
	pos, err := h.src.Position()
	require.NoError(t, err)
	assert.Equal(t, h.rng.Start, pos)
}

func TestCaptureDone(t *testing.T) {
	h := newHarness(t, &capturetest.Recorder{
		Preload:     [][]byte{[]byte("a"), []byte("b")},
		FlushOnStop: [][]byte{[]byte("c")},
	})
	run := h.pipeline.Start(context.Background(), h.src, h.rng)
	h.waitRecording(t, 1)

	assert.True(t, h.src.Playing())
	muted, _ := h.src.Muted()
	assert.True(t, muted, "audio monitoring is muted while recording")

	h.clk.Advance(15 * time.Second)
	require.Eventually(t, func() bool { return run.Snapshot().Progress == 50 }, time.Second, time.Millisecond)
	assert.Equal(t, capture.StateRecording, run.Snapshot().State)

	h.clk.Advance(15 * time.Second)
	final := run.Wait()

	require.Equal(t, capture.StateDone, final.State, "err: %v", final.Err)
	assert.Equal(t, 100.0, final.Progress)
	require.NotNil(t, final.Artifact)
	assert.Equal(t, []byte("abc"), final.Artifact.Data)
	assert.Equal(t, "video/mp4", final.Artifact.MIMEType)
	assert.Equal(t, "clip.mp4", final.Artifact.Name)
	assert.Equal(t, 3, final.Artifact.Chunks)
	assert.Equal(t, h.rng, final.Artifact.Range)
	assert.Equal(t, run.ID(), final.JobID)

	assert.Equal(t, 1, h.cleanupCount(run.ID()))
	assert.True(t, h.clk.ticker(0).stopped.Load())
	assert.Equal(t, 1, h.rec.Recordings()[0].Stops())
	h.assertRestored(t)
}

func TestProgressCappedUntilDone(t *testing.T) {
	h := newHarness(t, &capturetest.Recorder{Preload: [][]byte{[]byte("x")}})
	run := h.pipeline.Start(context.Background(), h.src, h.rng)

	var seen []capture.Snapshot
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for s := range run.Updates() {
			seen = append(seen, s)
		}
	}()

	h.waitRecording(t, 1)
	h.clk.Advance(29700 * time.Millisecond)
	require.Eventually(t, func() bool { return run.Snapshot().Progress == 99 }, time.Second, time.Millisecond)
	h.clk.Advance(5 * time.Second)
	final := run.Wait()
	<-collected

	require.Equal(t, capture.StateDone, final.State)
	require.NotEmpty(t, seen)
	assert.Equal(t, capture.StateDone, seen[len(seen)-1].State, "terminal snapshot is delivered last")
	for _, s := range seen {
		if s.State != capture.StateDone {
			assert.LessOrEqual(t, s.Progress, 99.0, "state %s", s.State)
		} else {
			assert.Equal(t, 100.0, s.Progress)
		}
	}
}

func TestStopsWhenPlaybackReachesEnd(t *testing.T) {
	h := newHarness(t, &capturetest.Recorder{Preload: [][]byte{[]byte("x")}})
	run := h.pipeline.Start(context.Background(), h.src, h.rng)
	h.waitRecording(t, 1)

	h.src.SetPosition(40)
	h.clk.Advance(time.Second)
	final := run.Wait()

	require.Equal(t, capture.StateDone, final.State)
	assert.Less(t, final.Elapsed, 30*time.Second)
}

func TestEncoderEndingFinalizes(t *testing.T) {
	h := newHarness(t, &capturetest.Recorder{})
	run := h.pipeline.Start(context.Background(), h.src, h.rng)
	rec := h.waitRecording(t, 1)

	rec.Push([]byte("whole"))
	rec.Finish()
	final := run.Wait()

	require.Equal(t, capture.StateDone, final.State)
	assert.Equal(t, []byte("whole"), final.Artifact.Data)
	assert.Equal(t, 0, rec.Stops())
}

func TestZeroChunksFailsEmptyCapture(t *testing.T) {
	h := newHarness(t, &capturetest.Recorder{})
	run := h.pipeline.Start(context.Background(), h.src, h.rng)
	rec := h.waitRecording(t, 1)
	rec.Push(nil)

	h.clk.Advance(30 * time.Second)
	final := run.Wait()

	require.Equal(t, capture.StateFailed, final.State)
	require.NotNil(t, final.Err)
	assert.Equal(t, capture.KindEmptyCapture, final.Err.Kind)
	assert.ErrorIs(t, final.Err, capture.ErrEmptyCapture)
	assert.Nil(t, final.Artifact)
	assert.Less(t, final.Progress, 100.0)
	assert.Equal(t, 1, h.cleanupCount(run.ID()))
	h.assertRestored(t)
}

func TestEncoderErrorFails(t *testing.T) {
	h := newHarness(t, &capturetest.Recorder{Preload: [][]byte{[]byte("x")}})
	run := h.pipeline.Start(context.Background(), h.src, h.rng)
	rec := h.waitRecording(t, 1)

	boom := errors.New("boom")
	rec.Fail(boom)
	final := run.Wait()

	require.Equal(t, capture.StateFailed, final.State)
	assert.Equal(t, capture.KindPlayback, final.Err.Kind)
	assert.ErrorIs(t, final.Err, boom)
	assert.ErrorIs(t, final.Err, capture.ErrPlayback)
	assert.True(t, final.Err.Retryable())
	assert.GreaterOrEqual(t, rec.Stops(), 1)
	assert.True(t, h.clk.ticker(0).stopped.Load())
	assert.Equal(t, 1, h.cleanupCount(run.ID()))
	h.assertRestored(t)
}

func TestCancelRunsCleanupOnce(t *testing.T) {
	h := newHarness(t, &capturetest.Recorder{Preload: [][]byte{[]byte("x")}})
	run := h.pipeline.Start(context.Background(), h.src, h.rng)
	rec := h.waitRecording(t, 1)

	run.Cancel()
	run.Cancel()
	final := run.Wait()

	require.Equal(t, capture.StateFailed, final.State)
	assert.Equal(t, capture.KindCanceled, final.Err.Kind)
	assert.ErrorIs(t, final.Err, capture.ErrCanceled)
	assert.False(t, final.Err.Retryable())
	assert.GreaterOrEqual(t, rec.Stops(), 1)
	assert.Equal(t, 1, h.cleanupCount(run.ID()))
	h.assertRestored(t)
}

func TestCancelDuringSeek(t *testing.T) {
	h := newHarness(t, &capturetest.Recorder{})
	h.src.SeekDelay = 40 * time.Millisecond
	run := h.pipeline.Start(context.Background(), h.src, h.rng)
	require.Eventually(t, func() bool { return run.Snapshot().State == capture.StateSeeking }, time.Second, time.Millisecond)

	run.Cancel()
	final := run.Wait()

	assert.Equal(t, capture.KindCanceled, final.Err.Kind)
	assert.Empty(t, h.rec.Recordings())
	assert.Equal(t, 1, h.cleanupCount(run.ID()))
}

func TestSeekTimeout(t *testing.T) {
	h := newHarness(t, &capturetest.Recorder{})
	h.src.HangAt[10] = true
	run := h.pipeline.Start(context.Background(), h.src, h.rng)
	final := run.Wait()

	require.Equal(t, capture.StateFailed, final.State)
	assert.Equal(t, capture.KindSeekTimeout, final.Err.Kind)
	assert.ErrorIs(t, final.Err, capture.ErrSeekTimeout)
	assert.Empty(t, h.rec.Recordings())
	assert.Equal(t, 1, h.cleanupCount(run.ID()))
}

func TestUnsupportedEncoder(t *testing.T) {
	tests := []struct {
		name     string
		recorder *capturetest.Recorder
		want     capture.Kind
	}{
		{"missing encoder", &capturetest.Recorder{StartErr: fmt.Errorf("libx264: %w", capture.ErrUnsupported)}, capture.KindUnsupported},
		{"no recorder", nil, capture.KindUnsupported},
		{"start failure", &capturetest.Recorder{StartErr: errors.New("pipe")}, capture.KindPlayback},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.recorder)
			run := h.pipeline.Start(context.Background(), h.src, h.rng)
			final := run.Wait()

			require.Equal(t, capture.StateFailed, final.State)
			assert.Equal(t, tt.want, final.Err.Kind)
			assert.Equal(t, 1, h.cleanupCount(run.ID()))
			h.assertRestored(t)
		})
	}
}

func TestCleanupKeepsPriorMute(t *testing.T) {
	h := newHarness(t, &capturetest.Recorder{})
	require.NoError(t, h.src.SetMuted(true))
	run := h.pipeline.Start(context.Background(), h.src, h.rng)
	h.waitRecording(t, 1)
	run.Cancel()
	run.Wait()

	muted, err := h.src.Muted()
	require.NoError(t, err)
	assert.True(t, muted)
}

func TestEachRunHasOwnID(t *testing.T) {
	h := newHarness(t, &capturetest.Recorder{})
	a := h.pipeline.Start(context.Background(), h.src, h.rng)
	a.Cancel()
	a.Wait()
	b := h.pipeline.Start(context.Background(), h.src, h.rng)
	b.Cancel()
	b.Wait()

	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, 1, h.cleanupCount(a.ID()))
	assert.Equal(t, 1, h.cleanupCount(b.ID()))
}

func TestNameOption(t *testing.T) {
	h := newHarness(t, nil)
	rec := &capturetest.Recorder{Preload: [][]byte{[]byte("x")}}
	p := capture.New(capture.Options{
		Recorder: rec,
		Clock:    h.clk,
		Name:     func(r selection.Range) string { return fmt.Sprintf("%g-%g.mp4", r.Start, r.End) },
	})
	run := p.Start(context.Background(), h.src, h.rng)
	require.Eventually(t, func() bool { return len(rec.Recordings()) == 1 && h.clk.ticker(0) != nil }, time.Second, time.Millisecond)
	rec.Recordings()[0].Finish()

	final := run.Wait()
	require.Equal(t, capture.StateDone, final.State)
	assert.Equal(t, "10-40.mp4", final.Artifact.Name)
}

func TestProgress(t *testing.T) {
	tests := []struct {
		elapsed time.Duration
		span    float64
		want    float64
	}{
		{0, 30, 0},
		{15 * time.Second, 30, 50},
		{30 * time.Second, 30, 99},
		{time.Minute, 30, 99},
		{time.Second, 0, 0},
		{-time.Second, 30, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, capture.Progress(tt.elapsed, tt.span), "elapsed %s span %g", tt.elapsed, tt.span)
	}
}

func TestStateHelpers(t *testing.T) {
	assert.Equal(t, "recording", capture.StateRecording.String())
	assert.True(t, capture.StateDone.Terminal())
	assert.True(t, capture.StateFailed.Terminal())
	assert.False(t, capture.StateFinalizing.Terminal())
	assert.True(t, capture.StateSeeking.Active())
	assert.False(t, capture.StateIdle.Active())

	err := &capture.Error{Kind: capture.KindSeekTimeout}
	assert.Equal(t, "seek did not settle", err.Error())
	assert.False(t, errors.Is(err, capture.ErrPlayback))
}

// lateRecorder starts recordings whose output keeps arriving after Stop.
type lateRecorder struct {
	rec *lateRecording
}

func (r *lateRecorder) Container() capture.Container { return capture.FragmentedMP4 }

func (r *lateRecorder) Start(context.Context, media.Source, selection.Range) (capture.Recording, error) {
	return r.rec, nil
}

type lateRecording struct {
	chunks  chan []byte
	errs    chan error
	stopped chan struct{}
	once    sync.Once
}

func (r *lateRecording) Chunks() <-chan []byte { return r.chunks }
func (r *lateRecording) Errors() <-chan error  { return r.errs }

func (r *lateRecording) Stop() error {
	r.once.Do(func() { close(r.stopped) })
	return nil
}

func TestAbandonDrainsUntilEncoderCloses(t *testing.T) {
	late := &lateRecording{
		chunks:  make(chan []byte),
		errs:    make(chan error, 1),
		stopped: make(chan struct{}),
	}
	h := newHarness(t, nil)
	h.pipeline = capture.New(capture.Options{
		Recorder:     &lateRecorder{rec: late},
		SeekTimeout:  50 * time.Millisecond,
		FlushTimeout: 20 * time.Millisecond,
		Clock:        h.clk,
	})
	run := h.pipeline.Start(context.Background(), h.src, h.rng)
	require.Eventually(t, func() bool { return h.clk.ticker(0) != nil }, time.Second, time.Millisecond)

	run.Cancel()
	final := run.Wait()
	assert.Equal(t, capture.KindCanceled, final.Err.Kind)
	<-late.stopped

	// A killed encoder can still hand over its buffered output well after
	// the flush window.
	time.Sleep(60 * time.Millisecond)
	sent := make(chan struct{})
	go func() {
		defer close(sent)
		for i := 0; i < 32; i++ {
			late.chunks <- []byte("x")
		}
		close(late.chunks)
	}()
	select {
	case <-sent:
	case <-time.After(time.Second):
		t.Fatal("encoder output left undrained")
	}
}
