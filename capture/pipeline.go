package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/user/rangeclip/logging"
	"github.com/user/rangeclip/media"
	"github.com/user/rangeclip/selection"
)

const (
	DefaultSeekTimeout  = 5 * time.Second
	DefaultTickInterval = 250 * time.Millisecond
	DefaultFlushTimeout = 5 * time.Second

	updateBuffer = 16
)

// Options configure a Pipeline.
type Options struct {
	Recorder     Recorder
	SeekTimeout  time.Duration
	TickInterval time.Duration
	// FlushTimeout bounds waiting for the encoder's last chunks after Stop.
	FlushTimeout time.Duration
	Clock        Clock
	Logger       *slog.Logger
	// Name builds the artifact file name; "clip" plus the container
	// extension when nil.
	Name func(r selection.Range) string
	// OnCleanup is called with the job ID once the source's playback state
	// has been restored. It runs on the job goroutine.
	OnCleanup func(jobID string)
}

// Pipeline starts capture jobs. One Pipeline serves many sequential jobs;
// callers keep at most one Run per source alive.
type Pipeline struct {
	opts Options
}

// New returns a Pipeline with defaults filled in.
func New(opts Options) *Pipeline {
	if opts.SeekTimeout <= 0 {
		opts.SeekTimeout = DefaultSeekTimeout
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.FlushTimeout <= 0 {
		opts.FlushTimeout = DefaultFlushTimeout
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Pipeline{opts: opts}
}

// Container returns the recorder's output format.
func (p *Pipeline) Container() Container {
	if p.opts.Recorder == nil {
		return FragmentedMP4
	}
	return p.opts.Recorder.Container()
}

// Start launches a job capturing r from src. The range is a snapshot: later
// selection changes do not affect the job.
func (p *Pipeline) Start(ctx context.Context, src media.Source, r selection.Range) *Run {
	ctx, cancel := context.WithCancel(ctx)
	id := uuid.NewString()
	run := &Run{
		id:      id,
		updates: make(chan Snapshot, updateBuffer),
		cancel:  cancel,
		done:    make(chan struct{}),
		current: Snapshot{JobID: id, Range: r, State: StateIdle},
	}
	j := &job{
		opts: p.opts,
		run:  run,
		src:  src,
		rng:  r,
		log:  logging.WithJobID(p.opts.Logger, id),
		snap: run.current,
	}
	go j.execute(ctx)
	return run
}

// Run is a handle on one job.
type Run struct {
	id      string
	updates chan Snapshot
	cancel  context.CancelFunc
	done    chan struct{}

	mu      sync.Mutex
	current Snapshot
}

// ID returns the job ID.
func (r *Run) ID() string { return r.id }

// Updates streams snapshots. Under back-pressure the oldest pending ones are
// dropped; the terminal snapshot is always delivered last before the channel
// closes.
func (r *Run) Updates() <-chan Snapshot { return r.updates }

// Cancel abandons the job. Cleanup still runs; Wait returns once it has.
func (r *Run) Cancel() { r.cancel() }

// Done is closed after the terminal snapshot.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the job is terminal and returns its final snapshot.
func (r *Run) Wait() Snapshot {
	<-r.done
	return r.Snapshot()
}

// Snapshot returns the latest state.
func (r *Run) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *Run) publish(s Snapshot) {
	r.mu.Lock()
	r.current = s
	r.mu.Unlock()
	for {
		select {
		case r.updates <- s:
			return
		default:
		}
		select {
		case <-r.updates:
		default:
		}
	}
}

// job is the state owned by one Run's goroutine.
type job struct {
	opts Options
	run  *Run
	src  media.Source
	rng  selection.Range
	log  *slog.Logger

	snap      Snapshot
	data      [][]byte
	wasMuted  bool
	cleanOnce sync.Once
}

func (j *job) execute(ctx context.Context) {
	final := j.capture(ctx)
	j.run.publish(final)
	close(j.run.updates)
	close(j.run.done)
	j.run.cancel()
}

func (j *job) capture(ctx context.Context) Snapshot {
	if muted, err := j.src.Muted(); err == nil {
		j.wasMuted = muted
	}
	span := j.rng.Span()
	j.log.Info("capture started", "start", j.rng.Start, "end", j.rng.End, "span", span)

	if !(span > 0) {
		return j.fail(newError(KindEmptyCapture, errors.New("range is empty")))
	}
	if j.opts.Recorder == nil {
		return j.fail(newError(KindUnsupported, errors.New("no recorder configured")))
	}

	j.transition(StateSeeking)
	if err := j.src.SetMuted(true); err != nil {
		return j.fail(newError(KindPlayback, fmt.Errorf("mute: %w", err)))
	}
	if err := j.seek(ctx, j.rng.Start); err != nil {
		return j.fail(err)
	}

	j.transition(StateRecording)
	rec, err := j.opts.Recorder.Start(ctx, j.src, j.rng)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return j.fail(newError(KindCanceled, ctx.Err()))
		case errors.Is(err, ErrUnsupported):
			return j.fail(newError(KindUnsupported, err))
		default:
			return j.fail(newError(KindPlayback, fmt.Errorf("start encoder: %w", err)))
		}
	}
	if err := j.src.Play(); err != nil {
		j.abandon(rec)
		return j.fail(newError(KindPlayback, fmt.Errorf("play: %w", err)))
	}
	return j.record(ctx, rec, span)
}

// record runs the Recording state until a stop condition fires.
func (j *job) record(ctx context.Context, rec Recording, span float64) Snapshot {
	clock := j.opts.Clock
	started := clock.Now()
	ticker := clock.NewTicker(j.opts.TickInterval)
	chunks, errs := rec.Chunks(), rec.Errors()

	for {
		select {
		case <-ctx.Done():
			ticker.Stop()
			j.abandon(rec)
			return j.fail(newError(KindCanceled, ctx.Err()))

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			ticker.Stop()
			j.abandon(rec)
			return j.fail(newError(KindPlayback, fmt.Errorf("encoder: %w", err)))

		case c, ok := <-chunks:
			if !ok {
				ticker.Stop()
				j.log.Debug("encoder ended before stop condition")
				return j.finalize(ctx, rec, true, clock.Now().Sub(started))
			}
			j.add(c)

		case <-ticker.C():
			elapsed := clock.Now().Sub(started)
			j.snap.Elapsed = elapsed
			j.snap.Progress = Progress(elapsed, span)
			j.run.publish(j.snap)

			reached := elapsed.Seconds() >= span
			if !reached {
				if pos, err := j.src.Position(); err == nil && pos >= j.rng.End {
					reached = true
				}
			}
			if reached {
				ticker.Stop()
				return j.finalize(ctx, rec, false, elapsed)
			}
		}
	}
}

// finalize stops the encoder, drains it and assembles the artifact.
func (j *job) finalize(ctx context.Context, rec Recording, flushed bool, elapsed time.Duration) Snapshot {
	j.transition(StateFinalizing)
	if !flushed {
		if err := rec.Stop(); err != nil {
			j.abandon(rec)
			return j.fail(newError(KindPlayback, fmt.Errorf("stop encoder: %w", err)))
		}
		if err := j.drain(ctx, rec); err != nil {
			return j.fail(err)
		}
	}
	// An encoder that failed reports before closing its output.
	select {
	case err, ok := <-rec.Errors():
		if ok && err != nil {
			return j.fail(newError(KindPlayback, fmt.Errorf("encoder: %w", err)))
		}
	default:
	}
	if len(j.data) == 0 {
		return j.fail(newError(KindEmptyCapture, nil))
	}

	container := j.opts.Recorder.Container()
	name := "clip" + container.Extension
	if j.opts.Name != nil {
		name = j.opts.Name(j.rng)
	}
	artifact := &Artifact{
		Name:     name,
		MIMEType: container.MIMEType,
		Data:     bytes.Join(j.data, nil),
		Range:    j.rng,
		Chunks:   len(j.data),
		Duration: elapsed,
	}
	j.data = nil
	j.cleanup()

	j.snap.State = StateDone
	j.snap.Progress = 100
	j.snap.Elapsed = elapsed
	j.snap.Artifact = artifact
	j.log.Info("capture done", "name", name, "bytes", len(artifact.Data), "chunks", artifact.Chunks)
	return j.snap
}

// drain collects chunks until the encoder closes its output.
func (j *job) drain(ctx context.Context, rec Recording) *Error {
	timeout := time.NewTimer(j.opts.FlushTimeout)
	defer timeout.Stop()
	chunks, errs := rec.Chunks(), rec.Errors()
	for {
		select {
		case <-ctx.Done():
			j.abandon(rec)
			return newError(KindCanceled, ctx.Err())
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			j.abandon(rec)
			return newError(KindPlayback, fmt.Errorf("encoder: %w", err))
		case c, ok := <-chunks:
			if !ok {
				return nil
			}
			j.add(c)
		case <-timeout.C:
			j.abandon(rec)
			return newError(KindPlayback, errors.New("encoder did not flush"))
		}
	}
}

// abandon stops rec and discards whatever it still delivers. The drain runs
// until Chunks closes so the encoder is never left blocked on a send.
func (j *job) abandon(rec Recording) {
	if err := rec.Stop(); err != nil {
		j.log.Debug("stop abandoned encoder", "error", err)
	}
	go func() {
		for range rec.Chunks() {
		}
	}()
}

func (j *job) seek(ctx context.Context, t float64) *Error {
	seekCtx, cancel := context.WithTimeout(ctx, j.opts.SeekTimeout)
	defer cancel()
	err := j.src.Seek(seekCtx, t)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return newError(KindCanceled, ctx.Err())
	case errors.Is(err, context.DeadlineExceeded):
		return newError(KindSeekTimeout, fmt.Errorf("seek to %.3f: %w", t, err))
	default:
		return newError(KindPlayback, fmt.Errorf("seek to %.3f: %w", t, err))
	}
}

func (j *job) add(c []byte) {
	if len(c) == 0 {
		return
	}
	j.data = append(j.data, c)
	j.snap.Chunks++
	j.snap.Bytes += len(c)
}

func (j *job) transition(s State) {
	j.log.Debug("capture state", "from", j.snap.State.String(), "to", s.String())
	j.snap.State = s
	j.run.publish(j.snap)
}

func (j *job) fail(e *Error) Snapshot {
	j.data = nil
	j.cleanup()
	if e.Kind == KindCanceled {
		j.log.Info("capture canceled", "state", j.snap.State.String())
	} else {
		j.log.Warn("capture failed", "state", j.snap.State.String(), "kind", e.Kind.String(), "error", e)
	}
	j.snap.State = StateFailed
	j.snap.Err = e
	return j.snap
}

// cleanup pauses, rewinds to the range start and restores the mute flag.
// It runs once per job whatever the exit path.
func (j *job) cleanup() {
	j.cleanOnce.Do(func() {
		if err := j.src.Pause(); err != nil {
			j.log.Warn("cleanup pause", "error", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), j.opts.SeekTimeout)
		if err := j.src.Seek(ctx, j.rng.Start); err != nil {
			j.log.Warn("cleanup seek", "error", err)
		}
		cancel()
		if err := j.src.SetMuted(j.wasMuted); err != nil {
			j.log.Warn("cleanup unmute", "error", err)
		}
		if j.opts.OnCleanup != nil {
			j.opts.OnCleanup(j.run.id)
		}
	})
}
