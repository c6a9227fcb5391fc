// Package session holds the one mutable "current source" context and wires
// the selection controller to the thumbnail service and the capture pipeline.
//
// A Session is driven from a single control flow (the TUI update loop or a
// headless command loop). Workers never touch session state; they post
// Events that the control flow hands back to Apply, which drops anything
// stale.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/user/rangeclip/capture"
	"github.com/user/rangeclip/logging"
	"github.com/user/rangeclip/media"
	"github.com/user/rangeclip/selection"
	"github.com/user/rangeclip/thumbnail"
)

const defaultEventBuffer = 64

// ErrNoSource is returned by operations that need a loaded source.
var ErrNoSource = errors.New("session: no source loaded")

// Journal records capture jobs. db.Journal implements it.
type Journal interface {
	Started(jobID, source string, r selection.Range) error
	Finished(s capture.Snapshot) error
}

// Options configures a Session.
type Options struct {
	Loader     media.Loader
	Thumbnails *thumbnail.Service
	Pipeline   *capture.Pipeline
	// Debounce is how long the range must stay unchanged before a preview
	// is sampled.
	Debounce time.Duration
	// Journal is optional.
	Journal Journal
	MaxSpan float64
	MinSpan float64
	Logger  *slog.Logger
	// EventBuffer sizes the Events channel.
	EventBuffer int
}

// lease is exclusive use of the source by one worker. produced is written
// by the worker before done closes.
type lease struct {
	kind     thumbnail.Kind
	capture  bool
	cancel   context.CancelFunc
	done     <-chan struct{}
	produced bool
}

func (l *lease) String() string {
	if l.capture {
		return "capture"
	}
	return l.kind.String()
}

// finished reports whether the holder has stopped using the source.
func (l *lease) finished() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// Session is the current source with its selection, thumbnails, capture job
// and artifact. It is not safe for concurrent use.
type Session struct {
	opts       Options
	log        *slog.Logger
	controller *selection.Controller
	debouncer  *thumbnail.Debouncer
	events     chan Event

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	epoch       uint64
	src         media.Source
	lease       *lease
	overviewGen uint64
	overview    thumbnail.Set
	preview     thumbnail.Set
	// deferred work that waits for a capture to release the source
	pendingOverview bool
	pendingPreview  uint64
	// a preview fell due mid-drag and waits for the pointer to lift
	dragDeferred bool

	run      *capture.Run
	job      capture.Snapshot
	hasJob   bool
	artifact *capture.Artifact
}

// New returns a Session with no source loaded.
func New(opts Options) *Session {
	if opts.Debounce <= 0 {
		opts.Debounce = thumbnail.DefaultDebounce
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = defaultEventBuffer
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		opts:       opts,
		log:        logging.WithComponent(opts.Logger, "session"),
		controller: selection.NewController(opts.MaxSpan, opts.MinSpan),
		debouncer:  thumbnail.NewDebouncer(opts.Debounce),
		events:     make(chan Event, opts.EventBuffer),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Events delivers worker completions. Pass each one to Apply.
func (s *Session) Events() <-chan Event { return s.events }

// Load resets the session and loads locator. Load errors are returned
// unchanged (*media.LoadError). Overview sampling starts once the duration
// is known.
func (s *Session) Load(ctx context.Context, locator string) error {
	s.Reset()
	src, err := s.opts.Loader.Load(ctx, locator)
	if err != nil {
		return err
	}
	s.src = src
	info := src.Info()
	s.controller.Load(info.Duration, info.FrameRate)
	s.log.Info("source loaded",
		"source", logging.SanitizePath(info.Locator),
		"duration", info.Duration,
		"width", info.Width,
		"height", info.Height,
		"fps", info.FrameRate)

	if info.Duration > 0 {
		s.startOverview()
	} else {
		s.pendingOverview = true
	}
	return nil
}

// Loaded reports whether a source is loaded.
func (s *Session) Loaded() bool { return s.src != nil }

// Source returns the loaded source, or nil.
func (s *Session) Source() media.Source { return s.src }

// Range returns the current selection.
func (s *Session) Range() selection.Range { return s.controller.Range() }

// Drag returns the in-progress drag, if any.
func (s *Session) Drag() selection.DragSession { return s.controller.Drag() }

// Playing reports the play/pause toggle.
func (s *Session) Playing() bool { return s.controller.Playing() }

// SetWidth sets the timeline width used to map pointer positions to time.
func (s *Session) SetWidth(px float64) { s.controller.SetWidth(px) }

// FrameRate returns the rate fine nudges step by.
func (s *Session) FrameRate() float64 { return s.controller.FrameRate() }

// Overview returns the whole-source thumbnails.
func (s *Session) Overview() thumbnail.Set { return s.overview }

// Preview returns the thumbnails of the last settled range.
func (s *Session) Preview() thumbnail.Set { return s.preview }

// Thumbnails returns the set to display: the range preview when there is
// one, the overview otherwise.
func (s *Session) Thumbnails() thumbnail.Set {
	if s.preview.Len() > 0 {
		return s.preview
	}
	return s.overview
}

// Still re-encodes thumbnail i of the displayed set as PNG.
func (s *Session) Still(i int) (thumbnail.Still, error) {
	return s.Thumbnails().Still(i)
}

// Job returns the latest snapshot of the current or last capture job.
func (s *Session) Job() (capture.Snapshot, bool) { return s.job, s.hasJob }

// Capturing reports whether a capture job holds the source.
func (s *Session) Capturing() bool { return s.run != nil }

// Artifact returns the finished clip, or nil.
func (s *Session) Artifact() *capture.Artifact { return s.artifact }

// Input feeds one UI event to the selection controller. When the range
// changed, or a drag that held back a preview ended, it returns the debounce
// generation a preview is scheduled for. The play toggle is applied to the source unless a capture owns playback.
func (s *Session) Input(ev selection.Event) (selection.Result, uint64) {
	wasDragging := s.controller.Dragging()
	res := s.controller.Handle(ev)
	if res.PlayToggled {
		if err := s.applyPlaying(res.Playing); err != nil {
			s.controller.SetPlaying(!res.Playing)
			res.PlayToggled = false
			res.Playing = !res.Playing
		}
	}
	deferred := s.dragDeferred && wasDragging && !s.controller.Dragging()
	if deferred {
		s.dragDeferred = false
	}
	if !res.RangeChanged && !deferred {
		return res, 0
	}
	return res, s.rangeChanged()
}

// Select sets both bounds programmatically, through the same clamp path as
// input. It returns the scheduled preview generation, or 0 when nothing changed.
func (s *Session) Select(start, end float64) uint64 {
	if !s.controller.Select(start, end) {
		return 0
	}
	return s.rangeChanged()
}

// RefreshPreview schedules a preview of the current range without changing it.
func (s *Session) RefreshPreview() uint64 {
	if s.src == nil {
		return 0
	}
	return s.rangeChanged()
}

func (s *Session) applyPlaying(playing bool) error {
	if s.src == nil {
		return ErrNoSource
	}
	if s.run != nil {
		return errors.New("session: capture owns playback")
	}
	if playing {
		return s.src.Play()
	}
	return s.src.Pause()
}

// rangeChanged releases the superseded artifact and arms the debouncer.
func (s *Session) rangeChanged() uint64 {
	s.artifact = nil
	epoch := s.epoch
	return s.debouncer.Schedule(func(gen uint64) {
		s.post(Event{Kind: EventPreviewDue, Epoch: epoch, Generation: gen})
	})
}

// PreviewDue starts preview sampling for gen if it is still the latest range
// change. While a capture holds the source the preview waits for it to finish;
// during a drag it waits for the pointer to lift.
func (s *Session) PreviewDue(gen uint64) bool {
	if s.src == nil || !s.debouncer.Settled(gen) {
		return false
	}
	if s.controller.Dragging() {
		s.dragDeferred = true
		return false
	}
	if s.run != nil {
		s.pendingPreview = gen
		return false
	}
	s.pendingPreview = 0
	req := s.opts.Thumbnails.Preview(s.controller.Range(), gen)
	s.startSampling(req)
	return true
}

func (s *Session) startOverview() {
	if s.run != nil {
		s.pendingOverview = true
		return
	}
	s.pendingOverview = false
	s.overviewGen++
	req := s.opts.Thumbnails.Overview(s.src.Info().Duration, s.overviewGen)
	s.startSampling(req)
}

// startSampling takes the source lease and generates req in the background.
func (s *Session) startSampling(req thumbnail.Request) {
	s.release()
	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan struct{})
	l := &lease{kind: req.Kind, cancel: cancel, done: done}
	s.lease = l

	src, epoch, svc := s.src, s.epoch, s.opts.Thumbnails
	go func() {
		set, err := svc.Generate(ctx, src, req)
		l.produced = err == nil
		close(done)
		if err != nil {
			return
		}
		s.post(Event{Kind: EventThumbnails, Epoch: epoch, Generation: req.Generation, Thumbnails: set})
	}()
}

// release cancels the lease holder and waits until it stops using the source.
// An overview cut short is marked pending so it runs again once the source is
// free.
func (s *Session) release() {
	if s.lease == nil {
		return
	}
	s.lease.cancel()
	<-s.lease.done
	if !s.lease.capture && s.lease.kind == thumbnail.KindOverview && !s.lease.produced {
		s.pendingOverview = true
	}
	s.log.Debug("source lease released", "holder", s.lease.String())
	s.lease = nil
}

// resumeOverview restarts a pending overview when no worker holds the source.
func (s *Session) resumeOverview() {
	if !s.pendingOverview || s.run != nil {
		return
	}
	if s.lease != nil && !s.lease.finished() {
		return
	}
	s.startOverview()
}

// Export starts capturing the current range and returns the job ID. A job
// already running is cancelled first, and its cleanup finishes before the
// new job touches the source. The previous artifact is released.
func (s *Session) Export() (string, error) {
	if s.src == nil {
		return "", ErrNoSource
	}
	s.release()
	s.run = nil
	s.artifact = nil
	s.controller.SetPlaying(false)

	r := s.controller.Range()
	ctx, cancel := context.WithCancel(s.ctx)
	run := s.opts.Pipeline.Start(ctx, s.src, r)
	s.lease = &lease{capture: true, cancel: cancel, done: run.Done()}
	s.run = run
	s.job = run.Snapshot()
	s.hasJob = true

	locator := s.src.Info().Locator
	if s.opts.Journal != nil {
		if err := s.opts.Journal.Started(run.ID(), locator, r); err != nil {
			s.log.Warn("journal start failed", "job_id", run.ID(), "error", err)
		}
	}
	go s.forward(s.epoch, run)
	return run.ID(), nil
}

// forward relays a job's snapshots and journals its outcome. Canceled jobs
// are journaled even though Apply discards them.
func (s *Session) forward(epoch uint64, run *capture.Run) {
	for snap := range run.Updates() {
		if snap.State.Terminal() && s.opts.Journal != nil {
			if err := s.opts.Journal.Finished(snap); err != nil {
				s.log.Warn("journal finish failed", "job_id", snap.JobID, "error", err)
			}
		}
		s.post(Event{Kind: EventCapture, Epoch: epoch, Capture: snap})
	}
}

// post delivers ev unless the session is closed.
func (s *Session) post(ev Event) {
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
	}
}

// Apply folds a worker event into the session. It returns false for stale
// events: an earlier source, a superseded thumbnail generation, or a job
// that is no longer current.
func (s *Session) Apply(ev Event) bool {
	if ev.Epoch != s.epoch || s.src == nil {
		return false
	}
	switch ev.Kind {
	case EventThumbnails:
		return s.applyThumbnails(ev)
	case EventCapture:
		return s.applyCapture(ev.Capture)
	case EventPreviewDue:
		return s.PreviewDue(ev.Generation)
	}
	return false
}

func (s *Session) applyThumbnails(ev Event) bool {
	set := ev.Thumbnails
	switch set.Kind {
	case thumbnail.KindOverview:
		if ev.Generation != s.overviewGen {
			return false
		}
		s.overview = set
	case thumbnail.KindPreview:
		defer s.resumeOverview()
		if !s.debouncer.Settled(ev.Generation) {
			return false
		}
		s.preview = set
	default:
		return false
	}
	return true
}

func (s *Session) applyCapture(snap capture.Snapshot) bool {
	if s.run == nil || snap.JobID != s.run.ID() {
		return false
	}
	s.job = snap
	if !snap.State.Terminal() {
		return true
	}

	if snap.State == capture.StateDone {
		s.artifact = snap.Artifact
	}
	s.run = nil
	s.controller.SetPlaying(false)
	s.log.Info("capture finished", "job_id", snap.JobID, "state", snap.State.String(), "bytes", snap.Bytes)

	if gen := s.pendingPreview; gen != 0 {
		s.PreviewDue(gen)
	}
	s.resumeOverview()
	return true
}

// Poll refreshes the source duration. A first known duration starts the
// overview; a later change re-clamps the range. It reports whether the range
// changed.
func (s *Session) Poll() bool {
	if s.src == nil {
		return false
	}
	d := s.src.Info().Duration
	known := s.controller.Range().Duration > 0
	if !s.controller.SetDuration(d) {
		return false
	}
	s.log.Debug("duration changed", "duration", d)
	if !known {
		// First metadata: a fresh initial selection, like Load.
		if d > 0 {
			s.startOverview()
		}
		return true
	}
	s.rangeChanged()
	return true
}

// Reset releases the source, the capture job, the thumbnails and the
// artifact. Workers are cancelled and waited for, so a running capture has
// restored playback state before the source is closed.
func (s *Session) Reset() {
	s.debouncer.Stop()
	s.debouncer.Touch()
	s.release()
	s.epoch++
	s.run = nil
	s.job = capture.Snapshot{}
	s.hasJob = false
	s.artifact = nil
	s.overview = thumbnail.Set{}
	s.preview = thumbnail.Set{}
	s.pendingOverview = false
	s.pendingPreview = 0
	s.dragDeferred = false
	s.controller.Unload()
	if s.src != nil {
		if err := s.src.Close(); err != nil {
			s.log.Warn("close source", "error", err)
		}
		s.src = nil
	}
}

// Close resets the session and stops event delivery.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.Reset()
		s.cancel()
	})
}
