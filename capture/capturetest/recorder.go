// Package capturetest provides a scripted capture.Recorder for tests.
package capturetest

import (
	"context"
	"sync"

	"github.com/user/rangeclip/capture"
	"github.com/user/rangeclip/media"
	"github.com/user/rangeclip/selection"
)

// Recorder starts Recordings that emit nothing until the test pushes chunks,
// unless Preload is set.
type Recorder struct {
	// StartErr is returned by Start when set.
	StartErr error
	// Preload is pushed to every new recording.
	Preload [][]byte
	// FlushOnStop is pushed right before the chunk channel closes on Stop.
	FlushOnStop [][]byte
	// OnStart runs for each new recording.
	OnStart func(*Recording)

	mu         sync.Mutex
	recordings []*Recording
	ranges     []selection.Range
}

var _ capture.Recorder = (*Recorder)(nil)

func (r *Recorder) Container() capture.Container {
	return capture.FragmentedMP4
}

func (r *Recorder) Start(ctx context.Context, src media.Source, rng selection.Range) (capture.Recording, error) {
	if r.StartErr != nil {
		return nil, r.StartErr
	}
	rec := &Recording{
		chunks: make(chan []byte, 64),
		errs:   make(chan error, 1),
		flush:  r.FlushOnStop,
	}
	for _, c := range r.Preload {
		rec.Push(c)
	}
	r.mu.Lock()
	r.recordings = append(r.recordings, rec)
	r.ranges = append(r.ranges, rng)
	r.mu.Unlock()
	if r.OnStart != nil {
		r.OnStart(rec)
	}
	return rec, nil
}

// Recordings returns every recording started so far.
func (r *Recorder) Recordings() []*Recording {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Recording(nil), r.recordings...)
}

// Ranges returns the range each recording was started with.
func (r *Recorder) Ranges() []selection.Range {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]selection.Range(nil), r.ranges...)
}

// Recording is a scripted capture.Recording.
type Recording struct {
	chunks chan []byte
	errs   chan error
	flush  [][]byte

	mu      sync.Mutex
	closed  bool
	stops   int
	StopErr error
}

func (r *Recording) Chunks() <-chan []byte { return r.chunks }
func (r *Recording) Errors() <-chan error  { return r.errs }

// Push delivers a chunk; it is a no-op after the output closed.
func (r *Recording) Push(c []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.chunks <- c
	}
}

// Fail reports an encoder error.
func (r *Recording) Fail(err error) {
	select {
	case r.errs <- err:
	default:
	}
}

// Finish closes the output as an encoder reaching its own end would.
func (r *Recording) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.close()
}

func (r *Recording) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops++
	if !r.closed {
		for _, c := range r.flush {
			r.chunks <- c
		}
	}
	r.close()
	return r.StopErr
}

// Stops counts Stop calls.
func (r *Recording) Stops() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stops
}

func (r *Recording) close() {
	if !r.closed {
		r.closed = true
		close(r.chunks)
	}
}
