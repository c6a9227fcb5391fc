// Package mediatest provides an in-memory media.Source for tests.
package mediatest

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/user/rangeclip/media"
)

// Source is a scripted media.Source. Frames are solid images whose red
// channel is the integer second of the position they were taken at.
type Source struct {
	mu      sync.Mutex
	info    media.Info
	pos     float64
	playing bool
	muted   bool
	closed  bool

	// HangAt makes a seek to that offset block until its context ends.
	HangAt map[float64]bool
	// FrameErr makes Frame fail at that position.
	FrameErr map[float64]error
	// SeekDelay is slept (context aware) before every seek completes.
	SeekDelay time.Duration

	seeks    []float64
	calls    []string
	inflight int
	overlap  bool
}

var _ media.Source = (*Source)(nil)

// New returns a paused source of the given duration.
func New(duration float64) *Source {
	return &Source{
		info: media.Info{
			Locator:   "test://source",
			Title:     "source",
			Duration:  duration,
			Width:     64,
			Height:    36,
			FrameRate: 30,
		},
		HangAt:   map[float64]bool{},
		FrameErr: map[float64]error{},
	}
}

func (s *Source) Info() media.Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// SetDuration simulates late or changing metadata.
func (s *Source) SetDuration(d float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.info.Duration = d
}

func (s *Source) Seek(ctx context.Context, t float64) error {
	s.enter("seek")
	defer s.leave()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return media.ErrClosed
	}
	s.seeks = append(s.seeks, t)
	hang := s.HangAt[t]
	delay := s.SeekDelay
	s.mu.Unlock()

	if hang {
		<-ctx.Done()
		return ctx.Err()
	}
	if delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	s.mu.Lock()
	s.pos = t
	s.mu.Unlock()
	return nil
}

func (s *Source) Position() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, media.ErrClosed
	}
	return s.pos, nil
}

// SetPosition moves the playback position as if playback advanced.
func (s *Source) SetPosition(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos = t
}

func (s *Source) Play() error {
	return s.setFlag("play", func() { s.playing = true })
}

func (s *Source) Pause() error {
	return s.setFlag("pause", func() { s.playing = false })
}

func (s *Source) Muted() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, media.ErrClosed
	}
	return s.muted, nil
}

func (s *Source) SetMuted(muted bool) error {
	name := "unmute"
	if muted {
		name = "mute"
	}
	return s.setFlag(name, func() { s.muted = muted })
}

func (s *Source) Frame(ctx context.Context) (image.Image, error) {
	s.enter("frame")
	defer s.leave()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, media.ErrClosed
	}
	if err, ok := s.FrameErr[s.pos]; ok {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, s.info.Width, s.info.Height))
	c := color.RGBA{R: uint8(int(s.pos) % 256), A: 255}
	for y := 0; y < s.info.Height; y++ {
		for x := 0; x < s.info.Width; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img, nil
}

func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.calls = append(s.calls, "close")
	return nil
}

// Playing reports whether Play was called more recently than Pause.
func (s *Source) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// Closed reports whether Close was called.
func (s *Source) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Seeks returns every seek target in call order.
func (s *Source) Seeks() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]float64(nil), s.seeks...)
}

// Calls returns the operation log (seek, frame, play, pause, mute, unmute, close).
func (s *Source) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Overlapped reports whether two seeks or frame grabs were ever in flight at
// the same time.
func (s *Source) Overlapped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlap
}

func (s *Source) setFlag(name string, apply func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return media.ErrClosed
	}
	apply()
	s.calls = append(s.calls, name)
	return nil
}

func (s *Source) enter(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight++
	if s.inflight > 1 {
		s.overlap = true
	}
	s.calls = append(s.calls, name)
}

func (s *Source) leave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
}

// Loader hands out prepared sources by locator.
type Loader struct {
	mu      sync.Mutex
	Sources map[string]*Source
	Err     error
	loads   []string
}

func (l *Loader) Load(ctx context.Context, locator string) (media.Source, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads = append(l.loads, locator)
	if l.Err != nil {
		return nil, &media.LoadError{Locator: locator, Err: l.Err}
	}
	src, ok := l.Sources[locator]
	if !ok {
		return nil, &media.LoadError{Locator: locator, Err: errors.New("no such source")}
	}
	return src, nil
}

// Loads returns every requested locator.
func (l *Loader) Loads() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.loads...)
}
