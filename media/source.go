// Package media defines the playable source the selection, sampling and capture
// pipelines drive. Concrete sources live in other packages (see mpv).
package media

import (
	"context"
	"errors"
	"fmt"
	"image"
)

var (
	// ErrClosed is returned by a Source after Close.
	ErrClosed = errors.New("media: source closed")
	// ErrNoFrame is returned when no decoded frame is available at the current position.
	ErrNoFrame = errors.New("media: no frame at position")
)

// Info describes a loaded source.
type Info struct {
	// Locator is what the source was loaded from (path or URL).
	Locator string
	// Title is a human readable name, usually the file base name.
	Title string
	// Duration in seconds; 0 while metadata is unknown.
	Duration float64
	// Width and Height are the natural video dimensions.
	Width  int
	Height int
	// FrameRate in frames per second; 0 when unknown.
	FrameRate float64
}

// Source is a decodable, seekable stream with a single playback position.
// Seeks are serial: callers must not issue concurrent seeks on one Source.
type Source interface {
	// Info returns the latest known metadata. Duration may change after load.
	Info() Info
	// Seek moves the playback position to t seconds and returns once the seek
	// has settled. It honours ctx cancellation and deadlines.
	Seek(ctx context.Context, t float64) error
	// Position returns the current playback position in seconds.
	Position() (float64, error)
	// Play resumes playback at normal speed.
	Play() error
	// Pause stops playback.
	Pause() error
	// Muted reports whether audio monitoring is muted.
	Muted() (bool, error)
	// SetMuted mutes or restores audio monitoring.
	SetMuted(muted bool) error
	// Frame decodes the frame at the current position.
	Frame(ctx context.Context) (image.Image, error)
	// Close releases the source.
	Close() error
}

// Loader acquires a Source from a user supplied locator (file path, URL or page).
type Loader interface {
	Load(ctx context.Context, locator string) (Source, error)
}

// LoadError reports that a locator could not be turned into a Source.
type LoadError struct {
	Locator string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Locator, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
