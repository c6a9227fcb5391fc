// Package capture records a selected range of a playing source into a single
// clip artifact.
package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/user/rangeclip/media"
	"github.com/user/rangeclip/selection"
)

// State is a job's position in the capture state machine.
type State int

const (
	StateIdle State = iota
	StateSeeking
	StateRecording
	StateFinalizing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSeeking:
		return "seeking"
	case StateRecording:
		return "recording"
	case StateFinalizing:
		return "finalizing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further transitions follow.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Active reports whether the job holds the source.
func (s State) Active() bool {
	return s == StateSeeking || s == StateRecording || s == StateFinalizing
}

// Kind classifies a capture failure.
type Kind int

const (
	KindUnsupported Kind = iota + 1
	KindSeekTimeout
	KindPlayback
	KindEmptyCapture
	KindCanceled
)

var (
	ErrUnsupported  = errors.New("encoder unavailable")
	ErrSeekTimeout  = errors.New("seek did not settle")
	ErrPlayback     = errors.New("playback failed")
	ErrEmptyCapture = errors.New("nothing was captured")
	ErrCanceled     = errors.New("capture canceled")
)

func (k Kind) sentinel() error {
	switch k {
	case KindUnsupported:
		return ErrUnsupported
	case KindSeekTimeout:
		return ErrSeekTimeout
	case KindEmptyCapture:
		return ErrEmptyCapture
	case KindCanceled:
		return ErrCanceled
	default:
		return ErrPlayback
	}
}

func (k Kind) String() string {
	switch k {
	case KindUnsupported:
		return "unsupported"
	case KindSeekTimeout:
		return "seek_timeout"
	case KindPlayback:
		return "playback"
	case KindEmptyCapture:
		return "empty_capture"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Error is a failed job's cause. errors.Is matches the Kind's sentinel as
// well as the wrapped error.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.sentinel().Error()
	}
	return fmt.Sprintf("%s: %v", e.Kind.sentinel(), e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// Retryable reports whether the failure is worth showing with a retry hint.
// Canceled jobs were superseded and are never shown.
func (e *Error) Retryable() bool {
	return e.Kind != KindCanceled
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Container is the fixed output format of a recorder.
type Container struct {
	Name      string
	Extension string
	MIMEType  string
}

// FragmentedMP4 is H.264 video in fragmented MP4, playable while streamed.
var FragmentedMP4 = Container{Name: "mp4/h264", Extension: ".mp4", MIMEType: "video/mp4"}

// Recorder attaches a live encoder to a playing source.
type Recorder interface {
	// Container is decided when the recorder is built and never changes.
	Container() Container
	// Start begins encoding r while the source plays. Errors wrapping
	// ErrUnsupported mean the encoder cannot run at all.
	Start(ctx context.Context, src media.Source, r selection.Range) (Recording, error)
}

// Recording is one running encoder.
type Recording interface {
	// Chunks delivers encoded output in order and is closed once the encoder
	// has flushed everything, either on its own or after Stop.
	Chunks() <-chan []byte
	// Errors reports encoder failures.
	Errors() <-chan error
	// Stop asks the encoder to finish. It does not wait for the flush.
	Stop() error
}

// Artifact is a finished clip.
type Artifact struct {
	Name     string
	MIMEType string
	Data     []byte
	Range    selection.Range
	Chunks   int
	Duration time.Duration
}

// Snapshot is a copy of a job's observable state.
type Snapshot struct {
	JobID    string
	Range    selection.Range
	State    State
	Progress float64
	Chunks   int
	Bytes    int
	Elapsed  time.Duration
	Artifact *Artifact
	Err      *Error
}

// Progress maps elapsed wall clock onto [0, 99]: the clip is not confirmed
// complete until finalization, so recording never reports 100.
func Progress(elapsed time.Duration, span float64) float64 {
	if span <= 0 || elapsed <= 0 {
		return 0
	}
	return min(99, 100*elapsed.Seconds()/span)
}
