package session

import (
	"github.com/user/rangeclip/capture"
	"github.com/user/rangeclip/thumbnail"
)

// EventKind tags a worker completion.
type EventKind int

const (
	// EventThumbnails carries a finished thumbnail set.
	EventThumbnails EventKind = iota + 1
	// EventCapture carries a capture job snapshot.
	EventCapture
	// EventPreviewDue fires when the range has settled for the debounce delay.
	EventPreviewDue
)

func (k EventKind) String() string {
	switch k {
	case EventThumbnails:
		return "thumbnails"
	case EventCapture:
		return "capture"
	case EventPreviewDue:
		return "preview_due"
	default:
		return "unknown"
	}
}

// Event is posted by workers and applied on the control flow with Apply.
// Epoch identifies the loaded source; events from an earlier source are stale.
type Event struct {
	Kind  EventKind
	Epoch uint64

	// Generation is the thumbnail or debounce generation.
	Generation uint64
	Thumbnails thumbnail.Set

	Capture capture.Snapshot
}
