package db

import "time"

// Export states stored in exports.state.
const (
	StateStarted  = "started"
	StateDone     = "done"
	StateFailed   = "failed"
	StateCanceled = "canceled"
)

// Export represents a row in the exports table.
type Export struct {
	ID           int64
	JobID        string
	Source       string
	Start        float64
	End          float64
	State        string
	ArtifactName string
	Bytes        int64
	ErrorKind    string
	Error        string
	ClipPath     string
	StillPath    string
	CreatedAt    time.Time
	FinishedAt   *time.Time
}

// Span returns the exported duration in seconds.
func (e Export) Span() float64 {
	return e.End - e.Start
}
