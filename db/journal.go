package db

import (
	"database/sql"
	"errors"
	"time"

	"github.com/user/rangeclip/capture"
	"github.com/user/rangeclip/selection"
)

// Journal records the lifecycle of export jobs.
type Journal struct {
	DB  *sql.DB
	Now func() time.Time
}

// NewJournal returns a Journal over an opened database.
func NewJournal(db *sql.DB) *Journal {
	return &Journal{DB: db, Now: time.Now}
}

// Started records a job that began capturing r from source.
func (j *Journal) Started(jobID, source string, r selection.Range) error {
	return InsertExport(j.DB, jobID, source, r.Start, r.End, j.Now())
}

// Finished records a terminal snapshot.
func (j *Journal) Finished(s capture.Snapshot) error {
	switch {
	case s.State == capture.StateDone && s.Artifact != nil:
		return MarkExportDone(j.DB, s.JobID, s.Artifact.Name, int64(len(s.Artifact.Data)), j.Now())
	case s.State == capture.StateFailed && s.Err != nil:
		state := StateFailed
		if s.Err.Kind == capture.KindCanceled {
			state = StateCanceled
		}
		return MarkExportFailed(j.DB, s.JobID, state, s.Err.Kind.String(), s.Err.Error(), j.Now())
	default:
		return errors.New("journal: snapshot is not terminal")
	}
}

// Saved records where a finished export was written.
func (j *Journal) Saved(jobID, clipPath, stillPath string) error {
	return MarkExportSaved(j.DB, jobID, clipPath, stillPath)
}

// Recent returns up to limit exports, newest first.
func (j *Journal) Recent(limit int) ([]Export, error) {
	return SelectExports(j.DB, limit)
}

// Recover fails exports left in the started state by a process that exited
// mid-capture. Run it once before the first export.
func (j *Journal) Recover() (int64, error) {
	return MarkInterruptedExports(j.DB, j.Now())
}
