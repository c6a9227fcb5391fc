package db

import (
	"database/sql"
	"fmt"
	"time"
)

// InsertExport records a started export.
func InsertExport(db *sql.DB, jobID, source string, start, end float64, createdAt time.Time) error {
	_, err := db.Exec(InsertExportSQL, jobID, source, start, end, createdAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert export: %w", err)
	}
	return nil
}

// MarkExportDone records a finished artifact.
func MarkExportDone(db *sql.DB, jobID, artifactName string, size int64, finishedAt time.Time) error {
	return execOne(db, "mark export done", UpdateExportDoneSQL, artifactName, size, finishedAt.UnixMilli(), jobID)
}

// MarkExportFailed records a failure. state is StateFailed or StateCanceled.
func MarkExportFailed(db *sql.DB, jobID, state, kind, msg string, finishedAt time.Time) error {
	return execOne(db, "mark export failed", UpdateExportFailedSQL, state, kind, msg, finishedAt.UnixMilli(), jobID)
}

// MarkExportSaved records where the clip and still were written.
func MarkExportSaved(db *sql.DB, jobID, clipPath, stillPath string) error {
	return execOne(db, "mark export saved", UpdateExportPathsSQL, clipPath, stillPath, jobID)
}

// MarkInterruptedExports fails every export still in the started state and
// returns how many there were.
func MarkInterruptedExports(db *sql.DB, finishedAt time.Time) (int64, error) {
	res, err := db.Exec(UpdateExportInterruptedSQL, finishedAt.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("mark interrupted exports: %w", err)
	}
	return res.RowsAffected()
}

// SelectExports returns the newest exports first.
func SelectExports(db *sql.DB, limit int) ([]Export, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(SelectExportsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("select exports: %w", err)
	}
	defer rows.Close()

	var exports []Export
	for rows.Next() {
		e, err := scanExport(rows)
		if err != nil {
			return nil, err
		}
		exports = append(exports, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exports: %w", err)
	}
	return exports, nil
}

// SelectExportByJob returns the export for jobID, or nil if there is none.
func SelectExportByJob(db *sql.DB, jobID string) (*Export, error) {
	e, err := scanExport(db.QueryRow(SelectExportByJobSQL, jobID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExport(s scanner) (*Export, error) {
	var (
		e        Export
		created  int64
		finished sql.NullInt64
	)
	err := s.Scan(&e.ID, &e.JobID, &e.Source, &e.Start, &e.End, &e.State, &e.ArtifactName, &e.Bytes,
		&e.ErrorKind, &e.Error, &e.ClipPath, &e.StillPath, &created, &finished)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan export: %w", err)
	}
	e.CreatedAt = time.UnixMilli(created)
	if finished.Valid {
		t := time.UnixMilli(finished.Int64)
		e.FinishedAt = &t
	}
	return &e, nil
}

func execOne(db *sql.DB, what, query string, args ...any) error {
	res, err := db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: no export with that job id", what)
	}
	return nil
}
