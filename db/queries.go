package db

import (
	_ "embed"
)

// Export queries

//go:embed sql/insert_export.sql
var InsertExportSQL string

//go:embed sql/update_export_done.sql
var UpdateExportDoneSQL string

//go:embed sql/update_export_failed.sql
var UpdateExportFailedSQL string

//go:embed sql/update_export_paths.sql
var UpdateExportPathsSQL string

//go:embed sql/select_exports.sql
var SelectExportsSQL string

//go:embed sql/select_export_by_job.sql
var SelectExportByJobSQL string

//go:embed sql/update_export_interrupted.sql
var UpdateExportInterruptedSQL string
