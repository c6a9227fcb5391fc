package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/dustin/go-humanize"

	"github.com/user/rangeclip/capture"
	"github.com/user/rangeclip/pkg/timeutil"
	"github.com/user/rangeclip/tui/layout"
	"github.com/user/rangeclip/tui/styles"
)

// ExportProgressState is the capture job shown in the export box.
type ExportProgressState struct {
	Job capture.Snapshot
	// SavedPath is where the finished clip was written.
	SavedPath string
}

// ExportProgress renders the capture job: a progress bar, the job state and
// either the saved path or the failure with a retry hint.
func ExportProgress(state ExportProgressState, bar progress.Model, width int) string {
	if width < 10 || state.Job.JobID == "" {
		return ""
	}
	job := state.Job
	inner := width - 4
	bar.Width = max(4, inner-2)

	lines := []string{" " + bar.ViewAs(job.Progress/100)}

	r := job.Range
	info := fmt.Sprintf(" %s  %s → %s  %s",
		job.State.String(),
		timeutil.FormatPrecise(r.Start),
		timeutil.FormatPrecise(r.End),
		humanize.Bytes(uint64(job.Bytes)))
	lines = append(lines, styles.PrimaryText.Render(info))

	switch {
	case job.State == capture.StateDone && state.SavedPath != "":
		lines = append(lines, styles.Success.Render(" saved "+layout.Truncate(state.SavedPath, inner-7)))
	case job.State == capture.StateDone:
		lines = append(lines, styles.Success.Render(" done"))
	case job.Err != nil:
		msg := " " + job.Err.Error()
		if job.Err.Retryable() {
			msg += " (press e to retry)"
		}
		lines = append(lines, styles.Warning.Render(layout.Truncate(msg, inner)))
	}
	return RenderInfoBox("Export", lines, width)
}
