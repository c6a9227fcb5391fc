package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/user/rangeclip/capture"
	"github.com/user/rangeclip/logging"
	"github.com/user/rangeclip/pkg/export"
	"github.com/user/rangeclip/pkg/timeutil"
	"github.com/user/rangeclip/session"
)

// stillWait bounds waiting for the preview frame saved next to a headless export.
const stillWait = 30 * time.Second

var exportFlags struct {
	start string
	end   string
	out   string
	still bool
}

var exportCmd = &cobra.Command{
	Use:   "export <video-file-or-url>",
	Short: "Capture a range without the interactive picker",
	Long: `Capture the range --start to --end of a source into a clip. Times are
HH:MM:SS, MM:SS or seconds. The range is clamped to the source and to the
configured maximum span. Capture runs at playback speed.`,
	Example: `  rangeclip export match.mp4 --start 12:30 --end 13:10
  rangeclip export https://example.com/stream.m3u8 --start 0 --end 45 --out clips/ --still`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start, err := timeutil.ParseTimeToSeconds(exportFlags.start)
		if err != nil {
			return fmt.Errorf("invalid --start: %w", err)
		}
		end, err := timeutil.ParseTimeToSeconds(exportFlags.end)
		if err != nil {
			return fmt.Errorf("invalid --end: %w", err)
		}
		if end <= start {
			return errors.New("--end must be after --start")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if exportFlags.out != "" {
			cfg.OutputDir = exportFlags.out
		}
		a, err := newApp(cfg, logging.NewLogger(cfg.LogLevel, os.Stderr))
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return runExport(ctx, a, args[0], start, end, exportFlags.still)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFlags.start, "start", "", "range start")
	exportCmd.Flags().StringVar(&exportFlags.end, "end", "", "range end")
	exportCmd.Flags().StringVarP(&exportFlags.out, "out", "o", "", "output directory (default: next to the source)")
	exportCmd.Flags().BoolVar(&exportFlags.still, "still", false, "also save a PNG frame from the range")
	_ = exportCmd.MarkFlagRequired("start")
	_ = exportCmd.MarkFlagRequired("end")
}

func runExport(ctx context.Context, a *app, locator string, start, end float64, still bool) error {
	loadCtx, cancel := context.WithTimeout(ctx, loadTimeout)
	err := a.sess.Load(loadCtx, locator)
	cancel()
	if err != nil {
		return err
	}
	if a.sess.Range().Duration <= 0 {
		return errors.New("source duration is unknown; cannot place the range")
	}

	if a.sess.Select(start, end) == 0 && still {
		a.sess.RefreshPreview()
	}
	r := a.sess.Range()
	if r.Start != start || r.End != end {
		fmt.Printf("Range adjusted to %s → %s\n", timeutil.FormatPrecise(r.Start), timeutil.FormatPrecise(r.End))
	}

	jobID, err := a.sess.Export()
	if err != nil {
		return err
	}
	fmt.Printf("Capturing %s → %s (%.1fs)\n", timeutil.FormatTime(r.Start), timeutil.FormatTime(r.End), r.Span())

	snap, err := waitForJob(ctx, a.sess, jobID)
	fmt.Println()
	if err != nil {
		return err
	}
	if snap.State != capture.StateDone {
		return fmt.Errorf("export failed: %w", snap.Err)
	}

	art := snap.Artifact
	clipPath := export.BuildClipPath(a.cfg.OutputDir, locator, art.Range, filepath.Ext(art.Name))
	if err := export.Save(clipPath, art.Data); err != nil {
		return err
	}
	fmt.Printf("✓ Clip saved: %s (%s)\n", clipPath, humanize.Bytes(uint64(len(art.Data))))

	stillPath := ""
	if still {
		stillPath, err = saveStill(ctx, a.sess, clipPath)
		if err != nil {
			a.log.Warn("still not saved", "error", err)
			fmt.Printf("✗ Still not saved: %v\n", err)
		} else {
			fmt.Printf("✓ Still saved: %s\n", stillPath)
		}
	}
	if err := a.journal.Saved(jobID, clipPath, stillPath); err != nil {
		a.log.Warn("journal save", "job_id", jobID, "error", err)
	}
	return nil
}

// waitForJob applies session events until jobID is terminal.
func waitForJob(ctx context.Context, s *session.Session, jobID string) (capture.Snapshot, error) {
	for {
		select {
		case ev := <-s.Events():
			if !s.Apply(ev) || ev.Kind != session.EventCapture || ev.Capture.JobID != jobID {
				continue
			}
			snap := ev.Capture
			fmt.Printf("\r%-10s %3.0f%%  %8s", snap.State, snap.Progress, humanize.Bytes(uint64(snap.Bytes)))
			if snap.State.Terminal() {
				return snap, nil
			}
		case <-ctx.Done():
			return capture.Snapshot{}, ctx.Err()
		}
	}
}

// saveStill waits for the range preview and writes its first good frame
// next to the clip.
func saveStill(ctx context.Context, s *session.Session, clipPath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, stillWait)
	defer cancel()
	for s.Preview().Len() == 0 {
		select {
		case ev := <-s.Events():
			s.Apply(ev)
		case <-ctx.Done():
			return "", fmt.Errorf("no preview frame: %w", ctx.Err())
		}
	}
	pick := 0
	for i, t := range s.Preview().Thumbnails {
		if t.Err == nil {
			pick = i
			break
		}
	}
	still, err := s.Still(pick)
	if err != nil {
		return "", err
	}
	path := export.StillPath(clipPath)
	if err := export.Save(path, still.Data); err != nil {
		return "", err
	}
	return path, nil
}
