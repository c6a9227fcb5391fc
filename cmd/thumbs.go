package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/user/rangeclip/logging"
	"github.com/user/rangeclip/pkg/export"
	"github.com/user/rangeclip/pkg/timeutil"
	"github.com/user/rangeclip/session"
	"github.com/user/rangeclip/thumbnail"
)

var thumbsFlags struct {
	start string
	end   string
	out   string
}

var thumbsCmd = &cobra.Command{
	Use:   "thumbs <video-file-or-url>",
	Short: "Write overview or range preview thumbnails as JPEG files",
	Long: `Sample thumbnails from a source and write them as JPEG files. Without a
range the evenly spaced overview is written; with --start and --end the range
preview is written instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ranged := thumbsFlags.start != "" || thumbsFlags.end != ""
		var start, end float64
		if ranged {
			var err error
			if start, err = timeutil.ParseTimeToSeconds(thumbsFlags.start); err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
			if end, err = timeutil.ParseTimeToSeconds(thumbsFlags.end); err != nil {
				return fmt.Errorf("invalid --end: %w", err)
			}
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if thumbsFlags.out != "" {
			cfg.OutputDir = thumbsFlags.out
		}
		a, err := newApp(cfg, logging.NewLogger(cfg.LogLevel, os.Stderr))
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		loadCtx, cancel := context.WithTimeout(ctx, loadTimeout)
		err = a.sess.Load(loadCtx, args[0])
		cancel()
		if err != nil {
			return err
		}
		if a.sess.Range().Duration <= 0 {
			return errors.New("source duration is unknown; cannot place thumbnails")
		}

		want := thumbnail.KindOverview
		if ranged {
			want = thumbnail.KindPreview
			if a.sess.Select(start, end) == 0 {
				a.sess.RefreshPreview()
			}
		}
		set, err := waitForSet(ctx, a.sess, want)
		if err != nil {
			return err
		}

		locator := a.sess.Source().Info().Locator
		written := 0
		for i, t := range set.Thumbnails {
			if t.Err != nil {
				fmt.Printf("✗ %s: %v\n", timeutil.FormatPrecise(t.Offset), t.Err)
				continue
			}
			path := export.ThumbPath(cfg.OutputDir, locator, set.Kind.String(), i+1)
			if err := export.Save(path, t.Data); err != nil {
				return err
			}
			fmt.Printf("✓ %s  %s\n", timeutil.FormatPrecise(t.Offset), path)
			written++
		}
		fmt.Printf("Wrote %d of %d thumbnails\n", written, set.Len())
		return nil
	},
}

func init() {
	thumbsCmd.Flags().StringVar(&thumbsFlags.start, "start", "", "range start for a preview")
	thumbsCmd.Flags().StringVar(&thumbsFlags.end, "end", "", "range end for a preview")
	thumbsCmd.Flags().StringVarP(&thumbsFlags.out, "out", "o", "", "output directory (default: working directory)")
	thumbsCmd.MarkFlagsRequiredTogether("start", "end")
}

// waitForSet applies session events until a set of kind arrives.
func waitForSet(ctx context.Context, s *session.Session, kind thumbnail.Kind) (thumbnail.Set, error) {
	for {
		select {
		case ev := <-s.Events():
			if s.Apply(ev) && ev.Kind == session.EventThumbnails && ev.Thumbnails.Kind == kind {
				return ev.Thumbnails, nil
			}
		case <-ctx.Done():
			return thumbnail.Set{}, ctx.Err()
		}
	}
}
