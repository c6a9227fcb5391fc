package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/rangeclip/tui"
)

const loadTimeout = 30 * time.Second

var openOutDir string

var openCmd = &cobra.Command{
	Use:   "open [video-file-or-url]",
	Short: "Open a source in the interactive range picker",
	Long: `Open a video file or stream URL in mpv and start the interactive range picker.
Without an argument the picker asks for a source. Logs go to the data directory
because the terminal belongs to the picker.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if openOutDir != "" {
			cfg.OutputDir = openOutDir
		}

		a, err := newApp(cfg, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		if len(args) == 1 {
			fmt.Printf("Opening: %s\n", args[0])
			ctx, cancel := context.WithTimeout(cmd.Context(), loadTimeout)
			err := a.sess.Load(ctx, args[0])
			cancel()
			if err != nil {
				return err
			}
		}

		return tui.Run(a.sess, tui.Options{
			OutputDir: cfg.OutputDir,
			Saver:     a.journal,
			Logger:    a.log,
		})
	},
}

func init() {
	openCmd.Flags().StringVarP(&openOutDir, "out", "o", "", "directory for clips and stills (default: next to the source)")
}
