package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/rangeclip/deps"
)

var Version = "0.1.0"

// configPath is the --config flag shared by every command.
var configPath string

var rootCmd = &cobra.Command{
	Use:   "rangeclip",
	Short: "Pick a range of a video and capture it as a clip",
	Long: `rangeclip plays a video or stream in mpv, lets you pick a bounded time
range on a terminal timeline with live thumbnail previews, and records exactly
that range into a downloadable clip.

Features:
  - Drag or nudge range handles frame by frame
  - Overview and range preview thumbnails
  - Live capture of the selected range to fragmented MP4
  - Still frames saved as PNG
  - Export history stored in SQLite`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("rangeclip version %s\n", Version)
	},
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check system dependencies",
	Long:  `Check that mpv and ffmpeg are installed and that ffmpeg can encode H.264.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Println("Checking dependencies...")
		fmt.Println()

		allGood := true
		binaries := map[string]string{
			deps.Mpv.Name:    cfg.MpvBinary,
			deps.Ffmpeg.Name: cfg.FfmpegBinary,
		}
		for _, d := range deps.All() {
			path, err := d.Resolve(binaries[d.Name])
			if err != nil {
				fmt.Printf("✗ %s: NOT FOUND (%s)\n", d.Name, d.Purpose)
				fmt.Printf("  Install from: %s\n", d.InstallURL)
				allGood = false
				continue
			}
			fmt.Printf("✓ %s: OK (%s)\n", d.Name, path)

			if d.Name == deps.Ffmpeg.Name {
				ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
				ok, err := deps.HasEncoder(ctx, path, "libx264")
				cancel()
				switch {
				case err != nil:
					fmt.Printf("✗ ffmpeg encoders: %v\n", err)
					allGood = false
				case !ok:
					fmt.Println("✗ ffmpeg: built without libx264, clips cannot be encoded")
					allGood = false
				default:
					fmt.Println("✓ ffmpeg: libx264 available")
				}
			}
		}

		fmt.Println()
		if !allGood {
			return errors.New("some dependencies are missing; install them to use all features")
		}
		fmt.Println("All dependencies are installed!")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/rangeclip/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(thumbsCmd)
	rootCmd.AddCommand(historyCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
