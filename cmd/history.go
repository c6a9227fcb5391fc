package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/user/rangeclip/db"
	"github.com/user/rangeclip/logging"
	"github.com/user/rangeclip/pkg/timeutil"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent exports",
	Long:  `List recent exports from the journal, newest first, with their outcome and saved paths.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database, err := db.Open(cfg.DBPath())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer database.Close()

		exports, err := db.NewJournal(database).Recent(historyLimit)
		if err != nil {
			return err
		}
		if len(exports) == 0 {
			fmt.Println("No exports yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "WHEN\tSTATE\tSOURCE\tRANGE\tSIZE\tOUTPUT")
		for _, e := range exports {
			state := e.State
			if e.ErrorKind != "" {
				state += " (" + e.ErrorKind + ")"
			}
			size := "-"
			if e.Bytes > 0 {
				size = humanize.Bytes(uint64(e.Bytes))
			}
			output := e.ClipPath
			if output == "" {
				output = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s-%s\t%s\t%s\n",
				humanize.Time(e.CreatedAt),
				state,
				logging.SanitizePath(e.Source),
				timeutil.FormatTime(e.Start),
				timeutil.FormatTime(e.End),
				size,
				output,
			)
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of exports to show")
}
