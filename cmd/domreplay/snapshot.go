package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/domreplay"
	"github.com/hazyhaar/domreplay/internal/idgen"
)

var (
	snapshotMode     string
	snapshotDuration time.Duration
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <url>",
	Short: "Record one page and print its segments as JSON lines",
	Long: `Record a single page with the default configuration and write every
segment to stdout.

Example:
  domreplay snapshot --mode http https://example.com`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := domreplay.DefaultConfig()
		page := domreplay.PageConfig{
			ID:       idgen.New(),
			URL:      args[0],
			Mode:     snapshotMode,
			Duration: snapshotDuration,
		}
		cfg.Pages = []domreplay.PageConfig{page}
		if err := cfg.Validate(); err != nil {
			return err
		}

		out := domreplay.NewJSONLinesSink(os.Stdout)
		defer out.Close()
		s := domreplay.NewSession(cfg, out, domreplay.WithLogger(logger))
		defer s.Close()
		return s.RecordPage(cmd.Context(), page)
	},
}

func init() {
	snapshotCmd.Flags().StringVar(&snapshotMode, "mode", "auto", "acquisition mode: browser, http or auto")
	snapshotCmd.Flags().DurationVar(&snapshotDuration, "duration", 0, "how long to keep recording after the first snapshot")
}
