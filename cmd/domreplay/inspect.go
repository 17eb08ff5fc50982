package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/domreplay/inspect"
	"github.com/hazyhaar/domreplay/internal/spool"
)

var (
	inspectSpool string
	inspectTree  bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file | segment-id>",
	Short: "Summarize a stored segment",
	Long: `Decode a compressed segment and print its summary. The argument is a
file holding the segment bytes, or a segment id when --spool is given.

Example:
  domreplay inspect --spool replay.db 0192f0c4-...
  domreplay inspect --tree segment.bin`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		compressed, err := loadSegment(cmd, args[0])
		if err != nil {
			return err
		}
		raw, err := inspect.Decode(compressed)
		if err != nil {
			return err
		}
		if inspectTree {
			recs, err := inspect.Records(raw)
			if err != nil {
				return err
			}
			tree, err := inspect.Rebuild(recs)
			if err != nil {
				return err
			}
			fmt.Print(tree.Render())
			return nil
		}
		sum, err := inspect.Summarize(raw)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	},
}

func loadSegment(cmd *cobra.Command, arg string) ([]byte, error) {
	if inspectSpool == "" {
		return os.ReadFile(arg)
	}
	sp, err := spool.Open(inspectSpool, spool.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	defer sp.Close()
	e, err := sp.Get(cmd.Context(), arg)
	if err != nil {
		return nil, err
	}
	return e.Segment, nil
}

func init() {
	inspectCmd.Flags().StringVar(&inspectSpool, "spool", "", "read the segment from this SQLite spool")
	inspectCmd.Flags().BoolVar(&inspectTree, "tree", false, "rebuild and print the node tree instead of the summary")
}
