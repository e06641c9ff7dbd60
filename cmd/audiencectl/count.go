package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ignite/audience-sizer/internal/segmentation"
)

func newCountCmd(opts *rootOptions) *cobra.Command {
	var segmentJSON string

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count the audience a segment describes",
		Long: `Reads a segment {"table_name": ..., "filters": {...}} from --segment, or from
stdin when --segment is "-" or empty, validates it and prints the row count.`,
		Example: `  audiencectl count --segment '{"table_name": "resident_core", "filters": {"age": [25, 55], "kids_flag": true}}'
  audiencectl segment --category fitness "climbing gym" | audiencectl count`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = strings.NewReader(segmentJSON)
			if segmentJSON == "" || segmentJSON == "-" {
				in = cmd.InOrStdin()
			}
			seg, err := segmentation.DecodeSegmentResult(in)
			if err != nil {
				return fmt.Errorf("read segment: %w", err)
			}

			_, a, err := opts.load()
			if err != nil {
				return err
			}

			n, err := a.Engine.AudienceSize(cmd.Context(), seg)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}

	cmd.Flags().StringVar(&segmentJSON, "segment", "", `Segment JSON, or "-" for stdin`)
	return cmd
}
