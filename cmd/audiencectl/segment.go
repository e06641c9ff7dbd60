package main

import (
	"github.com/spf13/cobra"

	"github.com/ignite/audience-sizer/internal/extraction"
)

func newSegmentCmd(opts *rootOptions) *cobra.Command {
	var (
		category string
		schema   string
	)

	cmd := &cobra.Command{
		Use:   "segment <business-description>",
		Short: "Ask the language model for a segment matching a business description",
		Example: `  audiencectl segment --category fitness --schema residents \
    "Family climbing gym with toddler classes"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, a, err := opts.load()
			if err != nil {
				return err
			}
			if err := a.WithLLM(cmd.Context(), cfg.LLM); err != nil {
				return err
			}

			seg, err := a.Extractor.Extract(cmd.Context(), extraction.Request{
				BusinessDescription: args[0],
				BusinessCategory:    category,
				SchemaName:          schema,
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), seg)
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Business category")
	cmd.Flags().StringVar(&schema, "schema", "residents", "Schema whose columns are offered to the model")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}
