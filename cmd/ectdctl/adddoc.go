package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ectdforge/internal/model"
	"ectdforge/internal/service"
)

var (
	addDocTitle   string
	addDocContext string
)

var addDocCmd = &cobra.Command{
	Use:   "add-doc <submission-id> <source-path>",
	Short: "Hash a source file, store its content, and attach it to a submission",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine(cmd)
		if err != nil {
			return err
		}
		defer eng.Close()

		doc, err := eng.svc.Ingest(cmd.Context(), service.IngestInput{
			SubmissionID: args[0],
			SourcePath:   args[1],
			Title:        addDocTitle,
			ContextOfUse: model.ContextOfUse(addDocContext),
		})
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), doc.ID)
		return nil
	},
}

func init() {
	addDocCmd.Flags().StringVar(&addDocTitle, "title", "", "document title (required)")
	addDocCmd.Flags().StringVar(&addDocContext, "context", "", "context of use: cover-letter, product-labeling, clinical-dataset, or generic (required)")
	addDocCmd.MarkFlagRequired("title")
	addDocCmd.MarkFlagRequired("context")
	rootCmd.AddCommand(addDocCmd)
}
