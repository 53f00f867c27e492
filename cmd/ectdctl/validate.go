package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ectdforge/internal/validation"
)

var validateCmd = &cobra.Command{
	Use:   "validate <submission-id>",
	Short: "Run the validation rule set over a submission",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine(cmd)
		if err != nil {
			return err
		}
		defer eng.Close()

		findings, err := eng.validator.Validate(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if len(findings) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "validation passed")
			return nil
		}
		for _, f := range findings {
			fmt.Fprintln(cmd.OutOrStdout(), f.String())
		}
		if validation.HasErrors(findings) {
			return fmt.Errorf("validation failed with errors")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
