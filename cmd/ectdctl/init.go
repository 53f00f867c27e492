package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ectdforge/internal/model"
	"ectdforge/internal/service"
)

var (
	initAppNumber string
	initAppType   string
	initApplicant string
	initSequence  int
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new draft submission",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine(cmd)
		if err != nil {
			return err
		}
		defer eng.Close()

		sub, err := eng.svc.Initialize(cmd.Context(), service.InitializeInput{
			ApplicationNumber: initAppNumber,
			ApplicationType:   model.ApplicationType(initAppType),
			ApplicantName:     initApplicant,
			SequenceNumber:    initSequence,
		})
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), sub.ID)
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initAppNumber, "app-number", "", "application number (required)")
	initCmd.Flags().StringVar(&initAppType, "app-type", "", "application type: nda, bla, or ind (required)")
	initCmd.Flags().StringVar(&initApplicant, "applicant", "", "applicant name (required)")
	initCmd.Flags().IntVar(&initSequence, "sequence", 1, "sequence number within the application")
	initCmd.MarkFlagRequired("app-number")
	initCmd.MarkFlagRequired("app-type")
	initCmd.MarkFlagRequired("applicant")
	rootCmd.AddCommand(initCmd)
}
