package main

import (
	"errors"
	"fmt"
	"strings"

	"decisionctl/internal/conflict"
	"decisionctl/internal/sanitize"
	"decisionctl/internal/types"

	"github.com/spf13/cobra"
)

func newConflictCmd(state *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conflict",
		Short: "Review conflicts between a proposed and an existing record",
	}
	cmd.AddCommand(newConflictResolveCmd(state))
	return cmd
}

func newConflictResolveCmd(state *cli) *cobra.Command {
	var (
		existing   string
		typeName   string
		statement  string
		resolution string
		importance float64
		confidence float64
	)
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Keep the existing record or override it with the proposed one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			disposition, ok := conflict.ParseDisposition(resolution)
			if !ok {
				return conflict.ErrBadDisposition
			}
			memoryType, ok := types.ParseMemoryType(typeName)
			if !ok {
				return fmt.Errorf("unknown record type %q", typeName)
			}
			if strings.TrimSpace(statement) == "" {
				return errors.New("--statement is required")
			}
			project, err := state.project(cmd.Context())
			if err != nil {
				return err
			}
			existingRecord, err := resolveRecord(cmd, state, project.ID, existing)
			if err != nil {
				return err
			}

			var flow conflict.Flow
			flow.Open(conflict.Candidate{
				Existing: conflict.View{
					ID:        existingRecord.ID,
					Type:      existingRecord.Type,
					Statement: existingRecord.CanonicalStatement,
				},
				Proposed: conflict.View{
					Type:       memoryType,
					Statement:  strings.TrimSpace(statement),
					Importance: importance,
					Confidence: confidence,
				},
			})
			outcome, err := flow.Submit(cmd.Context(), state.api, project.ID, disposition)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "resolved: %s\n", outcome.Disposition)
			if resp := outcome.Response; resp != nil {
				if resp.KeptMemory != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "kept %s  %s\n", types.ShortID(resp.KeptMemory.ID), sanitize.Line(resp.KeptMemory.Statement))
				}
				if resp.DisputedMemory != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "disputed %s  %s\n", types.ShortID(resp.DisputedMemory.ID), sanitize.Line(resp.DisputedMemory.Statement))
				}
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&existing, "existing", "", "existing record id or citation")
	flags.StringVar(&typeName, "type", "", "type of the proposed record")
	flags.StringVar(&statement, "statement", "", "statement of the proposed record")
	flags.StringVar(&resolution, "resolution", "", "keep|override")
	flags.Float64Var(&importance, "importance", conflict.DefaultImportance, "importance of the proposed record")
	flags.Float64Var(&confidence, "confidence", conflict.DefaultConfidence, "confidence of the proposed record")
	_ = cmd.MarkFlagRequired("existing")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("resolution")
	return cmd
}
