package main

import (
	"fmt"
	"io"

	"decisionctl/internal/logging"
	"decisionctl/internal/sanitize"
	"decisionctl/internal/types"

	"github.com/spf13/cobra"
)

func newMemoryCmd(state *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect or supersede a single record",
	}
	cmd.AddCommand(newMemoryShowCmd(state), newMemoryDeleteCmd(state))
	return cmd
}

func newMemoryShowCmd(state *cli) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id|citation>",
		Short: "Show a record with its versions and evidence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := state.project(cmd.Context())
			if err != nil {
				return err
			}
			resolved, err := resolveRecord(cmd, state, project.ID, args[0])
			if err != nil {
				return err
			}
			record, err := state.api.Memory(cmd.Context(), project.ID, resolved.ID)
			if err != nil {
				return err
			}
			if len(record.Versions) == 0 {
				versions, err := state.api.MemoryVersions(cmd.Context(), project.ID, record.ID)
				if err != nil {
					state.logger.Warn("memory versions unavailable", logging.F("memory", record.ID), logging.Err(err))
				} else {
					record.Versions = versions
				}
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), record)
			}
			printRecord(cmd.OutOrStdout(), *record)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func printRecord(out io.Writer, record types.Memory) {
	fmt.Fprintf(out, "%s  %s  %s\n", record.Type.Label(), record.ID, record.Status)
	fmt.Fprintln(out, sanitize.Text(record.CanonicalStatement))
	fmt.Fprintf(out, "importance %.2f · confidence %.2f · created %s\n", record.Importance, record.Confidence, ago(record.CreatedAt))
	if len(record.Versions) > 0 {
		fmt.Fprintf(out, "\nVersions (%d)\n", len(record.Versions))
		for _, version := range record.Versions {
			fmt.Fprintf(out, "  v%d  %s  (%s, %s)\n", version.VersionNumber, sanitize.Line(version.Statement), orDash(version.ChangedBy), ago(version.CreatedAt))
		}
	}
	if len(record.EvidenceLinks) > 0 {
		fmt.Fprintf(out, "\nEvidence (%d)\n", len(record.EvidenceLinks))
		for _, link := range record.EvidenceLinks {
			fmt.Fprintf(out, "  %s:%s  %q\n", link.SourceType, link.SourceRef, sanitize.Line(link.Quote))
		}
	}
}

func newMemoryDeleteCmd(state *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id|citation>",
		Short: "Supersede a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := state.project(cmd.Context())
			if err != nil {
				return err
			}
			record, err := resolveRecord(cmd, state, project.ID, args[0])
			if err != nil {
				return err
			}
			resp, err := state.api.DeleteMemory(cmd.Context(), project.ID, record.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", orDash(resp.Status), record.ID)
			return nil
		},
	}
}
