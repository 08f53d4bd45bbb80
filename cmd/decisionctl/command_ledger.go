package main

import (
	"fmt"
	"io"

	"decisionctl/internal/citation"
	"decisionctl/internal/ledger"
	"decisionctl/internal/logging"
	"decisionctl/internal/sanitize"
	"decisionctl/internal/types"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
)

const ledgerStatementWidth = 72

func newLedgerCmd(state *cli) *cobra.Command {
	var (
		typeName string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Print the project's records grouped by type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var filter types.MemoryType
			if typeName != "" {
				parsed, ok := types.ParseMemoryType(typeName)
				if !ok {
					return fmt.Errorf("unknown record type %q", typeName)
				}
				filter = parsed
			}
			project, err := state.project(cmd.Context())
			if err != nil {
				return err
			}
			cache := ledger.NewCache(state.api, logging.Component(state.logger, "ledger"))
			cache.Reset(project.ID)
			snap, err := cache.Refresh(cmd.Context(), project.ID)
			if err != nil {
				return err
			}
			if asJSON {
				records := snap.Records()
				if filter != "" {
					records = snap.ByType(filter)
				}
				return writeJSON(cmd.OutOrStdout(), records)
			}
			printLedger(cmd.OutOrStdout(), project, snap, filter)
			return nil
		},
	}
	cmd.Flags().StringVarP(&typeName, "type", "t", "", "only show one record type")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func printLedger(out io.Writer, project *types.Project, snap *ledger.Snapshot, filter types.MemoryType) {
	fmt.Fprintf(out, "%s · %s total · %s active · %s disputed\n",
		project.DisplayName(),
		humanize.Comma(int64(snap.TotalCount)),
		humanize.Comma(int64(snap.ActiveCount)),
		humanize.Comma(int64(snap.DisputedCount)))
	counts := snap.Counts()
	for _, group := range types.MemoryTypes() {
		if filter != "" && group != filter {
			continue
		}
		records := snap.ByType(group)
		if len(records) == 0 {
			continue
		}
		fmt.Fprintf(out, "\n%s (%d)\n", group.Label(), counts[group])
		for _, record := range records {
			printRecordRow(out, record)
		}
	}
}

func printRecordRow(out io.Writer, record types.Memory) {
	marker := " "
	if record.Disputed() {
		marker = "!"
	}
	statement := runewidth.Truncate(sanitize.Line(record.CanonicalStatement), ledgerStatementWidth, "…")
	fmt.Fprintf(out, " %s %s  %s  %s\n", marker, record.ShortID(), runewidth.FillRight(statement, ledgerStatementWidth), ago(record.CreatedAt))
}

func newResolveCmd(state *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <citation>",
		Short: "Resolve a citation token such as [a1b2c3d4] or [decision-2] to a record",
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
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n%s\n", record.ID, record.Type, record.Status, sanitize.Text(record.CanonicalStatement))
			return nil
		},
	}
}

// resolveRecord accepts bracketed or bare tokens and full ids.
func resolveRecord(cmd *cobra.Command, state *cli, projectID, raw string) (types.Memory, error) {
	cache := ledger.NewCache(state.api, logging.Component(state.logger, "ledger"))
	cache.Reset(projectID)
	resolver := citation.NewResolver(cache, logging.Component(state.logger, "citation"))
	return resolver.Resolve(cmd.Context(), raw)
}
