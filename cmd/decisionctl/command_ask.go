package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"decisionctl/internal/client"
	"decisionctl/internal/quickchat"
	"decisionctl/internal/sanitize"
	"decisionctl/internal/types"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newAskCmd(state *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <message>",
		Short: "Send one quick update or question and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := quickchat.Validate(joinArgs(args), true)
			if err != nil {
				return err
			}
			project, err := state.project(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := state.api.Chat(cmd.Context(), project.ID, client.ChatRequest{Message: text, Mode: state.mode()})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, sanitize.Text(resp.AssistantText))
			if resp.ViolationChallenge != "" {
				fmt.Fprintln(out, "\n> "+sanitize.Line(resp.ViolationChallenge))
			}
			printDebugFooter(out, resp.Debug)
			if len(resp.MemoriesCreated) > 0 {
				ids := make([]string, 0, len(resp.MemoriesCreated))
				for _, id := range resp.MemoriesCreated {
					ids = append(ids, types.ShortID(id))
				}
				fmt.Fprintln(out, "new records: "+strings.Join(ids, " "))
			}
			return nil
		},
	}
}

func printDebugFooter(out io.Writer, debug types.DebugMetadata) {
	var parts []string
	if debug.ModelTier != "" {
		parts = append(parts, "tier "+debug.ModelTier)
	}
	if debug.LatencyMS > 0 {
		parts = append(parts, (time.Duration(debug.LatencyMS) * time.Millisecond).String())
	}
	parts = append(parts, fmt.Sprintf("%d records used", len(debug.MemoryUsed)))
	if debug.TokensSaved > 0 {
		parts = append(parts, humanize.Comma(int64(debug.TokensSaved))+" tokens saved")
	}
	fmt.Fprintln(out, "-- "+strings.Join(parts, " · "))
	if debug.Violated {
		fmt.Fprintln(out, "-- commitment violated: "+orDash(debug.ViolationDetails))
	}
}
