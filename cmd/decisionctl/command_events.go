package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"decisionctl/internal/eventstream"
	"decisionctl/internal/logging"
	"decisionctl/internal/sanitize"
	"decisionctl/internal/types"

	"github.com/spf13/cobra"
)

func newEventsCmd(state *cli) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Follow the project's pipeline events until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			project, err := state.project(cmd.Context())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			channel := eventstream.NewChannel(state.api,
				eventstream.WithLogger(logging.Component(state.logger, "stream")),
				eventstream.WithReconnectInterval(0, state.cfg.ReconnectMaxInterval()),
			)
			defer channel.Disconnect()
			events := channel.Connect(ctx, project.ID)

			seen := 0
			for {
				select {
				case <-ctx.Done():
					return nil
				case event, ok := <-events:
					if !ok {
						return nil
					}
					if event.EventType == types.EventConnected {
						fmt.Fprintf(cmd.ErrOrStderr(), "connected to %s\n", project.DisplayName())
						continue
					}
					if err := printEvent(cmd.OutOrStdout(), event, time.Now()); err != nil {
						state.logger.Warn("event payload dropped", logging.F("type", string(event.EventType)), logging.Err(err))
						continue
					}
					seen++
					if count > 0 && seen >= count {
						return nil
					}
				}
			}
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 0, "exit after this many events")
	return cmd
}

func printEvent(out io.Writer, event types.PipelineEvent, at time.Time) error {
	entry, err := eventstream.Present(event)
	if err != nil {
		return err
	}
	line := fmt.Sprintf("%s %-18s %s", at.Format("15:04:05"), event.EventType, sanitize.Line(entry.Message))
	if entry.Tier != "" {
		line += " [" + entry.Tier + "]"
	}
	fmt.Fprintln(out, line)
	if entry.Detail != "" {
		fmt.Fprintln(out, "  "+sanitize.Line(entry.Detail))
	}
	var pills []string
	for _, pill := range entry.Pills {
		if pill.ID != "" {
			pills = append(pills, strings.TrimSpace(pill.Type+" "+types.ShortID(pill.ID)))
		} else {
			pills = append(pills, sanitize.Line(pill.Label))
		}
	}
	if label := entry.OverflowLabel(); label != "" {
		pills = append(pills, label)
	}
	if entry.NoRecords {
		pills = append(pills, "no new records")
	}
	if len(pills) > 0 {
		fmt.Fprintln(out, "  "+strings.Join(pills, " · "))
	}
	return nil
}
