package main

import (
	"context"
	"fmt"

	"decisionctl/internal/client"
	"decisionctl/internal/sanitize"
	"decisionctl/internal/types"
	"decisionctl/internal/worksession"

	"github.com/spf13/cobra"
)

func newWorkCmd(state *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "work",
		Short: "Manage the project's work session",
	}
	cmd.AddCommand(
		newWorkStartCmd(state),
		newWorkStatusCmd(state),
		newWorkSendCmd(state),
		newWorkEndCmd(state),
		newWorkHistoryCmd(state),
	)
	return cmd
}

func newWorkStartCmd(state *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "start <task>",
		Short: "Start a work session for a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := state.project(cmd.Context())
			if err != nil {
				return err
			}
			machine := worksession.New()
			if session, err := state.api.ActiveWorkSession(cmd.Context(), project.ID); err != nil {
				return err
			} else if session != nil {
				machine.Restore(*session, nil)
			}
			task, err := machine.BeginStart(joinArgs(args), true)
			if err != nil {
				return err
			}
			resp, err := state.api.StartWorkSession(cmd.Context(), project.ID, task)
			if err != nil {
				machine.FailStart()
				return err
			}
			machine.CompleteStart(resp.SessionID, task)
			fmt.Fprintln(cmd.OutOrStdout(), resp.SessionID)
			return nil
		},
	}
}

func newWorkStatusCmd(state *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active work session and its messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			project, machine, err := activeSession(cmd.Context(), state, true)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			session, ok := machine.Session()
			if !ok {
				fmt.Fprintf(out, "no active work session in %s\n", project.DisplayName())
				return nil
			}
			fmt.Fprintf(out, "%s  %s  started %s\n", session.ID, sanitize.Line(session.TaskDescription), ago(session.CreatedAt))
			for _, msg := range machine.Messages() {
				fmt.Fprintf(out, "[%s] %s\n", msg.Role, sanitize.Text(msg.Content))
			}
			return nil
		},
	}
}

func newWorkSendCmd(state *cli) *cobra.Command {
	var tokenSaving bool
	cmd := &cobra.Command{
		Use:   "send <message>",
		Short: "Send a message inside the active work session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, machine, err := activeSession(cmd.Context(), state, false)
			if err != nil {
				return err
			}
			message, err := machine.BeginSend(joinArgs(args))
			if err != nil {
				return err
			}
			sessionID := machine.SessionID()
			req := client.WorkMessageRequest{
				Message:     message.Content,
				Mode:        state.mode(),
				TokenSaving: tokenSaving || state.cfg.Chat.TokenSaving,
			}
			resp, err := state.api.SendWorkMessage(cmd.Context(), project.ID, sessionID, req)
			if err != nil {
				machine.FailSend(sessionID)
				return err
			}
			machine.CompleteSend(sessionID, resp.AssistantText, resp.Debug.MemoryUsed)
			fmt.Fprintln(cmd.OutOrStdout(), sanitize.Text(resp.AssistantText))
			printDebugFooter(cmd.OutOrStdout(), resp.Debug)
			return nil
		},
	}
	cmd.Flags().BoolVar(&tokenSaving, "token-saving", false, "ask the backend to compress context")
	return cmd
}

func newWorkEndCmd(state *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "end",
		Short: "End the active work session and extract its records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			project, machine, err := activeSession(cmd.Context(), state, false)
			if err != nil {
				return err
			}
			sessionID, err := machine.End()
			if err != nil {
				return err
			}
			resp, err := state.api.EndWorkSession(cmd.Context(), project.ID, sessionID)
			if err != nil {
				machine.FailEnd(sessionID)
				return fmt.Errorf("end work session %s: %w", types.ShortID(sessionID), err)
			}
			machine.CompleteEnd(sessionID)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ended %s · %d records created\n", sessionID, resp.MemoriesCreated)
			if resp.Summary != "" {
				fmt.Fprintln(out, resp.Summary)
			}
			return nil
		},
	}
}

func newWorkHistoryCmd(state *cli) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past work sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			project, err := state.project(cmd.Context())
			if err != nil {
				return err
			}
			sessions, err := state.api.WorkSessionHistory(cmd.Context(), project.ID, limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), sessions)
			}
			printSessions(cmd.OutOrStdout(), sessions)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum sessions to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

// activeSession loads the backend's active session into a machine. With
// optional unset a missing session is an error.
func activeSession(ctx context.Context, state *cli, optional bool) (*types.Project, *worksession.Machine, error) {
	project, err := state.project(ctx)
	if err != nil {
		return nil, nil, err
	}
	session, err := state.api.ActiveWorkSession(ctx, project.ID)
	if err != nil {
		return nil, nil, err
	}
	machine := worksession.New()
	if session == nil {
		if optional {
			return project, machine, nil
		}
		return nil, nil, worksession.ErrNoActiveSession
	}
	history, err := state.api.WorkSessionMessages(ctx, project.ID, session.ID)
	if err != nil {
		return nil, nil, err
	}
	machine.Restore(*session, history)
	return project, machine, nil
}
