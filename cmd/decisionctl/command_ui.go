package main

import (
	"io"

	"decisionctl/internal/app"
	"decisionctl/internal/config"
	"decisionctl/internal/logging"

	"github.com/spf13/cobra"
)

func newUICmd(state *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "ui",
		Short: "Run the terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			level := logging.ParseLevel(state.cfg.LogLevel())
			logger, closer, err := state.wiring.openUILog(level)
			if err != nil {
				logger = logging.Nop()
			} else if closer != nil {
				defer closer.Close()
			}
			// The UI owns the terminal, so nothing may log to stderr.
			state.logger = logger
			api, err := state.client()
			if err != nil {
				return err
			}
			return state.wiring.runUI(api, app.Options{
				Logger:               logger,
				Mode:                 state.mode(),
				TokenSaving:          state.cfg.Chat.TokenSaving,
				Highlight:            state.cfg.Highlight(),
				EventLogLimit:        state.cfg.EventLogLimit(),
				ReconnectMaxInterval: state.cfg.ReconnectMaxInterval(),
				InitialProject:       state.settings.GetString(settingProject),
				BaseURL:              api.BaseURL(),
			})
		},
	}
}

func openUILog(level logging.Level) (logging.Logger, io.Closer, error) {
	path, err := config.UILogPath()
	if err != nil {
		return nil, nil, err
	}
	return logging.OpenFile(path, level)
}
