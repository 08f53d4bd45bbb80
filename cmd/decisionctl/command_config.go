package main

import (
	"errors"
	"strings"

	"decisionctl/internal/config"

	"github.com/spf13/cobra"
)

const (
	configFormatJSON = "json"
	configFormatTOML = "toml"
)

func newConfigCmd(state *cli) *cobra.Command {
	var (
		defaults bool
		format   string
	)
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration (or the defaults)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resolved, err := resolveConfigFormat(format)
			if err != nil {
				return err
			}
			cfg := state.cfg
			if defaults {
				cfg = config.Default()
			}
			if resolved == configFormatJSON {
				return writeJSON(cmd.OutOrStdout(), cfg)
			}
			data, err := cfg.Encode()
			if err != nil {
				return err
			}
			if len(data) == 0 || data[len(data)-1] != '\n' {
				data = append(data, '\n')
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().BoolVar(&defaults, "defaults", false, "print default config values")
	cmd.Flags().StringVar(&format, "format", configFormatTOML, "output format: json|toml")
	return cmd
}

func resolveConfigFormat(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", configFormatTOML:
		return configFormatTOML, nil
	case configFormatJSON:
		return configFormatJSON, nil
	default:
		return "", errors.New("invalid format: must be json or toml")
	}
}
