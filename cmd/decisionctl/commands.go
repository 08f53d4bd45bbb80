package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"decisionctl/internal/app"
	"decisionctl/internal/config"
	"decisionctl/internal/logging"
	"decisionctl/internal/types"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	errProjectRequired = errors.New("several projects exist; pass --project")
	errUnknownProject  = errors.New("project not found")
	errNoProjects      = errors.New("no projects on the backend")
)

type commandWiring struct {
	stdout     io.Writer
	stderr     io.Writer
	newClient  clientFactory
	loadConfig func(path string) (config.Config, error)
	runUI      func(api app.API, opts app.Options) error
	openUILog  func(level logging.Level) (logging.Logger, io.Closer, error)
	version    string
}

func defaultCommandWiring(stdout, stderr io.Writer) commandWiring {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return commandWiring{
		stdout:     stdout,
		stderr:     stderr,
		newClient:  newBackendClient,
		loadConfig: config.Load,
		runUI:      app.Run,
		openUILog:  openUILog,
		version:    buildVersion(),
	}
}

// cli is the state shared by every subcommand once flags are parsed.
type cli struct {
	wiring   commandWiring
	settings *viper.Viper
	cfg      config.Config
	logger   logging.Logger
	api      commandClient
}

func newRootCmd(wiring commandWiring) *cobra.Command {
	state := &cli{wiring: wiring, settings: viper.New(), logger: logging.Nop()}
	root := &cobra.Command{
		Use:           "decisionctl",
		Short:         "Terminal client for a decision ledger backend",
		Long:          "decisionctl talks to a decision ledger backend: quick updates, work sessions, the record ledger, live pipeline events and conflict review.",
		Version:       wiring.version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return state.load(cmd)
		},
	}
	root.SetOut(wiring.stdout)
	root.SetErr(wiring.stderr)

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default ~/.decisionctl/config.toml)")
	flags.String("base-url", "", "backend base URL")
	flags.StringP("project", "p", "", "project id or name")
	flags.String("mode", "", "quality mode: fast|balanced|thorough")
	flags.String("log-level", "", "log level: debug|info|warn|error")
	flags.Bool("stream-debug", false, "log push stream frames")

	root.AddCommand(
		newUICmd(state),
		newProjectsCmd(state),
		newLedgerCmd(state),
		newResolveCmd(state),
		newEventsCmd(state),
		newAskCmd(state),
		newWorkCmd(state),
		newConflictCmd(state),
		newMemoryCmd(state),
		newConfigCmd(state),
		newVersionCmd(state),
	)
	return root
}

func (c *cli) load(cmd *cobra.Command) error {
	if err := bindSettings(c.settings, cmd.Flags()); err != nil {
		return err
	}
	cfg, err := c.wiring.loadConfig(c.settings.GetString(settingConfig))
	if err != nil {
		return err
	}
	cfg, err = overlaySettings(cfg, c.settings)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = logging.New(c.wiring.stderr, logging.ParseLevel(cfg.LogLevel()))
	return nil
}

func (c *cli) client() (commandClient, error) {
	if c.api != nil {
		return c.api, nil
	}
	api, err := c.wiring.newClient(c.cfg, c.logger)
	if err != nil {
		return nil, err
	}
	c.api = api
	return api, nil
}

func (c *cli) mode() types.QualityMode {
	mode, ok := types.ParseQualityMode(c.cfg.ChatMode())
	if !ok {
		return types.QualityBalanced
	}
	return mode
}

// project resolves --project against the backend's list by id or name. With
// no flag a lone project is picked.
func (c *cli) project(ctx context.Context) (*types.Project, error) {
	api, err := c.client()
	if err != nil {
		return nil, err
	}
	projects, err := api.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	ref := strings.TrimSpace(c.settings.GetString(settingProject))
	if ref == "" {
		switch len(projects) {
		case 0:
			return nil, errNoProjects
		case 1:
			return projects[0], nil
		}
		return nil, errProjectRequired
	}
	for _, project := range projects {
		if project.ID == ref || strings.EqualFold(project.Name, ref) {
			return project, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", errUnknownProject, ref)
}

func newVersionCmd(state *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), state.wiring.version)
			return err
		},
	}
}
