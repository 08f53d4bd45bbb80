package main

import (
	"context"

	"decisionctl/internal/app"
	"decisionctl/internal/client"
	"decisionctl/internal/config"
	"decisionctl/internal/logging"
	"decisionctl/internal/types"
)

type clientFactory func(cfg config.Config, logger logging.Logger) (commandClient, error)

type commandClient interface {
	app.API
	WorkSessionHistory(ctx context.Context, projectID string, limit int) ([]types.WorkSession, error)
	BaseURL() string
}

var _ commandClient = (*client.Client)(nil)

func newBackendClient(cfg config.Config, logger logging.Logger) (commandClient, error) {
	return client.New(cfg.BaseURL(),
		client.WithTimeout(cfg.Timeout()),
		client.WithLogger(logging.Component(logger, "client")),
		client.WithStreamDebug(cfg.StreamDebugEnabled()),
	), nil
}
