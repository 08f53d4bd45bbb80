package main

import (
	"fmt"
	"strings"
	"time"

	"decisionctl/internal/config"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	settingConfig      = "config"
	settingProject     = "project"
	settingBaseURL     = "backend.base_url"
	settingTimeout     = "backend.timeout"
	settingMode        = "chat.mode"
	settingTokenSaving = "chat.token_saving"
	settingLogLevel    = "logging.level"
	settingStreamDebug = "debug.stream_debug"
)

type settingBinding struct {
	key  string
	flag string
	env  string
}

// Flags win over DECISIONCTL_* variables, which win over the config file.
var settingBindings = []settingBinding{
	{key: settingConfig, flag: "config", env: "DECISIONCTL_CONFIG"},
	{key: settingProject, flag: "project", env: "DECISIONCTL_PROJECT"},
	{key: settingBaseURL, flag: "base-url", env: "DECISIONCTL_BASE_URL"},
	{key: settingTimeout, env: "DECISIONCTL_TIMEOUT"},
	{key: settingMode, flag: "mode", env: "DECISIONCTL_MODE"},
	{key: settingTokenSaving, env: "DECISIONCTL_TOKEN_SAVING"},
	{key: settingLogLevel, flag: "log-level", env: "DECISIONCTL_LOG_LEVEL"},
	{key: settingStreamDebug, flag: "stream-debug", env: "DECISIONCTL_STREAM_DEBUG"},
}

func bindSettings(v *viper.Viper, flags *pflag.FlagSet) error {
	for _, binding := range settingBindings {
		if err := v.BindEnv(binding.key, binding.env); err != nil {
			return fmt.Errorf("bind %s: %w", binding.env, err)
		}
		if binding.flag == "" || flags == nil {
			continue
		}
		flag := flags.Lookup(binding.flag)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(binding.key, flag); err != nil {
			return fmt.Errorf("bind --%s: %w", binding.flag, err)
		}
	}
	return nil
}

func overlaySettings(cfg config.Config, v *viper.Viper) (config.Config, error) {
	if v.IsSet(settingBaseURL) {
		cfg.Backend.BaseURL = strings.TrimSpace(v.GetString(settingBaseURL))
	}
	if v.IsSet(settingTimeout) {
		raw := strings.TrimSpace(v.GetString(settingTimeout))
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			return config.Config{}, fmt.Errorf("DECISIONCTL_TIMEOUT: invalid duration %q", raw)
		}
		cfg.Backend.Timeout = config.Duration(timeout)
	}
	if v.IsSet(settingMode) {
		cfg.Chat.Mode = v.GetString(settingMode)
	}
	if v.IsSet(settingTokenSaving) {
		cfg.Chat.TokenSaving = v.GetBool(settingTokenSaving)
	}
	if v.IsSet(settingLogLevel) {
		cfg.Logging.Level = v.GetString(settingLogLevel)
	}
	if v.IsSet(settingStreamDebug) {
		cfg.Debug.StreamDebug = v.GetBool(settingStreamDebug)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
