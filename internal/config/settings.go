package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultBaseURL              = "http://127.0.0.1:8000"
	defaultTimeout              = 60 * time.Second
	defaultHighlight            = 2500 * time.Millisecond
	defaultEventLogLimit        = 64
	defaultReconnectMaxInterval = 30 * time.Second
	defaultMode                 = "balanced"
)

type Config struct {
	Backend BackendConfig `toml:"backend"`
	Logging LoggingConfig `toml:"logging"`
	Debug   DebugConfig   `toml:"debug"`
	Chat    ChatConfig    `toml:"chat"`
	UI      UIConfig      `toml:"ui"`
}

type BackendConfig struct {
	BaseURL string   `toml:"base_url"`
	Timeout Duration `toml:"timeout"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

type DebugConfig struct {
	StreamDebug bool `toml:"stream_debug"`
}

type ChatConfig struct {
	Mode        string `toml:"mode"`
	TokenSaving bool   `toml:"token_saving"`
}

type UIConfig struct {
	HighlightMS          int      `toml:"highlight_ms"`
	EventLogLimit        int      `toml:"event_log_limit"`
	ReconnectMaxInterval Duration `toml:"reconnect_max_interval"`
}

// Duration reads "30s"-style strings from TOML.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func Default() Config {
	return Config{
		Backend: BackendConfig{
			BaseURL: defaultBaseURL,
			Timeout: Duration(defaultTimeout),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Chat: ChatConfig{
			Mode: defaultMode,
		},
		UI: UIConfig{
			HighlightMS:          int(defaultHighlight / time.Millisecond),
			EventLogLimit:        defaultEventLogLimit,
			ReconnectMaxInterval: Duration(defaultReconnectMaxInterval),
		},
	}
}

// Load reads path over the defaults. An empty path means ConfigPath; a missing
// file yields the defaults.
func Load(path string) (Config, error) {
	resolved, err := resolveConfigPath(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	if err := readTOML(resolved, &cfg); err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", resolved, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, err := url.ParseRequestURI(c.BaseURL()); err != nil {
		return fmt.Errorf("backend.base_url: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(c.Chat.Mode)) {
	case "", "fast", "balanced", "thorough":
	default:
		return fmt.Errorf("chat.mode: unknown mode %q", c.Chat.Mode)
	}
	return nil
}

func (c Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c Config) BaseURL() string {
	base := strings.TrimSpace(c.Backend.BaseURL)
	if base == "" {
		return defaultBaseURL
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return strings.TrimRight(base, "/")
}

func (c Config) Timeout() time.Duration {
	if c.Backend.Timeout <= 0 {
		return defaultTimeout
	}
	return time.Duration(c.Backend.Timeout)
}

func (c Config) LogLevel() string {
	level := strings.TrimSpace(c.Logging.Level)
	if level == "" {
		return "info"
	}
	return level
}

func (c Config) StreamDebugEnabled() bool {
	return c.Debug.StreamDebug
}

func (c Config) ChatMode() string {
	mode := strings.ToLower(strings.TrimSpace(c.Chat.Mode))
	if mode == "" {
		return defaultMode
	}
	return mode
}

func (c Config) Highlight() time.Duration {
	if c.UI.HighlightMS <= 0 {
		return defaultHighlight
	}
	return time.Duration(c.UI.HighlightMS) * time.Millisecond
}

func (c Config) EventLogLimit() int {
	if c.UI.EventLogLimit <= 0 {
		return defaultEventLogLimit
	}
	return c.UI.EventLogLimit
}

func (c Config) ReconnectMaxInterval() time.Duration {
	if c.UI.ReconnectMaxInterval <= 0 {
		return defaultReconnectMaxInterval
	}
	return time.Duration(c.UI.ReconnectMaxInterval)
}

func readTOML(path string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return toml.Unmarshal(data, out)
}
