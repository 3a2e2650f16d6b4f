package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override, e.g.
// GEIGER_SERVER_HTTP_PORT or GEIGER_COUNTER_PULSE_SOURCE.
const EnvPrefix = "GEIGER"

// Default values applied when fields are absent from the config file.
const (
	DefaultLogLevel     = "info"
	DefaultPulseSource  = "sim"
	DefaultSimCPS       = 0.5
	DefaultMetric       = "geiger_pulses_total"
	DefaultPollInterval = 200 * time.Millisecond
	DefaultActuator     = "bell"
	DefaultHTTPPort     = 8080
	DefaultAPIKeyHeader = "X-API-Key"
)

// Config is the top-level configuration.
type Config struct {
	// LogLevel is one of: debug | info | warn | error.
	LogLevel string `yaml:"log_level" envconfig:"LOG_LEVEL"`

	// LogFile, when set, receives the JSON log instead of stderr.
	LogFile string `yaml:"log_file" envconfig:"LOG_FILE"`

	Counter CounterConfig `yaml:"counter" envconfig:"COUNTER"`
	Server  ServerConfig  `yaml:"server" envconfig:"SERVER"`
}

// CounterConfig holds the settings of the sampling core's collaborators.
type CounterConfig struct {
	Pulse PulseConfig `yaml:"pulse" envconfig:"PULSE"`

	// Actuator is the click output: bell | log | none.
	Actuator string `yaml:"actuator" envconfig:"ACTUATOR"`

	// Terminal enables the full-screen terminal display and keyboard input.
	Terminal bool `yaml:"terminal" envconfig:"TERMINAL"`
}

// PulseConfig selects and configures where pulse edges come from.
type PulseConfig struct {
	// Source is one of: sim | serial | prometheus.
	Source string `yaml:"source" envconfig:"SOURCE"`

	// SimCPS is the mean pulse rate of the sim source.
	SimCPS float64 `yaml:"sim_cps" envconfig:"SIM_CPS"`

	// Device is the character device read by the serial source. Every byte
	// received is one pulse.
	Device string `yaml:"device" envconfig:"DEVICE"`

	// Endpoint is the Prometheus text endpoint polled by the prometheus source.
	Endpoint string `yaml:"endpoint" envconfig:"ENDPOINT"`

	// Metric is the counter whose increase is replayed as pulses.
	Metric string `yaml:"metric" envconfig:"METRIC"`

	// PollInterval controls how often Endpoint is scraped.
	PollInterval time.Duration `yaml:"poll_interval" envconfig:"POLL_INTERVAL"`

	// Auth configures how the prometheus source authenticates to Endpoint.
	Auth AuthConfig `yaml:"auth" envconfig:"AUTH"`

	// TLS holds optional TLS dial options.
	TLS TLSConfig `yaml:"tls" envconfig:"TLS"`
}

// AuthConfig specifies the authentication mode for a remote pulse endpoint.
type AuthConfig struct {
	// Mode is one of: mtls | apikey | bearer | basic | none.
	Mode string `yaml:"mode" envconfig:"MODE"`

	// mTLS fields, used when Mode == "mtls".
	CertFile string `yaml:"cert_file" envconfig:"CERT_FILE"`
	KeyFile  string `yaml:"key_file" envconfig:"KEY_FILE"`
	CAFile   string `yaml:"ca_file" envconfig:"CA_FILE"`

	// Header is the HTTP header the API key is sent in (Mode == "apikey").
	Header string `yaml:"header" envconfig:"HEADER"`
	// KeyEnv is the name of the environment variable that holds the key value.
	KeyEnv string `yaml:"key_env" envconfig:"KEY_ENV"`

	// TokenEnv names the variable holding the bearer token (Mode == "bearer").
	TokenEnv string `yaml:"token_env" envconfig:"TOKEN_ENV"`

	// Basic auth fields, used when Mode == "basic".
	Username    string `yaml:"username" envconfig:"USERNAME"`
	PasswordEnv string `yaml:"password_env" envconfig:"PASSWORD_ENV"`
}

// Key returns the API key value resolved from the environment.
// Returns empty string if KeyEnv is unset or the variable is not found.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// Token returns the bearer token value resolved from the environment.
func (a AuthConfig) Token() string {
	if a.TokenEnv == "" {
		return ""
	}
	return os.Getenv(a.TokenEnv)
}

// Password returns the basic-auth password resolved from the environment.
func (a AuthConfig) Password() string {
	if a.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(a.PasswordEnv)
}

// TLSConfig holds TLS dial options for the prometheus source.
type TLSConfig struct {
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify" envconfig:"INSECURE_SKIP_VERIFY"`
}

// ServerConfig holds the HTTP surface settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API, WebSocket stream and /metrics
	// listen on. 0 disables the HTTP server.
	HTTPPort int `yaml:"http_port" envconfig:"HTTP_PORT"`

	// Auth configures REST and WebSocket authentication.
	Auth ServerAuthConfig `yaml:"auth" envconfig:"AUTH"`

	// Alerts holds alerting rule and webhook delivery configuration.
	Alerts AlertsConfig `yaml:"alerts" envconfig:"ALERTS"`
}

// ServerAuthConfig configures API authentication.
type ServerAuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode" envconfig:"MODE"`

	// KeyEnv is the name of the environment variable holding the expected key.
	KeyEnv string `yaml:"key_env" envconfig:"KEY_ENV"`

	// Header is the request header carrying the key. Defaults to X-API-Key.
	Header string `yaml:"header" envconfig:"HEADER"`
}

// Key returns the server API key resolved from the environment.
func (a ServerAuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// AlertsConfig holds all alerting rules and webhook targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines a threshold condition on the live rates.
type AlertRule struct {
	// Name is the human-readable alert identifier, used as the deduplication key.
	Name string `yaml:"name"`

	// Condition is an expression like "cpm > 100" or "cps >= 5".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration after an alert fires.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable holding the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Level parses LogLevel. Validation guarantees it succeeds on a loaded Config.
func (c *Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Load reads and parses the YAML config file at path, then applies
// GEIGER_* environment overrides. An empty path skips the file and yields
// defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Counter: CounterConfig{
			Pulse: PulseConfig{
				Source:       DefaultPulseSource,
				SimCPS:       DefaultSimCPS,
				Metric:       DefaultMetric,
				PollInterval: DefaultPollInterval,
			},
			Actuator: DefaultActuator,
			Terminal: true,
		},
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
			Auth:     ServerAuthConfig{Header: DefaultAPIKeyHeader},
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	var l slog.Level
	if err := l.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("log_level: unknown level %q", cfg.LogLevel)
	}

	p := cfg.Counter.Pulse
	switch p.Source {
	case "sim":
		if p.SimCPS < 0 {
			return fmt.Errorf("counter.pulse.sim_cps must not be negative")
		}
	case "serial":
		if p.Device == "" {
			return fmt.Errorf("counter.pulse.device is required for the serial source")
		}
	case "prometheus":
		if p.Endpoint == "" {
			return fmt.Errorf("counter.pulse.endpoint is required for the prometheus source")
		}
		if p.Metric == "" {
			return fmt.Errorf("counter.pulse.metric is required for the prometheus source")
		}
		if p.PollInterval <= 0 {
			return fmt.Errorf("counter.pulse.poll_interval must be positive")
		}
	default:
		return fmt.Errorf("counter.pulse.source: unknown source %q", p.Source)
	}
	switch p.Auth.Mode {
	case "mtls", "apikey", "bearer", "basic", "none", "":
	default:
		return fmt.Errorf("counter.pulse.auth: unknown auth mode %q", p.Auth.Mode)
	}

	switch cfg.Counter.Actuator {
	case "bell", "log", "none", "":
	default:
		return fmt.Errorf("counter.actuator: unknown actuator %q", cfg.Counter.Actuator)
	}

	if cfg.Server.HTTPPort < 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d out of range", cfg.Server.HTTPPort)
	}
	switch cfg.Server.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth: unknown auth mode %q", cfg.Server.Auth.Mode)
	}
	if cfg.Server.Auth.Header == "" {
		cfg.Server.Auth.Header = DefaultAPIKeyHeader
	}

	for i, r := range cfg.Server.Alerts.Rules {
		if r.Name == "" {
			return fmt.Errorf("server.alerts.rules[%d]: name is required", i)
		}
		if r.Condition == "" {
			return fmt.Errorf("server.alerts.rules[%d] %q: condition is required", i, r.Name)
		}
	}
	return nil
}
