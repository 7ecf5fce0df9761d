package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config is the complete runtime configuration.
type Config struct {
	Auth      AuthConfig      `yaml:"auth" envconfig:"AUTH"`
	Transport TransportConfig `yaml:"transport" envconfig:"TRANSPORT"`
	Verify    VerifyConfig    `yaml:"verify" envconfig:"VERIFY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
}

// AuthConfig controls credential resolution behavior. The credential
// values themselves live in the environment and are read per operation.
type AuthConfig struct {
	// Mode forces an auth mode for every device: auto, key or password.
	// auto defers to the stored per-device hint. Equivalent env:
	// F5LM_AUTH_MODE, with plain F5LM_AUTH honored as a shorthand.
	Mode string `yaml:"mode" envconfig:"MODE" validate:"oneof=auto key password"`
	// DefaultKeyPath is offered when key auth is selected and no explicit
	// key path is configured for the device.
	DefaultKeyPath string `yaml:"default_key_path" envconfig:"DEFAULT_KEY_PATH" validate:"required"`
}

// TransportConfig carries network timeouts and ports for both transports.
type TransportConfig struct {
	ConnectTimeout time.Duration `yaml:"connect_timeout" envconfig:"CONNECT_TIMEOUT" validate:"gt=0"`
	// CallTimeout bounds read-only calls (license fetch).
	CallTimeout time.Duration `yaml:"call_timeout" envconfig:"CALL_TIMEOUT" validate:"gt=0"`
	// MutationTimeout bounds heavyweight calls (install, dossier, reload).
	MutationTimeout time.Duration `yaml:"mutation_timeout" envconfig:"MUTATION_TIMEOUT" validate:"gt=0"`
	RESTPort        int           `yaml:"rest_port" envconfig:"REST_PORT" validate:"min=1,max=65535"`
	SSHPort         int           `yaml:"ssh_port" envconfig:"SSH_PORT" validate:"min=1,max=65535"`
	// LoginProvider is sent in the management API authentication request.
	LoginProvider string `yaml:"login_provider" envconfig:"LOGIN_PROVIDER" validate:"required"`
}

// VerifyConfig tunes the post-mutation verification poller.
type VerifyConfig struct {
	MaxWait  time.Duration `yaml:"max_wait" envconfig:"MAX_WAIT" validate:"gt=0"`
	Interval time.Duration `yaml:"interval" envconfig:"INTERVAL" validate:"gt=0"`
}

// LoggingConfig mirrors the logging setup knobs.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Output string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	File   string `yaml:"file" envconfig:"FILE"`
}

// PathsConfig holds overridable locations; empty values fall back to the
// executable-relative layout from GetPaths.
type PathsConfig struct {
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR"`
	StoreFile  string `yaml:"store_file" envconfig:"STORE_FILE"`
	ExportsDir string `yaml:"exports_dir" envconfig:"EXPORTS_DIR"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Auth: AuthConfig{
			Mode:           "auto",
			DefaultKeyPath: defaultKeyPath(),
		},
		Transport: TransportConfig{
			ConnectTimeout:  10 * time.Second,
			CallTimeout:     15 * time.Second,
			MutationTimeout: 60 * time.Second,
			RESTPort:        443,
			SSHPort:         22,
			LoginProvider:   "tmos",
		},
		Verify: VerifyConfig{
			MaxWait:  3 * time.Minute,
			Interval: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "both",
			File:   "", // resolved to logs dir at init
		},
	}
}

// Load builds the configuration: defaults, then optional config.yaml,
// then F5LM_* environment variables.
func Load() (*Config, error) {
	// Lab settings may sit in a .env next to the tool; absence is fine.
	_ = godotenv.Load()

	cfg := Default()

	if path := findConfigFile(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	// envconfig only touches fields whose variables are set, so the env
	// layer overrides file and defaults without erasing them.
	if err := envconfig.Process("F5LM", cfg); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}

	// F5LM_AUTH=key|password|auto is the documented shorthand for the
	// forced-mode override.
	if mode := os.Getenv("F5LM_AUTH"); mode != "" {
		cfg.Auth.Mode = mode
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints via the shared validator.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("config validation failed: %s violates %q", f.Namespace(), f.Tag())
		}
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// findConfigFile checks the conventional locations for config.yaml;
// F5LM_CONFIG_FILE pins an explicit path.
func findConfigFile() string {
	if path := os.Getenv("F5LM_CONFIG_FILE"); path != "" {
		return path
	}
	for _, candidate := range []string{"config.yaml", "configs/config.yaml"} {
		if FileExists(candidate) {
			return candidate
		}
	}
	return ""
}

func defaultKeyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ssh/id_rsa"
	}
	return home + "/.ssh/id_rsa"
}
