package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/safety-monitor/internal/api/http/status"
	"github.com/oshokin/safety-monitor/internal/detector/fall"
	"github.com/oshokin/safety-monitor/internal/detector/heartrate"
	"github.com/oshokin/safety-monitor/internal/detector/wearing"
	"github.com/oshokin/safety-monitor/internal/dispatch"
	"github.com/oshokin/safety-monitor/internal/domain/safety"
	"github.com/oshokin/safety-monitor/internal/engine"
	"github.com/oshokin/safety-monitor/internal/location"
	"github.com/oshokin/safety-monitor/internal/logger"
	"github.com/oshokin/safety-monitor/internal/source/mqtt"
	"github.com/oshokin/safety-monitor/internal/source/nats"
)

// Config holds every setting of the monitor and the alert server.
type Config struct {
	// DeviceID identifies the watch in every alert. Defaults to the host name.
	DeviceID string `yaml:"device_id"`
	// UserID identifies the monitored person.
	UserID string `yaml:"user_id"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// DetectorLogLevel overrides LogLevel for the sensor detectors. Empty inherits LogLevel.
	DetectorLogLevel string `yaml:"detector_log_level"`
	// HasPresenceSensor selects the presence based wearing detector.
	HasPresenceSensor bool `yaml:"has_presence_sensor"`
	// Timeout is the duration for network operations and RPC calls.
	Timeout time.Duration `yaml:"timeout"`

	HeartRate heartrate.Config          `yaml:"heart_rate"`
	Fall      fall.Config               `yaml:"fall"`
	Wearing   wearing.Config            `yaml:"wearing"`
	Engine    engine.Config             `yaml:"engine"`
	Contacts  []safety.EmergencyContact `yaml:"contacts"`
	Location  location.Config           `yaml:"location"`

	Sources     Sources       `yaml:"sources"`
	Dispatch    Dispatch      `yaml:"dispatch"`
	Status      status.Config `yaml:"status"`
	AlertServer AlertServer   `yaml:"alert_server"`
}

// Sources configures where sensor samples come from.
type Sources struct {
	MQTT mqtt.Config `yaml:"mqtt"`
	NATS nats.Config `yaml:"nats"`
	// BufferSize is the capacity of each sample channel.
	BufferSize int `yaml:"buffer_size"`
}

// Dispatch configures alert delivery.
type Dispatch struct {
	HTTP  dispatch.HTTPConfig  `yaml:"http"`
	GRPC  dispatch.GRPCConfig  `yaml:"grpc"`
	Redis dispatch.RedisConfig `yaml:"redis"`
	// MaxAttempts is how many times a failed sender is tried. 1 disables retries.
	MaxAttempts int `yaml:"max_attempts"`
	// Backoff is the base delay between attempts.
	Backoff time.Duration `yaml:"backoff"`
	// SendTimeout bounds one delivery attempt.
	SendTimeout time.Duration `yaml:"send_timeout"`
}

// AlertServer configures the alert journal service.
type AlertServer struct {
	// ListenAddress is the gRPC address to bind.
	ListenAddress string `yaml:"listen_address"`
	// JournalFile is the JSON lines journal used when no DSN is set.
	JournalFile string `yaml:"journal_file"`
	// PostgresDSN selects the Postgres journal.
	PostgresDSN string `yaml:"postgres_dsn"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "safety-monitor.yaml"

	// DefaultJournalFilename is the default filename for the alert journal.
	DefaultJournalFilename = "safety-alerts.jsonl"

	// DefaultListenAddress is where the alert server listens by default.
	DefaultListenAddress = ":7443"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errInvalidLogLevel is returned for unknown log levels.
	errInvalidLogLevel = errors.New("invalid log level")
	// errInvalidHeartRateBand is returned when the low threshold is not below the high one.
	errInvalidHeartRateBand = errors.New("low heart rate threshold must be below the high threshold")
	// errContactPhoneRequired is returned for contacts without a phone number.
	errContactPhoneRequired = errors.New("contact phone number must be provided")
	// errUnknownCooldownBypass is returned for unknown event codes in the bypass list.
	errUnknownCooldownBypass = errors.New("unknown event code in cooldown bypass")
)

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		Timeout:   DefaultTimeout,
		HeartRate: heartrate.DefaultConfig(),
		Fall:      fall.DefaultConfig(),
		Wearing:   wearing.DefaultConfig(),
		Engine:    engine.DefaultConfig(),
		Location: location.Config{
			MaxAge: location.DefaultMaxAge,
		},
		Dispatch: Dispatch{
			MaxAttempts: 1,
			Backoff:     time.Second,
			SendTimeout: dispatch.DefaultSendTimeout,
		},
		Status: status.DefaultConfig(),
		AlertServer: AlertServer{
			ListenAddress: DefaultListenAddress,
			JournalFile:   DefaultJournalFilename,
		},
	}
}

// Load reads configuration from the provided path over the defaults and
// validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Contacts and credentials live here.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings and fills in missing defaults.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.DeviceID == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("resolve device id: %w", err)
		}

		settings.DeviceID = hostname
	}

	if settings.LogLevel == "" {
		settings.LogLevel = "info"
	}

	if _, ok := logger.ParseLogLevel(settings.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errInvalidLogLevel, settings.LogLevel)
	}

	if settings.DetectorLogLevel != "" {
		if _, ok := logger.ParseLogLevel(settings.DetectorLogLevel); !ok {
			return fmt.Errorf("%w: detector %q", errInvalidLogLevel, settings.DetectorLogLevel)
		}
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if err := validateEngine(&settings.Engine); err != nil {
		return err
	}

	for i, contact := range settings.Contacts {
		if contact.PhoneNumber == "" {
			return fmt.Errorf("%w: contact #%d", errContactPhoneRequired, i+1)
		}
	}

	if err := validateEndpoints(settings); err != nil {
		return err
	}

	if settings.Dispatch.MaxAttempts <= 0 {
		settings.Dispatch.MaxAttempts = 1
	}

	if settings.Dispatch.GRPC.Timeout <= 0 {
		settings.Dispatch.GRPC.Timeout = settings.Timeout
	}

	if settings.Sources.MQTT.Timeout <= 0 {
		settings.Sources.MQTT.Timeout = settings.Timeout
	}

	if settings.Sources.NATS.Timeout <= 0 {
		settings.Sources.NATS.Timeout = settings.Timeout
	}

	if settings.AlertServer.JournalFile == "" {
		settings.AlertServer.JournalFile = DefaultJournalFilename
	}

	return nil
}

func validateEngine(cfg *engine.Config) error {
	if cfg.LowThreshold >= cfg.HighThreshold {
		return fmt.Errorf("%w: low %d, high %d", errInvalidHeartRateBand, cfg.LowThreshold, cfg.HighThreshold)
	}

	for _, code := range cfg.CooldownBypass {
		if !code.Valid() {
			return fmt.Errorf("%w: %q", errUnknownCooldownBypass, code)
		}
	}

	return nil
}

func validateEndpoints(settings *Config) error {
	if settings.AlertServer.ListenAddress != "" {
		if _, _, err := net.SplitHostPort(settings.AlertServer.ListenAddress); err != nil {
			return fmt.Errorf("invalid alert server listen address: %w", err)
		}
	}

	if settings.Dispatch.GRPC.Enabled() {
		if _, _, err := net.SplitHostPort(settings.Dispatch.GRPC.Address); err != nil {
			return fmt.Errorf("invalid alert server address: %w", err)
		}
	}

	if settings.Dispatch.HTTP.Enabled() {
		if _, err := url.ParseRequestURI(settings.Dispatch.HTTP.BaseURL); err != nil {
			return fmt.Errorf("invalid alert endpoint URI: %w", err)
		}
	}

	if settings.Sources.MQTT.Enabled() {
		if _, err := url.Parse(settings.Sources.MQTT.Broker); err != nil {
			return fmt.Errorf("invalid MQTT broker: %w", err)
		}
	}

	return nil
}
