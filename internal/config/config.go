package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"leadterm/internal/currency"
)

const (
	EnvPrefix  = "LEADTERM"
	appDirName = "leadterm"
	fileName   = "config.yaml"
)

// Submission backends.
const (
	BackendSQLite = "sqlite"
	BackendREST   = "rest"
)

// Geocoder providers.
const (
	GeocoderNominatim = "nominatim"
	GeocoderCatalog   = "catalog"
	GeocoderOff       = "off"
)

// EventsEmbedded runs an in-process NATS server instead of dialing one.
const EventsEmbedded = "embedded"

// Store manages the runtime configuration.
type Store struct {
	path   string
	Config Data
}

// Data represents persisted user preferences.
type Data struct {
	Name           string         `mapstructure:"name" yaml:"name"`
	Timezone       string         `mapstructure:"timezone" yaml:"timezone"`
	Locale         string         `mapstructure:"locale" yaml:"locale"`
	CurrencySymbol string         `mapstructure:"currency-symbol" yaml:"currency-symbol"`
	DataDir        string         `mapstructure:"data-dir" yaml:"data-dir"`
	LogLevel       string         `mapstructure:"log-level" yaml:"log-level"`
	Wizard         WizardConfig   `mapstructure:"wizard" yaml:"wizard"`
	Submit         SubmitConfig   `mapstructure:"submit" yaml:"submit"`
	Geocoder       GeocoderConfig `mapstructure:"geocoder" yaml:"geocoder"`
	Events         EventsConfig   `mapstructure:"events" yaml:"events"`
}

type WizardConfig struct {
	PhoneMinDigits int `mapstructure:"phone-min-digits" yaml:"phone-min-digits"`
	// ValueUnit and RateUnit are "whole" or "cents".
	ValueUnit string `mapstructure:"value-unit" yaml:"value-unit"`
	RateUnit  string `mapstructure:"rate-unit" yaml:"rate-unit"`
}

type SubmitConfig struct {
	Backend string        `mapstructure:"backend" yaml:"backend"`
	Table   string        `mapstructure:"table" yaml:"table"`
	REST    RESTConfig    `mapstructure:"rest" yaml:"rest"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type RESTConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
	Key string `mapstructure:"key" yaml:"key,omitempty"`
}

type GeocoderConfig struct {
	Provider  string `mapstructure:"provider" yaml:"provider"`
	URL       string `mapstructure:"url" yaml:"url"`
	UserAgent string `mapstructure:"user-agent" yaml:"user-agent"`
}

// EventsConfig selects the NATS endpoint. An empty URL disables events.
type EventsConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// boundFlags are read from the command line when present.
var boundFlags = []string{"log-level", "data-dir"}

// Load retrieves the config from path, creating defaults if needed. An empty
// path means DefaultPath. Precedence is flags > LEADTERM_* env > file >
// defaults; flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Store, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for _, name := range boundFlags {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(name, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat config: %w", err)
		}
		if err := writeConfig(path, defaultConfig()); err != nil {
			return nil, err
		}
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Data
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Timezone == "" {
		cfg.Timezone = defaultTimezone()
	}
	if cfg.Name == "" {
		cfg.Name = defaultName()
	}
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir()
	}

	s := &Store{path: path, Config: cfg}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Save writes the current config values to disk.
func (s *Store) Save() error {
	if s == nil {
		return errors.New("nil config store")
	}
	if err := s.Validate(); err != nil {
		return err
	}
	return writeConfig(s.path, s.Config)
}

// Path is the config file location.
func (s *Store) Path() string {
	return s.path
}

// Validate rejects values no component can act on.
func (s *Store) Validate() error {
	c := s.Config
	switch c.Submit.Backend {
	case BackendSQLite:
	case BackendREST:
		if c.Submit.REST.URL == "" {
			return errors.New("submit.rest.url is required for the rest backend")
		}
	default:
		return fmt.Errorf("unknown submit.backend %q", c.Submit.Backend)
	}
	switch c.Geocoder.Provider {
	case GeocoderNominatim, GeocoderCatalog, GeocoderOff:
	default:
		return fmt.Errorf("unknown geocoder.provider %q", c.Geocoder.Provider)
	}
	switch c.LogLevel {
	case "disabled", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log-level %q", c.LogLevel)
	}
	if c.Wizard.PhoneMinDigits < 1 {
		return fmt.Errorf("wizard.phone-min-digits must be positive, got %d", c.Wizard.PhoneMinDigits)
	}
	if _, err := currency.ParseUnit(c.Wizard.ValueUnit); err != nil {
		return fmt.Errorf("wizard.value-unit: %w", err)
	}
	if _, err := currency.ParseUnit(c.Wizard.RateUnit); err != nil {
		return fmt.Errorf("wizard.rate-unit: %w", err)
	}
	if strings.TrimSpace(c.Submit.Table) == "" {
		return errors.New("submit.table is required")
	}
	return nil
}

// DefaultPath returns ~/.config/leadterm/config.yaml, honouring XDG_CONFIG_HOME.
func DefaultPath() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot resolve config directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, appDirName, fileName), nil
}

func setDefaults(v *viper.Viper) {
	d := defaultConfig()
	v.SetDefault("name", d.Name)
	v.SetDefault("timezone", d.Timezone)
	v.SetDefault("locale", d.Locale)
	v.SetDefault("currency-symbol", d.CurrencySymbol)
	v.SetDefault("data-dir", d.DataDir)
	v.SetDefault("log-level", d.LogLevel)
	v.SetDefault("wizard.phone-min-digits", d.Wizard.PhoneMinDigits)
	v.SetDefault("wizard.value-unit", d.Wizard.ValueUnit)
	v.SetDefault("wizard.rate-unit", d.Wizard.RateUnit)
	v.SetDefault("submit.backend", d.Submit.Backend)
	v.SetDefault("submit.table", d.Submit.Table)
	v.SetDefault("submit.rest.url", d.Submit.REST.URL)
	v.SetDefault("submit.rest.key", d.Submit.REST.Key)
	v.SetDefault("submit.timeout", d.Submit.Timeout)
	v.SetDefault("geocoder.provider", d.Geocoder.Provider)
	v.SetDefault("geocoder.url", d.Geocoder.URL)
	v.SetDefault("geocoder.user-agent", d.Geocoder.UserAgent)
	v.SetDefault("events.url", d.Events.URL)
}

func writeConfig(path string, cfg Data) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	bytes, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	// the REST key may live here
	if err := os.WriteFile(path, bytes, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func defaultConfig() Data {
	return Data{
		Name:     defaultName(),
		Timezone: defaultTimezone(),
		Locale:   "pt-BR",
		DataDir:  defaultDataDir(),
		LogLevel: "info",
		Wizard: WizardConfig{
			PhoneMinDigits: 10,
			ValueUnit:      currency.Whole.String(),
			RateUnit:       currency.Whole.String(),
		},
		Submit: SubmitConfig{
			Backend: BackendSQLite,
			Table:   "leads",
			Timeout: 15 * time.Second,
		},
		Geocoder: GeocoderConfig{
			Provider:  GeocoderCatalog,
			URL:       "https://nominatim.openstreetmap.org",
			UserAgent: "leadterm/1.0",
		},
	}
}

func defaultName() string {
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	if runtime.GOOS == "windows" {
		if name := os.Getenv("USERNAME"); name != "" {
			return name
		}
	}
	return "Equipe"
}

func defaultTimezone() string {
	if locName := time.Now().Location().String(); locName != "Local" && locName != "" {
		return locName
	}
	return "America/Sao_Paulo"
}

func defaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".local", "share", appDirName)
}

// Location returns the configured timezone Location, defaulting to UTC on error.
func (s *Store) Location() *time.Location {
	if s == nil {
		return time.UTC
	}
	if loc, err := time.LoadLocation(s.Config.Timezone); err == nil {
		return loc
	}
	return time.UTC
}
