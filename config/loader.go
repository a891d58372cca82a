package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigFile is the name of the config file inside the data directory
	ConfigFile = "config.json"
	// DefaultDataDir is used when KBC_DATADIR is unset
	DefaultDataDir = "/data/"
	// DefaultEnvFile is loaded when present and no env file is given
	DefaultEnvFile = ".env"
)

// Environment variables read at startup.
const (
	EnvDataDir  = "KBC_DATADIR"
	EnvURL      = "KBC_URL"
	EnvToken    = "KBC_TOKEN"
	EnvBranchID = "KBC_BRANCHID"
)

// Environment holds the settings taken from environment variables.
type Environment struct {
	DataDir  string
	URL      string
	Token    string
	BranchID string
}

// Validate checks that the storage API can be reached and that the run is
// not a branch run.
func (e Environment) Validate() error {
	if e.Token == "" {
		return NewUserError("storage API token is missing from environment variable %s", EnvToken)
	}
	if e.URL == "" {
		return NewUserError("storage API URL is missing from environment variable %s", EnvURL)
	}
	if e.BranchID != "" {
		return NewUserError("component cannot run in branch")
	}
	return nil
}

// Loader handles configuration loading
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// LoadEnvironment reads the KBC_* variables. Variables from envFile are
// loaded first without overriding ones already set; an empty envFile loads
// .env from the working directory when it exists. dataDirOverride, when
// set, takes precedence over KBC_DATADIR.
func (l *Loader) LoadEnvironment(envFile, dataDirOverride string) (Environment, error) {
	switch {
	case envFile != "":
		if err := godotenv.Load(envFile); err != nil {
			return Environment{}, NewUserError("load env file %s: %v", envFile, err)
		}
		l.logger.Debug("Loaded env file", slog.String("path", envFile))
	default:
		if _, err := os.Stat(DefaultEnvFile); err == nil {
			if err := godotenv.Load(DefaultEnvFile); err != nil {
				l.logger.Warn("Failed to load env file", slog.String("path", DefaultEnvFile), slog.String("error", err.Error()))
			}
		}
	}

	env := Environment{
		DataDir:  os.Getenv(EnvDataDir),
		URL:      os.Getenv(EnvURL),
		Token:    os.Getenv(EnvToken),
		BranchID: os.Getenv(EnvBranchID),
	}
	if dataDirOverride != "" {
		env.DataDir = dataDirOverride
	}
	if env.DataDir == "" {
		env.DataDir = DefaultDataDir
	}

	if err := env.Validate(); err != nil {
		return Environment{}, err
	}
	return env, nil
}

// Load reads config.json from dataDir over the defaults and validates it.
func (l *Loader) Load(dataDir string) (*Config, error) {
	path := filepath.Join(dataDir, ConfigFile)
	l.logger.Debug("Loading config", slog.String("path", path))

	config, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFromFile decodes a config file over DefaultConfig. JSON files are
// read with the YAML decoder.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, NewUserError("config file %s not found", path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, NewUserError("failed to parse config file %s: %v", path, err)
	}

	return config, nil
}
