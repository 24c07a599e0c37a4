package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	// DatabaseURL is the postgres connection string for the planning store.
	DatabaseURL string `yaml:"databaseURL" validate:"required"`

	// ClaimBaseURL is the public base URL of the claim self-service server;
	// claim links mailed to providers are built against it.
	ClaimBaseURL string `yaml:"claimBaseURL" validate:"required,url"`

	// ClaimListenAddr is the listen address of the claim server (claimd).
	ClaimListenAddr string `yaml:"claimListenAddr,omitempty" validate:"omitempty,hostname_port"`

	// FellowJobTypeCode is the job type whose visa holders are restricted to
	// their home hospital during matching.
	FellowJobTypeCode string `yaml:"fellowJobTypeCode,omitempty"`

	// GmailSender is the From address used when mailing claim links.
	GmailSender string `yaml:"gmailSender,omitempty" validate:"omitempty,email"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates the configuration from strikeplan_config.yaml
// It looks for the config file in the current directory first, then in the user's home directory
func Load() (*Config, error) {
	return LoadWithEnv("")
}

// LoadWithEnv loads and validates the configuration with an environment suffix.
// For example, env="test" will look for "strikeplan_config.test.yaml".
func LoadWithEnv(env string) (*Config, error) {
	configPath, err := findConfigFile(env)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// Validate validates the configuration struct
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.ClaimListenAddr == "" {
		cfg.ClaimListenAddr = "localhost:8084"
	}
	if cfg.FellowJobTypeCode == "" {
		cfg.FellowJobTypeCode = "FEL"
	}
}

// findConfigFile searches for the config file in current directory and home directory.
// If env is provided, it adds it as an extension (e.g. "strikeplan_config.test.yaml").
func findConfigFile(env string) (string, error) {
	configFileName := "strikeplan_config.yaml"
	if env != "" {
		configFileName = "strikeplan_config." + env + ".yaml"
	}

	// Check current directory
	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, configFileName)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("config file %s not found in current directory or home directory", configFileName)
}
