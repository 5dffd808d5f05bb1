package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Store error policies for persistence failures after a collection run.
const (
	StorePolicyFail     = "fail"
	StorePolicyContinue = "continue"
)

// Config holds all configuration for the application
type Config struct {
	GitHubToken      string
	PRBaseBranch     string
	RequestTimeout   time.Duration
	LogLevel         string
	StoreErrorPolicy string
}

// NewConfig creates a new Config instance
func NewConfig() *Config {
	return &Config{}
}

// Load loads configuration from environment variables
func (c *Config) Load() error {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	// Read .env file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Required fields
	c.GitHubToken = viper.GetString("GITHUB_TOKEN")
	if c.GitHubToken == "" {
		return fmt.Errorf("GITHUB_TOKEN is required")
	}

	// Optional fields with defaults
	c.PRBaseBranch = viper.GetString("PR_BASE_BRANCH")
	if c.PRBaseBranch == "" {
		c.PRBaseBranch = "master"
	}

	timeoutSecs := viper.GetInt("REQUEST_TIMEOUT")
	if timeoutSecs == 0 {
		timeoutSecs = 360
	}
	c.RequestTimeout = time.Duration(timeoutSecs) * time.Second

	c.LogLevel = viper.GetString("LOG_LEVEL")
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	c.StoreErrorPolicy = viper.GetString("STORE_ERROR_POLICY")
	if c.StoreErrorPolicy == "" {
		c.StoreErrorPolicy = StorePolicyFail
	}
	if c.StoreErrorPolicy != StorePolicyFail && c.StoreErrorPolicy != StorePolicyContinue {
		return fmt.Errorf("invalid STORE_ERROR_POLICY %q: must be %q or %q",
			c.StoreErrorPolicy, StorePolicyFail, StorePolicyContinue)
	}

	return nil
}
