package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment variable read by LoadEnv.
const EnvPrefix = "RESTCLIENT"

// Env holds settings read from RESTCLIENT_* environment variables.
type Env struct {
	BaseURL       string        `envconfig:"BASE_URL"`
	Token         string        `envconfig:"TOKEN"`
	Auth          string        `envconfig:"AUTH"`
	AuthHeader    string        `envconfig:"AUTH_HEADER"`
	AuthPrefix    string        `envconfig:"AUTH_PREFIX"`
	Transport     string        `envconfig:"TRANSPORT"`
	Codec         string        `envconfig:"CODEC"`
	Decode        string        `envconfig:"DECODE"`
	Timeout       time.Duration `envconfig:"TIMEOUT"`
	Insecure      bool          `envconfig:"INSECURE"`
	Profile       string        `envconfig:"PROFILE"`
	Output        string        `envconfig:"OUTPUT"`
	NoUpdateCheck bool          `envconfig:"NO_UPDATE_CHECK"`

	// AuthPrefixSet reports whether RESTCLIENT_AUTH_PREFIX is present, since
	// an empty prefix is a valid setting.
	AuthPrefixSet bool `ignored:"true"`
}

// LoadEnv reads RESTCLIENT_* variables.
func LoadEnv() (Env, error) {
	var env Env
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return Env{}, fmt.Errorf("failed to load environment: %w", err)
	}
	_, env.AuthPrefixSet = os.LookupEnv(EnvPrefix + "_AUTH_PREFIX")
	return env, nil
}

// DotEnvPath returns the location of the optional .env file.
func DotEnvPath() string {
	dir, err := userConfigDir()
	if err != nil || dir == "" {
		return ""
	}
	return filepath.Join(dir, serviceName, ".env")
}

// LoadDotEnv loads the .env file at DotEnvPath when present. Variables
// already set in the environment are not overwritten.
func LoadDotEnv() error {
	path := DotEnvPath()
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}
