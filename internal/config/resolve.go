package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/restclient/restclient/internal/api"
)

// DefaultTimeout bounds each request when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// Overrides are explicit settings, typically from command-line flags. Empty
// fields defer to the environment and then to the profile.
type Overrides struct {
	Profile    string
	BaseURL    string
	Token      string
	Auth       string
	AuthHeader string
	// AuthPrefix is nil when not given; an empty prefix is a valid value.
	AuthPrefix *string
	Transport  string
	Codec      string
	Decode     string
	Timeout    time.Duration
	Insecure   bool
}

// Settings are the effective client settings.
type Settings struct {
	Profile   string
	BaseURL   string
	Token     string
	Auth      api.AuthHeaderSettings
	Transport string
	Codec     string
	Decode    api.DecodePolicy
	Timeout   time.Duration
	Insecure  bool
}

// Resolve merges overrides, RESTCLIENT_* variables and the active profile.
func Resolve(ov Overrides) (Settings, error) {
	env, err := LoadEnv()
	if err != nil {
		return Settings{}, err
	}
	return ResolveWith(ov, env)
}

// ResolveWith is Resolve with an already loaded environment. Precedence is
// overrides, then env, then the profile, then defaults.
func ResolveWith(ov Overrides, env Env) (Settings, error) {
	name := firstNonEmpty(ov.Profile, env.Profile)
	explicit := name != ""
	if !explicit {
		current, err := CurrentProfile()
		if err != nil {
			slog.Debug("current profile unavailable", "error", err)
			current = defaultProfile
		}
		name = current
	}

	var s Settings
	profile, err := LoadProfile(name)
	switch {
	case err == nil:
		s.Profile = profile.Name
	case explicit:
		return Settings{}, fmt.Errorf("profile %q: %w", name, err)
	default:
		if !errors.Is(err, ErrNotConfigured) {
			slog.Debug("profile unavailable", "profile", name, "error", err)
		}
		profile = Profile{}
	}

	s.BaseURL = strings.TrimSuffix(firstNonEmpty(ov.BaseURL, env.BaseURL, profile.BaseURL), "/")
	s.Token = firstNonEmpty(ov.Token, env.Token, profile.Token)

	auth, err := api.AuthPreset(firstNonEmpty(ov.Auth, env.Auth, profile.Auth))
	if err != nil {
		return Settings{}, err
	}
	if header := firstNonEmpty(ov.AuthHeader, env.AuthHeader, profile.AuthHeader); header != "" {
		auth.Header = header
	}
	switch {
	case ov.AuthPrefix != nil:
		auth.Prefix = *ov.AuthPrefix
	case env.AuthPrefixSet:
		auth.Prefix = env.AuthPrefix
	case profile.AuthPrefix != nil:
		auth.Prefix = *profile.AuthPrefix
	}
	s.Auth = auth

	s.Transport = firstNonEmpty(ov.Transport, env.Transport, profile.Transport)
	s.Codec = firstNonEmpty(ov.Codec, env.Codec, profile.Codec)

	decode, err := api.ParseDecodePolicy(firstNonEmpty(ov.Decode, env.Decode, profile.Decode))
	if err != nil {
		return Settings{}, err
	}
	s.Decode = decode

	switch {
	case ov.Timeout > 0:
		s.Timeout = ov.Timeout
	case env.Timeout > 0:
		s.Timeout = env.Timeout
	default:
		s.Timeout = DefaultTimeout
	}
	s.Insecure = ov.Insecure || env.Insecure

	return s, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
