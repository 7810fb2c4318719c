package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/restclient/restclient/internal/api"
	"github.com/restclient/restclient/internal/codec"
	"github.com/restclient/restclient/internal/config"
	"github.com/restclient/restclient/internal/iocontext"
	"github.com/restclient/restclient/internal/outfmt"
	"github.com/restclient/restclient/internal/resolve"
	"github.com/restclient/restclient/internal/transport"
	"github.com/restclient/restclient/internal/validation"
)

// newAuthCmd returns the auth command with subcommands
func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "auth",
		Aliases: []string{"au"},
		Short:   "Manage stored connection profiles",
		Long:    "Save and manage base URLs, credentials and client settings stored securely in your OS keychain.",
	}

	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthStatusCmd())
	cmd.AddCommand(newAuthLogoutCmd())
	cmd.AddCommand(newAuthListCmd())
	cmd.AddCommand(newAuthUseCmd())

	return cmd
}

// newAuthLoginCmd creates the auth login command
func newAuthLoginCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save a connection profile",
		Long: strings.TrimSpace(`
Save a connection profile to your OS keychain and make it current.

The profile is built from the global flags: --base-url and --token, plus the
optional --auth, --auth-header, --auth-prefix, --transport, --codec and
--decode. --profile names the profile (default "default").
`),
		Example: strings.TrimSpace(`
  # Bearer token (Authorization: Bearer <token>)
  restclient auth login --base-url https://api.example.com/v1 --token YOUR_TOKEN

  # API key header under a named profile
  restclient auth login --profile staging --base-url https://staging.example.com --token KEY --auth api-key

  # Custom header with no prefix
  restclient auth login --base-url https://api.example.com --token KEY --auth-header X-Auth --auth-prefix ''

  # Load RESTCLIENT_* values from a .env file
  restclient auth login --env-file .env
`),
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			profileName := strings.TrimSpace(flags.Profile)
			p := config.Profile{
				BaseURL:    strings.TrimSpace(flags.BaseURL),
				Token:      strings.TrimSpace(flags.Token),
				Auth:       flags.Auth,
				AuthHeader: flags.AuthHeader,
				Transport:  flags.Transport,
				Codec:      flags.Codec,
				Decode:     flags.Decode,
			}
			if flags.AuthPrefixSet {
				prefix := flags.AuthPrefix
				p.AuthPrefix = &prefix
			}

			if envFile != "" {
				envVars, err := loadAuthEnvFile(envFile)
				if err != nil {
					return err
				}
				applyEnvFile(&p, envVars)
				if profileName == "" {
					profileName = strings.TrimSpace(envVars[config.EnvPrefix+"_PROFILE"])
				}
			}

			if p.BaseURL == "" {
				return fmt.Errorf("--base-url is required")
			}
			p.BaseURL = strings.TrimSuffix(p.BaseURL, "/")
			if err := validation.ValidateBaseURL(p.BaseURL); err != nil {
				return fmt.Errorf("invalid base URL: %w", err)
			}
			if err := validateProfileSettings(p); err != nil {
				return err
			}

			if err := config.SaveProfile(profileName, p); err != nil {
				return fmt.Errorf("failed to save credentials: %w", err)
			}
			if profileName == "" {
				profileName = "default"
			}

			if isJSON(cmd) {
				return printJSON(cmd, profilePayload(profileName, p, true))
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, "Profile saved successfully!")
			_, _ = fmt.Fprintf(out, "  Profile: %s\n", profileName)
			_, _ = fmt.Fprintf(out, "  Base URL: %s\n", p.BaseURL)
			if p.Token != "" {
				_, _ = fmt.Fprintf(out, "  Token: %s\n", maskToken(p.Token))
			}
			return nil
		}),
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Load RESTCLIENT_* values from a .env file")
	flagAlias(cmd.Flags(), "env-file", "env")

	return cmd
}

func loadAuthEnvFile(path string) (map[string]string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("--env-file requires a file path")
	}

	envVars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read --env-file %q: %w", path, err)
	}

	return envVars, nil
}

// applyEnvFile fills profile fields not given as flags from envVars and
// exports keyring settings that are not already set.
func applyEnvFile(p *config.Profile, envVars map[string]string) {
	get := func(key string) string {
		return strings.TrimSpace(envVars[config.EnvPrefix+"_"+key])
	}
	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = get(key)
		}
	}
	fill(&p.BaseURL, "BASE_URL")
	fill(&p.Token, "TOKEN")
	fill(&p.Auth, "AUTH")
	fill(&p.AuthHeader, "AUTH_HEADER")
	fill(&p.Transport, "TRANSPORT")
	fill(&p.Codec, "CODEC")
	fill(&p.Decode, "DECODE")
	if p.AuthPrefix == nil {
		if prefix, ok := envVars[config.EnvPrefix+"_AUTH_PREFIX"]; ok {
			p.AuthPrefix = &prefix
		}
	}

	for _, key := range []string{"KEYRING_BACKEND", "KEYRING_PASSWORD", "CREDENTIALS_DIR"} {
		name := config.EnvPrefix + "_" + key
		if _, exists := os.LookupEnv(name); exists {
			continue
		}
		if value := get(key); value != "" {
			_ = os.Setenv(name, value)
		}
	}
}

func validateProfileSettings(p config.Profile) error {
	if _, err := api.AuthPreset(p.Auth); err != nil {
		return err
	}
	if _, err := transport.ByName(p.Transport); err != nil {
		return err
	}
	if _, err := codec.ByName(p.Codec); err != nil {
		return err
	}
	if _, err := api.ParseDecodePolicy(p.Decode); err != nil {
		return err
	}
	return nil
}

func profilePayload(name string, p config.Profile, current bool) map[string]any {
	auth, err := api.AuthPreset(p.Auth)
	if err != nil {
		auth = api.BearerAuth
	}
	if p.AuthHeader != "" {
		auth.Header = p.AuthHeader
	}
	if p.AuthPrefix != nil {
		auth.Prefix = *p.AuthPrefix
	}
	payload := map[string]any{
		"profile":  name,
		"base_url": p.BaseURL,
		"token":    maskToken(p.Token),
		"auth":     auth,
		"current":  current,
	}
	if p.Transport != "" {
		payload["transport"] = p.Transport
	}
	if p.Codec != "" {
		payload["codec"] = p.Codec
	}
	if p.Decode != "" {
		payload["decode"] = p.Decode
	}
	return payload
}

// newAuthStatusCmd creates the auth status command
func newAuthStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the effective connection settings",
		Long:  "Display the settings requests would use after merging flags, RESTCLIENT_* variables and the active profile (the token is masked).",
		Example: strings.TrimSpace(`
  # Check the effective settings
  restclient auth status

  # JSON output for scripting
  restclient auth status --json
`),
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			settings, err := newClientFactory().settings()
			if err != nil {
				return err
			}
			configured := settings.BaseURL != ""

			if isJSON(cmd) {
				payload := map[string]any{
					"configured": configured,
					"profile":    settings.Profile,
					"base_url":   settings.BaseURL,
					"token":      maskToken(settings.Token),
					"auth":       settings.Auth,
					"transport":  firstNonEmpty(settings.Transport, "http"),
					"codec":      firstNonEmpty(settings.Codec, "json"),
					"decode":     settings.Decode.String(),
					"timeout":    settings.Timeout.String(),
					"insecure":   settings.Insecure,
				}
				return printJSON(cmd, payload)
			}

			out := cmd.OutOrStdout()
			if !configured {
				_, _ = fmt.Fprintln(out, "Not configured.")
				_, _ = fmt.Fprintln(out, "Run 'restclient auth login --base-url URL --token TOKEN' or set RESTCLIENT_BASE_URL.")
				return nil
			}
			_, _ = fmt.Fprintln(out, "Configured")
			if settings.Profile != "" {
				_, _ = fmt.Fprintf(out, "  Profile: %s\n", settings.Profile)
			}
			_, _ = fmt.Fprintf(out, "  Base URL: %s\n", settings.BaseURL)
			if settings.Token != "" {
				_, _ = fmt.Fprintf(out, "  Token: %s\n", maskToken(settings.Token))
				_, _ = fmt.Fprintf(out, "  Auth Header: %s: %s<token>\n", settings.Auth.Header, settings.Auth.Prefix)
			}
			_, _ = fmt.Fprintf(out, "  Transport: %s\n", firstNonEmpty(settings.Transport, "http"))
			_, _ = fmt.Fprintf(out, "  Codec: %s\n", firstNonEmpty(settings.Codec, "json"))
			_, _ = fmt.Fprintf(out, "  Decode: %s\n", settings.Decode)
			_, _ = fmt.Fprintf(out, "  Timeout: %s\n", settings.Timeout)
			if settings.Insecure {
				_, _ = fmt.Fprintln(out, "  TLS verification: disabled")
			}
			return nil
		}),
	}

	return cmd
}

// newAuthLogoutCmd creates the auth logout command
func newAuthLogoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout [profile]",
		Short: "Remove a profile from the keychain",
		Long:  "Delete a stored profile from your OS keychain. Without an argument the current profile is removed.",
		Example: strings.TrimSpace(`
  # Remove the current profile
  restclient auth logout

  # Remove a named profile
  restclient auth logout staging
`),
		Args: cobra.MaximumNArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			var profile string
			if len(args) == 1 {
				name, err := matchProfile(args[0])
				if err != nil {
					return err
				}
				profile = name
			} else {
				current, err := config.CurrentProfile()
				if err != nil {
					return err
				}
				profile = current
			}

			if _, err := config.LoadProfile(profile); err != nil {
				if errors.Is(err, config.ErrNotConfigured) {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "No profile named %s.\n", profile)
					return nil
				}
				return err
			}

			if err := config.DeleteProfile(profile); err != nil {
				return fmt.Errorf("failed to remove credentials: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Profile %s removed successfully.\n", profile)
			return nil
		}),
	}

	return cmd
}

func newAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list [query]",
		Aliases: []string{"ls"},
		Short:   "List stored profiles, optionally fuzzy filtered",
		Args:    cobra.MaximumNArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			names, err := config.ListProfiles()
			if err != nil {
				return err
			}
			current, err := config.CurrentProfile()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				matches := resolve.Candidates(args[0], names, len(names))
				names = names[:0]
				for _, m := range matches {
					names = append(names, m.Name)
				}
			}

			ioStreams := iocontext.GetIO(cmd.Context())
			f := outfmt.NewFormatter(cmd.Context(), ioStreams.Out, ioStreams.ErrOut)

			if isJSON(cmd) {
				items := make([]map[string]any, 0, len(names))
				for _, name := range names {
					p, err := config.LoadProfile(name)
					if err != nil {
						return fmt.Errorf("profile %q: %w", name, err)
					}
					items = append(items, profilePayload(name, p, name == current))
				}
				return f.Output(items)
			}

			if len(names) == 0 {
				f.Empty("No profiles stored.")
				return nil
			}
			f.StartTable([]string{"  PROFILE", "BASE URL"})
			for _, name := range names {
				marker := " "
				if name == current {
					marker = "*"
				}
				baseURL := ""
				if p, err := config.LoadProfile(name); err == nil {
					baseURL = p.BaseURL
				}
				f.Row(marker+" "+name, baseURL)
			}
			return f.EndTable()
		}),
	}
}

func newAuthUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "use <profile>",
		Aliases: []string{"switch"},
		Short:   "Make a stored profile current (fuzzy matched)",
		Args:    cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			name, err := matchProfile(args[0])
			if err != nil {
				return err
			}
			if err := config.SetCurrentProfile(name); err != nil {
				return err
			}
			if isJSON(cmd) {
				return printJSON(cmd, map[string]string{"profile": name})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Switched to profile %s.\n", name)
			return nil
		}),
	}
}

// matchProfile resolves query against stored profile names.
func matchProfile(query string) (string, error) {
	names, err := config.ListProfiles()
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", config.ErrNotConfigured
	}
	name, err := resolve.Name(query, names)
	if err != nil {
		var ambiguous *resolve.AmbiguousError
		if errors.As(err, &ambiguous) {
			return "", err
		}
		return "", fmt.Errorf("no profile matches %q: %w", query, config.ErrNotConfigured)
	}
	return name, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
