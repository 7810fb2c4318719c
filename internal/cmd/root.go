package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/restclient/restclient/internal/config"
	"github.com/restclient/restclient/internal/debug"
	"github.com/restclient/restclient/internal/dryrun"
	"github.com/restclient/restclient/internal/iocontext"
	"github.com/restclient/restclient/internal/outfmt"
)

// rootFlags holds global CLI flags
type rootFlags struct {
	Output   string
	JSON     bool
	Query    string
	JQ       string
	Template string
	Compact  bool
	Debug    bool
	Timeout  time.Duration

	Profile    string
	BaseURL    string
	Token      string
	Auth       string
	AuthHeader string
	AuthPrefix string
	Transport  string
	Codec      string
	Decode     string
	Insecure   bool
	RequestID  string
	DryRun     bool

	AuthPrefixSet bool
}

// flags holds the global command flags. This is package-level mutable state
// that MUST be reset at the start of every Execute() call. Tests depend on
// this reset to get clean state.
var flags = rootFlags{Output: defaultOutput()}

// defaultOutput is RESTCLIENT_OUTPUT, or text. An unreadable environment
// falls back to text; Resolve reports the error later.
func defaultOutput() string {
	env, err := config.LoadEnv()
	if err != nil {
		return "text"
	}
	if value := strings.TrimSpace(env.Output); value != "" {
		return value
	}
	return "text"
}

// Execute runs the root command
func Execute(ctx context.Context, args []string) error {
	// Load the optional .env file before computing env-driven flag defaults.
	// Variables already exported win.
	dotEnvErr := config.LoadDotEnv()

	flags = rootFlags{Output: defaultOutput()}

	root := &cobra.Command{
		Use:                "restclient",
		Short:              "Typed HTTP client for REST APIs",
		Long:               "restclient sends GET, POST, PUT, PATCH and DELETE requests to REST APIs,\nclassifies failures and prints the result as text or JSON.",
		SilenceUsage:       true,
		SilenceErrors:      true,
		DisableSuggestions: true, // We provide our own did-you-mean via enhanceUnknownError
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if flags.JSON {
				if flagOrAliasChanged(cmd, "output") && flags.Output != "json" {
					return fmt.Errorf("--json conflicts with --output %s", flags.Output)
				}
				flags.Output = "json"
			}
			needsJSON := getJQQuery() != "" || flags.Template != ""
			if needsJSON && flags.Output != "json" && flags.Output != "jsonl" {
				if flagOrAliasChanged(cmd, "output") {
					return fmt.Errorf("--jq/--query/--template require --output json or jsonl (or --json)")
				}
				flags.Output = "json"
			}

			mode, err := outfmt.Parse(flags.Output)
			if err != nil {
				return err
			}
			ctx = outfmt.WithMode(ctx, mode)
			ctx = outfmt.WithCompact(ctx, flags.Compact)

			ioStreams := iocontext.GetIO(ctx)
			ctx = iocontext.WithIO(ctx, ioStreams)
			cmd.SetOut(ioStreams.Out)
			cmd.SetErr(ioStreams.ErrOut)

			debug.SetupLogger(flags.Debug)
			ctx = debug.WithDebug(ctx, flags.Debug)
			ctx = dryrun.WithDryRun(ctx, flags.DryRun)
			if dotEnvErr != nil {
				slog.Warn("ignoring .env file", "path", config.DotEnvPath(), "error", dotEnvErr)
			}

			if q := getJQQuery(); q != "" {
				ctx = outfmt.WithQuery(ctx, q)
			}
			if flags.Template != "" {
				tmpl, err := loadTemplate(flags.Template)
				if err != nil {
					return err
				}
				ctx = outfmt.WithTemplate(ctx, tmpl)
			}

			if flags.Timeout < 0 {
				return fmt.Errorf("--timeout must be >= 0")
			}
			flags.AuthPrefixSet = flagOrAliasChanged(cmd, "auth-prefix")

			cmd.SetContext(ctx)
			return nil
		},
	}

	root.SetContext(ctx)
	root.SetArgs(args)

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.Output, "output", "o", flags.Output, "Output format: text|json|jsonl (env RESTCLIENT_OUTPUT)")
	pf.BoolVarP(&flags.JSON, "json", "j", false, "Shorthand for --output json")
	pf.StringVarP(&flags.Query, "query", "q", "", "JQ expression to filter JSON output")
	pf.StringVar(&flags.JQ, "jq", "", "Alias for --query")
	pf.StringVar(&flags.Template, "template", "", "Go template string (or @path) to render JSON output")
	pf.BoolVar(&flags.Compact, "compact-json", false, "Compact JSON output (no indentation)")
	pf.BoolVar(&flags.Debug, "debug", false, "Enable debug logging")
	pf.DurationVar(&flags.Timeout, "timeout", 0, "Per-request timeout (e.g., 30s, 2m; default 30s, env RESTCLIENT_TIMEOUT)")
	pf.StringVar(&flags.Profile, "profile", "", "Stored profile to use (fuzzy matched; env RESTCLIENT_PROFILE)")
	pf.StringVar(&flags.BaseURL, "base-url", "", "Base URL that relative paths are joined to")
	pf.StringVar(&flags.Token, "token", "", "Credential sent in the auth header")
	pf.StringVar(&flags.Auth, "auth", "", "Auth preset: bearer|api-key")
	pf.StringVar(&flags.AuthHeader, "auth-header", "", "Header that carries the credential")
	pf.StringVar(&flags.AuthPrefix, "auth-prefix", "", "Prefix placed before the credential (may be empty)")
	pf.StringVar(&flags.Transport, "transport", "", "Transport: http|resty")
	pf.StringVar(&flags.Codec, "codec", "", "Body codec: json|sonic")
	pf.StringVar(&flags.Decode, "decode", "", "Typed decoding: strict|lenient")
	pf.BoolVarP(&flags.Insecure, "insecure", "k", false, "Accept any server certificate (unsafe)")
	pf.StringVar(&flags.RequestID, "request-id", "", "X-Request-Id to send ('auto' for a fresh UUID per request)")
	pf.BoolVar(&flags.DryRun, "dry-run", false, "Print requests instead of sending them")

	flagAlias(pf, "output", "out")
	flagAlias(pf, "compact-json", "cj")
	flagAlias(pf, "template", "tpl")
	flagAlias(pf, "timeout", "to")
	flagAlias(pf, "debug", "dbg")
	flagAlias(pf, "dry-run", "dry")

	root.AddCommand(newRequestCmd(verbGet))
	root.AddCommand(newRequestCmd(verbDelete))
	root.AddCommand(newRequestCmd(verbPost))
	root.AddCommand(newRequestCmd(verbPut))
	root.AddCommand(newRequestCmd(verbPatch))
	root.AddCommand(newURLCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newBatchCmd())
	root.AddCommand(newAuthCmd())
	root.AddCommand(newVersionCmd())

	targetCmd, err := root.ExecuteC()
	if err != nil {
		if !errors.Is(err, errAlreadyHandled) {
			enhanced := enhanceUnknownError(err, root, targetCmd)
			_, _ = fmt.Fprintln(root.ErrOrStderr(), enhanced)
		}
		return err
	}
	return nil
}

// enhanceUnknownError adds "did you mean?" suggestions to unknown command/flag errors.
// targetCmd is the command Cobra resolved before the error (may be root itself).
func enhanceUnknownError(err error, root *cobra.Command, targetCmd *cobra.Command) string {
	msg := err.Error()

	if strings.Contains(msg, "unknown command") {
		unknown := extractQuoted(msg)
		if unknown != "" {
			var names []string
			for _, c := range root.Commands() {
				if c.IsAvailableCommand() || c.Name() == "help" {
					names = append(names, c.Name())
					names = append(names, c.Aliases...)
				}
			}
			if suggestion := suggestCommand(unknown, names); suggestion != "" {
				return fmt.Sprintf("%s\n\nDid you mean %q?", msg, suggestion)
			}
		}
	}

	if strings.Contains(msg, "unknown flag") || strings.Contains(msg, "flag provided but not defined") || strings.Contains(msg, "unknown shorthand flag") {
		unknown := extractFlag(msg)
		if unknown != "" {
			seen := make(map[string]bool)
			var flagNames []string
			addFlags := func(fs *pflag.FlagSet) {
				fs.VisitAll(func(f *pflag.Flag) {
					if f.Hidden {
						return
					}
					name := "--" + f.Name
					if !seen[name] {
						seen[name] = true
						flagNames = append(flagNames, name)
					}
					if f.Shorthand != "" {
						short := "-" + f.Shorthand
						if !seen[short] {
							seen[short] = true
							flagNames = append(flagNames, short)
						}
					}
				})
			}
			if targetCmd != nil {
				addFlags(targetCmd.Flags())
				addFlags(targetCmd.InheritedFlags())
			} else {
				addFlags(root.Flags())
				addFlags(root.PersistentFlags())
			}
			helpCmd := "restclient --help"
			if targetCmd != nil {
				if commandPath := strings.TrimSpace(targetCmd.CommandPath()); commandPath != "" {
					helpCmd = commandPath + " --help"
				}
			}
			if suggestion := suggestFlag(unknown, flagNames); suggestion != "" {
				return fmt.Sprintf("%s\n\nDid you mean %q?\nRun %q to see supported flags.", msg, suggestion, helpCmd)
			}
			return fmt.Sprintf("%s\n\nRun %q to see supported flags.", msg, helpCmd)
		}
	}

	return msg
}

// extractQuoted extracts the first double-quoted substring from s.
func extractQuoted(s string) string {
	start := strings.IndexByte(s, '"')
	if start < 0 {
		return ""
	}
	end := strings.IndexByte(s[start+1:], '"')
	if end < 0 {
		return ""
	}
	return s[start+1 : start+1+end]
}

// extractFlag extracts a flag name (e.g., "--foo") from an error message.
func extractFlag(s string) string {
	idx := strings.Index(s, "--")
	if idx < 0 {
		// Shorthand errors look like "unknown shorthand flag: 'a' in -a"
		idx = strings.LastIndex(s, " -")
		if idx < 0 {
			return ""
		}
		rest := strings.TrimSpace(s[idx+1:])
		end := strings.IndexByte(rest, ' ')
		if end >= 0 {
			rest = rest[:end]
		}
		rest = strings.TrimRight(rest, ".,;:!?\"'")
		if strings.HasPrefix(rest, "-") && len(rest) > 1 {
			return rest
		}
		return ""
	}
	rest := s[idx:]
	end := strings.IndexByte(rest, ' ')
	if end < 0 {
		end = len(rest)
	}
	return strings.TrimRight(rest[:end], ".,;:!?\"'")
}

func loadTemplate(value string) (string, error) {
	if strings.HasPrefix(value, "@") {
		path := strings.TrimPrefix(value, "@")
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read template file: %w", err)
		}
		return string(data), nil
	}
	return value, nil
}
