package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/restclient/restclient/internal/api"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Inspect how failures are classified",
	}
	cmd.AddCommand(newStatusReasonCmd())
	cmd.AddCommand(newStatusMessageCmd())
	return cmd
}

func newStatusReasonCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "reason <code>",
		Short:   "Print the reason phrase for an HTTP status code",
		Example: "  restclient status reason 404\n  # Not Found",
		Args:    cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			code, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid status code %q: %w", args[0], err)
			}
			reason := api.ReasonPhrase(code)
			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{
					"code":          code,
					"reason":        reason,
					"is_http_error": api.IsHTTPErrorStatus(code),
					"error_code":    api.ErrorCodeFromStatus(code),
				})
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), reason)
			return nil
		}),
	}
}

func newStatusMessageCmd() *cobra.Command {
	var code int
	var body string
	var network bool

	cmd := &cobra.Command{
		Use:   "message",
		Short: "Print the message extracted from an error response",
		Long: `Print the message extracted from an error response.

The body is read as a flat JSON object and the first of "error", "Error",
"message" or "Message" is used. Bodies that are not JSON objects fall back to
the status reason phrase. --network always yields "Network Error".`,
		Example: `  restclient status message --code 422 --body '{"message":"name is required"}'
  restclient status message --code 503 --body '<html>down</html>'
  restclient status message --network`,
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			if !network && !flagOrAliasChanged(cmd, "code") {
				return fmt.Errorf("--code is required unless --network is set")
			}
			res := api.NewResult(api.Result{
				ResponseCode:   code,
				IsHTTPError:    !network && api.IsHTTPErrorStatus(code),
				IsNetworkError: network,
				StringContent:  body,
			})
			message := res.Message()
			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{
					"code":             res.ResponseCode,
					"is_http_error":    res.IsHTTPError,
					"is_network_error": res.IsNetworkError,
					"message":          message,
					"error_code":       res.ErrorCode(),
				})
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), message)
			return nil
		}),
	}

	cmd.Flags().IntVar(&code, "code", 0, "HTTP status code of the response")
	cmd.Flags().StringVar(&body, "body", "", "Response body")
	cmd.Flags().BoolVar(&network, "network", false, "Classify as a network failure")
	return cmd
}
