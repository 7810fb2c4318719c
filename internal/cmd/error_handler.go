package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/restclient/restclient/internal/api"
	"github.com/restclient/restclient/internal/config"
	"github.com/restclient/restclient/internal/resolve"
)

// HandleError processes an error and returns a user-friendly message with suggestions
func HandleError(err error) string {
	if err == nil {
		return ""
	}

	var msg strings.Builder

	var apiErr *api.APIError
	var netErr *api.NetworkError
	var ambiguous *resolve.AmbiguousError

	switch {
	case errors.Is(err, config.ErrNotConfigured):
		fmt.Fprintf(&msg, "Error: %s\n\n", err.Error())
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Run: restclient auth login --base-url URL --token TOKEN\n")
		msg.WriteString("  - Or set RESTCLIENT_BASE_URL and RESTCLIENT_TOKEN\n")

	case errors.As(err, &ambiguous):
		fmt.Fprintf(&msg, "Error: %s\n\n", err.Error())
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Use the full profile name\n")
		msg.WriteString("  - Run: restclient auth list\n")

	case errors.As(err, &apiErr):
		fmt.Fprintf(&msg, "API error (HTTP %d): %s\n\n", apiErr.StatusCode, apiErr.Message)
		msg.WriteString(suggestionsForStatusCode(apiErr.StatusCode, apiErr.Body))
		if apiErr.RequestID != "" {
			fmt.Fprintf(&msg, "\nRequest ID: %s\n", apiErr.RequestID)
		}

	case errors.As(err, &netErr):
		fmt.Fprintf(&msg, "%s\n\n", err.Error())
		msg.WriteString(suggestionsForNetworkError(netErr.Reason))

	default:
		fmt.Fprintf(&msg, "Error: %s\n", err.Error())
	}

	return msg.String()
}

func suggestionsForNetworkError(reason string) string {
	var suggestions strings.Builder
	suggestions.WriteString("Suggestions:\n")

	reason = strings.ToLower(reason)
	switch {
	case strings.Contains(reason, "connection refused"):
		suggestions.WriteString("  - Check if the server is running\n")
		suggestions.WriteString("  - Verify the URL: restclient auth status\n")

	case strings.Contains(reason, "no such host"):
		suggestions.WriteString("  - Check the host name spelling\n")
		suggestions.WriteString("  - Verify your DNS settings\n")

	case strings.Contains(reason, "certificate"):
		suggestions.WriteString("  - Verify the server's TLS certificate\n")
		suggestions.WriteString("  - Use --insecure only against servers you trust\n")

	case strings.Contains(reason, "deadline") || strings.Contains(reason, "timeout"):
		suggestions.WriteString("  - Raise --timeout\n")
		suggestions.WriteString("  - Check your network connection\n")

	default:
		suggestions.WriteString("  - Check your network connection\n")
		suggestions.WriteString("  - Use --debug to see the full request\n")
	}

	return suggestions.String()
}

func suggestionsForStatusCode(code int, body string) string {
	var suggestions strings.Builder
	suggestions.WriteString("Suggestions:\n")

	switch code {
	case 400:
		suggestions.WriteString("  - Check your request parameters\n")
		suggestions.WriteString("  - Use --debug to see the full request\n")
		if strings.Contains(body, "required") {
			suggestions.WriteString("  - A required field may be missing\n")
		}

	case 401:
		suggestions.WriteString("  - Your token may be invalid or expired\n")
		suggestions.WriteString("  - Check --auth, --auth-header and --auth-prefix\n")
		suggestions.WriteString("  - Run: restclient auth login\n")

	case 403:
		suggestions.WriteString("  - You don't have permission for this action\n")
		suggestions.WriteString("  - Check the credential's scopes\n")

	case 404:
		suggestions.WriteString("  - The resource doesn't exist\n")
		suggestions.WriteString("  - Check the path and the profile base URL\n")

	case 422:
		suggestions.WriteString("  - Validation failed\n")
		suggestions.WriteString("  - Check your input values\n")

	case 429:
		suggestions.WriteString("  - Too many requests\n")
		suggestions.WriteString("  - Wait and retry, or lower --rate for batch runs\n")

	case 500, 502, 503, 504:
		suggestions.WriteString("  - Server error - not your fault\n")
		suggestions.WriteString("  - Wait and retry\n")

	default:
		suggestions.WriteString("  - Use --debug for more details\n")
	}

	return suggestions.String()
}
