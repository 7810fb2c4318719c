package cmd

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"

	"github.com/spf13/pflag"

	"github.com/restclient/restclient/internal/api"
)

const (
	exitOK          = 0
	exitGeneric     = 1
	exitUsage       = 2
	exitAuth        = 3
	exitNotFound    = 4
	exitForbidden   = 5
	exitRateLimited = 6
	exitServer      = 7
	exitNetwork     = 8
	exitDecode      = 9
)

// exitCodes maps classified request failures to process exit codes.
// Codes missing here fall through to the usage and network heuristics.
var exitCodes = map[api.ErrorCode]int{
	api.ErrUnauthorized: exitAuth,
	api.ErrForbidden:    exitForbidden,
	api.ErrNotFound:     exitNotFound,
	api.ErrRateLimited:  exitRateLimited,
	api.ErrServerError:  exitServer,
	api.ErrTimeout:      exitNetwork,
	api.ErrNetwork:      exitNetwork,
	api.ErrBadRequest:   exitUsage,
	api.ErrValidation:   exitUsage,
	api.ErrConflict:     exitUsage,
	api.ErrDecode:       exitDecode,
}

// usageMessages are fragments of cobra, pflag and local argument errors.
var usageMessages = []string{
	"unknown command",
	"unknown flag",
	"unknown shorthand flag",
	"flag needs an argument",
	"flag provided but not defined",
	"requires at least",
	"requires exactly",
	"accepts at most",
	"invalid argument",
	"invalid value",
	"must be",
	"is required",
	"missing",
}

// networkMessages catch transport failures that arrive as plain strings.
var networkMessages = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"tls",
	"certificate",
	"timeout",
}

// ExitCode maps an error to a process exit code.
func ExitCode(err error) int {
	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return exitOK
	}
	var handled *handledError
	if errors.As(err, &handled) {
		if handled.exitCode != 0 {
			return handled.exitCode
		}
		err = handled.err
	}

	if structured := api.StructuredErrorFromError(err); structured != nil {
		if code, ok := exitCodes[structured.Code]; ok {
			return code
		}
	}
	switch {
	case containsAny(err.Error(), usageMessages):
		return exitUsage
	case isNetworkError(err):
		return exitNetwork
	default:
		return exitGeneric
	}
}

func isNetworkError(err error) bool {
	if api.IsNetworkError(err) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) {
		return true
	}
	return containsAny(err.Error(), networkMessages)
}

func containsAny(msg string, fragments []string) bool {
	msg = strings.ToLower(msg)
	for _, f := range fragments {
		if strings.Contains(msg, f) {
			return true
		}
	}
	return false
}
