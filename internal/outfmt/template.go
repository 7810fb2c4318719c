package outfmt

import (
	"bytes"
	"fmt"
	"io"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"text/template"

	"github.com/restclient/restclient/internal/api"
)

// templateFuncs are available to --template in addition to the builtins.
var templateFuncs = template.FuncMap{
	"json": func(v any) (string, error) {
		var buf bytes.Buffer
		if err := WriteJSON(&buf, v, false); err != nil {
			return "", err
		}
		return strings.TrimRight(buf.String(), "\n"), nil
	},
	"compact": func(v any) (string, error) {
		var buf bytes.Buffer
		if err := WriteJSON(&buf, v, true); err != nil {
			return "", err
		}
		return strings.TrimRight(buf.String(), "\n"), nil
	},
	// reason maps a status code to its phrase: {{reason .status}}.
	"reason": func(code any) (string, error) {
		n, err := toInt(code)
		if err != nil {
			return "", err
		}
		return api.ReasonPhrase(n), nil
	},
	"join":  strings.Join,
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
}

// WriteTemplate renders v with the Go text/template tmpl. Missing keys
// render as their zero value.
func WriteTemplate(w io.Writer, v any, tmpl string) error {
	t, err := template.New("output").Funcs(templateFuncs).Option("missingkey=zero").Parse(tmpl)
	if err != nil {
		return templateError("invalid template", err)
	}
	if err := t.Execute(w, v); err != nil {
		return templateError("template execution error", err)
	}
	return nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case *big.Int:
		return int(n.Int64()), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(n))
	default:
		return 0, fmt.Errorf("not a status code: %v", v)
	}
}

var templateLocation = regexp.MustCompile(`:(\d+):(\d+):`)

// templateError points at the line and column when text/template reports one.
func templateError(kind string, err error) error {
	if m := templateLocation.FindStringSubmatch(err.Error()); m != nil {
		return fmt.Errorf("%s at line %s, column %s: %w", kind, m[1], m[2], err)
	}
	return fmt.Errorf("%s: %w", kind, err)
}
