package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/restclient/restclient/internal/api"
	"github.com/restclient/restclient/internal/dryrun"
	"github.com/restclient/restclient/internal/iocontext"
	"github.com/restclient/restclient/internal/validation"
)

type verbSpec struct {
	method  string
	aliases []string
	short   string
}

var (
	verbGet    = verbSpec{method: http.MethodGet, aliases: []string{"g"}, short: "Send a GET request"}
	verbDelete = verbSpec{method: http.MethodDelete, aliases: []string{"del", "rm"}, short: "Send a DELETE request"}
	verbPost   = verbSpec{method: http.MethodPost, aliases: []string{"p"}, short: "Send a POST request"}
	verbPut    = verbSpec{method: http.MethodPut, short: "Send a PUT request"}
	verbPatch  = verbSpec{method: http.MethodPatch, short: "Send a PATCH request"}
)

func (v verbSpec) carriesBody() bool {
	switch v.method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}

type requestOptions struct {
	params         []string
	headers        []string
	fields         []string
	rawFields      []string
	inputFile      string
	jsonBody       string
	contentType    string
	silent         bool
	includeHeaders bool
}

// requestPayload is the JSON rendering of a finished request.
type requestPayload struct {
	URL            string        `json:"url"`
	Method         string        `json:"method"`
	Status         int           `json:"status"`
	IsHTTPError    bool          `json:"is_http_error"`
	IsNetworkError bool          `json:"is_network_error"`
	Error          string        `json:"error,omitempty"`
	ErrorCode      api.ErrorCode `json:"error_code,omitempty"`
	Message        string        `json:"message,omitempty"`
	Body           any           `json:"body"`
	Headers        http.Header   `json:"headers,omitempty"`
	DurationMS     int64         `json:"duration_ms"`
}

func newRequestCmd(v verbSpec) *cobra.Command {
	var opts requestOptions
	name := strings.ToLower(v.method)

	example := fmt.Sprintf(`  # Relative paths are joined to the profile base URL
  restclient %[1]s /users/42

  # Absolute URLs are used as-is
  restclient %[1]s https://api.example.com/v1/users -p page=2 -p per_page=50

  # Extra headers
  restclient %[1]s /users -H 'Accept-Language: de'`, name)
	if v.carriesBody() {
		example += fmt.Sprintf(`

  # String fields and JSON fields
  restclient %[1]s /users -f name=Ada -F admin=true -F 'tags=["ops"]'

  # Inline JSON body, or a body read from a file or stdin
  restclient %[1]s /users -d '{"name":"Ada"}'
  echo '{"name":"Ada"}' | restclient %[1]s /users -i -`, name)
	}

	cmd := &cobra.Command{
		Use:     name + " <path-or-url>",
		Aliases: v.aliases,
		Short:   v.short,
		Long: fmt.Sprintf(`%s.

A relative path is joined to the base URL of the active profile (or
--base-url / RESTCLIENT_BASE_URL). An absolute http(s) URL is used as-is.
HTTP failures (any status outside 2xx) and network failures set a non-zero
exit code.`, v.short),
		Example: example,
		Args:    cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd, v, args[0], opts)
		}),
	}

	cmd.Flags().StringArrayVarP(&opts.params, "param", "p", nil, "Query parameter as key=value (repeatable, order kept)")
	cmd.Flags().StringArrayVarP(&opts.headers, "header", "H", nil, "Request header as 'Name: value' (repeatable)")
	cmd.Flags().BoolVarP(&opts.silent, "silent", "s", false, "Suppress output")
	cmd.Flags().BoolVar(&opts.includeHeaders, "include", false, "Include response status and headers in output")
	flagAlias(cmd.Flags(), "include", "inc")
	if v.carriesBody() {
		cmd.Flags().StringArrayVarP(&opts.fields, "field", "f", nil, "Request body field as key=value (string)")
		cmd.Flags().StringArrayVarP(&opts.rawFields, "raw-field", "F", nil, "Request body field as key=value (JSON parsed)")
		cmd.Flags().StringVarP(&opts.inputFile, "input", "i", "", "Read request body from file (use - for stdin)")
		cmd.Flags().StringVarP(&opts.jsonBody, "body", "d", "", "Request body as inline JSON string")
		cmd.Flags().StringVar(&opts.contentType, "content-type", "", "Send --body/--input verbatim with this Content-Type")
	}
	return cmd
}

func runRequest(cmd *cobra.Command, v verbSpec, target string, opts requestOptions) error {
	ctx := cmdContext(cmd)

	if opts.jsonBody != "" && opts.inputFile != "" {
		return fmt.Errorf("cannot use both --body and --input flags")
	}

	factory := newClientFactory()
	settings, err := factory.settings()
	if err != nil {
		return err
	}
	if !api.IsAbsoluteURL(target) && settings.BaseURL == "" {
		return fmt.Errorf("%q is a relative path and no base URL is configured: %w", target, errNoBaseURL)
	}
	fullURL := api.ResolveURL(settings.BaseURL, target)
	if err := validation.ValidateRequestURL(fullURL); err != nil {
		return err
	}

	req := api.Request{
		URL:   fullURL,
		Token: settings.Token,
	}
	for _, p := range opts.params {
		key, value, err := parseKeyValue("query parameter", p)
		if err != nil {
			return err
		}
		req.Params = append(req.Params, api.QueryParam{Key: key, Value: value})
	}
	if len(opts.headers) > 0 {
		req.Headers = make(map[string]string, len(opts.headers))
		for _, h := range opts.headers {
			name, value, err := parseHeader(h)
			if err != nil {
				return err
			}
			req.Headers[name] = value
		}
	}
	if v.carriesBody() {
		if err := applyRequestBody(cmd, &req, opts); err != nil {
			return err
		}
	}

	client, err := factory.client(ctx, settings)
	if err != nil {
		return err
	}
	res := client.Do(ctx, v.method, req)
	if factory.recorder != nil {
		return printPreviews(cmd, factory.recorder.Previews())
	}

	if !opts.silent {
		if err := printRequestResult(cmd, res, opts.includeHeaders); err != nil {
			return err
		}
	}
	return res.Err()
}

// printPreviews writes what a dry run would have sent. JSON output is
// always an array, one entry per request.
func printPreviews(cmd *cobra.Command, previews []dryrun.Preview) error {
	if isJSON(cmd) {
		return printJSON(cmd, previews)
	}
	out := cmd.OutOrStdout()
	for i := range previews {
		if i > 0 {
			_, _ = fmt.Fprintln(out)
		}
		previews[i].Write(out)
	}
	_, _ = fmt.Fprintf(out, "No request sent (dry-run mode): %d previewed\n", len(previews))
	return nil
}

var errNoBaseURL = errors.New("base URL not set (use --base-url, RESTCLIENT_BASE_URL or 'restclient auth login')")

// applyRequestBody fills req from the body flags. With --content-type the
// raw --body/--input bytes are sent verbatim; otherwise the body is JSON.
func applyRequestBody(cmd *cobra.Command, req *api.Request, opts requestOptions) error {
	if opts.contentType != "" {
		if len(opts.fields) > 0 || len(opts.rawFields) > 0 {
			return fmt.Errorf("--content-type cannot be combined with --field or --raw-field")
		}
		raw := opts.jsonBody
		if opts.inputFile != "" {
			data, err := iocontext.ReadSource(cmdContext(cmd), opts.inputFile)
			if err != nil {
				return err
			}
			raw = string(data)
		}
		req.Content = &api.RequestContent{ContentType: opts.contentType, Body: raw}
		return nil
	}

	body, err := buildRequestBody(cmd, opts.fields, opts.rawFields, opts.inputFile, opts.jsonBody)
	if err != nil {
		return err
	}
	req.Body = body
	return nil
}

// buildRequestBody constructs the request body from fields and/or input file/inline JSON.
// A nil result means no body was given.
func buildRequestBody(cmd *cobra.Command, fields, rawFields []string, inputFile, jsonBody string) (any, error) {
	var base any

	if jsonBody != "" {
		if err := decodeJSONValue([]byte(jsonBody), &base); err != nil {
			return nil, fmt.Errorf("failed to parse --body JSON: %w", err)
		}
	}

	if inputFile != "" {
		data, err := iocontext.ReadSource(cmdContext(cmd), inputFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
		if err := decodeJSONValue(data, &base); err != nil {
			return nil, fmt.Errorf("failed to parse input JSON: %w", err)
		}
	}

	if len(fields) == 0 && len(rawFields) == 0 {
		return base, nil
	}

	body, ok := base.(map[string]any)
	if base != nil && !ok {
		return nil, fmt.Errorf("--field and --raw-field require a JSON object body")
	}
	if body == nil {
		body = make(map[string]any)
	}

	for _, field := range fields {
		key, value, err := parseKeyValue("field", field)
		if err != nil {
			return nil, err
		}
		body[key] = value
	}

	for _, field := range rawFields {
		key, raw, err := parseKeyValue("raw field", field)
		if err != nil {
			return nil, err
		}
		var value any
		if err := decodeJSONValue([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("invalid JSON in raw field %q: %w", key, err)
		}
		body[key] = value
	}

	return body, nil
}

// decodeJSONValue parses one JSON document into v. Numbers stay json.Number
// so the codec re-encodes them exactly as given.
func decodeJSONValue(data []byte, v *any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}

func printRequestResult(cmd *cobra.Command, res *api.Result, includeHeaders bool) error {
	if isJSON(cmd) {
		return printJSON(cmd, newRequestPayload(res, includeHeaders))
	}

	out := iocontext.GetIO(cmdContext(cmd)).Out
	if res.IsNetworkError {
		return nil
	}
	if includeHeaders {
		_, _ = fmt.Fprintf(out, "HTTP %d %s\n", res.ResponseCode, http.StatusText(res.ResponseCode))
		keys := make([]string, 0, len(res.Header))
		for k := range res.Header {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			for _, v := range res.Header[k] {
				_, _ = fmt.Fprintf(out, "%s: %s\n", k, v)
			}
		}
		_, _ = fmt.Fprintln(out)
	}

	if res.StringContent == "" {
		return nil
	}
	pretty := &bytes.Buffer{}
	if json.Valid([]byte(res.StringContent)) && json.Indent(pretty, []byte(res.StringContent), "", "  ") == nil {
		_, _ = fmt.Fprintln(out, pretty.String())
		return nil
	}
	_, _ = fmt.Fprintln(out, res.StringContent)
	return nil
}

func newRequestPayload(res *api.Result, includeHeaders bool) requestPayload {
	p := requestPayload{
		URL:            res.URL,
		Method:         res.Method,
		Status:         res.ResponseCode,
		IsHTTPError:    res.IsHTTPError,
		IsNetworkError: res.IsNetworkError,
		Error:          res.Error,
		ErrorCode:      res.ErrorCode(),
		Body:           responseJSONBody(res.StringContent),
		DurationMS:     res.Duration.Milliseconds(),
	}
	if res.IsError() {
		p.Message = res.Message()
	}
	if includeHeaders {
		p.Headers = res.Header
	}
	return p
}

// responseJSONBody returns the body as raw JSON when it parses and as a
// string otherwise.
func responseJSONBody(body string) any {
	if body == "" {
		return nil
	}
	if !json.Valid([]byte(body)) {
		return body
	}
	return json.RawMessage(body)
}
