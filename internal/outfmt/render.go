package outfmt

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/restclient/restclient/internal/filter"
)

// Render writes v as the context asks. With a jq query or a template, v is
// first converted to its JSON form so both see JSON field names and exact
// integers; the query runs before the template.
func Render(ctx context.Context, w io.Writer, v any) error {
	s := settingsFrom(ctx)
	if s.query == "" && s.template == "" {
		return WriteJSON(w, v, IsCompact(ctx))
	}

	doc, err := jsonView(v)
	if err != nil {
		return err
	}
	if s.query != "" {
		if doc, err = filter.Apply(doc, s.query); err != nil {
			return err
		}
	}
	if s.template != "" {
		return WriteTemplate(w, doc, s.template)
	}
	return WriteJSON(w, doc, IsCompact(ctx))
}

// ApplyQuery runs query against the JSON form of v.
func ApplyQuery(v any, query string) (any, error) {
	if query == "" {
		return v, nil
	}
	doc, err := jsonView(v)
	if err != nil {
		return nil, err
	}
	return filter.Apply(doc, query)
}

func jsonView(v any) (any, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return filter.Decode(buf.Bytes())
}
