// Package filter applies jq expressions to decoded response bodies.
package filter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"

	"github.com/itchyny/gojq"
)

// envelopeKeys are the collection wrappers common in REST list responses.
var envelopeKeys = []string{"items", "data", "results"}

// Filter is a compiled jq expression. A Filter is safe for concurrent use.
type Filter struct {
	expr string
	code *gojq.Code
}

// NormalizeExpression fixes shell-escaped operators in jq expressions.
// Zsh escapes ! to \! even in single quotes, breaking operators like !=.
func NormalizeExpression(expr string) string {
	return strings.ReplaceAll(expr, `\!`, `!`)
}

// Compile parses and compiles expr.
func Compile(expr string) (*Filter, error) {
	expr = NormalizeExpression(strings.TrimSpace(expr))
	if expr == "" {
		expr = "."
	}
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", err)
	}
	return &Filter{expr: expr, code: code}, nil
}

// String returns the normalized expression.
func (f *Filter) String() string { return f.expr }

// Run evaluates the filter against data. A single result is returned as is;
// several are collected into a slice.
//
// Array queries such as ".[]" that fail on an object are retried against the
// list held in an {"items": [...]} style envelope.
func (f *Filter) Run(data any) (any, error) {
	results, err := f.collect(data)
	if err != nil && isRootArrayQuery(f.expr) && isIterationError(err) {
		if items, ok := envelopeItems(data); ok {
			if retried, retryErr := f.collect(items); retryErr == nil {
				results, err = retried, nil
			}
		}
	}
	if err != nil {
		return nil, err
	}
	if len(results) == 1 {
		return results[0], nil
	}
	return results, nil
}

func (f *Filter) collect(data any) ([]any, error) {
	var results []any
	iter := f.code.Run(data)
	for {
		v, ok := iter.Next()
		if !ok {
			return results, nil
		}
		if err, ok := v.(error); ok {
			return nil, fmt.Errorf("filter error: %w", err)
		}
		results = append(results, v)
	}
}

// Apply compiles expression and runs it against data. An empty expression
// returns data unchanged.
func Apply(data any, expression string) (any, error) {
	if strings.TrimSpace(expression) == "" {
		return data, nil
	}
	f, err := Compile(expression)
	if err != nil {
		return nil, err
	}
	return f.Run(data)
}

// ApplyFromJSON decodes jsonData and applies expression to it.
func ApplyFromJSON(jsonData []byte, expression string) (any, error) {
	data, err := Decode(jsonData)
	if err != nil {
		return nil, err
	}
	return Apply(data, expression)
}

// Decode parses a single JSON document into values gojq understands.
// Integers stay exact: they decode to int, or *big.Int when they overflow.
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("invalid JSON: trailing data after document")
	}
	return normalizeNumbers(v), nil
}

func normalizeNumbers(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, e := range x {
			x[k] = normalizeNumbers(e)
		}
	case []any:
		for i, e := range x {
			x[i] = normalizeNumbers(e)
		}
	case json.Number:
		s := x.String()
		if i, err := strconv.ParseInt(s, 10, 0); err == nil {
			return int(i)
		}
		if n, ok := new(big.Int).SetString(s, 10); ok {
			return n
		}
		f, _ := x.Float64()
		return f
	}
	return v
}

func isIterationError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "expected an object but got: array") ||
		strings.Contains(msg, "cannot iterate over")
}

func isRootArrayQuery(expr string) bool {
	return strings.HasPrefix(expr, ".[]") || strings.HasPrefix(expr, "[.[]") || strings.HasPrefix(expr, "(.[]")
}

func envelopeItems(data any) (any, bool) {
	m, ok := data.(map[string]any)
	if !ok {
		return nil, false
	}
	for _, key := range envelopeKeys {
		if items, ok := m[key].([]any); ok {
			return items, true
		}
	}
	return nil, false
}
