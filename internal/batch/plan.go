// Package batch runs a YAML plan of requests concurrently through a dispatcher.
package batch

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

// Plan is a list of requests loaded from YAML.
//
//	concurrency: 4
//	rate: 10
//	requests:
//	  - name: list users
//	    method: GET
//	    path: /users
//	    query: {page: 2}
type Plan struct {
	Concurrency int     `yaml:"concurrency"`
	Rate        float64 `yaml:"rate"`
	Requests    []Step  `yaml:"requests"`
}

// Step is one planned request. Path may be relative to the base URL or absolute.
type Step struct {
	Name    string            `yaml:"name"`
	Method  string            `yaml:"method"`
	Path    string            `yaml:"path"`
	Query   map[string]any    `yaml:"query"`
	Headers map[string]string `yaml:"headers"`
	Body    any               `yaml:"body"`
}

// Label returns the step name, or "METHOD path" when unnamed.
func (s Step) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Method + " " + s.Path
}

// LoadPlan reads and validates a plan file.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	return ParsePlan(data)
}

// ParsePlan decodes and validates a YAML plan. Methods are upper-cased and
// default to GET.
func ParsePlan(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	if len(p.Requests) == 0 {
		return nil, fmt.Errorf("plan has no requests")
	}
	if p.Concurrency < 0 {
		return nil, fmt.Errorf("invalid concurrency %d: must be >= 0", p.Concurrency)
	}
	if p.Rate < 0 {
		return nil, fmt.Errorf("invalid rate %v: must be >= 0", p.Rate)
	}
	for i := range p.Requests {
		s := &p.Requests[i]
		s.Method = strings.ToUpper(strings.TrimSpace(s.Method))
		if s.Method == "" {
			s.Method = http.MethodGet
		}
		if !validMethod(s.Method) {
			return nil, fmt.Errorf("request %d: unsupported method %q", i+1, s.Method)
		}
		if strings.TrimSpace(s.Path) == "" {
			return nil, fmt.Errorf("request %d: path is required", i+1)
		}
	}
	return &p, nil
}

func validMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodDelete, http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}
