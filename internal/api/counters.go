package api

import (
	"net/http"
	"strings"
	"sync/atomic"
)

// Verbs lists the methods tracked by RequestCounters, in display order.
var Verbs = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}

// DefaultCounters is the process-wide instance shared by CLI commands.
var DefaultCounters = NewRequestCounters()

// RequestCounters tracks in-flight requests per verb for loading indicators.
//
// All fields are atomic. Total sums the per-verb counters one at a time
// and is therefore best-effort under concurrent mutation.
type RequestCounters struct {
	get, post, put, patch, del atomic.Int64
	suppressNext               atomic.Bool
}

// CounterSnapshot is a point-in-time view of RequestCounters.
type CounterSnapshot struct {
	Get    int64 `json:"get"`
	Post   int64 `json:"post"`
	Put    int64 `json:"put"`
	Patch  int64 `json:"patch"`
	Delete int64 `json:"delete"`
	Total  int64 `json:"total"`
}

// NewRequestCounters returns zeroed counters.
func NewRequestCounters() *RequestCounters {
	return &RequestCounters{}
}

func (c *RequestCounters) counter(verb string) *atomic.Int64 {
	switch strings.ToUpper(verb) {
	case http.MethodGet:
		return &c.get
	case http.MethodPost:
		return &c.post
	case http.MethodPut:
		return &c.put
	case http.MethodPatch:
		return &c.patch
	case http.MethodDelete:
		return &c.del
	default:
		return nil
	}
}

// Begin records the start of an exchange for verb.
func (c *RequestCounters) Begin(verb string) {
	if n := c.counter(verb); n != nil {
		n.Add(1)
	}
}

// End records the completion of an exchange for verb. The counter never
// drops below zero.
func (c *RequestCounters) End(verb string) {
	n := c.counter(verb)
	if n == nil {
		return
	}
	for {
		cur := n.Load()
		if cur <= 0 {
			return
		}
		if n.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}

// Count returns the in-flight count for verb.
func (c *RequestCounters) Count(verb string) int64 {
	if n := c.counter(verb); n != nil {
		return n.Load()
	}
	return 0
}

// Total returns the sum of all per-verb counters.
func (c *RequestCounters) Total() int64 {
	return c.get.Load() + c.post.Load() + c.put.Load() + c.patch.Load() + c.del.Load()
}

// Busy reports whether any request is in flight.
func (c *RequestCounters) Busy() bool {
	return c.Total() > 0
}

// Snapshot returns the current counter values.
func (c *RequestCounters) Snapshot() CounterSnapshot {
	s := CounterSnapshot{
		Get:    c.get.Load(),
		Post:   c.post.Load(),
		Put:    c.put.Load(),
		Patch:  c.patch.Load(),
		Delete: c.del.Load(),
	}
	s.Total = s.Get + s.Post + s.Put + s.Patch + s.Delete
	return s
}

// SuppressNext excludes the next dispatched call from counting. It is a
// one-shot: the dispatcher handling that call clears it.
func (c *RequestCounters) SuppressNext() {
	c.suppressNext.Store(true)
}

// ConsumeSuppression reads and clears the one-shot suppression flag.
func (c *RequestCounters) ConsumeSuppression() bool {
	return c.suppressNext.Swap(false)
}
