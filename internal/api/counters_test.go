package api

import (
	"sync"
	"testing"
)

func TestRequestCounters_BeginEnd(t *testing.T) {
	c := NewRequestCounters()
	if c.Busy() {
		t.Fatal("new counters should be idle")
	}

	c.Begin("GET")
	c.Begin("get")
	c.Begin("POST")
	c.Begin("OPTIONS")

	if got := c.Count("GET"); got != 2 {
		t.Errorf("Count(GET) = %d, want 2", got)
	}
	if got := c.Count("OPTIONS"); got != 0 {
		t.Errorf("Count(OPTIONS) = %d, want 0", got)
	}
	if got := c.Total(); got != 3 {
		t.Errorf("Total() = %d, want 3", got)
	}

	c.End("GET")
	c.End("POST")
	snap := c.Snapshot()
	if snap.Get != 1 || snap.Post != 0 || snap.Total != 1 {
		t.Errorf("Snapshot() = %+v, want get=1 post=0 total=1", snap)
	}
	if !c.Busy() {
		t.Error("Busy() = false with a GET in flight")
	}
}

func TestRequestCounters_EndNeverNegative(t *testing.T) {
	c := NewRequestCounters()
	c.End("DELETE")
	c.End("DELETE")
	if got := c.Count("DELETE"); got != 0 {
		t.Errorf("Count(DELETE) = %d, want 0", got)
	}
	c.Begin("DELETE")
	if got := c.Count("DELETE"); got != 1 {
		t.Errorf("Count(DELETE) = %d, want 1", got)
	}
}

func TestRequestCounters_SuppressionIsOneShot(t *testing.T) {
	c := NewRequestCounters()
	if c.ConsumeSuppression() {
		t.Fatal("suppression set on new counters")
	}
	c.SuppressNext()
	c.SuppressNext()
	if !c.ConsumeSuppression() {
		t.Error("first ConsumeSuppression() = false, want true")
	}
	if c.ConsumeSuppression() {
		t.Error("second ConsumeSuppression() = true, want false")
	}
}

func TestRequestCounters_Concurrent(t *testing.T) {
	c := NewRequestCounters()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		for _, verb := range Verbs {
			wg.Add(1)
			go func(verb string) {
				defer wg.Done()
				c.Begin(verb)
				c.End(verb)
			}(verb)
		}
	}
	wg.Wait()
	if got := c.Total(); got != 0 {
		t.Errorf("Total() = %d after balanced calls, want 0", got)
	}
}
