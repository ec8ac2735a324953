package bridge

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestDispatcherPreservesOrderAcrossGoroutines(t *testing.T) {
	d := New(zerolog.Nop())
	var mu sync.Mutex
	got := map[int][]int{}
	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				i := i
				d.Submit(func() {
					mu.Lock()
					got[p] = append(got[p], i)
					mu.Unlock()
				})
			}
		}(p)
	}
	wg.Wait()
	d.Close()
	for p := 0; p < 4; p++ {
		if len(got[p]) != 100 {
			t.Fatalf("producer %d: %d tasks delivered, want 100", p, len(got[p]))
		}
		for i, v := range got[p] {
			if v != i {
				t.Fatalf("producer %d out of order at %d: %v", p, i, got[p][:i+1])
			}
		}
	}
}

func TestSubmitDoesNotBlockOnSlowDelivery(t *testing.T) {
	d := New(zerolog.Nop())
	release := make(chan struct{})
	d.Submit(func() { <-release })
	start := time.Now()
	for i := 0; i < 1000; i++ {
		d.Submit(func() {})
	}
	if el := time.Since(start); el > time.Second {
		t.Fatalf("submit blocked for %s", el)
	}
	close(release)
	d.Close()
	if n := d.Pending(); n != 0 {
		t.Fatalf("pending after close = %d", n)
	}
}

func TestCloseDrainsThenRejects(t *testing.T) {
	d := New(zerolog.Nop())
	ran := 0
	block := make(chan struct{})
	d.Submit(func() { <-block })
	for i := 0; i < 10; i++ {
		d.Submit(func() { ran++ })
	}
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(block)
	}()
	d.Close()
	if ran != 10 {
		t.Fatalf("drained %d tasks, want 10", ran)
	}
	before := testutil.ToFloat64(tasksDropped)
	if d.Submit(func() { ran++ }) {
		t.Fatalf("submit after close accepted")
	}
	if testutil.ToFloat64(tasksDropped) != before+1 {
		t.Fatalf("dropped counter not incremented")
	}
	d.Close()
}

func TestPanickingTaskDoesNotStopDelivery(t *testing.T) {
	d := New(zerolog.Nop())
	done := false
	d.Submit(func() { panic("boom") })
	d.Submit(func() { done = true })
	d.Close()
	if !done {
		t.Fatalf("task after panic not delivered")
	}
}

func TestQueueDepthSumsAcrossDispatchers(t *testing.T) {
	before := testutil.ToFloat64(queueDepth)
	release := make(chan struct{})
	block := func(d *Dispatcher) {
		started := make(chan struct{})
		d.Submit(func() {
			close(started)
			<-release
		})
		<-started
	}
	a, b := New(zerolog.Nop()), New(zerolog.Nop())
	block(a)
	block(b)
	a.Submit(func() {})
	a.Submit(func() {})
	b.Submit(func() {})
	if got := testutil.ToFloat64(queueDepth) - before; got != 3 {
		t.Fatalf("queue depth = %v, want 3", got)
	}
	close(release)
	a.Close()
	b.Close()
	if got := testutil.ToFloat64(queueDepth) - before; got != 0 {
		t.Fatalf("queue depth after drain = %v, want 0", got)
	}
}
