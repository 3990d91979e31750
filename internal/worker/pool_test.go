package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/scientia/internal/model"
)

// fakeLooker answers from a table after an optional delay
type fakeLooker struct {
	delay   time.Duration
	errs    map[string]error
	calls   int32
	mu      sync.Mutex
	active  int
	maxSeen int
}

func (f *fakeLooker) Lookup(ctx context.Context, name string) (*model.BiographicalRecord, error) {
	atomic.AddInt32(&f.calls, 1)

	f.mu.Lock()
	f.active++
	if f.active > f.maxSeen {
		f.maxSeen = f.active
	}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.errs[name]; err != nil {
		return nil, err
	}
	return &model.BiographicalRecord{Name: name}, nil
}

func TestNewPool(t *testing.T) {
	tests := []struct {
		workers int
		want    int
	}{
		{5, 5},
		{0, 1},
		{-1, 1},
	}
	for _, tt := range tests {
		p := NewPool(context.Background(), tt.workers)
		if p.workers != tt.want {
			t.Errorf("NewPool(%d).workers = %d, want %d", tt.workers, p.workers, tt.want)
		}
		p.Shutdown()
	}
}

func TestPool_SubmitAfterShutdown(t *testing.T) {
	p := NewPool(context.Background(), 2)
	p.Start(&fakeLooker{})
	p.Shutdown()

	if p.Submit(0, "Marie Curie") {
		t.Error("Submit should refuse work after Shutdown")
	}
}

func TestPool_ShutdownIsIdempotent(t *testing.T) {
	p := NewPool(context.Background(), 2)
	p.Start(&fakeLooker{})
	p.Shutdown()
	p.Shutdown()
}

func TestPool_ParentCancelStopsWorkers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPool(ctx, 1)
	looker := &fakeLooker{delay: time.Second}
	p.Start(looker)
	p.Submit(0, "Isaac Newton")

	cancel()

	done := make(chan struct{})
	go func() {
		p.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("workers did not stop after parent cancel")
	}
}

func TestPool_ResultsCarryIndexAndError(t *testing.T) {
	boom := errors.New("boom")
	p := NewPool(context.Background(), 3)
	p.Start(&fakeLooker{errs: map[string]error{"b": boom}})

	names := []string{"a", "b", "c"}
	for i, n := range names {
		p.Submit(i, n)
	}

	got := make(map[int]Result)
	for range names {
		r := <-p.results
		got[r.Index] = r
	}
	p.Shutdown()

	for i, n := range names {
		r, ok := got[i]
		if !ok {
			t.Fatalf("missing result %d", i)
		}
		if r.Name != n {
			t.Errorf("result %d name = %q, want %q", i, r.Name, n)
		}
	}
	if !errors.Is(got[1].Err, boom) {
		t.Errorf("result 1 err = %v", got[1].Err)
	}
	if got[0].Record == nil || got[0].Err != nil {
		t.Errorf("result 0 = %+v", got[0])
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	looker := &fakeLooker{delay: 20 * time.Millisecond}
	b := NewBatchProcessor(looker, 2)

	names := make([]string, 10)
	for i := range names {
		names[i] = fmt.Sprintf("Name %d", i)
	}
	b.LookupNames(context.Background(), names)

	if looker.maxSeen > 2 {
		t.Errorf("saw %d concurrent lookups, want at most 2", looker.maxSeen)
	}
	if atomic.LoadInt32(&looker.calls) != 10 {
		t.Errorf("calls = %d, want 10", looker.calls)
	}
}
