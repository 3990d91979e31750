package driver

import (
	"context"
	"testing"
	"time"
)

type urlSession struct {
	Session
	urls  []string
	calls int
}

func (s *urlSession) CurrentURL() string {
	u := s.urls[min(s.calls, len(s.urls)-1)]
	s.calls++
	return u
}

func noSleep(t *testing.T) {
	t.Helper()
	orig := sleep
	sleep = func(context.Context, time.Duration) {}
	t.Cleanup(func() { sleep = orig })
}

func TestAwaitURLChange(t *testing.T) {
	noSleep(t)

	tests := []struct {
		name    string
		urls    []string
		want    bool
		maxPoll int
	}{
		{"already changed", []string{"b"}, true, 1},
		{"changes after polls", []string{"a", "a", "a", "b"}, true, 4},
		{"never changes", []string{"a"}, false, 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &urlSession{urls: tt.urls}
			got := AwaitURLChange(context.Background(), s, "a", time.Second, 100*time.Millisecond)
			if got != tt.want {
				t.Errorf("AwaitURLChange() = %v, want %v", got, tt.want)
			}
			if s.calls != tt.maxPoll {
				t.Errorf("polled %d times, want %d", s.calls, tt.maxPoll)
			}
		})
	}
}

func TestAwaitURLChange_StopsOnCancel(t *testing.T) {
	noSleep(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &urlSession{urls: []string{"a"}}
	if AwaitURLChange(ctx, s, "a", time.Hour, time.Millisecond) {
		t.Error("expected no change")
	}
	if s.calls != 1 {
		t.Errorf("expected a single poll after cancel, got %d", s.calls)
	}
}

func TestOpenerFunc(t *testing.T) {
	want := &urlSession{urls: []string{"x"}}
	var opener Opener = OpenerFunc(func(context.Context) (Session, error) { return want, nil })

	got, err := opener.Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if got != want {
		t.Error("Open() returned a different session")
	}
}
