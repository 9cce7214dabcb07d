package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type mockDLQPurger struct {
	mu         sync.Mutex
	results    []int
	err        error
	retentions []time.Duration
}

func (m *mockDLQPurger) PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retentions = append(m.retentions, retention)
	n := 0
	if len(m.results) > 0 {
		n, m.results = m.results[0], m.results[1:]
	}
	return n, m.err
}

func (m *mockDLQPurger) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.retentions)
}

func TestGarbageCollector_Sweep(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		purger     *mockDLQPurger
		wantErr    bool
		wantPurged int64
	}{
		{name: "purges", purger: &mockDLQPurger{results: []int{3}}, wantPurged: 3},
		{name: "nothing to purge", purger: &mockDLQPurger{}, wantPurged: 0},
		{name: "partial failure counted", purger: &mockDLQPurger{results: []int{2}, err: errors.New("channel closed")}, wantErr: true, wantPurged: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gc := NewGarbageCollector(tt.purger, time.Minute, 6*time.Hour, nil)
			err := gc.sweep(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error=%v, got %v", tt.wantErr, err)
			}
			if got := gc.Purged(); got != tt.wantPurged {
				t.Errorf("Expected %d purged, got %d", tt.wantPurged, got)
			}
			if tt.purger.retentions[0] != 6*time.Hour {
				t.Errorf("Expected retention 6h, got %v", tt.purger.retentions[0])
			}
		})
	}
}

func TestGarbageCollector_Defaults(t *testing.T) {
	t.Parallel()

	gc := NewGarbageCollector(nil, 0, -time.Second, nil)
	if gc.interval != DefaultDLQSweepInterval || gc.retention != DefaultDLQRetention {
		t.Errorf("Expected defaults, got interval=%v retention=%v", gc.interval, gc.retention)
	}
	if err := gc.sweep(context.Background()); err != nil {
		t.Errorf("Expected nil purger to be a no-op, got %v", err)
	}
}

func TestGarbageCollector_StartSweepsImmediately(t *testing.T) {
	t.Parallel()

	purger := &mockDLQPurger{results: []int{1}}
	gc := NewGarbageCollector(purger, time.Hour, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gc.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for purger.calls() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if purger.calls() != 1 {
		t.Errorf("Expected one sweep before the first tick, got %d", purger.calls())
	}
	if gc.Purged() != 1 {
		t.Errorf("Expected 1 purged, got %d", gc.Purged())
	}
}
