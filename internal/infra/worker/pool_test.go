//go:build !integration

package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestPool_RunsSubmittedTasks(t *testing.T) {
	logger := zerolog.Nop()
	p := NewPool(2, &logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	var ran atomic.Int32
	done := make(chan struct{}, 5)
	for i := 0; i < 5; i++ {
		err := p.Submit(func(ctx context.Context) error {
			ran.Add(1)
			done <- struct{}{}
			return nil
		})
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	for i := 0; i < 5; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %d tasks", i)
		}
	}
	if ran.Load() != 5 {
		t.Fatalf("expected 5 tasks, got %d", ran.Load())
	}
}

func TestPool_SubmitWhenFull(t *testing.T) {
	logger := zerolog.Nop()
	// not started: nothing drains the queue
	p := NewPool(1, &logger)
	for i := 0; i < 4; i++ {
		if err := p.Submit(func(context.Context) error { return nil }); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	if err := p.Submit(func(context.Context) error { return nil }); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if err := p.Submit(nil); err == nil {
		t.Fatal("expected error for nil task")
	}
}

func TestPool_StopIsIdempotent(t *testing.T) {
	logger := zerolog.Nop()
	p := NewPool(1, &logger)
	p.Start(context.Background())
	p.Stop()
	p.Stop()
}
