package workerpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWorkerPool_RunsEveryTask(t *testing.T) {
	p := New(3, 10)
	results := p.Run(context.Background())

	var ran atomic.Int32
	boom := errors.New("boom")
	for i := range 10 {
		p.Submit(func(context.Context) error {
			ran.Add(1)
			if i == 4 {
				return boom
			}
			return nil
		})
	}
	p.Close()

	var failed int
	for r := range results {
		if r.Err != nil {
			assert.ErrorIs(t, r.Err, boom)
			failed++
		}
	}
	assert.Equal(t, int32(10), ran.Load())
	assert.Equal(t, 1, failed)
}

func TestWorkerPool_BoundsConcurrency(t *testing.T) {
	p := New(2, 8)
	results := p.Run(context.Background())

	var active, peak atomic.Int32
	for range 8 {
		p.Submit(func(context.Context) error {
			n := active.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			active.Add(-1)
			return nil
		})
	}
	p.Close()
	for range results {
	}
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestWorkerPool_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := New(1, 4)
	results := p.Run(ctx)

	p.Submit(func(ctx context.Context) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	})
	for range 3 {
		p.Submit(func(context.Context) error {
			t.Error("task ran after cancel")
			return nil
		})
	}

	select {
	case <-drain(results):
	case <-time.After(time.Second):
		t.Fatal("results channel was not closed after cancel")
	}
}

func drain(in <-chan Result) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		for range in {
		}
		close(done)
	}()
	return done
}

func TestWorkerPool_NilSafe(t *testing.T) {
	var p *WorkerPool
	p.Submit(func(context.Context) error { return nil })
	p.Close()
	_, ok := <-p.Run(context.Background())
	assert.False(t, ok)
}
