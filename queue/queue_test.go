package queue_test

import (
	"context"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/szeged/jerrybot/queue"
)

func TestOrder(t *testing.T) {
	cases := []struct {
		name    string
		workers int
		lanes   int
		works   int
	}{
		{"serial", 1, 1, 50},
		{"serial-many-lanes", 1, 4, 25},
		{"parallel", 3, 5, 25},
		{"zero-workers", 0, 2, 10},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			l := queue.New(c.workers)
			var mu sync.Mutex
			got := make(map[string][]int)
			var running, peak atomic.Int32
			keys := []string{"#a", "#b", "#c", "#d", "#e"}[:c.lanes]
			for i := range c.works {
				for _, k := range keys {
					l.Enqueue(context.Background(), k, func(ctx context.Context) {
						n := running.Add(1)
						defer running.Add(-1)
						for {
							p := peak.Load()
							if n <= p || peak.CompareAndSwap(p, n) {
								break
							}
						}
						time.Sleep(time.Duration(rand.IntN(200)) * time.Microsecond)
						mu.Lock()
						got[k] = append(got[k], i)
						mu.Unlock()
					})
				}
			}
			l.Wait()
			want := make([]int, c.works)
			for i := range want {
				want[i] = i
			}
			for _, k := range keys {
				if !slices.Equal(got[k], want) {
					t.Errorf("lane %s out of order: %v", k, got[k])
				}
			}
			if p := int(peak.Load()); p > max(c.workers, 1) {
				t.Errorf("too many concurrent works: limit %d, saw %d", max(c.workers, 1), p)
			}
		})
	}
}

func TestCanceled(t *testing.T) {
	l := queue.New(1)
	ctx, cancel := context.WithCancel(context.Background())
	block := make(chan struct{})
	var ran atomic.Int32
	l.Enqueue(ctx, "#a", func(ctx context.Context) {
		<-block
		ran.Add(1)
	})
	for range 5 {
		l.Enqueue(ctx, "#a", func(ctx context.Context) { ran.Add(1) })
	}
	cancel()
	close(block)
	l.Wait()
	// The first work may or may not have started before the cancel.
	if n := ran.Load(); n > 1 {
		t.Errorf("%d works ran after cancel", n)
	}
	for k, n := range l.Pending() {
		if n != 0 {
			t.Errorf("lane %s still has %d pending", k, n)
		}
	}
}

func TestPending(t *testing.T) {
	l := queue.New(1)
	block := make(chan struct{})
	started := make(chan struct{})
	l.Enqueue(context.Background(), "#a", func(ctx context.Context) {
		close(started)
		<-block
	})
	<-started
	l.Enqueue(context.Background(), "#a", func(ctx context.Context) {})
	l.Enqueue(context.Background(), "#a", func(ctx context.Context) {})
	got := make(map[string]int)
	for k, n := range l.Pending() {
		got[k] = n
	}
	if got["#a"] != 2 {
		t.Errorf("wrong pending count: want 2, got %d", got["#a"])
	}
	close(block)
	l.Wait()
}

func TestWorkContext(t *testing.T) {
	l := queue.New(1)
	block := make(chan struct{})
	started := make(chan struct{})
	var mu sync.Mutex
	var got []int
	record := func(i int) queue.Work {
		return func(ctx context.Context) {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}
	}
	l.Enqueue(context.Background(), "#a", func(ctx context.Context) {
		close(started)
		<-block
		record(0)(ctx)
	})
	<-started
	ctx, cancel := context.WithCancel(context.Background())
	l.Enqueue(ctx, "#a", record(1))
	cancel()
	l.Enqueue(context.Background(), "#a", record(2))
	close(block)
	l.Wait()
	if want := []int{0, 2}; !slices.Equal(got, want) {
		t.Errorf("wrong works ran: want %v, got %v", want, got)
	}
}
