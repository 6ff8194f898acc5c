package engine

import (
	"sync"
	"time"

	"github.com/yohannes916/mismartera/pkg/metrics"
	"github.com/yohannes916/mismartera/pkg/types"
)

type queueKey struct {
	symbol   string
	interval types.Interval
}

// queueSet holds the per-(symbol, interval) FIFO bar queues the coordinator
// drains in timestamp order.
type queueSet struct {
	mu     sync.Mutex
	queues map[queueKey][]types.Bar
}

func newQueueSet() *queueSet {
	return &queueSet{queues: make(map[queueKey][]types.Bar)}
}

func (qs *queueSet) push(symbol string, interval types.Interval, bars ...types.Bar) {
	qs.mu.Lock()
	defer qs.mu.Unlock()

	key := queueKey{symbol, interval}
	qs.queues[key] = append(qs.queues[key], bars...)
	metrics.QueueDepth.WithLabelValues(symbol, interval.String()).Set(float64(len(qs.queues[key])))
}

// earliestHead returns the minimum head timestamp across all non-empty
// queues. ok is false when every queue is empty, which means the day is
// complete.
func (qs *queueSet) earliestHead() (t time.Time, ok bool) {
	qs.mu.Lock()
	defer qs.mu.Unlock()

	for _, q := range qs.queues {
		if len(q) == 0 {
			continue
		}
		if !ok || q[0].Timestamp.Before(t) {
			t = q[0].Timestamp
			ok = true
		}
	}
	return t, ok
}

// popAt pops every queue head whose timestamp equals t.
func (qs *queueSet) popAt(t time.Time) []types.SymbolBar {
	qs.mu.Lock()
	defer qs.mu.Unlock()

	var popped []types.SymbolBar
	for key, q := range qs.queues {
		if len(q) == 0 || !q[0].Timestamp.Equal(t) {
			continue
		}
		popped = append(popped, types.SymbolBar{Symbol: key.symbol, Interval: key.interval, Bar: q[0]})
		qs.queues[key] = q[1:]
		metrics.QueueDepth.WithLabelValues(key.symbol, key.interval.String()).Set(float64(len(q) - 1))
	}
	return popped
}

func (qs *queueSet) removeSymbol(symbol string) {
	qs.mu.Lock()
	defer qs.mu.Unlock()

	for key := range qs.queues {
		if key.symbol == symbol {
			delete(qs.queues, key)
			metrics.QueueDepth.WithLabelValues(key.symbol, key.interval.String()).Set(0)
		}
	}
}

func (qs *queueSet) clear() {
	qs.mu.Lock()
	defer qs.mu.Unlock()
	qs.queues = make(map[queueKey][]types.Bar)
}
