package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ldi/wird/internal/metrics"
	"github.com/ldi/wird/internal/store"
)

const writeTimeout = 5 * time.Second

// persister writes serialized ledger state on a single background goroutine.
// Pending values are coalesced per key so the latest snapshot always wins.
type persister struct {
	st      store.Store
	log     *zap.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	pending map[string]string
	closed  bool

	wake      chan struct{}
	flush     chan chan struct{}
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func newPersister(st store.Store, log *zap.Logger, m *metrics.Metrics) *persister {
	p := &persister{
		st:      st,
		log:     log,
		metrics: m,
		pending: map[string]string{},
		wake:    make(chan struct{}, 1),
		flush:   make(chan chan struct{}),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// enqueue never blocks the caller.
func (p *persister) enqueue(key, value string) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.log.Warn("persistence closed, change kept in memory only", zap.String("key", key))
		return
	}
	p.pending[key] = value
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *persister) run() {
	defer close(p.done)
	for {
		select {
		case <-p.wake:
			p.drain()
		case ack := <-p.flush:
			p.drain()
			close(ack)
		case <-p.quit:
			p.drain()
			return
		}
	}
}

func (p *persister) drain() {
	for {
		p.mu.Lock()
		batch := p.pending
		p.pending = map[string]string{}
		p.mu.Unlock()

		if len(batch) == 0 {
			return
		}

		keys := make([]string, 0, len(batch))
		for k := range batch {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, key := range keys {
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := p.st.Set(ctx, key, batch[key])
			cancel()

			p.metrics.PersistResult(key, err)
			if err != nil {
				p.log.Error("failed to persist ledger state", zap.String("key", key), zap.Error(err))
				continue
			}
			p.log.Debug("persisted ledger state", zap.String("key", key), zap.Int("bytes", len(batch[key])))
		}
	}
}

// Flush blocks until everything enqueued before the call has been attempted.
func (p *persister) Flush(ctx context.Context) error {
	ack := make(chan struct{})
	select {
	case p.flush <- ack:
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains pending writes and stops the writer goroutine.
func (p *persister) Close(ctx context.Context) error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		close(p.quit)
	})

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
