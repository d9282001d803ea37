package client

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// pipeline hands raw messages from the read loop to a dedicated worker, so a
// slow handler never stalls reads. The queue is unbounded and drained strictly
// in arrival order.
type pipeline struct {
	name   string
	handle func(raw string)

	mu     sync.Mutex
	queue  []string
	signal chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once

	log *zap.Logger
}

func newPipeline(name string, handle func(raw string), log *zap.Logger) *pipeline {
	ctx, cancel := context.WithCancel(context.Background())

	return &pipeline{
		name:   name,
		handle: handle,
		signal: make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		log:    log.Named(name),
	}
}

func (p *pipeline) start() {
	p.startOnce.Do(func() {
		go p.run()
	})
}

// stop tells the worker to exit once it's done with the message in hand,
// waits for it, and discards whatever is still queued. It must not be called
// from the worker itself.
func (p *pipeline) stop() {
	p.stopOnce.Do(func() {
		p.cancel()

		// a pipeline that was never started has no worker to wait for
		p.startOnce.Do(func() { close(p.done) })
		<-p.done

		if n := p.discard(); n > 0 {
			p.log.Info("Discarded queued messages on stop", zap.Int("count", n))
		}
	})
}

// put queues a message. Messages put after stop are dropped.
func (p *pipeline) put(raw string) bool {
	if !p.isRunning() {
		return false
	}

	p.mu.Lock()
	p.queue = append(p.queue, raw)
	p.mu.Unlock()

	select {
	case p.signal <- struct{}{}:
	default:
		// worker already has a wake up pending
	}

	return true
}

// discard empties the queue and returns how many messages were dropped.
func (p *pipeline) discard() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.queue)
	p.queue = nil
	return n
}

func (p *pipeline) depth() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.queue)
}

func (p *pipeline) next() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.queue) == 0 {
		return "", false
	}

	raw := p.queue[0]
	p.queue[0] = ""
	p.queue = p.queue[1:]

	return raw, true
}

func (p *pipeline) run() {
	defer close(p.done)

	p.log.Debug("Dispatch worker started")
	defer p.log.Debug("Dispatch worker exited")

	for {
		if !p.isRunning() {
			return
		}

		raw, ok := p.next()
		if !ok {
			select {
			case <-p.ctx.Done():
				return
			case <-p.signal:
				continue
			}
		}

		p.process(raw)
	}
}

func (p *pipeline) process(raw string) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("Handler panicked",
				zap.Any("panic", r),
				zap.String("message", raw))
		}
	}()

	p.handle(raw)
}

// isRunning returns true if stop has not been called
func (p *pipeline) isRunning() bool {
	select {
	case <-p.ctx.Done():
		return false

	default:
		return true
	}
}
