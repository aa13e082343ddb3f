package fwriter

import (
	"context"
	"sync"

	"github.com/lambertxiao/go-dynfile/pkg/logg"
	"github.com/sirupsen/logrus"
)

// Engine owns one logical target: a FIFO of requests, the executor that applies
// them, and at most one open append stream.
type Engine struct {
	opts    Options
	exec    *executor
	metrics *engineMetrics
	status  *statusIndicator

	mu      sync.Mutex
	queue   []*Request
	closing bool

	finalizeOnce sync.Once
	done         chan struct{}
}

func NewEngine(opts Options) *Engine {
	opts.setDefaults()

	metrics := newEngineMetrics(opts.Registerer, opts.Name)
	status := newStatusIndicator(opts.Clock, opts.StatusDelay, opts.OnStatus)

	return &Engine{
		opts:    opts,
		metrics: metrics,
		status:  status,
		exec: &executor{
			node:       opts.Name,
			workingDir: opts.WorkingDir,
			renderer:   opts.Renderer,
			encoder:    opts.Encoder,
			dirs:       opts.DirMaker,
			metrics:    metrics,
			status:     status,
		},
		done: make(chan struct{}),
	}
}

func (en *Engine) Name() string {
	return en.opts.Name
}

// Pending counts queued requests, including the one in flight.
func (en *Engine) Pending() int {
	en.mu.Lock()
	defer en.mu.Unlock()
	return len(en.queue)
}

func (en *Engine) Status() string {
	return en.status.get()
}

// Close stops accepting requests. Requests already queued still drain; the returned
// channel is closed once they have and the stream is released. Repeated calls return
// the same channel.
func (en *Engine) Close() <-chan struct{} {
	en.mu.Lock()
	if en.closing {
		en.mu.Unlock()
		return en.done
	}
	en.closing = true
	idle := len(en.queue) == 0
	en.mu.Unlock()

	if idle {
		en.finalize()
	} else {
		logg.Dlog.WithField("node", en.opts.Name).Infof("close after queue processed")
	}
	return en.done
}

// Shutdown waits for Close to finish or ctx to end. The in-flight write is never
// interrupted.
func (en *Engine) Shutdown(ctx context.Context) error {
	select {
	case <-en.Close():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (en *Engine) finalize() {
	en.finalizeOnce.Do(func() {
		if err := en.exec.closeStream(); err != nil {
			logg.Dlog.WithFields(logrus.Fields{"node": en.opts.Name}).Warnf("close stream: %v", err)
		}
		en.status.clear()
		en.metrics.queueDepth.Set(0)
		close(en.done)
	})
}
