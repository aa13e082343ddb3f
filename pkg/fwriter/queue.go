package fwriter

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/lambertxiao/go-dynfile/pkg/logg"
	"github.com/lambertxiao/go-dynfile/pkg/types"
	"github.com/sirupsen/logrus"
)

// Enqueue appends a message to the engine's queue. If the queue was empty a worker
// starts on it; otherwise the in-flight request's completion advances the queue.
// c may be nil.
func (en *Engine) Enqueue(msg types.Message, c Completion) error {
	return en.enqueue(en.newRequest(msg, c))
}

// Submit is Enqueue with a one-shot result channel.
func (en *Engine) Submit(msg types.Message) (<-chan Result, error) {
	rc := NewResultCompletion()
	if err := en.Enqueue(msg, rc); err != nil {
		return nil, err
	}
	return rc.Result(), nil
}

func (en *Engine) newRequest(msg types.Message, c Completion) *Request {
	tmpl := en.opts.Filename
	static := tmpl != ""
	if !static {
		tmpl = msg.String(types.MsgKeyFilename)
	}

	return &Request{
		Template:      tmpl,
		Static:        static,
		Mode:          en.opts.Mode,
		Encoding:      en.opts.Encoding,
		AppendNewline: en.opts.AppendNewline,
		CreateDir:     en.opts.CreateDir,
		Msg:           msg,
		Completion:    c,
		enqueued:      time.Now(),
		tracker:       &tracker{c: c},
	}
}

func (en *Engine) enqueue(req *Request) error {
	en.mu.Lock()
	if en.closing {
		en.mu.Unlock()
		return types.ErrEngineClosed
	}
	en.queue = append(en.queue, req)
	depth := len(en.queue)
	en.metrics.queueDepth.Set(float64(depth))
	en.mu.Unlock()

	if depth > 1 {
		// pending write exists
		return nil
	}

	go en.process()
	return nil
}

// process is the single worker. The head of the queue is the request in flight and
// is only popped once it has completed. After a fault the whole abandoned batch stays
// queued until every request in it has been completed, so neither Close nor a new
// Enqueue can overtake it.
func (en *Engine) process() {
	for {
		en.mu.Lock()
		head := en.queue[0]
		en.mu.Unlock()

		n := 1
		if fault := en.dispatch(head); fault != nil {
			en.mu.Lock()
			batch := make([]*Request, len(en.queue)-1)
			copy(batch, en.queue[1:])
			en.mu.Unlock()

			en.abandon(head, batch, fault)
			n += len(batch)
		}

		en.mu.Lock()
		for i := 0; i < n; i++ {
			en.queue[i] = nil
		}
		en.queue = en.queue[n:]
		depth := len(en.queue)
		closing := en.closing
		en.metrics.queueDepth.Set(float64(depth))
		en.mu.Unlock()

		if depth > 0 {
			continue
		}
		if closing {
			en.finalize()
		}
		return
	}
}

func (en *Engine) dispatch(req *Request) (fault error) {
	defer func() {
		if r := recover(); r != nil {
			fault = fmt.Errorf("panic: %v", r)
			logg.Dlog.WithField("node", en.opts.Name).Errorf("%v\n%s", fault, debug.Stack())
		}
	}()

	fault = en.exec.execute(req)
	if fault != nil {
		return fault
	}

	result := RESULT_OK
	if req.tracker.err != nil {
		result = RESULT_ERROR
	}
	en.metrics.observe(req, result)
	return nil
}

// abandon completes the faulting request with the fault and every request queued
// behind it with ErrBatchAbandoned.
func (en *Engine) abandon(head *Request, rest []*Request, fault error) {
	derr := &types.DispatchError{Cause: fault}
	logg.Dlog.WithFields(logrus.Fields{
		"node":      en.opts.Name,
		"msgid":     head.Msg.ID(),
		"abandoned": len(rest),
	}).Error(derr)

	head.tracker.done(derr)
	en.metrics.observe(head, RESULT_FAULT)

	for _, req := range rest {
		req.tracker.done(fmt.Errorf("%w: %v", types.ErrBatchAbandoned, fault))
		en.metrics.observe(req, RESULT_FAULT)
		en.metrics.abandonedRequests.Inc()
	}
}
