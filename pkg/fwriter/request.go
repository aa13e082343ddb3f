package fwriter

import (
	"time"

	"github.com/lambertxiao/go-dynfile/pkg/types"
)

// Request is built at enqueue time and not modified afterwards.
type Request struct {
	Template      string
	Static        bool
	Mode          Mode
	Encoding      string
	AppendNewline bool
	CreateDir     bool
	Msg           types.Message
	Completion    Completion

	enqueued time.Time
	tracker  *tracker
}

// tracker enforces the Send-before-Done, Done-exactly-once contract. It is only
// touched by the worker goroutine.
type tracker struct {
	c        Completion
	sent     bool
	finished bool
	err      error
}

func (t *tracker) send(msg types.Message) {
	if t.sent || t.finished {
		return
	}
	t.sent = true
	if t.c != nil {
		t.c.Send(msg)
	}
}

func (t *tracker) done(err error) {
	if t.finished {
		return
	}
	t.finished = true
	t.err = err
	if t.c != nil {
		t.c.Done(err)
	}
}

type Result struct {
	// Msg is the forwarded message, nil when nothing was forwarded.
	Msg types.Message
	Err error
}

// ResultCompletion turns a completion into a one-shot channel.
type ResultCompletion struct {
	ch   chan Result
	sent types.Message
}

func NewResultCompletion() *ResultCompletion {
	return &ResultCompletion{ch: make(chan Result, 1)}
}

func (r *ResultCompletion) Send(msg types.Message) {
	r.sent = msg
}

func (r *ResultCompletion) Done(err error) {
	r.ch <- Result{Msg: r.sent, Err: err}
}

func (r *ResultCompletion) Result() <-chan Result {
	return r.ch
}

type CompletionFuncs struct {
	OnSend func(msg types.Message)
	OnDone func(err error)
}

func (c CompletionFuncs) Send(msg types.Message) {
	if c.OnSend != nil {
		c.OnSend(msg)
	}
}

func (c CompletionFuncs) Done(err error) {
	if c.OnDone != nil {
		c.OnDone(err)
	}
}
