// Package flow hosts one engine per configured node and moves messages between
// NDJSON streams and the engines.
package flow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	jsoniter "github.com/json-iterator/go"
	"github.com/lambertxiao/go-dynfile/pkg/config"
	"github.com/lambertxiao/go-dynfile/pkg/fwriter"
	"github.com/lambertxiao/go-dynfile/pkg/logg"
	"github.com/lambertxiao/go-dynfile/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Envelope is one line of NDJSON on the way in or out. Node may be omitted on input
// when exactly one node is configured.
type Envelope struct {
	Node string        `json:"node,omitempty"`
	Msg  types.Message `json:"msg"`
}

type Options struct {
	WorkingDir string
	Registerer prometheus.Registerer
	Clock      clockwork.Clock
	// Output receives forwarded messages; nil discards them.
	Output io.Writer
}

type Flow struct {
	engines map[string]*fwriter.Engine
	names   []string

	outMu sync.Mutex
	out   io.Writer
}

func New(nodes []config.NodeConf, opts Options) (*Flow, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: no node configured", types.EINVAL)
	}

	out := opts.Output
	if out == nil {
		out = io.Discard
	}

	f := &Flow{
		engines: make(map[string]*fwriter.Engine, len(nodes)),
		out:     out,
	}

	for _, n := range nodes {
		if _, dup := f.engines[n.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate node %q", types.EINVAL, n.Name)
		}
		mode, err := fwriter.ParseMode(n.Mode)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", n.Name, err)
		}

		name := n.Name
		f.engines[name] = fwriter.NewEngine(fwriter.Options{
			Name:          name,
			Filename:      n.Filename,
			Mode:          mode,
			AppendNewline: n.AppendNewline,
			CreateDir:     n.CreateDir,
			Encoding:      n.Encoding,
			WorkingDir:    opts.WorkingDir,
			Clock:         opts.Clock,
			Registerer:    opts.Registerer,
			OnStatus: func(status string) {
				logg.Dlog.WithField("node", name).Debugf("status %q", status)
			},
		})
		f.names = append(f.names, name)
		logg.Dlog.Infof("node %s mode:%s filename:%q encoding:%s", name, mode, n.Filename, n.Encoding)
	}
	sort.Strings(f.names)
	return f, nil
}

func (f *Flow) Nodes() []string {
	return f.names
}

func (f *Flow) Engine(name string) *fwriter.Engine {
	return f.engines[name]
}

func (f *Flow) route(node string) (*fwriter.Engine, error) {
	if node == "" && len(f.engines) == 1 {
		return f.engines[f.names[0]], nil
	}
	en, ok := f.engines[node]
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownNode, node)
	}
	return en, nil
}

// Deliver hands the message to its node's engine. It returns once the message is
// queued, not once it is written.
func (f *Flow) Deliver(env Envelope) error {
	en, err := f.route(env.Node)
	if err != nil {
		return err
	}

	msg := env.Msg
	if msg == nil {
		msg = types.Message{}
	}
	if msg.ID() == "" {
		msg[types.MsgKeyID] = uuid.NewString()
	}
	if p, ok := msg.Payload(); ok {
		if b, isBuf := decodeBuffer(p); isBuf {
			msg[types.MsgKeyPayload] = b
		}
	}

	return en.Enqueue(msg, &forwarder{flow: f, node: en.Name(), msgid: msg.ID()})
}

// Close drains every engine concurrently.
func (f *Flow) Close(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, name := range f.names {
		en := f.engines[name]
		g.Go(func() error {
			if err := en.Shutdown(ctx); err != nil {
				return fmt.Errorf("node %s: %w", en.Name(), err)
			}
			logg.Dlog.Infof("node %s closed", en.Name())
			return nil
		})
	}
	return g.Wait()
}

func (f *Flow) emit(env Envelope) {
	line, err := json.Marshal(env)
	if err != nil {
		logg.Dlog.WithField("node", env.Node).Errorf("encode forwarded msg: %v", err)
		return
	}
	line = append(line, '\n')

	f.outMu.Lock()
	defer f.outMu.Unlock()
	if _, err := f.out.Write(line); err != nil {
		logg.Dlog.WithField("node", env.Node).Errorf("write forwarded msg: %v", err)
	}
}

type forwarder struct {
	flow  *Flow
	node  string
	msgid string
}

func (fw *forwarder) Send(msg types.Message) {
	out := msg
	if p, ok := msg.Payload(); ok {
		if b, isBytes := p.([]byte); isBytes {
			out = msg.Clone()
			out[types.MsgKeyPayload] = encodeBuffer(b)
		}
	}
	fw.flow.emit(Envelope{Node: fw.node, Msg: out})
}

func (fw *forwarder) Done(err error) {
	if err == nil {
		return
	}
	log := logg.Dlog.WithFields(logrus.Fields{"node": fw.node, "msgid": fw.msgid})
	switch {
	case errors.Is(err, types.ErrMissingTarget):
		// already warned by the engine
	case errors.Is(err, types.ErrBatchAbandoned):
		log.Warn(err)
	default:
		log.Errorf("request failed: %v", err)
	}
}
