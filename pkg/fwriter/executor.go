package fwriter

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lambertxiao/go-dynfile/pkg/charset"
	"github.com/lambertxiao/go-dynfile/pkg/logg"
	"github.com/lambertxiao/go-dynfile/pkg/types"
	"github.com/sirupsen/logrus"
)

// executor performs one request at a time. It is driven only by the engine's worker
// goroutine (or by finalize once the worker is gone), so stream needs no lock.
type executor struct {
	node       string
	workingDir string
	renderer   PathRenderer
	encoder    charset.Encoder
	dirs       DirMaker
	metrics    *engineMetrics
	status     *statusIndicator

	stream *StreamHandle
}

// execute signals completion through req.tracker unless it returns an error. A
// returned error is a dispatch fault: the request was not completed and the caller
// must abandon the batch.
func (e *executor) execute(req *Request) error {
	t := req.tracker
	msg := req.Msg
	log := logg.Dlog.WithFields(logrus.Fields{"node": e.node, "msgid": msg.ID()})

	if msg.Traced() {
		dump, _ := json.Marshal(msg)
		logg.Dtracelog.WithFields(logrus.Fields{"node": e.node, "template": req.Template}).
			Infof("process msg %s", dump)
	}

	path, err := e.resolvePath(req)
	if err != nil {
		return err
	}

	if !req.Static && req.Template != "" {
		e.status.schedule(req.Template)
	}

	if path == "" {
		log.Warn(types.ErrMissingTarget.Error())
		t.done(types.NewOpError(types.ErrMissingTarget, "", nil))
		return nil
	}
	log = log.WithField("path", path)

	if req.Mode == DELETE {
		e.dropStream(path)
		if err := unlink(path); err != nil {
			opErr := types.NewOpError(types.ErrDeleteFailed, path, err)
			log.Error(opErr)
			t.done(opErr)
			return nil
		}
		log.Debugf("deleted file")
		t.send(msg)
		t.done(nil)
		return nil
	}

	payload, ok := msg.Payload()
	if !ok {
		t.done(nil)
		return nil
	}

	if req.CreateDir {
		dir := filepath.Dir(path)
		if err := e.dirs.EnsureDir(dir); err != nil {
			opErr := types.NewOpError(types.ErrDirectoryCreateFailed, dir, err)
			log.Error(opErr)
			t.done(opErr)
			return nil
		}
	}

	buf, err := e.encode(req, payload)
	if err != nil {
		return err
	}

	if req.Mode == OVERWRITE {
		err = e.overwrite(path, buf)
	} else {
		err = e.append(req, path, buf)
	}
	if err != nil {
		log.Error(err)
		t.done(err)
		return nil
	}

	e.metrics.writtenSizeBytes.Observe(float64(len(buf)))
	t.send(msg)
	t.done(nil)
	return nil
}

func (e *executor) encode(req *Request, payload interface{}) ([]byte, error) {
	data, raw, err := payloadBytes(payload)
	if err != nil {
		return nil, fmt.Errorf("serialize payload: %w", err)
	}
	if req.AppendNewline && !raw {
		data = append(data, lineEnding...)
	}

	enc := req.Encoding
	if enc == types.EncodingSetByMsg {
		enc = req.Msg.String(types.MsgKeyEncoding)
		if enc == "" {
			enc = types.EncodingNone
		}
	}
	return e.encoder.Encode(data, enc)
}

// overwrite is a full open/write/close cycle; no handle survives it.
func (e *executor) overwrite(path string, buf []byte) error {
	e.dropStream(path)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, types.DEFAULT_FILE_MODE)
	if err != nil {
		return types.NewOpError(types.ErrOpenFailed, path, err)
	}

	_, err = f.Write(buf)
	cerr := f.Close()
	if err == nil {
		err = cerr
	}
	if err != nil {
		return types.NewOpError(types.ErrWriteFailed, path, err)
	}
	return nil
}

func (e *executor) append(req *Request, path string, buf []byte) error {
	if !e.reusable(req, path) {
		if e.stream != nil {
			logg.Dlog.WithFields(logrus.Fields{"node": e.node, "path": e.stream.Path()}).
				Debugf("discard append stream")
		}
		e.closeStream()

		s, err := openStream(path)
		if err != nil {
			return types.NewOpError(types.ErrOpenFailed, path, err)
		}
		e.stream = s
		e.metrics.streamOpens.Inc()
	}

	if _, err := e.stream.Write(buf); err != nil {
		e.closeStream()
		return types.NewOpError(types.ErrWriteFailed, path, err)
	}

	if !req.Static {
		// a dynamic path has no reuse opportunity
		s := e.stream
		e.stream = nil
		if err := s.Close(); err != nil {
			return types.NewOpError(types.ErrWriteFailed, path, err)
		}
	}
	return nil
}

// reusable: static path, same resolved file, and the file on disk is still the one
// the stream was opened against.
func (e *executor) reusable(req *Request, path string) bool {
	if !req.Static || e.stream == nil {
		return false
	}
	if e.stream.Path() != path {
		return false
	}
	return e.stream.Current()
}

// dropStream closes the stream when a delete or overwrite of its path makes it stale.
func (e *executor) dropStream(path string) {
	if e.stream != nil && e.stream.Path() == path {
		e.closeStream()
	}
}

func (e *executor) closeStream() error {
	if e.stream == nil {
		return nil
	}
	s := e.stream
	e.stream = nil
	return s.Close()
}
