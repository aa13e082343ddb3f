// Package fwriter serializes write, append and delete requests against one logical
// file target. Requests are applied strictly in arrival order by a single worker; an
// append stream is kept open across requests to a static path and reopened when the
// file on disk is replaced or removed.
package fwriter

//go:generate mockgen -destination=../mocks/mock_completion.go -package=mocks github.com/lambertxiao/go-dynfile/pkg/fwriter Completion

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/lambertxiao/go-dynfile/pkg/charset"
	"github.com/lambertxiao/go-dynfile/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
)

type Mode uint8

const (
	APPEND Mode = iota
	OVERWRITE
	DELETE
)

func (m Mode) String() string {
	switch m {
	case APPEND:
		return "append"
	case OVERWRITE:
		return "overwrite"
	case DELETE:
		return "delete"
	}
	return "unknown"
}

// ParseMode also accepts the Node-RED overwriteFile values "false", "true" and "delete".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "append", "false":
		return APPEND, nil
	case "overwrite", "write", "true":
		return OVERWRITE, nil
	case "delete":
		return DELETE, nil
	}
	return APPEND, fmt.Errorf("%w: mode %q", types.EINVAL, s)
}

// Completion receives the outcome of one request. Send is called at most once and
// always before Done; Done is called exactly once.
type Completion interface {
	Send(msg types.Message)
	Done(err error)
}

type PathRenderer interface {
	Render(tmpl string, msg types.Message) (string, error)
}

type DirMaker interface {
	EnsureDir(dir string) error
}

type Options struct {
	Name string

	// Filename is a static path template. When empty every message names its own
	// target through msg.filename.
	Filename      string
	Mode          Mode
	AppendNewline bool
	CreateDir     bool
	// a charset name, "none", or "setbymsg" to use msg.encoding
	Encoding   string
	WorkingDir string

	Renderer   PathRenderer
	Encoder    charset.Encoder
	DirMaker   DirMaker
	Clock      clockwork.Clock
	Registerer prometheus.Registerer

	StatusDelay time.Duration
	OnStatus    func(status string)
}

func (o *Options) setDefaults() {
	if o.Name == "" {
		o.Name = types.DEFAULT_NODE_NAME
	}
	if o.Encoding == "" {
		o.Encoding = types.DEFAULT_ENCODING
	}
	if o.Renderer == nil {
		o.Renderer = MustacheRenderer{}
	}
	if o.Encoder == nil {
		o.Encoder = charset.DefaultEncoder{}
	}
	if o.DirMaker == nil {
		o.DirMaker = OSDirMaker{}
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.StatusDelay == 0 {
		o.StatusDelay = types.DEFAULT_STATUS_DELAY
	}
}

type OSDirMaker struct{}

func (OSDirMaker) EnsureDir(dir string) error {
	return os.MkdirAll(dir, types.DEFAULT_DIR_MODE)
}
