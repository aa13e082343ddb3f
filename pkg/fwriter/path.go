package fwriter

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cbroglie/mustache"
	"github.com/lambertxiao/go-dynfile/pkg/types"
)

// MustacheRenderer renders {{field}} references against the message, e.g.
// "/var/log/{{topic}}.log".
type MustacheRenderer struct{}

func (MustacheRenderer) Render(tmpl string, msg types.Message) (string, error) {
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil
	}
	return mustache.Render(tmpl, map[string]interface{}(msg))
}

// resolvePath returns "" when there is no target. A render failure is a dispatch
// fault, not a per-request error.
func (e *executor) resolvePath(req *Request) (string, error) {
	if req.Template == "" {
		return "", nil
	}

	p, err := e.renderer.Render(req.Template, req.Msg)
	if err != nil {
		return "", fmt.Errorf("render filename %q: %w", req.Template, err)
	}
	if p == "" {
		return "", nil
	}

	if e.workingDir != "" && !filepath.IsAbs(p) {
		p, err = filepath.Abs(filepath.Join(e.workingDir, p))
		if err != nil {
			return "", err
		}
	}
	return p, nil
}
