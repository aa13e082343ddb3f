package flow

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/lambertxiao/go-dynfile/pkg/logg"
	"github.com/lambertxiao/go-dynfile/pkg/types"
)

const MAX_LINE_SIZE = 16 << 20

// Ingest reads NDJSON envelopes from r and delivers them in line order until EOF or
// ctx is done. Malformed lines and unknown nodes are logged and skipped.
func (f *Flow) Ingest(ctx context.Context, r io.Reader) (accepted int, err error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), MAX_LINE_SIZE)

	lineNo := 0
	for sc.Scan() {
		if ctx.Err() != nil {
			return accepted, ctx.Err()
		}
		lineNo++

		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}

		var env Envelope
		if err := json.Unmarshal(line, &env); err != nil {
			logg.Dlog.Warnf("skip line %d: %v", lineNo, err)
			continue
		}
		if err := f.Deliver(env); err != nil {
			if errors.Is(err, types.ErrEngineClosed) {
				return accepted, err
			}
			logg.Dlog.Warnf("skip line %d: %v", lineNo, err)
			continue
		}
		accepted++
	}
	return accepted, sc.Err()
}

// InputHandler accepts NDJSON envelopes on POST and answers with the number queued.
func (f *Flow) InputHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		defer r.Body.Close()

		accepted, err := f.Ingest(r.Context(), r.Body)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, types.ErrEngineClosed) {
				status = http.StatusServiceUnavailable
			}
			http.Error(w, fmt.Sprintf("accepted %d: %v", accepted, err), status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		fmt.Fprintf(w, "{\"accepted\":%d}\n", accepted)
	})
}
