package logg

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// log instance
var Dlog, Dtracelog *LogHandle

func init() {
	InitLogger()
}

// InitLogger rebuilds the handles; call it again after InitLogHook or SetLevel.
func InitLogger() {
	Dlog = getLogger()
	Dtracelog = getTraceLogger()
}

var (
	defaultLogHook, traceLogHook, syslogHook logrus.Hook
)

type logger struct {
	level logrus.Level
}

type LogHandle struct {
	logrus.Logger
}

var dlogger = logger{
	level: logrus.InfoLevel,
}

func getLogger() *LogHandle {
	h := newHandle()
	if defaultLogHook != nil {
		h.Hooks.Add(defaultLogHook)
	} else if syslogHook != nil {
		h.Hooks.Add(syslogHook)
	}

	return h
}

func getTraceLogger() *LogHandle {
	h := newHandle()
	if traceLogHook != nil {
		h.Hooks.Add(traceLogHook)
	} else if syslogHook != nil {
		h.Hooks.Add(syslogHook)
	}
	// traces are opt-in per message, so they bypass the level filter
	h.Level = logrus.DebugLevel
	return h
}

func newHandle() *LogHandle {
	l := &LogHandle{}
	l.Out = os.Stderr
	l.Hooks = make(logrus.LevelHooks)
	l.Formatter = &CommonLogFormatter{
		pid: os.Getpid(),
	}
	l.Level = dlogger.level
	l.SetReportCaller(true)

	return l
}

func SetLevel(level logrus.Level) {
	dlogger.level = level
}

func ParseLevel(s string) logrus.Level {
	switch strings.ToLower(s) {
	case "error":
		return logrus.ErrorLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "debug":
		return logrus.DebugLevel
	case "trace":
		return logrus.TraceLevel
	}
	return logrus.InfoLevel
}

type CommonLogFormatter struct {
	pid int
}

func (hook *CommonLogFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var caller string
	if e.HasCaller() {
		callerPath := path.Join(path.Base(path.Dir(e.Caller.File)), path.Base(e.Caller.File))
		caller = fmt.Sprintf("%s:%d", callerPath, e.Caller.Line)
	}
	timestamp := e.Time.Format("2006-01-02 15:04:05.000000") + " "
	ret := new(bytes.Buffer)
	fmt.Fprintf(ret, "%v%d %v %v %s", timestamp, hook.pid, strings.ToUpper(e.Level.String()), e.Message, caller)

	if len(e.Data) != 0 {
		keys := make([]string, 0, len(e.Data))
		for k := range e.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(ret, " %s=%v", k, e.Data[k])
		}
	}

	ret.WriteString("\n")
	return ret.Bytes(), nil
}
