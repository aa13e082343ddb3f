//go:build !windows
// +build !windows

package logg

import (
	"fmt"
	"log/syslog"
	"os"
	"path"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	lsys "github.com/sirupsen/logrus/hooks/syslog"
)

const (
	logSuffix = "%Y%m%d-%H.log"
)

// InitLogHook routes logs to rotating files under logDir, or to syslog when logDir is
// empty and useSyslog is set. Call InitLogger afterwards to attach the hooks.
func InitLogHook(logDir string, logMaxAge, logRotationTime time.Duration, useSyslog bool) {
	var err error
	if logDir != "" {
		err = os.MkdirAll(logDir, os.ModePerm)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create log dir %s: %v\n", logDir, err)
			return
		}

		defaultLogHook, err = newRotatelogHook(
			path.Join(logDir, "go-dynfile-"+logSuffix), logMaxAge, logRotationTime,
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create default log hook: %v\n", err)
			return
		}

		traceLogHook, err = newRotatelogHook(
			path.Join(logDir, "trace-"+logSuffix), logMaxAge, logRotationTime,
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create trace log hook: %v\n", err)
			return
		}
	} else if useSyslog {
		syslogHook, err = lsys.NewSyslogHook("", "", syslog.LOG_DEBUG, "go-dynfile")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create syslog hook: %v\n", err)
			return
		}
	}
}

func newRotatelogHook(logPath string, maxAge, rotationTime time.Duration) (logrus.Hook, error) {
	writer, err := rotatelogs.New(
		logPath,
		rotatelogs.WithMaxAge(maxAge),
		rotatelogs.WithRotationTime(rotationTime),
	)
	if err != nil {
		return nil, err
	}

	writeMap := lfshook.WriterMap{
		logrus.TraceLevel: writer,
		logrus.DebugLevel: writer,
		logrus.InfoLevel:  writer,
		logrus.WarnLevel:  writer,
		logrus.ErrorLevel: writer,
		logrus.FatalLevel: writer,
		logrus.PanicLevel: writer,
	}

	formatter := &CommonLogFormatter{
		pid: os.Getpid(),
	}
	return lfshook.NewHook(writeMap, formatter), nil
}
