//go:build !windows
// +build !windows

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/lambertxiao/go-dynfile/pkg/config"
	"github.com/lambertxiao/go-dynfile/pkg/flow"
	"github.com/lambertxiao/go-dynfile/pkg/logg"
	"github.com/lambertxiao/go-dynfile/pkg/metrics"
	"github.com/lambertxiao/go-dynfile/pkg/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	gd "github.com/sevlyar/go-daemon"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

func serve(cfg *config.DynfileConfig) error {
	notify_process := func(pid int, si os.Signal) {
		p, err := os.FindProcess(pid)
		if err != nil {
			logg.Dlog.Errorf("notify_process %v, %v", pid, err)
			return
		}
		defer p.Release()
		err = p.Signal(si)
		if err != nil {
			logg.Dlog.Errorf("notify_process %v, %v", pid, err)
			return
		}
	}

	if !cfg.Foreground {
		ctx := &gd.Context{
			PidFileName: cfg.PidFile,
			PidFilePerm: 0644,
			WorkDir:     cfg.WorkingDir,
		}
		d, err := ctx.Reborn()
		if err != nil {
			fmt.Println("error to fork child process", err)
			return err
		}

		var waitfor sync.WaitGroup
		waitfor_child := func() {
			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, syscall.SIGUSR1, syscall.SIGUSR2)
			waitfor.Add(1)
			go func() {
				waitfor_sig = <-sigs
				waitfor.Done()
			}()
		}
		waitfor_child()

		if d != nil {
			// parent process
			waitfor.Wait()

			if waitfor_sig == syscall.SIGUSR1 {
				return nil
			} else {
				fmt.Println("Startup Error")
				return types.EINVAL
			}
		} else {
			// child process
			// release child's own waitfor_sig
			notify_process(os.Getpid(), syscall.SIGUSR1)
			waitfor.Wait()
			signal.Reset(syscall.SIGUSR1, syscall.SIGUSR2)
			defer ctx.Release()
		}
	}

	fl, registry, err := startup(cfg)
	if err != nil {
		if !cfg.Foreground {
			notify_process(os.Getppid(), syscall.SIGUSR2)
		}
		logg.Dlog.Fatalf("startup error, %v", err)
		return err
	}

	logg.Dlog.Infof("succ startup, nodes:%v", fl.Nodes())
	if !cfg.Foreground {
		notify_process(os.Getppid(), syscall.SIGUSR1)
	}

	err = run(cfg, fl, registry)
	if err != nil {
		logg.Dlog.Errorf("exit with error, %v", err)
		return err
	}
	logg.Dlog.Println("succ exit")
	return nil
}

func startup(cfg *config.DynfileConfig) (*flow.Flow, *prometheus.Registry, error) {
	logg.Dlog.Infof("GO_DYNFILE_VERSION:%s, COMMIT_ID:%s, GO_VERSION:%s, BUILD_TIME:%s",
		types.GO_DYNFILE_VERSION, types.COMMIT_ID, types.GO_VERSION, types.BUILD_TIME)
	logg.Dlog.Infof("startup params: %+v", *cfg)

	if !cfg.Foreground {
		logDir := cfg.LogDir
		if logDir == "" {
			homedir := os.Getenv("HOME")
			if homedir == "" {
				log.Panicf("HOME environment variable is empty")
			}
			logDir = homedir + "/.go-dynfile"
		}

		err := RedirectStderr(logDir, types.PANIC_LOG_PREFIX, types.PANIC_LOG_SUFFIX)
		if err != nil {
			return nil, nil, err
		}
	}

	instance, err := os.Hostname()
	if err != nil {
		instance = "localhost"
	}
	registry, registerer := metrics.InitMetricRegistry(instance)
	metrics.RegistMetrics(registerer)

	fl, err := flow.New(cfg.Nodes, flow.Options{
		WorkingDir: cfg.WorkingDir,
		Registerer: registerer,
		Output:     os.Stdout,
	})
	if err != nil {
		return nil, nil, err
	}
	return fl, registry, nil
}

// run serves until SIGINT/SIGTERM, or until stdin is exhausted when there is no
// listener, and then drains every node.
func run(cfg *config.DynfileConfig, fl *flow.Flow, registry *prometheus.Registry) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		mux.Handle("/input", fl.InputHandler())
		mux.Handle("/debug/pprof/", http.DefaultServeMux)

		srv := &http.Server{Addr: cfg.Listen, Handler: mux}
		g.Go(func() error {
			logg.Dlog.Infof("listen on %s", cfg.Listen)
			err := srv.ListenAndServe()
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	if cfg.Foreground {
		// not part of the group: a blocked stdin read must not hold up shutdown
		go func() {
			n, err := fl.Ingest(gctx, os.Stdin)
			if err != nil && !errors.Is(err, context.Canceled) {
				logg.Dlog.Errorf("stdin ingest: %v", err)
			}
			logg.Dlog.Infof("stdin closed after %d messages", n)
			if cfg.Listen == "" {
				stop()
			}
		}()
	}

	<-gctx.Done()
	logg.Dlog.Infof("try to drain nodes")

	dctx, cancel := context.WithTimeout(context.Background(), cfg.DrainTimeout)
	defer cancel()
	drainErr := fl.Close(dctx)
	if drainErr != nil {
		logg.Dlog.Errorf("drain error: %v", drainErr)
	} else {
		logg.Dlog.Infof("drain succ")
	}

	stop()
	if err := g.Wait(); err != nil {
		return err
	}
	return drainErr
}

func RedirectStderr(dir, prefix, suffix string) (err error) {
	dir = filepath.Join(dir, "crashlog")
	logPath := RedirectPath(dir, prefix, suffix)
	err = os.MkdirAll(filepath.Dir(logPath), os.ModePerm)
	if err != nil {
		return
	}
	logFile, err := os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_SYNC, 0644)
	if err != nil {
		return
	}

	devNull, err := os.OpenFile(os.DevNull, os.O_APPEND|os.O_WRONLY, os.ModeAppend)
	if err != nil {
		return
	}

	err = unix.Dup2(int(devNull.Fd()), unix.Stdout)
	if err != nil {
		return
	}

	return unix.Dup2(int(logFile.Fd()), unix.Stderr)
}

func RedirectPath(dir, prefix, suffix string) string {
	t := time.Now()
	filename := fmt.Sprintf("%s%d%02d%02d-%02d%02d%02d%s", prefix, t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), suffix)
	return filepath.Join(dir, filename)
}
