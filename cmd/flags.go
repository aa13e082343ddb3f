package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/lambertxiao/go-dynfile/pkg/config"
	"github.com/lambertxiao/go-dynfile/pkg/logg"
	"github.com/lambertxiao/go-dynfile/pkg/types"

	"github.com/urfave/cli"
)

const (
	// flags
	C_HELP              = "help, h"
	C_F                 = "f"
	C_CONFIG            = "config"
	C_LEVEL             = "level"
	C_LOG_DIR           = "log_dir"
	C_LOG_MAX_AGE       = "log_max_age"
	C_LOG_ROTATION_TIME = "log_rotation_time"
	C_WORKING_DIR       = "working_dir"
	C_LISTEN            = "listen"
	C_DRAIN_TIMEOUT     = "drain_timeout"
	C_NAME              = "name"
	C_FILENAME          = "filename"
	C_MODE              = "mode"
	C_NEWLINE           = "newline"
	C_CREATE_DIR        = "create_dir"
	C_ENCODING          = "encoding"
	C_ADDR              = "addr"
	C_INTERVAL          = "interval"
)

var allFlags map[string]string

func init() {
	cli.VersionPrinter = VersionPointer
	allFlags = make(map[string]string)
	for _, v := range []string{C_HELP, C_F, C_CONFIG, C_WORKING_DIR, C_LISTEN, C_DRAIN_TIMEOUT} {
		allFlags[v] = "misc"
	}
	for _, v := range []string{C_LEVEL, C_LOG_DIR, C_LOG_MAX_AGE, C_LOG_ROTATION_TIME} {
		allFlags[v] = "log"
	}
	for _, v := range []string{C_NAME, C_FILENAME, C_MODE, C_NEWLINE, C_CREATE_DIR, C_ENCODING} {
		allFlags[v] = "node"
	}

	FillPlatformFlags(allFlags)

	cli.HelpPrinter = func(w io.Writer, templ string, data interface{}) {
		cli.HelpPrinterCustom(w, templ, data, map[string]interface{}{"cate": cate})
	}
}

func cate(flags []cli.Flag, category string) []cli.Flag {
	ret := make([]cli.Flag, 0, len(flags))
	for _, f := range flags {
		if allFlags[f.GetName()] == category {
			ret = append(ret, f)
		}
	}
	return ret
}

func VersionPointer(c *cli.Context) {
	fmt.Printf("%v", c.App.Version)
}

const appHelpTemplate = `NAME:
   {{.Name}} - {{.Usage}}

USAGE:
   {{.Name}} [global options] [command [command options]]

VERSION:
{{.Version}}
COMMANDS:
{{range .Commands}}   {{join .Names ", "}}{{"\t"}}{{.Usage}}
{{end}}
MISC
	{{range cate .Flags "misc"}}{{.}}
	{{end}}
LOG
	{{range cate .Flags "log"}}{{.}}
	{{end}}
NODE (single node without --config)
	{{range cate .Flags "node"}}{{.}}
	{{end}}`

func NewApp() *cli.App {
	version := "GO_DYNFILE Version: " + types.GO_DYNFILE_VERSION + "\n" +
		"  Commit ID: " + types.COMMIT_ID + "\n" +
		"  Build: " + types.BUILD_TIME + "\n" +
		"  Go Version: " + types.GO_VERSION + "\n"

	app := &cli.App{
		Name:     "go-dynfile",
		HideHelp: false,
		Version:  version,
		Usage:    "serialized file writer fed with NDJSON messages",
		Writer:   os.Stderr,
		Commands: []cli.Command{
			{
				Name:  "stats",
				Usage: "show stats of a running instance scraped from /metrics: process, writes per mode, queue, go",
				Flags: []cli.Flag{
					cli.StringFlag{
						Name:  C_ADDR,
						Usage: "listen address of the running instance",
						Value: types.DEFAULT_LISTEN,
					},
					cli.UintFlag{
						Name:  C_INTERVAL,
						Usage: "refresh interval in seconds",
						Value: 1,
					},
				},
				Action: func(c *cli.Context) error {
					return ShowStats(c.String(C_ADDR), c.Uint(C_INTERVAL))
				},
			},
		},
		Flags: []cli.Flag{
			cli.BoolFlag{
				Name:  C_HELP,
				Usage: "show help",
			},
			cli.BoolFlag{
				Name:  C_F,
				Usage: "foreground, also reads NDJSON from stdin",
			},
			cli.StringFlag{
				Name:  C_CONFIG,
				Usage: "yaml config file with a list of nodes",
				Value: "",
			},
			cli.StringFlag{
				Name:  C_WORKING_DIR,
				Usage: "directory relative filenames are resolved against, default is the current directory",
				Value: "",
			},
			cli.StringFlag{
				Name:  C_LISTEN,
				Usage: "http listen address for /input and /metrics, empty to disable",
				Value: types.DEFAULT_LISTEN,
			},
			cli.DurationFlag{
				Name:  C_DRAIN_TIMEOUT,
				Usage: "how long to wait for queued messages on shutdown",
				Value: types.DEFAULT_DRAIN_TIMEOUT,
			},
			cli.StringFlag{
				Name:  C_LEVEL,
				Usage: "Set log level: error/warn/info/debug",
				Value: types.DEFAULT_LEVEL,
			},
			cli.StringFlag{
				Name:  C_LOG_DIR,
				Usage: "Set log dir",
				Value: "",
			},
			cli.DurationFlag{
				Name:  C_LOG_MAX_AGE,
				Usage: "Set log max age",
				Value: types.DEFAULT_LOG_MAX_AGE,
			},
			cli.DurationFlag{
				Name:  C_LOG_ROTATION_TIME,
				Usage: "Set log rotation time",
				Value: types.DEFAULT_LOG_ROTATION_TIME,
			},
			cli.StringFlag{
				Name:  C_NAME,
				Usage: "node name",
				Value: types.DEFAULT_NODE_NAME,
			},
			cli.StringFlag{
				Name:  C_FILENAME,
				Usage: "target filename, may contain {{mustache}} fields; empty means msg.filename",
				Value: "",
			},
			cli.StringFlag{
				Name:  C_MODE,
				Usage: "append/overwrite/delete",
				Value: "append",
			},
			cli.BoolFlag{
				Name:  C_NEWLINE,
				Usage: "add a newline after each payload",
			},
			cli.BoolFlag{
				Name:  C_CREATE_DIR,
				Usage: "create the parent directory if it does not exist",
			},
			cli.StringFlag{
				Name:  C_ENCODING,
				Usage: "output encoding, e.g. none/utf8/latin1/utf16le/setbymsg",
				Value: types.DEFAULT_ENCODING,
			},
		},
	}

	AppendAppFlags(app)
	app.CustomAppHelpTemplate = appHelpTemplate + PlatformAppHelpTemplate()
	return app
}

func PopulateConfig(c *cli.Context) (*config.DynfileConfig, error) {
	cfg := &config.DynfileConfig{
		Foreground: c.Bool(C_F),
		ConfigFile: c.String(C_CONFIG),

		WorkingDir:   c.String(C_WORKING_DIR),
		Listen:       c.String(C_LISTEN),
		DrainTimeout: c.Duration(C_DRAIN_TIMEOUT),

		LogDir:          c.String(C_LOG_DIR),
		LogMaxAge:       c.Duration(C_LOG_MAX_AGE),
		LogRotationTime: c.Duration(C_LOG_ROTATION_TIME),
	}
	FillConfig(c, cfg)

	level := c.String(C_LEVEL)
	if cfg.ConfigFile != "" {
		fc, mtime, err := config.LoadFile(cfg.ConfigFile)
		if err != nil {
			return cfg, err
		}
		cfg.ModifiedTime = mtime

		if err := updateConfig(c, cfg, fc); err != nil {
			return cfg, err
		}
		if !c.IsSet(C_LEVEL) && fc.Log_level != "" {
			level = fc.Log_level
		}
	}

	if len(cfg.Nodes) == 0 || c.IsSet(C_FILENAME) || c.IsSet(C_MODE) || c.IsSet(C_NAME) {
		cfg.Nodes = append(cfg.Nodes, config.NodeConf{
			Name:          c.String(C_NAME),
			Filename:      c.String(C_FILENAME),
			Mode:          c.String(C_MODE),
			AppendNewline: c.Bool(C_NEWLINE),
			CreateDir:     c.Bool(C_CREATE_DIR),
			Encoding:      c.String(C_ENCODING),
		})
	}

	cfg.Log_level = logg.ParseLevel(level)
	logg.SetLevel(cfg.Log_level)

	if cfg.WorkingDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return cfg, err
		}
		cfg.WorkingDir = wd
	}
	wd, err := filepath.Abs(cfg.WorkingDir)
	if err != nil {
		return cfg, err
	}
	cfg.WorkingDir = wd

	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = types.DEFAULT_DRAIN_TIMEOUT
	}
	if !cfg.Foreground && cfg.Listen == "" {
		return cfg, fmt.Errorf("%w: background mode needs --listen", types.EINVAL)
	}

	return cfg, cfg.Validate()
}

// updateConfig fills in file values for everything not given on the command line.
func updateConfig(c *cli.Context, conf *config.DynfileConfig, fc *config.FileConfig) error {
	if !c.IsSet(C_WORKING_DIR) && fc.WorkingDir != "" {
		conf.WorkingDir = fc.WorkingDir
	}
	if !c.IsSet(C_LISTEN) && fc.Listen != "" {
		conf.Listen = fc.Listen
	}
	if !c.IsSet(C_LOG_DIR) && fc.LogDir != "" {
		conf.LogDir = fc.LogDir
	}

	durations := []struct {
		flag  string
		value string
		dst   *time.Duration
	}{
		{C_LOG_MAX_AGE, fc.LogMaxAge, &conf.LogMaxAge},
		{C_LOG_ROTATION_TIME, fc.LogRotationTime, &conf.LogRotationTime},
		{C_DRAIN_TIMEOUT, fc.DrainTimeout, &conf.DrainTimeout},
	}
	for _, d := range durations {
		if c.IsSet(d.flag) || d.value == "" {
			continue
		}
		v, err := config.ParseDuration(d.flag, d.value)
		if err != nil {
			return err
		}
		*d.dst = v
	}

	for _, n := range fc.Nodes {
		nc := n.NodeConf()
		if nc.Encoding == "" {
			nc.Encoding = types.DEFAULT_ENCODING
		}
		conf.Nodes = append(conf.Nodes, nc)
	}
	return nil
}
