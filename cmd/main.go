package main

import (
	"fmt"
	"os"

	"github.com/lambertxiao/go-dynfile/pkg/config"
	"github.com/lambertxiao/go-dynfile/pkg/logg"

	"github.com/urfave/cli"

	_ "net/http/pprof"
)

var waitfor_sig os.Signal

func init() {
	os.Setenv("GOTRACEBACK", "crash")
}

func main() {
	app := NewApp()

	app.Action = func(c *cli.Context) error {
		if len(c.Args()) > 0 {
			fmt.Fprintf(os.Stderr, "Error: %s takes no arguments, got %v.\n", app.Name, c.Args())
			cli.ShowAppHelp(c)
			os.Exit(1)
		}

		cfg, err := PopulateConfig(c)
		if err != nil {
			fmt.Printf("Parse config error: %v\n", err)
			return err
		}

		config.SetGConfig(cfg)
		logg.InitLogHook(cfg.LogDir, cfg.LogMaxAge, cfg.LogRotationTime, cfg.UseSyslog)
		logg.InitLogger()

		return serve(cfg)
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Println("See log for detail reason", err)
		os.Exit(1)
	}
}
