package main

import (
	"github.com/lambertxiao/go-dynfile/pkg/config"
	"github.com/urfave/cli"
)

const (
	C_PID_FILE = "pid_file"
	C_SYSLOG   = "syslog"
)

func FillConfig(c *cli.Context, conf *config.DynfileConfig) {
	conf.PidFile = c.String(C_PID_FILE)
	conf.UseSyslog = c.Bool(C_SYSLOG)
}

func AppendAppFlags(app *cli.App) {
	app.Flags = append(app.Flags, []cli.Flag{
		cli.StringFlag{
			Name:  C_PID_FILE,
			Usage: "pid file written by the background process",
			Value: "",
		},
		cli.BoolFlag{
			Name:  C_SYSLOG,
			Usage: "send logs to syslog when log_dir is empty",
		}}...)
}

func FillPlatformFlags(allFlags map[string]string) {
	for _, v := range []string{
		C_PID_FILE,
		C_SYSLOG} {
		allFlags[v] = "daemon"
	}
}

func PlatformAppHelpTemplate() string {
	return `
DAEMON
	{{range cate .Flags "daemon"}}{{.}}
	{{end}}
`
}
