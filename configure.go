package main

import (
	"github.com/urfave/cli"
)

func configure(app *cli.App) {
	showmaxCMD := makeShowmaxCMD()
	kweseCMD := makeKweseCMD()
	cacheCMD := makeCacheCMD()
	app.Commands = []cli.Command{showmaxCMD, kweseCMD, cacheCMD}
}
