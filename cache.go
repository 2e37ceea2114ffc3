package main

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/vodkit/vodkit/services/common"
)

func makeCacheCMD() cli.Command {
	cacheCMD := cli.Command{
		Name:    "cache",
		Aliases: []string{"c"},
		Usage:   "Response cache management commands",
	}
	configureCache(&cacheCMD)
	return cacheCMD
}

func configureCache(c *cli.Command) {
	clearCmd := cli.Command{
		Name:   "clear",
		Usage:  "Drops every cached response",
		Action: cacheClear,
	}
	clearCmd.Flags = common.RegisterFlags(clearCmd.Flags)
	c.Subcommands = []cli.Command{clearCmd}
}

func cacheClear(c *cli.Context) error {
	d, err := makeDeps(c)
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.cache.Clear(); err != nil {
		return err
	}
	fmt.Println("cache cleared")
	return nil
}
