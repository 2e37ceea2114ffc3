package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/vodkit/vodkit/models"
	"github.com/vodkit/vodkit/services/cache"
	"github.com/vodkit/vodkit/services/common"
	"github.com/vodkit/vodkit/services/kwese"
)

func makeKweseCMD() cli.Command {
	kweseCMD := cli.Command{
		Name:    "kwese",
		Aliases: []string{"kw"},
		Usage:   "Kwesé live-channel commands",
	}
	configureKwese(&kweseCMD)
	return kweseCMD
}

func configureKwese(c *cli.Command) {
	loginCmd := cli.Command{
		Name:   "login",
		Usage:  "Signs in and persists the session token",
		Action: kweseLogin,
	}
	loginCmd.Flags = credentialFlags(loginCmd.Flags, "KWESE")

	logoutCmd := cli.Command{
		Name:   "logout",
		Usage:  "Clears the persisted session and identity",
		Action: kweseLogout,
	}
	channelsCmd := cli.Command{
		Name:   "channels",
		Usage:  "Lists the channel directory",
		Action: kweseChannels,
		Flags: []cli.Flag{
			cli.BoolFlag{
				Name:  "all, a",
				Usage: "include hidden channels",
			},
		},
	}
	playCmd := cli.Command{
		Name:      "play",
		Usage:     "Resolves a channel id into a playable stream URL",
		ArgsUsage: "<channel-id>",
		Action:    kwesePlay,
	}
	hideCmd := cli.Command{
		Name:      "hide",
		Usage:     "Hides a channel from listings",
		ArgsUsage: "<channel-id>",
		Action:    kweseHide(true),
	}
	unhideCmd := cli.Command{
		Name:      "unhide",
		Usage:     "Restores a hidden channel",
		ArgsUsage: "<channel-id>",
		Action:    kweseHide(false),
	}

	c.Subcommands = []cli.Command{loginCmd, logoutCmd, channelsCmd, playCmd, hideCmd, unhideCmd}
	for i := range c.Subcommands {
		c.Subcommands[i].Flags = kwese.RegisterFlags(c.Subcommands[i].Flags)
		c.Subcommands[i].Flags = common.RegisterFlags(c.Subcommands[i].Flags)
	}
}

func makeKwese(c *cli.Context) (*kwese.Client, *deps, error) {
	d, err := makeDeps(c)
	if err != nil {
		return nil, nil, err
	}

	// Setting Kwese Client
	kw := kwese.New(c, http.DefaultClient, d.data, d.cache)

	return kw, d, nil
}

func kweseLogin(c *cli.Context) error {
	kw, d, err := makeKwese(c)
	if err != nil {
		return err
	}
	defer d.Close()

	username, password, err := credentials(c, d, kwese.ServiceName)
	if err != nil {
		return err
	}

	if err := kw.Login(context.Background(), username, password); err != nil {
		return err
	}

	if err := d.cache.Delete(cache.KeyPassword); err != nil {
		log.WithError(err).Warn("failed to drop cached password")
	}

	fmt.Println("logged in")
	return nil
}

func kweseLogout(c *cli.Context) error {
	kw, d, err := makeKwese(c)
	if err != nil {
		return err
	}
	defer d.Close()

	kw.Logout()
	fmt.Println("logged out")
	return nil
}

func kweseChannels(c *cli.Context) error {
	kw, d, err := makeKwese(c)
	if err != nil {
		return err
	}
	defer d.Close()

	if !kw.LoggedIn {
		return errors.New("not logged in, run 'vodkit kwese login' first")
	}

	channels, err := kw.Channels(context.Background(), c.Bool("all"))
	if err != nil {
		return err
	}

	for _, ch := range channels {
		fmt.Printf("%-12s  %s\n", ch.ID, ch.Name)
	}
	fmt.Printf("%s channels\n", humanize.Comma(int64(len(channels))))
	return nil
}

func kwesePlay(c *cli.Context) error {
	channelID := c.Args().First()
	if channelID == "" {
		return errors.New("a channel id is required")
	}

	kw, d, err := makeKwese(c)
	if err != nil {
		return err
	}
	defer d.Close()

	if !kw.LoggedIn {
		return errors.New("not logged in, run 'vodkit kwese login' first")
	}

	ch, err := kw.Channel(context.Background(), channelID)
	if err != nil {
		return err
	}

	streamURL, err := kw.ResolveURL(context.Background(), ch.StreamURL)
	if errors.Is(err, models.ErrNoStream) || errors.Is(err, models.ErrUnsupportedDRM) {
		return errors.Wrapf(err, "channel %q cannot be played, run 'vodkit kwese hide %s' to drop it from listings", ch.Name, ch.ID)
	}
	if err != nil {
		return err
	}

	fmt.Println(streamURL)
	return nil
}

func kweseHide(hide bool) cli.ActionFunc {
	return func(c *cli.Context) error {
		channelID := c.Args().First()
		if channelID == "" {
			return errors.New("a channel id is required")
		}

		kw, d, err := makeKwese(c)
		if err != nil {
			return err
		}
		defer d.Close()

		if hide {
			err = kw.Hide(channelID)
		} else {
			err = kw.Unhide(channelID)
		}
		if err != nil {
			return err
		}

		fmt.Println(channelID)
		return nil
	}
}
