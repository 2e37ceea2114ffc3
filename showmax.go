package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/vodkit/vodkit/models"
	"github.com/vodkit/vodkit/services/cache"
	"github.com/vodkit/vodkit/services/common"
	"github.com/vodkit/vodkit/services/showmax"
)

func makeShowmaxCMD() cli.Command {
	showmaxCMD := cli.Command{
		Name:    "showmax",
		Aliases: []string{"sm"},
		Usage:   "Showmax catalog and playback commands",
	}
	configureShowmax(&showmaxCMD)
	return showmaxCMD
}

func configureShowmax(c *cli.Command) {
	loginCmd := cli.Command{
		Name:   "login",
		Usage:  "Signs in and persists the session token",
		Action: showmaxLogin,
	}
	loginCmd.Flags = credentialFlags(loginCmd.Flags, "SHOWMAX")

	logoutCmd := cli.Command{
		Name:   "logout",
		Usage:  "Clears the persisted session and identity",
		Action: showmaxLogout,
	}
	showsCmd := cli.Command{
		Name:   "shows",
		Usage:  "Lists all series",
		Action: showmaxList((*showmax.Client).Shows),
	}
	moviesCmd := cli.Command{
		Name:   "movies",
		Usage:  "Lists all movies",
		Action: showmaxList((*showmax.Client).Movies),
	}
	kidsCmd := cli.Command{
		Name:   "kids",
		Usage:  "Lists the kids section",
		Action: showmaxList((*showmax.Client).Kids),
	}
	showCmd := cli.Command{
		Name:      "show",
		Usage:     "Lists the seasons and episodes of a series",
		ArgsUsage: "<show-id>",
		Action:    showmaxShow,
	}
	playCmd := cli.Command{
		Name:      "play",
		Usage:     "Resolves a video id into stream and license URLs",
		ArgsUsage: "<video-id>",
		Action:    showmaxPlay,
	}

	c.Subcommands = []cli.Command{loginCmd, logoutCmd, showsCmd, moviesCmd, kidsCmd, showCmd, playCmd}
	for i := range c.Subcommands {
		c.Subcommands[i].Flags = showmax.RegisterFlags(c.Subcommands[i].Flags)
		c.Subcommands[i].Flags = common.RegisterFlags(c.Subcommands[i].Flags)
	}
}

func makeShowmax(c *cli.Context) (*showmax.Client, *deps, error) {
	d, err := makeDeps(c)
	if err != nil {
		return nil, nil, err
	}

	// Setting Showmax Client
	sm := showmax.New(c, http.DefaultClient, d.data, d.cache)

	return sm, d, nil
}

func showmaxLogin(c *cli.Context) error {
	sm, d, err := makeShowmax(c)
	if err != nil {
		return err
	}
	defer d.Close()

	username, password, err := credentials(c, d, showmax.ServiceName)
	if err != nil {
		return err
	}

	if err := sm.Login(context.Background(), username, password); err != nil {
		return err
	}

	// The transient copy is only kept across immediate retries
	if err := d.cache.Delete(cache.KeyPassword); err != nil {
		log.WithError(err).Warn("failed to drop cached password")
	}

	fmt.Println("logged in")
	return nil
}

func showmaxLogout(c *cli.Context) error {
	sm, d, err := makeShowmax(c)
	if err != nil {
		return err
	}
	defer d.Close()

	sm.Logout()
	fmt.Println("logged out")
	return nil
}

func showmaxList(fetch func(*showmax.Client, context.Context) ([]models.Item, error)) cli.ActionFunc {
	return func(c *cli.Context) error {
		sm, d, err := makeShowmax(c)
		if err != nil {
			return err
		}
		defer d.Close()

		if !sm.LoggedIn {
			return errors.New("not logged in, run 'vodkit showmax login' first")
		}

		items, err := fetch(sm, context.Background())
		if err != nil {
			return err
		}
		printItems(items)
		return nil
	}
}

func showmaxShow(c *cli.Context) error {
	showID := c.Args().First()
	if showID == "" {
		return errors.New("a show id is required")
	}

	sm, d, err := makeShowmax(c)
	if err != nil {
		return err
	}
	defer d.Close()

	if !sm.LoggedIn {
		return errors.New("not logged in, run 'vodkit showmax login' first")
	}

	detail, err := sm.Show(context.Background(), showID)
	if err != nil {
		return err
	}

	fmt.Println(detail.Title)
	for _, season := range detail.Seasons {
		fmt.Printf("Season %d\n", season.Number)
		printItems(season.Episodes)
	}
	return nil
}

func showmaxPlay(c *cli.Context) error {
	videoID := c.Args().First()
	if videoID == "" {
		return errors.New("a video id is required")
	}

	sm, d, err := makeShowmax(c)
	if err != nil {
		return err
	}
	defer d.Close()

	if !sm.LoggedIn {
		return errors.New("not logged in, run 'vodkit showmax login' first")
	}

	pb, err := sm.Play(context.Background(), videoID)
	if err != nil {
		return err
	}

	fmt.Printf("stream:  %s\n", pb.StreamURL)
	fmt.Printf("license: %s\n", pb.LicenseURL)
	return nil
}
