package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/vodkit/vodkit/models"
	"github.com/vodkit/vodkit/services/cache"
	"github.com/vodkit/vodkit/services/userdata"
)

// deps bundles the stores every command needs. Close releases the db.
type deps struct {
	data  *userdata.Store
	cache *cache.Cache
}

func makeDeps(c *cli.Context) (*deps, error) {
	// Setting Userdata
	data, err := userdata.New(c)
	if err != nil {
		return nil, err
	}

	// Setting Cache
	ch, err := cache.New(c, data)
	if err != nil {
		data.Close()
		return nil, err
	}

	return &deps{data: data, cache: ch}, nil
}

func (d *deps) Close() {
	_ = d.data.Close()
}

// credentials resolves username and password from flags, persisted
// userdata and finally an interactive prompt. The password is parked in
// the short-lived cache entry so a retried login within a minute does not
// re-prompt; callers drop it when the flow ends.
func credentials(c *cli.Context, d *deps, service string) (string, string, error) {
	username := c.String("username")
	if username == "" {
		username = prompt("Username", d.data.Get(service, userdata.KeyUsername, ""))
	}
	if username == "" {
		return "", "", errors.New("a username is required")
	}
	if err := d.data.Set(service, userdata.KeyUsername, username); err != nil {
		return "", "", err
	}

	password := c.String("password")
	if password == "" {
		var cached string
		if d.cache.GetJSON(cache.KeyPassword, &cached) {
			password = cached
		}
	}
	if password == "" {
		password = prompt("Password", "")
	}
	if password == "" {
		return "", "", errors.New("a password is required")
	}
	if err := d.cache.SetJSON(cache.KeyPassword, password, cache.PasswordTTL); err != nil {
		return "", "", err
	}
	return username, password, nil
}

func prompt(label, def string) string {
	if def != "" {
		fmt.Fprintf(os.Stderr, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(os.Stderr, "%s: ", label)
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return def
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	return line
}

func credentialFlags(f []cli.Flag, envPrefix string) []cli.Flag {
	return append(f,
		cli.StringFlag{
			Name:   "username, u",
			Usage:  "account username",
			EnvVar: envPrefix + "_USERNAME",
		},
		cli.StringFlag{
			Name:   "password, p",
			Usage:  "account password",
			EnvVar: envPrefix + "_PASSWORD",
		},
	)
}

func printItems(items []models.Item) {
	for _, it := range items {
		line := fmt.Sprintf("%-12s  %s", it.ID, it.Title)
		if it.Type.Playable() && it.Duration > 0 {
			line += fmt.Sprintf("  (%dm)", it.Duration/60)
		}
		fmt.Println(line)
	}
	fmt.Printf("%s items\n", humanize.Comma(int64(len(items))))
}
