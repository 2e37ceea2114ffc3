package common

import (
	"crypto/sha1"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli"
)

var (
	DataDirFlag  = "data-dir"
	UseCacheFlag = "use-cache"
)

// UserAgent is sent on every service request. The services gate features
// by device class, so it impersonates a TV client.
const UserAgent = "Mozilla/5.0 (PlayStation 0 5.55) AppleWebKit/537.73 (KHTML, like Gecko)"

func RegisterFlags(f []cli.Flag) []cli.Flag {
	return append(f,
		cli.StringFlag{
			Name:   DataDirFlag,
			Usage:  "directory for persisted tokens and cache",
			Value:  defaultDataDir(),
			EnvVar: "VODKIT_DATA_DIR",
		},
		cli.BoolTFlag{
			Name:   UseCacheFlag,
			Usage:  "cache catalog responses on disk",
			EnvVar: "VODKIT_USE_CACHE",
		},
	)
}

// DeviceID derives the pseudo-device identifier that binds tokens to an
// account: uppercase hex of a one-way hash of the username.
func DeviceID(username string) string {
	sum := sha1.Sum([]byte(username))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".vodkit"
	}
	return filepath.Join(dir, "vodkit")
}
