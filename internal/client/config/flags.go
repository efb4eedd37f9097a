package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/flightschool-cms/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   CMS API base URL
//	-u string   asset base URL
//	-s string   path of the local session database
//	-l string   log level
//
// args is filtered with flagx.FilterArgs so flags meant for other
// components do not interfere.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-u", "-s", "-l"})

	fs := flag.NewFlagSet("cms", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.APIURL, "a", cfg.APIURL, "CMS API base URL")
	fs.StringVar(&cfg.UploadsURL, "u", cfg.UploadsURL, "asset base URL")
	fs.StringVar(&cfg.StatePath, "s", cfg.StatePath, "local session database")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	return fs.Parse(args)
}
