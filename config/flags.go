package config

import "github.com/spf13/pflag"

// CliConfig holds the flags shared by every command.
type CliConfig struct {
	ConfigFile string
	Debug      bool
}

// BindFlags registers the shared flags on fs.
func (c *CliConfig) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.ConfigFile, "config", "", "Path to the config file")
	fs.BoolVarP(&c.Debug, "debug", "d", false, "Enable debug mode")
}
