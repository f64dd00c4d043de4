package main

import (
	"github.com/tmakinen/recwatch/cmd"
	"github.com/tmakinen/recwatch/internal/conf"
	"github.com/tmakinen/recwatch/internal/logging"
)

// version and buildDate are set by the build process via ldflags.
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	logging.Init()

	settings, err := conf.Load()
	if err != nil {
		logging.Fatal("error loading configuration", "error", err)
	}
	settings.Version = version
	settings.BuildDate = buildDate

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		logging.Fatal("command execution error", "error", err)
	}
}
