package main

import (
	"os"

	"evalgo.org/portico/internal/commands"
	"evalgo.org/portico/internal/ux"
	"evalgo.org/portico/internal/version"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	version.Version = Version
	version.BuildTime = BuildTime
	version.GitCommit = GitCommit

	if err := commands.Execute(); err != nil {
		ux.NewPrinter(os.Stderr).Error(err.Error())
		os.Exit(commands.ExitCode(err))
	}
}
