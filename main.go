package main

import (
	"os"

	"github.com/outpost-tools/outpost-ctl/cmd"
	"github.com/outpost-tools/outpost-ctl/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(errors.GetExitCode(err))
	}
}
