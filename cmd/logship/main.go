package main

import (
	"os"

	"github.com/G-Research/logship/cmd/logship/cmd"
	"github.com/G-Research/logship/internal/common/logging"
)

func main() {
	logging.ConfigureCommandLineLogging()
	err := cmd.RootCmd().Execute()
	if err != nil {
		os.Exit(1)
	}
}
