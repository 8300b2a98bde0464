package cmd

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/G-Research/logship/internal/common/app"
	"github.com/G-Research/logship/internal/common/logging"
	"github.com/G-Research/logship/internal/logship"
)

const stdin = "-"

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reads newline-delimited JSON events and forwards them until the input ends or the process is signalled",
		RunE:  run,
	}
	cmd.Flags().String(
		"input",
		stdin,
		"File to read events from, or - for stdin")
	cmd.Flags().Bool(
		"capture-logs",
		false,
		"Also forward logship's own log output")
	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	inputPath, err := cmd.Flags().GetString("input")
	if err != nil {
		return errors.WithStack(err)
	}
	captureLogs, err := cmd.Flags().GetBool("capture-logs")
	if err != nil {
		return errors.WithStack(err)
	}

	config, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logging.MustConfigureApplicationLogging(config.Logging)

	input, err := openInput(inputPath)
	if err != nil {
		return err
	}
	ctx := app.CreateContextWithShutdown(logrus.NewEntry(logrus.StandardLogger()))
	return logship.Run(ctx, config, logship.RunOptions{
		Input:       input,
		CaptureLogs: captureLogs,
	})
}

func openInput(path string) (io.ReadCloser, error) {
	if path == stdin {
		return os.Stdin, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithMessagef(err, "error opening input %s", path)
	}
	return f, nil
}
