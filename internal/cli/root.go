package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Praharsha2005/Disease-Classification-using-AI/internal/config"
	"github.com/Praharsha2005/Disease-Classification-using-AI/internal/logger"
)

func Execute() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:          "xray",
		Short:        "Chest X-ray disease classification with Grad-CAM explanations",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging and source locations")
	cmd.AddCommand(serveCmd(&debug), diagnoseCmd(&debug))
	return cmd
}

// setup loads configuration and starts the process logger. The returned
// cleanup flushes and closes the log file.
func setup(debug bool) (*config.Config, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	cfg.Debug = cfg.Debug || debug

	closeLog, err := logger.Setup(logger.Config{Dir: cfg.LogDirectory, Debug: cfg.Debug})
	if err != nil {
		return nil, nil, err
	}
	return cfg, func() { _ = closeLog() }, nil
}
